package client

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/trainctl/internal/client/models"
	"github.com/dmitrijs2005/trainctl/internal/common"
)

type recorded struct {
	method string
	path   string
	auth   string
	ctype  string
	body   string
}

type recorder struct {
	mu    sync.Mutex
	calls []recorded
}

func (r *recorder) all() []recorded {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]recorded(nil), r.calls...)
}

func newServer(t *testing.T, status int, reply string) (*HTTPClient, *recorder) {
	t.Helper()
	rec := &recorder{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		rec.mu.Lock()
		defer rec.mu.Unlock()
		rec.calls = append(rec.calls, recorded{
			method: r.Method,
			path:   r.URL.Path,
			auth:   r.Header.Get("Authorization"),
			ctype:  r.Header.Get("Content-Type"),
			body:   string(b),
		})
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, reply)
	}))
	t.Cleanup(srv.Close)

	c, err := NewHTTPClient(srv.URL, 5*time.Second)
	require.NoError(t, err)
	return c, rec
}

func TestNewHTTPClient_Validation(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		wantErr bool
	}{
		{name: "http", url: "http://127.0.0.1:8000"},
		{name: "https with prefix", url: "https://api.example.com/v1"},
		{name: "ws scheme", url: "ws://127.0.0.1:8000", wantErr: true},
		{name: "no host", url: "http://", wantErr: true},
		{name: "garbage", url: "://nope", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewHTTPClient(tt.url, time.Second)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestLogin_SendsCredentials(t *testing.T) {
	c, rec := newServer(t, http.StatusOK, `{"access_token":"a.b.c","token_type":"bearer"}`)

	tok, err := c.Login(context.Background(), "u@x.io", "Secret#12")
	require.NoError(t, err)
	assert.Equal(t, "a.b.c", tok.AccessToken)
	assert.Equal(t, "bearer", tok.TokenType)

	calls := rec.all()
	require.Len(t, calls, 1)
	got := calls[0]
	assert.Equal(t, http.MethodPost, got.method)
	assert.Equal(t, "/auth/login", got.path)
	assert.Equal(t, "application/json", got.ctype)
	assert.Empty(t, got.auth)
	assert.JSONEq(t, `{"email":"u@x.io","password":"Secret#12"}`, got.body)
}

func TestAuthHeader_SetAndClear(t *testing.T) {
	c, rec := newServer(t, http.StatusOK, `{"count":0,"last_training":null,"success_rate":0}`)
	ctx := context.Background()

	c.SetAuthToken("tok-1")
	assert.Equal(t, "Bearer tok-1", c.AuthHeader())
	_, err := c.Summary(ctx)
	require.NoError(t, err)

	c.ClearAuthToken()
	assert.Empty(t, c.AuthHeader())
	_, err = c.Summary(ctx)
	require.NoError(t, err)

	calls := rec.all()
	require.Len(t, calls, 2)
	assert.Equal(t, "Bearer tok-1", calls[0].auth)
	assert.Empty(t, calls[1].auth)
}

func TestStartTraining(t *testing.T) {
	c, rec := newServer(t, http.StatusOK, `{"id":42,"user_id":1,"model_version":1,"status":"pending","parameters":{},"results":null,"created_at":"2025-05-01T10:00:00","updated_at":"2025-05-01T10:00:00"}`)
	c.SetAuthToken("tok")

	job, err := c.StartTraining(context.Background(), models.TrainingRequest{
		Parameters: map[string]any{"target_column": "y"},
		CSVFile:    "x,y\n1,0\n",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(42), job.ID)
	assert.Equal(t, models.JobStatusPending, job.Status)

	got := rec.all()[0]
	assert.Equal(t, "/training/start", got.path)
	assert.Equal(t, "Bearer tok", got.auth)

	var body map[string]any
	require.NoError(t, json.Unmarshal([]byte(got.body), &body))
	assert.Equal(t, "x,y\n1,0\n", body["csv_file"])
}

func TestGetTrainingAndResults_Paths(t *testing.T) {
	c, rec := newServer(t, http.StatusOK, `{"id":7,"status":"completed"}`)

	job, err := c.GetTraining(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusCompleted, job.Status)
	got := rec.all()[0]
	assert.Equal(t, "/training/7", got.path)
	assert.Equal(t, http.MethodGet, got.method)
	assert.Empty(t, got.body)

	c2, rec2 := newServer(t, http.StatusOK, `[{"id":2},{"id":1}]`)
	jobs, err := c2.Results(context.Background())
	require.NoError(t, err)
	require.Len(t, jobs, 2)
	assert.Equal(t, int64(2), jobs[0].ID)
	assert.Equal(t, "/dashboard/results", rec2.all()[0].path)
}

func TestBasePathPrefixIsKept(t *testing.T) {
	var gotPath atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath.Store(r.URL.Path)
		_, _ = io.WriteString(w, `{"count":1,"last_training":null,"success_rate":1}`)
	}))
	t.Cleanup(srv.Close)

	c, err := NewHTTPClient(srv.URL+"/api/", time.Second)
	require.NoError(t, err)

	s, err := c.Summary(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "/api/dashboard/summary", gotPath.Load())
	assert.Equal(t, 1, s.Count)
	assert.InDelta(t, 1.0, s.SuccessRate, 1e-9)
}

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		name         string
		status       int
		reply        string
		detail       string
		unauthorized bool
		unavailable  bool
		notFound     bool
		rejected     bool
	}{
		{name: "bad login", status: 401, reply: `{"detail":"Invalid email or password"}`, detail: "Invalid email or password", unauthorized: true, rejected: true},
		{name: "duplicate email", status: 400, reply: `{"detail":"Email already registered"}`, detail: "Email already registered", rejected: true},
		{name: "validation list", status: 422, reply: `{"detail":[{"loc":["body","password"],"msg":"too short"},{"msg":"bad"}]}`, detail: "password: too short; bad", rejected: true},
		{name: "not json", status: 404, reply: `Not Found`, detail: "Not Found", notFound: true, rejected: true},
		{name: "server down", status: 502, reply: ``, unavailable: true},
		{name: "internal", status: 500, reply: `{"detail":"boom"}`, detail: "boom", unavailable: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := newServer(t, tt.status, tt.reply)

			_, err := c.Login(context.Background(), "a", "b")
			var apiErr *APIError
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, tt.status, apiErr.StatusCode)
			assert.Equal(t, tt.detail, apiErr.Detail)
			assert.Equal(t, tt.unauthorized, errors.Is(err, ErrUnauthorized))
			assert.Equal(t, tt.unavailable, errors.Is(err, ErrUnavailable))
			assert.Equal(t, tt.notFound, errors.Is(err, common.ErrorNotFound))
			assert.Equal(t, tt.rejected, apiErr.Rejected())
		})
	}
}

func TestAPIError_Message(t *testing.T) {
	assert.Equal(t, "Training not found (status code = 404)", (&APIError{StatusCode: 404, Detail: "Training not found"}).Error())
	assert.Equal(t, "server error (status code = 503)", (&APIError{StatusCode: 503}).Error())
}

func TestTransportFailure_IsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c, err := NewHTTPClient(url, time.Second)
	require.NoError(t, err)

	_, err = c.Login(context.Background(), "a", "b")
	require.ErrorIs(t, err, ErrUnavailable)
}

func TestTimeout_IsUnavailable(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	t.Cleanup(func() { close(release); srv.Close() })

	c, err := NewHTTPClient(srv.URL, 50*time.Millisecond)
	require.NoError(t, err)

	_, err = c.Summary(context.Background())
	require.ErrorIs(t, err, ErrUnavailable)
}

func TestCanceledContext_IsNotUnavailable(t *testing.T) {
	c, _ := newServer(t, http.StatusOK, `{}`)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.Summary(ctx)
	require.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, ErrUnavailable)
}

func TestMalformedSuccessBody(t *testing.T) {
	c, _ := newServer(t, http.StatusOK, `not json`)

	_, err := c.Login(context.Background(), "a", "b")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected response")
	assert.NotErrorIs(t, err, ErrUnavailable)
}
