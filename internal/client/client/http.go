package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/trainctl/internal/client/models"
	"github.com/dmitrijs2005/trainctl/internal/common"
)

const maxErrorBody = 64 << 10

// HTTPClient talks JSON over HTTP to the training service. It is safe for
// concurrent use; the Authorization header may change between requests.
type HTTPClient struct {
	base *url.URL
	http *http.Client

	mu         sync.RWMutex
	authHeader string
}

// NewHTTPClient builds a client for the service rooted at baseURL.
func NewHTTPClient(baseURL string, timeout time.Duration) (*HTTPClient, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse server url %q: %w", baseURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("server url %q: scheme must be http or https", baseURL)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("server url %q: missing host", baseURL)
	}
	return &HTTPClient{base: u, http: &http.Client{Timeout: timeout}}, nil
}

// BaseURL returns a copy of the service root.
func (c *HTTPClient) BaseURL() *url.URL {
	u := *c.base
	return &u
}

func (c *HTTPClient) SetAuthToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.authHeader = common.BearerScheme + " " + token
}

func (c *HTTPClient) ClearAuthToken() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.authHeader = ""
}

// AuthHeader returns the Authorization value currently sent, "" if none.
func (c *HTTPClient) AuthHeader() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.authHeader
}

func (c *HTTPClient) Login(ctx context.Context, email, password string) (*models.TokenResponse, error) {
	out := &models.TokenResponse{}
	if err := c.do(ctx, http.MethodPost, "/auth/login", models.Credentials{Email: email, Password: password}, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *HTTPClient) Register(ctx context.Context, email, password string) (*models.User, error) {
	out := &models.User{}
	if err := c.do(ctx, http.MethodPost, "/auth/register", models.Credentials{Email: email, Password: password}, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *HTTPClient) StartTraining(ctx context.Context, req models.TrainingRequest) (*models.Job, error) {
	out := &models.Job{}
	if err := c.do(ctx, http.MethodPost, "/training/start", req, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *HTTPClient) GetTraining(ctx context.Context, id int64) (*models.Job, error) {
	out := &models.Job{}
	if err := c.do(ctx, http.MethodGet, "/training/"+strconv.FormatInt(id, 10), nil, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *HTTPClient) Summary(ctx context.Context) (*models.Summary, error) {
	out := &models.Summary{}
	if err := c.do(ctx, http.MethodGet, "/dashboard/summary", nil, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *HTTPClient) Results(ctx context.Context) ([]models.Job, error) {
	var out []models.Job
	if err := c.do(ctx, http.MethodGet, "/dashboard/results", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *HTTPClient) endpoint(p string) string {
	u := *c.base
	u.Path = path.Join("/", u.Path, p)
	return u.String()
}

func (c *HTTPClient) do(ctx context.Context, method, p string, in, out any) error {
	var body io.Reader
	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.endpoint(p), body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if h := c.AuthHeader(); h != "" {
		req.Header.Set(common.AuthorizationHeaderName, h)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return mapError(ctx, err)
	}
	defer resp.Body.Close()

	return unmarshalJSONResponse(resp, out)
}

// mapError turns a transport failure into ErrUnavailable unless the caller
// cancelled the request itself.
func mapError(ctx context.Context, err error) error {
	if errors.Is(ctx.Err(), context.Canceled) {
		return ctx.Err()
	}
	return fmt.Errorf("%w: %v", ErrUnavailable, err)
}

func unmarshalJSONResponse(resp *http.Response, out any) error {
	if !isSuccess(resp.StatusCode) {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &APIError{StatusCode: resp.StatusCode, Detail: parseErrorDetail(raw)}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("unexpected response: %w (status code = %d)", err, resp.StatusCode)
	}
	return nil
}

// parseErrorDetail extracts {"detail": ...}. The detail is either a message
// or, for request validation failures, a list of {"msg": ...} objects.
func parseErrorDetail(raw []byte) string {
	var envelope struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil || len(envelope.Detail) == 0 {
		return strings.TrimSpace(string(raw))
	}

	var msg string
	if err := json.Unmarshal(envelope.Detail, &msg); err == nil {
		return msg
	}

	var items []struct {
		Msg string `json:"msg"`
		Loc []any  `json:"loc"`
	}
	if err := json.Unmarshal(envelope.Detail, &items); err == nil && len(items) > 0 {
		parts := make([]string, 0, len(items))
		for _, it := range items {
			if len(it.Loc) > 0 {
				parts = append(parts, fmt.Sprintf("%v: %s", it.Loc[len(it.Loc)-1], it.Msg))
				continue
			}
			parts = append(parts, it.Msg)
		}
		return strings.Join(parts, "; ")
	}

	return string(envelope.Detail)
}
