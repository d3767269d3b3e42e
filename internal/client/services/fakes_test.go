package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/trainctl/internal/auth"
	"github.com/dmitrijs2005/trainctl/internal/client/models"
)

// fakeAPI implements client.API for service tests.
type fakeAPI struct {
	mu sync.Mutex

	LoginRet *models.TokenResponse
	LoginErr error

	RegisterRet *models.User
	RegisterErr error

	StartRet *models.Job
	StartErr error

	GetRet *models.Job
	GetErr error

	SummaryRet *models.Summary
	ResultsRet []models.Job
	CallErr    error

	AuthToken  string
	AuthSet    bool
	LoginCalls int
	LastStart  models.TrainingRequest
	LastGetID  int64
	StartCalls int
}

func (f *fakeAPI) Login(_ context.Context, email, password string) (*models.TokenResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.LoginCalls++
	return f.LoginRet, f.LoginErr
}

func (f *fakeAPI) Register(_ context.Context, email, password string) (*models.User, error) {
	return f.RegisterRet, f.RegisterErr
}

func (f *fakeAPI) StartTraining(_ context.Context, req models.TrainingRequest) (*models.Job, error) {
	f.StartCalls++
	f.LastStart = req
	return f.StartRet, f.StartErr
}

func (f *fakeAPI) GetTraining(_ context.Context, id int64) (*models.Job, error) {
	f.LastGetID = id
	return f.GetRet, f.GetErr
}

func (f *fakeAPI) Summary(context.Context) (*models.Summary, error) {
	return f.SummaryRet, f.CallErr
}

func (f *fakeAPI) Results(context.Context) ([]models.Job, error) {
	return f.ResultsRet, f.CallErr
}

func (f *fakeAPI) SetAuthToken(token string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.AuthToken, f.AuthSet = token, true
}

func (f *fakeAPI) ClearAuthToken() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.AuthToken, f.AuthSet = "", false
}

// memTokens is an in-memory TokenStore with injectable failures.
type memTokens struct {
	token     string
	LoadErr   error
	SaveErr   error
	DeleteErr error
	Deletes   int
}

func (m *memTokens) Load(context.Context) (string, error) {
	return m.token, m.LoadErr
}

func (m *memTokens) Save(_ context.Context, token string) error {
	if m.SaveErr != nil {
		return m.SaveErr
	}
	m.token = token
	return nil
}

func (m *memTokens) Delete(context.Context) error {
	m.Deletes++
	if m.DeleteErr != nil {
		return m.DeleteErr
	}
	m.token = ""
	return nil
}

func mintToken(t *testing.T, subject string) string {
	t.Helper()
	tok, err := auth.GenerateToken(subject, false, []byte("test-secret"), time.Hour)
	require.NoError(t, err)
	return tok
}

type staticSession models.Session

func (s staticSession) Session() models.Session { return models.Session(s) }
