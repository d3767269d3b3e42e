package fakeapi

import (
	"net/http/httptest"
	"testing"

	"github.com/dmitrijs2005/trainctl/internal/logging"
)

// TestServer is a Server listening on a local httptest address.
type TestServer struct {
	*Server
	URL string
}

// NewTestServer starts a Server for the duration of t.
func NewTestServer(t testing.TB, opts Options) *TestServer {
	t.Helper()
	s := New(opts, logging.NewNop())
	hs := httptest.NewServer(s)
	t.Cleanup(func() {
		s.Close()
		hs.Close()
	})
	return &TestServer{Server: s, URL: hs.URL}
}
