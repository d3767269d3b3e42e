package cli

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/trainctl/internal/client/config"
	"github.com/dmitrijs2005/trainctl/internal/logging"
)

// recorder collects printlnFn output; progress lines arrive from another
// goroutine.
type recorder struct {
	mu    sync.Mutex
	lines []string
}

func captureOutput(t *testing.T) *recorder {
	t.Helper()
	r := &recorder{}
	orig := printlnFn
	printlnFn = func(a ...any) (int, error) {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.lines = append(r.lines, strings.TrimSuffix(fmt.Sprintln(a...), "\n"))
		return 0, nil
	}
	t.Cleanup(func() { printlnFn = orig })
	return r
}

func (r *recorder) Lines() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.lines...)
}

func (r *recorder) Has(line string) bool {
	return slices.Contains(r.Lines(), line)
}

func (r *recorder) waitFor(t *testing.T, line string) {
	t.Helper()
	require.Eventually(t, func() bool { return r.Has(line) }, 5*time.Second, 10*time.Millisecond,
		"never printed %q; got %q", line, r.Lines())
}

// stubPasswords makes getPassword return pws in order.
func stubPasswords(t *testing.T, pws ...string) {
	t.Helper()
	orig := getPassword
	getPassword = func(io.Writer, string) ([]byte, error) {
		if len(pws) == 0 {
			return nil, io.EOF
		}
		pw := pws[0]
		pws = pws[1:]
		return []byte(pw), nil
	}
	t.Cleanup(func() { getPassword = orig })
}

func testConfig(t *testing.T, serverURL, storePath string) *config.Config {
	t.Helper()
	cfg := &config.Config{}
	cfg.LoadDefaults()
	cfg.ServerURL = serverURL
	cfg.RequestTimeout = 5 * time.Second
	cfg.DialBackoff = time.Millisecond
	if storePath == "" {
		storePath = filepath.Join(t.TempDir(), "session.db")
	}
	cfg.StorePath = storePath
	return cfg
}

// newTestApp builds an App reading input from the given lines.
func newTestApp(t *testing.T, cfg *config.Config, input ...string) *App {
	t.Helper()
	in := strings.Join(input, "\n")
	if len(input) > 0 {
		in += "\n"
	}
	a, err := newApp(context.Background(), cfg, logging.NewNop(), strings.NewReader(in), io.Discard)
	require.NoError(t, err)
	t.Cleanup(a.Close)
	return a
}
