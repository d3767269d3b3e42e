package config

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/trainctl/internal/logging"
)

func TestParseFlags(t *testing.T) {
	tests := []struct {
		expected    *Config
		name        string
		args        []string
		expectPanic bool
	}{
		{
			name: "all flags",
			args: []string{"-a", "https://api.example.com", "-s", "/tmp/s.db", "-t", "5", "-p", "Root@x.io, ops@x.io", "-r", "3", "-l", "/tmp/t.log", "-d"},
			expected: &Config{
				ServerURL:          "https://api.example.com",
				StorePath:          "/tmp/s.db",
				RequestTimeout:     5 * time.Second,
				PrivilegedSubjects: []string{"Root@x.io", "ops@x.io"},
				DialAttempts:       3,
				Log:                logging.Options{File: "/tmp/t.log", Debug: true},
			},
		},
		{
			name:     "unrelated flags ignored",
			args:     []string{"-c", "cfg.json", "-x", "1", "-t", "7"},
			expected: &Config{RequestTimeout: 7 * time.Second},
		},
		{name: "bad timeout", args: []string{"-t", "abc"}, expectPanic: true},
		{name: "bad attempts", args: []string{"-r", "many"}, expectPanic: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{}

			if tt.expectPanic {
				require.Panics(t, func() { parseFlags(cfg, tt.args) })
				return
			}

			require.NotPanics(t, func() { parseFlags(cfg, tt.args) })
			assert.Empty(t, cmp.Diff(tt.expected, cfg))
		})
	}
}
