package config

import (
	"os"
	"time"

	"github.com/dmitrijs2005/trainctl/internal/logging"
)

// DefaultPrivilegedSubjects are the administrator accounts of the reference
// deployment.
var DefaultPrivilegedSubjects = []string{
	"dasriyanka858@gmail.com",
	"durjoychatterjee59@gmail.com",
}

// Config holds runtime settings of the trainctl CLI.
type Config struct {
	// ServerURL is the API root, e.g. http://127.0.0.1:8000.
	ServerURL string
	// ProgressPath is the WebSocket endpoint for training progress.
	ProgressPath string
	// StorePath is the SQLite file holding the persisted session.
	StorePath      string
	RequestTimeout time.Duration

	// PrivilegedSubjects unlock the admin view client-side. The server
	// enforces privileges on its own.
	PrivilegedSubjects []string

	DialAttempts int
	DialBackoff  time.Duration

	Log logging.Options
	S3  S3
}

// S3 configures the dataset loader for s3:// locations. Empty fields fall
// back to the default AWS credential chain.
type S3 struct {
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	UsePathStyle    bool
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerURL = "http://127.0.0.1:8000"
	c.ProgressPath = "/ws/progress"
	c.StorePath = "session.db"
	c.RequestTimeout = 10 * time.Second
	c.PrivilegedSubjects = append([]string(nil), DefaultPrivilegedSubjects...)
	c.DialAttempts = 1
	c.DialBackoff = time.Second
	c.Log = logging.Options{MaxSizeMB: 10, MaxBackups: 3, MaxAgeDays: 28}
}

// LoadConfig builds a Config from defaults, then the JSON file named by -c,
// then command-line flags. Later sources take precedence. Invalid input
// panics.
func LoadConfig() *Config {
	return Load(os.Args[1:])
}

// Load is LoadConfig over an explicit argument list.
func Load(args []string) *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg, args)
	parseFlags(cfg, args)
	return cfg
}
