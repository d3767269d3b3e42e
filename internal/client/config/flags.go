package config

import (
	"flag"
	"strings"
	"time"

	"github.com/dmitrijs2005/trainctl/internal/flagx"
)

var knownFlags = []string{"-a", "-s", "-t", "-p", "-r", "-l", "-d"}

// parseFlags overlays cfg with command-line flags:
//
//	-a string   API root URL
//	-s string   session database file
//	-t int      request timeout (seconds)
//	-p string   comma separated privileged subjects
//	-r int      progress stream dial attempts
//	-l string   log file, stderr when empty
//	-d          debug logging
func parseFlags(cfg *Config, args []string) {
	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&cfg.ServerURL, "a", cfg.ServerURL, "API root URL")
	fs.StringVar(&cfg.StorePath, "s", cfg.StorePath, "session database file")
	timeout := fs.Int("t", int(cfg.RequestTimeout.Seconds()), "request timeout (in seconds)")
	privileged := fs.String("p", strings.Join(cfg.PrivilegedSubjects, ","), "comma separated privileged subjects")
	fs.IntVar(&cfg.DialAttempts, "r", cfg.DialAttempts, "progress stream dial attempts")
	fs.StringVar(&cfg.Log.File, "l", cfg.Log.File, "log file")
	fs.BoolVar(&cfg.Log.Debug, "d", cfg.Log.Debug, "debug logging")

	if err := fs.Parse(flagx.FilterArgs(args, knownFlags)); err != nil {
		panic(err)
	}

	cfg.RequestTimeout = time.Duration(*timeout) * time.Second
	cfg.PrivilegedSubjects = flagx.SplitList(*privileged)
}
