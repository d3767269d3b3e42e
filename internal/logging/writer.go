package logging

import (
	"io"
	"os"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Options selects where diagnostic logs go. An empty File means stderr.
type Options struct {
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
	Debug      bool
}

// NewWriter returns a rotating file writer when opts.File is set and
// os.Stderr otherwise. The REPL owns stdout, so logs never go there.
func NewWriter(opts Options) io.Writer {
	if opts.File == "" {
		return os.Stderr
	}
	return &lumberjack.Logger{
		Filename:   opts.File,
		MaxSize:    opts.MaxSizeMB,
		MaxBackups: opts.MaxBackups,
		MaxAge:     opts.MaxAgeDays,
		Compress:   opts.Compress,
	}
}
