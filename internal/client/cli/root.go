package cli

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/trainctl/internal/client/progress"
)

// printProgress echoes every progress log line as it is appended.
func printProgress(u progress.Update) {
	if u.Line != "" {
		printlnFn(fmt.Sprintf("[job %d] %s", u.JobID, u.Line))
	}
}

// Root restores the saved session and runs the REPL.
func (a *App) Root(ctx context.Context) {
	printlnFn("Welcome to trainctl (type 'help' for commands)")

	if s := a.session.Initialize(ctx); s.Authenticated {
		printlnFn("Restored session for", s.Identity)
	}

	runREPL(ctx, a, a.getStatus, a.reader)
}
