package cli

import (
	"bufio"
	"context"
	"fmt"
	"strings"
)

// printlnFn is a test seam for user-facing output. It is also called from
// the progress goroutine, so replacements must be safe for concurrent use.
var printlnFn = fmt.Println

// execIface is the command surface the REPL dispatches to. App satisfies
// it; tests provide a stub.
type execIface interface {
	isLoggedIn() bool
	Register(ctx context.Context) error
	Login(ctx context.Context) error
	Logout(ctx context.Context) error
	WhoAmI(ctx context.Context) error
	Train(ctx context.Context) error
	Progress(ctx context.Context) error
	Stop(ctx context.Context) error
	Status(ctx context.Context, args []string) error
	Summary(ctx context.Context) error
	Results(ctx context.Context) error
}

// runREPL reads one command per line from reader and dispatches it to a
// until input ends or the user types exit or quit. Command errors are
// already reported to the user by the handlers and are dropped here.
//
//	Not logged in: help, register, login, whoami, exit
//	Logged in:     help, train, progress, stop, status <id>, summary,
//	               results, whoami, logout, exit
func runREPL(ctx context.Context, a execIface, statusFn func() string, reader *bufio.Reader) {
	for {
		printlnFn(fmt.Sprintf("tc %s> ", statusFn()))

		line, err := reader.ReadString('\n')
		if err != nil && line == "" {
			return
		}
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd, args := parts[0], parts[1:]

		switch cmd {
		case "help":
			if a.isLoggedIn() {
				printlnFn("Available commands: train, progress, stop, status <id>, summary, results, whoami, logout, exit")
			} else {
				printlnFn("Available commands: register, login, whoami, exit")
			}

		case "register":
			_ = a.Register(ctx)

		case "login":
			_ = a.Login(ctx)

		case "logout":
			_ = a.Logout(ctx)

		case "whoami":
			_ = a.WhoAmI(ctx)

		case "train":
			_ = a.Train(ctx)

		case "progress":
			_ = a.Progress(ctx)

		case "stop":
			_ = a.Stop(ctx)

		case "status":
			_ = a.Status(ctx, args)

		case "summary":
			_ = a.Summary(ctx)

		case "results":
			_ = a.Results(ctx)

		case "exit", "quit":
			printlnFn("Bye!")
			return

		default:
			printlnFn("Unknown command:", cmd)
		}

		if err != nil {
			return
		}
	}
}
