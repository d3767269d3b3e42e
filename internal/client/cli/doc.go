// Package cli provides the interactive trainctl command-line client.
//
// It wires configuration, the local session database, the API client, the
// session and training services and the progress channel behind a small
// REPL. Typical flow: log in, submit a training job, watch its progress
// lines arrive, look up results.
//
// The REPL is started via App.Run(ctx), which blocks until the user exits.
// See App and runREPL for details.
package cli
