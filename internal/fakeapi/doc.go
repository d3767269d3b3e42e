// Package fakeapi is an in-memory stand-in for the training service. It
// speaks the same HTTP and WebSocket protocol as the real backend and is
// used by integration tests and by cmd/devserver for local trials.
//
// Users live in memory with bcrypt password hashes, access tokens are HS256
// JWTs, and every training job replays a configurable progress script over
// /ws/progress.
package fakeapi
