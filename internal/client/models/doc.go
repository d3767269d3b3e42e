// Package models defines the client-side data types of trainctl: the derived
// session, users and credentials, training jobs, progress events and the
// input validation rules applied before anything is sent to the server.
package models
