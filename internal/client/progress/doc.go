// Package progress follows the server-push progress stream of a training job.
//
// A Channel owns at most one live WebSocket at a time. Open starts a new
// stream for a job and supersedes whatever was running before; Close
// releases it. Each stream is represented by a Handle, and every state
// change is applied under the channel lock only if the handle is still the
// current one, so a superseded or disposed stream can never touch state.
//
// Messages are handled strictly in the order they are read:
//
//	{"progress": 50}   -> percent = 50, log "Progress: 50%"
//	{"progress": 100}  -> Closing, close frame sent, Closed
//	anything else      -> log "Error parsing progress data", keep reading
//
// A server close or a transport error ends the stream for good; there is no
// reconnect once a stream was open. Only the initial dial may be retried.
package progress
