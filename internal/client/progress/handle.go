package progress

import (
	"context"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Handle identifies one stream opened by Channel.Open.
type Handle struct {
	ID    uuid.UUID
	JobID int64

	cancel context.CancelFunc
	done   chan struct{}

	// guarded by Channel.mu
	conn *websocket.Conn
}

func newHandle(jobID int64, cancel context.CancelFunc) *Handle {
	return &Handle{
		ID:     uuid.New(),
		JobID:  jobID,
		cancel: cancel,
		done:   make(chan struct{}),
	}
}

// Done is closed once the stream's goroutine has exited and its connection
// is released.
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

// Wait blocks until the stream ends or ctx is done.
func (h *Handle) Wait(ctx context.Context) error {
	select {
	case <-h.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
