package fakeapi

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/websocket"

	"github.com/dmitrijs2005/trainctl/internal/client/models"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(*http.Request) bool { return true },
}

// handleProgress replays the script for ?training_id=N. A script entry
// reaching 100 completes the job. Like the real service the stream is not
// authenticated.
func (s *Server) handleProgress(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.URL.Query().Get("training_id"), 10, 64)
	if err != nil {
		writeValidation(w, "training_id", "Input should be a valid integer")
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn(r.Context(), "upgrade failed", "err", err)
		return
	}
	defer conn.Close()

	// the reader notices the client going away
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for _, msg := range s.opts.Script {
		if s.opts.Interval > 0 {
			select {
			case <-time.After(s.opts.Interval):
			case <-gone:
				return
			case <-s.quit:
				return
			}
		}
		if ev, err := models.ParseProgressEvent([]byte(msg)); err == nil && ev.Terminal() {
			s.complete(id)
		}
		if err := conn.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
			return
		}
	}

	if s.opts.CloseAfterScript {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, "done"),
			time.Now().Add(time.Second))
	}

	select {
	case <-gone:
	case <-s.quit:
	}
}
