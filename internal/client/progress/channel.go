package progress

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/go-pkgz/repeater"
	"github.com/go-pkgz/repeater/strategy"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/dmitrijs2005/trainctl/internal/client/models"
	"github.com/dmitrijs2005/trainctl/internal/logging"
)

// Log lines appended to the channel log.
const (
	LineStarted   = "Training started..."
	LineMalformed = "Error parsing progress data"
	LineClosed    = "Training completed or connection closed."
	LineError     = "WebSocket error occurred."
)

const closeGrace = time.Second

// Dialer opens WebSocket connections; *websocket.Dialer satisfies it.
type Dialer interface {
	DialContext(ctx context.Context, urlStr string, requestHeader http.Header) (*websocket.Conn, *http.Response, error)
}

// Repeater retries the initial dial.
type Repeater interface {
	Do(ctx context.Context, fun func() error, errors ...error) (err error)
}

// Options configure a Channel.
type Options struct {
	// BaseURL is the API root; only its scheme and host are used.
	BaseURL *url.URL
	// Path of the stream endpoint, DefaultPath when empty.
	Path string
	// DialAttempts bounds the initial dial, 1 means no retry.
	DialAttempts int
	// DialBackoff is the first delay between dial attempts.
	DialBackoff time.Duration
	// HandshakeTimeout limits each dial attempt.
	HandshakeTimeout time.Duration

	Dialer   Dialer
	Repeater Repeater
}

// Update is delivered to subscribers after every change. Line is set when
// the change appended a log line.
type Update struct {
	HandleID uuid.UUID
	JobID    int64
	State    models.ChannelState
	Percent  int
	Line     string
}

// Snapshot is a copy of the channel's observable state.
type Snapshot struct {
	HandleID uuid.UUID
	JobID    int64
	State    models.ChannelState
	Percent  int
	Log      []string
}

// Channel follows the progress of one job at a time.
type Channel struct {
	base     *url.URL
	path     string
	dialer   Dialer
	repeater Repeater
	log      logging.Logger

	mu      sync.Mutex
	current *Handle
	jobID   int64
	state   models.ChannelState
	percent int
	lines   []string
	subs    []subscriber
	nextSub int
}

type subscriber struct {
	id int
	fn func(Update)
}

// NewChannel builds an idle channel.
func NewChannel(opts Options, log logging.Logger) *Channel {
	dialer := opts.Dialer
	if dialer == nil {
		dialer = &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: opts.HandshakeTimeout,
		}
	}

	rpt := opts.Repeater
	if rpt == nil {
		attempts := opts.DialAttempts
		if attempts < 1 {
			attempts = 1
		}
		rpt = repeater.New(&strategy.Backoff{Repeats: attempts, Duration: opts.DialBackoff, Factor: 2, Jitter: true})
	}

	return &Channel{
		base:     opts.BaseURL,
		path:     opts.Path,
		dialer:   dialer,
		repeater: rpt,
		log:      log.With("component", "progress"),
	}
}

// Open starts following jobID and returns the new stream's handle. Any
// stream that was running is released first, and the log and percent are
// reset. The connection is established in the background; the channel is
// Opening until then.
func (c *Channel) Open(ctx context.Context, jobID int64) *Handle {
	runCtx, cancel := context.WithCancel(ctx)
	h := newHandle(jobID, cancel)
	target := StreamURL(c.base, c.path, jobID)

	c.mu.Lock()
	if prev := c.current; prev != nil {
		c.log.Info(ctx, "superseding progress stream", "job_id", prev.JobID, "handle", prev.ID)
		c.releaseLocked(prev)
	}
	c.current = h
	c.jobID = jobID
	c.percent = 0
	c.lines = nil
	c.setStateLocked(models.ChannelOpening)
	c.appendLocked(LineStarted)
	c.mu.Unlock()

	c.log.Info(ctx, "opening progress stream", "job_id", jobID, "handle", h.ID, "url", target)
	go c.run(runCtx, h, target)
	return h
}

// Close releases the current stream, if any, and waits for its goroutine
// to exit. Messages that arrive afterwards are dropped. It must not be
// called from a subscriber.
func (c *Channel) Close() {
	c.mu.Lock()
	h := c.current
	if h == nil {
		c.mu.Unlock()
		return
	}
	c.log.Info(context.Background(), "closing progress stream", "job_id", h.JobID, "handle", h.ID)
	c.releaseLocked(h)
	c.mu.Unlock()

	<-h.done
}

// Snapshot returns the current state and a copy of the log.
func (c *Channel) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := Snapshot{JobID: c.jobID, State: c.state, Percent: c.percent, Log: append([]string(nil), c.lines...)}
	if c.current != nil {
		s.HandleID = c.current.ID
	}
	return s
}

// Subscribe registers fn for every Update, delivered in order with the
// channel locked; fn must not call back into the channel. The returned
// func unregisters it.
func (c *Channel) Subscribe(fn func(Update)) func() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.nextSub++
	id := c.nextSub
	c.subs = append(c.subs, subscriber{id: id, fn: fn})

	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		for i, sub := range c.subs {
			if sub.id == id {
				c.subs = append(c.subs[:i:i], c.subs[i+1:]...)
				return
			}
		}
	}
}

func (c *Channel) run(ctx context.Context, h *Handle, target string) {
	defer close(h.done)

	conn, err := c.dial(ctx, h, target)
	if err != nil {
		c.mu.Lock()
		if c.current == h {
			if ctx.Err() != nil {
				c.releaseLocked(h)
			} else {
				c.log.Error(ctx, "progress stream dial failed", "job_id", h.JobID, "err", err)
				c.finishLocked(h, LineError, LineClosed)
			}
		}
		c.mu.Unlock()
		return
	}
	defer conn.Close()

	c.mu.Lock()
	if c.current != h || ctx.Err() != nil {
		if c.current == h {
			c.releaseLocked(h)
		}
		c.mu.Unlock()
		c.log.Debug(ctx, "dropping connection of released stream", "handle", h.ID)
		return
	}
	h.conn = conn
	c.setStateLocked(models.ChannelOpen)
	c.mu.Unlock()

	// owner teardown through the Open context
	stop := context.AfterFunc(ctx, func() {
		c.mu.Lock()
		if c.current == h {
			c.releaseLocked(h)
		}
		c.mu.Unlock()
		_ = conn.Close()
	})
	defer stop()

	c.log.Info(ctx, "progress stream open", "job_id", h.JobID, "handle", h.ID)

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			c.onReadError(ctx, h, err)
			return
		}
		if c.onMessage(ctx, h, data) {
			sendClose(conn)
			c.mu.Lock()
			if c.current == h {
				c.finishLocked(h, LineClosed)
			}
			c.mu.Unlock()
			return
		}
	}
}

func (c *Channel) dial(ctx context.Context, h *Handle, target string) (*websocket.Conn, error) {
	var conn *websocket.Conn
	attempt := 0
	err := c.repeater.Do(ctx, func() error {
		attempt++
		c.log.Debug(ctx, "dialing progress stream", "handle", h.ID, "attempt", attempt)

		cn, resp, err := c.dialer.DialContext(ctx, target, nil)
		if err != nil {
			if resp != nil {
				return fmt.Errorf("dial %s: %w (status %d)", target, err, resp.StatusCode)
			}
			return fmt.Errorf("dial %s: %w", target, err)
		}
		conn = cn
		return nil
	})
	if err != nil {
		return nil, err
	}
	if conn == nil {
		return nil, errors.New("dial returned no connection")
	}
	return conn, nil
}

// onMessage applies one message and reports whether it ended the stream.
func (c *Channel) onMessage(ctx context.Context, h *Handle, data []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.current != h {
		return true
	}

	ev, err := models.ParseProgressEvent(data)
	if err != nil {
		c.log.Warn(ctx, "malformed progress message", "job_id", h.JobID, "raw", string(data), "err", err)
		c.appendLocked(LineMalformed)
		return false
	}

	c.log.Debug(ctx, "progress", "job_id", h.JobID, "percent", ev.Percent)
	c.percent = ev.Percent
	c.appendLocked(fmt.Sprintf("Progress: %d%%", ev.Percent))

	if ev.Terminal() {
		c.setStateLocked(models.ChannelClosing)
		return true
	}
	return false
}

func (c *Channel) onReadError(ctx context.Context, h *Handle, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.current != h {
		// released by the owner, the error is our own doing
		return
	}

	// an abrupt EOF surfaces as 1006, which is a transport failure
	var closeErr *websocket.CloseError
	if errors.As(err, &closeErr) && closeErr.Code != websocket.CloseAbnormalClosure {
		c.log.Info(ctx, "progress stream closed by server", "job_id", h.JobID, "code", closeErr.Code)
		c.setStateLocked(models.ChannelClosing)
		c.finishLocked(h, LineClosed)
		return
	}

	c.log.Error(ctx, "progress stream failed", "job_id", h.JobID, "err", err)
	c.finishLocked(h, LineError, LineClosed)
}

// finishLocked ends h after appending lines. h must be current.
func (c *Channel) finishLocked(h *Handle, lines ...string) {
	for _, l := range lines {
		c.appendLocked(l)
	}
	c.current = nil
	h.conn = nil
	h.cancel()
	c.setStateLocked(models.ChannelClosed)
}

// releaseLocked disposes of h on behalf of the owner: no log lines, the
// connection gets a normal close frame and is shut.
func (c *Channel) releaseLocked(h *Handle) {
	if conn := h.conn; conn != nil {
		sendClose(conn)
		_ = conn.Close()
	}
	c.current = nil
	h.conn = nil
	h.cancel()
	c.setStateLocked(models.ChannelClosed)
}

func (c *Channel) setStateLocked(s models.ChannelState) {
	c.state = s
	c.notifyLocked("")
}

func (c *Channel) appendLocked(line string) {
	c.lines = append(c.lines, line)
	c.notifyLocked(line)
}

func (c *Channel) notifyLocked(line string) {
	u := Update{JobID: c.jobID, State: c.state, Percent: c.percent, Line: line}
	if c.current != nil {
		u.HandleID = c.current.ID
	}
	for _, sub := range c.subs {
		sub.fn(u)
	}
}

func sendClose(conn *websocket.Conn) {
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(closeGrace))
}
