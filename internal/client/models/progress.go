package models

import (
	"encoding/json"
	"errors"
	"fmt"
)

// TerminalPercent ends a progress stream once reached or exceeded.
const TerminalPercent = 100

var ErrMalformedProgress = errors.New("malformed progress message")

// ProgressEvent is one server push on the progress channel.
// Values are not assumed to be monotonic.
type ProgressEvent struct {
	Percent int
}

// Terminal reports whether e completes the job.
func (e ProgressEvent) Terminal() bool {
	return e.Percent >= TerminalPercent
}

// ParseProgressEvent decodes {"progress": <int>}. Anything else, including a
// missing or non-integer field, is ErrMalformedProgress.
func ParseProgressEvent(data []byte) (ProgressEvent, error) {
	var raw struct {
		Progress *int `json:"progress"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return ProgressEvent{}, fmt.Errorf("%w: %v", ErrMalformedProgress, err)
	}
	if raw.Progress == nil {
		return ProgressEvent{}, fmt.Errorf("%w: no progress field", ErrMalformedProgress)
	}
	return ProgressEvent{Percent: *raw.Progress}, nil
}

// ChannelState is the lifecycle state of a progress channel.
type ChannelState int

const (
	ChannelClosed ChannelState = iota
	ChannelOpening
	ChannelOpen
	ChannelClosing
)

func (s ChannelState) String() string {
	switch s {
	case ChannelClosed:
		return "Closed"
	case ChannelOpening:
		return "Opening"
	case ChannelOpen:
		return "Open"
	case ChannelClosing:
		return "Closing"
	default:
		return fmt.Sprintf("ChannelState(%d)", int(s))
	}
}
