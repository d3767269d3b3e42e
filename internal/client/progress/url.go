package progress

import (
	"net/url"
	"strconv"
)

// DefaultPath is where the training service serves progress streams.
const DefaultPath = "/ws/progress"

// StreamURL builds the stream address for jobID on the host of base.
// The scheme is wss when base is https and ws otherwise; any path prefix
// of base is not carried over.
func StreamURL(base *url.URL, streamPath string, jobID int64) string {
	if streamPath == "" {
		streamPath = DefaultPath
	}
	scheme := "ws"
	if base.Scheme == "https" {
		scheme = "wss"
	}
	u := url.URL{
		Scheme:   scheme,
		Host:     base.Host,
		Path:     streamPath,
		RawQuery: url.Values{"training_id": {strconv.FormatInt(jobID, 10)}}.Encode(),
	}
	return u.String()
}
