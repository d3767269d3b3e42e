package client

import "fmt"

// StatusCodeRange names the class of an HTTP status code.
type StatusCodeRange int

func (sc StatusCodeRange) String() string {
	switch rangeOf(int(sc)) {
	case 1:
		return "informational response"
	case 2:
		return "success"
	case 3:
		return "redirect"
	case 4:
		return "client error"
	case 5:
		return "server error"
	default:
		return fmt.Sprintf("unknown (%d)", int(sc))
	}
}

func rangeOf(code int) int {
	if code < 100 || code >= 600 {
		return 0
	}
	return code / 100
}

func isSuccess(code int) bool {
	return rangeOf(code) == 2
}
