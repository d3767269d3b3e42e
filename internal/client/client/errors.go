package client

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/dmitrijs2005/trainctl/internal/common"
)

var (
	ErrUnavailable  = errors.New("server unavailable")
	ErrUnauthorized = errors.New("unauthorized")
)

// APIError is a non-2xx reply from the training service.
type APIError struct {
	StatusCode int
	Detail     string
}

func (e *APIError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("%s (status code = %d)", StatusCodeRange(e.StatusCode), e.StatusCode)
	}
	return fmt.Sprintf("%s (status code = %d)", e.Detail, e.StatusCode)
}

func (e *APIError) Unwrap() error {
	switch {
	case e.StatusCode == http.StatusUnauthorized, e.StatusCode == http.StatusForbidden:
		return ErrUnauthorized
	case e.StatusCode == http.StatusNotFound:
		return common.ErrorNotFound
	case e.StatusCode >= 500:
		return ErrUnavailable
	default:
		return nil
	}
}

// Rejected reports whether the server understood and refused the request.
func (e *APIError) Rejected() bool {
	return e.StatusCode >= 400 && e.StatusCode < 500
}
