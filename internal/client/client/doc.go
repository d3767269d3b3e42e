// Package client is the HTTP transport to the training service.
//
// # Overview
//
// API describes the calls trainctl makes (login, register, job submission and
// lookup, dashboard summary). HTTPClient implements it over net/http and owns
// the outbound Authorization header: SetAuthToken installs "Bearer <token>"
// for every later request, ClearAuthToken removes it.
//
// # Error Handling
//
// Non-2xx replies become *APIError carrying the server's "detail" message.
// APIError unwraps to ErrUnauthorized for 401/403 and to ErrUnavailable for
// 5xx; transport failures and timeouts also wrap ErrUnavailable, so callers
// can tell "server down" from "request rejected" with errors.Is.
package client
