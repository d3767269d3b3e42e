package models

// Session is derived from the current credential and nothing else.
// The zero value is the anonymous session.
type Session struct {
	// Identity is the credential subject (an email address); empty when anonymous.
	Identity string

	// Authenticated is true iff a decodable credential with a subject is installed.
	Authenticated bool

	// Privileged is true iff the lower-cased subject is on the privileged allow-list.
	// It only gates what the client offers; the server enforces access on its own.
	Privileged bool
}

// IsZero reports whether s is the anonymous session.
func (s Session) IsZero() bool {
	return s == Session{}
}
