// Package services contains the application services of the trainctl
// client: the session store that owns the bearer credential, and the
// training service that submits and inspects jobs.
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/dmitrijs2005/trainctl/internal/auth"
	"github.com/dmitrijs2005/trainctl/internal/client/client"
	"github.com/dmitrijs2005/trainctl/internal/client/models"
	"github.com/dmitrijs2005/trainctl/internal/logging"
)

// TokenStore persists the credential between runs.
type TokenStore interface {
	Load(ctx context.Context) (string, error)
	Save(ctx context.Context, token string) error
	Delete(ctx context.Context) error
}

// ErrNotPersisted accompanies a successful login whose credential could not
// be stored. The session works until the process exits.
var ErrNotPersisted = errors.New("session not saved")

// RegistrationError is returned when the server refuses a registration.
// Detail is the server's message, suitable for showing to the user.
type RegistrationError struct {
	Detail string
	Err    error
}

func (e *RegistrationError) Error() string {
	return "registration failed: " + e.Detail
}

func (e *RegistrationError) Unwrap() error {
	return e.Err
}

// SessionStore is the single owner of the bearer credential. The credential,
// the derived session, the persisted copy and the API client's Authorization
// header always change together under one lock.
type SessionStore struct {
	api        client.API
	tokens     TokenStore
	privileged map[string]struct{}
	log        logging.Logger

	mu      sync.Mutex
	token   string
	session models.Session
	subs    []subscriber
	nextSub int
}

type subscriber struct {
	id int
	fn func(models.Session)
}

// NewSessionStore builds an empty store. privilegedSubjects is the
// case-insensitive allow-list of subjects treated as privileged.
func NewSessionStore(api client.API, tokens TokenStore, privilegedSubjects []string, log logging.Logger) *SessionStore {
	allow := make(map[string]struct{}, len(privilegedSubjects))
	for _, s := range privilegedSubjects {
		if s = strings.ToLower(strings.TrimSpace(s)); s != "" {
			allow[s] = struct{}{}
		}
	}
	return &SessionStore{
		api:        api,
		tokens:     tokens,
		privileged: allow,
		log:        log.With("component", "session"),
	}
}

// Derive computes the session for token. Any decode failure yields the
// anonymous session together with the error.
func (s *SessionStore) Derive(token string) (models.Session, error) {
	sub, err := auth.Subject(token)
	if err != nil {
		return models.Session{}, err
	}
	_, privileged := s.privileged[strings.ToLower(sub)]
	return models.Session{Identity: sub, Authenticated: true, Privileged: privileged}, nil
}

// Initialize restores the persisted credential. An undecodable credential is
// removed from storage. It never fails: problems are logged and leave the
// store anonymous.
func (s *SessionStore) Initialize(ctx context.Context) models.Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	token, err := s.tokens.Load(ctx)
	if err != nil {
		s.log.Warn(ctx, "failed to read stored credential", "err", err)
		s.resetLocked()
		return s.session
	}
	if token == "" {
		s.resetLocked()
		return s.session
	}

	session, err := s.Derive(token)
	if err != nil {
		s.log.Warn(ctx, "discarding undecodable stored credential", "err", err)
		if err := s.tokens.Delete(ctx); err != nil {
			s.log.Error(ctx, "failed to delete stored credential", "err", err)
		}
		s.resetLocked()
		return s.session
	}

	s.api.SetAuthToken(token)
	s.setLocked(token, session)
	s.log.Info(ctx, "session restored", "identity", session.Identity, "privileged", session.Privileged)
	return s.session
}

// Login exchanges credentials for a token and installs it.
//
// It returns (false, nil) when the server rejects the credentials, and a
// non-nil error wrapping client.ErrUnavailable when the server cannot be
// reached, or common.ErrInvalidToken when the issued token cannot be decoded.
// On any failure the current session is left as it was. A login that
// succeeded but could not be stored returns (true, ErrNotPersisted).
func (s *SessionStore) Login(ctx context.Context, email, password string) (bool, error) {
	resp, err := s.api.Login(ctx, email, password)
	if err != nil {
		var apiErr *client.APIError
		if errors.As(err, &apiErr) && apiErr.Rejected() {
			s.log.Info(ctx, "login rejected", "email", email, "status", apiErr.StatusCode)
			return false, nil
		}
		s.log.Warn(ctx, "login failed", "email", email, "err", err)
		return false, fmt.Errorf("login: %w", err)
	}

	session, err := s.Derive(resp.AccessToken)
	if err != nil {
		s.log.Error(ctx, "server issued an undecodable token", "err", err)
		return false, fmt.Errorf("login: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var saveErr error
	if err := s.tokens.Save(ctx, resp.AccessToken); err != nil {
		s.log.Error(ctx, "failed to persist credential", "err", err)
		saveErr = fmt.Errorf("%w: %w", ErrNotPersisted, err)
	}
	s.api.SetAuthToken(resp.AccessToken)
	s.setLocked(resp.AccessToken, session)
	s.log.Info(ctx, "logged in", "identity", session.Identity, "privileged", session.Privileged)
	return true, saveErr
}

// Register creates an account. It does not log the new user in.
func (s *SessionStore) Register(ctx context.Context, email, password string) (*models.User, error) {
	user, err := s.api.Register(ctx, email, password)
	if err != nil {
		detail := err.Error()
		var apiErr *client.APIError
		if errors.As(err, &apiErr) && apiErr.Detail != "" {
			detail = apiErr.Detail
		}
		s.log.Info(ctx, "registration refused", "email", email, "detail", detail)
		return nil, &RegistrationError{Detail: detail, Err: err}
	}
	s.log.Info(ctx, "registered", "email", user.Email, "id", user.ID)
	return user, nil
}

// Logout forgets the credential everywhere. It is safe without a session.
func (s *SessionStore) Logout(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.tokens.Delete(ctx); err != nil {
		s.log.Error(ctx, "failed to delete stored credential", "err", err)
	}
	identity := s.session.Identity
	s.resetLocked()
	if identity != "" {
		s.log.Info(ctx, "logged out", "identity", identity)
	}
}

// Session returns the current session.
func (s *SessionStore) Session() models.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session
}

// Token returns the current credential, "" when anonymous.
func (s *SessionStore) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token
}

// Subscribe registers fn to be called with every new session, in
// registration order. fn runs with the store locked and must not call back
// into the store. The returned func unregisters fn.
func (s *SessionStore) Subscribe(fn func(models.Session)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextSub++
	id := s.nextSub
	s.subs = append(s.subs, subscriber{id: id, fn: fn})

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		for i, sub := range s.subs {
			if sub.id == id {
				s.subs = append(s.subs[:i:i], s.subs[i+1:]...)
				return
			}
		}
	}
}

func (s *SessionStore) resetLocked() {
	s.api.ClearAuthToken()
	s.setLocked("", models.Session{})
}

func (s *SessionStore) setLocked(token string, session models.Session) {
	s.token = token
	s.session = session
	for _, sub := range s.subs {
		sub.fn(session)
	}
}
