package fakeapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-pkgz/rest"
	"github.com/go-pkgz/routegroup"
	"golang.org/x/crypto/bcrypt"

	"github.com/dmitrijs2005/trainctl/internal/auth"
	"github.com/dmitrijs2005/trainctl/internal/client/models"
	"github.com/dmitrijs2005/trainctl/internal/common"
	"github.com/dmitrijs2005/trainctl/internal/logging"
)

// Detail messages of the training service.
const (
	DetailInvalidCredentials = "Invalid email or password"
	DetailEmailTaken         = "Email already registered"
	DetailNoData             = "No CSV file or manual data provided"
	DetailInvalidCSV         = "Invalid CSV file"
	DetailNotFound           = "Training not found"
	DetailNotAuthenticated   = "Not authenticated"
	DetailInvalidToken       = "Could not validate credentials"
)

// zone-less ISO 8601, as the service emits it
const timeLayout = "2006-01-02T15:04:05.999999"

// maxBodyBytes leaves room for a JSON-escaped CSV of dataset.MaxCSVBytes.
const maxBodyBytes = 48 << 20

type user struct {
	id      int64
	email   string
	hash    []byte
	isAdmin bool
}

// Options configure a Server.
type Options struct {
	Secret   []byte
	TokenTTL time.Duration
	// Admins get is_admin on registration.
	Admins []string
	// Script is sent on every progress stream, one text message per entry.
	Script []string
	// Interval between script messages.
	Interval time.Duration
	// CloseAfterScript makes the server send a close frame once the script
	// is exhausted instead of waiting for the client.
	CloseAfterScript bool
	BcryptCost       int
}

// DefaultScript counts to 100 in steps of 25.
var DefaultScript = []string{
	`{"progress": 25}`,
	`{"progress": 50}`,
	`{"progress": 75}`,
	`{"progress": 100}`,
}

// Server is the fake backend. The zero value is not usable; call New.
type Server struct {
	opts   Options
	log    logging.Logger
	router *routegroup.Bundle

	mu         sync.Mutex
	users      map[string]*user
	jobs       map[int64]*models.Job
	nextUserID int64
	nextJobID  int64
	authSeen   []string
	now        func() time.Time

	quit     chan struct{}
	quitOnce sync.Once
}

func New(opts Options, log logging.Logger) *Server {
	if len(opts.Secret) == 0 {
		opts.Secret = []byte("fakeapi-secret")
	}
	if opts.TokenTTL == 0 {
		opts.TokenTTL = time.Hour
	}
	if opts.Script == nil {
		opts.Script = DefaultScript
	}
	if opts.BcryptCost == 0 {
		opts.BcryptCost = bcrypt.MinCost
	}

	s := &Server{
		opts:  opts,
		log:   log.With("component", "fakeapi"),
		users: map[string]*user{},
		jobs:  map[int64]*models.Job{},
		now:   time.Now,
		quit:  make(chan struct{}),
	}
	s.router = s.routes()
	return s
}

func (s *Server) routes() *routegroup.Bundle {
	router := routegroup.New(http.NewServeMux())
	router.Use(
		rest.Recoverer(restLogger{s.log}),
		rest.Ping,
		rest.SizeLimit(maxBodyBytes),
	)

	router.Mount("/auth").Route(func(b *routegroup.Bundle) {
		b.HandleFunc("POST /register", s.handleRegister)
		b.HandleFunc("POST /login", s.handleLogin)
	})

	// bearer token required
	router.Mount("/training").Route(func(b *routegroup.Bundle) {
		b.Use(s.authenticated, rest.NoCache)
		b.HandleFunc("POST /start", s.handleStartTraining)
		b.HandleFunc("GET /{id}", s.handleGetTraining)
	})
	router.Mount("/dashboard").Route(func(b *routegroup.Bundle) {
		b.Use(s.authenticated, rest.NoCache)
		b.HandleFunc("GET /summary", s.handleSummary)
		b.HandleFunc("GET /results", s.handleResults)
	})

	// the stream is not authenticated, as on the real service
	router.HandleFunc("GET /ws/progress", s.handleProgress)
	return router
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Close ends all open progress streams.
func (s *Server) Close() {
	s.quitOnce.Do(func() { close(s.quit) })
}

// AuthHeaders returns every Authorization header received so far.
func (s *Server) AuthHeaders() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.authSeen...)
}

// Job returns a copy of job id.
func (s *Server) Job(id int64) (models.Job, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[id]
	if !ok {
		return models.Job{}, false
	}
	return *j, true
}

// Token mints an access token for subject the way login does.
func (s *Server) Token(subject string, isAdmin bool) (string, error) {
	return auth.GenerateToken(subject, isAdmin, s.opts.Secret, s.opts.TokenTTL)
}

// AddUser registers a user directly.
func (s *Server) AddUser(email, password string) error {
	_, err := s.register(email, password)
	return err
}

var errEmailTaken = errors.New("email taken")

func (s *Server) register(email, password string) (*user, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.opts.BcryptCost)
	if err != nil {
		return nil, err
	}

	key := strings.ToLower(email)

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[key]; ok {
		return nil, errEmailTaken
	}
	s.nextUserID++
	u := &user{id: s.nextUserID, email: email, hash: hash}
	for _, a := range s.opts.Admins {
		if strings.EqualFold(a, email) {
			u.isAdmin = true
		}
	}
	s.users[key] = u
	return u, nil
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var in models.Credentials
	if err := rest.DecodeJSON(r, &in); err != nil {
		writeValidation(w, "body", "JSON decode error")
		return
	}
	if in.Email == "" || in.Password == "" {
		writeValidation(w, "email", "Field required")
		return
	}

	u, err := s.register(in.Email, in.Password)
	if errors.Is(err, errEmailTaken) {
		writeDetail(w, http.StatusBadRequest, DetailEmailTaken)
		return
	}
	if err != nil {
		writeDetail(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.log.Info(r.Context(), "user registered", "email", u.email)
	rest.EncodeJSON(w, http.StatusOK, models.User{ID: u.id, Email: u.email, IsActive: true, IsAdmin: u.isAdmin})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var in models.Credentials
	if err := rest.DecodeJSON(r, &in); err != nil {
		writeValidation(w, "body", "JSON decode error")
		return
	}

	s.mu.Lock()
	u, ok := s.users[strings.ToLower(in.Email)]
	s.mu.Unlock()

	if !ok || bcrypt.CompareHashAndPassword(u.hash, []byte(in.Password)) != nil {
		writeDetail(w, http.StatusUnauthorized, DetailInvalidCredentials)
		return
	}

	token, err := s.Token(u.email, u.isAdmin)
	if err != nil {
		writeDetail(w, http.StatusInternalServerError, err.Error())
		return
	}
	rest.EncodeJSON(w, http.StatusOK, models.TokenResponse{AccessToken: token, TokenType: "bearer"})
}

type userKey struct{}

// authenticated resolves the bearer token to a user and stores it in the
// request context for userFrom.
func (s *Server) authenticated(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get(common.AuthorizationHeaderName)

		s.mu.Lock()
		s.authSeen = append(s.authSeen, header)
		s.mu.Unlock()

		token, ok := strings.CutPrefix(header, common.BearerScheme+" ")
		if !ok || token == "" {
			writeDetail(w, http.StatusUnauthorized, DetailNotAuthenticated)
			return
		}

		claims, err := auth.ParseToken(token, s.opts.Secret)
		if err != nil {
			writeDetail(w, http.StatusUnauthorized, DetailInvalidToken)
			return
		}

		s.mu.Lock()
		u, ok := s.users[strings.ToLower(claims.Subject)]
		s.mu.Unlock()
		if !ok {
			writeDetail(w, http.StatusUnauthorized, DetailInvalidToken)
			return
		}

		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userKey{}, u)))
	})
}

func userFrom(r *http.Request) *user {
	u, _ := r.Context().Value(userKey{}).(*user)
	return u
}

func (s *Server) stamp() models.Timestamp {
	t, _ := time.Parse(timeLayout, s.now().UTC().Format(timeLayout))
	return models.Timestamp{Time: t}
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	rest.EncodeJSON(w, status, rest.JSON{"detail": detail})
}

// writeValidation answers 422 with a one-item validation list.
func writeValidation(w http.ResponseWriter, field, msg string) {
	rest.EncodeJSON(w, http.StatusUnprocessableEntity, rest.JSON{
		"detail": []rest.JSON{{"loc": []string{"body", field}, "msg": msg, "type": "value_error"}},
	})
}

// restLogger routes go-pkgz/rest middleware messages to the server log.
type restLogger struct {
	log logging.Logger
}

func (l restLogger) Logf(format string, args ...any) {
	l.log.Error(context.Background(), fmt.Sprintf(format, args...))
}
