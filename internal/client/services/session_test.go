package services

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/trainctl/internal/auth"
	"github.com/dmitrijs2005/trainctl/internal/client/client"
	"github.com/dmitrijs2005/trainctl/internal/client/models"
	"github.com/dmitrijs2005/trainctl/internal/client/storage"
	"github.com/dmitrijs2005/trainctl/internal/common"
	"github.com/dmitrijs2005/trainctl/internal/logging"
)

var admins = []string{"dasriyanka858@gmail.com", "durjoychatterjee59@gmail.com"}

func newStore(api *fakeAPI, tokens TokenStore) *SessionStore {
	return NewSessionStore(api, tokens, admins, logging.NewNop())
}

func TestInitialize_RestoresPrivilegedSession(t *testing.T) {
	tok := mintToken(t, "Dasriyanka858@Gmail.com")
	api := &fakeAPI{}
	s := newStore(api, &memTokens{token: tok})

	got := s.Initialize(context.Background())

	assert.Equal(t, models.Session{Identity: "Dasriyanka858@Gmail.com", Authenticated: true, Privileged: true}, got)
	assert.Equal(t, tok, s.Token())
	assert.True(t, api.AuthSet)
	assert.Equal(t, tok, api.AuthToken)
}

func TestInitialize_RegularUser(t *testing.T) {
	tok := mintToken(t, "user@x.io")
	s := newStore(&fakeAPI{}, &memTokens{token: tok})

	got := s.Initialize(context.Background())
	assert.Equal(t, models.Session{Identity: "user@x.io", Authenticated: true}, got)
}

func TestInitialize_IsAdminClaimIsIgnored(t *testing.T) {
	tok, err := auth.GenerateToken("user@x.io", true, []byte("k"), time.Hour)
	require.NoError(t, err)
	s := newStore(&fakeAPI{}, &memTokens{token: tok})

	assert.False(t, s.Initialize(context.Background()).Privileged)
}

func TestInitialize_UndecodableTokenIsDiscarded(t *testing.T) {
	api := &fakeAPI{AuthSet: true, AuthToken: "stale"}
	tokens := &memTokens{token: "not-a-jwt"}
	s := newStore(api, tokens)

	got := s.Initialize(context.Background())

	assert.True(t, got.IsZero())
	assert.Empty(t, s.Token())
	assert.Empty(t, tokens.token)
	assert.Equal(t, 1, tokens.Deletes)
	assert.False(t, api.AuthSet)
}

func TestInitialize_DeleteFailureStillAnonymous(t *testing.T) {
	tokens := &memTokens{token: "x.y", DeleteErr: errors.New("locked")}
	s := newStore(&fakeAPI{}, tokens)

	assert.True(t, s.Initialize(context.Background()).IsZero())
}

func TestInitialize_NothingStored(t *testing.T) {
	api := &fakeAPI{}
	tokens := &memTokens{}
	s := newStore(api, tokens)

	assert.True(t, s.Initialize(context.Background()).IsZero())
	assert.False(t, api.AuthSet)
	assert.Zero(t, tokens.Deletes)
}

func TestInitialize_LoadErrorDegradesToAnonymous(t *testing.T) {
	s := newStore(&fakeAPI{}, &memTokens{LoadErr: errors.New("disk I/O error")})

	assert.NotPanics(t, func() {
		assert.True(t, s.Initialize(context.Background()).IsZero())
	})
}

func TestLogin_Success(t *testing.T) {
	tok := mintToken(t, "durjoychatterjee59@gmail.com")
	api := &fakeAPI{LoginRet: &models.TokenResponse{AccessToken: tok, TokenType: "bearer"}}
	tokens := &memTokens{}
	s := newStore(api, tokens)

	var seen []models.Session
	s.Subscribe(func(sess models.Session) { seen = append(seen, sess) })

	ok, err := s.Login(context.Background(), "durjoychatterjee59@gmail.com", "Secret#12")
	require.NoError(t, err)
	require.True(t, ok)

	want := models.Session{Identity: "durjoychatterjee59@gmail.com", Authenticated: true, Privileged: true}
	assert.Equal(t, want, s.Session())
	assert.Equal(t, tok, tokens.token)
	assert.Equal(t, tok, api.AuthToken)
	assert.Equal(t, []models.Session{want}, seen)
}

func TestLogin_RejectedKeepsPriorSession(t *testing.T) {
	prior := mintToken(t, "first@x.io")
	api := &fakeAPI{}
	tokens := &memTokens{token: prior}
	s := newStore(api, tokens)
	before := s.Initialize(context.Background())

	api.LoginErr = &client.APIError{StatusCode: 401, Detail: "Invalid email or password"}
	ok, err := s.Login(context.Background(), "first@x.io", "wrong")

	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, before, s.Session())
	assert.Equal(t, prior, s.Token())
	assert.Equal(t, prior, tokens.token)
	assert.Equal(t, prior, api.AuthToken)
}

func TestLogin_RejectedWhileAnonymous(t *testing.T) {
	api := &fakeAPI{LoginErr: &client.APIError{StatusCode: 401, Detail: "Invalid email or password"}}
	s := newStore(api, &memTokens{})

	ok, err := s.Login(context.Background(), "a@b.c", "nope")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.True(t, s.Session().IsZero())
	assert.False(t, api.AuthSet)
}

func TestLogin_UnavailableIsDistinct(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{name: "transport", err: fmt.Errorf("%w: connection refused", client.ErrUnavailable)},
		{name: "5xx", err: &client.APIError{StatusCode: 503}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newStore(&fakeAPI{LoginErr: tt.err}, &memTokens{})

			ok, err := s.Login(context.Background(), "a@b.c", "pw")
			assert.False(t, ok)
			require.ErrorIs(t, err, client.ErrUnavailable)
			assert.True(t, s.Session().IsZero())
		})
	}
}

func TestLogin_UndecodableTokenLeavesSessionUntouched(t *testing.T) {
	prior := mintToken(t, "first@x.io")
	api := &fakeAPI{}
	tokens := &memTokens{token: prior}
	s := newStore(api, tokens)
	before := s.Initialize(context.Background())

	api.LoginRet = &models.TokenResponse{AccessToken: "garbage", TokenType: "bearer"}
	ok, err := s.Login(context.Background(), "first@x.io", "pw")

	assert.False(t, ok)
	require.ErrorIs(t, err, common.ErrInvalidToken)
	assert.Equal(t, before, s.Session())
	assert.Equal(t, prior, tokens.token)
	assert.Equal(t, prior, api.AuthToken)
}

func TestLogin_PersistFailureStillLogsIn(t *testing.T) {
	tok := mintToken(t, "u@x.io")
	api := &fakeAPI{LoginRet: &models.TokenResponse{AccessToken: tok}}
	readOnly := errors.New("read-only")
	s := newStore(api, &memTokens{SaveErr: readOnly})

	ok, err := s.Login(context.Background(), "u@x.io", "pw")
	require.ErrorIs(t, err, ErrNotPersisted)
	require.ErrorIs(t, err, readOnly)
	assert.True(t, ok)
	assert.True(t, s.Session().Authenticated)
	assert.Equal(t, tok, api.AuthToken)
}

func TestLogin_ReplacesPreviousCredential(t *testing.T) {
	first := mintToken(t, "dasriyanka858@gmail.com")
	second := mintToken(t, "user@x.io")
	api := &fakeAPI{LoginRet: &models.TokenResponse{AccessToken: first}}
	tokens := &memTokens{}
	s := newStore(api, tokens)

	ok, err := s.Login(context.Background(), "dasriyanka858@gmail.com", "pw")
	require.NoError(t, err)
	require.True(t, ok)
	require.True(t, s.Session().Privileged)

	api.LoginRet = &models.TokenResponse{AccessToken: second}
	ok, err = s.Login(context.Background(), "user@x.io", "pw")
	require.NoError(t, err)
	require.True(t, ok)

	assert.Equal(t, models.Session{Identity: "user@x.io", Authenticated: true}, s.Session())
	assert.Equal(t, second, tokens.token)
	assert.Equal(t, second, api.AuthToken)
}

func TestLogout(t *testing.T) {
	tok := mintToken(t, "u@x.io")
	api := &fakeAPI{}
	tokens := &memTokens{token: tok}
	s := newStore(api, tokens)
	s.Initialize(context.Background())

	var seen []models.Session
	s.Subscribe(func(sess models.Session) { seen = append(seen, sess) })

	s.Logout(context.Background())

	assert.True(t, s.Session().IsZero())
	assert.Empty(t, s.Token())
	assert.Empty(t, tokens.token)
	assert.False(t, api.AuthSet)
	assert.Equal(t, []models.Session{{}}, seen)
}

func TestLogout_WithoutSessionAndWithStorageFailure(t *testing.T) {
	s := newStore(&fakeAPI{}, &memTokens{DeleteErr: errors.New("locked")})

	assert.NotPanics(t, func() {
		s.Logout(context.Background())
		s.Logout(context.Background())
	})
	assert.True(t, s.Session().IsZero())
}

func TestRegister(t *testing.T) {
	api := &fakeAPI{RegisterRet: &models.User{ID: 3, Email: "new@x.io", IsActive: true}}
	s := newStore(api, &memTokens{})

	user, err := s.Register(context.Background(), "new@x.io", "Secret#12")
	require.NoError(t, err)
	assert.Equal(t, int64(3), user.ID)
	assert.True(t, s.Session().IsZero(), "registration must not log in")
}

func TestRegister_SurfacesServerDetail(t *testing.T) {
	apiErr := &client.APIError{StatusCode: 400, Detail: "Email already registered"}
	s := newStore(&fakeAPI{RegisterErr: apiErr}, &memTokens{})

	_, err := s.Register(context.Background(), "dup@x.io", "Secret#12")

	var regErr *RegistrationError
	require.ErrorAs(t, err, &regErr)
	assert.Equal(t, "Email already registered", regErr.Detail)
	assert.Equal(t, "registration failed: Email already registered", err.Error())
	require.ErrorIs(t, err, apiErr)
}

func TestRegister_TransportFailure(t *testing.T) {
	s := newStore(&fakeAPI{RegisterErr: fmt.Errorf("%w: dial tcp", client.ErrUnavailable)}, &memTokens{})

	_, err := s.Register(context.Background(), "a@x.io", "Secret#12")

	var regErr *RegistrationError
	require.ErrorAs(t, err, &regErr)
	require.ErrorIs(t, err, client.ErrUnavailable)
	assert.Contains(t, regErr.Detail, "server unavailable")
}

func TestSubscribe_OrderAndUnsubscribe(t *testing.T) {
	tok := mintToken(t, "u@x.io")
	api := &fakeAPI{LoginRet: &models.TokenResponse{AccessToken: tok}}
	s := newStore(api, &memTokens{})

	var order []string
	unsubA := s.Subscribe(func(models.Session) { order = append(order, "a") })
	s.Subscribe(func(models.Session) { order = append(order, "b") })

	_, err := s.Login(context.Background(), "u@x.io", "pw")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, order)

	unsubA()
	unsubA()
	s.Logout(context.Background())
	assert.Equal(t, []string{"a", "b", "b"}, order)
}

func TestSessionSurvivesRestart(t *testing.T) {
	ctx := context.Background()
	dsn := filepath.Join(t.TempDir(), "session.db")

	st, err := storage.Open(ctx, dsn)
	require.NoError(t, err)

	tok := mintToken(t, "DasRiyanka858@gmail.com")
	api := &fakeAPI{LoginRet: &models.TokenResponse{AccessToken: tok}}
	ok, err := newStore(api, st.Tokens).Login(ctx, "dasriyanka858@gmail.com", "pw")
	require.NoError(t, err)
	require.True(t, ok)
	require.NoError(t, st.Close())

	st, err = storage.Open(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	restartedAPI := &fakeAPI{}
	restarted := newStore(restartedAPI, st.Tokens)
	got := restarted.Initialize(ctx)

	assert.Equal(t, models.Session{Identity: "DasRiyanka858@gmail.com", Authenticated: true, Privileged: true}, got)
	assert.Equal(t, tok, restartedAPI.AuthToken)

	restarted.Logout(ctx)
	stored, err := st.Tokens.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, stored)
}
