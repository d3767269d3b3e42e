package cli

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/trainctl/internal/client/client"
	"github.com/dmitrijs2005/trainctl/internal/client/models"
	"github.com/dmitrijs2005/trainctl/internal/client/services"
	"github.com/dmitrijs2005/trainctl/internal/common"
)

// Messages shown for failed logins.
const (
	msgBadCredentials = "Invalid email or password"
	msgUnavailable    = "Server unavailable, try again later"
)

// Register asks for an email and a password twice and creates the account.
// It does not log in.
func (a *App) Register(ctx context.Context) error {
	email, err := getSimpleText(a.reader, "Enter email", a.out)
	if err != nil {
		return err
	}

	password, err := getPassword(a.out, "Enter password: ")
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	confirm, err := getPassword(a.out, "Confirm password: ")
	if err != nil {
		return err
	}
	defer common.WipeByteArray(confirm)

	if err := models.ValidateRegistration(email, string(password), string(confirm)); err != nil {
		return a.report(err)
	}

	if _, err := a.session.Register(ctx, email, string(password)); err != nil {
		if errors.Is(err, client.ErrUnavailable) {
			printlnFn(msgUnavailable)
			return err
		}
		var regErr *services.RegistrationError
		if errors.As(err, &regErr) {
			printlnFn("Error:", regErr.Detail)
			return err
		}
		return a.report(err)
	}

	printlnFn("Registration successful, you can log in now")
	return nil
}

// Login asks for credentials and installs the session on success.
func (a *App) Login(ctx context.Context) error {
	email, err := getSimpleText(a.reader, "Enter email", a.out)
	if err != nil {
		return err
	}

	password, err := getPassword(a.out, "Enter password: ")
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	if err := models.ValidateLogin(email, string(password)); err != nil {
		return a.report(err)
	}

	ok, err := a.session.Login(ctx, email, string(password))
	switch {
	case ok && errors.Is(err, services.ErrNotPersisted):
		printlnFn("Logged in as", a.session.Session().Identity)
		printlnFn("Warning: the session could not be saved and ends with this run")
		return nil
	case errors.Is(err, client.ErrUnavailable):
		printlnFn(msgUnavailable)
		return err
	case errors.Is(err, common.ErrInvalidToken):
		printlnFn("Login failed: the server issued an unreadable token")
		return err
	case err != nil:
		return a.report(err)
	case !ok:
		printlnFn(msgBadCredentials)
		return nil
	}

	printlnFn("Logged in as", a.session.Session().Identity)
	return nil
}

// Logout stops following progress and forgets the session.
func (a *App) Logout(ctx context.Context) error {
	a.progress.Close()
	a.session.Logout(ctx)
	printlnFn("Logged out")
	return nil
}

// WhoAmI prints the current identity and role, and when the session was
// saved locally.
func (a *App) WhoAmI(ctx context.Context) error {
	s := a.session.Session()
	switch {
	case !s.Authenticated:
		printlnFn("Not logged in")
		return nil
	case s.Privileged:
		printlnFn(s.Identity, "(admin)")
	default:
		printlnFn(s.Identity)
	}

	at, ok, err := a.store.Tokens.SavedAt(ctx)
	switch {
	case err != nil:
		a.log.Warn(ctx, "reading session timestamp", "err", err)
	case ok:
		printlnFn("Session saved", formatTime(models.Timestamp{Time: at}))
	default:
		printlnFn("Session not saved, it ends with this run")
	}
	return nil
}
