package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/dmitrijs2005/trainctl/internal/client/client"
	"github.com/dmitrijs2005/trainctl/internal/client/config"
	"github.com/dmitrijs2005/trainctl/internal/client/dataset"
	"github.com/dmitrijs2005/trainctl/internal/client/progress"
	"github.com/dmitrijs2005/trainctl/internal/client/services"
	"github.com/dmitrijs2005/trainctl/internal/client/storage"
	"github.com/dmitrijs2005/trainctl/internal/logging"
)

type App struct {
	config   *config.Config
	log      logging.Logger
	store    *storage.Storage
	api      *client.HTTPClient
	session  *services.SessionStore
	training *services.TrainingService
	progress *progress.Channel
	datasets *dataset.Loader

	reader *bufio.Reader
	out    io.Writer

	unsubscribe func()
	closeOnce   sync.Once
}

// NewApp wires the client for c, reading commands from stdin.
func NewApp(c *config.Config) (*App, error) {
	return newApp(context.Background(), c, logging.New(c.Log), os.Stdin, os.Stdout)
}

func newApp(ctx context.Context, c *config.Config, log logging.Logger, in io.Reader, out io.Writer) (*App, error) {
	api, err := client.NewHTTPClient(c.ServerURL, c.RequestTimeout)
	if err != nil {
		return nil, err
	}

	store, err := storage.Open(ctx, c.StorePath)
	if err != nil {
		log.Error(ctx, "error initializing database", "path", c.StorePath, "err", err)
		return nil, fmt.Errorf("open session store: %w", err)
	}

	session := services.NewSessionStore(api, store.Tokens, c.PrivilegedSubjects, log)
	ch := progress.NewChannel(progress.Options{
		BaseURL:          api.BaseURL(),
		Path:             c.ProgressPath,
		DialAttempts:     c.DialAttempts,
		DialBackoff:      c.DialBackoff,
		HandshakeTimeout: c.RequestTimeout,
	}, log)
	loader := dataset.NewLoader(dataset.S3Options{
		Region:          c.S3.Region,
		Endpoint:        c.S3.Endpoint,
		AccessKeyID:     c.S3.AccessKeyID,
		SecretAccessKey: c.S3.SecretAccessKey,
		UsePathStyle:    c.S3.UsePathStyle,
	}, c.RequestTimeout, log)

	a := &App{
		config:   c,
		log:      log,
		store:    store,
		api:      api,
		session:  session,
		training: services.NewTrainingService(api, session, log),
		progress: ch,
		datasets: loader,
		reader:   bufio.NewReader(in),
		out:      out,
	}
	a.unsubscribe = ch.Subscribe(printProgress)
	return a, nil
}

// Run restores the saved session and serves the REPL until the user quits
// or input ends. Any progress stream is released on the way out.
func (a *App) Run(ctx context.Context) {
	defer a.Close()
	a.Root(ctx)
}

// Close releases the progress stream and the session database. It is safe
// to call more than once.
func (a *App) Close() {
	a.closeOnce.Do(func() {
		a.progress.Close()
		a.unsubscribe()
		if err := a.store.Close(); err != nil {
			a.log.Warn(context.Background(), "closing session store", "err", err)
		}
	})
}

func (a *App) isLoggedIn() bool {
	return a.session.Session().Authenticated
}

func (a *App) getStatus() string {
	s := a.session.Session()
	if !s.Authenticated {
		return ""
	}
	if s.Privileged {
		return fmt.Sprintf("(%s admin)", s.Identity)
	}
	return fmt.Sprintf("(%s)", s.Identity)
}
