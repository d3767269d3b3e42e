// Command devserver runs the in-memory training service on a local port so
// the CLI can be tried without the real backend.
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dmitrijs2005/trainctl/internal/buildinfo"
	"github.com/dmitrijs2005/trainctl/internal/common"
	"github.com/dmitrijs2005/trainctl/internal/fakeapi"
	"github.com/dmitrijs2005/trainctl/internal/flagx"
	"github.com/dmitrijs2005/trainctl/internal/logging"
)

func main() {
	buildinfo.PrintBuildData(os.Stdout)

	addr := flag.String("a", "127.0.0.1:8000", "listen address")
	secret := flag.String("k", "", "JWT signing key, random when empty")
	interval := flag.Duration("i", time.Second, "delay between progress messages")
	admins := flag.String("admins", "", "comma separated admin emails")
	debug := flag.Bool("d", false, "debug logging")
	flag.Parse()

	logger := logging.New(logging.Options{Debug: *debug})

	if *secret == "" {
		key, err := common.MakeRandHexString(32)
		if err != nil {
			logger.Error(context.Background(), "generating signing key", "err", err)
			os.Exit(1)
		}
		*secret = key
	}
	srv := fakeapi.New(fakeapi.Options{
		Secret:   []byte(*secret),
		Admins:   flagx.SplitList(*admins),
		Interval: *interval,
	}, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	initSignalHandler(cancel)

	hs := &http.Server{Addr: *addr, Handler: srv, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		srv.Close()
		shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
		defer done()
		_ = hs.Shutdown(shutdownCtx)
	}()

	logger.Info(ctx, "Starting dev server...", "addr", *addr)
	if err := hs.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error(ctx, err.Error())
		os.Exit(1)
	}
}

func initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}
