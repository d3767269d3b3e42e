package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/dmitrijs2005/trainctl/internal/buildinfo"
	"github.com/dmitrijs2005/trainctl/internal/client/cli"
	"github.com/dmitrijs2005/trainctl/internal/client/config"
)

func main() {

	buildinfo.PrintBuildData(os.Stdout)

	ctx := context.Background()
	cfg := config.LoadConfig()
	app, err := cli.NewApp(cfg)

	if err != nil {
		log.Fatalf("%v", err)
		return
	}

	// the REPL blocks on stdin, so an interrupt releases resources here
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigs
		app.Close()
		os.Exit(130)
	}()

	app.Run(ctx)

}
