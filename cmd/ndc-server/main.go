package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"ndcscan/internal/app"
	"ndcscan/internal/config"
	"ndcscan/internal/logging"
)

func main() {
	cfg, err := config.Load()
	must(err)

	logger, err := logging.New(cfg)
	must(err)
	defer func() { _ = logger.Sync() }()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	must(app.RunServer(ctx, cfg, logger))
}

func must(err error) {
	if err == nil {
		return
	}
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}
