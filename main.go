package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"

	"hawkeye/internal/config"
	"hawkeye/internal/logging"
	"hawkeye/internal/supervisor"
)

func main() {
	os.Exit(run())
}

func run() int {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: hawkeye <config.json>")
		return supervisor.ExitConfigError
	}

	runID := uuid.NewString()
	log := logging.New(runID)

	cfg, err := config.Load(os.Args[1])
	if err != nil {
		log.WithError(err).Error("failed to load configuration")
		return supervisor.ExitConfigError
	}
	log.WithField("config", cfg.String()).Info("configuration loaded")

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	sup := supervisor.New(cfg, runID, ":3030", log)
	return sup.Run(ctx)
}
