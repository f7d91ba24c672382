package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"

	"github.com/moguls753/docbench/cmd/benchmark/cmd"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	err := cmd.RootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		log.WithError(err).Error("benchmark failed")
	}
	os.Exit(cmd.ExitCode(err))
}
