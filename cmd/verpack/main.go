package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/gcstr/verpack/internal/cli"
)

var (
	execCLI      = cli.Execute
	notifySignal = signal.Notify
)

func main() {
	os.Exit(run())
}

func run() int {
	// Create a context that cancels on SIGINT or SIGTERM
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	notifySignal(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		select {
		case <-sigCh:
			cancel()
		case <-ctx.Done():
		}
	}()

	return execCLI(ctx)
}
