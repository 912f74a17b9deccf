package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/cirruslabs/breakpoint/internal/command"
)

func main() {
	// Set up a signal-interruptible context
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := command.NewRootCmd().ExecuteContext(ctx); err != nil {
		cancel()
		log.Fatal(err)
	}
}
