// Command orchestra is the CLI entry point (spec.md §6).
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/andywolf/orchestra/internal/cli"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		log.Printf("received signal: %v", sig)
		cancel()
	}()

	os.Exit(cli.Execute(ctx))
}
