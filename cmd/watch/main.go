// Package main starts a headless observer for a list sync server.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	watchcmd "github.com/louisbranch/sharelist/internal/cmd/watch"
)

func main() {
	cfg, err := watchcmd.ParseConfig(flag.CommandLine, os.Args[1:])
	if err != nil {
		log.Fatalf("parse flags: %v", err)
	}
	log.SetPrefix("[WATCH] ")
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := watchcmd.Run(ctx, cfg); err != nil {
		log.Fatalf("failed to watch: %v", err)
	}
}
