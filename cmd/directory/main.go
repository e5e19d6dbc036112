package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	directorycmd "github.com/absentiahq/absentia/internal/cmd/directory"
)

func main() {
	cfg, err := directorycmd.ParseConfig(flag.CommandLine, os.Args[1:])
	if err != nil {
		log.Fatalf("parse flags: %v", err)
	}
	log.SetPrefix("[DIRECTORY] ")
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := directorycmd.Run(ctx, cfg); err != nil {
		log.Fatalf("failed to serve: %v", err)
	}
}
