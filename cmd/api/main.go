package main

import (
	"context"
	"log"

	"resume-sync/internal/bootstrap"
	"resume-sync/internal/shared/config"
	"resume-sync/internal/shared/server"
)

func main() {
	cfg := config.Load()

	app, err := bootstrap.Build(cfg)
	if err != nil {
		log.Fatalf("bootstrap error: %v", err)
	}
	defer app.Close(context.Background())

	addr := server.Addr(cfg.Port)
	log.Printf("Starting sync server on %s", addr)

	if err := app.Router.Run(addr); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
