package main

import (
	"log"

	"github.com/akkordio/akkordio/internal/config"
	"github.com/akkordio/akkordio/internal/server"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	srv := server.New(cfg)
	if err := srv.Run(); err != nil {
		log.Fatalf("Server exited: %v", err)
	}
}
