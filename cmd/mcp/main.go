package main

import (
	"context"
	"errors"
	"log"
	"os"

	"legalrag-backend/app"
	"legalrag-backend/config"
	"legalrag-backend/mcpserver"
)

func main() {
	// stdout carries the MCP protocol
	log.SetOutput(os.Stderr)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if err := cfg.Validate(); err != nil && !errors.Is(err, config.ErrMissingAPIKey) {
		log.Fatalf("Invalid configuration: %v", err)
	}

	resources, err := app.New(context.Background(), cfg)
	if err != nil {
		log.Fatalf("Failed to initialize resources: %v", err)
	}
	defer resources.Close()

	s := mcpserver.NewServer("legal-rag", cfg.Version, resources.Retriever, resources.Cache, cfg.DefaultK)
	if err := s.Serve(); err != nil {
		log.Printf("MCP server stopped: %v", err)
	}
}
