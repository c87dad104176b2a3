package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"legalrag-backend/app"
	"legalrag-backend/config"
	"legalrag-backend/handlers"

	"github.com/gin-gonic/gin"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		if !errors.Is(err, config.ErrMissingAPIKey) {
			log.Fatalf("Invalid configuration: %v", err)
		}
		log.Printf("Warning: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load artifacts once; every request shares them read-only
	log.Println("Loading RAG artifacts...")
	resources, err := app.New(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to initialize resources: %v", err)
	}
	defer func() {
		if err := resources.Close(); err != nil {
			log.Printf("Warning: Failed to release resources: %v", err)
		}
	}()

	retrievalHandler := handlers.NewRetrievalHandler(resources.Retriever, resources.Answers, cfg.DefaultK)

	// Setup Gin router
	r := gin.Default()
	r.Use(handlers.RequestID())
	retrievalHandler.RegisterRoutes(r)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}

	go func() {
		log.Printf("Server starting on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server:", err)
		}
	}()

	<-ctx.Done()
	log.Println("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Warning: Server shutdown failed: %v", err)
	}
}
