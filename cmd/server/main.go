package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"mealmail/internal/app"
	"mealmail/internal/config"
	"mealmail/internal/handler"
	"mealmail/internal/router"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	if err := godotenv.Load(); err != nil {
		log.Printf("no .env file loaded: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, app.Options{})
	if err != nil {
		return fmt.Errorf("failed to initialize pipeline: %w", err)
	}
	defer func() {
		if err := a.Close(); err != nil {
			log.Printf("shutdown: %v", err)
		}
	}()

	// Initialize handlers
	webhookH := handler.NewWebhookHandler(a.Orders)
	orderH := handler.NewOrderHandler(a.Orders)
	traceH := handler.NewTraceHandler(a.Trace)
	healthH := handler.NewHealthHandler(nil)
	if a.DB != nil {
		healthH = handler.NewHealthHandler(a.DB)
	}

	// Setup router
	r := router.Setup(router.Options{
		CORSOrigins:       cfg.Server.CORSOrigins,
		WebhookSigningKey: cfg.Webhook.SigningKey,
		WebhookMaxAge:     time.Duration(cfg.Webhook.MaxAgeSecs) * time.Second,
	}, webhookH, orderH, traceH, healthH)

	srv := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("Server starting on %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
	case <-ctx.Done():
		log.Printf("Server shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	return nil
}
