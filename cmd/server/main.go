package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/joho/godotenv"

	"chat-assistant-server/internal/config"
	"chat-assistant-server/internal/handler"
)

func main() {
	// Load environment variables from .env file
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found or could not be loaded: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Wiring
	container, err := config.NewContainer(ctx)
	if err != nil {
		log.Fatalf("Failed to build container: %v", err)
	}
	defer container.Close()

	if dsn := container.Config.GetSentryDSN(); dsn != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:         dsn,
			Environment: container.Config.GetAppEnv(),
		}); err != nil {
			container.Logger.Error("Sentry initialization failed", err)
		} else {
			defer sentry.Flush(2 * time.Second)
		}
	}

	// Handlers
	authHandler := handler.NewAuthHandler(container.GateService, container.Logger)
	chatHandler := handler.NewChatHandler(container.ChatService, container.Logger)
	premiumHandler := handler.NewPremiumHandler(container.PremiumService, container.Logger)
	accountHandler := handler.NewAccountHandler(container.GateService, container.Logger)

	authMiddleware := handler.NewAuthMiddleware(
		container.AuthService,
		container.Logger,
	)

	// Router
	router := handler.NewRouter(
		authHandler,
		chatHandler,
		premiumHandler,
		accountHandler,
		authMiddleware.Middleware,
		handler.RouterOptions{
			Logger:         container.Logger,
			Metrics:        container.Metrics,
			RateLimiter:    handler.NewRateLimiter(container.Config.GetRateLimitPerMinute()),
			AllowedOrigins: container.Config.GetAllowedOrigins(),
			Admin: handler.NewAdminHandler(
				container.Config.GetAdminSecret(),
				container.GateService,
				container.ExpirySweeper,
				container.Logger,
			),
		},
	)

	if err := container.ExpirySweeper.Start(container.Config.GetExpirySweepSchedule()); err != nil {
		container.Logger.Error("Invalid expiry sweep schedule", err, "schedule", container.Config.GetExpirySweepSchedule())
		os.Exit(1)
	}
	defer container.ExpirySweeper.Stop()

	// start server
	server := &http.Server{
		Addr:              ":" + container.Config.GetServerPort(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      90 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	// Run server
	go func() {
		container.Logger.Info("Server listening", "address", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			container.Logger.Error("Server failed to start", err)
			stop()
		}
	}()

	// Graceful shutdown
	<-ctx.Done()
	container.Logger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		container.Logger.Error("Graceful shutdown failed", err)
		_ = server.Close()
	}

	container.Logger.Info("Server exited")
}
