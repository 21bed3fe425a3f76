package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	internalhttp "github.com/renthus/renthus-admin/internal/api/http"
	"github.com/renthus/renthus-admin/internal/auth"
	"github.com/renthus/renthus-admin/internal/billing"
	"github.com/renthus/renthus-admin/internal/companies"
	"github.com/renthus/renthus-admin/internal/db"
	"github.com/renthus/renthus-admin/internal/orders"
	"github.com/renthus/renthus-admin/internal/printing"
	"github.com/renthus/renthus-admin/internal/whatsapp"
	"github.com/renthus/renthus-admin/internal/workspace"
)

var AppVersion string

func main() {
	InitConfig()

	slog.Info("Renthus Admin API", "version", AppVersion)

	if err := db.RunMigrations(config.Database.Url, config.Database.Schema); err != nil {
		slog.Error("Migrations failed", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()
	pool, err := db.InitDB(ctx, config.Database.Url, config.Database.Schema)
	if err != nil {
		slog.Error("Database connection failed", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	escrow, err := printing.NewEscrow(config.Printing.EncryptionKey)
	if err != nil {
		slog.Error("Escrow key invalid", "error", err)
		os.Exit(1)
	}

	services := &internalhttp.Services{
		Auth:       auth.NewService(pool, config.Auth),
		AuthConfig: config.Auth,
		Gate:       workspace.NewGate(pool, config.Auth.Secret),
		Companies:  companies.NewService(pool),
		Orders:     orders.NewService(pool),
		Whatsapp:   whatsapp.NewService(pool),
		Billing:    billing.NewService(pool),
		Agents:     printing.NewAgentStore(pool),
		Tokens:     printing.NewTokenStore(pool, escrow),
		Jobs:       printing.NewJobStore(pool),
		Printers:   printing.NewPrinterStore(pool),
		Bundler:    printing.NewBundler(config.Printing.DistDir),
		Printing:   config.Printing,
		Http:       config.Http,
	}

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	if len(config.Http.AllowedOrigins) > 0 {
		engine.Use(cors.New(cors.Config{
			AllowOrigins:     config.Http.AllowedOrigins,
			AllowMethods:     []string{"PUT", "PATCH", "GET", "POST", "DELETE"},
			AllowHeaders:     []string{"Origin", "Content-Length", "Content-Type", "Authorization"},
			ExposeHeaders:    []string{"Content-Length", "Content-Disposition"},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}
	engine.Use(gin.Recovery())
	internalhttp.SetupRoute(engine, services)

	httpServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", config.Http.Port),
		Handler: engine,
	}

	errChan := make(chan error, 1)
	go func() {
		slog.Info("Starting HTTP server", "address", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errChan:
		slog.Error("Server error", "error", err)
	case sig := <-sigChan:
		slog.Info("Received shutdown signal", "signal", sig)
	}

	slog.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	} else {
		slog.Info("HTTP server stopped")
	}
}
