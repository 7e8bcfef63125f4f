package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpadapter "github.com/kirillkom/guideline-retrieval/internal/adapters/http"
	mcpadapter "github.com/kirillkom/guideline-retrieval/internal/adapters/mcp"
	"github.com/kirillkom/guideline-retrieval/internal/bootstrap"
	"github.com/kirillkom/guideline-retrieval/internal/config"
	"github.com/kirillkom/guideline-retrieval/internal/observability/logging"
)

const (
	serviceName = "api"
	version     = "1.0.0"
)

func main() {
	if err := config.LoadDotEnv(); err != nil {
		logging.NewJSONLogger(serviceName, "info").Error("dotenv_load_failed", "error", err.Error())
		os.Exit(1)
	}
	cfg := config.Load()
	logger := logging.NewJSONLogger(serviceName, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(cfg, logger, serviceName)
	if err != nil {
		logger.Error("bootstrap_failed", "error", err.Error())
		os.Exit(1)
	}
	go app.Warm(ctx)

	router := httpadapter.NewRouter(cfg, app.SearchUC, app.Corpus)
	router.SetLogger(logger)
	router.SetMetrics(app.Metrics)
	if cfg.MCPEnabled {
		router.SetMCPHandler(mcpadapter.NewServer(app.SearchUC, version, logger).HTTPHandler())
	}

	server := &http.Server{
		Addr:         ":" + cfg.APIPort,
		Handler:      router.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("api_listening", "addr", server.Addr, "mcp", cfg.MCPEnabled)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("api_server_failed", "error", err.Error())
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("api_shutdown_failed", "error", err.Error())
	}
}
