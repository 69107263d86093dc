package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"

	appanalysis "github.com/bryanwahyu/research-camera/internal/application/analysis"
	"github.com/bryanwahyu/research-camera/internal/config"
	aiopenai "github.com/bryanwahyu/research-camera/internal/infra/ai/openai"
	"github.com/bryanwahyu/research-camera/internal/infra/httpserver"
	"github.com/bryanwahyu/research-camera/internal/logger"
	"github.com/bryanwahyu/research-camera/internal/middleware"
)

func main() {
	// path config.yaml
	path := "config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		path = v
	}

	cfg, err := config.Load(path)
	if err != nil {
		logger.NewLogger("api", "info").Fatal().Err(err).Msg("config load error")
	}
	log := logger.NewLogger("api", cfg.Log.Level)

	// API_KEY wajib, tanpa itu server tidak bisa apa-apa
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	client := aiopenai.NewClient(aiopenai.Options{
		APIKey:      cfg.AI.APIKey,
		BaseURL:     cfg.AI.BaseURL,
		Model:       cfg.AI.Model,
		Temperature: cfg.AI.Temperature,
	})

	metrics := middleware.NewMetrics()
	svc := appanalysis.NewService(client, metrics, log)

	mux := chi.NewRouter()
	mux.Mount("/", httpserver.NewRouter(svc, httpserver.Options{
		MaxUploadBytes: cfg.MaxUploadBytes(),
		AllowedOrigins: cfg.Server.AllowedOrigins,
		Metrics:        metrics,
		Log:            log,
		Checkers: map[string]middleware.HealthChecker{
			"ai_provider": middleware.CheckFunc(client.Ping),
		},
	}))

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", addr).Str("model", cfg.AI.Model).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	// graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
	log.Info().Msg("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("shutdown error")
	}
}
