package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	appauth "github.com/bryanwahyu/research-camera/internal/application/auth"
	apphistory "github.com/bryanwahyu/research-camera/internal/application/history"
	"github.com/bryanwahyu/research-camera/internal/application/orchestrator"
	"github.com/bryanwahyu/research-camera/internal/cli"
	"github.com/bryanwahyu/research-camera/internal/config"
	"github.com/bryanwahyu/research-camera/internal/infra/httpclient"
	"github.com/bryanwahyu/research-camera/internal/infra/security"
	"github.com/bryanwahyu/research-camera/internal/infra/storage"
	"github.com/bryanwahyu/research-camera/internal/infra/thumbnail"
	"github.com/bryanwahyu/research-camera/internal/logger"
	"github.com/bryanwahyu/research-camera/internal/middleware"
	"github.com/bryanwahyu/research-camera/internal/ui"
)

func main() {
	os.Exit(run())
}

func run() int {
	path := "config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		path = v
	}
	cfg, err := config.Load(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load error: %v\n", err)
		return 1
	}

	// log ke stderr supaya output markdown tetap bersih
	log := logger.New(os.Stderr, "camera", cfg.Log.Level)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	store, closeStore, err := storage.Open(ctx, cfg, log)
	if err != nil {
		log.Error().Err(err).Str("driver", cfg.Storage.Driver).Msg("open storage")
		return 1
	}
	defer func() {
		if err := closeStore(); err != nil {
			log.Warn().Err(err).Msg("close storage")
		}
	}()

	display, err := ui.NewDisplay(os.Stdout)
	if err != nil {
		log.Error().Err(err).Msg("init renderer")
		return 1
	}

	auth := appauth.NewService(store, security.NewArgon2Hasher(), cfg.Client.AuthLatency, log)
	hist := apphistory.NewService(store, thumbnail.New(), log)
	api := httpclient.New(httpclient.Config{BaseURL: cfg.Client.ServerURL})

	app := &cli.App{
		Orch:    orchestrator.New(api, auth, hist, log),
		History: hist,
		Display: display,
		Log:     log,
		In:      os.Stdin,
		Out:     os.Stdout,
		Checks: map[string]middleware.HealthChecker{
			"storage": middleware.CheckFunc(func(ctx context.Context) error {
				return storage.Ping(ctx, store)
			}),
			"server": middleware.CheckFunc(api.Health),
		},
	}

	if err := app.Run(ctx, os.Args[1:]); err != nil {
		if !errors.Is(err, cli.ErrUsage) {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
		}
		return 1
	}
	return 0
}
