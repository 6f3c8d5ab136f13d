// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/taibuivan/popgate/internal/managerapi"
	"github.com/taibuivan/popgate/internal/platform/apperr"
	"github.com/taibuivan/popgate/internal/platform/config"
	"github.com/taibuivan/popgate/internal/platform/constants"
	"github.com/taibuivan/popgate/internal/platform/migration"
	pgstore "github.com/taibuivan/popgate/internal/platform/postgres"
	redisstore "github.com/taibuivan/popgate/internal/platform/redis"
	"github.com/taibuivan/popgate/internal/session"
)

// app holds what every subcommand needs once the root command has run.
type app struct {
	cfg     *config.ClientConfig
	log     *slog.Logger
	kv      session.KV
	client  *managerapi.Client
	closers []func()
}

func (a *app) open(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := config.LoadClient()
	if err != nil {
		return err
	}
	a.cfg = cfg

	level := slog.LevelWarn
	if cfg.Debug {
		level = slog.LevelDebug
	}
	a.log = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})).
		With(slog.String("app", constants.AppName))

	kv, err := a.openKV(ctx)
	if err != nil {
		return err
	}
	a.kv = kv

	a.client = managerapi.NewClient(session.NewStore(kv), endpointFor(cfg), a.log,
		managerapi.WithSessionExpiredHandler(func(context.Context, error) {
			fmt.Fprintln(os.Stderr, apperr.MessageSessionExpired)
		}),
	)
	return nil
}

// openKV connects the configured session backend.
func (a *app) openKV(ctx context.Context) (session.KV, error) {
	switch a.cfg.SessionBackend {
	case config.SessionBackendMemory:
		return session.NewMemoryKV(), nil

	case config.SessionBackendRedis:
		client, err := redisstore.NewClient(ctx, a.cfg.RedisURL, a.log)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func() { _ = client.Close() })
		return session.NewRedisKV(client, a.cfg.SessionNamespace), nil

	case config.SessionBackendPostgres:
		if err := migration.RunUp(a.cfg.DatabaseURL, a.cfg.MigrationPath, a.log); err != nil {
			return nil, err
		}
		pool, err := pgstore.NewPool(ctx, a.cfg.DatabaseURL, a.log)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, pool.Close)
		return session.NewPostgresKV(pool, a.cfg.SessionNamespace), nil

	default:
		return session.NewFileKV(a.cfg.SessionFile), nil
	}
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

// endpointFor routes calls through the gateway when one is configured,
// the same way the dashboard does from the browser.
func endpointFor(cfg *config.ClientConfig) managerapi.Endpoint {
	endpoint := managerapi.Endpoint{
		Runtime:    managerapi.RuntimeServer,
		APIBaseURL: cfg.APIBase(),
	}
	if cfg.GatewayOrigin != "" {
		endpoint.Runtime = managerapi.RuntimeBrowser
		endpoint.Origin = cfg.GatewayOrigin
	}
	return endpoint
}
