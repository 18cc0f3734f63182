package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/oggyb/devmatch/internal/app"
	"github.com/oggyb/devmatch/internal/auth"
	"github.com/oggyb/devmatch/internal/cache"
	"github.com/oggyb/devmatch/internal/compat"
	"github.com/oggyb/devmatch/internal/config"
	"github.com/oggyb/devmatch/internal/db"
	"github.com/oggyb/devmatch/internal/gateway"
	"github.com/oggyb/devmatch/internal/logger"
	"github.com/oggyb/devmatch/internal/metrics"
	"github.com/oggyb/devmatch/internal/repository"
	"github.com/oggyb/devmatch/internal/server"
	"github.com/oggyb/devmatch/internal/service/chat"
	"github.com/oggyb/devmatch/internal/service/connection"
)

func main() {
	cfg := config.New()

	// Init logger (global singleton)
	logger.InitFromConfig(cfg)
	log := logger.L() // slog.Logger pointer

	// Init DB
	database, err := db.NewDB(cfg)
	if err != nil {
		log.Error("failed to init db", "err", err)
		os.Exit(1)
	}
	sqlDB, err := database.DB()
	if err != nil {
		log.Error("failed to get sql db", "err", err)
		os.Exit(1)
	}

	// Init Redis
	redisCache := cache.NewRedisCache(cfg)
	if err := redisCache.Ping(context.Background()); err != nil {
		log.Error("failed to connect to redis", "err", err)
		os.Exit(1)
	}
	defer redisCache.Close()

	authn, err := auth.NewAuthenticator(cfg.JWT.Secret, cfg.JWT.Issuer, cfg.JWT.AccessTTL, nil)
	if err != nil {
		log.Error("failed to init authenticator", "err", err)
		os.Exit(1)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg)

	users := repository.NewUserRepository(database)
	matches := repository.NewMatchRepository(database)
	messages := repository.NewMessageRepository(database)

	gw := gateway.New(gateway.ConfigFrom(cfg), gateway.Deps{
		Log:      logger.Named(log, "gateway"),
		Metrics:  m,
		Oracle:   matches,
		Store:    messages,
		Verifier: authn,
	})

	var scorer compat.Scorer = compat.Unavailable
	if cfg.Compat.Endpoint != "" || cfg.Compat.APIKey != "" {
		scorer = compat.NewOpenAIScorer(compat.OpenAIConfig{
			Endpoint:   cfg.Compat.Endpoint,
			APIKey:     cfg.Compat.APIKey,
			APIVersion: cfg.Compat.APIVersion,
			Model:      cfg.Compat.Model,
		})
	} else {
		log.Warn("compatibility scoring disabled: no endpoint configured")
	}
	worker := compat.NewWorker(compat.WorkerConfig{
		Workers:   cfg.Compat.Workers,
		QueueSize: cfg.Compat.QueueSize,
		Timeout:   cfg.Compat.Timeout,
	}, scorer, users, matches, gw.Hub, logger.Named(log, "compat"), m)

	// Inject shared dependencies into app context
	appCtx := app.New(database, redisCache, log, gw.Hub, worker)

	if cfg.App.ENV == "development" {
		if err := db.SeedTestData(database); err != nil {
			log.Error("failed to seed", "err", err)
		}
	}

	grpcServer := server.NewGRPCServer(authn, logger.Named(log, "grpc"),
		chat.NewRegistrar(appCtx),
		connection.NewRegistrar(appCtx, connection.WithSwipeLimit(cfg.Swipe.Limit, cfg.Swipe.Window)),
	)
	httpHandler := server.NewHTTPRouter(cfg, server.HTTPDeps{
		WS:      gw.Handler,
		Metrics: promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}),
		Checks: map[string]server.HealthFunc{
			"db":    sqlDB.PingContext,
			"redis": redisCache.Ping,
		},
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		gw.Hub.Run(ctx)
		return nil
	})
	g.Go(func() error { return worker.Run(ctx) })
	g.Go(func() error {
		log.Info("starting gRPC server", "addr", cfg.GRPC.Host+":"+cfg.GRPC.Port)
		return server.StartGRPCServer(ctx, cfg, grpcServer)
	})
	g.Go(func() error {
		log.Info("starting HTTP server", "addr", cfg.HTTP.Host+":"+cfg.HTTP.Port)
		return server.StartHTTPServer(ctx, cfg, httpHandler)
	})

	if err := g.Wait(); err != nil {
		log.Error("server stopped", "err", err)
	}
	// hub shutdown closed every send channel; wait for the pumps to exit
	gw.Handler.Wait()
	log.Info("shutdown complete")
}
