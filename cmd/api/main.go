package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"

	"github.com/marketrun/backend/api/routes"
	"github.com/marketrun/backend/internal/agents"
	"github.com/marketrun/backend/internal/markets"
	"github.com/marketrun/backend/internal/notifications"
	"github.com/marketrun/backend/internal/users"
	"github.com/marketrun/backend/pkg/config"
	"github.com/marketrun/backend/pkg/db"
	"github.com/marketrun/backend/pkg/env"
	"github.com/marketrun/backend/pkg/logger"
	"github.com/marketrun/backend/pkg/pubsub"
	"github.com/marketrun/backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	var notifier agents.AssignmentNotifier
	if cfg.PubSub.Enabled() {
		psClient, err := pubsub.NewClient(context.Background(), cfg.PubSub, logg)
		if err != nil {
			logg.Error(context.Background(), "failed to bootstrap pubsub", err)
			os.Exit(1)
		}
		defer func() {
			if err := psClient.Close(); err != nil {
				logg.Error(context.Background(), "error closing pubsub", err)
			}
		}()

		publisher, err := notifications.NewPublisher(psClient, logg)
		if err != nil {
			logg.Error(context.Background(), "failed to create assignment publisher", err)
			os.Exit(1)
		}
		notifier = publisher
	} else {
		logg.Warn(context.Background(), "pubsub disabled, assignment events will not be published")
	}

	usersService, err := users.NewService(users.ServiceParams{
		Repo:   users.NewRepository(dbClient.DB()),
		Tx:     dbClient,
		Logger: logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create users service", err)
		os.Exit(1)
	}

	agentsRepo := agents.NewRepository(dbClient.DB())
	agentsService, err := agents.NewService(agents.ServiceParams{
		Repo:     agentsRepo,
		Tx:       dbClient,
		Logger:   logg,
		Notifier: notifier,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create agents service", err)
		os.Exit(1)
	}

	marketsRepo := markets.NewRepository(dbClient.DB())
	resolver, err := markets.NewResolver(markets.ResolverParams{
		Repo:   marketsRepo,
		Cache:  redisClient,
		TTL:    cfg.Markets.CoordinateCacheTTL,
		Logger: logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create market resolver", err)
		os.Exit(1)
	}

	matcher, err := agents.NewMatcher(agents.MatcherParams{
		Repo:    agentsRepo,
		Markets: resolver,
		Logger:  logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create matcher", err)
		os.Exit(1)
	}

	addr := ":" + env.Get("PORT", cfg.App.Port)
	id := env.Get("DYNO", "local")
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": id,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.Deps{
			Config:  cfg,
			Logger:  logg,
			DB:      dbClient,
			Redis:   redisClient,
			Users:   usersService,
			Agents:  agentsService,
			Matcher: matcher,
			Markets: marketsRepo,
		}),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
