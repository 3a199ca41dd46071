package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/famlio/budget-api/internal/api"
	"github.com/famlio/budget-api/internal/core/service"
	mongodb "github.com/famlio/budget-api/internal/infrastructure/db/mongo"
	redisdb "github.com/famlio/budget-api/internal/infrastructure/db/redis"
	"github.com/famlio/budget-api/internal/infrastructure/identity"
	"github.com/famlio/budget-api/internal/infrastructure/notify"
	"github.com/famlio/budget-api/internal/pkg/config"
	"github.com/famlio/budget-api/pkg/logger"
)

func main() {
	cfg := config.Load()

	log := logger.Init(logger.Options{
		Level:  cfg.LogLevel,
		Pretty: cfg.Env == "development",
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --- Stores ---
	mongoClient, db, err := mongodb.Connect(ctx, mongodb.Config{
		URI:      cfg.Mongo.URI,
		Database: cfg.Mongo.Database,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("mongo connection failed")
	}
	defer func() { _ = mongoClient.Disconnect(context.Background()) }()

	if err := mongodb.EnsureIndexes(ctx, db); err != nil {
		log.Fatal().Err(err).Msg("index creation failed")
	}

	rdb, err := redisdb.Connect(ctx, redisdb.Config{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("redis connection failed")
	}
	defer func() { _ = rdb.Close() }()

	// --- Adapters ---
	accountRepo := mongodb.NewAccountRepository(db)
	membershipRepo := mongodb.NewMembershipRepository(db)
	invitationRepo := mongodb.NewInvitationRepository(db)
	profileRepo := mongodb.NewProfileRepository(db)

	cache := redisdb.NewSessionCache(rdb, cfg.Resolver.InviteCheckInterval)
	idp := identity.NewJWTProvider(cfg.JWTSecret)

	dispatcher := notify.NewDispatcher(cfg.Notify.Workers, notify.NewWebhookSender(cfg.Notify.WebhookURL), log)
	dispatcher.Start(ctx)

	// --- Services ---
	directory := service.NewDirectoryService(accountRepo, membershipRepo, profileRepo, log)
	invitations := service.NewInvitationService(invitationRepo, accountRepo, membershipRepo, profileRepo, dispatcher, log)
	resolver := service.NewResolverService(idp, directory, invitations, profileRepo, membershipRepo, cache, cfg.Resolver.SnapshotTTL, log)

	// --- Background orphan sweep ---
	go runOrphanSweep(ctx, invitations, cfg.Resolver.OrphanSweepInterval)

	// --- HTTP ---
	e := api.NewRouter(api.Deps{
		Mongo:       db,
		Redis:       rdb,
		Identity:    idp,
		Resolver:    resolver,
		Invitations: invitations,
		Cache:       cache,
		Log:         log,
	})

	go func() {
		if err := e.Start(":" + cfg.Port); err != nil {
			log.Info().Err(err).Msg("http server stopped")
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
		os.Exit(1)
	}
}

// runOrphanSweep periodically garbage-collects invitations whose account no
// longer exists. Each run is independent; an interrupted sweep resumes on
// the next tick.
func runOrphanSweep(ctx context.Context, invitations *service.InvitationService, interval time.Duration) {
	if interval <= 0 {
		interval = time.Hour
	}
	log := logger.Get()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sweepCtx, cancel := context.WithTimeout(ctx, 5*time.Minute)
			if _, err := invitations.ReconcileOrphans(sweepCtx); err != nil {
				log.Warn().Err(err).Msg("orphan sweep failed")
			}
			cancel()
		}
	}
}
