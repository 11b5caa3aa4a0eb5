package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/modelgate-platform/modelgate/internal/api"
	"github.com/modelgate-platform/modelgate/internal/audit"
	"github.com/modelgate-platform/modelgate/internal/chat"
	"github.com/modelgate-platform/modelgate/internal/config"
	"github.com/modelgate-platform/modelgate/internal/database"
	"github.com/modelgate-platform/modelgate/internal/entitlements"
	"github.com/modelgate-platform/modelgate/internal/events"
	"github.com/modelgate-platform/modelgate/internal/gate"
	"github.com/modelgate-platform/modelgate/internal/middleware"
	"github.com/modelgate-platform/modelgate/internal/quota"
	iredis "github.com/modelgate-platform/modelgate/internal/redis"
	"github.com/modelgate-platform/modelgate/internal/server"
	"github.com/modelgate-platform/modelgate/internal/session"
	"github.com/modelgate-platform/modelgate/internal/tiers"
	"github.com/modelgate-platform/modelgate/internal/users"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("loading config", "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	setupLogger(cfg.Log)

	ctx := context.Background()

	// PostgreSQL
	pool, err := database.NewPostgresPool(ctx, cfg.DB)
	if err != nil {
		slog.Error("connecting to postgres", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	if cfg.DB.MigrationsPath != "" {
		if err := database.RunMigrations(cfg.DB.DSN(), cfg.DB.MigrationsPath); err != nil {
			slog.Error("running migrations", "error", err)
			os.Exit(1)
		}
	}

	// Redis
	redisClient, err := iredis.NewClient(ctx, cfg.Redis)
	if err != nil {
		slog.Error("connecting to redis", "error", err)
		os.Exit(1)
	}
	defer redisClient.Close()

	// NATS is optional; without it denials and registry changes go unaudited
	// but enforcement is unaffected.
	var eventsClient *events.Client
	if cfg.NATS.URL != "" {
		eventsClient, err = events.NewClient(ctx, cfg.NATS)
		if err != nil {
			slog.Error("connecting to NATS", "error", err)
			os.Exit(1)
		}
		defer eventsClient.Close()
	} else {
		slog.Warn("NATS not configured, events and audit trail disabled")
	}

	var tierPublisher tiers.EventPublisher
	var denialPublisher chat.DenialPublisher
	if eventsClient != nil {
		publisher := events.NewPublisher(eventsClient.JetStream())
		tierPublisher = publisher
		denialPublisher = publisher
	}

	// Subscription-type registry
	tierRepo := tiers.NewRepository(pool)
	tierSvc := tiers.NewService(tierRepo, tierPublisher)
	tierHandler := tiers.NewHandler(tierSvc)

	// Entitlements and quota
	resolver := entitlements.NewResolver(tierRepo)
	tracker := quota.NewTracker(quota.NewRepository(pool))
	quotaHandler := quota.NewHandler(tracker, resolver)

	// Users
	userRepo := users.NewRepository(pool)
	userSvc := users.NewService(userRepo, tierRepo)
	userHandler := users.NewHandler(userSvc)

	// Chats
	chatRepo := chat.NewRepository(pool)
	chatSvc := chat.NewService(chatRepo, resolver, tracker, denialPublisher)
	chatHandler := chat.NewHandler(chatSvc)

	// Audit trail
	auditRepo := audit.NewRepository(pool)
	auditHandler := audit.NewHandler(auditRepo)
	if eventsClient != nil {
		consumer := audit.NewConsumer(auditRepo, events.NewConsumerManager(eventsClient.JetStream()))
		go func() {
			if err := consumer.Start(ctx); err != nil {
				slog.Error("audit consumer stopped", "error", err)
			}
		}()
	}

	// Session
	jwtManager := session.NewJWTManager(cfg.JWT.Secret, cfg.JWT.Expiry)

	// Admin rate limiter
	adminLimiter := middleware.NewRateLimiter(redisClient, cfg.Admin.RateLimitMaxReqs, cfg.Admin.RateLimitWindowSec)

	// Router
	router := api.NewRouter(pool, eventsClient, api.RouterConfig{
		CORSAllowedOrigins: cfg.CORS.AllowedOrigins,
		StaticDir:          cfg.Static.Dir,
		AdminRateLimiter:   adminLimiter.Middleware,
	}, api.HandlerSet{
		PublicListTiers: tierHandler.PublicList,
		AdminListTiers:  tierHandler.AdminList,
		GetTier:         tierHandler.Get,
		CreateTier:      tierHandler.Create,
		UpdateTier:      tierHandler.Update,
		DeleteTier:      tierHandler.Delete,

		CreateChat:   chatHandler.Create,
		ListChats:    chatHandler.List,
		GetChat:      chatHandler.Get,
		ListMessages: chatHandler.ListMessages,
		SendMessage:  chatHandler.SendMessage,

		MyQuota: quotaHandler.MyQuota,

		ListUsers:  userHandler.List,
		GetUser:    userHandler.Get,
		AssignTier: userHandler.AssignTier,

		ListAuditLogs: auditHandler.List,

		SessionMiddleware: session.Middleware(jwtManager, userRepo),
		AdminOnly:         gate.AdminOnly,
	})

	// Start server
	srv := server.New(cfg.Server, router)
	if err := srv.Start(); err != nil {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
}

func setupLogger(cfg config.LogConfig) {
	var handler slog.Handler

	opts := &slog.HandlerOptions{}
	switch cfg.Level {
	case "debug":
		opts.Level = slog.LevelDebug
	case "info":
		opts.Level = slog.LevelInfo
	case "warn":
		opts.Level = slog.LevelWarn
	case "error":
		opts.Level = slog.LevelError
	default:
		opts.Level = slog.LevelInfo
	}

	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	slog.SetDefault(slog.New(handler))
}
