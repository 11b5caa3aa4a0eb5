// Command seed bootstraps a fresh database: the default subscription
// types and an admin account. It is idempotent and safe to re-run.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/modelgate-platform/modelgate/internal/config"
	"github.com/modelgate-platform/modelgate/internal/database"
	"github.com/modelgate-platform/modelgate/internal/session"
	"github.com/modelgate-platform/modelgate/internal/tiers"
	"github.com/modelgate-platform/modelgate/internal/users"
)

func main() {
	adminEmail := flag.String("admin-email", "admin@modelgate.local", "admin account email")
	adminPassword := flag.String("admin-password", "", "admin account password (required on first run)")
	printToken := flag.Bool("print-token", false, "print a bearer token for the admin account")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("loading config", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()

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

	tierRepo := tiers.NewRepository(pool)
	userRepo := users.NewRepository(pool)
	userSvc := users.NewService(userRepo, tierRepo)

	if err := seedTiers(ctx, tierRepo); err != nil {
		slog.Error("seeding subscription types", "error", err)
		os.Exit(1)
	}

	admin, err := seedAdmin(ctx, userRepo, userSvc, *adminEmail, *adminPassword)
	if err != nil {
		slog.Error("seeding admin account", "error", err)
		os.Exit(1)
	}

	if *printToken {
		jwtManager := session.NewJWTManager(cfg.JWT.Secret, cfg.JWT.Expiry)
		token, err := jwtManager.Generate(admin.ID.String(), admin.Email)
		if err != nil {
			slog.Error("generating admin token", "error", err)
			os.Exit(1)
		}
		fmt.Println(token)
	}
}

func defaultTiers() []*tiers.SubscriptionType {
	return []*tiers.SubscriptionType{
		{
			ID:                "free",
			Name:              "Free",
			MaxMessagesPerDay: 20,
			AvailableModelIDs: []string{"gpt-4o-mini"},
			Active:            true,
		},
		{
			ID:                "pro",
			Name:              "Pro",
			MaxMessagesPerDay: 200,
			AvailableModelIDs: []string{"gpt-4o-mini", "gpt-4o"},
			Active:            true,
		},
		{
			ID:                "unlimited",
			Name:              "Unlimited",
			MaxMessagesPerDay: tiers.UnlimitedMessages,
			AvailableModelIDs: []string{"gpt-4o-mini", "gpt-4o", "o1"},
			Active:            true,
		},
	}
}

func seedTiers(ctx context.Context, repo tiers.Repository) error {
	now := time.Now()
	for _, tier := range defaultTiers() {
		tier.CreatedAt = now
		tier.UpdatedAt = now
		err := repo.Create(ctx, tier)
		switch {
		case errors.Is(err, tiers.ErrTierExists):
			slog.Info("subscription type exists, skipping", "tier", tier.ID)
		case err != nil:
			return err
		default:
			slog.Info("created subscription type", "tier", tier.ID)
		}
	}
	return nil
}

func seedAdmin(ctx context.Context, repo users.Repository, svc *users.Service, email, password string) (*users.User, error) {
	existing, err := repo.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		slog.Info("admin account exists, skipping", "email", email)
		return existing, nil
	}

	if password == "" {
		return nil, errors.New("-admin-password is required when the admin account does not exist")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}

	admin, err := svc.Create(ctx, email, string(hash), "unlimited", true)
	if err != nil {
		return nil, err
	}
	slog.Info("created admin account", "email", email)
	return admin, nil
}
