//go:build integration

package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/modelgate-platform/modelgate/internal/api"
	"github.com/modelgate-platform/modelgate/internal/audit"
	"github.com/modelgate-platform/modelgate/internal/chat"
	"github.com/modelgate-platform/modelgate/internal/entitlements"
	"github.com/modelgate-platform/modelgate/internal/gate"
	"github.com/modelgate-platform/modelgate/internal/middleware"
	"github.com/modelgate-platform/modelgate/internal/quota"
	"github.com/modelgate-platform/modelgate/internal/session"
	"github.com/modelgate-platform/modelgate/internal/tiers"
	"github.com/modelgate-platform/modelgate/internal/users"
)

type TestEnv struct {
	Pool        *pgxpool.Pool
	RedisClient *redis.Client
	Server      *httptest.Server
	JWTManager  *session.JWTManager
	TierRepo    tiers.Repository
	UserSvc     *users.Service
	QuotaRepo   *quota.Repository
}

// SetupTestEnv starts Postgres and Redis containers and wires the full
// router against them. Each test gets its own environment; containers are
// torn down with the test.
func SetupTestEnv(t *testing.T) *TestEnv {
	t.Helper()

	ctx := context.Background()

	// Start PostgreSQL container
	pgContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "postgres:16-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "test",
				"POSTGRES_PASSWORD": "test",
				"POSTGRES_DB":       "modelgate_test",
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		t.Fatalf("starting postgres container: %v", err)
	}
	t.Cleanup(func() { pgContainer.Terminate(ctx) })

	pgHost, _ := pgContainer.Host(ctx)
	pgPort, _ := pgContainer.MappedPort(ctx, "5432")

	// Start Redis container
	redisContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(30 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		t.Fatalf("starting redis container: %v", err)
	}
	t.Cleanup(func() { redisContainer.Terminate(ctx) })

	redisHost, _ := redisContainer.Host(ctx)
	redisPort, _ := redisContainer.MappedPort(ctx, "6379")

	// Connect to PostgreSQL
	dsn := fmt.Sprintf("postgres://test:test@%s:%s/modelgate_test?sslmode=disable", pgHost, pgPort.Port())
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("connecting to postgres: %v", err)
	}
	t.Cleanup(func() { pool.Close() })

	// Run migrations
	migrationsPath := getMigrationsPath()
	m, err := migrate.New(
		fmt.Sprintf("file://%s", migrationsPath),
		dsn,
	)
	if err != nil {
		t.Fatalf("creating migrator: %v", err)
	}
	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		t.Fatalf("running migrations: %v", err)
	}

	// Connect to Redis
	redisClient := redis.NewClient(&redis.Options{
		Addr: fmt.Sprintf("%s:%s", redisHost, redisPort.Port()),
	})
	t.Cleanup(func() { redisClient.Close() })

	// Setup services. No NATS: enforcement must not depend on the event bus.
	jwtManager := session.NewJWTManager("test-secret-at-least-32-chars-long!!", 15*time.Minute)

	tierRepo := tiers.NewRepository(pool)
	tierSvc := tiers.NewService(tierRepo, nil)
	tierHandler := tiers.NewHandler(tierSvc)

	resolver := entitlements.NewResolver(tierRepo)
	quotaRepo := quota.NewRepository(pool)
	tracker := quota.NewTracker(quotaRepo)
	quotaHandler := quota.NewHandler(tracker, resolver)

	userRepo := users.NewRepository(pool)
	userSvc := users.NewService(userRepo, tierRepo)
	userHandler := users.NewHandler(userSvc)

	chatRepo := chat.NewRepository(pool)
	chatSvc := chat.NewService(chatRepo, resolver, tracker, nil)
	chatHandler := chat.NewHandler(chatSvc)

	auditRepo := audit.NewRepository(pool)
	auditHandler := audit.NewHandler(auditRepo)

	adminLimiter := middleware.NewRateLimiter(redisClient, 1000, 60)

	router := api.NewRouter(pool, nil, api.RouterConfig{
		StaticDir:        t.TempDir(),
		AdminRateLimiter: adminLimiter.Middleware,
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

	server := httptest.NewServer(router)
	t.Cleanup(func() { server.Close() })

	return &TestEnv{
		Pool:        pool,
		RedisClient: redisClient,
		Server:      server,
		JWTManager:  jwtManager,
		TierRepo:    tierRepo,
		UserSvc:     userSvc,
		QuotaRepo:   quotaRepo,
	}
}

func getMigrationsPath() string {
	// Try relative paths from test directory
	paths := []string{
		"../../migrations",
		"../../../migrations",
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	log.Fatal("migrations directory not found")
	return ""
}

// Helper functions

func CreateTier(t *testing.T, env *TestEnv, id string, maxPerDay int, modelIDs []string) {
	t.Helper()
	now := time.Now()
	err := env.TierRepo.Create(context.Background(), &tiers.SubscriptionType{
		ID:                id,
		Name:              id,
		MaxMessagesPerDay: maxPerDay,
		AvailableModelIDs: modelIDs,
		Active:            true,
		CreatedAt:         now,
		UpdatedAt:         now,
	})
	if err != nil && err != tiers.ErrTierExists {
		t.Fatalf("creating tier %s: %v", id, err)
	}
}

func CreateUser(t *testing.T, env *TestEnv, email, tierID string, isAdmin bool) (*users.User, string) {
	t.Helper()
	user, err := env.UserSvc.Create(context.Background(), email, "x", tierID, isAdmin)
	if err != nil {
		t.Fatalf("creating user %s: %v", email, err)
	}
	token, err := env.JWTManager.Generate(user.ID.String(), user.Email)
	if err != nil {
		t.Fatalf("generating token: %v", err)
	}
	return user, token
}

func DoRequest(t *testing.T, env *TestEnv, method, path string, body any, token string) *http.Response {
	t.Helper()
	var bodyReader io.Reader
	if body != nil {
		b, _ := json.Marshal(body)
		bodyReader = bytes.NewReader(b)
	}

	req, err := http.NewRequest(method, env.Server.URL+path, bodyReader)
	if err != nil {
		t.Fatalf("creating request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("doing request: %v", err)
	}
	return resp
}

func ParseResponse(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	defer resp.Body.Close()
	var result map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		t.Fatalf("parsing response: %v", err)
	}
	return result
}
