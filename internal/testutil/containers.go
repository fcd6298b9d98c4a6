// Package testutil starts throwaway PostgreSQL and Redis instances for
// integration tests. Tests are skipped under -short, when Docker is not
// reachable, or when a container fails to start. TEST_DATABASE_URL and
// TEST_REDIS_ADDR point the helpers at existing servers instead.
package testutil

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"gorm.io/gorm"

	"github.com/reelwork/marketplace/pkg/database"
	"github.com/reelwork/marketplace/pkg/logger"
)

var loggerOnce sync.Once

// InitLogger makes logger.L usable in tests.
func InitLogger() {
	loggerOnce.Do(func() {
		if _, err := logger.Init("error", "json"); err != nil {
			panic("failed to init logger: " + err.Error())
		}
	})
}

// PostgresDSN returns a DSN for an empty database, starting a container when needed.
func PostgresDSN(t *testing.T) string {
	t.Helper()
	if testing.Short() {
		t.Skip("integration test skipped in -short mode")
	}
	if dsn := os.Getenv("TEST_DATABASE_URL"); dsn != "" {
		return dsn
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	ctr, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("marketplace"),
		tcpostgres.WithUsername("postgres"),
		tcpostgres.WithPassword("postgres"),
		tcpostgres.BasicWaitStrategies(),
	)
	testcontainers.CleanupContainer(t, ctr)
	if err != nil {
		t.Skipf("postgres container unavailable: %v", err)
	}

	dsn, err := ctr.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("postgres connection string: %v", err)
	}
	return dsn
}

// Postgres opens a gorm handle on a fresh database.
func Postgres(t *testing.T) *gorm.DB {
	t.Helper()
	InitLogger()
	dsn := PostgresDSN(t)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	db, err := database.OpenPostgres(ctx, dsn, database.Options{Name: "test", MaxRetries: 3})
	if err != nil {
		t.Fatalf("open postgres: %v", err)
	}
	t.Cleanup(func() { _ = database.Close(db) })
	return db
}

// Truncate empties the given tables, cascading to dependents.
func Truncate(t *testing.T, db *gorm.DB, tables ...string) {
	t.Helper()
	for _, table := range tables {
		if err := db.Exec("TRUNCATE TABLE " + table + " CASCADE").Error; err != nil {
			t.Fatalf("truncate %s: %v", table, err)
		}
	}
}

// Redis returns a client on an empty Redis database, starting a container when needed.
func Redis(t *testing.T) *redis.Client {
	t.Helper()
	if testing.Short() {
		t.Skip("integration test skipped in -short mode")
	}

	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		testcontainers.SkipIfProviderIsNotHealthy(t)

		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		ctr, err := testcontainers.Run(ctx, "redis:7-alpine",
			testcontainers.WithExposedPorts("6379/tcp"),
			testcontainers.WithWaitStrategy(wait.ForListeningPort("6379/tcp")),
		)
		testcontainers.CleanupContainer(t, ctr)
		if err != nil {
			t.Skipf("redis container unavailable: %v", err)
		}
		addr, err = ctr.Endpoint(ctx, "")
		if err != nil {
			t.Fatalf("redis endpoint: %v", err)
		}
	}

	client := redis.NewClient(&redis.Options{Addr: addr})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		t.Skipf("redis not available at %s: %v", addr, err)
	}
	client.FlushDB(ctx)
	t.Cleanup(func() { _ = client.Close() })
	return client
}
