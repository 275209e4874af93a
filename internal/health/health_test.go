package health

import (
	"context"
	"database/sql"
	"testing"

	"github.com/redis/go-redis/v9"
)

// TestDBChecker_Creation tests that the DB checker is created correctly.
func TestDBChecker_Creation(t *testing.T) {
	// Create a mock DB connection (won't actually connect)
	db := &sql.DB{}

	checker := NewDBChecker(db)
	if checker == nil {
		t.Fatal("expected checker to be non-nil")
	}

	if checker.db != db {
		t.Error("expected checker db to match provided db")
	}
}

// TestRedisChecker_Creation tests that the Redis checker is created correctly.
func TestRedisChecker_Creation(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr: "localhost:6379",
	})

	checker := NewRedisChecker(client)
	if checker == nil {
		t.Fatal("expected checker to be non-nil")
	}

	if checker.client != client {
		t.Error("expected checker client to match provided client")
	}
}

// TestRedisChecker_HealthCheck_ContextCancellation tests that context cancellation works.
func TestRedisChecker_HealthCheck_ContextCancellation(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr: "localhost:9999",
	})

	checker := NewRedisChecker(client)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := checker.HealthCheck(ctx); err == nil {
		t.Error("expected error for cancelled context")
	}
}
