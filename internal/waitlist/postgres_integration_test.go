//go:build integration

// Integration tests for the Postgres repository. They start a throwaway
// PostgreSQL container via testcontainers.
//
// Run with: go test -tags=integration -v ./internal/waitlist/...
package waitlist

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

func startPostgres(t *testing.T) *sql.DB {
	t.Helper()
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("verifyhire"),
		tcpostgres.WithUsername("test"),
		tcpostgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	if err != nil {
		t.Fatalf("failed to start postgres container: %v", err)
	}
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("failed to get connection string: %v", err)
	}

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := db.Ping(); err != nil {
		t.Fatalf("failed to ping database: %v", err)
	}

	applyMigrations(t, db)
	return db
}

// applyMigrations runs every *.up.sql migration in lexical order.
func applyMigrations(t *testing.T, db *sql.DB) {
	t.Helper()

	files, err := filepath.Glob(filepath.Join("..", "..", "migrations", "*.up.sql"))
	if err != nil {
		t.Fatalf("failed to list migrations: %v", err)
	}
	sort.Strings(files)

	for _, f := range files {
		content, err := os.ReadFile(f)
		if err != nil {
			t.Fatalf("failed to read migration %s: %v", f, err)
		}
		if _, err := db.Exec(string(content)); err != nil {
			t.Fatalf("failed to apply migration %s: %v", f, err)
		}
	}
}

func TestPostgresRepository_CreateAndGet(t *testing.T) {
	db := startPostgres(t)
	repo := NewPostgresRepository(db, nil)
	ctx := context.Background()

	record := &Record{Email: "a@x.com", EmployeeCount: "1-50", EmailSent: true}
	if err := repo.Create(ctx, record); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if record.CreatedAt.IsZero() {
		t.Error("expected created_at to be populated")
	}

	if err := repo.Create(ctx, &Record{Email: "a@x.com"}); !errors.Is(err, ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists, got %v", err)
	}

	got, err := repo.GetByEmail(ctx, "a@x.com")
	if err != nil {
		t.Fatalf("GetByEmail failed: %v", err)
	}
	if got.Email != "a@x.com" || !got.EmailSent || got.DepositStatus != DepositNone {
		t.Errorf("unexpected record: %+v", got)
	}

	if _, err := repo.GetByEmail(ctx, "missing@x.com"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestPostgresRepository_DepositLifecycle(t *testing.T) {
	db := startPostgres(t)
	repo := NewPostgresRepository(db, nil)
	ctx := context.Background()

	if err := repo.Create(ctx, &Record{Email: "b@y.com"}); err != nil {
		t.Fatal(err)
	}
	if err := repo.UpsertDepositPending(ctx, "b@y.com"); err != nil {
		t.Fatalf("UpsertDepositPending failed: %v", err)
	}

	occurred := time.Now().UTC().Truncate(time.Millisecond)
	err := repo.ApplyDeposit(ctx, "b@y.com", DepositUpdate{
		Status:     DepositAuthorized,
		PaymentID:  "pi_123",
		Amount:     10000,
		OccurredAt: occurred,
	})
	if err != nil {
		t.Fatalf("ApplyDeposit authorized failed: %v", err)
	}

	if err := repo.ApplyDeposit(ctx, "b@y.com", DepositUpdate{Status: DepositCaptured}); err != nil {
		t.Fatalf("ApplyDeposit captured failed: %v", err)
	}

	// Stale failure after capture is rejected
	err = repo.ApplyDeposit(ctx, "b@y.com", DepositUpdate{Status: DepositFailed})
	var invalid *ErrInvalidTransition
	if !errors.As(err, &invalid) {
		t.Fatalf("expected invalid transition, got %v", err)
	}

	// Mismatching payment id is rejected
	err = repo.ApplyDeposit(ctx, "b@y.com", DepositUpdate{Status: DepositRefunded, PaymentID: "pi_other"})
	if !errors.Is(err, ErrPaymentIDMismatch) {
		t.Fatalf("expected ErrPaymentIDMismatch, got %v", err)
	}

	got, err := repo.GetByEmail(ctx, "b@y.com")
	if err != nil {
		t.Fatal(err)
	}
	if got.DepositStatus != DepositCaptured {
		t.Errorf("expected captured, got %s", got.DepositStatus)
	}
	if got.StripePaymentID == nil || *got.StripePaymentID != "pi_123" {
		t.Errorf("unexpected payment id: %v", got.StripePaymentID)
	}
	if got.DepositAmount == nil || *got.DepositAmount != 10000 {
		t.Errorf("unexpected amount: %v", got.DepositAmount)
	}
	if got.DepositDate == nil {
		t.Error("expected deposit date to be set")
	}
}

func TestPostgresRepository_UpsertPendingCreatesBareRecord(t *testing.T) {
	db := startPostgres(t)
	repo := NewPostgresRepository(db, nil)
	ctx := context.Background()

	if err := repo.UpsertDepositPending(ctx, "new@x.com"); err != nil {
		t.Fatalf("UpsertDepositPending failed: %v", err)
	}

	got, err := repo.GetByEmail(ctx, "new@x.com")
	if err != nil {
		t.Fatal(err)
	}
	if got.DepositStatus != DepositPending {
		t.Errorf("expected pending, got %s", got.DepositStatus)
	}
}
