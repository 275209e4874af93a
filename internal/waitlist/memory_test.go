package waitlist

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestInMemoryRepository_CreateAndGet(t *testing.T) {
	repo := NewInMemoryRepository()
	ctx := context.Background()

	record := &Record{Email: "a@x.com", EmployeeCount: "1-50", EmailSent: true}
	if err := repo.Create(ctx, record); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if record.ID == "" {
		t.Error("expected generated ID")
	}
	if record.DepositStatus != DepositNone {
		t.Errorf("expected default status none, got %s", record.DepositStatus)
	}

	got, err := repo.GetByEmail(ctx, "a@x.com")
	if err != nil {
		t.Fatalf("GetByEmail failed: %v", err)
	}
	if got.Email != "a@x.com" || !got.EmailSent || got.EmployeeCount != "1-50" {
		t.Errorf("unexpected record: %+v", got)
	}
}

func TestInMemoryRepository_CreateDuplicate(t *testing.T) {
	repo := NewInMemoryRepository()
	ctx := context.Background()

	first := &Record{Email: "b@y.com"}
	if err := repo.Create(ctx, first); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	created := first.CreatedAt

	err := repo.Create(ctx, &Record{Email: "b@y.com"})
	if !errors.Is(err, ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists, got %v", err)
	}

	got, err := repo.GetByEmail(ctx, "b@y.com")
	if err != nil {
		t.Fatalf("GetByEmail failed: %v", err)
	}
	if !got.CreatedAt.Equal(created) {
		t.Error("createdAt changed after duplicate create attempt")
	}
}

func TestInMemoryRepository_GetUnknown(t *testing.T) {
	repo := NewInMemoryRepository()
	if _, err := repo.GetByEmail(context.Background(), "missing@x.com"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestInMemoryRepository_UpsertDepositPending(t *testing.T) {
	repo := NewInMemoryRepository()
	ctx := context.Background()

	// Creates a bare record when none exists
	if err := repo.UpsertDepositPending(ctx, "new@x.com"); err != nil {
		t.Fatalf("UpsertDepositPending failed: %v", err)
	}
	got, err := repo.GetByEmail(ctx, "new@x.com")
	if err != nil {
		t.Fatalf("GetByEmail failed: %v", err)
	}
	if got.DepositStatus != DepositPending {
		t.Errorf("expected pending, got %s", got.DepositStatus)
	}

	// Moves an existing none record forward
	if err := repo.Create(ctx, &Record{Email: "c@x.com"}); err != nil {
		t.Fatal(err)
	}
	if err := repo.UpsertDepositPending(ctx, "c@x.com"); err != nil {
		t.Fatalf("UpsertDepositPending failed: %v", err)
	}

	// Refuses to move a captured record back to pending
	if err := repo.ApplyDeposit(ctx, "c@x.com", DepositUpdate{Status: DepositAuthorized, PaymentID: "pi_1"}); err != nil {
		t.Fatal(err)
	}
	if err := repo.ApplyDeposit(ctx, "c@x.com", DepositUpdate{Status: DepositCaptured}); err != nil {
		t.Fatal(err)
	}
	err = repo.UpsertDepositPending(ctx, "c@x.com")
	var invalid *ErrInvalidTransition
	if !errors.As(err, &invalid) {
		t.Fatalf("expected invalid transition error, got %v", err)
	}
}

func TestInMemoryRepository_ApplyDeposit(t *testing.T) {
	repo := NewInMemoryRepository()
	ctx := context.Background()

	if err := repo.Create(ctx, &Record{Email: "d@x.com"}); err != nil {
		t.Fatal(err)
	}

	occurred := time.Now().Add(-time.Minute)
	err := repo.ApplyDeposit(ctx, "d@x.com", DepositUpdate{
		Status:     DepositAuthorized,
		PaymentID:  "pi_123",
		Amount:     10000,
		OccurredAt: occurred,
	})
	if err != nil {
		t.Fatalf("ApplyDeposit failed: %v", err)
	}

	got, _ := repo.GetByEmail(ctx, "d@x.com")
	if got.DepositStatus != DepositAuthorized {
		t.Errorf("expected authorized, got %s", got.DepositStatus)
	}
	if got.StripePaymentID == nil || *got.StripePaymentID != "pi_123" {
		t.Errorf("expected payment id pi_123, got %v", got.StripePaymentID)
	}
	if got.DepositAmount == nil || *got.DepositAmount != 10000 {
		t.Errorf("expected amount 10000, got %v", got.DepositAmount)
	}
	if got.DepositDate == nil || !got.DepositDate.Equal(occurred) {
		t.Errorf("expected deposit date %v, got %v", occurred, got.DepositDate)
	}
}

func TestInMemoryRepository_ApplyDeposit_PaymentIDMismatch(t *testing.T) {
	repo := NewInMemoryRepository()
	ctx := context.Background()

	if err := repo.Create(ctx, &Record{Email: "e@x.com"}); err != nil {
		t.Fatal(err)
	}
	if err := repo.ApplyDeposit(ctx, "e@x.com", DepositUpdate{Status: DepositAuthorized, PaymentID: "pi_a"}); err != nil {
		t.Fatal(err)
	}

	err := repo.ApplyDeposit(ctx, "e@x.com", DepositUpdate{Status: DepositCaptured, PaymentID: "pi_b"})
	if !errors.Is(err, ErrPaymentIDMismatch) {
		t.Fatalf("expected ErrPaymentIDMismatch, got %v", err)
	}

	// Stored id is untouched and status unchanged
	got, _ := repo.GetByEmail(ctx, "e@x.com")
	if *got.StripePaymentID != "pi_a" {
		t.Errorf("stored payment id overwritten: %s", *got.StripePaymentID)
	}
	if got.DepositStatus != DepositAuthorized {
		t.Errorf("status changed on rejected update: %s", got.DepositStatus)
	}
}

func TestInMemoryRepository_ApplyDeposit_TerminalStates(t *testing.T) {
	repo := NewInMemoryRepository()
	ctx := context.Background()

	if err := repo.Create(ctx, &Record{Email: "f@x.com"}); err != nil {
		t.Fatal(err)
	}
	for _, upd := range []DepositUpdate{
		{Status: DepositAuthorized, PaymentID: "pi_f", OccurredAt: time.Now()},
		{Status: DepositCaptured},
	} {
		if err := repo.ApplyDeposit(ctx, "f@x.com", upd); err != nil {
			t.Fatal(err)
		}
	}

	// A stale failure event must not move the record out of captured
	err := repo.ApplyDeposit(ctx, "f@x.com", DepositUpdate{Status: DepositFailed})
	var invalid *ErrInvalidTransition
	if !errors.As(err, &invalid) {
		t.Fatalf("expected invalid transition, got %v", err)
	}

	got, _ := repo.GetByEmail(ctx, "f@x.com")
	if got.DepositStatus != DepositCaptured {
		t.Errorf("terminal state overwritten: %s", got.DepositStatus)
	}

	// Redelivering the capture event converges on the same state
	if err := repo.ApplyDeposit(ctx, "f@x.com", DepositUpdate{Status: DepositCaptured}); err != nil {
		t.Fatalf("redelivered capture should be a no-op, got %v", err)
	}
}

func TestInMemoryRepository_ApplyDeposit_Unknown(t *testing.T) {
	repo := NewInMemoryRepository()
	err := repo.ApplyDeposit(context.Background(), "nobody@x.com", DepositUpdate{Status: DepositFailed})
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
