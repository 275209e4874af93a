package waitlist

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound is returned when no record exists for an email.
	ErrNotFound = errors.New("waitlist record not found")

	// ErrAlreadyExists is returned when creating a record for an email
	// that is already on the waitlist.
	ErrAlreadyExists = errors.New("waitlist record already exists")

	// ErrPaymentIDMismatch is returned when a deposit update references a
	// different payment id than the one already stored for the email.
	// The stored id is never silently overwritten; a mismatch indicates a
	// data anomaly that needs operator attention.
	ErrPaymentIDMismatch = errors.New("deposit payment id mismatch")
)

// DepositUpdate describes a guarded deposit status change driven by a
// webhook event or the refund action.
type DepositUpdate struct {
	Status DepositStatus

	// PaymentID is the gateway's authorization identifier. Empty leaves the
	// stored id untouched; a non-empty value that differs from an already
	// stored id is rejected with ErrPaymentIDMismatch.
	PaymentID string

	// Amount in cents. Zero leaves the stored amount untouched.
	Amount int64

	// OccurredAt is recorded as the deposit date when a hold is placed.
	OccurredAt time.Time
}

// Repository defines persistence for waitlist records. All writes are keyed
// by email; deposit status writes are validated against the transition table
// and applied conditionally so concurrent or out-of-order webhook deliveries
// cannot move a record backward.
type Repository interface {
	// Create inserts a new record. Returns ErrAlreadyExists if the email
	// is already on the waitlist.
	Create(ctx context.Context, record *Record) error

	// GetByEmail returns the record for an email, or ErrNotFound.
	GetByEmail(ctx context.Context, email string) (*Record, error)

	// UpsertDepositPending marks the record for email as deposit-pending,
	// creating a bare record if none exists yet. Returns ErrInvalidTransition
	// if the record has already moved past pending.
	UpsertDepositPending(ctx context.Context, email string) error

	// ApplyDeposit applies a guarded deposit status change. Returns
	// ErrNotFound, ErrPaymentIDMismatch, or *ErrInvalidTransition when the
	// update cannot be applied.
	ApplyDeposit(ctx context.Context, email string, update DepositUpdate) error
}
