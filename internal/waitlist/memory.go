package waitlist

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// InMemoryRepository implements Repository with in-memory storage.
// Thread-safe; used in tests and local development.
type InMemoryRepository struct {
	mu      sync.RWMutex
	records map[string]*Record // keyed by lowercased email
}

// NewInMemoryRepository creates a new in-memory waitlist repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		records: make(map[string]*Record),
	}
}

// Create inserts a new record.
func (r *InMemoryRepository) Create(ctx context.Context, record *Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := strings.ToLower(record.Email)
	if _, exists := r.records[key]; exists {
		return ErrAlreadyExists
	}

	if record.ID == "" {
		record.ID = uuid.New().String()
	}
	if record.DepositStatus == "" {
		record.DepositStatus = DepositNone
	}

	now := time.Now()
	if record.CreatedAt.IsZero() {
		record.CreatedAt = now
	}
	record.UpdatedAt = now

	// Deep copy to prevent external mutation
	copied := *record
	r.records[key] = &copied

	return nil
}

// GetByEmail retrieves a record by email.
func (r *InMemoryRepository) GetByEmail(ctx context.Context, email string) (*Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	record, ok := r.records[strings.ToLower(email)]
	if !ok {
		return nil, ErrNotFound
	}

	copied := *record
	return &copied, nil
}

// UpsertDepositPending marks the record as deposit-pending, creating a bare
// record if none exists.
func (r *InMemoryRepository) UpsertDepositPending(ctx context.Context, email string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := strings.ToLower(email)
	now := time.Now()

	record, ok := r.records[key]
	if !ok {
		r.records[key] = &Record{
			ID:            uuid.New().String(),
			Email:         key,
			DepositStatus: DepositPending,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		return nil
	}

	if err := ValidateTransition(record.DepositStatus, DepositPending); err != nil {
		return err
	}

	record.DepositStatus = DepositPending
	record.UpdatedAt = now
	return nil
}

// ApplyDeposit applies a guarded deposit status change.
func (r *InMemoryRepository) ApplyDeposit(ctx context.Context, email string, update DepositUpdate) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	record, ok := r.records[strings.ToLower(email)]
	if !ok {
		return ErrNotFound
	}

	if update.PaymentID != "" && record.StripePaymentID != nil &&
		*record.StripePaymentID != update.PaymentID {
		return ErrPaymentIDMismatch
	}

	if err := ValidateTransition(record.DepositStatus, update.Status); err != nil {
		return err
	}

	record.DepositStatus = update.Status
	if update.PaymentID != "" && record.StripePaymentID == nil {
		pid := update.PaymentID
		record.StripePaymentID = &pid
	}
	if update.Amount > 0 {
		amount := update.Amount
		record.DepositAmount = &amount
	}
	if !update.OccurredAt.IsZero() && update.Status == DepositAuthorized {
		occurred := update.OccurredAt
		record.DepositDate = &occurred
	}
	record.UpdatedAt = time.Now()

	return nil
}
