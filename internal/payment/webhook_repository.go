// Webhook event tracking for redelivery idempotency.
package payment

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrEventAlreadyProcessed is returned when attempting to record a duplicate
// webhook event.
var ErrEventAlreadyProcessed = errors.New("webhook event already processed")

// WebhookEvent represents a processed webhook event.
type WebhookEvent struct {
	ID          string
	EventID     string // Stripe event ID
	EventType   string // Stripe event type
	ProcessedAt time.Time
}

// WebhookRepository defines methods for webhook event tracking.
// Stripe delivers at-least-once; recording each event id exactly once lets
// the handler acknowledge redeliveries without reprocessing them.
type WebhookRepository interface {
	// RecordEvent records a webhook event as processed.
	// Returns ErrEventAlreadyProcessed if the event was already recorded.
	RecordEvent(ctx context.Context, eventID, eventType string) error

	// HasProcessed checks if an event has already been processed.
	HasProcessed(ctx context.Context, eventID string) (bool, error)
}

// InMemoryWebhookRepository implements WebhookRepository with in-memory storage.
type InMemoryWebhookRepository struct {
	mu     sync.RWMutex
	events map[string]*WebhookEvent // keyed by event_id
}

// NewInMemoryWebhookRepository creates a new in-memory webhook repository.
func NewInMemoryWebhookRepository() *InMemoryWebhookRepository {
	return &InMemoryWebhookRepository{
		events: make(map[string]*WebhookEvent),
	}
}

// RecordEvent records a webhook event as processed.
func (r *InMemoryWebhookRepository) RecordEvent(ctx context.Context, eventID, eventType string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.events[eventID]; exists {
		return ErrEventAlreadyProcessed
	}

	r.events[eventID] = &WebhookEvent{
		ID:          uuid.New().String(),
		EventID:     eventID,
		EventType:   eventType,
		ProcessedAt: time.Now(),
	}

	return nil
}

// HasProcessed checks if an event has already been processed.
func (r *InMemoryWebhookRepository) HasProcessed(ctx context.Context, eventID string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, exists := r.events[eventID]
	return exists, nil
}

// PostgresWebhookRepository implements WebhookRepository using PostgreSQL.
// The unique index on event_id makes RecordEvent atomic across concurrent
// deliveries of the same event.
type PostgresWebhookRepository struct {
	db *sql.DB
}

// NewPostgresWebhookRepository creates a new Postgres-backed webhook repository.
func NewPostgresWebhookRepository(db *sql.DB) *PostgresWebhookRepository {
	return &PostgresWebhookRepository{db: db}
}

// RecordEvent records a webhook event as processed.
func (r *PostgresWebhookRepository) RecordEvent(ctx context.Context, eventID, eventType string) error {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO stripe_webhook_events (id, event_id, event_type)
		VALUES ($1, $2, $3)
		ON CONFLICT (event_id) DO NOTHING
	`, uuid.New().String(), eventID, eventType)
	if err != nil {
		return fmt.Errorf("failed to record webhook event: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if rows == 0 {
		return ErrEventAlreadyProcessed
	}
	return nil
}

// HasProcessed checks if an event has already been processed.
func (r *PostgresWebhookRepository) HasProcessed(ctx context.Context, eventID string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM stripe_webhook_events WHERE event_id = $1)`,
		eventID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check webhook event: %w", err)
	}
	return exists, nil
}
