package waitlist

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/verifyhire/backend/internal/tracing"
)

// PostgresRepository implements Repository using PostgreSQL.
//
// Deposit status writes run inside a transaction that locks the row
// (SELECT ... FOR UPDATE), validates the transition against the stored
// status and applies a conditional UPDATE. Two webhook deliveries for the
// same email therefore serialize, and a stale delivery that would move the
// record backward fails transition validation instead of clobbering state.
type PostgresRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPostgresRepository creates a new Postgres-backed waitlist repository.
func NewPostgresRepository(db *sql.DB, logger *slog.Logger) *PostgresRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresRepository{
		db:     db,
		logger: logger,
	}
}

const recordColumns = `id, email, employee_count, hris_system, email_sent,
	deposit_status, stripe_payment_id, deposit_amount, deposit_date,
	created_at, updated_at`

// Create inserts a new record. Duplicate emails are detected via the unique
// index rather than a racy pre-check.
func (r *PostgresRepository) Create(ctx context.Context, record *Record) (err error) {
	ctx, endSpan := tracing.StartDBSpan(ctx, "waitlist", tracing.DBOperationInsert)
	defer func() { endSpan(err) }()

	if record.ID == "" {
		record.ID = uuid.New().String()
	}
	if record.DepositStatus == "" {
		record.DepositStatus = DepositNone
	}

	query := `
		INSERT INTO waitlist (id, email, employee_count, hris_system, email_sent, deposit_status)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (email) DO NOTHING
		RETURNING created_at, updated_at
	`
	err = r.db.QueryRowContext(ctx, query,
		record.ID, record.Email, record.EmployeeCount, record.HRISSystem,
		record.EmailSent, record.DepositStatus,
	).Scan(&record.CreatedAt, &record.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		// Conflict path returns no row
		err = ErrAlreadyExists
		return err
	}
	if err != nil {
		err = fmt.Errorf("failed to insert waitlist record: %w", err)
		return err
	}
	return nil
}

// GetByEmail returns the record for an email, or ErrNotFound.
func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (rec *Record, err error) {
	ctx, endSpan := tracing.StartDBSpan(ctx, "waitlist", tracing.DBOperationQuery)
	defer func() { endSpan(err) }()

	query := `SELECT ` + recordColumns + ` FROM waitlist WHERE email = $1`

	rec, err = scanRecord(r.db.QueryRowContext(ctx, query, email))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get waitlist record: %w", err)
	}
	return rec, nil
}

// UpsertDepositPending marks the record for email as deposit-pending,
// creating a bare record if none exists yet.
func (r *PostgresRepository) UpsertDepositPending(ctx context.Context, email string) (err error) {
	ctx, endSpan := tracing.StartDBSpan(ctx, "waitlist", tracing.DBOperationUpdate)
	defer func() { endSpan(err) }()

	tx, err := r.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer rollback(tx, r.logger)

	var current DepositStatus
	err = tx.QueryRowContext(ctx,
		`SELECT deposit_status FROM waitlist WHERE email = $1 FOR UPDATE`, email,
	).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO waitlist (id, email, deposit_status)
			VALUES ($1, $2, $3)
		`, uuid.New().String(), email, DepositPending)
		if err != nil {
			return fmt.Errorf("failed to insert pending record: %w", err)
		}
		return tx.Commit()
	}
	if err != nil {
		return fmt.Errorf("failed to lock waitlist record: %w", err)
	}

	if err = ValidateTransition(current, DepositPending); err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE waitlist SET deposit_status = $1, updated_at = now()
		WHERE email = $2 AND deposit_status = $3
	`, DepositPending, email, current)
	if err != nil {
		return fmt.Errorf("failed to mark deposit pending: %w", err)
	}

	return tx.Commit()
}

// ApplyDeposit applies a guarded deposit status change.
func (r *PostgresRepository) ApplyDeposit(ctx context.Context, email string, update DepositUpdate) (err error) {
	ctx, endSpan := tracing.StartDBSpan(ctx, "waitlist", tracing.DBOperationUpdate)
	defer func() { endSpan(err) }()

	tx, err := r.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer rollback(tx, r.logger)

	var current DepositStatus
	var storedPaymentID sql.NullString
	err = tx.QueryRowContext(ctx,
		`SELECT deposit_status, stripe_payment_id FROM waitlist WHERE email = $1 FOR UPDATE`,
		email,
	).Scan(&current, &storedPaymentID)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to lock waitlist record: %w", err)
	}

	if update.PaymentID != "" && storedPaymentID.Valid && storedPaymentID.String != update.PaymentID {
		r.logger.ErrorContext(ctx, "deposit payment id mismatch",
			"email", email,
			"stored_payment_id", storedPaymentID.String,
			"event_payment_id", update.PaymentID)
		return ErrPaymentIDMismatch
	}

	if err = ValidateTransition(current, update.Status); err != nil {
		return err
	}

	var depositDate *time.Time
	if !update.OccurredAt.IsZero() && update.Status == DepositAuthorized {
		occurred := update.OccurredAt
		depositDate = &occurred
	}
	var paymentID *string
	if update.PaymentID != "" {
		paymentID = &update.PaymentID
	}
	var amount *int64
	if update.Amount > 0 {
		amount = &update.Amount
	}

	res, err := tx.ExecContext(ctx, `
		UPDATE waitlist SET
			deposit_status    = $1,
			stripe_payment_id = COALESCE(stripe_payment_id, $2),
			deposit_amount    = COALESCE($3, deposit_amount),
			deposit_date      = COALESCE($4, deposit_date),
			updated_at        = now()
		WHERE email = $5 AND deposit_status = $6
	`, update.Status, paymentID, amount, depositDate, email, current)
	if err != nil {
		return fmt.Errorf("failed to apply deposit update: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if rows == 0 {
		// Row moved under us despite the lock; treat as a stale write.
		return &ErrInvalidTransition{From: current, To: update.Status}
	}

	return tx.Commit()
}

// rollback is a deferred-rollback helper; a no-op after a successful commit.
func rollback(tx *sql.Tx, logger *slog.Logger) {
	if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		logger.Warn("failed to rollback transaction", "error", err)
	}
}

// rowScanner abstracts *sql.Row and *sql.Rows for scanRecord.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*Record, error) {
	var rec Record
	var employeeCount, hrisSystem sql.NullString
	var paymentID sql.NullString
	var amount sql.NullInt64
	var depositDate sql.NullTime

	err := row.Scan(
		&rec.ID, &rec.Email, &employeeCount, &hrisSystem, &rec.EmailSent,
		&rec.DepositStatus, &paymentID, &amount, &depositDate,
		&rec.CreatedAt, &rec.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	rec.EmployeeCount = employeeCount.String
	rec.HRISSystem = hrisSystem.String
	if paymentID.Valid {
		rec.StripePaymentID = &paymentID.String
	}
	if amount.Valid {
		rec.DepositAmount = &amount.Int64
	}
	if depositDate.Valid {
		rec.DepositDate = &depositDate.Time
	}

	return &rec, nil
}
