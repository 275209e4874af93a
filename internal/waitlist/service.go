package waitlist

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/verifyhire/backend/internal/notify"
	"github.com/verifyhire/backend/internal/validate"
)

// categoricalMaxLen bounds the informational signup fields.
const categoricalMaxLen = 64

// JoinInput is the input to the waitlist join procedure.
type JoinInput struct {
	Email         string
	EmployeeCount string
	HRISSystem    string
}

// JoinResult describes the outcome of a join attempt.
// EmailSent is an explicit value rather than a logged side effect so callers
// and tests can assert on it directly.
type JoinResult struct {
	Success       bool
	AlreadyExists bool
	EmailSent     bool
	ID            string
}

// ErrValidation wraps a field-level validation failure. No side effects have
// occurred when it is returned.
type ErrValidation struct {
	Field string
	Err   error
}

func (e *ErrValidation) Error() string {
	return fmt.Sprintf("invalid %s: %v", e.Field, e.Err)
}

func (e *ErrValidation) Unwrap() error { return e.Err }

// Service implements the waitlist join procedure.
type Service struct {
	repo     Repository
	notifier notify.Notifier
	logger   *slog.Logger
}

// NewService creates a waitlist service with explicit, injected collaborators.
func NewService(repo Repository, notifier notify.Notifier, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:     repo,
		notifier: notifier,
		logger:   logger,
	}
}

// Join validates the input, deduplicates by email, attempts the welcome
// notification and persists a new record.
//
// The notification is attempted before the insert: a crash between the two
// leaves no record despite a sent email, which is acceptable for a marketing
// flow and keeps a record's email_sent value truthful. Notification failure
// does not abort the join; it is recorded as EmailSent=false.
func (s *Service) Join(ctx context.Context, input JoinInput) (*JoinResult, error) {
	email, err := validate.Email(input.Email)
	if err != nil {
		return nil, &ErrValidation{Field: "email", Err: err}
	}

	employeeCount, err := validate.String(input.EmployeeCount, validate.StringConstraints{
		MaxLength:  categoricalMaxLen,
		AllowEmpty: true,
		TrimSpace:  true,
	})
	if err != nil {
		return nil, &ErrValidation{Field: "employee_count", Err: err}
	}

	hrisSystem, err := validate.String(input.HRISSystem, validate.StringConstraints{
		MaxLength:  categoricalMaxLen,
		AllowEmpty: true,
		TrimSpace:  true,
	})
	if err != nil {
		return nil, &ErrValidation{Field: "hris_system", Err: err}
	}

	// Dedupe before any side effect so a repeat signup never triggers a
	// second welcome email.
	existing, err := s.repo.GetByEmail(ctx, email)
	if err == nil {
		return &JoinResult{
			AlreadyExists: true,
			EmailSent:     existing.EmailSent,
			ID:            existing.ID,
		}, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("failed to look up waitlist record: %w", err)
	}

	emailSent := true
	if err := s.notifier.SendWelcome(ctx, email); err != nil {
		emailSent = false
		s.logger.WarnContext(ctx, "welcome email failed", "email", email, "error", err)
	}

	record := &Record{
		Email:         email,
		EmployeeCount: employeeCount,
		HRISSystem:    hrisSystem,
		EmailSent:     emailSent,
		DepositStatus: DepositNone,
	}

	if err := s.repo.Create(ctx, record); err != nil {
		if errors.Is(err, ErrAlreadyExists) {
			// Lost a race with a concurrent join for the same email.
			if existing, getErr := s.repo.GetByEmail(ctx, email); getErr == nil {
				return &JoinResult{
					AlreadyExists: true,
					EmailSent:     existing.EmailSent,
					ID:            existing.ID,
				}, nil
			}
			return &JoinResult{AlreadyExists: true, EmailSent: emailSent}, nil
		}
		return nil, fmt.Errorf("failed to create waitlist record: %w", err)
	}

	s.logger.InfoContext(ctx, "waitlist signup", "email", email, "email_sent", emailSent)

	return &JoinResult{
		Success:   true,
		EmailSent: emailSent,
		ID:        record.ID,
	}, nil
}
