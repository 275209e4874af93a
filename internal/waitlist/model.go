// Package waitlist provides the waitlist record model and deposit state
// machine for the VerifyHire signup flow.
package waitlist

import "time"

// DepositStatus represents where a record sits in the priority-deposit flow.
type DepositStatus string

// Deposit statuses. A record starts at none and moves forward through the
// transition table in transitions.go; captured and refunded are terminal.
const (
	DepositNone       DepositStatus = "none"
	DepositPending    DepositStatus = "pending"
	DepositAuthorized DepositStatus = "authorized"
	DepositCaptured   DepositStatus = "captured"
	DepositFailed     DepositStatus = "failed"
	DepositRefunded   DepositStatus = "refunded"
)

// Record represents one prospective customer, keyed by email.
type Record struct {
	ID              string         `json:"id"`
	Email           string         `json:"email"`
	EmployeeCount   string         `json:"employee_count,omitempty"`
	HRISSystem      string         `json:"hris_system,omitempty"`
	EmailSent       bool           `json:"email_sent"`
	DepositStatus   DepositStatus  `json:"deposit_status"`
	StripePaymentID *string        `json:"stripe_payment_id,omitempty"`
	DepositAmount   *int64         `json:"deposit_amount,omitempty"` // cents
	DepositDate     *time.Time     `json:"deposit_date,omitempty"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
}

// HasDeposit reports whether the record has entered the deposit flow at all.
func (r *Record) HasDeposit() bool {
	return r.DepositStatus != DepositNone
}

// IsPriority reports whether the customer currently holds priority placement,
// i.e. funds are on hold or captured.
func (r *Record) IsPriority() bool {
	return r.DepositStatus == DepositAuthorized || r.DepositStatus == DepositCaptured
}
