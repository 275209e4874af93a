package waitlist

import "fmt"

// ErrInvalidTransition is returned when a deposit status change is not
// allowed by the transition table.
type ErrInvalidTransition struct {
	From DepositStatus
	To   DepositStatus
}

func (e *ErrInvalidTransition) Error() string {
	return fmt.Sprintf("invalid deposit transition: %s -> %s", e.From, e.To)
}

// AllowedTransitions defines the valid deposit status transitions.
// The key is the current status, and the value is a slice of valid targets.
//
// captured and refunded are terminal: the only way out of captured is a
// refund, and nothing leaves refunded. A stale "failed" or "succeeded"
// webhook delivered after capture or refund must not move the record
// backward, so those edges simply do not exist here.
var AllowedTransitions = map[DepositStatus][]DepositStatus{
	DepositNone: {
		DepositPending,
		DepositAuthorized,
		DepositFailed,
	},
	DepositPending: {
		DepositAuthorized,
		DepositCaptured, // capture event can be observed before the session event
		DepositFailed,
	},
	DepositAuthorized: {
		DepositCaptured,
		DepositRefunded,
		DepositFailed,
	},
	DepositCaptured: {
		DepositRefunded,
	},
	DepositFailed: {
		// Retried payment after a failure
		DepositPending,
		DepositAuthorized,
		DepositCaptured,
	},
	DepositRefunded: {}, // Terminal
}

// CanTransition checks if a transition from one status to another is allowed.
// A same-status transition is always allowed so that redelivered webhook
// events converge on the same end state.
func CanTransition(from, to DepositStatus) bool {
	if from == to {
		return true
	}
	allowed, exists := AllowedTransitions[from]
	if !exists {
		return false
	}
	for _, s := range allowed {
		if s == to {
			return true
		}
	}
	return false
}

// ValidateTransition returns an error if the transition is not allowed.
func ValidateTransition(from, to DepositStatus) error {
	if !CanTransition(from, to) {
		return &ErrInvalidTransition{From: from, To: to}
	}
	return nil
}
