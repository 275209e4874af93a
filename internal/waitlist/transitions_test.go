package waitlist

import (
	"errors"
	"testing"
)

func TestCanTransition_ForwardEdges(t *testing.T) {
	tests := []struct {
		from, to DepositStatus
		want     bool
	}{
		{DepositNone, DepositPending, true},
		{DepositNone, DepositAuthorized, true},
		{DepositPending, DepositAuthorized, true},
		{DepositPending, DepositCaptured, true},
		{DepositAuthorized, DepositCaptured, true},
		{DepositAuthorized, DepositRefunded, true},
		{DepositCaptured, DepositRefunded, true},
		{DepositFailed, DepositAuthorized, true},
		{DepositFailed, DepositCaptured, true},
		{DepositNone, DepositFailed, true},
		{DepositPending, DepositFailed, true},
		{DepositAuthorized, DepositFailed, true},

		// Backward edges must not exist
		{DepositCaptured, DepositFailed, false},
		{DepositCaptured, DepositAuthorized, false},
		{DepositCaptured, DepositPending, false},
		{DepositRefunded, DepositCaptured, false},
		{DepositRefunded, DepositFailed, false},
		{DepositRefunded, DepositPending, false},
		{DepositAuthorized, DepositPending, false},
		{DepositNone, DepositCaptured, false},
		{DepositNone, DepositRefunded, false},
	}

	for _, tt := range tests {
		if got := CanTransition(tt.from, tt.to); got != tt.want {
			t.Errorf("CanTransition(%s, %s) = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}

func TestCanTransition_SameStatusIsIdempotent(t *testing.T) {
	for _, s := range []DepositStatus{
		DepositNone, DepositPending, DepositAuthorized,
		DepositCaptured, DepositFailed, DepositRefunded,
	} {
		if !CanTransition(s, s) {
			t.Errorf("expected %s -> %s to be allowed for event redelivery", s, s)
		}
	}
}

func TestValidateTransition_ErrorDetails(t *testing.T) {
	err := ValidateTransition(DepositCaptured, DepositFailed)
	if err == nil {
		t.Fatal("expected error for captured -> failed")
	}

	var invalid *ErrInvalidTransition
	if !errors.As(err, &invalid) {
		t.Fatalf("expected *ErrInvalidTransition, got %T", err)
	}
	if invalid.From != DepositCaptured || invalid.To != DepositFailed {
		t.Errorf("unexpected error fields: %+v", invalid)
	}
}
