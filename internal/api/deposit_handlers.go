package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/verifyhire/backend/internal/middleware"
	"github.com/verifyhire/backend/internal/payment"
	"github.com/verifyhire/backend/internal/validate"
	"github.com/verifyhire/backend/internal/waitlist"
)

// DepositHandlers holds dependencies for deposit-related HTTP handlers.
type DepositHandlers struct {
	repo          waitlist.Repository
	stripeClient  payment.Client
	depositAmount int64 // cents, fixed by configuration
	successURL    string
	cancelURL     string
}

// NewDepositHandlers creates a new DepositHandlers instance.
func NewDepositHandlers(
	repo waitlist.Repository,
	stripeClient payment.Client,
	depositAmount int64,
	successURL string,
	cancelURL string,
) *DepositHandlers {
	return &DepositHandlers{
		repo:          repo,
		stripeClient:  stripeClient,
		depositAmount: depositAmount,
		successURL:    successURL,
		cancelURL:     cancelURL,
	}
}

// CheckoutRequest represents the request body for initiating a deposit checkout.
type CheckoutRequest struct {
	Email    string          `json:"email"`
	UserInfo json.RawMessage `json:"userInfo,omitempty"`
}

// CheckoutResponse represents the response for a successful checkout session creation.
type CheckoutResponse struct {
	SessionID string `json:"sessionId"`
}

// CreateCheckout creates a manual-capture Stripe Checkout Session for the
// fixed priority deposit amount.
// POST /deposits/checkout
func (h *DepositHandlers) CreateCheckout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req CheckoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ctx = middleware.SetErrorCode(ctx, ErrCodeBadRequest)
		WriteError(w, ctx, ErrCodeBadRequest, "invalid request body")
		return
	}

	email, err := validate.Email(req.Email)
	if err != nil {
		ctx = middleware.SetErrorCode(ctx, ErrCodeValidation)
		WriteFieldError(w, ctx, "email", "a valid email is required")
		return
	}

	session, err := h.stripeClient.CreateDepositSession(&payment.DepositSessionParams{
		Email:      email,
		UserInfo:   string(req.UserInfo),
		Amount:     h.depositAmount,
		SuccessURL: h.successURL,
		CancelURL:  h.cancelURL,
	})
	if err != nil {
		slog.ErrorContext(ctx, "failed to create deposit checkout session", "error", err)
		ctx = middleware.SetErrorCode(ctx, ErrCodeInternal)
		WriteError(w, ctx, ErrCodeInternal, "failed to create checkout session")
		return
	}

	// Provisional local state; the authoritative update arrives via webhook.
	if err := h.repo.UpsertDepositPending(ctx, email); err != nil {
		slog.WarnContext(ctx, "failed to mark deposit pending", "email", email, "error", err)
	}

	writeJSON(w, ctx, http.StatusOK, CheckoutResponse{SessionID: session.ID})
}

// StatusResponse represents a deposit status query result.
type StatusResponse struct {
	DepositStatus string     `json:"depositStatus"`
	DepositAmount *int64     `json:"depositAmount,omitempty"`
	DepositDate   *time.Time `json:"depositDate,omitempty"`
	HasDeposit    bool       `json:"hasDeposit"`
	IsPriority    bool       `json:"isPriority"`
}

// GetStatus returns the deposit status for an email.
// GET /deposits/status?email=
func (h *DepositHandlers) GetStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	email, err := validate.Email(r.URL.Query().Get("email"))
	if err != nil {
		ctx = middleware.SetErrorCode(ctx, ErrCodeValidation)
		WriteFieldError(w, ctx, "email", "a valid email is required")
		return
	}

	record, err := h.repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, waitlist.ErrNotFound) {
			ctx = middleware.SetErrorCode(ctx, ErrCodeNotFound)
			WriteError(w, ctx, ErrCodeNotFound, "email not on waitlist")
			return
		}
		slog.ErrorContext(ctx, "failed to get waitlist record", "error", err)
		ctx = middleware.SetErrorCode(ctx, ErrCodeInternal)
		WriteError(w, ctx, ErrCodeInternal, "failed to look up status")
		return
	}

	writeJSON(w, ctx, http.StatusOK, StatusResponse{
		DepositStatus: string(record.DepositStatus),
		DepositAmount: record.DepositAmount,
		DepositDate:   record.DepositDate,
		HasDeposit:    record.HasDeposit(),
		IsPriority:    record.IsPriority(),
	})
}

// ActionRequest represents an operator action against a deposit.
type ActionRequest struct {
	Email  string `json:"email"`
	Action string `json:"action"`
}

// ActionResponse represents the outcome of an operator action.
type ActionResponse struct {
	Success       bool   `json:"success"`
	DepositStatus string `json:"depositStatus"`
}

// PostAction executes an operator action. Only "refund" is supported:
// it cancels the Stripe authorization first and records the refunded state
// only after the gateway confirms, so the record never claims refunded while
// the gateway still holds the authorization.
// POST /deposits/status (operator token required)
func (h *DepositHandlers) PostAction(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req ActionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ctx = middleware.SetErrorCode(ctx, ErrCodeBadRequest)
		WriteError(w, ctx, ErrCodeBadRequest, "invalid request body")
		return
	}

	if req.Action != "refund" {
		ctx = middleware.SetErrorCode(ctx, ErrCodeUnsupportedAction)
		WriteError(w, ctx, ErrCodeUnsupportedAction, "unsupported action")
		return
	}

	email, err := validate.Email(req.Email)
	if err != nil {
		ctx = middleware.SetErrorCode(ctx, ErrCodeValidation)
		WriteFieldError(w, ctx, "email", "a valid email is required")
		return
	}

	record, err := h.repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, waitlist.ErrNotFound) {
			ctx = middleware.SetErrorCode(ctx, ErrCodeNotFound)
			WriteError(w, ctx, ErrCodeNotFound, "email not on waitlist")
			return
		}
		slog.ErrorContext(ctx, "failed to get waitlist record", "error", err)
		ctx = middleware.SetErrorCode(ctx, ErrCodeInternal)
		WriteError(w, ctx, ErrCodeInternal, "failed to look up record")
		return
	}

	if record.StripePaymentID == nil || *record.StripePaymentID == "" {
		ctx = middleware.SetErrorCode(ctx, ErrCodeBadRequest)
		WriteError(w, ctx, ErrCodeBadRequest, "no deposit authorization on record")
		return
	}

	if _, err := h.stripeClient.CancelPaymentIntent(*record.StripePaymentID); err != nil {
		slog.ErrorContext(ctx, "failed to cancel payment intent",
			"email", email,
			"payment_intent_id", *record.StripePaymentID,
			"error", err)
		ctx = middleware.SetErrorCode(ctx, ErrCodeInternal)
		WriteError(w, ctx, ErrCodeInternal, "gateway cancellation failed")
		return
	}

	if err := h.repo.ApplyDeposit(ctx, email, waitlist.DepositUpdate{
		Status:     waitlist.DepositRefunded,
		PaymentID:  *record.StripePaymentID,
		OccurredAt: time.Now(),
	}); err != nil {
		// The gateway hold is released; the local write failing is an
		// operator-visible inconsistency, not silent corruption.
		slog.ErrorContext(ctx, "cancelled at gateway but failed to record refund",
			"email", email,
			"error", err)
		ctx = middleware.SetErrorCode(ctx, ErrCodeInternal)
		WriteError(w, ctx, ErrCodeInternal, "refund recorded at gateway but not locally; retry")
		return
	}

	slog.InfoContext(ctx, "deposit refunded",
		"email", email,
		"operator", middleware.GetOperator(ctx))

	writeJSON(w, ctx, http.StatusOK, ActionResponse{
		Success:       true,
		DepositStatus: string(waitlist.DepositRefunded),
	})
}
