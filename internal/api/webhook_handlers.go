package api

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/stripe/stripe-go/v81"
	"github.com/stripe/stripe-go/v81/webhook"

	"github.com/verifyhire/backend/internal/middleware"
	"github.com/verifyhire/backend/internal/payment"
	"github.com/verifyhire/backend/internal/waitlist"
)

// Webhook event outcomes for metrics.
const (
	outcomeProcessed = "processed"
	outcomeDuplicate = "duplicate"
	outcomeUnhandled = "unhandled"
	outcomeSkipped   = "skipped"
	outcomeError     = "error"
)

// WebhookHandlers holds dependencies for Stripe webhook processing.
type WebhookHandlers struct {
	webhookSecret string
	repo          waitlist.Repository
	webhookRepo   payment.WebhookRepository
	stripeClient  payment.Client
	metrics       *middleware.Metrics
}

// NewWebhookHandlers creates a new WebhookHandlers instance.
// metrics may be nil.
func NewWebhookHandlers(
	webhookSecret string,
	repo waitlist.Repository,
	webhookRepo payment.WebhookRepository,
	stripeClient payment.Client,
	metrics *middleware.Metrics,
) *WebhookHandlers {
	return &WebhookHandlers{
		webhookSecret: webhookSecret,
		repo:          repo,
		webhookRepo:   webhookRepo,
		stripeClient:  stripeClient,
		metrics:       metrics,
	}
}

// receivedResponse acknowledges a webhook delivery.
type receivedResponse struct {
	Received bool `json:"received"`
}

// HandleStripeWebhook processes Stripe webhook events with signature verification.
//
// Everything past the signature gate acknowledges with 200 unless the failure
// is one Stripe can usefully retry (persistence errors). Stale, duplicate, or
// unattributable events are logged and acked so the gateway stops redelivering
// them.
//
// POST /internal/stripe
func (h *WebhookHandlers) HandleStripeWebhook(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	body, err := io.ReadAll(r.Body)
	if err != nil {
		ctx = middleware.SetErrorCode(ctx, ErrCodeBadRequest)
		WriteError(w, ctx, ErrCodeBadRequest, "failed to read request body")
		return
	}

	signature := r.Header.Get("Stripe-Signature")
	if signature == "" {
		ctx = middleware.SetErrorCode(ctx, ErrCodeInvalidSignature)
		WriteError(w, ctx, ErrCodeInvalidSignature, "missing Stripe-Signature header")
		return
	}

	event, err := webhook.ConstructEvent(body, signature, h.webhookSecret)
	if err != nil {
		slog.WarnContext(ctx, "webhook signature verification failed", "error", err)
		ctx = middleware.SetErrorCode(ctx, ErrCodeInvalidSignature)
		WriteError(w, ctx, ErrCodeInvalidSignature, "invalid signature")
		return
	}

	// Log minimal event info (type and ID only, not full payload)
	slog.InfoContext(ctx, "webhook event received", "event_type", event.Type, "event_id", event.ID)

	// Idempotency: a previously processed event is acknowledged without
	// reprocessing. The event is recorded in the ledger only after it has
	// been handled, so a failed delivery is retried by Stripe rather than
	// acked as a duplicate. Two concurrent deliveries can both pass this
	// check; the guarded state transitions make reprocessing harmless.
	processed, err := h.webhookRepo.HasProcessed(ctx, event.ID)
	if err != nil {
		slog.ErrorContext(ctx, "failed to check webhook event ledger", "event_id", event.ID, "error", err)
		h.countEvent(string(event.Type), outcomeError)
		ctx = middleware.SetErrorCode(ctx, ErrCodeInternal)
		WriteError(w, ctx, ErrCodeInternal, "failed to process webhook")
		return
	}
	if processed {
		slog.InfoContext(ctx, "webhook event already processed, ignoring", "event_id", event.ID)
		h.countEvent(string(event.Type), outcomeDuplicate)
		writeJSON(w, ctx, http.StatusOK, receivedResponse{Received: true})
		return
	}

	depositEvent, err := payment.ClassifyEvent(event)
	if err != nil {
		// Known event type with an unparseable payload: 500 so Stripe redelivers.
		slog.ErrorContext(ctx, "failed to classify webhook event", "event_id", event.ID, "error", err)
		h.countEvent(string(event.Type), outcomeError)
		ctx = middleware.SetErrorCode(ctx, ErrCodeInternal)
		WriteError(w, ctx, ErrCodeInternal, "failed to process webhook")
		return
	}

	var processErr error
	switch depositEvent.Kind {
	case payment.EventCheckoutCompleted:
		processErr = h.handleCheckoutCompleted(ctx, depositEvent)
	case payment.EventPaymentCaptured:
		processErr = h.applyIntentTransition(ctx, depositEvent, waitlist.DepositCaptured)
	case payment.EventPaymentFailed:
		processErr = h.applyIntentTransition(ctx, depositEvent, waitlist.DepositFailed)
	case payment.EventPaymentCanceled:
		processErr = h.applyIntentTransition(ctx, depositEvent, waitlist.DepositRefunded)
	default:
		slog.InfoContext(ctx, "ignoring unhandled webhook event type",
			"event_type", event.Type, "event_id", event.ID)
		h.countEvent(string(event.Type), outcomeUnhandled)
		writeJSON(w, ctx, http.StatusOK, receivedResponse{Received: true})
		return
	}

	if processErr != nil {
		slog.ErrorContext(ctx, "webhook event processing failed",
			"event_type", event.Type, "event_id", event.ID, "error", processErr)
		h.countEvent(string(event.Type), outcomeError)
		ctx = middleware.SetErrorCode(ctx, ErrCodeInternal)
		WriteError(w, ctx, ErrCodeInternal, "failed to process webhook")
		return
	}

	// Record only after successful handling. If this write fails the event
	// is still acked: the state change is applied and redelivery is idempotent.
	if err := h.webhookRepo.RecordEvent(ctx, event.ID, string(event.Type)); err != nil &&
		!errors.Is(err, payment.ErrEventAlreadyProcessed) {
		slog.WarnContext(ctx, "failed to record processed webhook event", "event_id", event.ID, "error", err)
	}

	h.countEvent(string(event.Type), outcomeProcessed)
	writeJSON(w, ctx, http.StatusOK, receivedResponse{Received: true})
}

// handleCheckoutCompleted processes checkout.session.completed events.
// The session's embedded payment intent status can be stale, so the intent
// is re-fetched from Stripe: requires_capture means the hold was placed.
func (h *WebhookHandlers) handleCheckoutCompleted(ctx context.Context, event *payment.DepositEvent) error {
	email := event.SessionEmail()
	if email == "" {
		slog.WarnContext(ctx, "checkout session completed without an email, skipping",
			"event_id", event.ID)
		h.countEvent(event.Type, outcomeSkipped)
		return nil
	}

	session := event.Session
	if session.PaymentIntent == nil || session.PaymentIntent.ID == "" {
		slog.WarnContext(ctx, "checkout session completed without a payment intent, skipping",
			"event_id", event.ID, "session_id", session.ID)
		h.countEvent(event.Type, outcomeSkipped)
		return nil
	}
	intentID := session.PaymentIntent.ID

	intent, err := h.stripeClient.GetPaymentIntent(intentID)
	if err != nil {
		return err
	}

	status := waitlist.DepositPending
	if intent.Status == stripe.PaymentIntentStatusRequiresCapture {
		status = waitlist.DepositAuthorized
	}

	amount := session.AmountTotal
	if amount == 0 {
		amount = intent.Amount
	}

	err = h.repo.ApplyDeposit(ctx, email, waitlist.DepositUpdate{
		Status:     status,
		PaymentID:  intentID,
		Amount:     amount,
		OccurredAt: event.CreatedAt,
	})
	return h.swallowStaleTransition(ctx, event, email, err)
}

// applyIntentTransition processes the payment_intent.* event kinds.
// The email comes from the intent's own metadata, never the session.
func (h *WebhookHandlers) applyIntentTransition(ctx context.Context, event *payment.DepositEvent, status waitlist.DepositStatus) error {
	email := event.IntentEmail()
	if email == "" {
		slog.WarnContext(ctx, "payment intent event without waitlist email metadata, skipping",
			"event_type", event.Type, "event_id", event.ID)
		h.countEvent(event.Type, outcomeSkipped)
		return nil
	}

	err := h.repo.ApplyDeposit(ctx, email, waitlist.DepositUpdate{
		Status:     status,
		PaymentID:  event.Intent.ID,
		OccurredAt: event.CreatedAt,
	})
	return h.swallowStaleTransition(ctx, event, email, err)
}

// swallowStaleTransition converts ordering conflicts into acknowledged no-ops.
// A transition the state machine rejects means this delivery is stale or out
// of order relative to state we already hold; retrying it would never
// succeed, so the event is acked. Unknown emails and payment-id mismatches
// are likewise terminal for this delivery. Real persistence failures are
// returned so the gateway retries.
func (h *WebhookHandlers) swallowStaleTransition(ctx context.Context, event *payment.DepositEvent, email string, err error) error {
	if err == nil {
		return nil
	}

	var terr *waitlist.ErrInvalidTransition
	switch {
	case errors.As(err, &terr):
		slog.WarnContext(ctx, "ignoring stale webhook transition",
			"event_type", event.Type,
			"event_id", event.ID,
			"email", email,
			"from", terr.From,
			"to", terr.To)
		h.countEvent(event.Type, outcomeSkipped)
		return nil
	case errors.Is(err, waitlist.ErrNotFound):
		slog.WarnContext(ctx, "webhook event for unknown email, skipping",
			"event_type", event.Type, "event_id", event.ID, "email", email)
		h.countEvent(event.Type, outcomeSkipped)
		return nil
	case errors.Is(err, waitlist.ErrPaymentIDMismatch):
		slog.ErrorContext(ctx, "webhook payment id does not match stored authorization",
			"event_type", event.Type, "event_id", event.ID, "email", email)
		h.countEvent(event.Type, outcomeSkipped)
		return nil
	default:
		return err
	}
}

func (h *WebhookHandlers) countEvent(eventType, outcome string) {
	if h.metrics != nil {
		h.metrics.IncWebhookEvent(eventType, outcome)
	}
}
