package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/verifyhire/backend/internal/middleware"
	"github.com/verifyhire/backend/internal/notify"
	"github.com/verifyhire/backend/internal/validate"
)

// contactMessageMaxLen bounds the free-text message body.
const contactMessageMaxLen = 4000

// ContactHandlers relays contact form submissions to the notifier.
type ContactHandlers struct {
	notifier notify.Notifier
}

// NewContactHandlers creates a new ContactHandlers instance.
func NewContactHandlers(notifier notify.Notifier) *ContactHandlers {
	return &ContactHandlers{notifier: notifier}
}

// ContactRequest represents a contact form submission.
type ContactRequest struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Company string `json:"company,omitempty"`
	Message string `json:"message"`
}

// ContactResponse acknowledges a relayed contact message.
type ContactResponse struct {
	Success bool `json:"success"`
}

// Submit relays a contact message.
// POST /contact
func (h *ContactHandlers) Submit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req ContactRequest
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

	name, err := validate.String(req.Name, validate.StringConstraints{MaxLength: 200, TrimSpace: true})
	if err != nil {
		ctx = middleware.SetErrorCode(ctx, ErrCodeValidation)
		WriteFieldError(w, ctx, "name", "name is required")
		return
	}

	message, err := validate.String(req.Message, validate.StringConstraints{MaxLength: contactMessageMaxLen, TrimSpace: true})
	if err != nil {
		ctx = middleware.SetErrorCode(ctx, ErrCodeValidation)
		WriteFieldError(w, ctx, "message", "message is required")
		return
	}

	company, _ := validate.String(req.Company, validate.StringConstraints{MaxLength: 200, TrimSpace: true, AllowEmpty: true})

	msg := notify.ContactMessage{
		Name:    name,
		Email:   email,
		Company: company,
		Message: message,
	}
	if err := h.notifier.SendContact(ctx, msg); err != nil {
		slog.ErrorContext(ctx, "failed to relay contact message", "error", err)
		ctx = middleware.SetErrorCode(ctx, ErrCodeInternal)
		WriteError(w, ctx, ErrCodeInternal, "failed to send message, please try again")
		return
	}

	writeJSON(w, ctx, http.StatusOK, ContactResponse{Success: true})
}
