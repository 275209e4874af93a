// Package api provides HTTP handlers for the VerifyHire API.
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/verifyhire/backend/internal/middleware"
	"github.com/verifyhire/backend/internal/waitlist"
)

// WaitlistHandlers holds dependencies for waitlist-related HTTP handlers.
type WaitlistHandlers struct {
	service *waitlist.Service
}

// NewWaitlistHandlers creates a new WaitlistHandlers instance.
func NewWaitlistHandlers(service *waitlist.Service) *WaitlistHandlers {
	return &WaitlistHandlers{service: service}
}

// JoinRequest represents the request body for joining the waitlist.
type JoinRequest struct {
	Email         string `json:"email"`
	EmployeeCount string `json:"employeeCount,omitempty"`
	HRISSystem    string `json:"hrisSystem,omitempty"`
}

// JoinResponse represents the response for a waitlist join attempt.
type JoinResponse struct {
	Success       bool   `json:"success"`
	AlreadyExists bool   `json:"alreadyExists,omitempty"`
	EmailSent     bool   `json:"emailSent"`
	Message       string `json:"message"`
	ID            string `json:"id,omitempty"`
}

// Join adds an email to the waitlist.
// POST /waitlist/join
func (h *WaitlistHandlers) Join(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req JoinRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ctx = middleware.SetErrorCode(ctx, ErrCodeBadRequest)
		WriteError(w, ctx, ErrCodeBadRequest, "invalid request body")
		return
	}

	result, err := h.service.Join(ctx, waitlist.JoinInput{
		Email:         req.Email,
		EmployeeCount: req.EmployeeCount,
		HRISSystem:    req.HRISSystem,
	})
	if err != nil {
		var verr *waitlist.ErrValidation
		if errors.As(err, &verr) {
			ctx = middleware.SetErrorCode(ctx, ErrCodeValidation)
			WriteFieldError(w, ctx, verr.Field, verr.Err.Error())
			return
		}
		slog.ErrorContext(ctx, "waitlist join failed", "error", err)
		ctx = middleware.SetErrorCode(ctx, ErrCodeInternal)
		WriteError(w, ctx, ErrCodeInternal, "something went wrong, please try again")
		return
	}

	resp := JoinResponse{
		Success:       result.Success,
		AlreadyExists: result.AlreadyExists,
		EmailSent:     result.EmailSent,
		ID:            result.ID,
	}
	if result.AlreadyExists {
		resp.Message = "you're already on the waitlist"
	} else {
		resp.Message = "you're on the waitlist"
	}

	writeJSON(w, ctx, http.StatusOK, resp)
}
