package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/verifyhire/backend/internal/notify"
	"github.com/verifyhire/backend/internal/waitlist"
)

func newJoinTestHandlers(t *testing.T) (*WaitlistHandlers, *notify.InMemoryNotifier) {
	t.Helper()
	notifier := notify.NewInMemoryNotifier()
	service := waitlist.NewService(waitlist.NewInMemoryRepository(), notifier, nil)
	return NewWaitlistHandlers(service), notifier
}

func TestJoin_Success(t *testing.T) {
	handlers, notifier := newJoinTestHandlers(t)

	body := `{"email": "new@company.com", "employeeCount": "50-200", "hrisSystem": "workday"}`
	req := httptest.NewRequest(http.MethodPost, "/waitlist/join", strings.NewReader(body))
	w := httptest.NewRecorder()
	handlers.Join(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp JoinResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if !resp.Success {
		t.Error("expected success=true")
	}
	if resp.AlreadyExists {
		t.Error("expected alreadyExists=false")
	}
	if !resp.EmailSent {
		t.Error("expected emailSent=true")
	}
	if resp.ID == "" {
		t.Error("expected a record id")
	}

	welcomes := notifier.Welcomes()
	if len(welcomes) != 1 || welcomes[0] != "new@company.com" {
		t.Errorf("expected one welcome to new@company.com, got %v", welcomes)
	}
}

func TestJoin_Duplicate(t *testing.T) {
	handlers, notifier := newJoinTestHandlers(t)

	body := `{"email": "dup@company.com"}`
	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/waitlist/join", strings.NewReader(body))
		w := httptest.NewRecorder()
		handlers.Join(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("call %d: expected status 200, got %d", i+1, w.Code)
		}

		var resp JoinResponse
		if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if i == 1 && !resp.AlreadyExists {
			t.Error("expected alreadyExists=true on second join")
		}
	}

	if got := len(notifier.Welcomes()); got != 1 {
		t.Errorf("expected exactly one welcome notification, got %d", got)
	}
}

func TestJoin_InvalidEmail(t *testing.T) {
	handlers, notifier := newJoinTestHandlers(t)

	req := httptest.NewRequest(http.MethodPost, "/waitlist/join", strings.NewReader(`{"email": "not-an-email"}`))
	w := httptest.NewRecorder()
	handlers.Join(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", w.Code)
	}

	var errResp ErrorResponse
	if err := json.NewDecoder(w.Body).Decode(&errResp); err != nil {
		t.Fatalf("failed to decode error response: %v", err)
	}
	if errResp.Error.Code != ErrCodeValidation {
		t.Errorf("expected error code %s, got %s", ErrCodeValidation, errResp.Error.Code)
	}
	if errResp.Error.Field != "email" {
		t.Errorf("expected field email, got %s", errResp.Error.Field)
	}
	if len(notifier.Welcomes()) != 0 {
		t.Error("no notification should be attempted for invalid email")
	}
}

func TestJoin_NotificationFailure(t *testing.T) {
	notifier := notify.NewInMemoryNotifier()
	notifier.FailWith(errAlwaysDown)
	service := waitlist.NewService(waitlist.NewInMemoryRepository(), notifier, nil)
	handlers := NewWaitlistHandlers(service)

	req := httptest.NewRequest(http.MethodPost, "/waitlist/join", strings.NewReader(`{"email": "a@x.com"}`))
	w := httptest.NewRecorder()
	handlers.Join(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}

	var resp JoinResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if !resp.Success {
		t.Error("expected success=true despite notification failure")
	}
	if resp.EmailSent {
		t.Error("expected emailSent=false when notification fails")
	}
}

func TestJoin_MalformedBody(t *testing.T) {
	handlers, _ := newJoinTestHandlers(t)

	req := httptest.NewRequest(http.MethodPost, "/waitlist/join", strings.NewReader(`{not json`))
	w := httptest.NewRecorder()
	handlers.Join(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d", w.Code)
	}
}
