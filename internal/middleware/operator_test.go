package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/verifyhire/backend/internal/auth"
)

func TestOperatorAuth(t *testing.T) {
	jwtService := auth.NewJWTService("test-secret-key")
	token, err := jwtService.GenerateOperatorToken("ops@verifyhire.com")
	if err != nil {
		t.Fatalf("failed to generate token: %v", err)
	}

	otherService := auth.NewJWTService("wrong-secret")
	wrongToken, err := otherService.GenerateOperatorToken("ops@verifyhire.com")
	if err != nil {
		t.Fatalf("failed to generate token: %v", err)
	}

	tests := []struct {
		name       string
		authHeader string
		wantStatus int
	}{
		{
			name:       "valid token",
			authHeader: "Bearer " + token,
			wantStatus: http.StatusOK,
		},
		{
			name:       "missing header",
			authHeader: "",
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "malformed header",
			authHeader: "Token " + token,
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "empty bearer token",
			authHeader: "Bearer ",
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "token signed with wrong secret",
			authHeader: "Bearer " + wrongToken,
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "garbage token",
			authHeader: "Bearer not.a.jwt",
			wantStatus: http.StatusUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotOperator string
			handler := OperatorAuth(jwtService)(
				http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					gotOperator = GetOperator(r.Context())
					w.WriteHeader(http.StatusOK)
				}),
			)

			rec := httptest.NewRecorder()
			r := httptest.NewRequest(http.MethodPost, "/deposits/status", nil)
			if tt.authHeader != "" {
				r.Header.Set("Authorization", tt.authHeader)
			}
			handler.ServeHTTP(rec, r)

			if rec.Code != tt.wantStatus {
				t.Errorf("got status %d, want %d", rec.Code, tt.wantStatus)
			}
			if tt.wantStatus == http.StatusOK && gotOperator != "ops@verifyhire.com" {
				t.Errorf("expected operator subject in context, got %q", gotOperator)
			}
		})
	}
}
