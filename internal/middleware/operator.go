package middleware

import (
	"net/http"
	"strings"

	"github.com/verifyhire/backend/internal/auth"
)

// OperatorAuth guards endpoints that require an operator token.
// It expects an Authorization header of the form "Bearer <jwt>" signed
// with the operator secret and carrying the operator role. On success
// the operator subject is stored in the request context for logging.
func OperatorAuth(jwtService *auth.JWTService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || token == "" {
				unauthorized(w, r)
				return
			}

			claims, err := jwtService.ValidateOperatorToken(token)
			if err != nil {
				unauthorized(w, r)
				return
			}

			ctx := SetOperator(r.Context(), claims.Subject)
			UpdateResponseContext(w, ctx)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func unauthorized(w http.ResponseWriter, r *http.Request) {
	ctx := SetErrorCode(r.Context(), "auth_failed")
	UpdateResponseContext(w, ctx)
	w.Header().Set("WWW-Authenticate", `Bearer realm="operator"`)
	http.Error(w, "Unauthorized", http.StatusUnauthorized)
}
