package api

import (
	"net/http"

	"github.com/verifyhire/backend/internal/middleware"
)

// InfoHandlers serves the service-info root endpoint.
type InfoHandlers struct {
	serviceName string
	version     string
	comingSoon  bool
}

// NewInfoHandlers creates a new InfoHandlers instance.
func NewInfoHandlers(serviceName, version string, comingSoon bool) *InfoHandlers {
	return &InfoHandlers{
		serviceName: serviceName,
		version:     version,
		comingSoon:  comingSoon,
	}
}

// InfoResponse represents the service info payload.
type InfoResponse struct {
	Service    string `json:"service"`
	Version    string `json:"version"`
	ComingSoon bool   `json:"comingSoon"`
}

// Root handles GET /.
// Requests for any other path fall through to this handler on the stdlib
// mux, so unknown paths get a 404 here.
func (h *InfoHandlers) Root(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if r.URL.Path != "/" {
		ctx = middleware.SetErrorCode(ctx, ErrCodeNotFound)
		WriteError(w, ctx, ErrCodeNotFound, "not found")
		return
	}

	writeJSON(w, ctx, http.StatusOK, InfoResponse{
		Service:    h.serviceName,
		Version:    h.version,
		ComingSoon: h.comingSoon,
	})
}
