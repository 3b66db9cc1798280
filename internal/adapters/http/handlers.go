package http

import (
	"log/slog"
	"net/http"
)

func (h *Handler) healthz(w http.ResponseWriter, r *http.Request) {
	writeMessage(w, http.StatusOK, "ok")
}

func (h *Handler) readyz(w http.ResponseWriter, r *http.Request) {
	if h.readyFn != nil {
		if err := h.readyFn(); err != nil {
			slog.WarnContext(r.Context(), "readiness probe failed",
				slog.String("service", serviceName),
				slog.String("module", "http"),
				slog.String("layer", "adapter"),
				slog.String("operation", "readyz"),
				slog.String("outcome", "failure"),
				slog.String("error", err.Error()),
			)
			writeError(w, http.StatusServiceUnavailable, "NOT_READY", "dependencies unavailable", nil)
			return
		}
	}
	writeMessage(w, http.StatusOK, "ready")
}

// jwks exposes the active and retained RSA verification keys so resource
// servers can validate tokens across rotations.
func (h *Handler) jwks(w http.ResponseWriter, r *http.Request) {
	keys, err := h.signer.PublicJWKs()
	if err != nil {
		h.writeMappedError(r.Context(), w, "jwks", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"keys": keys})
}
