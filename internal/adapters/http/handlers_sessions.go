package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/shoplane/identity-service/internal/application"
)

func (h *Handler) listSessions(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "invalid or missing credentials", nil)
		return
	}
	items, err := h.service.ListSessions(r.Context(), claims.UserID, claims.SessionID)
	if err != nil {
		h.writeMappedError(r.Context(), w, "list_sessions", err)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]any{"sessions": items})
}

func (h *Handler) revokeSession(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "invalid or missing credentials", nil)
		return
	}
	sessionID := chi.URLParam(r, "session_id")
	if sessionID == "" {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "session_id is required", nil)
		return
	}
	if err := h.service.RevokeSession(r.Context(), claims.UserID, sessionID); err != nil {
		h.writeMappedError(r.Context(), w, "revoke_session", err)
		return
	}
	if sessionID == claims.SessionID {
		clearSessionCookies(w)
	}
	writeMessage(w, http.StatusOK, "session revoked")
}

func (h *Handler) mfaSetup(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "invalid or missing credentials", nil)
		return
	}
	var req application.MFASetupRequest
	if err := decodeBody(r, &req); err != nil {
		writeValidationError(r.Context(), w, "mfa_setup", err)
		return
	}
	res, err := h.service.SetupMFA(r.Context(), claims.UserID, req)
	if err != nil {
		h.writeMappedError(r.Context(), w, "mfa_setup", err)
		return
	}
	writeSuccess(w, http.StatusOK, res)
}

func (h *Handler) loginHistory(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "invalid or missing credentials", nil)
		return
	}
	q := r.URL.Query()
	limit := parseIntDefault(q.Get("limit"), 50)
	offset := parseIntDefault(q.Get("offset"), 0)
	days := parseIntDefault(q.Get("days"), 0)
	status := q.Get("status")

	var since time.Time
	if days > 0 {
		since = time.Now().UTC().AddDate(0, 0, -days)
	}

	items, err := h.service.ListLoginHistory(r.Context(), claims.UserID, limit, offset, since, status)
	if err != nil {
		h.writeMappedError(r.Context(), w, "login_history", err)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]any{
		"attempts": items,
		"limit":    limit,
		"offset":   offset,
	})
}
