package http

import (
	"net/http"

	"github.com/shoplane/identity-service/internal/application"
)

func (h *Handler) signin(w http.ResponseWriter, r *http.Request) {
	var req application.SigninRequest
	if err := decodeBody(r, &req); err != nil {
		writeValidationError(r.Context(), w, "signin", err)
		return
	}
	req.IPAddress = readIP(r)
	req.UserAgent = r.UserAgent()
	req.DeviceTrustToken = cookieValue(r, cookieDeviceTrust)

	res, err := h.service.Signin(r.Context(), req)
	if err != nil {
		h.writeMappedError(r.Context(), w, "signin", err)
		return
	}
	if res.Session != nil {
		setSessionCookies(w, res.Session, h.deviceTrustMaxAge)
	}
	writeSuccess(w, http.StatusOK, res)
}

func (h *Handler) mfaVerify(w http.ResponseWriter, r *http.Request) {
	var req application.MFAVerifyRequest
	if err := decodeBody(r, &req); err != nil {
		writeValidationError(r.Context(), w, "mfa_verify", err)
		return
	}
	req.IPAddress = readIP(r)
	req.UserAgent = r.UserAgent()

	res, err := h.service.VerifyMFA(r.Context(), req)
	if err != nil {
		h.writeMappedError(r.Context(), w, "mfa_verify", err)
		return
	}
	if res.Session != nil {
		setSessionCookies(w, res.Session, h.deviceTrustMaxAge)
	}
	writeSuccess(w, http.StatusOK, res)
}

func (h *Handler) mfaResend(w http.ResponseWriter, r *http.Request) {
	var req application.MFAResendRequest
	if err := decodeBody(r, &req); err != nil {
		writeValidationError(r.Context(), w, "mfa_resend", err)
		return
	}
	req.IPAddress = readIP(r)
	req.UserAgent = r.UserAgent()

	res, err := h.service.ResendMFA(r.Context(), req)
	if err != nil {
		h.writeMappedError(r.Context(), w, "mfa_resend", err)
		return
	}
	writeSuccess(w, http.StatusOK, res)
}

// refresh authenticates with the path-restricted refresh cookie, not the
// access token, so it sits outside the auth middleware group.
func (h *Handler) refresh(w http.ResponseWriter, r *http.Request) {
	raw := cookieValue(r, cookieRefreshToken)
	if raw == "" {
		var err error
		raw, err = bearerTokenFromHeader(r.Header.Get("Authorization"))
		if err != nil {
			writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing refresh token", nil)
			return
		}
	}

	issued, err := h.service.Refresh(r.Context(), raw)
	if err != nil {
		h.writeMappedError(r.Context(), w, "refresh", err)
		return
	}
	setSessionCookies(w, &issued, h.deviceTrustMaxAge)
	writeSuccess(w, http.StatusOK, map[string]any{
		"userId":    issued.UserID,
		"expiresIn": issued.AccessExpiresIn,
	})
}

func (h *Handler) logout(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "invalid or missing credentials", nil)
		return
	}
	if err := h.service.Logout(r.Context(), claims); err != nil {
		h.writeMappedError(r.Context(), w, "logout", err)
		return
	}
	clearSessionCookies(w)
	writeMessage(w, http.StatusOK, "logged out")
}
