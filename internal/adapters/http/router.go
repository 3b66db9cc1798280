package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/shoplane/identity-service/internal/application"
	"github.com/shoplane/identity-service/internal/ports"
)

// Handler is the HTTP adapter entrypoint for the authentication core.
type Handler struct {
	service *application.Service
	signer  ports.TokenSigner

	deviceTrustMaxAge int
	passwordResetURL  string
	readyFn           func() error
}

type HandlerConfig struct {
	DeviceTrustMaxAge int
	PasswordResetURL  string
	// ReadyFn reports downstream health for /readyz; nil means always ready.
	ReadyFn func() error
}

func NewHandler(service *application.Service, signer ports.TokenSigner, cfg HandlerConfig) *Handler {
	if cfg.DeviceTrustMaxAge <= 0 {
		cfg.DeviceTrustMaxAge = 30 * 24 * 3600
	}
	return &Handler{
		service:           service,
		signer:            signer,
		deviceTrustMaxAge: cfg.DeviceTrustMaxAge,
		passwordResetURL:  cfg.PasswordResetURL,
		readyFn:           cfg.ReadyFn,
	}
}

// NewRouter registers routes and the middleware stack.
func NewRouter(handler *Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(recoverMiddleware)
	r.Use(loggingMiddleware)

	r.Get("/healthz", handler.healthz)
	r.Get("/readyz", handler.readyz)
	r.Get("/.well-known/jwks.json", handler.jwks)

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.Post("/signin", handler.signin)
		r.Post("/mfa/verify", handler.mfaVerify)
		r.Post("/mfa/resend", handler.mfaResend)
		r.Post("/refresh", handler.refresh)

		r.Group(func(r chi.Router) {
			r.Use(handler.authMiddleware)
			r.Post("/logout", handler.logout)
			r.Get("/sessions", handler.listSessions)
			r.Delete("/sessions/{session_id}", handler.revokeSession)
			r.Post("/mfa/setup", handler.mfaSetup)
			r.Get("/login-history", handler.loginHistory)
		})
	})

	return r
}
