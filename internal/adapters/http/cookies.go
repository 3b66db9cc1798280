package http

import (
	"net/http"

	"github.com/shoplane/identity-service/internal/application"
)

// Cookie names and paths are a compatibility contract with existing clients;
// do not change them without a coordinated rollout.
const (
	cookieAccessToken  = "access_token"
	cookieRefreshToken = "refresh_token"
	cookieDeviceTrust  = "device_trust"

	cookiePathRoot    = "/"
	cookiePathRefresh = "/api/v1/auth/refresh"

	accessCookieMaxAge  = 900
	refreshCookieMaxAge = 604800
)

// setSessionCookies writes the token cookies for an issued session. The
// device_trust cookie is set only when a trust was minted this request.
func setSessionCookies(w http.ResponseWriter, issued *application.IssuedSession, deviceTrustMaxAge int) {
	http.SetCookie(w, &http.Cookie{
		Name:     cookieAccessToken,
		Value:    issued.AccessToken,
		Path:     cookiePathRoot,
		MaxAge:   accessCookieMaxAge,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteStrictMode,
	})
	http.SetCookie(w, &http.Cookie{
		Name:     cookieRefreshToken,
		Value:    issued.RefreshToken,
		Path:     cookiePathRefresh,
		MaxAge:   refreshCookieMaxAge,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteStrictMode,
	})
	if issued.DeviceTrustID != "" {
		http.SetCookie(w, &http.Cookie{
			Name:     cookieDeviceTrust,
			Value:    issued.DeviceTrustID,
			Path:     cookiePathRoot,
			MaxAge:   deviceTrustMaxAge,
			HttpOnly: true,
			Secure:   true,
			SameSite: http.SameSiteStrictMode,
		})
	}
}

// clearSessionCookies expires the token cookies on logout. The device_trust
// cookie survives: trust outlives any single session.
func clearSessionCookies(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     cookieAccessToken,
		Value:    "",
		Path:     cookiePathRoot,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteStrictMode,
	})
	http.SetCookie(w, &http.Cookie{
		Name:     cookieRefreshToken,
		Value:    "",
		Path:     cookiePathRefresh,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteStrictMode,
	})
}

func cookieValue(r *http.Request, name string) string {
	c, err := r.Cookie(name)
	if err != nil {
		return ""
	}
	return c.Value
}
