package apiframework

import (
	"context"
	"net/http"
	"strings"

	"github.com/contenox/pkgbot/libauth"
)

type claimsKey struct{}

// ClaimsFromContext returns the caller's claims set by RequireRole, or nil
// when auth is disabled.
func ClaimsFromContext(ctx context.Context) *libauth.Claims {
	c, _ := ctx.Value(claimsKey{}).(*libauth.Claims)
	return c
}

// RequireRole validates the bearer token and checks the caller's role before
// calling next. With auth disabled it calls next directly.
func RequireRole(cfg *libauth.Config, role libauth.Role, next http.HandlerFunc) http.HandlerFunc {
	if !cfg.Enabled() {
		return next
	}
	return func(w http.ResponseWriter, r *http.Request) {
		token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok {
			_ = Error(w, r, libauth.ErrTokenMissing, GetOperation)
			return
		}
		claims, err := libauth.ValidateToken(cfg, strings.TrimSpace(token))
		if err != nil {
			_ = Error(w, r, err, GetOperation)
			return
		}
		if !claims.Role.Allows(role) {
			_ = Error(w, r, libauth.ErrInsufficientRole, AuthorizeOperation)
			return
		}
		next(w, r.WithContext(context.WithValue(r.Context(), claimsKey{}, claims)))
	}
}
