package sec

import (
	"context"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/zeptools/certgw/responses"
)

type ctxKey struct{}

// AdminAuth rejects requests without a valid RS256 bearer token.
// It satisfies routing.HandlerWrapper.
type AdminAuth struct {
	Keys   *JWKS
	Issuer string           // expected "iss". empty -> not checked
	Now    func() time.Time // nil -> time.Now
}

func (a AdminAuth) Wrap(inner http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := bearerToken(r.Header.Get("Authorization"))
		if raw == "" {
			w.Header().Set("WWW-Authenticate", `Bearer realm="certgw"`)
			responses.Error(w, http.StatusUnauthorized, "missing bearer token")
			return
		}
		claims, err := ParseRSASignedToken(raw, a.Keys, a.Issuer, a.Now)
		if err != nil {
			log.Printf("[WARN][SEC] rejected admin token: %v", err)
			w.Header().Set("WWW-Authenticate", `Bearer realm="certgw", error="invalid_token"`)
			responses.Error(w, http.StatusUnauthorized, "invalid token")
			return
		}
		inner.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, claims)))
	})
}

// AdminFromContext returns the claims accepted by AdminAuth
func AdminFromContext(ctx context.Context) (*AdminClaims, bool) {
	c, ok := ctx.Value(ctxKey{}).(*AdminClaims)
	return c, ok
}

// bearerToken returns the credentials of an `Authorization: Bearer` header, or "".
// The scheme is matched case-insensitively.
func bearerToken(header string) string {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}
