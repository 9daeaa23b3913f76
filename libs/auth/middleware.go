package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/litespace/availability/libs/httpx"
)

const (
	HeaderUserID = "X-User-Id"
	HeaderRole   = "X-Role"
)

// Principal is the authenticated caller.
type Principal struct {
	UserID string
	Role   string
}

type ctxKey struct{}

func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(ctxKey{}).(Principal)
	return p, ok
}

func ContextWithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, ctxKey{}, p)
}

// RequireAuth verifies the bearer token and stores the caller in the request
// context. With an empty secret it trusts X-User-Id and X-Role set by the
// gateway in front of the service.
func RequireAuth(secret string) httpx.Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var p Principal
			if secret == "" {
				p = Principal{UserID: r.Header.Get(HeaderUserID), Role: r.Header.Get(HeaderRole)}
				if p.UserID == "" {
					httpx.WriteError(w, http.StatusUnauthorized, "missing user identity")
					return
				}
			} else {
				authHeader := r.Header.Get("Authorization")
				token, ok := strings.CutPrefix(authHeader, "Bearer ")
				if !ok || strings.TrimSpace(token) == "" {
					httpx.WriteError(w, http.StatusUnauthorized, "missing or invalid Authorization header")
					return
				}
				claims, err := ParseAndVerifyHS256(strings.TrimSpace(token), secret)
				if err != nil {
					httpx.WriteError(w, http.StatusUnauthorized, "invalid token")
					return
				}
				p = Principal{UserID: claims.Subject, Role: claims.Role}
			}

			r.Header.Set(HeaderUserID, p.UserID)
			r.Header.Set(HeaderRole, p.Role)
			next.ServeHTTP(w, r.WithContext(ContextWithPrincipal(r.Context(), p)))
		})
	}
}

// RequireRole answers 403 unless the authenticated caller has one of roles.
func RequireRole(roles ...string) httpx.Middleware {
	allowed := map[string]struct{}{}
	for _, r := range roles {
		allowed[r] = struct{}{}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, _ := PrincipalFromContext(r.Context())
			if _, ok := allowed[p.Role]; !ok {
				httpx.WriteError(w, http.StatusForbidden, "forbidden")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
