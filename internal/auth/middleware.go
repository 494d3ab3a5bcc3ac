package auth

import (
	"net/http"
	"strings"

	"github.com/remotehive-dev/Spark-Configurator/internal/common"
	"github.com/remotehive-dev/Spark-Configurator/internal/obs"
)

// Middleware authenticates requests from either an Authorization bearer
// header (API clients) or the session cookie set at login (the browser).
type Middleware struct {
	Service      *Service
	AccessCookie string
}

func rejectUnauthenticated(w http.ResponseWriter) {
	common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing or invalid token", nil)
}

// RequireAuth stores the caller's id and roles on the request context.
func (m Middleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := m.token(r)
		if raw == "" || m.Service == nil {
			rejectUnauthenticated(w)
			return
		}
		p, err := m.Service.ParseAccessToken(raw)
		if err != nil {
			common.WriteError(w, err)
			return
		}
		obs.NoteCaller(r.Context(), p.UserID, p.Roles)
		ctx := common.WithRoles(common.WithUserID(r.Context(), p.UserID), p.Roles)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireRole admits callers holding any one of roles. It must run after
// RequireAuth.
func RequireRole(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := common.UserID(r.Context()); !ok {
				rejectUnauthenticated(w)
				return
			}
			for _, role := range roles {
				if common.HasRole(r.Context(), role) {
					next.ServeHTTP(w, r)
					return
				}
			}
			common.WriteError(w, common.Forbidden("insufficient role").WithDetails(map[string]any{"required": roles}))
		})
	}
}

// token prefers the bearer header so API clients are unaffected by a stale
// browser cookie.
func (m Middleware) token(r *http.Request) string {
	scheme, value, _ := strings.Cut(strings.TrimSpace(r.Header.Get("Authorization")), " ")
	if strings.EqualFold(scheme, "bearer") {
		if v := strings.TrimSpace(value); v != "" {
			return v
		}
	}
	if m.AccessCookie == "" {
		return ""
	}
	c, err := r.Cookie(m.AccessCookie)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(c.Value)
}
