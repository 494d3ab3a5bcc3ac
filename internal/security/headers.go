package security

import (
	"net/http"
	"strconv"
	"strings"
)

// DefaultContentSecurityPolicy permits the inline styles of printable
// proposals and nothing else.
const DefaultContentSecurityPolicy = "default-src 'none'; style-src 'unsafe-inline'; img-src 'self' data:; frame-ancestors 'none'"

// Headers adds hardening headers to responses. HSTS is only sent on
// requests that arrived over TLS, directly or via a proxy that sets
// X-Forwarded-Proto. API responses are marked no-store because quotes and
// proposals carry per-student pricing.
type Headers struct {
	Enable                bool
	EnableHSTS            bool
	HSTSMaxAge            int
	HSTSIncludeSubdomains bool
	ContentSecurityPolicy string
}

func (h Headers) static() [][2]string {
	set := [][2]string{
		{"X-Content-Type-Options", "nosniff"},
		{"X-Frame-Options", "DENY"},
		{"Referrer-Policy", "no-referrer"},
		{"Permissions-Policy", "geolocation=(), microphone=(), camera=()"},
	}
	if h.ContentSecurityPolicy != "" {
		set = append(set, [2]string{"Content-Security-Policy", h.ContentSecurityPolicy})
	}
	return set
}

func (h Headers) hsts() string {
	age := h.HSTSMaxAge
	if age <= 0 {
		age = 365 * 24 * 60 * 60
	}
	v := "max-age=" + strconv.Itoa(age)
	if h.HSTSIncludeSubdomains {
		v += "; includeSubDomains"
	}
	return v
}

func (h Headers) Middleware(next http.Handler) http.Handler {
	if !h.Enable {
		return next
	}
	static := h.static()
	hsts := h.hsts()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		out := w.Header()
		for _, kv := range static {
			out.Set(kv[0], kv[1])
		}
		if strings.HasPrefix(r.URL.Path, "/api/") {
			out.Set("Cache-Control", "no-store")
		}
		if h.EnableHSTS && overTLS(r) {
			out.Set("Strict-Transport-Security", hsts)
		}
		next.ServeHTTP(w, r)
	})
}

func overTLS(r *http.Request) bool {
	return r.TLS != nil || strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https")
}
