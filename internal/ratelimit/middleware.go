package ratelimit

import (
	"math"
	"net/http"
	"net/netip"
	"strconv"
	"strings"
	"time"

	"github.com/remotehive-dev/Spark-Configurator/internal/common"
)

// Handler rejects requests over Rule with 429. A failing backend lets the
// request through and reports to OnError.
type Handler struct {
	Limiter   Backend
	Rule      Rule
	Key       func(*http.Request) string
	OnError   func(error)
	OnLimited func(*http.Request)
}

func (h Handler) Middleware(next http.Handler) http.Handler {
	if h.Limiter == nil || h.Key == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		d, err := h.Limiter.Allow(r.Context(), h.Key(r), h.Rule)
		if err != nil {
			if h.OnError != nil {
				h.OnError(err)
			}
			next.ServeHTTP(w, r)
			return
		}
		writeHeaders(w.Header(), h.Rule, d)
		if d.Allowed {
			next.ServeHTTP(w, r)
			return
		}
		if h.OnLimited != nil {
			h.OnLimited(r)
		}
		common.JSONError(w, http.StatusTooManyRequests, "RATE_LIMITED", "too many login attempts, retry later", map[string]any{
			"retryAfterSeconds": retryAfter(d.Reset),
		})
	})
}

func writeHeaders(h http.Header, rule Rule, d Decision) {
	h.Set("X-RateLimit-Limit", strconv.Itoa(max(rule.Max, 0)))
	h.Set("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
	h.Set("X-RateLimit-Reset", strconv.FormatInt(d.Reset.Unix(), 10))
	if !d.Allowed {
		h.Set("Retry-After", strconv.Itoa(retryAfter(d.Reset)))
	}
}

// retryAfter rounds up so clients never retry a moment too early.
func retryAfter(reset time.Time) int {
	secs := math.Ceil(time.Until(reset).Seconds())
	if secs < 0 {
		return 0
	}
	return int(secs)
}

// ByClientIP keys requests as scope:address. Forwarding headers are only
// believed when the socket peer falls in trusted; the address is then the
// right-most X-Forwarded-For hop that is not itself a trusted proxy, so a
// client cannot pick its own bucket by sending the header.
func ByClientIP(scope string, trusted ...netip.Prefix) func(*http.Request) string {
	return func(r *http.Request) string {
		return scope + ":" + clientAddr(r, trusted)
	}
}

func clientAddr(r *http.Request, trusted []netip.Prefix) string {
	peer, err := netip.ParseAddrPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	addr := peer.Addr().Unmap()
	if !within(addr, trusted) {
		return addr.String()
	}
	hops := strings.Split(strings.Join(r.Header.Values("X-Forwarded-For"), ","), ",")
	for i := len(hops) - 1; i >= 0; i-- {
		hop, err := netip.ParseAddr(strings.TrimSpace(hops[i]))
		if err != nil {
			break
		}
		addr = hop.Unmap()
		if !within(addr, trusted) {
			break
		}
	}
	return addr.String()
}

func within(addr netip.Addr, prefixes []netip.Prefix) bool {
	for _, p := range prefixes {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}
