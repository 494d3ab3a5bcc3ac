package security

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"net/http"
	"strings"
	"time"

	"github.com/remotehive-dev/Spark-Configurator/internal/common"
)

// DefaultCSRFName names both the token cookie and the request header.
const DefaultCSRFName = "X-CSRF-Token"

// CSRF guards cookie-authenticated writes with a double-submit token. When
// Secret and SessionCookie are set the token also carries an HMAC over the
// session cookie, so a token planted by a sibling subdomain for another
// session is refused. Bearer-authenticated requests are never checked.
type CSRF struct {
	Name          string
	Secret        []byte
	SessionCookie string
}

func (c CSRF) name() string {
	if n := strings.TrimSpace(c.Name); n != "" {
		return n
	}
	return DefaultCSRFName
}

func (c CSRF) bound() bool { return len(c.Secret) > 0 && c.SessionCookie != "" }

func (c CSRF) sign(nonce, session string) string {
	mac := hmac.New(sha256.New, c.Secret)
	mac.Write([]byte(nonce))
	mac.Write([]byte{0})
	mac.Write([]byte(session))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}

// Issue sets a script-readable token cookie for session and returns the
// token so the login response can hand it to the client.
func (c CSRF) Issue(w http.ResponseWriter, session string, ttl time.Duration, secure bool, sameSite http.SameSite) (string, error) {
	raw := make([]byte, 18)
	if _, err := rand.Read(raw); err != nil {
		return "", err
	}
	token := base64.RawURLEncoding.EncodeToString(raw)
	if c.bound() {
		token += "." + c.sign(token, session)
	}
	http.SetCookie(w, &http.Cookie{
		Name:     c.name(),
		Value:    token,
		Path:     "/",
		MaxAge:   int(ttl / time.Second),
		Secure:   secure,
		SameSite: sameSite,
	})
	return token, nil
}

// Clear expires the token cookie.
func (c CSRF) Clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{Name: c.name(), Path: "/", MaxAge: -1})
}

func (c CSRF) Middleware(next http.Handler) http.Handler {
	name := c.name()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if isSafeMethod(r.Method) || hasBearer(r) {
			next.ServeHTTP(w, r)
			return
		}
		if reason := c.check(r, name); reason != "" {
			common.JSONError(w, http.StatusForbidden, "CSRF_REJECTED", reason, nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// check returns why r fails the token check, or "" when it passes.
func (c CSRF) check(r *http.Request, name string) string {
	sent := strings.TrimSpace(r.Header.Get(name))
	if sent == "" {
		return "missing csrf token"
	}
	cookie, err := r.Cookie(name)
	if err != nil || cookie.Value == "" {
		return "missing csrf cookie"
	}
	if subtle.ConstantTimeCompare([]byte(sent), []byte(cookie.Value)) != 1 {
		return "invalid csrf token"
	}
	if !c.bound() {
		return ""
	}
	nonce, sig, ok := strings.Cut(sent, ".")
	session, err := r.Cookie(c.SessionCookie)
	if !ok || err != nil || !hmac.Equal([]byte(sig), []byte(c.sign(nonce, session.Value))) {
		return "csrf token does not match session"
	}
	return ""
}

func isSafeMethod(m string) bool {
	switch m {
	case http.MethodGet, http.MethodHead, http.MethodOptions, http.MethodTrace:
		return true
	}
	return false
}

func hasBearer(r *http.Request) bool {
	scheme, _, _ := strings.Cut(strings.TrimSpace(r.Header.Get("Authorization")), " ")
	return strings.EqualFold(scheme, "bearer")
}
