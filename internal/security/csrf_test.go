package security

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func createdHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	})
}

func issueFor(t *testing.T, c CSRF, session string) *http.Cookie {
	t.Helper()
	rr := httptest.NewRecorder()
	token, err := c.Issue(rr, session, time.Hour, false, http.SameSiteLaxMode)
	require.NoError(t, err)
	cookies := rr.Result().Cookies()
	require.Len(t, cookies, 1)
	require.Equal(t, token, cookies[0].Value)
	require.False(t, cookies[0].HttpOnly, "the client must be able to read the token")
	require.Equal(t, 3600, cookies[0].MaxAge)
	return cookies[0]
}

func postQuote(h http.Handler, header string, cookies ...*http.Cookie) int {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/quotes", nil)
	if header != "" {
		req.Header.Set(DefaultCSRFName, header)
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr.Code
}

func TestCSRFDoubleSubmit(t *testing.T) {
	c := CSRF{}
	h := c.Middleware(createdHandler())
	tok := issueFor(t, c, "")

	require.Equal(t, http.StatusForbidden, postQuote(h, ""))
	require.Equal(t, http.StatusForbidden, postQuote(h, tok.Value))
	require.Equal(t, http.StatusForbidden, postQuote(h, tok.Value+"x", tok))
	require.Equal(t, http.StatusCreated, postQuote(h, tok.Value, tok))
}

func TestCSRFBoundToSession(t *testing.T) {
	c := CSRF{Secret: []byte("k"), SessionCookie: "c_session"}
	h := c.Middleware(createdHandler())
	mine := &http.Cookie{Name: "c_session", Value: "jwt-for-priya"}
	theirs := &http.Cookie{Name: "c_session", Value: "jwt-for-arjun"}
	tok := issueFor(t, c, mine.Value)

	require.Equal(t, http.StatusCreated, postQuote(h, tok.Value, tok, mine))
	require.Equal(t, http.StatusForbidden, postQuote(h, tok.Value, tok, theirs))
	require.Equal(t, http.StatusForbidden, postQuote(h, tok.Value, tok))

	unsigned := &http.Cookie{Name: DefaultCSRFName, Value: "plain"}
	require.Equal(t, http.StatusForbidden, postQuote(h, "plain", unsigned, mine))
}

func TestCSRFSkipsSafeAndBearerRequests(t *testing.T) {
	h := CSRF{}.Middleware(createdHandler())

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/v1/topics", nil))
	require.Equal(t, http.StatusCreated, rr.Code)

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/topics/t1", nil)
	req.Header.Set("Authorization", "Bearer abc.def")
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	require.Equal(t, http.StatusCreated, rr.Code)
}

func TestCSRFClearExpiresCookie(t *testing.T) {
	rr := httptest.NewRecorder()
	CSRF{Name: "csrf"}.Clear(rr)
	cookies := rr.Result().Cookies()
	require.Len(t, cookies, 1)
	require.Equal(t, "csrf", cookies[0].Name)
	require.Negative(t, cookies[0].MaxAge)
}
