package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/remotehive-dev/Spark-Configurator/internal/common"
	"github.com/remotehive-dev/Spark-Configurator/internal/security"
)

func cookieByName(cookies []*http.Cookie, name string) *http.Cookie {
	for _, c := range cookies {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func TestLoginSetsSessionAndCSRFCookies(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.CreateAccount(context.Background(), "priya", "correct horse", nil)
	require.NoError(t, err)
	h := &Handler{Service: svc, AccessCookieName: "c_session", CookieSameSite: http.SameSiteLaxMode}

	rec := httptest.NewRecorder()
	h.Login(rec, httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(`{"username":"priya","password":"correct horse"}`)))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"username":"priya"`)

	session := cookieByName(rec.Result().Cookies(), "c_session")
	require.NotNil(t, session)
	require.True(t, session.HttpOnly)
	csrf := cookieByName(rec.Result().Cookies(), security.DefaultCSRFName)
	require.NotNil(t, csrf)
	require.False(t, csrf.HttpOnly)
	require.Contains(t, rec.Body.String(), csrf.Value)

	// the cookie alone authenticates follow-up requests
	mw := Middleware{Service: svc, AccessCookie: "c_session"}
	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil)
	req.AddCookie(session)
	rec = httptest.NewRecorder()
	mw.RequireAuth(http.HandlerFunc(h.Me)).ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"username":"priya"`)
}

func TestLoginFailures(t *testing.T) {
	svc, _ := newTestService(t)
	h := &Handler{Service: svc, AccessCookieName: "c_session"}

	rec := httptest.NewRecorder()
	h.Login(rec, httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(`{"username":"x","password":"y"}`)))
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Contains(t, rec.Body.String(), "INVALID_CREDENTIALS")

	rec = httptest.NewRecorder()
	h.Login(rec, httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(`{"username":""}`)))
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLogoutExpiresCookies(t *testing.T) {
	h := &Handler{AccessCookieName: "c_session"}
	rec := httptest.NewRecorder()
	h.Logout(rec, httptest.NewRequest(http.MethodPost, "/api/v1/auth/logout", nil))
	require.Equal(t, http.StatusNoContent, rec.Code)
	session := cookieByName(rec.Result().Cookies(), "c_session")
	require.NotNil(t, session)
	require.Negative(t, session.MaxAge)
}

func TestRequireAuthAndRole(t *testing.T) {
	svc, _ := newTestService(t)
	mw := Middleware{Service: svc, AccessCookie: "c_session"}
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, _ := common.UserID(r.Context())
		_, _ = w.Write([]byte(id))
	})
	adminOnly := mw.RequireAuth(RequireRole(RoleAdmin)(ok))

	rec := httptest.NewRecorder()
	adminOnly.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/admin/users", nil))
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	counsellor, _, err := svc.tokens.sign(Principal{UserID: "c-1", Roles: []string{RoleCounsellor}})
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/users", nil)
	req.Header.Set("Authorization", "Bearer "+counsellor)
	rec = httptest.NewRecorder()
	adminOnly.ServeHTTP(rec, req)
	require.Equal(t, http.StatusForbidden, rec.Code)

	admin, _, err := svc.tokens.sign(Principal{UserID: "a-1", Roles: []string{RoleAdmin}})
	require.NoError(t, err)
	req = httptest.NewRequest(http.MethodGet, "/api/v1/admin/users", nil)
	req.Header.Set("Authorization", "Bearer "+admin)
	rec = httptest.NewRecorder()
	adminOnly.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "a-1", rec.Body.String())

	req = httptest.NewRequest(http.MethodGet, "/api/v1/admin/users", nil)
	req.Header.Set("Authorization", "Bearer not-a-jwt")
	rec = httptest.NewRecorder()
	adminOnly.ServeHTTP(rec, req)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAdminHandlers(t *testing.T) {
	svc, _ := newTestService(t)
	h := &AdminHandler{Service: svc}

	rec := httptest.NewRecorder()
	h.Create(rec, httptest.NewRequest(http.MethodPost, "/api/v1/admin/users", strings.NewReader(`{"username":"meera","password":"password1"}`)))
	require.Equal(t, http.StatusCreated, rec.Code)
	require.NotContains(t, rec.Body.String(), "argon2id")

	rec = httptest.NewRecorder()
	h.Create(rec, httptest.NewRequest(http.MethodPost, "/api/v1/admin/users", strings.NewReader(`{"username":"meera","password":"password1"}`)))
	require.Equal(t, http.StatusConflict, rec.Code)

	rec = httptest.NewRecorder()
	h.Create(rec, httptest.NewRequest(http.MethodPost, "/api/v1/admin/users", strings.NewReader(`{"username":"x","password":"short"}`)))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), `"field":"password"`)

	rec = httptest.NewRecorder()
	h.List(rec, httptest.NewRequest(http.MethodGet, "/api/v1/admin/users?q=mee", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"username":"meera"`)

	rec = httptest.NewRecorder()
	h.Stats(rec, httptest.NewRequest(http.MethodGet, "/api/v1/admin/users/stats", nil))
	require.JSONEq(t, `{"data":{"total":1,"active":0,"inactive":1,"admins":0}}`, rec.Body.String())

	accounts, err := svc.ListAccounts(context.Background(), "meera")
	require.NoError(t, err)
	id := accounts[0].ID
	withID := func(r *http.Request) *http.Request {
		rctx := chi.NewRouteContext()
		rctx.URLParams.Add("id", id)
		return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
	}

	rec = httptest.NewRecorder()
	h.ResetPassword(rec, withID(httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"password":"another-one"}`))))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	h.Delete(rec, withID(httptest.NewRequest(http.MethodDelete, "/", nil)))
	require.Equal(t, http.StatusNoContent, rec.Code)
}
