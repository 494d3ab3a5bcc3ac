package common

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	redis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newIdem(t *testing.T) (Idem, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return Idem{R: client, TTL: time.Minute}, mr
}

func importRequest(key, body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/students/import", strings.NewReader(body))
	req.Header.Set("Idempotency-Key", key)
	return req
}

func serve(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestIdemReplaysStoredResponse(t *testing.T) {
	idem, _ := newIdem(t)
	calls := 0
	h := idem.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		JSON(w, http.StatusCreated, map[string]any{"data": map[string]int{"imported": 2}})
	}))

	first := serve(h, importRequest("batch-1", `[{"id":"L-1"},{"id":"L-2"}]`))
	require.Equal(t, http.StatusCreated, first.Code)
	require.Empty(t, first.Header().Get(ReplayedHeader))

	again := serve(h, importRequest("batch-1", `[{"id":"L-1"},{"id":"L-2"}]`))
	require.Equal(t, http.StatusCreated, again.Code)
	require.Equal(t, "true", again.Header().Get(ReplayedHeader))
	require.Equal(t, "application/json", again.Header().Get("Content-Type"))
	require.JSONEq(t, first.Body.String(), again.Body.String())
	require.Equal(t, 1, calls)
}

func TestIdemRejectsKeyReuseWithOtherBody(t *testing.T) {
	idem, _ := newIdem(t)
	h := idem.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	require.Equal(t, http.StatusOK, serve(h, importRequest("k", `[1]`)).Code)
	rec := serve(h, importRequest("k", `[2]`))
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	require.Contains(t, rec.Body.String(), "IDEMPOTENCY_KEY_REUSED")
}

func TestIdemReportsRequestInProgress(t *testing.T) {
	idem, mr := newIdem(t)
	block := idem.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// a second attempt arrives while the first is still running
		key := idemKey(r, "slow")
		require.True(t, mr.Exists(key))
		inner := serve(idem.Middleware(http.NotFoundHandler()), importRequest("slow", `{}`))
		require.Equal(t, http.StatusConflict, inner.Code)
		require.Contains(t, inner.Body.String(), "IDEMPOTENCY_IN_PROGRESS")
		w.WriteHeader(http.StatusOK)
	}))
	require.Equal(t, http.StatusOK, serve(block, importRequest("slow", `{}`)).Code)
}

func TestIdemReleasesKeyOnFailure(t *testing.T) {
	idem, _ := newIdem(t)
	fail := true
	h := idem.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if fail {
			JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "row 3 invalid", nil)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))

	require.Equal(t, http.StatusBadRequest, serve(h, importRequest("seed", `[]`)).Code)
	fail = false
	rec := serve(h, importRequest("seed", `[]`))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Empty(t, rec.Header().Get(ReplayedHeader))
}

func TestIdemScopesKeyByCaller(t *testing.T) {
	idem, _ := newIdem(t)
	calls := 0
	h := idem.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusOK)
	}))
	for _, user := range []string{"u1", "u2"} {
		req := importRequest("same", `[]`)
		req = req.WithContext(WithUserID(req.Context(), user))
		require.Equal(t, http.StatusOK, serve(h, req).Code)
	}
	require.Equal(t, 2, calls)
}

func TestIdemPassesThrough(t *testing.T) {
	h := Idem{}.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	}))
	require.Equal(t, http.StatusAccepted, serve(h, importRequest("k", `[]`)).Code)

	idem, _ := newIdem(t)
	h = idem.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	}))
	req := httptest.NewRequest(http.MethodPost, "/api/v1/topics/bulk", nil)
	require.Equal(t, http.StatusAccepted, serve(h, req).Code)
}

func TestIdemFreesKeyWhenHandlerPanics(t *testing.T) {
	idem, mr := newIdem(t)
	crash := true
	h := idem.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if crash {
			panic("import blew up")
		}
		JSON(w, http.StatusCreated, map[string]int{"imported": 1})
	}))

	req := importRequest("retry-me", `[{"id":"L-1"}]`)
	require.PanicsWithValue(t, "import blew up", func() { serve(h, req) })
	require.False(t, mr.Exists(idemKey(req, "retry-me")))

	crash = false
	rec := serve(h, importRequest("retry-me", `[{"id":"L-1"}]`))
	require.Equal(t, http.StatusCreated, rec.Code)
	require.Empty(t, rec.Header().Get(ReplayedHeader))
	require.Contains(t, rec.Body.String(), "imported")
}

func TestIdemDoesNotStoreSilentHandlers(t *testing.T) {
	idem, mr := newIdem(t)
	h := idem.Middleware(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	req := importRequest("quiet", `[]`)
	serve(h, req)
	require.False(t, mr.Exists(idemKey(req, "quiet")))
}
