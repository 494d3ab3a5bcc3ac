package student_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/remotehive-dev/Spark-Configurator/internal/student"
)

func newHandler(t *testing.T) *student.Handler {
	t.Helper()
	svc, err := student.NewService(student.ServiceConfig{Store: student.NewMemoryStore()})
	require.NoError(t, err)
	return student.NewHandler(svc)
}

func withURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

func TestStudentHandlers(t *testing.T) {
	h := newHandler(t)

	t.Run("create", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/students", strings.NewReader(`{"id":"L-1","name":"Asha","grade":"6","sapEligible":true}`))
		rec := httptest.NewRecorder()
		h.Create(rec, req)
		require.Equal(t, http.StatusCreated, rec.Code)
	})

	t.Run("create validation", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/students", strings.NewReader(`{"id":"","name":"Asha"}`))
		rec := httptest.NewRecorder()
		h.Create(rec, req)
		require.Equal(t, http.StatusBadRequest, rec.Code)
		require.Contains(t, rec.Body.String(), "VALIDATION_ERROR")
		require.Contains(t, rec.Body.String(), `"field":"id"`)
	})

	t.Run("get", func(t *testing.T) {
		req := withURLParam(httptest.NewRequest(http.MethodGet, "/api/v1/students/L-1", nil), "id", "L-1")
		rec := httptest.NewRecorder()
		h.Get(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)
		var body struct {
			Data student.Student `json:"data"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		require.Equal(t, "Asha", body.Data.Name)
		require.True(t, body.Data.SAPEligible)
	})

	t.Run("get missing", func(t *testing.T) {
		req := withURLParam(httptest.NewRequest(http.MethodGet, "/api/v1/students/x", nil), "id", "x")
		rec := httptest.NewRecorder()
		h.Get(rec, req)
		require.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("import", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/students/import", strings.NewReader(`[{"leadId":"L-2","name":"Ravi","sapEligible":"yes"},{"name":"skip"}]`))
		rec := httptest.NewRecorder()
		h.Import(rec, req)
		require.Equal(t, http.StatusCreated, rec.Code)
		require.JSONEq(t, `{"data":{"inserted":1}}`, rec.Body.String())
	})

	t.Run("import rejects object body", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/students/import", strings.NewReader(`{"id":"x"}`))
		rec := httptest.NewRecorder()
		h.Import(rec, req)
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("list", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.List(rec, httptest.NewRequest(http.MethodGet, "/api/v1/students", nil))
		require.Equal(t, http.StatusOK, rec.Code)
		var body struct {
			Data []student.Student `json:"data"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		require.Len(t, body.Data, 2)
	})
}

func TestHandlerWithoutService(t *testing.T) {
	rec := httptest.NewRecorder()
	student.NewHandler(nil).List(rec, httptest.NewRequest(http.MethodGet, "/api/v1/students", nil))
	require.Equal(t, http.StatusInternalServerError, rec.Code)
}
