package obs_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/remotehive-dev/Spark-Configurator/internal/obs"
)

func newInstrumentedRouter(metrics *obs.HTTPMetrics) chi.Router {
	r := chi.NewRouter()
	r.Use(obs.Track, obs.HTTPObs{Metrics: metrics}.Middleware)
	r.Post("/api/v1/quotes", func(w http.ResponseWriter, r *http.Request) {
		obs.NoteCaller(r.Context(), "u-1", []string{"counsellor"})
		w.WriteHeader(http.StatusCreated)
	})
	r.Get("/api/v1/topics/stream", func(w http.ResponseWriter, r *http.Request) {
		obs.NoteStreaming(r.Context())
		_, _ = w.Write([]byte("event: topics\ndata: []\n\n"))
	})
	return r
}

func TestHTTPMetricsUseMatchedRoute(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := obs.NewHTTPMetrics("spark", []float64{1, 10}, registry)
	router := newInstrumentedRouter(metrics)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/v1/quotes", nil))
	require.Equal(t, http.StatusCreated, rr.Code)

	require.Equal(t, 1.0, testutil.ToFloat64(metrics.ReqTotal.WithLabelValues(http.MethodPost, "/api/v1/quotes", "201")))
	require.Equal(t, 1, testutil.CollectAndCount(metrics.ReqDur))
	require.Zero(t, testutil.ToFloat64(metrics.InFlight))

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/nope", nil))
	require.Equal(t, 1.0, testutil.ToFloat64(metrics.ReqTotal.WithLabelValues(http.MethodGet, "unmatched", "404")))
}

func TestStreamsSkipLatencyHistogram(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := obs.NewHTTPMetrics("spark", []float64{1, 10}, registry)
	router := newInstrumentedRouter(metrics)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/v1/topics/stream", nil))
	require.Equal(t, http.StatusOK, rr.Code)

	require.Equal(t, 1.0, testutil.ToFloat64(metrics.ReqTotal.WithLabelValues(http.MethodGet, "/api/v1/topics/stream", "200")))
	require.Zero(t, testutil.CollectAndCount(metrics.ReqDur))
}

func TestNotesOutsideTrackAreIgnored(t *testing.T) {
	ctx := context.Background()
	obs.NoteCaller(ctx, "u-1", nil)
	obs.NoteStreaming(ctx)
	notes := obs.NotesFrom(ctx)
	require.Nil(t, notes)
	user, roles := notes.Caller()
	require.Empty(t, user)
	require.Nil(t, roles)
	require.False(t, notes.Streaming())
}

func TestRequestLoggerReportsCaller(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)

	r := chi.NewRouter()
	r.Use(obs.Track, obs.RequestLogger{Logger: logger}.Middleware)
	r.Get("/api/v1/proposals/{id}", func(w http.ResponseWriter, r *http.Request) {
		obs.NoteCaller(r.Context(), "u-7", []string{"admin"})
		w.Header().Set("X-Receipt-ID", "PS-L-100-1")
		w.WriteHeader(http.StatusOK)
	})
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v1/proposals/q1", nil))

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	require.Equal(t, "/api/v1/proposals/{id}", line["route"])
	require.Equal(t, "u-7", line["user_id"])
	require.Equal(t, "PS-L-100-1", line["receipt_id"])
	require.Equal(t, "info", line["level"])
}

func TestRecorderSharedAndFlushes(t *testing.T) {
	rr := httptest.NewRecorder()
	rec := obs.WrapResponse(rr)
	require.Same(t, rec, obs.WrapResponse(rec))
	require.Equal(t, http.StatusOK, rec.Status())

	var _ http.Flusher = rec
	_, _ = rec.Write([]byte("data: {}\n\n"))
	rec.WriteHeader(http.StatusTeapot)
	rec.Flush()
	require.True(t, rr.Flushed)
	require.Equal(t, http.StatusOK, rec.Status())
	require.EqualValues(t, 10, rec.Bytes())
}

func TestDomainMetricHelpers(t *testing.T) {
	registry := prometheus.NewRegistry()
	d := obs.RegisterDomain("spark_test", registry)

	obs.RecordQuote(true, false)
	obs.RecordCouponValidation(false)
	obs.RecordProposal()
	obs.AddTopicSubscribers(2)
	obs.AddTopicSubscribers(-1)
	obs.RecordLogin("success")
	obs.RecordImport("students", 3)
	obs.RecordImport("topics", 0)

	require.Equal(t, 1.0, testutil.ToFloat64(d.Quotes.WithLabelValues("true", "false")))
	require.Equal(t, 1.0, testutil.ToFloat64(d.Coupons.WithLabelValues("invalid")))
	require.Equal(t, 1.0, testutil.ToFloat64(d.Proposals))
	require.Equal(t, 1.0, testutil.ToFloat64(d.TopicSubscribers))
	require.Equal(t, 1.0, testutil.ToFloat64(d.Logins.WithLabelValues("success")))
	require.Equal(t, 3.0, testutil.ToFloat64(d.ImportedRows.WithLabelValues("students")))
	require.Equal(t, 1, testutil.CollectAndCount(d.ImportedRows))
}

func TestRegisterReusesExistingCollectors(t *testing.T) {
	registry := prometheus.NewRegistry()
	first := obs.NewHTTPMetrics("spark", nil, registry)
	second := obs.NewHTTPMetrics("spark", nil, registry)
	require.Same(t, first.ReqTotal, second.ReqTotal)
	require.Same(t, first.ReqDur, second.ReqDur)
}
