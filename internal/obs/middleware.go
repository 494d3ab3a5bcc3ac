package obs

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// Recorder remembers the status and size of a response. Nested middleware
// share one Recorder per request.
type Recorder struct {
	http.ResponseWriter
	status int
	bytes  int64
}

// WrapResponse returns w as a Recorder, reusing it when it already is one.
func WrapResponse(w http.ResponseWriter) *Recorder {
	if rec, ok := w.(*Recorder); ok {
		return rec
	}
	return &Recorder{ResponseWriter: w}
}

func (rec *Recorder) WriteHeader(code int) {
	if rec.status == 0 {
		rec.status = code
	}
	rec.ResponseWriter.WriteHeader(code)
}

func (rec *Recorder) Write(p []byte) (int, error) {
	if rec.status == 0 {
		rec.status = http.StatusOK
	}
	n, err := rec.ResponseWriter.Write(p)
	rec.bytes += int64(n)
	return n, err
}

// Flush lets the topic event stream push frames through the wrapper.
func (rec *Recorder) Flush() {
	if f, ok := rec.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Unwrap exposes the wrapped writer to http.ResponseController.
func (rec *Recorder) Unwrap() http.ResponseWriter { return rec.ResponseWriter }

// Status is the first status written, or 200 if the handler wrote nothing.
func (rec *Recorder) Status() int {
	if rec.status == 0 {
		return http.StatusOK
	}
	return rec.status
}

// Bytes returns the body size sent so far.
func (rec *Recorder) Bytes() int64 { return rec.bytes }

// route returns the chi pattern the request matched. The pattern is only
// complete after the router has dispatched, so callers read it post-handler.
func route(r *http.Request, fallback string) string {
	if rc := chi.RouteContext(r.Context()); rc != nil {
		if p := rc.RoutePattern(); p != "" {
			return p
		}
	}
	return fallback
}

// HTTPObs counts requests per route and status.
type HTTPObs struct {
	Metrics *HTTPMetrics
}

func (o HTTPObs) Middleware(next http.Handler) http.Handler {
	if o.Metrics == nil {
		return next
	}
	m := o.Metrics
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := WrapResponse(w)
		began := time.Now()
		m.InFlight.Inc()
		defer m.InFlight.Dec()

		next.ServeHTTP(rec, r)

		pattern := route(r, "unmatched")
		m.ReqTotal.WithLabelValues(r.Method, pattern, strconv.Itoa(rec.Status())).Inc()
		if !NotesFrom(r.Context()).Streaming() {
			m.ReqDur.WithLabelValues(r.Method, pattern).Observe(DurationMillis(time.Since(began)))
		}
	})
}

// TracingMiddleware opens a server span per request and renames it to the
// matched route once routing has finished.
func TracingMiddleware(next http.Handler) http.Handler {
	tracer := otel.Tracer("spark-configurator/http")
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), r.Method)
		defer span.End()

		rec := WrapResponse(w)
		next.ServeHTTP(rec, r.WithContext(ctx))

		pattern := route(r, r.URL.Path)
		span.SetName(r.Method + " " + pattern)
		span.SetAttributes(
			attribute.String("http.method", r.Method),
			attribute.String("http.route", pattern),
			attribute.Int("http.status_code", rec.Status()),
			attribute.Bool("spark.stream", NotesFrom(r.Context()).Streaming()),
		)
		if user, _ := NotesFrom(r.Context()).Caller(); user != "" {
			span.SetAttributes(attribute.String("enduser.id", user))
		}
		if rec.Status() >= http.StatusInternalServerError {
			span.SetStatus(codes.Error, http.StatusText(rec.Status()))
		}
	})
}
