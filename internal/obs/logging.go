package obs

import (
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"
)

// NewLogger builds the process logger. format "console" (or "text") gives
// human-readable output; anything else writes JSON lines to stdout.
func NewLogger(service, format, level string) zerolog.Logger {
	zerolog.TimeFieldFormat = time.RFC3339
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)

	var out io.Writer = os.Stdout
	if f := strings.ToLower(strings.TrimSpace(format)); f == "console" || f == "text" {
		out = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.Kitchen}
	}
	if service == "" {
		service = "spark-configurator"
	}
	return zerolog.New(out).With().Timestamp().Str("service", service).Logger()
}

// RequestLogger writes one line per finished request.
type RequestLogger struct {
	Logger zerolog.Logger
}

func (l RequestLogger) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := WrapResponse(w)
		began := time.Now()
		next.ServeHTTP(rec, r)

		notes := NotesFrom(r.Context())
		evt := l.levelFor(r, rec.Status())
		evt = evt.
			Str("method", r.Method).
			Str("route", route(r, r.URL.Path)).
			Str("path", r.URL.Path).
			Int("status", rec.Status()).
			Dur("took", time.Since(began)).
			Int64("bytes", rec.Bytes()).
			Str("request_id", middleware.GetReqID(r.Context()))

		if sc := trace.SpanContextFromContext(r.Context()); sc.IsValid() {
			evt = evt.Str("trace_id", sc.TraceID().String())
		}
		if user, roles := notes.Caller(); user != "" {
			evt = evt.Str("user_id", user).Strs("roles", roles)
		}
		if notes.Streaming() {
			evt = evt.Bool("stream", true)
		}
		if receipt := rec.Header().Get("X-Receipt-ID"); receipt != "" {
			evt = evt.Str("receipt_id", receipt)
		}
		evt.Str("remote_addr", r.RemoteAddr).Msg("request")
	})
}

// Probes and scrapes are logged at debug so they do not drown real traffic.
func (l RequestLogger) levelFor(r *http.Request, status int) *zerolog.Event {
	switch {
	case status >= http.StatusInternalServerError:
		return l.Logger.Error()
	case status >= http.StatusBadRequest:
		return l.Logger.Warn()
	case strings.HasPrefix(r.URL.Path, "/health/"), r.URL.Path == "/metrics":
		return l.Logger.Debug()
	}
	return l.Logger.Info()
}
