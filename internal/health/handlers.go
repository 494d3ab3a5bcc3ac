// Package health serves the liveness and readiness probes.
package health

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/remotehive-dev/Spark-Configurator/internal/common"
)

// ErrDisabled marks a probe whose dependency is not configured, such as
// Postgres when the API runs on memory stores. It never fails readiness.
var ErrDisabled = errors.New("disabled")

const defaultProbeTimeout = 500 * time.Millisecond

// Probe checks one dependency.
type Probe struct {
	Name    string
	Timeout time.Duration
	Check   func(ctx context.Context) error
}

var draining atomic.Bool

// SetReady(false) makes readiness fail while the server drains.
func SetReady(ready bool) { draining.Store(!ready) }

type Handler struct {
	Probes []Probe
}

// Live always answers 200 while the process serves HTTP.
func (Handler) Live(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok"))
}

type readiness struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// Ready runs every probe concurrently and answers 503 if any fails or the
// server is draining.
func (h Handler) Ready(w http.ResponseWriter, r *http.Request) {
	results := make(map[string]string, len(h.Probes))
	healthy := true
	var mu sync.Mutex
	var wg sync.WaitGroup
	for _, p := range h.Probes {
		wg.Add(1)
		go func(p Probe) {
			defer wg.Done()
			status, ok := run(r.Context(), p)
			mu.Lock()
			results[p.Name] = status
			healthy = healthy && ok
			mu.Unlock()
		}(p)
	}
	wg.Wait()

	body := readiness{Status: "ready", Checks: results}
	code := http.StatusOK
	switch {
	case draining.Load():
		body.Status, code = "draining", http.StatusServiceUnavailable
	case !healthy:
		body.Status, code = "unavailable", http.StatusServiceUnavailable
	}
	common.JSON(w, code, body)
}

func run(ctx context.Context, p Probe) (string, bool) {
	if p.Check == nil {
		return ErrDisabled.Error(), true
	}
	timeout := p.Timeout
	if timeout <= 0 {
		timeout = defaultProbeTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	switch err := p.Check(ctx); {
	case err == nil:
		return "ok", true
	case errors.Is(err, ErrDisabled):
		return ErrDisabled.Error(), true
	default:
		return err.Error(), false
	}
}
