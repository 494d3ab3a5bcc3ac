package topic

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/remotehive-dev/Spark-Configurator/internal/common"
	"github.com/remotehive-dev/Spark-Configurator/internal/events"
	"github.com/remotehive-dev/Spark-Configurator/internal/obs"
)

// DefaultHeartbeat is how often an idle stream receives a comment line.
const DefaultHeartbeat = 25 * time.Second

// Handler exposes the topic endpoints.
type Handler struct {
	service   *Service
	hub       *events.Hub
	heartbeat time.Duration
}

// HandlerConfig lists what the HTTP layer needs.
type HandlerConfig struct {
	Service   *Service
	Hub       *events.Hub
	Heartbeat time.Duration
}

// NewHandler wires the handlers to cfg.
func NewHandler(cfg HandlerConfig) *Handler {
	hb := cfg.Heartbeat
	if hb <= 0 {
		hb = DefaultHeartbeat
	}
	return &Handler{service: cfg.Service, hub: cfg.Hub, heartbeat: hb}
}

func (h *Handler) ready(w http.ResponseWriter) bool {
	if h.service == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "topic service not configured", nil)
		return false
	}
	return true
}

// List handles GET /api/v1/topics?grade=.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	rows, err := h.service.List(r.Context(), r.URL.Query().Get("grade"))
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": rows})
}

// Suggest handles GET /api/v1/topics/suggest?grade=&limit=. A missing or
// non-numeric limit returns every match.
func (h *Handler) Suggest(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	q := r.URL.Query()
	limit := -1
	if raw := strings.TrimSpace(q.Get("limit")); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			limit = max(0, n)
		}
	}
	rows, err := h.service.Suggest(r.Context(), q.Get("grade"), limit)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": rows})
}

// Create handles POST /api/v1/topics.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	var in Input
	if err := common.DecodeAndValidate(r, &in); err != nil {
		common.WriteError(w, err)
		return
	}
	t, err := h.service.Add(r.Context(), in)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": t})
}

// Update handles PUT /api/v1/topics/{id}.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	var in Input
	if err := common.DecodeAndValidate(r, &in); err != nil {
		common.WriteError(w, err)
		return
	}
	t, err := h.service.Update(r.Context(), chi.URLParam(r, "id"), in)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": t})
}

// Delete handles DELETE /api/v1/topics/{id}.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	if err := h.service.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		common.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Bulk handles POST /api/v1/topics/bulk with a JSON array of topics.
func (h *Handler) Bulk(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	var rows []SeedRow
	if err := json.NewDecoder(r.Body).Decode(&rows); err != nil {
		common.WriteError(w, common.BadRequest("body must be a JSON array of topics").WithDetails(map[string]any{"reason": err.Error()}))
		return
	}
	n, err := h.service.BulkSeed(r.Context(), rows)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": map[string]int{"inserted": n}})
}

// Stream handles GET /api/v1/topics/stream as server-sent events. The full
// list is sent on connect and again after every change.
func (h *Handler) Stream(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	if h.hub == nil {
		common.JSONError(w, http.StatusServiceUnavailable, "STREAM_UNAVAILABLE", "topic stream not configured", nil)
		return
	}
	rc := http.NewResponseController(w)
	ctx := r.Context()

	updates, cancel := h.hub.Subscribe(events.TopicsChanged)
	defer cancel()
	obs.NoteStreaming(ctx)
	obs.AddTopicSubscribers(1)
	defer obs.AddTopicSubscribers(-1)

	initial, err := h.service.All(ctx)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	payload, err := json.Marshal(initial)
	if err != nil {
		common.WriteError(w, err)
		return
	}

	header := w.Header()
	header.Set("Content-Type", "text/event-stream")
	header.Set("Cache-Control", "no-cache")
	header.Set("Connection", "keep-alive")
	header.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	if err := writeEvent(w, events.TopicsChanged, payload); err != nil {
		return
	}
	if err := rc.Flush(); err != nil {
		return
	}

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case data, ok := <-updates:
			if !ok {
				return
			}
			if err := writeEvent(w, events.TopicsChanged, data); err != nil {
				return
			}
		case <-ticker.C:
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return
			}
		}
		if err := rc.Flush(); err != nil {
			return
		}
	}
}

func writeEvent(w http.ResponseWriter, name string, data []byte) error {
	_, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", name, data)
	return err
}
