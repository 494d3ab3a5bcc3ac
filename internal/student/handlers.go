package student

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/remotehive-dev/Spark-Configurator/internal/common"
)

// Handler exposes the student endpoints.
type Handler struct {
	service *Service
}

// NewHandler wires the handlers to cfg.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// List handles GET /api/v1/students.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "student service not configured", nil)
		return
	}
	rows, err := h.service.List(r.Context())
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": rows})
}

// Get handles GET /api/v1/students/{id}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "student service not configured", nil)
		return
	}
	st, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": st})
}

// Create handles POST /api/v1/students.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "student service not configured", nil)
		return
	}
	var in Input
	if err := common.DecodeAndValidate(r, &in); err != nil {
		common.WriteError(w, err)
		return
	}
	created, err := h.service.Create(r.Context(), in)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": created})
}

// Import handles POST /api/v1/students/import with a JSON array body.
func (h *Handler) Import(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "student service not configured", nil)
		return
	}
	var rows []ImportRow
	if err := json.NewDecoder(r.Body).Decode(&rows); err != nil {
		common.WriteError(w, common.NewAppError("BAD_REQUEST", "expected a JSON array of students", http.StatusBadRequest, err))
		return
	}
	n, err := h.service.Import(r.Context(), rows)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": map[string]int{"inserted": n}})
}
