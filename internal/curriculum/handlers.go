package curriculum

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/remotehive-dev/Spark-Configurator/internal/common"
)

// Handler exposes curriculum file and customization endpoints.
type Handler struct {
	service *Service
}

// NewHandler wires the handlers to cfg.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) ready(w http.ResponseWriter) bool {
	if h.service == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "curriculum service not configured", nil)
		return false
	}
	return true
}

// ListFiles handles GET /api/v1/curriculum-files?grade=.
func (h *Handler) ListFiles(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	files, err := h.service.ListFiles(r.Context(), r.URL.Query().Get("grade"))
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": files})
}

// AddFile handles POST /api/v1/curriculum-files.
func (h *Handler) AddFile(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	var in FileInput
	if err := common.DecodeAndValidate(r, &in); err != nil {
		common.WriteError(w, err)
		return
	}
	f, err := h.service.AddFile(r.Context(), in)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": f})
}

// AddCustomization handles POST /api/v1/customizations.
func (h *Handler) AddCustomization(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	var in CustomizationInput
	if err := common.DecodeAndValidate(r, &in); err != nil {
		common.WriteError(w, err)
		return
	}
	c, err := h.service.AddCustomization(r.Context(), in)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": c})
}

// LatestCustomization handles GET /api/v1/customizations/{studentId}.
func (h *Handler) LatestCustomization(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	c, err := h.service.LatestCustomization(r.Context(), chi.URLParam(r, "studentId"))
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": c})
}
