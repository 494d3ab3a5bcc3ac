package quote

import (
	"net/http"

	"github.com/remotehive-dev/Spark-Configurator/internal/common"
)

// Handler exposes the quote, coupon and proposal endpoints.
type Handler struct {
	service *Service
}

// NewHandler wires the handlers to cfg.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type couponRequest struct {
	Code string `json:"code" validate:"max=64"`
}

// Quote handles POST /api/v1/quotes.
func (h *Handler) Quote(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "quote service not configured", nil)
		return
	}
	var req Request
	if err := common.DecodeAndValidate(r, &req); err != nil {
		common.WriteError(w, err)
		return
	}
	q, err := h.service.Quote(req)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": ToResponse(req.StudentID, q)})
}

// ValidateCoupon handles POST /api/v1/coupons/validate.
func (h *Handler) ValidateCoupon(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "quote service not configured", nil)
		return
	}
	var req couponRequest
	if err := common.DecodeAndValidate(r, &req); err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": h.service.ValidateCoupon(req.Code)})
}

// Proposal handles POST /api/v1/proposals and responds with printable HTML.
func (h *Handler) Proposal(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "quote service not configured", nil)
		return
	}
	var req ProposalRequest
	if err := common.DecodeAndValidate(r, &req); err != nil {
		common.WriteError(w, err)
		return
	}
	page, receipt, err := h.service.Proposal(r.Context(), req)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("X-Receipt-ID", receipt)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(page)
}
