package auth

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/remotehive-dev/Spark-Configurator/internal/common"
)

// AdminHandler exposes account administration endpoints.
type AdminHandler struct {
	Service *Service
}

type createAccountRequest struct {
	Username string   `json:"username" validate:"notblank,max=100"`
	Password string   `json:"password" validate:"required,min=8,max=200"`
	Roles    []string `json:"roles" validate:"omitempty,dive,oneof=admin counsellor"`
}

type resetPasswordRequest struct {
	Password string `json:"password" validate:"required,min=8,max=200"`
}

func (h *AdminHandler) ready(w http.ResponseWriter) bool {
	if h.Service == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "auth service not configured", nil)
		return false
	}
	return true
}

// List handles GET /api/v1/admin/users?q=.
func (h *AdminHandler) List(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	accounts, err := h.Service.ListAccounts(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": accounts})
}

// Create handles POST /api/v1/admin/users.
func (h *AdminHandler) Create(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	var req createAccountRequest
	if err := common.DecodeAndValidate(r, &req); err != nil {
		common.WriteError(w, err)
		return
	}
	account, err := h.Service.CreateAccount(r.Context(), req.Username, req.Password, req.Roles)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": account})
}

// Delete handles DELETE /api/v1/admin/users/{id}.
func (h *AdminHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	actor, _ := common.UserID(r.Context())
	if err := h.Service.DeleteAccount(r.Context(), actor, chi.URLParam(r, "id")); err != nil {
		common.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ResetPassword handles POST /api/v1/admin/users/{id}/reset-password.
func (h *AdminHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	var req resetPasswordRequest
	if err := common.DecodeAndValidate(r, &req); err != nil {
		common.WriteError(w, err)
		return
	}
	if err := h.Service.ResetPassword(r.Context(), chi.URLParam(r, "id"), req.Password); err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": map[string]any{"message": "password updated"}})
}

// Stats handles GET /api/v1/admin/users/stats.
func (h *AdminHandler) Stats(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	st, err := h.Service.Stats(r.Context())
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": st})
}
