package auth

import (
	"errors"
	"net/http"
	"time"

	"github.com/remotehive-dev/Spark-Configurator/internal/common"
	"github.com/remotehive-dev/Spark-Configurator/internal/obs"
	"github.com/remotehive-dev/Spark-Configurator/internal/security"
)

// Handler serves login, logout and the current-account endpoint.
type Handler struct {
	Service          *Service
	CSRF             security.CSRF
	AccessCookieName string
	CookieDomain     string
	CookieSecure     bool
	CookieSameSite   http.SameSite
}

type loginRequest struct {
	Username string `json:"username" validate:"notblank,max=100"`
	Password string `json:"password" validate:"required,max=200"`
}

func (h *Handler) ready(w http.ResponseWriter) bool {
	if h.Service == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "auth service not configured", nil)
		return false
	}
	return true
}

// Login handles POST /api/v1/auth/login.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	var req loginRequest
	if err := common.DecodeAndValidate(r, &req); err != nil {
		common.WriteError(w, err)
		return
	}
	result, err := h.Service.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		var appErr *common.AppError
		if errors.As(err, &appErr) && appErr.Code == "INVALID_CREDENTIALS" {
			obs.RecordLogin("failure")
		} else {
			obs.RecordLogin("error")
		}
		common.WriteError(w, err)
		return
	}
	obs.RecordLogin("success")

	if h.AccessCookieName != "" {
		c := h.sessionCookie(result.AccessToken)
		c.Expires = result.AccessExpiry
		http.SetCookie(w, c)
	}
	csrfToken, err := h.CSRF.Issue(w, result.AccessToken, h.Service.AccessTTL(), h.CookieSecure, h.CookieSameSite)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": loginResponse{
		UserID:          result.Principal.UserID,
		Username:        result.Principal.Username,
		Roles:           result.Principal.Roles,
		AccessToken:     result.AccessToken,
		AccessExpiresAt: result.AccessExpiry,
		CSRFToken:       csrfToken,
	}})
}

type loginResponse struct {
	UserID          string    `json:"userId"`
	Username        string    `json:"username"`
	Roles           []string  `json:"roles"`
	AccessToken     string    `json:"accessToken"`
	AccessExpiresAt time.Time `json:"accessExpiresAt"`
	CSRFToken       string    `json:"csrfToken"`
}

func (h *Handler) sessionCookie(value string) *http.Cookie {
	return &http.Cookie{
		Name:     h.AccessCookieName,
		Value:    value,
		Domain:   h.CookieDomain,
		Path:     "/",
		HttpOnly: true,
		Secure:   h.CookieSecure,
		SameSite: h.CookieSameSite,
	}
}

// Logout handles POST /api/v1/auth/logout. Tokens are stateless, so logging
// out only clears the browser cookies.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if h.AccessCookieName != "" {
		c := h.sessionCookie("")
		c.MaxAge = -1
		http.SetCookie(w, c)
	}
	h.CSRF.Clear(w)
	w.WriteHeader(http.StatusNoContent)
}

// Me handles GET /api/v1/auth/me.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	userID, ok := common.UserID(r.Context())
	if !ok {
		common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing or invalid token", nil)
		return
	}
	p, err := h.Service.Me(r.Context(), userID)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": p})
}
