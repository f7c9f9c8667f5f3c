package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/irgordon/insight/api/internal/api/middleware"
	"github.com/irgordon/insight/api/internal/core/domain"
	"github.com/irgordon/insight/api/internal/core/services"
)

// ==============================================================================
// 1. Request Payloads (Input Validation)
// ==============================================================================

type SetSettingRequest struct {
	Value string `json:"value" validate:"max=65536"`
}

const settingKeyRule = "required,max=254,printascii,excludesall= /"

// ==============================================================================
// 2. The Handler Struct (Dependency Injection)
// ==============================================================================

type SettingHandler struct {
	Service domain.SettingService
}

func NewSettingHandler(service domain.SettingService) *SettingHandler {
	return &SettingHandler{Service: service}
}

// ==============================================================================
// 3. HTTP Methods
// ==============================================================================

// List handles GET /api/v1/settings
func (h *SettingHandler) List(w http.ResponseWriter, r *http.Request) {
	settings, err := h.Service.List(r.Context())
	if err != nil {
		HandleError(w, r, err)
		return
	}
	if settings == nil {
		settings = []domain.Setting{}
	}
	writeJSON(w, http.StatusOK, settings)
}

// Get handles GET /api/v1/settings/{key}. Credential-like settings are
// masked unless the caller may reveal secrets.
func (h *SettingHandler) Get(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	if err := validate.Var(key, settingKeyRule); err != nil {
		HandleError(w, r, err)
		return
	}

	value, err := h.Service.Get(r.Context(), key)
	if err != nil {
		HandleError(w, r, err)
		return
	}

	if services.IsSensitiveKey(key) && !canReveal(r) {
		value = "********"
	}
	writeJSON(w, http.StatusOK, domain.Setting{Key: key, Value: value})
}

// Put handles PUT /api/v1/settings/{key}. An empty value removes the setting.
func (h *SettingHandler) Put(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	if err := validate.Var(key, settingKeyRule); err != nil {
		HandleError(w, r, err)
		return
	}

	var req SetSettingRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := h.Service.Set(r.Context(), key, req.Value); err != nil {
		HandleError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Delete handles DELETE /api/v1/settings/{key}
func (h *SettingHandler) Delete(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	if err := validate.Var(key, settingKeyRule); err != nil {
		HandleError(w, r, err)
		return
	}

	if err := h.Service.Delete(r.Context(), key); err != nil {
		HandleError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func canReveal(r *http.Request) bool {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	return ok && claims.HasScope(services.ScopeRevealSecrets)
}
