package handlers

import (
	"net/http"
	"strconv"

	"github.com/irgordon/insight/api/internal/core/domain"
)

// ==============================================================================
// 1. Request Payloads (Input Validation)
// ==============================================================================

// CreateSecretRequest carries the value base64-encoded, as encoding/json
// does for []byte.
type CreateSecretRequest struct {
	Name  string `json:"name" validate:"required,max=254"`
	Kind  string `json:"kind" validate:"required,oneof=keystore certificate password ssh-key"`
	Value []byte `json:"value" validate:"required,max=524288"`
}

// ==============================================================================
// 2. The Handler Struct (Dependency Injection)
// ==============================================================================

type SecretHandler struct {
	Service domain.SecretService
}

func NewSecretHandler(service domain.SecretService) *SecretHandler {
	return &SecretHandler{Service: service}
}

// ==============================================================================
// 3. HTTP Methods
// ==============================================================================

// Create handles POST /api/v1/secrets
func (h *SecretHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateSecretRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	secret, err := h.Service.Create(r.Context(), req.Name, domain.SecretKind(req.Kind), req.Value)
	if err != nil {
		HandleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, secret)
}

// List handles GET /api/v1/secrets
func (h *SecretHandler) List(w http.ResponseWriter, r *http.Request) {
	secrets, err := h.Service.List(r.Context())
	if err != nil {
		HandleError(w, r, err)
		return
	}
	if secrets == nil {
		secrets = []domain.Secret{}
	}
	writeJSON(w, http.StatusOK, secrets)
}

// GetByID handles GET /api/v1/secrets/{id}
func (h *SecretHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	secret, err := h.Service.Get(r.Context(), id)
	if err != nil {
		HandleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, secret)
}

// Value handles GET /api/v1/secrets/{id}/value. The router restricts it to
// tokens allowed to reveal secrets.
func (h *SecretHandler) Value(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	value, err := h.Service.Value(r.Context(), id)
	if err != nil {
		HandleError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Length", strconv.Itoa(len(value)))
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	w.Write(value)
}

// Delete handles DELETE /api/v1/secrets/{id}
func (h *SecretHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	if err := h.Service.Delete(r.Context(), id); err != nil {
		HandleError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
