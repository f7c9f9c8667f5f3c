package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/irgordon/insight/api/internal/core/domain"
	"github.com/irgordon/insight/api/internal/core/services"
)

// ==============================================================================
// 1. Request Payloads (Input Validation)
// ==============================================================================

type CreateDatabaseRequest struct {
	Name    string         `json:"name" validate:"required,max=254"`
	Engine  string         `json:"engine" validate:"required,oneof=postgres mysql h2 sqlserver oracle snowflake bigquery redshift mongo"`
	Details map[string]any `json:"details" validate:"required"`
}

type UpdateDetailsRequest struct {
	Details map[string]any `json:"details" validate:"required"`
}

// ==============================================================================
// 2. The Handler Struct (Dependency Injection)
// ==============================================================================

type DatabaseHandler struct {
	Service domain.DatabaseService
}

func NewDatabaseHandler(service domain.DatabaseService) *DatabaseHandler {
	return &DatabaseHandler{Service: service}
}

// ==============================================================================
// 3. HTTP Methods
// ==============================================================================

// Create handles POST /api/v1/databases
func (h *DatabaseHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateDatabaseRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	created, err := h.Service.CreateDatabase(r.Context(), &domain.DatabaseConnection{
		Name:    req.Name,
		Engine:  req.Engine,
		Details: req.Details,
	})
	if err != nil {
		HandleError(w, r, err)
		return
	}

	created.Details = services.RedactDetails(created.Details)
	writeJSON(w, http.StatusCreated, created)
}

// List handles GET /api/v1/databases
func (h *DatabaseHandler) List(w http.ResponseWriter, r *http.Request) {
	dbs, err := h.Service.ListDatabases(r.Context())
	if err != nil {
		HandleError(w, r, err)
		return
	}
	if dbs == nil {
		dbs = []domain.DatabaseConnection{}
	}
	writeJSON(w, http.StatusOK, dbs)
}

// GetByID handles GET /api/v1/databases/{id}
func (h *DatabaseHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	db, err := h.Service.GetDatabase(r.Context(), id)
	if err != nil {
		HandleError(w, r, err)
		return
	}

	db.Details = services.RedactDetails(db.Details)
	writeJSON(w, http.StatusOK, db)
}

// UpdateDetails handles PUT /api/v1/databases/{id}/details
func (h *DatabaseHandler) UpdateDetails(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	var req UpdateDetailsRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := h.Service.UpdateDetails(r.Context(), id, req.Details); err != nil {
		HandleError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Delete handles DELETE /api/v1/databases/{id}
func (h *DatabaseHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	if err := h.Service.DeleteDatabase(r.Context(), id); err != nil {
		HandleError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func parseID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, `{"message": "Invalid ID format"}`, http.StatusBadRequest)
		return uuid.Nil, false
	}
	return id, true
}
