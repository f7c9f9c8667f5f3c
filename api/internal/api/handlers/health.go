package handlers

import (
	"context"
	"net/http"
	"time"
)

type healthResponse struct {
	Status     string `json:"status"`
	Database   string `json:"database"`
	Encryption string `json:"encryption"`
}

type HealthHandler struct {
	checkDB    func(context.Context) error
	encryption interface{ Enabled() bool }
}

func NewHealthHandler(checkDB func(context.Context) error, encryption interface{ Enabled() bool }) *HealthHandler {
	return &HealthHandler{checkDB: checkDB, encryption: encryption}
}

// Check handles GET /health
func (h *HealthHandler) Check(w http.ResponseWriter, r *http.Request) {
	// 🛡️ SLA: Use a tight timeout for health checks
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	resp := healthResponse{Status: "healthy", Database: "up", Encryption: "disabled"}
	if h.encryption.Enabled() {
		resp.Encryption = "enabled"
	}

	if err := h.checkDB(ctx); err != nil {
		resp.Status = "unhealthy"
		resp.Database = "down"
		writeJSON(w, http.StatusServiceUnavailable, resp)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}
