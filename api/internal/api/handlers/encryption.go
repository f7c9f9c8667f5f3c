package handlers

import (
	"context"
	"net/http"

	"github.com/irgordon/insight/api/internal/core/domain"
	"github.com/irgordon/insight/api/internal/telemetry"
)

// Sweeper re-saves plaintext rows encrypted.
type Sweeper interface {
	SweepOnce(ctx context.Context) ([]domain.SweepRun, error)
}

// EventStats reports on the live sweep event feed.
type EventStats interface {
	Subscribers(topic string) int
	Dropped() int64
}

type eventFeed struct {
	Subscribers int   `json:"subscribers"`
	Dropped     int64 `json:"dropped"`
}

type encryptionStatus struct {
	Enabled      bool              `json:"enabled"`
	RecentSweeps []domain.SweepRun `json:"recent_sweeps"`
	Events       *eventFeed        `json:"events,omitempty"`
}

type EncryptionHandler struct {
	Crypto  interface{ Enabled() bool }
	Sweeper Sweeper
	History domain.SweepRepository
	Events  EventStats
}

// NewEncryptionHandler builds the handler; events may be nil when no live
// feed is wired.
func NewEncryptionHandler(crypto interface{ Enabled() bool }, sweeper Sweeper, history domain.SweepRepository, events EventStats) *EncryptionHandler {
	return &EncryptionHandler{Crypto: crypto, Sweeper: sweeper, History: history, Events: events}
}

// Status handles GET /api/v1/encryption
func (h *EncryptionHandler) Status(w http.ResponseWriter, r *http.Request) {
	runs, err := h.History.ListSweeps(r.Context(), 20)
	if err != nil {
		HandleError(w, r, err)
		return
	}
	if runs == nil {
		runs = []domain.SweepRun{}
	}
	status := encryptionStatus{Enabled: h.Crypto.Enabled(), RecentSweeps: runs}
	if h.Events != nil {
		status.Events = &eventFeed{
			Subscribers: h.Events.Subscribers(telemetry.TopicSweeps),
			Dropped:     h.Events.Dropped(),
		}
	}
	writeJSON(w, http.StatusOK, status)
}

// Sweep handles POST /api/v1/encryption/sweep
func (h *EncryptionHandler) Sweep(w http.ResponseWriter, r *http.Request) {
	if !h.Crypto.Enabled() {
		http.Error(w, `{"message": "Encryption is not enabled"}`, http.StatusConflict)
		return
	}

	runs, err := h.Sweeper.SweepOnce(r.Context())
	if err != nil {
		HandleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, runs)
}
