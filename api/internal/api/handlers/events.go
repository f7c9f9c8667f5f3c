package handlers

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/irgordon/insight/api/internal/telemetry"
)

const defaultHeartbeat = 25 * time.Second

// EventStream relays hub topics to clients as server-sent events.
type EventStream struct {
	Hub       *telemetry.Hub
	Logger    *slog.Logger
	Heartbeat time.Duration
}

func NewEventStream(hub *telemetry.Hub, logger *slog.Logger) *EventStream {
	return &EventStream{Hub: hub, Logger: logger, Heartbeat: defaultHeartbeat}
}

// Sweeps handles GET /api/v1/encryption/events
func (h *EventStream) Sweeps(w http.ResponseWriter, r *http.Request) {
	h.stream(w, r, telemetry.TopicSweeps, "sweep")
}

func (h *EventStream) stream(w http.ResponseWriter, r *http.Request, topic, event string) {
	rc := http.NewResponseController(w)
	// The server write timeout is sized for attachments, not open streams.
	_ = rc.SetWriteDeadline(time.Time{})

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch := h.Hub.Subscribe(topic)
	defer h.Hub.Unsubscribe(topic, ch)

	fmt.Fprintf(w, "event: connected\ndata: {\"topic\": %q}\n\n", topic)
	if err := rc.Flush(); err != nil {
		h.Logger.Warn("SSE flush unsupported", slog.Any("error", err))
		return
	}

	heartbeat := time.NewTicker(h.Heartbeat)
	defer heartbeat.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-heartbeat.C:
			fmt.Fprint(w, ": keepalive\n\n")
		case msg, ok := <-ch:
			if !ok {
				return
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, msg)
		}
		if err := rc.Flush(); err != nil {
			return
		}
	}
}
