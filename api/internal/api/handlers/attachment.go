package handlers

import (
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/irgordon/insight/api/internal/core/domain"
)

const attachmentNameRule = `required,max=128,excludesall=/\`

type AttachmentHandler struct {
	Service  domain.AttachmentService
	MaxBytes int64
}

func NewAttachmentHandler(service domain.AttachmentService, maxBytes int64) *AttachmentHandler {
	return &AttachmentHandler{Service: service, MaxBytes: maxBytes}
}

// Put handles PUT /api/v1/attachments/{name}. The body is streamed to the
// store; nothing is buffered whole.
func (h *AttachmentHandler) Put(w http.ResponseWriter, r *http.Request) {
	name, ok := attachmentName(w, r)
	if !ok {
		return
	}

	if r.ContentLength > h.MaxBytes {
		http.Error(w, `{"message": "Attachment too large"}`, http.StatusRequestEntityTooLarge)
		return
	}
	body := http.MaxBytesReader(w, r.Body, h.MaxBytes)

	info, err := h.Service.Put(r.Context(), name, body)
	if err != nil {
		HandleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, info)
}

// Get handles GET /api/v1/attachments/{name}
func (h *AttachmentHandler) Get(w http.ResponseWriter, r *http.Request) {
	name, ok := attachmentName(w, r)
	if !ok {
		return
	}

	rc, err := h.Service.Open(r.Context(), name)
	if err != nil {
		HandleError(w, r, err)
		return
	}
	defer rc.Close()

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Disposition", "attachment; filename="+strconv.Quote(name))
	w.WriteHeader(http.StatusOK)

	// Headers are gone by now; a mid-stream failure can only be logged.
	if _, err := io.Copy(w, rc); err != nil {
		slog.WarnContext(r.Context(), "Attachment stream interrupted",
			slog.String("name", name),
			slog.Any("error", err))
	}
}

// Stat handles GET /api/v1/attachments/{name}/info
func (h *AttachmentHandler) Stat(w http.ResponseWriter, r *http.Request) {
	name, ok := attachmentName(w, r)
	if !ok {
		return
	}

	info, err := h.Service.Stat(r.Context(), name)
	if err != nil {
		HandleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

// Delete handles DELETE /api/v1/attachments/{name}
func (h *AttachmentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	name, ok := attachmentName(w, r)
	if !ok {
		return
	}

	if err := h.Service.Delete(r.Context(), name); err != nil {
		HandleError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func attachmentName(w http.ResponseWriter, r *http.Request) (string, bool) {
	name := chi.URLParam(r, "name")
	if err := validate.Var(name, attachmentNameRule); err != nil || name == "." || name == ".." {
		http.Error(w, `{"message": "Invalid attachment name"}`, http.StatusBadRequest)
		return "", false
	}
	return name, true
}
