// Package files serves the upload endpoint. An upload keeps the chat's
// heartbeat alive for its whole duration via the activity tracker.
package files

import (
	"bytes"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/skylinehq/skyline/backend/internal/live"
	"github.com/skylinehq/skyline/backend/internal/service/files"
	"github.com/skylinehq/skyline/backend/pkg/utils"
)

// Handler owns the upload route.
type Handler struct {
	blobs     files.BlobStore
	extractor files.Extractor
	tracker   *live.UploadTracker
	maxBytes  int64
	logger    *zap.Logger
}

// New creates the files handler.
func New(blobs files.BlobStore, extractor files.Extractor, tracker *live.UploadTracker, maxBytes int64, logger *zap.Logger) *Handler {
	return &Handler{
		blobs:     blobs,
		extractor: extractor,
		tracker:   tracker,
		maxBytes:  maxBytes,
		logger:    logger.Named("files"),
	}
}

// RegisterRoutes registers the upload route.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/files/upload", h.handleUpload)
}

type uploadResponse struct {
	URL         string `json:"url"`
	Name        string `json:"name"`
	ContentType string `json:"contentType"`
	Text        string `json:"text,omitempty"`
}

func (h *Handler) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes)
	if err := r.ParseMultipartForm(h.maxBytes); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid multipart request or file too large")
		return
	}

	chatID := r.FormValue("chatId")
	if chatID == "" {
		utils.RespondError(w, http.StatusBadRequest, "chatId is required")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		utils.RespondError(w, http.StatusBadRequest, "file is required")
		return
	}
	defer file.Close()

	h.tracker.MarkStarted(chatID)
	defer h.tracker.MarkComplete(chatID)

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	data, err := io.ReadAll(file)
	if err != nil {
		utils.RespondError(w, http.StatusBadRequest, "failed to read upload")
		return
	}

	url, err := h.blobs.Save(r.Context(), header.Filename, contentType, bytes.NewReader(data))
	if err != nil {
		h.logger.Error("blob save failed", zap.String("chat_id", chatID), zap.Error(err))
		utils.RespondError(w, http.StatusInternalServerError, "failed to store file")
		return
	}

	text, err := h.extractor.Extract(r.Context(), contentType, bytes.NewReader(data))
	if err != nil {
		h.logger.Warn("text extraction failed",
			zap.String("chat_id", chatID),
			zap.String("name", header.Filename),
			zap.Error(err))
		text = ""
	}

	h.logger.Info("upload stored",
		zap.String("chat_id", chatID),
		zap.String("name", header.Filename),
		zap.Int("bytes", len(data)))

	utils.RespondJSON(w, http.StatusOK, uploadResponse{
		URL:         url,
		Name:        header.Filename,
		ContentType: contentType,
		Text:        text,
	})
}
