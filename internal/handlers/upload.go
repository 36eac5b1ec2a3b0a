package handlers

import (
	"context"
	"net/http"

	"entrepreneur-connect-backend/internal/middleware"
	"entrepreneur-connect-backend/internal/services"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// MediaService issues presigned uploads and stores the resulting images
type MediaService interface {
	PresignUpload(ctx context.Context, userID string, req services.UploadRequest) (*services.UploadResponse, error)
	ConfirmUpload(ctx context.Context, userID string, req services.ConfirmUploadRequest) (string, error)
}

// UploadHandler handles image upload HTTP requests
type UploadHandler struct {
	media MediaService
}

// NewUploadHandler creates a new upload handler
func NewUploadHandler(media MediaService) *UploadHandler {
	return &UploadHandler{media: media}
}

// ConfirmUploadResponse carries the stored image URL
type ConfirmUploadResponse struct {
	URL string `json:"url"`
}

// PresignUpload handles POST /api/v1/uploads
func (h *UploadHandler) PresignUpload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)

	var req services.UploadRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	response, err := h.media.PresignUpload(ctx, userID, req)
	if err != nil {
		respondServiceError(w, err, "Failed to generate pre-signed URL", func(e *zerolog.Event) {
			e.Str("user_id", userID).Str("kind", req.Kind).Str("content_type", req.ContentType)
		})
		return
	}

	log.Info().
		Str("user_id", userID).
		Str("key", response.Key).
		Msg("Pre-signed URL generated")

	respondJSON(w, http.StatusOK, response)
}

// ConfirmUpload handles POST /api/v1/uploads/confirm
func (h *UploadHandler) ConfirmUpload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)

	var req services.ConfirmUploadRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	url, err := h.media.ConfirmUpload(ctx, userID, req)
	if err != nil {
		respondServiceError(w, err, "Failed to confirm upload", func(e *zerolog.Event) {
			e.Str("user_id", userID).Str("kind", req.Kind)
		})
		return
	}

	respondJSON(w, http.StatusOK, ConfirmUploadResponse{URL: url})
}
