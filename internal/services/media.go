package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"entrepreneur-connect-backend/internal/apperrors"

	"github.com/rs/zerolog/log"
)

// Upload kinds
const (
	KindAvatar = "avatar"
	KindCover  = "cover"
)

// Upload size limits
const (
	MaxAvatarSize int64 = 5 << 20
	MaxCoverSize  int64 = 10 << 20
)

var imageExtensions = map[string]string{
	"image/jpeg": "jpg",
	"image/jpg":  "jpg",
	"image/png":  "png",
	"image/webp": "webp",
}

// ObjectStore issues presigned uploads and deletes replaced objects
type ObjectStore interface {
	PresignPut(ctx context.Context, key, contentType string, size int64, ttl time.Duration) (string, error)
	PublicURL(key string) string
	KeyFromURL(rawURL string) (string, bool)
	Delete(ctx context.Context, key string) error
}

// UploadRequest asks for a presigned upload of an avatar or cover image
type UploadRequest struct {
	Kind        string `json:"kind" validate:"required,oneof=avatar cover"`
	ContentType string `json:"content_type" validate:"required"`
	Size        int64  `json:"size" validate:"gt=0"`
	EventID     string `json:"event_id,omitempty"`
}

// UploadResponse carries the presigned URL and the URL the image will have
type UploadResponse struct {
	UploadURL string `json:"upload_url"`
	PublicURL string `json:"public_url"`
	Key       string `json:"key"`
	ExpiresIn int    `json:"expires_in"`
}

// ConfirmUploadRequest stores an uploaded image on the profile or event
type ConfirmUploadRequest struct {
	Kind      string `json:"kind" validate:"required,oneof=avatar cover"`
	PublicURL string `json:"public_url" validate:"required"`
	EventID   string `json:"event_id,omitempty"`
}

// MediaService handles avatar and cover uploads
type MediaService struct {
	objects  ObjectStore
	profiles ProfileStore
	events   EventStore
	ttl      time.Duration
	now      func() time.Time
}

// NewMediaService creates a new media service
func NewMediaService(objects ObjectStore, profiles ProfileStore, events EventStore, ttl time.Duration) *MediaService {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &MediaService{
		objects:  objects,
		profiles: profiles,
		events:   events,
		ttl:      ttl,
		now:      time.Now,
	}
}

// PresignUpload returns a presigned PUT URL for a new image
func (s *MediaService) PresignUpload(ctx context.Context, userID string, req UploadRequest) (*UploadResponse, error) {
	if err := validateStruct(req); err != nil {
		return nil, err
	}

	contentType := strings.ToLower(strings.TrimSpace(req.ContentType))
	ext, ok := imageExtensions[contentType]
	if !ok {
		return nil, apperrors.NewValidationError("content_type", "only JPEG, PNG and WebP images are accepted")
	}

	limit := MaxAvatarSize
	if req.Kind == KindCover {
		limit = MaxCoverSize
	}
	if req.Size > limit {
		return nil, apperrors.NewValidationError("size", fmt.Sprintf("image must not exceed %d MB", limit>>20))
	}

	owner, err := s.owner(ctx, userID, req.Kind, req.EventID)
	if err != nil {
		return nil, err
	}

	// Key: {avatars|covers}/{owner}/{owner}-{unix ms}.{ext}
	key := fmt.Sprintf("%s/%s-%d.%s", s.prefix(req.Kind, owner), lastSegment(owner), s.now().UnixMilli(), ext)

	uploadURL, err := s.objects.PresignPut(ctx, key, contentType, req.Size, s.ttl)
	if err != nil {
		return nil, err
	}

	return &UploadResponse{
		UploadURL: uploadURL,
		PublicURL: s.objects.PublicURL(key),
		Key:       key,
		ExpiresIn: int(s.ttl.Seconds()),
	}, nil
}

// ConfirmUpload stores an uploaded image and deletes the one it replaces
func (s *MediaService) ConfirmUpload(ctx context.Context, userID string, req ConfirmUploadRequest) (string, error) {
	if err := validateStruct(req); err != nil {
		return "", err
	}

	owner, err := s.owner(ctx, userID, req.Kind, req.EventID)
	if err != nil {
		return "", err
	}

	key, ok := s.objects.KeyFromURL(req.PublicURL)
	if !ok || !strings.HasPrefix(key, s.prefix(req.Kind, owner)+"/") {
		return "", apperrors.NewValidationError("public_url", "public_url does not point to an uploaded image")
	}

	var previous string
	switch {
	case req.EventID != "":
		event, err := s.events.GetByID(ctx, req.EventID)
		if err != nil {
			return "", err
		}
		previous = event.CoverURL
		err = s.events.SetCoverURL(ctx, req.EventID, req.PublicURL)
		if err != nil {
			return "", err
		}
	case req.Kind == KindAvatar:
		profile, err := s.profiles.Get(ctx, userID)
		if err != nil {
			return "", err
		}
		previous = profile.AvatarURL
		if err := s.profiles.SetAvatarURL(ctx, userID, req.PublicURL); err != nil {
			return "", err
		}
	default:
		profile, err := s.profiles.Get(ctx, userID)
		if err != nil {
			return "", err
		}
		previous = profile.CoverURL
		if err := s.profiles.SetCoverURL(ctx, userID, req.PublicURL); err != nil {
			return "", err
		}
	}

	log.Info().Str("user_id", userID).Str("kind", req.Kind).Str("key", key).Msg("Image updated")

	if oldKey, ok := s.objects.KeyFromURL(previous); ok && oldKey != key {
		if err := s.objects.Delete(ctx, oldKey); err != nil {
			log.Warn().Err(err).Str("key", oldKey).Msg("Failed to delete previous image")
		}
	}

	return req.PublicURL, nil
}

// owner returns the path segment owning the upload: the user, or the event
// for event covers after checking the user organizes it
func (s *MediaService) owner(ctx context.Context, userID, kind, eventID string) (string, error) {
	if eventID == "" {
		return userID, nil
	}
	if kind != KindCover {
		return "", apperrors.NewValidationError("event_id", "only covers can be attached to an event")
	}

	event, err := s.events.GetByID(ctx, eventID)
	if err != nil {
		return "", err
	}
	if event.OrganizerID != userID {
		return "", apperrors.NewForbiddenError("only the organizer can change the event cover")
	}
	return "events/" + eventID, nil
}

func (s *MediaService) prefix(kind, owner string) string {
	if kind == KindAvatar {
		return "avatars/" + owner
	}
	return "covers/" + owner
}

func lastSegment(path string) string {
	if i := strings.LastIndex(path, "/"); i >= 0 {
		return path[i+1:]
	}
	return path
}
