package services

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/you/incidentsvc/domain"
)

// MediaService uploads the optional report photo to object storage
type MediaService struct {
	storage  domain.ObjectStorage
	maxBytes int64
	logger   *zap.Logger
	now      func() time.Time
}

// NewMediaService creates a media uploader enforcing maxBytes per image
func NewMediaService(storage domain.ObjectStorage, maxBytes int64, logger *zap.Logger) *MediaService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MediaService{storage: storage, maxBytes: maxBytes, logger: logger, now: time.Now}
}

// Upload stores the image and returns its public URL. Oversized payloads fail with
// ErrPayloadTooLarge before storage is contacted.
func (s *MediaService) Upload(ctx context.Context, image *domain.ImageUpload) (string, error) {
	if image == nil || len(image.Data) == 0 {
		return "", domain.Preconditionf("upload called without image data")
	}
	if s.maxBytes > 0 && image.Size() > s.maxBytes {
		return "", fmt.Errorf("%w: %d bytes exceeds limit of %d", domain.ErrPayloadTooLarge, image.Size(), s.maxBytes)
	}

	contentType := image.ContentType
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = http.DetectContentType(image.Data)
	}
	if !strings.HasPrefix(contentType, "image/") {
		return "", fmt.Errorf("%w: %s", domain.ErrUnsupportedMedia, contentType)
	}

	name, err := s.objectName(image.Filename, contentType)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrUploadFailed, err)
	}

	url, err := s.storage.Store(ctx, name, image.Data, contentType)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrUploadFailed, err)
	}

	s.logger.Debug("image uploaded", zap.String("object", name), zap.Int64("bytes", image.Size()))
	return url, nil
}

// objectName builds reports/<unix-nanos>_<random>.<ext>
func (s *MediaService) objectName(filename, contentType string) (string, error) {
	suffix := make([]byte, 4)
	if _, err := rand.Read(suffix); err != nil {
		return "", err
	}
	return fmt.Sprintf("reports/%d_%s%s", s.now().UnixNano(), hex.EncodeToString(suffix), imageExt(filename, contentType)), nil
}

func imageExt(filename, contentType string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".jpg", ".jpeg", ".png", ".gif", ".webp", ".bmp":
		return ext
	}
	switch contentType {
	case "image/jpeg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "image/gif":
		return ".gif"
	case "image/webp":
		return ".webp"
	case "image/bmp":
		return ".bmp"
	}
	return ""
}

var _ domain.MediaUploader = (*MediaService)(nil)
