package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/you/incidentsvc/domain"
)

// MediaHandlers streams images from storage backends that are not served from disk
type MediaHandlers struct {
	reader domain.MediaReader
	logger *zap.Logger
}

// NewMediaHandlers creates new media handlers
func NewMediaHandlers(reader domain.MediaReader, logger *zap.Logger) *MediaHandlers {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MediaHandlers{reader: reader, logger: logger}
}

// Get streams one stored image
func (h *MediaHandlers) Get(c *gin.Context) {
	rc, contentType, err := h.reader.Open(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, domain.ErrMediaNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Media not found"})
			return
		}
		h.logger.Error("failed to open media", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to open media"})
		return
	}
	defer rc.Close()

	c.Header("Cache-Control", "public, max-age=86400")
	c.DataFromReader(http.StatusOK, -1, contentType, rc, nil)
}
