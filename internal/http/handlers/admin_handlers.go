package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/you/incidentsvc/domain"
	"github.com/you/incidentsvc/internal/http/middleware"
	"github.com/you/incidentsvc/internal/services"
)

// AdminHandlers serves report moderation and the dashboard
type AdminHandlers struct {
	admin  *services.AdminService
	logger *zap.Logger
}

// NewAdminHandlers creates new admin handlers
func NewAdminHandlers(admin *services.AdminService, logger *zap.Logger) *AdminHandlers {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AdminHandlers{admin: admin, logger: logger}
}

// UpdateStatusRequest represents a status change
type UpdateStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// BulkDeleteRequest lists the reports to delete
type BulkDeleteRequest struct {
	IDs []string `json:"ids" binding:"required,min=1"`
}

// Verify confirms the caller holds a valid admin token
func (h *AdminHandlers) Verify(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"data": gin.H{"admin": true, "subject": c.GetString(middleware.AdminSubjectKey)}})
}

// List returns reports filtered by status and flagged
func (h *AdminHandlers) List(c *gin.Context) {
	filter := domain.ReportFilter{Status: c.Query("status")}
	if raw := c.Query("flagged"); raw != "" {
		flagged, err := strconv.ParseBool(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "flagged must be true or false"})
			return
		}
		filter.Flagged = &flagged
	}
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a non-negative integer"})
			return
		}
		filter.Limit = n
	}

	reports, err := h.admin.List(c.Request.Context(), filter)
	if err != nil {
		h.writeError(c, err, "Failed to list reports")
		return
	}
	if reports == nil {
		reports = []*domain.PersistedReport{}
	}
	c.JSON(http.StatusOK, gin.H{"data": reports})
}

// UpdateStatus sets a report's status
func (h *AdminHandlers) UpdateStatus(c *gin.Context) {
	var req UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	id := c.Param("id")
	if err := h.admin.UpdateStatus(c.Request.Context(), h.actor(c), id, req.Status); err != nil {
		h.writeError(c, err, "Failed to update status")
		return
	}
	report, err := h.admin.Get(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, err, "Failed to load report")
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": report})
}

// ToggleFlag flips a report's flagged marker
func (h *AdminHandlers) ToggleFlag(c *gin.Context) {
	id := c.Param("id")
	flagged, err := h.admin.ToggleFlag(c.Request.Context(), h.actor(c), id)
	if err != nil {
		h.writeError(c, err, "Failed to toggle flag")
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": gin.H{"id": id, "flagged": flagged}})
}

// Delete removes one report
func (h *AdminHandlers) Delete(c *gin.Context) {
	if err := h.admin.Delete(c.Request.Context(), h.actor(c), c.Param("id")); err != nil {
		h.writeError(c, err, "Failed to delete report")
		return
	}
	c.Status(http.StatusNoContent)
}

// BulkDelete removes several reports; ids that no longer exist are skipped
func (h *AdminHandlers) BulkDelete(c *gin.Context) {
	var req BulkDeleteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	deleted, err := h.admin.BulkDelete(c.Request.Context(), h.actor(c), req.IDs)
	if err != nil {
		h.logger.Error("bulk delete stopped", zap.Int("deleted", deleted), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Bulk delete failed", "deleted": deleted})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": gin.H{"deleted": deleted}})
}

// Dashboard returns aggregated report statistics
func (h *AdminHandlers) Dashboard(c *gin.Context) {
	stats, err := h.admin.Dashboard(c.Request.Context())
	if err != nil {
		h.writeError(c, err, "Failed to build dashboard")
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": stats})
}

func (h *AdminHandlers) actor(c *gin.Context) string {
	return c.GetString(middleware.AdminSubjectKey)
}

func (h *AdminHandlers) writeError(c *gin.Context, err error, message string) {
	switch {
	case errors.Is(err, domain.ErrReportNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Report not found"})
	case errors.Is(err, domain.ErrInvalidStatus):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "allowed": domain.AdminStatuses})
	default:
		h.logger.Error(message, zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": message})
	}
}
