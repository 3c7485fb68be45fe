package handlers

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/you/incidentsvc/domain"
	"github.com/you/incidentsvc/internal/services"
)

// ScopeHeader lets a client name its verifier scope, e.g. one browser tab
const ScopeHeader = "X-Client-Scope"

const (
	defaultListLimit = 50
	maxListLimit     = 200
)

// ReportHandlers serves the public submission flow and the public report feed
type ReportHandlers struct {
	pipeline      *services.Pipeline
	attempts      *services.AttemptRegistry
	reports       *services.AdminService
	maxImageBytes int64
	logger        *zap.Logger
}

// NewReportHandlers creates new report handlers
func NewReportHandlers(pipeline *services.Pipeline, attempts *services.AttemptRegistry, reports *services.AdminService, maxImageBytes int64, logger *zap.Logger) *ReportHandlers {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReportHandlers{
		pipeline:      pipeline,
		attempts:      attempts,
		reports:       reports,
		maxImageBytes: maxImageBytes,
		logger:        logger,
	}
}

// CreateAttemptRequest is the JSON form of a new report; multipart requests use the same field names
type CreateAttemptRequest struct {
	DisasterType string `json:"disasterType" form:"disasterType"`
	FullName     string `json:"fullName" form:"fullName"`
	Phone        string `json:"phone" form:"phone"`
	Location     string `json:"location" form:"location"`
	Description  string `json:"description" form:"description"`
	Scope        string `json:"scope" form:"scope"`
	CaptchaToken string `json:"captcha_token" form:"captcha_token"`
}

// ResendRequest optionally carries a fresh captcha token
type ResendRequest struct {
	CaptchaToken string `json:"captcha_token"`
}

// ConfirmRequest carries the code the user received
type ConfirmRequest struct {
	Code string `json:"code" binding:"required"`
}

// CreateAttempt validates the draft and sends the verification code
func (h *ReportHandlers) CreateAttempt(c *gin.Context) {
	var req CreateAttemptRequest
	var image *domain.ImageUpload

	if strings.HasPrefix(c.ContentType(), "multipart/") {
		if err := c.ShouldBind(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if fh, err := c.FormFile("image"); err == nil {
			image, err = h.readImage(fh)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "field": "image"})
				return
			}
		} else if !errors.Is(err, http.ErrMissingFile) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "field": "image"})
			return
		}
	} else if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	scope := c.GetHeader(ScopeHeader)
	if scope == "" {
		scope = req.Scope
	}

	draft := domain.DraftReport{
		DisasterType: domain.DisasterType(req.DisasterType),
		FullName:     req.FullName,
		Phone:        req.Phone,
		Location:     req.Location,
		Description:  req.Description,
		Image:        image,
	}

	sub, err := h.pipeline.Start(c.Request.Context(), draft, services.ChallengeRequest{
		Scope:               scope,
		AntiAutomationToken: req.CaptchaToken,
	})
	if err != nil {
		writeSubmissionError(c, err)
		return
	}
	h.attempts.Put(sub)

	c.JSON(http.StatusCreated, gin.H{"data": newAttemptResponse(sub.State())})
}

// GetAttempt returns the attempt's current stage
func (h *ReportHandlers) GetAttempt(c *gin.Context) {
	sub, err := h.attempts.Get(c.Param("id"))
	if err != nil {
		writeSubmissionError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": newAttemptResponse(sub.State())})
}

// Resend issues a new code for the attempt
func (h *ReportHandlers) Resend(c *gin.Context) {
	sub, err := h.attempts.Get(c.Param("id"))
	if err != nil {
		writeSubmissionError(c, err)
		return
	}

	var req ResendRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	if err := sub.Resend(c.Request.Context(), req.CaptchaToken); err != nil {
		writeSubmissionError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": newAttemptResponse(sub.State())})
}

// Confirm checks the code and, on success, stores the report
func (h *ReportHandlers) Confirm(c *gin.Context) {
	id := c.Param("id")
	sub, err := h.attempts.Get(id)
	if err != nil {
		writeSubmissionError(c, err)
		return
	}

	var req ConfirmRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "stage": string(services.StageAwaitCode)})
		return
	}

	result, err := sub.Confirm(c.Request.Context(), req.Code)
	if err != nil {
		if sub.Done() {
			h.attempts.Remove(id)
		}
		writeSubmissionError(c, err)
		return
	}
	h.attempts.Remove(id)

	c.JSON(http.StatusCreated, gin.H{"data": newSubmissionResponse(result)})
}

// CancelAttempt abandons the attempt and frees its verifier
func (h *ReportHandlers) CancelAttempt(c *gin.Context) {
	id := c.Param("id")
	sub, err := h.attempts.Get(id)
	if err != nil {
		writeSubmissionError(c, err)
		return
	}
	if err := sub.Cancel(c.Request.Context()); err != nil {
		writeSubmissionError(c, err)
		return
	}
	h.attempts.Remove(id)
	c.Status(http.StatusNoContent)
}

// List returns the newest reports with phone numbers masked
func (h *ReportHandlers) List(c *gin.Context) {
	limit := defaultListLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = min(n, maxListLimit)
	}

	reports, err := h.reports.List(c.Request.Context(), domain.ReportFilter{Limit: limit})
	if err != nil {
		h.logger.Error("failed to list reports", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list reports"})
		return
	}

	out := make([]domain.PersistedReport, len(reports))
	for i, r := range reports {
		out[i] = publicReport(r)
	}
	c.JSON(http.StatusOK, gin.H{"data": out})
}

// Get returns one report with the phone number masked
func (h *ReportHandlers) Get(c *gin.Context) {
	report, err := h.reports.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, domain.ErrReportNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Report not found"})
			return
		}
		h.logger.Error("failed to get report", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get report"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": publicReport(report)})
}

// readImage reads at most one byte past the limit so oversized photos are detected without
// buffering all of them
func (h *ReportHandlers) readImage(fh *multipart.FileHeader) (*domain.ImageUpload, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("open image: %w", err)
	}
	defer f.Close()

	var r io.Reader = f
	if h.maxImageBytes > 0 {
		r = io.LimitReader(f, h.maxImageBytes+1)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read image: %w", err)
	}
	if len(data) == 0 {
		return nil, nil
	}
	return &domain.ImageUpload{
		Filename:    fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Data:        data,
	}, nil
}
