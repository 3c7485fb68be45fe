package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/you/incidentsvc/domain"
	"github.com/you/incidentsvc/internal/services"
)

type attemptResponse struct {
	AttemptID string    `json:"attempt_id"`
	State     string    `json:"state"`
	Phone     string    `json:"phone"`
	ExpiresAt time.Time `json:"expires_at"`
	Resends   int       `json:"resends"`
}

func newAttemptResponse(st services.AttemptState) attemptResponse {
	return attemptResponse{
		AttemptID: st.ID,
		State:     string(st.Stage),
		Phone:     st.Phone,
		ExpiresAt: st.ExpiresAt,
		Resends:   st.Resends,
	}
}

type submissionResponse struct {
	ID          string              `json:"id"`
	Status      string              `json:"status"`
	Coordinates *domain.Coordinates `json:"coordinates"`
	ImageURL    *string             `json:"image_url"`
	CreatedAt   time.Time           `json:"created_at"`
	Warnings    []string            `json:"warnings"`
}

func newSubmissionResponse(r *domain.SubmissionResult) submissionResponse {
	warnings := r.Warnings
	if warnings == nil {
		warnings = []string{}
	}
	return submissionResponse{
		ID:          r.ReportID,
		Status:      r.Status,
		Coordinates: r.Coordinates,
		ImageURL:    r.ImageURL,
		CreatedAt:   r.CreatedAt,
		Warnings:    warnings,
	}
}

// publicReport hides the reporter's phone number
func publicReport(r *domain.PersistedReport) domain.PersistedReport {
	out := *r
	out.Phone = domain.MaskPhone(r.Phone)
	return out
}

// writeSubmissionError maps pipeline errors to a status code and tells the client which
// stage to return to
func writeSubmissionError(c *gin.Context, err error) {
	var vErr *domain.ValidationError
	var issueErr *domain.ChallengeIssueError
	var subErr *domain.SubmissionError

	switch {
	case errors.As(err, &vErr):
		c.JSON(http.StatusBadRequest, gin.H{
			"error":  err.Error(),
			"stage":  string(services.StageValidate),
			"field":  vErr.Field,
			"reason": vErr.Reason,
		})
	case errors.As(err, &issueErr):
		status := http.StatusServiceUnavailable
		switch {
		case errors.Is(err, domain.ErrResendThrottled):
			status = http.StatusTooManyRequests
		case errors.Is(err, domain.ErrCaptchaFailed):
			status = http.StatusForbidden
		}
		c.JSON(status, gin.H{
			"error":     err.Error(),
			"stage":     string(services.StageChallenge),
			"retryable": issueErr.Retryable(),
		})
	case errors.Is(err, domain.ErrInvalidCode):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "stage": string(services.StageAwaitCode), "action": "retry"})
	case errors.Is(err, domain.ErrExpiredChallenge):
		c.JSON(http.StatusGone, gin.H{"error": err.Error(), "stage": string(services.StageAwaitCode), "action": "resend"})
	case errors.Is(err, domain.ErrTooManyAttempts):
		c.JSON(http.StatusTooManyRequests, gin.H{"error": err.Error(), "stage": string(services.StageAwaitCode), "action": "resend"})
	case errors.As(err, &subErr):
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error(), "stage": subErr.Stage, "action": "restart"})
	case errors.Is(err, domain.ErrAttemptNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error(), "action": "restart"})
	case errors.Is(err, domain.ErrAttemptBusy):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrPrecondition):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error(), "action": "restart"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Submission failed"})
	}
}
