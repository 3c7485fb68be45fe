package domain

import (
	"context"
	"time"
)

// AuditEventType defines the type of audit event
type AuditEventType string

const (
	// Verification events
	ChallengeIssuedEvent    AuditEventType = "REPORT_CHALLENGE_ISSUED"
	ChallengeResentEvent    AuditEventType = "REPORT_CHALLENGE_RESENT"
	ChallengeConfirmedEvent AuditEventType = "REPORT_CHALLENGE_CONFIRMED"
	ChallengeFailedEvent    AuditEventType = "REPORT_CHALLENGE_FAILED"

	// Submission events
	ReportSubmittedEvent    AuditEventType = "REPORT_SUBMITTED"
	SubmissionFailedEvent   AuditEventType = "REPORT_SUBMISSION_FAILED"
	EnrichmentDegradedEvent AuditEventType = "REPORT_ENRICHMENT_DEGRADED"
	AttemptAbandonedEvent   AuditEventType = "REPORT_ATTEMPT_ABANDONED"

	// Admin events
	ReportStatusChangedEvent AuditEventType = "REPORT_STATUS_CHANGED"
	ReportFlagToggledEvent   AuditEventType = "REPORT_FLAG_TOGGLED"
	ReportDeletedEvent       AuditEventType = "REPORT_DELETED"
)

// AuditEvent represents a business event that occurred in the system
type AuditEvent struct {
	EventType AuditEventType         `json:"event_type"`
	AttemptID string                 `json:"attempt_id,omitempty"`
	ReportID  string                 `json:"report_id,omitempty"`
	Phone     string                 `json:"phone,omitempty"`
	Actor     string                 `json:"actor,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	ErrorMsg  string                 `json:"error_msg,omitempty"`
	Success   bool                   `json:"success"`
}

// AuditLogger defines operations for audit logging
type AuditLogger interface {
	LogEvent(ctx context.Context, event *AuditEvent) error
}

// NewAuditEvent creates a new audit event with common fields populated
func NewAuditEvent(eventType AuditEventType) *AuditEvent {
	return &AuditEvent{
		EventType: eventType,
		Timestamp: time.Now().UTC(),
		Metadata:  make(map[string]interface{}),
		Success:   true,
	}
}

// WithError sets error information on the audit event
func (e *AuditEvent) WithError(err error) *AuditEvent {
	e.Success = false
	if err != nil {
		e.ErrorMsg = err.Error()
	}
	return e
}

// WithAttempt sets the submission attempt id
func (e *AuditEvent) WithAttempt(attemptID string) *AuditEvent {
	e.AttemptID = attemptID
	return e
}

// WithReport sets the report id
func (e *AuditEvent) WithReport(reportID string) *AuditEvent {
	e.ReportID = reportID
	return e
}

// WithPhone sets the phone field, masking all but the last four digits
func (e *AuditEvent) WithPhone(phone string) *AuditEvent {
	e.Phone = MaskPhone(phone)
	return e
}

// WithActor sets who performed an admin action
func (e *AuditEvent) WithActor(actor string) *AuditEvent {
	e.Actor = actor
	return e
}

// WithMetadata adds metadata to the event
func (e *AuditEvent) WithMetadata(key string, value interface{}) *AuditEvent {
	e.Metadata[key] = value
	return e
}

// MaskPhone hides all but the last four characters of a phone number
func MaskPhone(phone string) string {
	if len(phone) <= 4 {
		return phone
	}
	masked := make([]byte, len(phone))
	for i := range phone {
		if i < len(phone)-4 && phone[i] != '+' {
			masked[i] = '*'
		} else {
			masked[i] = phone[i]
		}
	}
	return string(masked)
}
