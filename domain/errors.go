package domain

import (
	"errors"
	"fmt"
)

// Draft validation errors
var (
	ErrInvalidDraft = errors.New("invalid report draft")
)

// Verification errors
var (
	ErrChallengeIssue    = errors.New("verification challenge could not be issued")
	ErrInvalidCode       = errors.New("invalid verification code")
	ErrExpiredChallenge  = errors.New("verification challenge expired or already used")
	ErrTooManyAttempts   = errors.New("maximum verification attempts exceeded")
	ErrResendThrottled   = errors.New("verification resend limit exceeded")
	ErrCaptchaFailed     = errors.New("anti-automation check failed")
	ErrVerifierSlotTaken = errors.New("verifier slot unavailable")
)

// Enrichment errors. These never fail a submission.
var (
	ErrLocationNotFound = errors.New("location not found")
	ErrPayloadTooLarge  = errors.New("image payload too large")
	ErrUnsupportedMedia = errors.New("unsupported image type")
	ErrUploadFailed     = errors.New("image upload failed")
)

// Submission errors
var (
	ErrSubmissionFailed = errors.New("report submission failed")
	ErrAttemptNotFound  = errors.New("submission attempt not found")
	ErrAttemptBusy      = errors.New("submission attempt is already being processed")
	ErrAttemptAbandoned = errors.New("submission attempt abandoned")
)

// ErrPrecondition marks contract violations by the caller. It is never retryable.
var ErrPrecondition = errors.New("precondition failed")

// Report store / admin errors
var (
	ErrReportNotFound = errors.New("report not found")
	ErrInvalidStatus  = errors.New("invalid report status")
	ErrMediaNotFound  = errors.New("media not found")
)

// Admin token errors
var (
	ErrTokenInvalid   = errors.New("invalid token")
	ErrTokenExpired   = errors.New("token expired")
	ErrTokenMalformed = errors.New("malformed token")
	ErrNotAdmin       = errors.New("admin privileges required")
)

// ValidationError reports the first draft field that failed validation
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrInvalidDraft }

// ChallengeIssueError is returned when a challenge cannot be issued. The draft stays editable.
type ChallengeIssueError struct {
	Reason string
	Err    error
}

func (e *ChallengeIssueError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("challenge issue: %s: %v", e.Reason, e.Err)
	}
	return "challenge issue: " + e.Reason
}

// Is lets errors.Is match both ErrChallengeIssue and the wrapped cause
func (e *ChallengeIssueError) Is(target error) bool { return target == ErrChallengeIssue }

func (e *ChallengeIssueError) Unwrap() error { return e.Err }

// Retryable is always true: issuing can be attempted again by the caller
func (e *ChallengeIssueError) Retryable() bool { return true }

// SubmissionError is a fatal failure at a pipeline stage. The caller must restart verification.
type SubmissionError struct {
	Stage string
	Err   error
}

func (e *SubmissionError) Error() string {
	return fmt.Sprintf("submission failed at %s: %v", e.Stage, e.Err)
}

func (e *SubmissionError) Is(target error) bool { return target == ErrSubmissionFailed }

func (e *SubmissionError) Unwrap() error { return e.Err }

// Preconditionf builds an error wrapping ErrPrecondition
func Preconditionf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrPrecondition, fmt.Sprintf(format, args...))
}
