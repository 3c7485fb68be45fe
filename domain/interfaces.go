package domain

import (
	"context"
	"io"
)

// ReportRepository defines report persistence operations
type ReportRepository interface {
	// Create writes the report as a single atomic creation and returns the store-assigned id
	Create(ctx context.Context, report *PersistedReport) (string, error)
	FindByID(ctx context.Context, id string) (*PersistedReport, error)
	List(ctx context.Context, filter ReportFilter) ([]*PersistedReport, error)
	UpdateStatus(ctx context.Context, id, status string) error
	SetFlagged(ctx context.Context, id string, flagged bool) error
	Delete(ctx context.Context, id string) error
}

// OTPProvider issues and confirms phone verification challenges
type OTPProvider interface {
	IssueChallenge(ctx context.Context, phone, antiAutomationToken string) (*IssuedChallenge, error)
	// ConfirmChallenge returns ErrInvalidCode, ErrExpiredChallenge or ErrTooManyAttempts on rejection
	ConfirmChallenge(ctx context.Context, handle ChallengeHandle, code string) error
	// DiscardChallenge invalidates a handle; discarding an unknown handle is not an error
	DiscardChallenge(ctx context.Context, handle ChallengeHandle) error
}

// AntiAutomationGuard checks the client's bot-mitigation token
type AntiAutomationGuard interface {
	Verify(ctx context.Context, token string) error
}

// VerifierSlot is the single-slot anti-automation verifier resource per client scope
type VerifierSlot interface {
	Acquire(ctx context.Context, scope string) (*VerifierLease, error)
	// Release frees the slot only when the lease still owns it
	Release(ctx context.Context, lease *VerifierLease) error
}

// NotificationService defines notification operations
type NotificationService interface {
	SendSMS(ctx context.Context, to, message string) error
}

// GeocodingProvider resolves free text to coordinates, returning ErrLocationNotFound when nothing matches
type GeocodingProvider interface {
	Geocode(ctx context.Context, text string) (*Coordinates, error)
}

// ObjectStorage stores binary objects and returns a public URL
type ObjectStorage interface {
	Store(ctx context.Context, name string, data []byte, contentType string) (string, error)
}

// MediaReader streams stored objects back, used by storage backends that are not served statically
type MediaReader interface {
	Open(ctx context.Context, id string) (io.ReadCloser, string, error)
}

// Geocoder is the best-effort location resolver used by the pipeline. A nil result means unknown.
type Geocoder interface {
	Resolve(ctx context.Context, location string) *Coordinates
}

// MediaUploader is the best-effort image uploader used by the pipeline
type MediaUploader interface {
	Upload(ctx context.Context, image *ImageUpload) (string, error)
}

// AdminTokenService issues and validates the bearer tokens that gate admin endpoints
type AdminTokenService interface {
	GenerateAdminToken(subject string) (string, error)
	ValidateAdminToken(token string) (*AdminClaims, error)
}
