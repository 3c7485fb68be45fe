package domain

import (
	"strings"
	"time"
)

// DisasterType is the incident category chosen on the report form
type DisasterType string

const (
	DisasterFlood      DisasterType = "Flood"
	DisasterFire       DisasterType = "Fire"
	DisasterEarthquake DisasterType = "Earthquake"
	DisasterAccident   DisasterType = "Accident"
	DisasterCyclone    DisasterType = "Cyclone"
	DisasterOther      DisasterType = "Other"
)

// DefaultDisasterTypes is the allowed set when no form rules override it
var DefaultDisasterTypes = []DisasterType{
	DisasterFlood,
	DisasterFire,
	DisasterEarthquake,
	DisasterAccident,
	DisasterCyclone,
	DisasterOther,
}

// Report statuses. Only StatusPending is ever written by the submission pipeline.
const (
	StatusPending    = "pending"
	StatusInProgress = "in-progress"
	StatusResolved   = "resolved"
)

// AdminStatuses lists the statuses an admin may assign
var AdminStatuses = []string{StatusPending, StatusInProgress, StatusResolved}

// ImageUpload is the optional photo attached to a draft
type ImageUpload struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Size returns the payload length in bytes
func (i *ImageUpload) Size() int64 {
	if i == nil {
		return 0
	}
	return int64(len(i.Data))
}

// DraftReport is the in-progress report owned by a single submission attempt
type DraftReport struct {
	DisasterType DisasterType
	FullName     string
	Phone        string
	Location     string
	Description  string
	Image        *ImageUpload
}

// Normalized returns a copy with surrounding whitespace trimmed from text fields
func (d DraftReport) Normalized() DraftReport {
	d.DisasterType = DisasterType(strings.TrimSpace(string(d.DisasterType)))
	d.FullName = strings.TrimSpace(d.FullName)
	d.Phone = strings.TrimSpace(d.Phone)
	d.Location = strings.TrimSpace(d.Location)
	d.Description = strings.TrimSpace(d.Description)
	return d
}

// Coordinates is a resolved latitude/longitude pair
type Coordinates struct {
	Latitude  float64 `json:"lat"`
	Longitude float64 `json:"lng"`
}

// ChallengeHandle identifies one outstanding OTP challenge at the provider
type ChallengeHandle string

// ChallengeState tracks a VerificationSession through the OTP flow
type ChallengeState string

const (
	ChallengeNotStarted ChallengeState = "not_started"
	ChallengeIssued     ChallengeState = "issued"
	ChallengeConfirmed  ChallengeState = "confirmed"
	ChallengeFailed     ChallengeState = "failed"
)

// VerifierLease is the anti-automation verifier held by one submission attempt
type VerifierLease struct {
	Scope      string
	Token      string
	AcquiredAt time.Time
	// TookOver is set when acquiring tore down a stale lease in the same scope
	TookOver bool
}

// VerificationSession is the OTP state of one submission attempt
type VerificationSession struct {
	Phone               string
	Scope               string
	AntiAutomationToken string
	Handle              ChallengeHandle
	AttemptedCode       string
	State               ChallengeState
	Lease               *VerifierLease
	IssuedAt            time.Time
	ExpiresAt           time.Time
	Resends             int
}

// NewVerificationSession creates a session in the NotStarted state
func NewVerificationSession(phone, scope, antiAutomationToken string) *VerificationSession {
	return &VerificationSession{
		Phone:               phone,
		Scope:               scope,
		AntiAutomationToken: antiAutomationToken,
		State:               ChallengeNotStarted,
	}
}

// HasOutstandingChallenge reports whether a code can be confirmed against the session
func (s *VerificationSession) HasOutstandingChallenge() bool {
	if s == nil || s.Handle == "" {
		return false
	}
	return s.State == ChallengeIssued || s.State == ChallengeFailed
}

// IsConfirmed reports whether the session authorizes persistence
func (s *VerificationSession) IsConfirmed() bool {
	return s != nil && s.State == ChallengeConfirmed
}

// IssuedChallenge is what an OTP provider returns for a new challenge
type IssuedChallenge struct {
	Handle    ChallengeHandle
	ExpiresAt time.Time
}

// PersistedReport is the durable record written once verification is confirmed
type PersistedReport struct {
	ID           string       `json:"id"`
	DisasterType DisasterType `json:"disasterType"`
	FullName     string       `json:"fullName"`
	Phone        string       `json:"phone"`
	Location     string       `json:"location"`
	Description  string       `json:"description"`
	Coordinates  *Coordinates `json:"coordinates"`
	ImageURL     *string      `json:"imageUrl"`
	Status       string       `json:"status"`
	Flagged      bool         `json:"flagged"`
	CreatedAt    time.Time    `json:"createdAt"`
}

// ReportFilter narrows report listings
type ReportFilter struct {
	Status  string
	Flagged *bool
	Limit   int
}

// SubmissionResult is returned by a successful submission
type SubmissionResult struct {
	ReportID    string
	Status      string
	Coordinates *Coordinates
	ImageURL    *string
	CreatedAt   time.Time
	// Warnings lists degraded enrichment steps, e.g. "geocode: not found"
	Warnings []string
}

// DashboardStats summarises reports for the admin dashboard
type DashboardStats struct {
	Total        int             `json:"total"`
	ByStatus     map[string]int  `json:"byStatus"`
	Flagged      int             `json:"flagged"`
	Resolution   []StatusSlice   `json:"resolution"`
	TopDisasters []DisasterCount `json:"topDisasters"`
	TopStates    []StateShare    `json:"topStates"`
	WeeklyTrend  []DailyCount    `json:"weeklyTrend"`
	GeneratedAt  time.Time       `json:"generatedAt"`
}

// StatusSlice is one slice of the resolved-vs-pending chart
type StatusSlice struct {
	Name  string `json:"name"`
	Value int    `json:"value"`
}

// DisasterCount counts reports of one disaster type
type DisasterCount struct {
	Type  string `json:"type"`
	Cases int    `json:"cases"`
}

// StateShare is the rounded percentage of reports coming from one state
type StateShare struct {
	State   string `json:"state"`
	Percent int    `json:"percent"`
}

// DailyCount counts reports created on one weekday within the trailing week
type DailyCount struct {
	Day   string `json:"day"`
	Cases int    `json:"cases"`
}

// AdminClaims are the verified claims of an admin bearer token
type AdminClaims struct {
	Subject   string
	Admin     bool
	IssuedAt  int64
	ExpiresAt int64
}
