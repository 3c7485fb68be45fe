package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/you/incidentsvc/domain"
)

// Stage names where a submission attempt currently sits
type Stage string

const (
	StageValidate  Stage = "validate"
	StageChallenge Stage = "challenge"
	StageAwaitCode Stage = "await_code"
	StageConfirm   Stage = "confirm"
	StageEnrich    Stage = "enrich"
	StagePersist   Stage = "persist"
	StageComplete  Stage = "complete"
	StageAbandoned Stage = "abandoned"
	StageFailed    Stage = "failed"
)

// ChallengeRequest carries the client-side inputs needed to issue a challenge
type ChallengeRequest struct {
	// Scope identifies the client (browser tab, device) owning the verifier slot
	Scope               string
	AntiAutomationToken string
}

// PipelineConfig tunes the submission pipeline
type PipelineConfig struct {
	EnrichTimeout time.Duration
}

// Pipeline is the report submission orchestrator. Each Start creates an independent attempt.
type Pipeline struct {
	validator  *FormValidator
	challenges *ChallengeService
	geocoder   domain.Geocoder
	media      domain.MediaUploader
	reports    domain.ReportRepository
	audit      domain.AuditLogger
	logger     *zap.Logger
	config     PipelineConfig
	now        func() time.Time
}

// NewPipeline wires the submission pipeline
func NewPipeline(
	validator *FormValidator,
	challenges *ChallengeService,
	geocoder domain.Geocoder,
	media domain.MediaUploader,
	reports domain.ReportRepository,
	audit domain.AuditLogger,
	logger *zap.Logger,
	config PipelineConfig,
) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.EnrichTimeout <= 0 {
		config.EnrichTimeout = 5 * time.Second
	}
	return &Pipeline{
		validator:  validator,
		challenges: challenges,
		geocoder:   geocoder,
		media:      media,
		reports:    reports,
		audit:      audit,
		logger:     logger,
		config:     config,
		now:        time.Now,
	}
}

// Start validates the draft and issues the phone challenge. The returned Submission waits for a code.
func (p *Pipeline) Start(ctx context.Context, draft domain.DraftReport, req ChallengeRequest) (*Submission, error) {
	valid, err := p.validator.Validate(draft)
	if err != nil {
		return nil, err
	}

	id := uuid.NewString()
	session := domain.NewVerificationSession(valid.Phone, req.Scope, req.AntiAutomationToken)
	if session.Scope == "" {
		session.Scope = id
	}

	if _, err := p.challenges.Issue(ctx, session); err != nil {
		p.record(ctx, domain.NewAuditEvent(domain.ChallengeFailedEvent).
			WithAttempt(id).WithPhone(valid.Phone).WithError(err))
		return nil, err
	}

	p.record(ctx, domain.NewAuditEvent(domain.ChallengeIssuedEvent).
		WithAttempt(id).WithPhone(valid.Phone))

	now := p.now()
	return &Submission{
		id:         id,
		pipeline:   p,
		draft:      valid,
		session:    session,
		stage:      StageAwaitCode,
		expiresAt:  session.ExpiresAt,
		createdAt:  now,
		lastActive: now,
	}, nil
}

// Submit runs the whole pipeline, suspending on prompt until the user supplies a code,
// asks for a resend or cancels. Cancelling ctx abandons the attempt.
func (p *Pipeline) Submit(ctx context.Context, draft domain.DraftReport, req ChallengeRequest, prompt CodePrompt) (*domain.SubmissionResult, error) {
	sub, err := p.Start(ctx, draft, req)
	if err != nil {
		return nil, err
	}

	var lastErr error
	for {
		action, err := prompt.AwaitCode(ctx, sub.prompt(lastErr))
		if err == nil && ctx.Err() != nil {
			err = ctx.Err()
		}
		if err != nil {
			_ = sub.Cancel(context.WithoutCancel(ctx))
			return nil, fmt.Errorf("%w: %v", domain.ErrAttemptAbandoned, err)
		}

		switch action.Kind {
		case ActionCancel:
			if err := sub.Cancel(ctx); err != nil {
				return nil, err
			}
			return nil, domain.ErrAttemptAbandoned

		case ActionResend:
			// A failed resend is returned to the prompt; the user decides whether to retry
			lastErr = sub.Resend(ctx, action.AntiAutomationToken)

		case ActionCode:
			result, err := sub.Confirm(ctx, action.Code)
			if err == nil {
				return result, nil
			}
			if sub.Done() {
				return nil, err
			}
			lastErr = err

		default:
			lastErr = domain.Preconditionf("unknown user action %d", action.Kind)
		}
	}
}

// enrich geocodes the location and uploads the image concurrently. Neither can fail the submission.
func (p *Pipeline) enrich(ctx context.Context, draft domain.DraftReport) (*domain.Coordinates, *string, []string) {
	ctx, cancel := context.WithTimeout(ctx, p.config.EnrichTimeout)
	defer cancel()

	var (
		coords    *domain.Coordinates
		imageURL  *string
		uploadErr error
		g         errgroup.Group
	)

	if p.geocoder != nil {
		g.Go(func() error {
			coords = p.geocoder.Resolve(ctx, draft.Location)
			return nil
		})
	}
	if draft.Image != nil && p.media != nil {
		g.Go(func() error {
			url, err := p.media.Upload(ctx, draft.Image)
			if err != nil {
				uploadErr = err
				return nil
			}
			imageURL = &url
			return nil
		})
	}
	_ = g.Wait()

	var warnings []string
	if coords == nil {
		warnings = append(warnings, "geocode: location could not be resolved")
	}
	if uploadErr != nil {
		warnings = append(warnings, "image: "+uploadErr.Error())
	}
	return coords, imageURL, warnings
}

func (p *Pipeline) persist(ctx context.Context, draft domain.DraftReport, coords *domain.Coordinates, imageURL *string) (*domain.PersistedReport, error) {
	report := &domain.PersistedReport{
		DisasterType: draft.DisasterType,
		FullName:     draft.FullName,
		Phone:        draft.Phone,
		Location:     draft.Location,
		Description:  draft.Description,
		Coordinates:  coords,
		ImageURL:     imageURL,
		Status:       domain.StatusPending,
		Flagged:      false,
		CreatedAt:    p.now().UTC(),
	}
	id, err := p.reports.Create(ctx, report)
	if err != nil {
		return nil, err
	}
	report.ID = id
	return report, nil
}

func (p *Pipeline) record(ctx context.Context, event *domain.AuditEvent) {
	if p.audit == nil {
		return
	}
	if err := p.audit.LogEvent(ctx, event); err != nil {
		p.logger.Warn("failed to record audit event", zap.String("event", string(event.EventType)), zap.Error(err))
	}
}

// Submission is one in-flight report attempt owning its draft and verification session.
// Confirm and Resend are rejected with ErrAttemptBusy while another call is running.
type Submission struct {
	id       string
	pipeline *Pipeline

	mu         sync.Mutex
	inFlight   bool
	done       bool
	stage      Stage
	draft      domain.DraftReport
	session    *domain.VerificationSession
	result     *domain.SubmissionResult
	expiresAt  time.Time
	resends    int
	createdAt  time.Time
	lastActive time.Time
}

// AttemptState is a read-only view of a Submission
type AttemptState struct {
	ID        string
	Stage     Stage
	Phone     string
	ExpiresAt time.Time
	Resends   int
	CreatedAt time.Time
}

// ID returns the attempt id
func (s *Submission) ID() string { return s.id }

// State returns a snapshot of the attempt
func (s *Submission) State() AttemptState {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := AttemptState{
		ID:        s.id,
		Stage:     s.stage,
		Phone:     domain.MaskPhone(s.draft.Phone),
		ExpiresAt: s.expiresAt,
		Resends:   s.resends,
		CreatedAt: s.createdAt,
	}
	return st
}

// Done reports whether the attempt completed, failed or was abandoned
func (s *Submission) Done() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.done
}

// LastActive returns when the attempt last handled a call
func (s *Submission) LastActive() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActive
}

// Result returns the submission result once the attempt completed
func (s *Submission) Result() *domain.SubmissionResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.result
}

// acquire marks the attempt busy. Every successful acquire must be paired with release.
func (s *Submission) acquire() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done {
		return domain.Preconditionf("submission attempt %s is %s", s.id, s.stage)
	}
	if s.inFlight {
		return domain.ErrAttemptBusy
	}
	s.inFlight = true
	s.lastActive = s.pipeline.now()
	return nil
}

func (s *Submission) release() {
	s.mu.Lock()
	s.inFlight = false
	s.mu.Unlock()
}

func (s *Submission) setStage(stage Stage) {
	s.mu.Lock()
	s.stage = stage
	s.mu.Unlock()
}

// Resend replaces the current challenge with a new one. A non-empty token replaces the
// anti-automation token. A failed resend leaves the current code confirmable.
func (s *Submission) Resend(ctx context.Context, antiAutomationToken string) error {
	if err := s.acquire(); err != nil {
		return err
	}
	defer s.release()

	p := s.pipeline
	s.setStage(StageChallenge)
	_, err := p.challenges.Resend(ctx, s.session, antiAutomationToken)
	s.mu.Lock()
	s.stage = StageAwaitCode
	s.expiresAt = s.session.ExpiresAt
	s.resends = s.session.Resends
	s.mu.Unlock()

	event := domain.NewAuditEvent(domain.ChallengeResentEvent).WithAttempt(s.id).WithPhone(s.draft.Phone)
	if err != nil {
		p.record(ctx, event.WithError(err))
		return err
	}
	p.record(ctx, event.WithMetadata("resends", s.session.Resends))
	return nil
}

// Confirm checks the code and, once verified, enriches and persists the report.
// Invalid or expired codes leave the attempt waiting for another code or a resend.
func (s *Submission) Confirm(ctx context.Context, code string) (*domain.SubmissionResult, error) {
	if err := s.acquire(); err != nil {
		return nil, err
	}
	defer s.release()

	p := s.pipeline
	s.setStage(StageConfirm)
	if err := p.challenges.Confirm(ctx, s.session, code); err != nil {
		s.setStage(StageAwaitCode)
		p.record(ctx, domain.NewAuditEvent(domain.ChallengeFailedEvent).
			WithAttempt(s.id).WithPhone(s.draft.Phone).WithError(err))
		return nil, err
	}
	p.record(ctx, domain.NewAuditEvent(domain.ChallengeConfirmedEvent).
		WithAttempt(s.id).WithPhone(s.draft.Phone))

	s.setStage(StageEnrich)
	coords, imageURL, warnings := p.enrich(ctx, s.draft)
	if len(warnings) > 0 {
		p.record(ctx, domain.NewAuditEvent(domain.EnrichmentDegradedEvent).
			WithAttempt(s.id).WithMetadata("warnings", warnings))
	}

	s.setStage(StagePersist)
	report, err := p.persist(ctx, s.draft, coords, imageURL)
	if err != nil {
		// The consumed challenge cannot be reused; the caller must start over
		p.challenges.Release(ctx, s.session)
		s.finish(StageFailed, nil)
		p.logger.Error("failed to persist report", zap.String("attempt_id", s.id), zap.Error(err))
		p.record(ctx, domain.NewAuditEvent(domain.SubmissionFailedEvent).
			WithAttempt(s.id).WithPhone(s.draft.Phone).WithError(err))
		return nil, &domain.SubmissionError{Stage: string(StagePersist), Err: err}
	}

	result := &domain.SubmissionResult{
		ReportID:    report.ID,
		Status:      report.Status,
		Coordinates: report.Coordinates,
		ImageURL:    report.ImageURL,
		CreatedAt:   report.CreatedAt,
		Warnings:    warnings,
	}
	s.finish(StageComplete, result)

	p.logger.Info("report submitted",
		zap.String("attempt_id", s.id),
		zap.String("report_id", report.ID),
		zap.Bool("geocoded", coords != nil),
		zap.Bool("has_image", imageURL != nil))
	p.record(ctx, domain.NewAuditEvent(domain.ReportSubmittedEvent).
		WithAttempt(s.id).WithReport(report.ID).WithPhone(report.Phone))
	return result, nil
}

// Cancel abandons the attempt and releases its challenge and verifier
func (s *Submission) Cancel(ctx context.Context) error {
	if err := s.acquire(); err != nil {
		return err
	}
	defer s.release()

	p := s.pipeline
	p.challenges.Release(ctx, s.session)
	s.finish(StageAbandoned, nil)
	p.record(ctx, domain.NewAuditEvent(domain.AttemptAbandonedEvent).
		WithAttempt(s.id).WithPhone(s.draft.Phone))
	return nil
}

// finish moves the attempt to a terminal stage and drops the draft and session
func (s *Submission) finish(stage Stage, result *domain.SubmissionResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.done = true
	s.stage = stage
	s.result = result
	s.session = nil
	s.draft.Image = nil
}

func (s *Submission) prompt(lastErr error) Prompt {
	st := s.State()
	return Prompt{
		AttemptID: st.ID,
		Phone:     st.Phone,
		ExpiresAt: st.ExpiresAt,
		Resends:   st.Resends,
		LastError: lastErr,
	}
}

// ActionKind is what the user chose while the pipeline waited for a code
type ActionKind int

const (
	ActionCode ActionKind = iota
	ActionResend
	ActionCancel
)

// UserAction is the input that resumes a suspended submission
type UserAction struct {
	Kind                ActionKind
	Code                string
	AntiAutomationToken string
}

// EnterCode submits a verification code
func EnterCode(code string) UserAction { return UserAction{Kind: ActionCode, Code: code} }

// RequestResend asks for a fresh challenge, optionally with a new anti-automation token
func RequestResend(token string) UserAction {
	return UserAction{Kind: ActionResend, AntiAutomationToken: token}
}

// CancelAttempt abandons the submission
func CancelAttempt() UserAction { return UserAction{Kind: ActionCancel} }

// Prompt describes what the user is being asked for. LastError is set when the previous action failed.
type Prompt struct {
	AttemptID string
	Phone     string
	ExpiresAt time.Time
	Resends   int
	LastError error
}

// CodePrompt suspends the pipeline until the user acts. Implementations must return when ctx is done.
type CodePrompt interface {
	AwaitCode(ctx context.Context, prompt Prompt) (UserAction, error)
}

// CodePromptFunc adapts a function to CodePrompt
type CodePromptFunc func(ctx context.Context, prompt Prompt) (UserAction, error)

// AwaitCode calls f
func (f CodePromptFunc) AwaitCode(ctx context.Context, prompt Prompt) (UserAction, error) {
	return f(ctx, prompt)
}
