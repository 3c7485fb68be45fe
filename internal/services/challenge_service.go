package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/you/incidentsvc/domain"
)

// ChallengeService drives a VerificationSession through NotStarted → Issued → Confirmed | Failed.
// Sessions are owned by one submission attempt; the service itself holds no per-session state.
type ChallengeService struct {
	provider domain.OTPProvider
	guard    domain.AntiAutomationGuard
	slots    domain.VerifierSlot
	logger   *zap.Logger
	now      func() time.Time
}

// NewChallengeService creates a challenge service over the given OTP provider
func NewChallengeService(provider domain.OTPProvider, guard domain.AntiAutomationGuard, slots domain.VerifierSlot, logger *zap.Logger) *ChallengeService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ChallengeService{
		provider: provider,
		guard:    guard,
		slots:    slots,
		logger:   logger,
		now:      time.Now,
	}
}

// Issue issues a fresh challenge for the session. The current challenge and verifier stay in
// place until the new challenge is out, so a failed issue leaves the session as it was.
func (s *ChallengeService) Issue(ctx context.Context, session *domain.VerificationSession) (domain.ChallengeHandle, error) {
	if session == nil {
		return "", domain.Preconditionf("issue called without a verification session")
	}
	if session.State == domain.ChallengeConfirmed {
		return "", domain.Preconditionf("verification session already confirmed")
	}
	if session.Phone == "" {
		return "", domain.Preconditionf("verification session has no phone number")
	}

	if err := s.guard.Verify(ctx, session.AntiAutomationToken); err != nil {
		return "", &domain.ChallengeIssueError{Reason: "anti-automation check failed", Err: err}
	}

	lease := session.Lease
	acquired := false
	if lease == nil {
		var err error
		lease, err = s.slots.Acquire(ctx, session.Scope)
		if err != nil {
			return "", &domain.ChallengeIssueError{Reason: "verifier unavailable", Err: err}
		}
		acquired = true
		if lease.TookOver {
			s.logger.Debug("replaced stale verifier", zap.String("scope", session.Scope))
		}
	}

	issued, err := s.provider.IssueChallenge(ctx, session.Phone, session.AntiAutomationToken)
	if err != nil {
		// A verifier taken for this call is reset so the user can retry with a fresh one
		if acquired {
			s.releaseLease(ctx, lease)
		}
		var issueErr *domain.ChallengeIssueError
		if errors.As(err, &issueErr) {
			return "", err
		}
		return "", &domain.ChallengeIssueError{Reason: "provider rejected challenge", Err: err}
	}

	if prev := session.Handle; prev != "" && prev != issued.Handle {
		if err := s.provider.DiscardChallenge(ctx, prev); err != nil {
			s.logger.Warn("failed to discard challenge", zap.Error(err))
		}
	}

	session.Lease = lease
	session.Handle = issued.Handle
	session.State = domain.ChallengeIssued
	session.AttemptedCode = ""
	session.IssuedAt = s.now()
	session.ExpiresAt = issued.ExpiresAt

	s.logger.Debug("challenge issued",
		zap.String("phone", domain.MaskPhone(session.Phone)),
		zap.Time("expires_at", issued.ExpiresAt))

	return issued.Handle, nil
}

// Resend replaces the current handle with a new one. A non-empty token replaces the
// anti-automation token, since most providers accept each token only once. When the resend
// fails the previous handle remains confirmable.
func (s *ChallengeService) Resend(ctx context.Context, session *domain.VerificationSession, antiAutomationToken string) (domain.ChallengeHandle, error) {
	if session == nil {
		return "", domain.Preconditionf("resend called without a verification session")
	}
	if session.State == domain.ChallengeConfirmed {
		return "", domain.Preconditionf("verification session already confirmed")
	}
	if antiAutomationToken != "" {
		session.AntiAutomationToken = antiAutomationToken
	}
	handle, err := s.Issue(ctx, session)
	if err != nil {
		return "", err
	}
	session.Resends++
	return handle, nil
}

// Confirm checks the code against the session's current handle
func (s *ChallengeService) Confirm(ctx context.Context, session *domain.VerificationSession, code string) error {
	if session == nil {
		return domain.Preconditionf("confirm called without a verification session")
	}
	return s.ConfirmHandle(ctx, session, session.Handle, code)
}

// ConfirmHandle checks the code against an explicit handle. A handle that is not the session's
// current one, or that was already confirmed, is reported as expired.
func (s *ChallengeService) ConfirmHandle(ctx context.Context, session *domain.VerificationSession, handle domain.ChallengeHandle, code string) error {
	if session == nil {
		return domain.Preconditionf("confirm called without a verification session")
	}
	if session.State == domain.ChallengeNotStarted && session.Handle == "" {
		return domain.Preconditionf("confirm called with no outstanding challenge")
	}
	if handle == "" || handle != session.Handle || session.State == domain.ChallengeConfirmed {
		return domain.ErrExpiredChallenge
	}
	if !session.ExpiresAt.IsZero() && s.now().After(session.ExpiresAt) {
		session.State = domain.ChallengeFailed
		return domain.ErrExpiredChallenge
	}

	code = strings.TrimSpace(code)
	session.AttemptedCode = code
	if code == "" {
		session.State = domain.ChallengeFailed
		return domain.ErrInvalidCode
	}

	if err := s.provider.ConfirmChallenge(ctx, handle, code); err != nil {
		session.State = domain.ChallengeFailed
		switch {
		case errors.Is(err, domain.ErrInvalidCode),
			errors.Is(err, domain.ErrExpiredChallenge),
			errors.Is(err, domain.ErrTooManyAttempts):
			return err
		default:
			return fmt.Errorf("confirm challenge: %w", err)
		}
	}

	session.State = domain.ChallengeConfirmed
	session.AttemptedCode = ""
	// The verifier is no longer needed once the phone is verified
	s.releaseLease(ctx, session.Lease)
	session.Lease = nil
	return nil
}

// Release discards any outstanding challenge and frees the verifier. Safe to call repeatedly.
func (s *ChallengeService) Release(ctx context.Context, session *domain.VerificationSession) {
	if session == nil {
		return
	}
	s.teardown(ctx, session)
}

func (s *ChallengeService) teardown(ctx context.Context, session *domain.VerificationSession) {
	if session.Handle != "" && session.State != domain.ChallengeConfirmed {
		if err := s.provider.DiscardChallenge(ctx, session.Handle); err != nil {
			s.logger.Warn("failed to discard challenge", zap.Error(err))
		}
		session.Handle = ""
		session.State = domain.ChallengeNotStarted
		session.ExpiresAt = time.Time{}
	}
	if session.Lease != nil {
		s.releaseLease(ctx, session.Lease)
		session.Lease = nil
	}
	session.AttemptedCode = ""
}

func (s *ChallengeService) releaseLease(ctx context.Context, lease *domain.VerifierLease) {
	if lease == nil {
		return
	}
	if err := s.slots.Release(ctx, lease); err != nil {
		s.logger.Warn("failed to release verifier", zap.String("scope", lease.Scope), zap.Error(err))
	}
}
