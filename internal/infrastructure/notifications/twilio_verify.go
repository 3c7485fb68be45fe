package notifications

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/twilio/twilio-go"
	"github.com/twilio/twilio-go/client"
	verify "github.com/twilio/twilio-go/rest/verify/v2"
	"go.uber.org/zap"

	"github.com/you/incidentsvc/domain"
)

// Twilio Verify error codes
const (
	twilioInvalidParameter = 60200
	twilioMaxCheckAttempts = 60202
	twilioMaxSendAttempts  = 60203
)

// TwilioVerifyProvider implements domain.OTPProvider on Twilio Verify. The handle is the
// verification SID, so a resend creates a new SID and the old one can no longer be checked.
type TwilioVerifyProvider struct {
	client     *twilio.RestClient
	serviceSID string
	ttl        time.Duration
	logger     *zap.Logger
}

// NewTwilioVerifyProvider creates a hosted OTP provider. ttl is the code lifetime configured on
// the Verify service.
func NewTwilioVerifyProvider(accountSID, authToken, serviceSID string, ttl time.Duration, logger *zap.Logger) *TwilioVerifyProvider {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TwilioVerifyProvider{
		client: twilio.NewRestClientWithParams(twilio.ClientParams{
			Username: accountSID,
			Password: authToken,
		}),
		serviceSID: serviceSID,
		ttl:        ttl,
		logger:     logger,
	}
}

// IssueChallenge starts an SMS verification
func (p *TwilioVerifyProvider) IssueChallenge(ctx context.Context, phone, antiAutomationToken string) (*domain.IssuedChallenge, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	params := &verify.CreateVerificationParams{}
	params.SetTo(phone)
	params.SetChannel("sms")

	resp, err := p.client.VerifyV2.CreateVerification(p.serviceSID, params)
	if err != nil {
		return nil, issueError(err)
	}
	if resp.Sid == nil {
		return nil, &domain.ChallengeIssueError{Reason: "verify service returned no verification sid"}
	}

	p.logger.Debug("verification started", zap.String("sid", *resp.Sid), zap.String("phone", domain.MaskPhone(phone)))
	return &domain.IssuedChallenge{
		Handle:    domain.ChallengeHandle(*resp.Sid),
		ExpiresAt: time.Now().Add(p.ttl),
	}, nil
}

// ConfirmChallenge checks a code against the verification SID
func (p *TwilioVerifyProvider) ConfirmChallenge(ctx context.Context, handle domain.ChallengeHandle, code string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	params := &verify.CreateVerificationCheckParams{}
	params.SetVerificationSid(string(handle))
	params.SetCode(code)

	resp, err := p.client.VerifyV2.CreateVerificationCheck(p.serviceSID, params)
	if err != nil {
		return checkError(err)
	}
	if resp.Status != nil && *resp.Status == "approved" {
		return nil
	}
	return domain.ErrInvalidCode
}

// DiscardChallenge cancels the verification. Unknown or already finished SIDs are ignored.
func (p *TwilioVerifyProvider) DiscardChallenge(ctx context.Context, handle domain.ChallengeHandle) error {
	params := &verify.UpdateVerificationParams{}
	params.SetStatus("canceled")

	if _, err := p.client.VerifyV2.UpdateVerification(p.serviceSID, string(handle), params); err != nil {
		var restErr *client.TwilioRestError
		if errors.As(err, &restErr) && restErr.Status == http.StatusNotFound {
			return nil
		}
		return fmt.Errorf("failed to cancel verification: %w", err)
	}
	return nil
}

func issueError(err error) error {
	var restErr *client.TwilioRestError
	if errors.As(err, &restErr) {
		switch restErr.Code {
		case twilioInvalidParameter:
			return &domain.ChallengeIssueError{Reason: "phone number rejected by provider", Err: err}
		case twilioMaxSendAttempts:
			return &domain.ChallengeIssueError{Reason: "rate limited by provider", Err: domain.ErrResendThrottled}
		}
	}
	return &domain.ChallengeIssueError{Reason: "verify service unavailable", Err: err}
}

func checkError(err error) error {
	var restErr *client.TwilioRestError
	if errors.As(err, &restErr) {
		switch {
		case restErr.Code == twilioMaxCheckAttempts:
			return domain.ErrTooManyAttempts
		case restErr.Status == http.StatusNotFound:
			// Verify deletes verifications once approved, expired or cancelled
			return domain.ErrExpiredChallenge
		}
	}
	return fmt.Errorf("verification check failed: %w", err)
}

var _ domain.OTPProvider = (*TwilioVerifyProvider)(nil)
