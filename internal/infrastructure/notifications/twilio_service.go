package notifications

import (
	"context"
	"fmt"

	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
	"go.uber.org/zap"

	"github.com/you/incidentsvc/domain"
)

// TwilioServiceImpl implements domain.NotificationService
type TwilioServiceImpl struct {
	client     *twilio.RestClient
	fromNumber string
	logger     *zap.Logger
}

// NewTwilioService creates a new Twilio notification service. Without a sender number messages
// are only logged.
func NewTwilioService(accountSID, authToken, fromNumber string, logger *zap.Logger) domain.NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: accountSID,
		Password: authToken,
	})

	return &TwilioServiceImpl{
		client:     client,
		fromNumber: fromNumber,
		logger:     logger,
	}
}

// SendSMS implements domain.NotificationService
func (t *TwilioServiceImpl) SendSMS(ctx context.Context, to, message string) error {
	if t.fromNumber == "" {
		t.logger.Info("sms delivery disabled, message not sent", zap.String("to", domain.MaskPhone(to)))
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	params := &twilioApi.CreateMessageParams{}
	params.SetTo(to)
	params.SetFrom(t.fromNumber)
	params.SetBody(message)

	resp, err := t.client.Api.CreateMessage(params)
	if err != nil {
		return fmt.Errorf("failed to send SMS: %w", err)
	}
	if resp.Sid != nil {
		t.logger.Debug("sms queued", zap.String("sid", *resp.Sid), zap.String("to", domain.MaskPhone(to)))
	}
	return nil
}
