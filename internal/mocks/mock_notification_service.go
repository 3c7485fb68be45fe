package mocks

import (
	"context"
	"sync"

	"github.com/you/incidentsvc/domain"
)

// SentSMS records one message passed to MockNotificationService
type SentSMS struct {
	To      string
	Message string
}

// MockNotificationService implements domain.NotificationService interface for testing
type MockNotificationService struct {
	SendSMSFunc func(ctx context.Context, to, message string) error

	mu   sync.Mutex
	Sent []SentSMS
}

// NewMockNotificationService creates a new MockNotificationService with default behaviors
func NewMockNotificationService() *MockNotificationService {
	return &MockNotificationService{}
}

// SendSMS sends an SMS message
func (m *MockNotificationService) SendSMS(ctx context.Context, to, message string) error {
	m.mu.Lock()
	m.Sent = append(m.Sent, SentSMS{To: to, Message: message})
	m.mu.Unlock()
	if m.SendSMSFunc != nil {
		return m.SendSMSFunc(ctx, to, message)
	}
	// Default behavior: success (no actual SMS sent in tests)
	return nil
}

// Messages returns a copy of the recorded messages
func (m *MockNotificationService) Messages() []SentSMS {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]SentSMS(nil), m.Sent...)
}

// Compile-time interface compliance verification
var _ domain.NotificationService = (*MockNotificationService)(nil)
