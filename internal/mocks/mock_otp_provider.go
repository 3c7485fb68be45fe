package mocks

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/you/incidentsvc/domain"
)

// MockOTPProvider implements domain.OTPProvider interface for testing
type MockOTPProvider struct {
	IssueChallengeFunc   func(ctx context.Context, phone, antiAutomationToken string) (*domain.IssuedChallenge, error)
	ConfirmChallengeFunc func(ctx context.Context, handle domain.ChallengeHandle, code string) error
	DiscardChallengeFunc func(ctx context.Context, handle domain.ChallengeHandle) error

	mu        sync.Mutex
	issued    int
	live      map[domain.ChallengeHandle]bool
	Discarded []domain.ChallengeHandle
}

// NewMockOTPProvider creates a new MockOTPProvider with default behaviors
func NewMockOTPProvider() *MockOTPProvider {
	return &MockOTPProvider{live: make(map[domain.ChallengeHandle]bool)}
}

// IssueChallenge issues a new challenge
func (m *MockOTPProvider) IssueChallenge(ctx context.Context, phone, antiAutomationToken string) (*domain.IssuedChallenge, error) {
	if m.IssueChallengeFunc != nil {
		return m.IssueChallengeFunc(ctx, phone, antiAutomationToken)
	}
	// Default behavior: sequential handles, each accepting "123456" once
	m.mu.Lock()
	defer m.mu.Unlock()
	m.issued++
	handle := domain.ChallengeHandle(fmt.Sprintf("handle-%d", m.issued))
	m.live[handle] = true
	return &domain.IssuedChallenge{Handle: handle, ExpiresAt: time.Now().Add(5 * time.Minute)}, nil
}

// ConfirmChallenge confirms a code against a handle
func (m *MockOTPProvider) ConfirmChallenge(ctx context.Context, handle domain.ChallengeHandle, code string) error {
	if m.ConfirmChallengeFunc != nil {
		return m.ConfirmChallengeFunc(ctx, handle, code)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.live[handle] {
		return domain.ErrExpiredChallenge
	}
	if code != "123456" {
		return domain.ErrInvalidCode
	}
	delete(m.live, handle)
	return nil
}

// DiscardChallenge invalidates a handle
func (m *MockOTPProvider) DiscardChallenge(ctx context.Context, handle domain.ChallengeHandle) error {
	m.mu.Lock()
	m.Discarded = append(m.Discarded, handle)
	delete(m.live, handle)
	m.mu.Unlock()
	if m.DiscardChallengeFunc != nil {
		return m.DiscardChallengeFunc(ctx, handle)
	}
	return nil
}

// IssuedCount returns how many challenges the default behavior has issued
func (m *MockOTPProvider) IssuedCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.issued
}

// Compile-time interface compliance verification
var _ domain.OTPProvider = (*MockOTPProvider)(nil)
