package mocks

import (
	"context"

	"github.com/you/incidentsvc/domain"
)

// MockAntiAutomationGuard implements domain.AntiAutomationGuard interface for testing
type MockAntiAutomationGuard struct {
	VerifyFunc func(ctx context.Context, token string) error
}

// NewMockAntiAutomationGuard creates a guard that accepts every token
func NewMockAntiAutomationGuard() *MockAntiAutomationGuard {
	return &MockAntiAutomationGuard{}
}

// Verify checks the token
func (m *MockAntiAutomationGuard) Verify(ctx context.Context, token string) error {
	if m.VerifyFunc != nil {
		return m.VerifyFunc(ctx, token)
	}
	return nil
}

var _ domain.AntiAutomationGuard = (*MockAntiAutomationGuard)(nil)
