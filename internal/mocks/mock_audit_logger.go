package mocks

import (
	"context"
	"sync"

	"github.com/you/incidentsvc/domain"
)

// MockAuditLogger records audit events in memory
type MockAuditLogger struct {
	LogEventFunc func(ctx context.Context, event *domain.AuditEvent) error

	mu     sync.Mutex
	events []*domain.AuditEvent
}

// NewMockAuditLogger creates a new MockAuditLogger
func NewMockAuditLogger() *MockAuditLogger {
	return &MockAuditLogger{}
}

// LogEvent records the event
func (m *MockAuditLogger) LogEvent(ctx context.Context, event *domain.AuditEvent) error {
	m.mu.Lock()
	m.events = append(m.events, event)
	m.mu.Unlock()
	if m.LogEventFunc != nil {
		return m.LogEventFunc(ctx, event)
	}
	return nil
}

// Types returns the recorded event types in order
func (m *MockAuditLogger) Types() []domain.AuditEventType {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.AuditEventType, len(m.events))
	for i, e := range m.events {
		out[i] = e.EventType
	}
	return out
}

// Events returns the recorded events
func (m *MockAuditLogger) Events() []*domain.AuditEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*domain.AuditEvent(nil), m.events...)
}

var _ domain.AuditLogger = (*MockAuditLogger)(nil)
