package mocks

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/you/incidentsvc/domain"
)

// MockVerifierSlot implements domain.VerifierSlot interface for testing
type MockVerifierSlot struct {
	AcquireFunc func(ctx context.Context, scope string) (*domain.VerifierLease, error)
	ReleaseFunc func(ctx context.Context, lease *domain.VerifierLease) error

	mu       sync.Mutex
	seq      int
	held     map[string]string
	Released []*domain.VerifierLease
}

// NewMockVerifierSlot creates a slot that tracks one lease per scope
func NewMockVerifierSlot() *MockVerifierSlot {
	return &MockVerifierSlot{held: make(map[string]string)}
}

// Acquire takes the slot, replacing any lease already held in the scope
func (m *MockVerifierSlot) Acquire(ctx context.Context, scope string) (*domain.VerifierLease, error) {
	if m.AcquireFunc != nil {
		return m.AcquireFunc(ctx, scope)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	_, tookOver := m.held[scope]
	token := fmt.Sprintf("lease-%d", m.seq)
	m.held[scope] = token
	return &domain.VerifierLease{Scope: scope, Token: token, AcquiredAt: time.Now(), TookOver: tookOver}, nil
}

// Release frees the slot when the lease still owns it
func (m *MockVerifierSlot) Release(ctx context.Context, lease *domain.VerifierLease) error {
	m.mu.Lock()
	m.Released = append(m.Released, lease)
	if m.held[lease.Scope] == lease.Token {
		delete(m.held, lease.Scope)
	}
	m.mu.Unlock()
	if m.ReleaseFunc != nil {
		return m.ReleaseFunc(ctx, lease)
	}
	return nil
}

// Held reports whether any lease currently owns the scope
func (m *MockVerifierSlot) Held(scope string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.held[scope]
	return ok
}

var _ domain.VerifierSlot = (*MockVerifierSlot)(nil)
