package verifier

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/you/incidentsvc/domain"
)

// MemorySlot keeps verifier leases in process, for single-instance deployments
type MemorySlot struct {
	mu     sync.Mutex
	owners map[string]string
}

// NewMemorySlot creates an in-process verifier slot
func NewMemorySlot() *MemorySlot {
	return &MemorySlot{owners: make(map[string]string)}
}

// Acquire takes the scope's slot, replacing any stale lease
func (s *MemorySlot) Acquire(ctx context.Context, scope string) (*domain.VerifierLease, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	token := uuid.NewString()

	s.mu.Lock()
	_, held := s.owners[scope]
	s.owners[scope] = token
	s.mu.Unlock()

	return &domain.VerifierLease{
		Scope:      scope,
		Token:      token,
		AcquiredAt: time.Now(),
		TookOver:   held,
	}, nil
}

// Release frees the slot if the lease still owns it
func (s *MemorySlot) Release(ctx context.Context, lease *domain.VerifierLease) error {
	if lease == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.owners[lease.Scope] == lease.Token {
		delete(s.owners, lease.Scope)
	}
	return nil
}

// Held reports whether scope currently has an owner
func (s *MemorySlot) Held(scope string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.owners[scope]
	return ok
}

var _ domain.VerifierSlot = (*MemorySlot)(nil)
