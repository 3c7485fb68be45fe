package services

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/you/incidentsvc/domain"
)

// AttemptRegistry keeps live submissions addressable by id between HTTP calls
type AttemptRegistry struct {
	mu       sync.Mutex
	attempts map[string]*Submission
	ttl      time.Duration
	logger   *zap.Logger
	now      func() time.Time
}

// NewAttemptRegistry creates a registry that expires attempts idle for longer than ttl
func NewAttemptRegistry(ttl time.Duration, logger *zap.Logger) *AttemptRegistry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AttemptRegistry{
		attempts: make(map[string]*Submission),
		ttl:      ttl,
		logger:   logger,
		now:      time.Now,
	}
}

// Put registers a submission
func (r *AttemptRegistry) Put(sub *Submission) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.attempts[sub.ID()] = sub
}

// Get returns a live submission, or ErrAttemptNotFound when unknown or idle past the TTL
func (r *AttemptRegistry) Get(id string) (*Submission, error) {
	r.mu.Lock()
	sub, ok := r.attempts[id]
	r.mu.Unlock()
	if !ok || r.expired(sub) {
		return nil, domain.ErrAttemptNotFound
	}
	return sub, nil
}

// Remove forgets a submission without cancelling it
func (r *AttemptRegistry) Remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.attempts, id)
}

// Len returns the number of registered submissions
func (r *AttemptRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.attempts)
}

// Sweep drops finished submissions and cancels expired ones, releasing their verifiers.
// An expired submission stays registered until its cancel succeeds, so a busy one is retried
// on the next sweep. It returns how many submissions were removed.
func (r *AttemptRegistry) Sweep(ctx context.Context) int {
	removed := 0
	var expired []*Submission

	r.mu.Lock()
	for id, sub := range r.attempts {
		switch {
		case sub.Done():
			delete(r.attempts, id)
			removed++
		case r.expired(sub):
			expired = append(expired, sub)
		}
	}
	r.mu.Unlock()

	for _, sub := range expired {
		if err := sub.Cancel(ctx); err != nil && !sub.Done() {
			r.logger.Warn("failed to cancel expired attempt", zap.String("attempt_id", sub.ID()), zap.Error(err))
			continue
		}
		if r.forget(sub) {
			removed++
			r.logger.Info("expired submission attempt cancelled", zap.String("attempt_id", sub.ID()))
		}
	}
	return removed
}

// forget removes sub if it is still the submission registered under its id
func (r *AttemptRegistry) forget(sub *Submission) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.attempts[sub.ID()] != sub {
		return false
	}
	delete(r.attempts, sub.ID())
	return true
}

// Run sweeps every interval until ctx is done
func (r *AttemptRegistry) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.Sweep(ctx)
		}
	}
}

func (r *AttemptRegistry) expired(sub *Submission) bool {
	return r.ttl > 0 && r.now().Sub(sub.LastActive()) > r.ttl
}
