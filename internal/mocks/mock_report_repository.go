package mocks

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/you/incidentsvc/domain"
)

// MockReportRepository implements domain.ReportRepository interface for testing.
// Without overrides it behaves as an in-memory store.
type MockReportRepository struct {
	CreateFunc       func(ctx context.Context, report *domain.PersistedReport) (string, error)
	FindByIDFunc     func(ctx context.Context, id string) (*domain.PersistedReport, error)
	ListFunc         func(ctx context.Context, filter domain.ReportFilter) ([]*domain.PersistedReport, error)
	UpdateStatusFunc func(ctx context.Context, id, status string) error
	SetFlaggedFunc   func(ctx context.Context, id string, flagged bool) error
	DeleteFunc       func(ctx context.Context, id string) error

	mu      sync.Mutex
	seq     int
	reports map[string]*domain.PersistedReport
}

// NewMockReportRepository creates a new MockReportRepository with default behaviors
func NewMockReportRepository() *MockReportRepository {
	return &MockReportRepository{reports: make(map[string]*domain.PersistedReport)}
}

// Create stores a report
func (m *MockReportRepository) Create(ctx context.Context, report *domain.PersistedReport) (string, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, report)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	stored := *report
	stored.ID = fmt.Sprintf("report-%d", m.seq)
	m.reports[stored.ID] = &stored
	return stored.ID, nil
}

// FindByID finds a report by ID
func (m *MockReportRepository) FindByID(ctx context.Context, id string) (*domain.PersistedReport, error) {
	if m.FindByIDFunc != nil {
		return m.FindByIDFunc(ctx, id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.reports[id]
	if !ok {
		return nil, domain.ErrReportNotFound
	}
	c := *r
	return &c, nil
}

// List returns reports newest first
func (m *MockReportRepository) List(ctx context.Context, filter domain.ReportFilter) ([]*domain.PersistedReport, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, filter)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*domain.PersistedReport, 0, len(m.reports))
	for _, r := range m.reports {
		if filter.Status != "" && r.Status != filter.Status {
			continue
		}
		if filter.Flagged != nil && r.Flagged != *filter.Flagged {
			continue
		}
		c := *r
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

// UpdateStatus sets a report's status
func (m *MockReportRepository) UpdateStatus(ctx context.Context, id, status string) error {
	if m.UpdateStatusFunc != nil {
		return m.UpdateStatusFunc(ctx, id, status)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.reports[id]
	if !ok {
		return domain.ErrReportNotFound
	}
	r.Status = status
	return nil
}

// SetFlagged sets a report's flag
func (m *MockReportRepository) SetFlagged(ctx context.Context, id string, flagged bool) error {
	if m.SetFlaggedFunc != nil {
		return m.SetFlaggedFunc(ctx, id, flagged)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.reports[id]
	if !ok {
		return domain.ErrReportNotFound
	}
	r.Flagged = flagged
	return nil
}

// Delete removes a report
func (m *MockReportRepository) Delete(ctx context.Context, id string) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.reports[id]; !ok {
		return domain.ErrReportNotFound
	}
	delete(m.reports, id)
	return nil
}

// Count returns the number of stored reports
func (m *MockReportRepository) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.reports)
}

// Seed stores reports as-is, keyed by their ID
func (m *MockReportRepository) Seed(reports ...*domain.PersistedReport) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range reports {
		c := *r
		m.reports[c.ID] = &c
	}
}

// Compile-time interface compliance verification
var _ domain.ReportRepository = (*MockReportRepository)(nil)
