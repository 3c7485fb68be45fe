package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/you/incidentsvc/domain"
)

// AdminService is the only writer of report status and flag after creation
type AdminService struct {
	reports domain.ReportRepository
	audit   domain.AuditLogger
	logger  *zap.Logger
	now     func() time.Time
}

// NewAdminService creates the admin-side report service
func NewAdminService(reports domain.ReportRepository, audit domain.AuditLogger, logger *zap.Logger) *AdminService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AdminService{reports: reports, audit: audit, logger: logger, now: time.Now}
}

// List returns reports newest first
func (s *AdminService) List(ctx context.Context, filter domain.ReportFilter) ([]*domain.PersistedReport, error) {
	if filter.Status != "" && !validStatus(filter.Status) {
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidStatus, filter.Status)
	}
	return s.reports.List(ctx, filter)
}

// Get returns a single report
func (s *AdminService) Get(ctx context.Context, id string) (*domain.PersistedReport, error) {
	return s.reports.FindByID(ctx, id)
}

// UpdateStatus moves a report to pending, in-progress or resolved
func (s *AdminService) UpdateStatus(ctx context.Context, actor, id, status string) error {
	status = strings.ToLower(strings.TrimSpace(status))
	if !validStatus(status) {
		return fmt.Errorf("%w: %q", domain.ErrInvalidStatus, status)
	}
	if err := s.reports.UpdateStatus(ctx, id, status); err != nil {
		return err
	}
	s.record(ctx, domain.NewAuditEvent(domain.ReportStatusChangedEvent).
		WithReport(id).WithActor(actor).WithMetadata("status", status))
	return nil
}

// ToggleFlag flips the flagged marker and returns the new value
func (s *AdminService) ToggleFlag(ctx context.Context, actor, id string) (bool, error) {
	report, err := s.reports.FindByID(ctx, id)
	if err != nil {
		return false, err
	}
	flagged := !report.Flagged
	if err := s.reports.SetFlagged(ctx, id, flagged); err != nil {
		return false, err
	}
	s.record(ctx, domain.NewAuditEvent(domain.ReportFlagToggledEvent).
		WithReport(id).WithActor(actor).WithMetadata("flagged", flagged))
	return flagged, nil
}

// Delete removes a report
func (s *AdminService) Delete(ctx context.Context, actor, id string) error {
	if err := s.reports.Delete(ctx, id); err != nil {
		return err
	}
	s.record(ctx, domain.NewAuditEvent(domain.ReportDeletedEvent).WithReport(id).WithActor(actor))
	return nil
}

// BulkDelete removes every listed report, skipping ids that no longer exist.
// It returns how many reports were deleted.
func (s *AdminService) BulkDelete(ctx context.Context, actor string, ids []string) (int, error) {
	deleted := 0
	for _, id := range ids {
		err := s.Delete(ctx, actor, id)
		switch {
		case err == nil:
			deleted++
		case errors.Is(err, domain.ErrReportNotFound):
			continue
		default:
			return deleted, fmt.Errorf("delete report %s: %w", id, err)
		}
	}
	return deleted, nil
}

var dayLabels = []string{"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"}

// Dashboard aggregates every report for the admin overview
func (s *AdminService) Dashboard(ctx context.Context) (*domain.DashboardStats, error) {
	reports, err := s.reports.List(ctx, domain.ReportFilter{})
	if err != nil {
		return nil, fmt.Errorf("failed to load reports: %w", err)
	}

	now := s.now().UTC()
	stats := &domain.DashboardStats{
		Total:       len(reports),
		ByStatus:    make(map[string]int),
		GeneratedAt: now,
	}

	resolved := 0
	disasters := make(map[string]int)
	states := make(map[string]int)
	trend := make(map[string]int, len(dayLabels))
	year, month, day := now.Date()
	cutoff := time.Date(year, month, day, 0, 0, 0, 0, time.UTC).AddDate(0, 0, -6)

	for _, r := range reports {
		status := strings.ToLower(r.Status)
		stats.ByStatus[status]++
		switch status {
		case domain.StatusResolved, "done", "closed":
			resolved++
		}
		if r.Flagged {
			stats.Flagged++
		}

		kind := string(r.DisasterType)
		if kind == "" {
			kind = "Unknown"
		}
		disasters[kind]++

		states[stateOf(r.Location)]++

		if !r.CreatedAt.IsZero() && !r.CreatedAt.Before(cutoff) {
			trend[dayLabels[r.CreatedAt.UTC().Weekday()]]++
		}
	}

	stats.Resolution = []domain.StatusSlice{
		{Name: "Resolved", Value: resolved},
		{Name: "Pending", Value: len(reports) - resolved},
	}

	for _, e := range topN(disasters, 3) {
		stats.TopDisasters = append(stats.TopDisasters, domain.DisasterCount{Type: e.key, Cases: e.count})
	}

	total := math.Max(1, float64(len(reports)))
	for _, e := range topN(states, 3) {
		stats.TopStates = append(stats.TopStates, domain.StateShare{
			State:   e.key,
			Percent: int(math.Round(float64(e.count) / total * 100)),
		})
	}

	for _, d := range dayLabels {
		stats.WeeklyTrend = append(stats.WeeklyTrend, domain.DailyCount{Day: d, Cases: trend[d]})
	}
	return stats, nil
}

// stateOf takes the last comma segment of an "area, city, state" location
func stateOf(location string) string {
	var parts []string
	for _, p := range strings.Split(location, ",") {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	if len(parts) > 0 {
		return parts[len(parts)-1]
	}
	if location = strings.TrimSpace(location); location != "" {
		return location
	}
	return "Unknown"
}

type countEntry struct {
	key   string
	count int
}

// topN orders by count descending, then key ascending
func topN(counts map[string]int, n int) []countEntry {
	entries := make([]countEntry, 0, len(counts))
	for k, c := range counts {
		entries = append(entries, countEntry{key: k, count: c})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].count != entries[j].count {
			return entries[i].count > entries[j].count
		}
		return entries[i].key < entries[j].key
	})
	if len(entries) > n {
		entries = entries[:n]
	}
	return entries
}

func validStatus(status string) bool {
	for _, s := range domain.AdminStatuses {
		if s == status {
			return true
		}
	}
	return false
}

func (s *AdminService) record(ctx context.Context, event *domain.AuditEvent) {
	if s.audit == nil {
		return
	}
	if err := s.audit.LogEvent(ctx, event); err != nil {
		s.logger.Warn("failed to record audit event", zap.String("event", string(event.EventType)), zap.Error(err))
	}
}
