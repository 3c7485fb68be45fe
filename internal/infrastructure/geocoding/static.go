package geocoding

import (
	"context"
	"strings"

	"github.com/you/incidentsvc/domain"
)

// Static resolves locations from a fixed table. Used for offline and test deployments.
type Static struct {
	table    map[string]domain.Coordinates
	fallback *domain.Coordinates
}

// NewStatic builds a table provider. Keys match case-insensitively after trimming.
// When fallback is non-nil it is returned for unknown locations.
func NewStatic(table map[string]domain.Coordinates, fallback *domain.Coordinates) *Static {
	normalized := make(map[string]domain.Coordinates, len(table))
	for k, v := range table {
		normalized[normalizeKey(k)] = v
	}
	return &Static{table: normalized, fallback: fallback}
}

func (s *Static) Geocode(ctx context.Context, text string) (*domain.Coordinates, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if c, ok := s.table[normalizeKey(text)]; ok {
		return &c, nil
	}
	if s.fallback != nil {
		c := *s.fallback
		return &c, nil
	}
	return nil, domain.ErrLocationNotFound
}

func normalizeKey(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

var _ domain.GeocodingProvider = (*Static)(nil)
