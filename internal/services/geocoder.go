package services

import (
	"context"
	"errors"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/you/incidentsvc/domain"
)

// BoundedGeocoder wraps a GeocodingProvider with a deadline. Not found, provider errors and
// timeouts all resolve to nil coordinates.
type BoundedGeocoder struct {
	provider domain.GeocodingProvider
	timeout  time.Duration
	logger   *zap.Logger
}

// NewBoundedGeocoder creates a geocoder that never waits longer than timeout
func NewBoundedGeocoder(provider domain.GeocodingProvider, timeout time.Duration, logger *zap.Logger) *BoundedGeocoder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BoundedGeocoder{provider: provider, timeout: timeout, logger: logger}
}

type geocodeResult struct {
	coords *domain.Coordinates
	err    error
}

// Resolve returns the coordinates for location, or nil when they are unknown
func (g *BoundedGeocoder) Resolve(ctx context.Context, location string) *domain.Coordinates {
	if location == "" || g.provider == nil {
		return nil
	}
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	// Buffered so a provider that ignores ctx can still finish and exit
	done := make(chan geocodeResult, 1)
	go func() {
		coords, err := g.provider.Geocode(ctx, location)
		done <- geocodeResult{coords: coords, err: err}
	}()

	select {
	case <-ctx.Done():
		g.logger.Warn("geocoding timed out", zap.String("location", location), zap.Error(ctx.Err()))
		return nil
	case res := <-done:
		switch {
		case errors.Is(res.err, domain.ErrLocationNotFound):
			g.logger.Info("location not found", zap.String("location", location))
			return nil
		case res.err != nil:
			g.logger.Warn("geocoding failed", zap.String("location", location), zap.Error(res.err))
			return nil
		case !validCoordinates(res.coords):
			g.logger.Warn("geocoder returned invalid coordinates", zap.String("location", location))
			return nil
		}
		return res.coords
	}
}

func validCoordinates(c *domain.Coordinates) bool {
	if c == nil || math.IsNaN(c.Latitude) || math.IsNaN(c.Longitude) {
		return false
	}
	return c.Latitude >= -90 && c.Latitude <= 90 && c.Longitude >= -180 && c.Longitude <= 180
}

var _ domain.Geocoder = (*BoundedGeocoder)(nil)
