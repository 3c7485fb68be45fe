package geocoding

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/you/incidentsvc/domain"
)

// DefaultNominatimURL is the public OpenStreetMap Nominatim instance
const DefaultNominatimURL = "https://nominatim.openstreetmap.org"

type nominatimPlace struct {
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	DisplayName string `json:"display_name"`
}

// Nominatim resolves free-text locations with the Nominatim search API
type Nominatim struct {
	baseURL   string
	userAgent string
	client    *http.Client
}

// NewNominatim creates a Nominatim client. Nominatim's usage policy requires an identifying User-Agent.
func NewNominatim(baseURL, userAgent string, timeout time.Duration) *Nominatim {
	if baseURL == "" {
		baseURL = DefaultNominatimURL
	}
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &Nominatim{
		baseURL:   strings.TrimRight(baseURL, "/"),
		userAgent: userAgent,
		client:    &http.Client{Timeout: timeout},
	}
}

// Geocode returns the first match for text, or domain.ErrLocationNotFound
func (n *Nominatim) Geocode(ctx context.Context, text string) (*domain.Coordinates, error) {
	q := url.Values{}
	q.Set("format", "json")
	q.Set("limit", "1")
	q.Set("q", text)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, n.baseURL+"/search?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build geocode request: %w", err)
	}
	if n.userAgent != "" {
		req.Header.Set("User-Agent", n.userAgent)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("geocode request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("geocode request: unexpected status %d", resp.StatusCode)
	}

	var places []nominatimPlace
	if err := json.NewDecoder(resp.Body).Decode(&places); err != nil {
		return nil, fmt.Errorf("decode geocode response: %w", err)
	}
	if len(places) == 0 {
		return nil, domain.ErrLocationNotFound
	}

	lat, err := strconv.ParseFloat(places[0].Lat, 64)
	if err != nil {
		return nil, fmt.Errorf("parse latitude %q: %w", places[0].Lat, err)
	}
	lng, err := strconv.ParseFloat(places[0].Lon, 64)
	if err != nil {
		return nil, fmt.Errorf("parse longitude %q: %w", places[0].Lon, err)
	}
	return &domain.Coordinates{Latitude: lat, Longitude: lng}, nil
}

var _ domain.GeocodingProvider = (*Nominatim)(nil)
