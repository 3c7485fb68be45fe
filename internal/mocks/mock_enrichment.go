package mocks

import (
	"context"
	"io"
	"strings"
	"sync"

	"github.com/you/incidentsvc/domain"
)

// MockGeocodingProvider implements domain.GeocodingProvider interface for testing
type MockGeocodingProvider struct {
	GeocodeFunc func(ctx context.Context, text string) (*domain.Coordinates, error)
}

// NewMockGeocodingProvider creates a provider that finds nothing by default
func NewMockGeocodingProvider() *MockGeocodingProvider {
	return &MockGeocodingProvider{}
}

// Geocode resolves text to coordinates
func (m *MockGeocodingProvider) Geocode(ctx context.Context, text string) (*domain.Coordinates, error) {
	if m.GeocodeFunc != nil {
		return m.GeocodeFunc(ctx, text)
	}
	return nil, domain.ErrLocationNotFound
}

// MockObjectStorage implements domain.ObjectStorage interface for testing
type MockObjectStorage struct {
	StoreFunc func(ctx context.Context, name string, data []byte, contentType string) (string, error)

	mu    sync.Mutex
	Names []string
}

// NewMockObjectStorage creates a storage that returns a fake URL per object
func NewMockObjectStorage() *MockObjectStorage {
	return &MockObjectStorage{}
}

// Store stores an object
func (m *MockObjectStorage) Store(ctx context.Context, name string, data []byte, contentType string) (string, error) {
	m.mu.Lock()
	m.Names = append(m.Names, name)
	m.mu.Unlock()
	if m.StoreFunc != nil {
		return m.StoreFunc(ctx, name, data, contentType)
	}
	return "https://media.test/" + name, nil
}

// Calls returns the number of Store calls
func (m *MockObjectStorage) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Names)
}

// MockGeocoder implements domain.Geocoder interface for testing
type MockGeocoder struct {
	ResolveFunc func(ctx context.Context, location string) *domain.Coordinates
}

// Resolve returns nil unless overridden
func (m *MockGeocoder) Resolve(ctx context.Context, location string) *domain.Coordinates {
	if m.ResolveFunc != nil {
		return m.ResolveFunc(ctx, location)
	}
	return nil
}

// MockMediaUploader implements domain.MediaUploader interface for testing
type MockMediaUploader struct {
	UploadFunc func(ctx context.Context, image *domain.ImageUpload) (string, error)
}

// Upload returns a fixed URL unless overridden
func (m *MockMediaUploader) Upload(ctx context.Context, image *domain.ImageUpload) (string, error) {
	if m.UploadFunc != nil {
		return m.UploadFunc(ctx, image)
	}
	return "https://media.test/reports/" + image.Filename, nil
}

// MockMediaReader implements domain.MediaReader interface for testing
type MockMediaReader struct {
	OpenFunc func(ctx context.Context, id string) (io.ReadCloser, string, error)
}

// Open returns ErrMediaNotFound unless overridden
func (m *MockMediaReader) Open(ctx context.Context, id string) (io.ReadCloser, string, error) {
	if m.OpenFunc != nil {
		return m.OpenFunc(ctx, id)
	}
	return nil, "", domain.ErrMediaNotFound
}

// StaticMedia returns an OpenFunc serving body with contentType for every id
func StaticMedia(body, contentType string) func(ctx context.Context, id string) (io.ReadCloser, string, error) {
	return func(ctx context.Context, id string) (io.ReadCloser, string, error) {
		return io.NopCloser(strings.NewReader(body)), contentType, nil
	}
}

var (
	_ domain.GeocodingProvider = (*MockGeocodingProvider)(nil)
	_ domain.MediaReader       = (*MockMediaReader)(nil)
	_ domain.ObjectStorage     = (*MockObjectStorage)(nil)
	_ domain.Geocoder          = (*MockGeocoder)(nil)
	_ domain.MediaUploader     = (*MockMediaUploader)(nil)
)
