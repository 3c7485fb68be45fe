package geocoding

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/you/incidentsvc/domain"
)

func TestNominatim_Geocode(t *testing.T) {
	tests := []struct {
		name          string
		status        int
		body          string
		expected      *domain.Coordinates
		expectedError error
		expectError   bool
	}{
		{
			name:     "first match",
			status:   http.StatusOK,
			body:     `[{"lat":"19.0760","lon":"72.8777","display_name":"Mumbai"},{"lat":"1","lon":"2"}]`,
			expected: &domain.Coordinates{Latitude: 19.0760, Longitude: 72.8777},
		},
		{
			name:          "no match",
			status:        http.StatusOK,
			body:          `[]`,
			expectedError: domain.ErrLocationNotFound,
		},
		{
			name:        "bad latitude",
			status:      http.StatusOK,
			body:        `[{"lat":"north","lon":"72.8"}]`,
			expectError: true,
		},
		{
			name:        "rate limited",
			status:      http.StatusTooManyRequests,
			body:        `{}`,
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/search", r.URL.Path)
				assert.Equal(t, "json", r.URL.Query().Get("format"))
				assert.Equal(t, "1", r.URL.Query().Get("limit"))
				assert.Equal(t, "Andheri, Mumbai, Maharashtra", r.URL.Query().Get("q"))
				assert.Equal(t, "incidentsvc-test", r.Header.Get("User-Agent"))
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			n := NewNominatim(srv.URL+"/", "incidentsvc-test", time.Second)
			got, err := n.Geocode(context.Background(), "Andheri, Mumbai, Maharashtra")

			switch {
			case tt.expectedError != nil:
				assert.ErrorIs(t, err, tt.expectedError)
				assert.Nil(t, got)
			case tt.expectError:
				assert.Error(t, err)
				assert.Nil(t, got)
			default:
				require.NoError(t, err)
				assert.Equal(t, tt.expected, got)
			}
		})
	}
}

func TestNominatim_ContextCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := NewNominatim(srv.URL, "", time.Second).Geocode(ctx, "anywhere")
	assert.Error(t, err)
}

func TestStatic_Geocode(t *testing.T) {
	table := map[string]domain.Coordinates{
		"Andheri, Mumbai, Maharashtra": {Latitude: 19.1136, Longitude: 72.8697},
	}
	ctx := context.Background()

	s := NewStatic(table, nil)
	got, err := s.Geocode(ctx, "  andheri, mumbai, maharashtra ")
	require.NoError(t, err)
	assert.Equal(t, 19.1136, got.Latitude)

	_, err = s.Geocode(ctx, "Atlantis")
	assert.ErrorIs(t, err, domain.ErrLocationNotFound)

	withDefault := NewStatic(table, &domain.Coordinates{Latitude: 20.5937, Longitude: 78.9629})
	got, err = withDefault.Geocode(ctx, "Atlantis")
	require.NoError(t, err)
	assert.Equal(t, 78.9629, got.Longitude)
}
