package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/you/incidentsvc/internal/app"
	"github.com/you/incidentsvc/internal/config"
)

const (
	testPhone = "1234567890"
	testCode  = "000000"
)

// TestServer runs the full container over SQLite and miniredis
type TestServer struct {
	Server    *httptest.Server
	Container *app.Container
	Redis     *miniredis.Miniredis
	Client    *http.Client
}

func testConfig(t *testing.T, redisAddr string) *config.Config {
	t.Helper()
	return &config.Config{
		Port:             "0",
		GinMode:          gin.TestMode,
		LogLevel:         "error",
		AttemptTTL:       time.Minute,
		EnrichTimeout:    time.Second,
		StoreDriver:      "sqlite",
		DSN:              "file::memory:",
		RedisAddr:        redisAddr,
		OTPProvider:      "redis",
		OTP_TTL:          5 * time.Minute,
		OTP_Length:       6,
		OTP_MaxAttempts:  3,
		OTP_ResendWindow: time.Minute,
		OTPTestNumbers:   map[string]string{"+91" + testPhone: testCode},
		CaptchaProvider:  "test",
		VerifierLeaseTTL: 10 * time.Minute,
		GeocoderProvider: "static",
		GeocoderTimeout:  time.Second,
		GeocoderStatic: map[string]config.GeoPoint{
			"Andheri, Mumbai, Maharashtra": {Lat: 19.1136, Lng: 72.8697},
		},
		MediaBackend:   "local",
		MediaDir:       t.TempDir(),
		MediaBaseURL:   "/uploads",
		MediaMaxBytes:  1 << 20,
		AdminJWTSecret: "e2e-secret",
		AdminJWTIssuer: "incidentsvc-admin",
		AdminTokenTTL:  time.Hour,
		Form:           config.DefaultFormRules(),
	}
}

// NewTestServer builds the container and serves its router
func NewTestServer(t *testing.T) *TestServer {
	t.Helper()
	mr := miniredis.RunT(t)

	container, err := app.NewContainer(context.Background(), testConfig(t, mr.Addr()), zaptest.NewLogger(t))
	require.NoError(t, err)

	server := httptest.NewServer(container.Router())
	t.Cleanup(func() {
		server.Close()
		_ = container.Close()
	})

	return &TestServer{
		Server:    server,
		Container: container,
		Redis:     mr,
		Client:    &http.Client{Timeout: 5 * time.Second},
	}
}

// Response is a decoded API response
type Response struct {
	Status int
	Body   map[string]interface{}
	Raw    []byte
}

// Data returns the "data" object of a successful response
func (r *Response) Data(t *testing.T) map[string]interface{} {
	t.Helper()
	data, ok := r.Body["data"].(map[string]interface{})
	require.True(t, ok, "response has no data object: %s", r.Raw)
	return data
}

// JSON sends body as JSON with the given headers
func (s *TestServer) JSON(t *testing.T, method, path string, body interface{}, headers map[string]string) *Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, s.Server.URL+path, &buf)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	return s.send(t, req)
}

// Multipart sends fields and an optional image as multipart/form-data
func (s *TestServer) Multipart(t *testing.T, path string, fields map[string]string, image []byte, headers map[string]string) *Response {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if image != nil {
		fw, err := mw.CreateFormFile("image", "photo.png")
		require.NoError(t, err)
		_, err = fw.Write(image)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req, err := http.NewRequest(http.MethodPost, s.Server.URL+path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	return s.send(t, req)
}

// Get fetches path and returns the raw body
func (s *TestServer) Get(t *testing.T, path string) (int, []byte) {
	t.Helper()
	resp, err := s.Client.Get(s.Server.URL + path)
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, raw
}

// AdminHeaders returns an Authorization header with a freshly minted admin token
func (s *TestServer) AdminHeaders(t *testing.T) map[string]string {
	t.Helper()
	token, err := s.Container.TokenSvc.GenerateAdminToken("e2e@example.org")
	require.NoError(t, err)
	return map[string]string{"Authorization": "Bearer " + token}
}

func (s *TestServer) send(t *testing.T, req *http.Request) *Response {
	t.Helper()
	resp, err := s.Client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	out := &Response{Status: resp.StatusCode, Raw: raw}
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &out.Body), "non-JSON body: %s", raw)
	}
	return out
}
