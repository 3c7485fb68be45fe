package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testConfigYAML = `
app:
  port: 9090
  gin_mode: test
  attempt_ttl: 2m
store:
  driver: sqlite
  dsn: "file::memory:"
redis:
  addr: localhost:6380
  db: 2
otp:
  ttl: 90s
  length: 4
  max_attempts: 5
  resend_window: 10s
  test_numbers:
    "+911234567890": "1234"
geocoder:
  provider: static
  static:
    "andheri, mumbai, maharashtra":
      lat: 19.1136
      lng: 72.8697
`

func writeConfig(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadFrom(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, "config.yml", testConfigYAML)

	cfg, err := LoadFrom(path)
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, "sqlite", cfg.StoreDriver)
	assert.Equal(t, "localhost:6380", cfg.RedisAddr)
	assert.Equal(t, 2, cfg.RedisDB)
	assert.Equal(t, 2*time.Minute, cfg.AttemptTTL)
	assert.Equal(t, 90*time.Second, cfg.OTP_TTL)
	assert.Equal(t, 4, cfg.OTP_Length)
	assert.Equal(t, 5, cfg.OTP_MaxAttempts)
	assert.Equal(t, 10*time.Second, cfg.OTP_ResendWindow)
	assert.Equal(t, "1234", cfg.OTPTestNumbers["+911234567890"])
	assert.Equal(t, "static", cfg.GeocoderProvider)
	assert.InDelta(t, 19.1136, cfg.GeocoderStatic["andheri, mumbai, maharashtra"].Lat, 1e-9)

	// Defaults fill in what the file leaves out
	assert.Equal(t, 5*time.Second, cfg.EnrichTimeout)
	assert.Equal(t, "redis", cfg.OTPProvider)
	assert.Equal(t, "disasterReports", cfg.ReportCollection)
	assert.Equal(t, "local", cfg.MediaBackend)
	assert.Equal(t, int64(5<<20), cfg.MediaMaxBytes)

	// No form_rules.yml next to the config: strict defaults apply
	assert.Equal(t, DefaultFormRules(), cfg.Form)
}

func TestLoadFrom_FormRulesFile(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, "config.yml", testConfigYAML)
	writeConfig(t, dir, "form_rules.yml", `
formRules:
  strictLocation: true
  nameLettersOnly: false
`)

	cfg, err := LoadFrom(path)
	require.NoError(t, err)

	assert.True(t, cfg.Form.StrictLocation)
	assert.False(t, cfg.Form.NameLettersOnly)
	// Unset keys keep their defaults
	assert.Equal(t, "91", cfg.Form.PhoneCountryCode)
	assert.Equal(t, 10, cfg.Form.PhoneDigits)
}

func TestLoadFrom_EnvOverrides(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, "config.yml", testConfigYAML)

	t.Setenv("PORT", "7000")
	t.Setenv("REDIS_ADDR", "redis:6379")
	t.Setenv("REDIS_DB", "7")
	t.Setenv("ADMIN_JWT_SECRET", "s3cret")

	cfg, err := LoadFrom(path)
	require.NoError(t, err)

	assert.Equal(t, "7000", cfg.Port)
	assert.Equal(t, "redis:6379", cfg.RedisAddr)
	assert.Equal(t, 7, cfg.RedisDB)
	assert.Equal(t, "s3cret", cfg.AdminJWTSecret)
}

func TestLoadFrom_Errors(t *testing.T) {
	tests := []struct {
		name string
		body string
		env  map[string]string
	}{
		{
			name: "invalid duration",
			body: "otp:\n  ttl: soon\n",
		},
		{
			name: "invalid yaml",
			body: "app: [port",
		},
		{
			name: "invalid REDIS_DB",
			body: "app:\n  port: 1\n",
			env:  map[string]string{"REDIS_DB": "two"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			path := writeConfig(t, t.TempDir(), "config.yml", tt.body)

			_, err := LoadFrom(path)
			assert.Error(t, err)
		})
	}

	_, err := LoadFrom(filepath.Join(t.TempDir(), "missing.yml"))
	assert.Error(t, err)
}

func TestLoadFrom_MediaAndAdminDefaults(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, "config.yml", testConfigYAML)

	cfg, err := LoadFrom(path)
	require.NoError(t, err)
	assert.Equal(t, "local", cfg.MediaBackend)
	assert.Equal(t, "/uploads", cfg.MediaBaseURL)
	assert.Equal(t, 12*time.Hour, cfg.AdminTokenTTL)
	assert.Equal(t, "incidentsvc-admin", cfg.AdminJWTIssuer)

	// GridFS media is served by id, so no uploads prefix is assumed
	t.Setenv("MEDIA_BACKEND", "gridfs")
	cfg, err = LoadFrom(path)
	require.NoError(t, err)
	assert.Equal(t, "gridfs", cfg.MediaBackend)
	assert.Empty(t, cfg.MediaBaseURL)
}
