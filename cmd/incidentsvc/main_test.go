package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/you/incidentsvc/internal/infrastructure/auth"
)

const testConfig = `app:
  port: 8080
  log_level: error
store:
  driver: sqlite
  dsn: "file::memory:"
admin:
  jwt_secret: cli-secret
  jwt_issuer: cli-issuer
  token_ttl: 1h
`

func writeTestConfig(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(testConfig), 0o644))
	return path
}

func TestAdminTokenCommand(t *testing.T) {
	t.Setenv("ADMIN_JWT_SECRET", "")
	path := writeTestConfig(t)

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"admin-token", "--config", path, "--subject", "ops@example.org"})
	require.NoError(t, rootCmd.Execute())

	token := strings.TrimSpace(out.String())
	claims, err := auth.NewJWTService("cli-secret", "cli-issuer", time.Hour).ValidateAdminToken(token)
	require.NoError(t, err)
	assert.Equal(t, "ops@example.org", claims.Subject)
	assert.True(t, claims.Admin)
}

func TestMigrateCommand_SQLite(t *testing.T) {
	t.Setenv("STORE_DRIVER", "")
	path := writeTestConfig(t)

	rootCmd.SetArgs([]string{"migrate", "--config", path})
	assert.NoError(t, rootCmd.Execute())
}
