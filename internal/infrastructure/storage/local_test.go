package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalDisk_Store(t *testing.T) {
	dir := t.TempDir()
	s := NewLocalDisk(dir, "/uploads/")

	url, err := s.Store(context.Background(), "reports/1_abcd.png", []byte("png"), "image/png")
	require.NoError(t, err)
	assert.Equal(t, "/uploads/reports/1_abcd.png", url)

	data, err := os.ReadFile(filepath.Join(dir, "reports", "1_abcd.png"))
	require.NoError(t, err)
	assert.Equal(t, "png", string(data))
}

func TestLocalDisk_RejectsEscapingNames(t *testing.T) {
	s := NewLocalDisk(t.TempDir(), "/uploads")

	for _, name := range []string{"../secret.png", "reports/../../x.png", "", "/abs.png"} {
		_, err := s.Store(context.Background(), name, []byte("x"), "image/png")
		assert.Error(t, err, "name %q should be rejected", name)
	}
}

func TestLocalDisk_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewLocalDisk(t.TempDir(), "/uploads").Store(ctx, "reports/a.png", []byte("x"), "image/png")
	assert.ErrorIs(t, err, context.Canceled)
}
