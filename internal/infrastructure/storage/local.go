package storage

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/you/incidentsvc/domain"
)

// LocalDisk writes objects below a directory that the HTTP router serves statically
type LocalDisk struct {
	dir     string
	baseURL string
}

// NewLocalDisk stores files under dir and builds URLs as baseURL/name
func NewLocalDisk(dir, baseURL string) *LocalDisk {
	return &LocalDisk{dir: dir, baseURL: strings.TrimRight(baseURL, "/")}
}

// Dir is the directory the router should serve at the base URL
func (s *LocalDisk) Dir() string { return s.dir }

// Store writes data to dir/name, creating intermediate directories
func (s *LocalDisk) Store(ctx context.Context, name string, data []byte, contentType string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	clean := path.Clean("/" + filepath.ToSlash(name))[1:]
	if clean == "" || clean != filepath.ToSlash(name) {
		return "", fmt.Errorf("invalid object name %q", name)
	}

	dst := filepath.Join(s.dir, filepath.FromSlash(clean))
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return "", fmt.Errorf("create media directory: %w", err)
	}
	if err := os.WriteFile(dst, data, 0o644); err != nil {
		return "", fmt.Errorf("write media file: %w", err)
	}
	return s.baseURL + "/" + clean, nil
}

var _ domain.ObjectStorage = (*LocalDisk)(nil)
