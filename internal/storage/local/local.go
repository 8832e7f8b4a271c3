// Package local stores uploaded media on the local filesystem under a
// base directory that the router serves statically at /uploads.
package local

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// Store writes media files into basePath and returns references of the
// form "/uploads/<uuid>.<ext>".
type Store struct {
	basePath string
}

// New creates the base directory if needed and returns a Store.
func New(basePath string) (*Store, error) {
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("create upload directory: %w", err)
	}
	return &Store{basePath: basePath}, nil
}

// Save streams r into a freshly named file. The name is a v4 UUID plus
// an extension derived from the declared content type, so references
// never collide and never contain user-controlled path segments.
func (s *Store) Save(ctx context.Context, contentType string, r io.Reader) (string, error) {
	name := uuid.NewString() + extForType(contentType)
	fp := filepath.Join(s.basePath, name)

	f, err := os.Create(fp)
	if err != nil {
		return "", fmt.Errorf("create media file: %w", err)
	}
	if _, err := io.Copy(f, r); err != nil {
		_ = f.Close()
		_ = os.Remove(fp)
		return "", fmt.Errorf("write media file: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(fp)
		return "", fmt.Errorf("close media file: %w", err)
	}
	return "/uploads/" + name, nil
}

// Remove deletes the file a reference points at. References that do not
// resolve inside the base directory are rejected.
func (s *Store) Remove(ctx context.Context, ref string) error {
	name := path.Base(strings.TrimPrefix(ref, "/uploads/"))
	fp, err := s.safeJoin(name)
	if err != nil {
		return err
	}
	if err := os.Remove(fp); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("media not found")
		}
		return fmt.Errorf("delete media file: %w", err)
	}
	return nil
}

// safeJoin resolves name relative to basePath and rejects traversal.
func (s *Store) safeJoin(name string) (string, error) {
	absBase, err := filepath.Abs(s.basePath)
	if err != nil {
		return "", fmt.Errorf("invalid base path: %w", err)
	}
	absPath, err := filepath.Abs(filepath.Join(s.basePath, name))
	if err != nil {
		return "", fmt.Errorf("invalid path: %w", err)
	}
	if !strings.HasPrefix(absPath, absBase+string(filepath.Separator)) {
		return "", fmt.Errorf("path traversal attempt")
	}
	return absPath, nil
}

func extForType(contentType string) string {
	switch contentType {
	case "image/png":
		return ".png"
	case "image/gif":
		return ".gif"
	case "image/webp":
		return ".webp"
	default:
		return ".jpg"
	}
}
