package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// URLPrefix is the public prefix of every file reference handed out.
const URLPrefix = "/files/"

// FileStore keeps attachment bytes and hands out file references that are
// stored on messages.
type FileStore interface {
	Save(ctx context.Context, filename string, content []byte) (string, error)
	Open(ctx context.Context, fileURL string) (io.ReadCloser, error)
}

// LocalStore is a FileStore on the local disk.
type LocalStore struct {
	dir string
}

func NewLocalStore(dir string) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create media directory: %w", err)
	}
	return &LocalStore{dir: dir}, nil
}

// Save writes content under a unique name; the original filename is kept as
// a suffix so the reference stays readable.
func (s *LocalStore) Save(ctx context.Context, filename string, content []byte) (string, error) {
	name := uuid.NewString() + "_" + sanitize(filename)
	if err := os.WriteFile(filepath.Join(s.dir, name), content, 0640); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", name, err)
	}
	return URLPrefix + name, nil
}

func (s *LocalStore) Open(ctx context.Context, fileURL string) (io.ReadCloser, error) {
	path, err := s.Path(fileURL)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", fileURL, err)
	}
	return f, nil
}

// Path resolves a file reference to a path inside the store directory.
func (s *LocalStore) Path(fileURL string) (string, error) {
	if !strings.HasPrefix(fileURL, URLPrefix) {
		return "", fmt.Errorf("not a stored file reference: %s", fileURL)
	}
	name := strings.TrimPrefix(fileURL, URLPrefix)
	if name == "" || name != filepath.Base(name) || name == ".." {
		return "", fmt.Errorf("invalid file reference: %s", fileURL)
	}
	return filepath.Join(s.dir, name), nil
}

// OriginalName strips the unique prefix added by Save.
func OriginalName(fileURL string) string {
	name := filepath.Base(fileURL)
	if _, rest, ok := strings.Cut(name, "_"); ok && rest != "" {
		return rest
	}
	return name
}

func sanitize(filename string) string {
	name := filepath.Base(strings.ReplaceAll(filename, "\\", "/"))
	if name == "." || name == "/" || name == ".." || name == "" {
		return "attachment"
	}
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', ':', '*', '?', '"', '<', '>', '|', 0:
			return '_'
		}
		return r
	}, name)
}
