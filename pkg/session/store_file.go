package session

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

type fileDocument struct {
	SessionID string `yaml:"session_id"`
}

// FileStore keeps the identifier in a small YAML document.
type FileStore struct {
	path string
}

var _ Store = &FileStore{}

func NewFileStore(path string) (*FileStore, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("file store: empty path")
	}
	return &FileStore{path: path}, nil
}

func (s *FileStore) Get(_ context.Context) (string, error) {
	b, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", ErrNotFound
		}
		return "", errors.Wrapf(err, "file store: read %s", s.path)
	}
	var doc fileDocument
	if err := yaml.Unmarshal(b, &doc); err != nil {
		return "", errors.Wrapf(err, "file store: parse %s", s.path)
	}
	return normalizeID(doc.SessionID)
}

// Set writes the document to a temporary file and renames it into place.
func (s *FileStore) Set(_ context.Context, id string) error {
	if strings.TrimSpace(id) == "" {
		return errors.New("file store: empty session id")
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return errors.Wrap(err, "file store: create directory")
	}
	b, err := yaml.Marshal(fileDocument{SessionID: id})
	if err != nil {
		return errors.Wrap(err, "file store: marshal")
	}
	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".session-*.yaml")
	if err != nil {
		return errors.Wrap(err, "file store: create temp file")
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(b); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return errors.Wrap(err, "file store: write temp file")
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return errors.Wrap(err, "file store: close temp file")
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		_ = os.Remove(tmpName)
		return errors.Wrap(err, "file store: chmod")
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		_ = os.Remove(tmpName)
		return errors.Wrap(err, "file store: rename")
	}
	return nil
}

func (s *FileStore) Clear(_ context.Context) error {
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return errors.Wrapf(err, "file store: remove %s", s.path)
	}
	return nil
}

func (s *FileStore) Close() error { return nil }
