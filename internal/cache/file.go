package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/teemow/gmail-ai-agent/internal/gmail"
)

// DefaultFile is the default location of the email cache file.
const DefaultFile = "data/emails.json"

// FileStore keeps the batch in a single indented JSON file.
type FileStore struct {
	path string
}

var _ Store = (*FileStore)(nil)

// NewFileStore creates a FileStore writing to path, or DefaultFile when
// path is empty.
func NewFileStore(path string) *FileStore {
	if path == "" {
		path = DefaultFile
	}
	return &FileStore{path: path}
}

// Path returns the cache file location.
func (s *FileStore) Path() string {
	return s.path
}

// Save overwrites the cache file with emails.
func (s *FileStore) Save(_ context.Context, emails []gmail.Email) error {
	if emails == nil {
		emails = []gmail.Email{}
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("failed to create cache directory: %w", err)
	}

	data, err := json.MarshalIndent(emails, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode emails: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write cache file: %w", err)
	}
	return nil
}

// Load reads the cache file. A missing file yields an empty batch.
func (s *FileStore) Load(_ context.Context) ([]gmail.Email, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return []gmail.Email{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read cache file: %w", err)
	}

	var emails []gmail.Email
	if err := json.Unmarshal(data, &emails); err != nil {
		return nil, fmt.Errorf("failed to decode cache file: %w", err)
	}
	if emails == nil {
		emails = []gmail.Email{}
	}
	return derive(emails), nil
}

// Get returns the cached email with id.
func (s *FileStore) Get(ctx context.Context, id string) (gmail.Email, error) {
	emails, err := s.Load(ctx)
	if err != nil {
		return gmail.Email{}, err
	}
	return find(emails, id)
}
