package tokenstore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/darziflow/console/internal/core/domain"
	"github.com/darziflow/console/internal/core/ports"
)

const (
	configDirName = ".darziflow"
	tokenFileName = "token"
)

// FileStore keeps the CLI's token in ~/.darziflow/token.
type FileStore struct {
	path string
}

var _ ports.TokenStore = (*FileStore)(nil)

// NewFileStore creates the store under the user's home directory.
func NewFileStore() (*FileStore, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get user home directory: %w", err)
	}
	return NewFileStoreAt(filepath.Join(home, configDirName, tokenFileName))
}

// NewFileStoreAt creates the store at an explicit path.
func NewFileStoreAt(path string) (*FileStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", filepath.Dir(path), err)
	}
	return &FileStore{path: path}, nil
}

// Path returns where the token lives.
func (s *FileStore) Path() string { return s.path }

func (s *FileStore) Load(context.Context) (string, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", domain.ErrTokenNotFound
		}
		return "", fmt.Errorf("failed to read token file: %w", err)
	}
	token := strings.TrimSpace(string(data))
	if token == "" {
		return "", domain.ErrTokenNotFound
	}
	return token, nil
}

// Save writes through a temp file and rename so a crash never leaves half a token.
func (s *FileStore) Save(_ context.Context, token string) error {
	tmp, err := os.CreateTemp(filepath.Dir(s.path), tokenFileName+".*")
	if err != nil {
		return fmt.Errorf("failed to create temp token file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to chmod token file: %w", err)
	}
	if _, err := tmp.WriteString(token); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write token file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close token file: %w", err)
	}
	return os.Rename(tmp.Name(), s.path)
}

func (s *FileStore) Clear(context.Context) error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to delete token file: %w", err)
	}
	return nil
}
