package tokens

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
)

// MemoryStore keeps the token in process memory.
type MemoryStore struct {
	mu    sync.RWMutex
	token string
}

func NewMemoryStore(token string) *MemoryStore {
	return &MemoryStore{token: token}
}

func (s *MemoryStore) GetToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.token
}

func (s *MemoryStore) SaveToken(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.token = token
}

func (s *MemoryStore) DestroyToken() {
	s.SaveToken("")
}

// FileStore reads the token from a file on every call, so an external
// login tool can rotate it without restarting the client.
type FileStore struct {
	path string
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (s *FileStore) GetToken() string {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return ""
	}

	return strings.TrimSpace(string(data))
}

func (s *FileStore) SaveToken(token string) error {
	if err := os.WriteFile(s.path, []byte(token+"\n"), 0o600); err != nil {
		return fmt.Errorf("failed writing token file: %w", err)
	}

	return nil
}

func (s *FileStore) DestroyToken() error {
	err := os.Remove(s.path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed removing token file: %w", err)
	}

	return nil
}
