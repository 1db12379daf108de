package credential

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"os"
	"path/filepath"
	"sync"
)

// FileStore defines a public type used by goSession APIs.
//
// FileStore instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
// The whole key set lives in one sealed blob on disk; every Set/Delete rewrites
// it atomically (temp file + rename). Reads are served from memory after the
// first load. An unreadable or corrupt blob is treated as an empty store, never
// as a fatal error.
type FileStore struct {
	path   string
	secret []byte

	mu     sync.Mutex
	values map[string]string
	loaded bool
}

// NewFileStore describes the newfilestore operation and its observable behavior.
//
// NewFileStore may return an error when input validation, dependency calls, or security checks fail.
// NewFileStore does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func NewFileStore(path string, secret []byte) (*FileStore, error) {
	if path == "" {
		return nil, errors.New("file store path required")
	}
	if len(secret) == 0 {
		return nil, errors.New("file store secret required")
	}

	sec := make([]byte, len(secret))
	copy(sec, secret)

	return &FileStore{
		path:   path,
		secret: sec,
		values: make(map[string]string),
	}, nil
}

// Get describes the get operation and its observable behavior.
//
// Get may return an error when input validation, dependency calls, or security checks fail.
// Get does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (s *FileStore) Get(_ context.Context, key string) (string, bool) {
	if s == nil {
		return "", false
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.loadLocked()
	v, ok := s.values[key]
	return v, ok
}

// Set describes the set operation and its observable behavior.
//
// Set may return an error when input validation, dependency calls, or security checks fail.
// Set does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (s *FileStore) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.loadLocked()
	s.values[key] = value
	return s.persistLocked()
}

// Delete describes the delete operation and its observable behavior.
//
// Delete may return an error when input validation, dependency calls, or security checks fail.
// Delete does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (s *FileStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.loadLocked()
	if _, ok := s.values[key]; !ok {
		return nil
	}
	delete(s.values, key)
	return s.persistLocked()
}

func (s *FileStore) loadLocked() {
	if s.loaded {
		return
	}
	s.loaded = true

	blob, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Print("goSession: credential file unreadable, starting empty")
		}
		return
	}

	plaintext, err := open(s.secret, blob)
	if err != nil {
		log.Print("goSession: credential file corrupt or wrong secret, starting empty")
		return
	}

	var values map[string]string
	if err := json.Unmarshal(plaintext, &values); err != nil {
		log.Print("goSession: credential file payload invalid, starting empty")
		return
	}
	s.values = values
}

func (s *FileStore) persistLocked() error {
	plaintext, err := json.Marshal(s.values)
	if err != nil {
		return err
	}
	blob, err := seal(s.secret, plaintext)
	if err != nil {
		return err
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".credentials-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(blob); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	return os.Rename(tmpName, s.path)
}
