package auth

import (
	"os"
	"strings"
)

// PointerStore holds the single opaque session token the device keeps as its
// lookup key. The remote session table stays the source of truth; the pointer
// only tells the device which row is its own.
type PointerStore interface {
	Get() (string, error)
	Set(token string) error
	Clear() error
}

// FilePointerStore persists the pointer as a single file, standing in for the
// device key-value storage of the mobile client.
type FilePointerStore struct {
	path string
}

func NewFilePointerStore(path string) *FilePointerStore {
	return &FilePointerStore{path: path}
}

func (s *FilePointerStore) Get() (string, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

func (s *FilePointerStore) Set(token string) error {
	return os.WriteFile(s.path, []byte(token), 0o600)
}

func (s *FilePointerStore) Clear() error {
	err := os.Remove(s.path)
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
