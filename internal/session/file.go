package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"sync"
)

// FileStore remembers the last server-confirmed session id per chatbot so a
// terminal can resume a conversation.
type FileStore struct {
	path string
	mu   sync.Mutex
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Last returns the remembered session id for chatbotID, or "".
func (f *FileStore) Last(chatbotID int64) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, err := f.readLocked()
	if err != nil {
		return "", err
	}
	return m[strconv.FormatInt(chatbotID, 10)], nil
}

// Remember records sessionID for chatbotID.
func (f *FileStore) Remember(chatbotID int64, sessionID string) error {
	if sessionID == "" {
		return fmt.Errorf("empty session id")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	m, err := f.readLocked()
	if err != nil {
		return err
	}
	m[strconv.FormatInt(chatbotID, 10)] = sessionID
	return f.writeLocked(m)
}

// Forget drops the entry for chatbotID.
func (f *FileStore) Forget(chatbotID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, err := f.readLocked()
	if err != nil {
		return err
	}
	delete(m, strconv.FormatInt(chatbotID, 10))
	return f.writeLocked(m)
}

func (f *FileStore) readLocked() (map[string]string, error) {
	m := map[string]string{}
	b, err := os.ReadFile(f.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return m, nil
		}
		return nil, err
	}
	if len(b) == 0 {
		return m, nil
	}
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, fmt.Errorf("parse %s: %w", f.path, err)
	}
	return m, nil
}

func (f *FileStore) writeLocked(m map[string]string) error {
	if err := os.MkdirAll(filepath.Dir(f.path), 0o700); err != nil {
		return err
	}
	b, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, f.path)
}
