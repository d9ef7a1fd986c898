// File: internal/prefs/prefs.go
// Package prefs persists the handful of settings that survive a full
// session reset, currently just the default author name.
package prefs

import (
	"os"
	"path/filepath"

	json "github.com/json-iterator/go"
)

// DefaultAuthor is used until the user sets their own author name.
const DefaultAuthor = "@rtlphishletgen"

const settingsFile = "settings.json"

// Store reads and writes durable user preferences.
type Store interface {
	Author() string
	SetAuthor(name string) error
}

type settings struct {
	Author string `json:"author"`
}

// FileStore keeps settings as a JSON file under the user config dir.
type FileStore struct {
	path string
}

// NewFileStore locates (and creates, if needed) the settings directory.
func NewFileStore() (*FileStore, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return nil, err
	}
	dir = filepath.Join(dir, "phishletgen")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &FileStore{path: filepath.Join(dir, settingsFile)}, nil
}

// NewFileStoreAt uses an explicit path. Tests point this at a temp dir.
func NewFileStoreAt(path string) *FileStore {
	return &FileStore{path: path}
}

// Author returns the persisted author name, or DefaultAuthor when none has
// ever been set or the file is unreadable.
func (s *FileStore) Author() string {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return DefaultAuthor
	}
	var st settings
	if err := json.Unmarshal(data, &st); err != nil || st.Author == "" {
		return DefaultAuthor
	}
	return st.Author
}

// SetAuthor durably stores the author name via an atomic tmp+rename write.
func (s *FileStore) SetAuthor(name string) error {
	data, err := json.MarshalIndent(settings{Author: name}, "", "  ")
	if err != nil {
		return err
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}
