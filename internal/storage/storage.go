// Package storage persists namespaced client state as files under the state
// dir. All operations are synchronous and best-effort: storage trouble is
// logged and degrades to "no value", it never propagates to the caller.
package storage

import (
	"encoding/json"
	"os"
	"path/filepath"

	"go.uber.org/zap"
)

// Keys for the persisted client-side state.
const (
	KeyToken        = "auth_token"
	KeyUser         = "user_data"
	KeyURLs         = "workspace_urls"
	KeyAnalysis     = "workspace_analysis"
	KeyHistories    = "chat_histories"
	KeyLastActivity = "last_activity"
)

// Store is a flat key-value store, one file per key.
type Store struct {
	dir string
	log *zap.Logger
}

// New returns a Store rooted at dir. The directory is created lazily on the
// first write.
func New(dir string, log *zap.Logger) *Store {
	return &Store{dir: dir, log: log}
}

// Dir returns the state directory backing the store.
func (s *Store) Dir() string { return s.dir }

// PutString stores a raw string value under key.
func (s *Store) PutString(key, value string) {
	s.write(key, []byte(value))
}

// GetString loads a raw string value; ok is false when the key is absent.
func (s *Store) GetString(key string) (value string, ok bool) {
	b, err := os.ReadFile(s.path(key))
	if err != nil {
		return "", false
	}
	return string(b), true
}

// Put stores v JSON-encoded under key.
func (s *Store) Put(key string, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		s.log.Warn("storage: encode failed", zap.String("key", key), zap.Error(err))
		return
	}
	s.write(key, b)
}

// Get loads the JSON value stored under key into v. It returns false when
// the key is absent or the stored blob does not decode.
func (s *Store) Get(key string, v any) bool {
	b, err := os.ReadFile(s.path(key))
	if err != nil {
		return false
	}
	if err := json.Unmarshal(b, v); err != nil {
		s.log.Warn("storage: malformed blob", zap.String("key", key), zap.Error(err))
		return false
	}
	return true
}

// Delete removes the value stored under key, if any.
func (s *Store) Delete(key string) {
	if err := os.Remove(s.path(key)); err != nil && !os.IsNotExist(err) {
		s.log.Warn("storage: delete failed", zap.String("key", key), zap.Error(err))
	}
}

func (s *Store) path(key string) string {
	return filepath.Join(s.dir, key+".json")
}

func (s *Store) write(key string, b []byte) {
	if err := os.MkdirAll(s.dir, 0o700); err != nil {
		s.log.Warn("storage: mkdir failed", zap.String("dir", s.dir), zap.Error(err))
		return
	}
	if err := os.WriteFile(s.path(key), b, 0o600); err != nil {
		s.log.Warn("storage: write failed", zap.String("key", key), zap.Error(err))
	}
}
