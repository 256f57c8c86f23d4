// Package credstore owns the persisted credential record: the bearer token
// and its cached user profile, written and cleared as a pair. It is the
// single source of truth for "am I logged in".
package credstore

import (
	"github.com/nvoskan/equiterm/internal/model"
	"github.com/nvoskan/equiterm/internal/storage"
	"go.uber.org/zap"
)

// Store persists the token/user pair through the key-value storage layer.
type Store struct {
	kv  *storage.Store
	log *zap.Logger
}

// New returns a credential store backed by kv.
func New(kv *storage.Store, log *zap.Logger) *Store {
	return &Store{kv: kv, log: log}
}

// Save writes token and user together. A nil user stores the token alone.
func (s *Store) Save(token string, user *model.User) {
	s.kv.PutString(storage.KeyToken, token)
	if user != nil {
		s.kv.Put(storage.KeyUser, user)
	} else {
		s.kv.Delete(storage.KeyUser)
	}
}

// Load returns the stored token and user. A malformed user blob degrades to
// a nil user while still returning the raw token; the user is decoration
// only.
func (s *Store) Load() (token string, user *model.User) {
	token, _ = s.kv.GetString(storage.KeyToken)
	var u model.User
	if s.kv.Get(storage.KeyUser, &u) {
		user = &u
	}
	return token, user
}

// Token returns just the stored token, empty when absent.
func (s *Store) Token() string {
	t, _ := s.kv.GetString(storage.KeyToken)
	return t
}

// Clear removes both halves of the credential record.
func (s *Store) Clear() {
	s.kv.Delete(storage.KeyToken)
	s.kv.Delete(storage.KeyUser)
	s.log.Debug("credentials cleared")
}
