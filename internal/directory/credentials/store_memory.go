package credentials

import (
	"context"
	"sync/atomic"

	"flowgate/pkg/platform/sentinel"
)

// MemoryStore keeps one token and one role table for this process.
// Reads and writes swap whole records atomically; concurrent writers race
// and the last one wins.
type MemoryStore struct {
	token atomic.Pointer[AccessToken]
	roles atomic.Pointer[RoleTable]
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Token(_ context.Context) (*AccessToken, error) {
	t := s.token.Load()
	if t == nil {
		return nil, sentinel.ErrNotFound
	}
	return t, nil
}

func (s *MemoryStore) SaveToken(_ context.Context, t *AccessToken) error {
	s.token.Store(t)
	return nil
}

func (s *MemoryStore) Roles(_ context.Context) (*RoleTable, error) {
	r := s.roles.Load()
	if r == nil {
		return nil, sentinel.ErrNotFound
	}
	return r, nil
}

func (s *MemoryStore) SaveRoles(_ context.Context, r *RoleTable) error {
	s.roles.Store(r)
	return nil
}
