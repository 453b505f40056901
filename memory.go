package userdir

import (
	"context"
	"fmt"
	"sync"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// MemoryStore is a Store keeping users in memory.
// Users are copied in and out, so changes to a returned user are only
// visible to others after Save.
type MemoryStore struct {
	mu sync.RWMutex

	// byEmail maps emails to users.
	byEmail map[string]*User

	// order holds emails in insertion order.
	order []string
}

// NewMemoryStore creates a new, empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{byEmail: map[string]*User{}}
}

// FindByEmail implements Store.FindByEmail.
func (s *MemoryStore) FindByEmail(ctx context.Context, email string) (*User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	u := s.byEmail[email]
	if u == nil {
		return nil, nil
	}
	return u.clone(), nil
}

// Insert implements Store.Insert.
func (s *MemoryStore) Insert(ctx context.Context, u *User) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byEmail[u.Email]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateEmail, u.Email)
	}

	u.ID = bson.NewObjectID()
	s.byEmail[u.Email] = u.clone()
	s.order = append(s.order, u.Email)
	return nil
}

// Save implements Store.Save.
func (s *MemoryStore) Save(ctx context.Context, u *User) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	stored := s.byEmail[u.Email]
	if stored == nil || stored.ID != u.ID {
		return ErrNotFound
	}
	s.byEmail[u.Email] = u.clone()
	return nil
}

// Count implements Store.Count.
func (s *MemoryStore) Count(ctx context.Context) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	return int64(len(s.order)), nil
}

// List implements Store.List.
func (s *MemoryStore) List(ctx context.Context, skip, limit int64) ([]*User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	users := []*User{}
	n := int64(len(s.order))
	if skip < 0 || skip >= n || limit <= 0 {
		return users, nil
	}
	end := min(skip+limit, n)
	for _, email := range s.order[skip:end] {
		users = append(users, s.byEmail[email].clone())
	}
	return users, nil
}

// DeleteAll implements Store.DeleteAll.
func (s *MemoryStore) DeleteAll(ctx context.Context) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	n := int64(len(s.order))
	s.byEmail = map[string]*User{}
	s.order = nil
	return n, nil
}

var _ Store = (*MemoryStore)(nil)
