package users

import (
	"context"
	"strings"
	"sync"

	"classboard/internal/svcerr"

	"github.com/google/uuid"
)

type MemoryStore struct {
	mu    sync.Mutex
	users map[uuid.UUID]User
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{users: make(map[uuid.UUID]User)}
}

func (s *MemoryStore) CreateUser(_ context.Context, u User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.users {
		if strings.EqualFold(existing.Email, u.Email) {
			return svcerr.Conflict(svcerr.ReasonAlreadyExists)
		}
	}
	if _, ok := s.users[u.ID]; ok {
		return svcerr.Conflict(svcerr.ReasonAlreadyExists)
	}
	s.users[u.ID] = u
	return nil
}

func (s *MemoryStore) FindByEmail(_ context.Context, email string) (User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if strings.EqualFold(u.Email, email) {
			return u, nil
		}
	}
	return User{}, svcerr.NotFound()
}

func (s *MemoryStore) FindByID(_ context.Context, id uuid.UUID) (User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return User{}, svcerr.NotFound()
	}
	return u, nil
}

func (s *MemoryStore) UpdateProfile(_ context.Context, id uuid.UUID, email, description string) (User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return User{}, svcerr.NotFound()
	}
	for otherID, other := range s.users {
		if otherID != id && strings.EqualFold(other.Email, email) {
			return User{}, svcerr.Conflict(svcerr.ReasonAlreadyExists)
		}
	}
	u.Email = email
	u.Description = description
	s.users[id] = u
	return u, nil
}

func (s *MemoryStore) UpdatePasswordHash(_ context.Context, id uuid.UUID, hash string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return 0, nil
	}
	u.PasswordHash = hash
	s.users[id] = u
	return 1, nil
}

func (s *MemoryStore) DeleteUser(_ context.Context, id uuid.UUID) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[id]; !ok {
		return 0, nil
	}
	delete(s.users, id)
	return 1, nil
}
