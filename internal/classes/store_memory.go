package classes

import (
	"context"
	"slices"
	"strings"
	"sync"
	"sync/atomic"

	"classboard/internal/rbac"
	"classboard/internal/svcerr"

	"github.com/google/uuid"
)

type memberKey struct {
	userID, classID uuid.UUID
}

// MemoryStore implements Store in memory. It counts calls so tests can
// assert that no storage access happened.
type MemoryStore struct {
	mu      sync.Mutex
	classes map[uuid.UUID]Class
	members map[memberKey]Membership
	calls   atomic.Int64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		classes: make(map[uuid.UUID]Class),
		members: make(map[memberKey]Membership),
	}
}

// Calls reports how many Store methods have been invoked.
func (s *MemoryStore) Calls() int64 { return s.calls.Load() }

func (s *MemoryStore) CreateClass(_ context.Context, c Class, owner Membership) error {
	s.calls.Add(1)
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.classes[c.ID]; ok {
		return svcerr.Conflict(svcerr.ReasonAlreadyExists)
	}
	s.classes[c.ID] = c
	s.members[memberKey{owner.UserID, owner.ClassID}] = owner
	return nil
}

func (s *MemoryStore) GetClass(_ context.Context, classID uuid.UUID) (Class, error) {
	s.calls.Add(1)
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.classes[classID]
	if !ok {
		return Class{}, svcerr.NotFound()
	}
	return c, nil
}

func (s *MemoryStore) ListClassesForUser(_ context.Context, userID uuid.UUID) ([]Class, error) {
	s.calls.Add(1)
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []Class{}
	for k, m := range s.members {
		if k.userID != userID || !m.Role.IsParticipant() {
			continue
		}
		if c, ok := s.classes[k.classID]; ok {
			out = append(out, c)
		}
	}
	slices.SortFunc(out, func(a, b Class) int {
		if n := strings.Compare(a.Name, b.Name); n != 0 {
			return n
		}
		return strings.Compare(a.ID.String(), b.ID.String())
	})
	return out, nil
}

func (s *MemoryStore) FindMembership(_ context.Context, userID, classID uuid.UUID) (Membership, error) {
	s.calls.Add(1)
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.members[memberKey{userID, classID}]
	if !ok {
		return Membership{}, svcerr.NotFound()
	}
	return m, nil
}

func (s *MemoryStore) InsertMembership(_ context.Context, m Membership) error {
	s.calls.Add(1)
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.classes[m.ClassID]; !ok {
		return svcerr.Conflict(svcerr.ReasonDoesNotExist)
	}
	k := memberKey{m.UserID, m.ClassID}
	if _, ok := s.members[k]; ok {
		return svcerr.Conflict(svcerr.ReasonAlreadyExists)
	}
	s.members[k] = m
	return nil
}

func (s *MemoryStore) UpsertMembership(_ context.Context, m Membership) (Membership, error) {
	s.calls.Add(1)
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.classes[m.ClassID]; !ok {
		return Membership{}, svcerr.Conflict(svcerr.ReasonDoesNotExist)
	}
	s.members[memberKey{m.UserID, m.ClassID}] = m
	return m, nil
}

func (s *MemoryStore) DeleteMembership(_ context.Context, userID, classID uuid.UUID) (int64, error) {
	s.calls.Add(1)
	s.mu.Lock()
	defer s.mu.Unlock()
	k := memberKey{userID, classID}
	if _, ok := s.members[k]; !ok {
		return 0, nil
	}
	delete(s.members, k)
	return 1, nil
}

func (s *MemoryStore) ListMemberships(_ context.Context, classID uuid.UUID, roles ...rbac.MemberRole) ([]Membership, error) {
	s.calls.Add(1)
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []Membership{}
	for k, m := range s.members {
		if k.classID == classID && slices.Contains(roles, m.Role) {
			out = append(out, m)
		}
	}
	slices.SortFunc(out, func(a, b Membership) int {
		switch {
		case rbac.Less(a.Role, a.DisplayName, b.Role, b.DisplayName):
			return -1
		case rbac.Less(b.Role, b.DisplayName, a.Role, a.DisplayName):
			return 1
		default:
			return 0
		}
	})
	return out, nil
}
