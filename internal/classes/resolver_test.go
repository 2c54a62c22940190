package classes

import (
	"context"
	"testing"

	"classboard/internal/rbac"
	"classboard/internal/svcerr"

	"github.com/google/uuid"
)

func TestResolve_MalformedClassIDNeverReachesStorage(t *testing.T) {
	store := NewMemoryStore()
	r := NewResolver(store, newTestPool())

	for _, raw := range []string{"", "not-a-uuid", "1234", "../etc"} {
		_, err := r.Resolve(context.Background(), claimsFor(uuid.New()), raw)
		expectKind(t, err, svcerr.KindBadRequest, svcerr.ReasonInvalidUUID)
	}
	if store.Calls() != 0 {
		t.Fatalf("expected zero storage calls, got %d", store.Calls())
	}
}

func TestResolve_MalformedSubjectIsUnauthorized(t *testing.T) {
	store := NewMemoryStore()
	r := NewResolver(store, newTestPool())

	claims := claimsFor(uuid.New())
	claims.Subject = "bob"
	_, err := r.Resolve(context.Background(), claims, uuid.NewString())
	expectKind(t, err, svcerr.KindUnauthorized, svcerr.ReasonInvalidToken)
	if store.Calls() != 0 {
		t.Fatalf("expected zero storage calls, got %d", store.Calls())
	}
}

func TestResolve_ServiceInternalSkipsStorage(t *testing.T) {
	store := NewMemoryStore()
	r := NewResolver(store, newTestPool())

	role, err := r.Resolve(context.Background(), claimsFor(uuid.Nil), uuid.NewString())
	if err != nil || role != rbac.RoleServiceInternal {
		t.Fatalf("expected service internal, got %v %v", role, err)
	}
	if store.Calls() != 0 {
		t.Fatalf("expected zero storage calls, got %d", store.Calls())
	}
}

func TestResolve_MembershipLookup(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	pool := newTestPool()
	svc := NewService(store, pool)
	r := NewResolver(store, pool)

	owner := uuid.New()
	c, err := svc.CreateClass(ctx, claimsFor(owner), NewClass{Name: "Maths", DisplayName: "Alice"})
	if err != nil {
		t.Fatalf("create class: %v", err)
	}

	role, err := r.Resolve(ctx, claimsFor(owner), c.ID.String())
	if err != nil || role != rbac.RoleOwner {
		t.Fatalf("expected owner, got %v %v", role, err)
	}

	_, err = r.Resolve(ctx, claimsFor(uuid.New()), c.ID.String())
	expectKind(t, err, svcerr.KindNotFound, "")
}

func TestResolve_CancelledRequestIsTransient(t *testing.T) {
	r := NewResolver(NewMemoryStore(), newTestPool())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := r.Resolve(ctx, claimsFor(uuid.New()), uuid.NewString())
	expectKind(t, err, svcerr.KindTransient, "")
}
