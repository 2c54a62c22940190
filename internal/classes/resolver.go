package classes

import (
	"context"

	"classboard/internal/auth"
	"classboard/internal/rbac"
	"classboard/internal/svcerr"
	"classboard/internal/workerpool"

	"github.com/google/uuid"
)

// caller is the authenticated identity parsed out of Claims.
type caller struct {
	id       uuid.UUID
	internal bool
}

func newCaller(claims auth.Claims) (caller, error) {
	if claims.IsServiceInternal() {
		return caller{id: uuid.Nil, internal: true}, nil
	}
	id, err := uuid.Parse(claims.Subject)
	if err != nil {
		return caller{}, svcerr.Unauthorized(svcerr.ReasonInvalidToken)
	}
	return caller{id: id}, nil
}

// Resolver answers "what role does this caller hold in this class".
type Resolver struct {
	store Store
	pool  *workerpool.Pool
}

func NewResolver(store Store, pool *workerpool.Pool) *Resolver {
	return &Resolver{store: store, pool: pool}
}

// lookup is the folded outcome of both inputs. A lookup with err set is never
// dispatched to the pool.
type lookup struct {
	who     caller
	classID uuid.UUID
	err     error
}

func prepare(claims auth.Claims, rawClassID string) lookup {
	classID, err := ParseID(rawClassID)
	if err != nil {
		return lookup{err: err}
	}
	who, err := newCaller(claims)
	if err != nil {
		return lookup{err: err}
	}
	return lookup{who: who, classID: classID}
}

// Resolve returns the caller's role in the class, or NotFound when the caller
// has no membership. Internal callers resolve without a storage read.
func (r *Resolver) Resolve(ctx context.Context, claims auth.Claims, rawClassID string) (rbac.MemberRole, error) {
	l := prepare(claims, rawClassID)
	if l.err != nil {
		return 0, l.err
	}
	if l.who.internal {
		return rbac.RoleServiceInternal, nil
	}
	m, err := workerpool.Do(ctx, r.pool, func(ctx context.Context) (Membership, error) {
		return r.store.FindMembership(ctx, l.who.id, l.classID)
	})
	if err != nil {
		return 0, err
	}
	return m.Role, nil
}

// roleOf runs inside a pool task. Internal callers never hit storage.
func roleOf(ctx context.Context, store Store, who caller, classID uuid.UUID) (rbac.MemberRole, error) {
	if who.internal {
		return rbac.RoleServiceInternal, nil
	}
	m, err := store.FindMembership(ctx, who.id, classID)
	if err != nil {
		return 0, err
	}
	return m.Role, nil
}

// requireRole is roleOf with a missing membership turned into Forbidden and
// the role checked against allow.
func requireRole(ctx context.Context, store Store, who caller, classID uuid.UUID, allow func(rbac.MemberRole) bool) (rbac.MemberRole, error) {
	role, err := roleOf(ctx, store, who, classID)
	if svcerr.Is(err, svcerr.KindNotFound) {
		return 0, svcerr.Forbidden()
	}
	if err != nil {
		return 0, err
	}
	if !allow(role) {
		return 0, svcerr.Forbidden()
	}
	return role, nil
}
