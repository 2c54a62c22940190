package classes

import (
	"context"

	"classboard/internal/rbac"

	"github.com/google/uuid"
)

// Store is the storage collaborator. Every method blocks on I/O and must be
// called from a worker pool task. Errors are already classified (svcerr).
type Store interface {
	// CreateClass stores the class and its owner membership atomically.
	CreateClass(ctx context.Context, c Class, owner Membership) error
	GetClass(ctx context.Context, classID uuid.UUID) (Class, error)
	// ListClassesForUser returns the classes the user participates in
	// (owner, admin or member), ordered by name.
	ListClassesForUser(ctx context.Context, userID uuid.UUID) ([]Class, error)

	FindMembership(ctx context.Context, userID, classID uuid.UUID) (Membership, error)
	// InsertMembership fails Conflict("already-exists") if any record exists
	// for the pair, whatever its role.
	InsertMembership(ctx context.Context, m Membership) error
	UpsertMembership(ctx context.Context, m Membership) (Membership, error)
	DeleteMembership(ctx context.Context, userID, classID uuid.UUID) (int64, error)
	// ListMemberships returns memberships with one of roles, ordered by rank
	// then display name.
	ListMemberships(ctx context.Context, classID uuid.UUID, roles ...rbac.MemberRole) ([]Membership, error)
}

var participantRoles = []rbac.MemberRole{rbac.RoleOwner, rbac.RoleAdmin, rbac.RoleMember}
