package users

import (
	"context"

	"github.com/google/uuid"
)

// Store persists accounts. Methods block on I/O and run inside pool tasks.
// Errors are already classified (svcerr).
type Store interface {
	CreateUser(ctx context.Context, u User) error
	FindByEmail(ctx context.Context, email string) (User, error)
	FindByID(ctx context.Context, id uuid.UUID) (User, error)
	// UpdateProfile fails NotFound for an unknown id and
	// Conflict("already-exists") when the email is taken.
	UpdateProfile(ctx context.Context, id uuid.UUID, email, description string) (User, error)
	UpdatePasswordHash(ctx context.Context, id uuid.UUID, hash string) (int64, error)
	DeleteUser(ctx context.Context, id uuid.UUID) (int64, error)
}
