package users

import (
	"context"
	"database/sql"

	"classboard/internal/svcerr"

	"github.com/google/uuid"
)

// PostgresStore assumes:
//
//	CREATE TABLE users (
//	  id uuid PRIMARY KEY,
//	  email text NOT NULL,
//	  description text NOT NULL DEFAULT '',
//	  password_hash text NOT NULL,
//	  created_at timestamptz NOT NULL
//	);
//	CREATE UNIQUE INDEX users_email_key ON users (lower(email));
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore { return &PostgresStore{db: db} }

func (s *PostgresStore) CreateUser(ctx context.Context, u User) error {
	const q = `
INSERT INTO users (id, email, description, password_hash, created_at)
VALUES ($1, $2, $3, $4, $5)
`
	_, err := s.db.ExecContext(ctx, q, u.ID, u.Email, u.Description, u.PasswordHash, u.CreatedAt)
	return svcerr.FromStorage(err)
}

func (s *PostgresStore) FindByEmail(ctx context.Context, email string) (User, error) {
	const q = `
SELECT id, email, description, password_hash, created_at
FROM users
WHERE lower(email) = lower($1)
`
	return scanUser(s.db.QueryRowContext(ctx, q, email))
}

func (s *PostgresStore) FindByID(ctx context.Context, id uuid.UUID) (User, error) {
	const q = `
SELECT id, email, description, password_hash, created_at
FROM users
WHERE id = $1
`
	return scanUser(s.db.QueryRowContext(ctx, q, id))
}

func (s *PostgresStore) UpdateProfile(ctx context.Context, id uuid.UUID, email, description string) (User, error) {
	const q = `
UPDATE users SET email = $2, description = $3
WHERE id = $1
RETURNING id, email, description, password_hash, created_at
`
	return scanUser(s.db.QueryRowContext(ctx, q, id, email, description))
}

func (s *PostgresStore) UpdatePasswordHash(ctx context.Context, id uuid.UUID, hash string) (int64, error) {
	const q = `UPDATE users SET password_hash = $2 WHERE id = $1`
	return s.exec(ctx, q, id, hash)
}

// DeleteUser removes the account; memberships go with it (ON DELETE CASCADE).
func (s *PostgresStore) DeleteUser(ctx context.Context, id uuid.UUID) (int64, error) {
	const q = `DELETE FROM users WHERE id = $1`
	return s.exec(ctx, q, id)
}

func (s *PostgresStore) exec(ctx context.Context, q string, args ...any) (int64, error) {
	res, err := s.db.ExecContext(ctx, q, args...)
	if err != nil {
		return 0, svcerr.FromStorage(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, svcerr.FromStorage(err)
	}
	return n, nil
}

func scanUser(row *sql.Row) (User, error) {
	var u User
	if err := row.Scan(&u.ID, &u.Email, &u.Description, &u.PasswordHash, &u.CreatedAt); err != nil {
		return User{}, svcerr.FromStorage(err)
	}
	return u, nil
}
