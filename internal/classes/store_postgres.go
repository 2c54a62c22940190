package classes

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"classboard/internal/rbac"
	"classboard/internal/svcerr"
	"classboard/pkg/utils"

	"github.com/google/uuid"
)

// PostgresStore assumes:
//
//	CREATE TABLE classes (
//	  id uuid PRIMARY KEY,
//	  name text NOT NULL,
//	  description text NOT NULL DEFAULT '',
//	  created_at timestamptz NOT NULL
//	);
//	CREATE TABLE members (
//	  user_id uuid NOT NULL REFERENCES users(id) ON DELETE CASCADE,
//	  class_id uuid NOT NULL REFERENCES classes(id) ON DELETE CASCADE,
//	  role smallint NOT NULL,
//	  display_name text NOT NULL,
//	  PRIMARY KEY (user_id, class_id)
//	);
//
// role holds rbac.MemberRole storage codes.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore { return &PostgresStore{db: db} }

func (s *PostgresStore) CreateClass(ctx context.Context, c Class, owner Membership) error {
	err := utils.WithTx(ctx, s.db, nil, func(ctx context.Context, tx *sql.Tx) error {
		const insertClass = `
INSERT INTO classes (id, name, description, created_at)
VALUES ($1, $2, $3, $4)
`
		if _, err := tx.ExecContext(ctx, insertClass, c.ID, c.Name, c.Description, c.CreatedAt); err != nil {
			return err
		}
		const insertOwner = `
INSERT INTO members (user_id, class_id, role, display_name)
VALUES ($1, $2, $3, $4)
`
		_, err := tx.ExecContext(ctx, insertOwner, owner.UserID, owner.ClassID, owner.Role.StorageCode(), owner.DisplayName)
		return err
	})
	return svcerr.FromStorage(err)
}

func (s *PostgresStore) GetClass(ctx context.Context, classID uuid.UUID) (Class, error) {
	const q = `
SELECT id, name, description, created_at
FROM classes
WHERE id = $1
`
	var c Class
	if err := s.db.QueryRowContext(ctx, q, classID).Scan(&c.ID, &c.Name, &c.Description, &c.CreatedAt); err != nil {
		return Class{}, svcerr.FromStorage(err)
	}
	return c, nil
}

func (s *PostgresStore) ListClassesForUser(ctx context.Context, userID uuid.UUID) ([]Class, error) {
	const q = `
SELECT c.id, c.name, c.description, c.created_at
FROM classes c
JOIN members m ON m.class_id = c.id
WHERE m.user_id = $1 AND m.role IN ($2, $3, $4)
ORDER BY c.name, c.id
`
	args := []any{userID}
	for _, r := range participantRoles {
		args = append(args, r.StorageCode())
	}
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, svcerr.FromStorage(err)
	}
	defer rows.Close()

	out := []Class{}
	for rows.Next() {
		var c Class
		if err := rows.Scan(&c.ID, &c.Name, &c.Description, &c.CreatedAt); err != nil {
			return nil, svcerr.FromStorage(err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, svcerr.FromStorage(err)
	}
	return out, nil
}

func (s *PostgresStore) FindMembership(ctx context.Context, userID, classID uuid.UUID) (Membership, error) {
	const q = `
SELECT user_id, class_id, role, display_name
FROM members
WHERE user_id = $1 AND class_id = $2
`
	return scanMembership(s.db.QueryRowContext(ctx, q, userID, classID))
}

func (s *PostgresStore) InsertMembership(ctx context.Context, m Membership) error {
	const q = `
INSERT INTO members (user_id, class_id, role, display_name)
VALUES ($1, $2, $3, $4)
`
	_, err := s.db.ExecContext(ctx, q, m.UserID, m.ClassID, m.Role.StorageCode(), m.DisplayName)
	return svcerr.FromStorage(err)
}

func (s *PostgresStore) UpsertMembership(ctx context.Context, m Membership) (Membership, error) {
	const q = `
INSERT INTO members (user_id, class_id, role, display_name)
VALUES ($1, $2, $3, $4)
ON CONFLICT (user_id, class_id) DO UPDATE
SET role = EXCLUDED.role, display_name = EXCLUDED.display_name
RETURNING user_id, class_id, role, display_name
`
	return scanMembership(s.db.QueryRowContext(ctx, q, m.UserID, m.ClassID, m.Role.StorageCode(), m.DisplayName))
}

func (s *PostgresStore) DeleteMembership(ctx context.Context, userID, classID uuid.UUID) (int64, error) {
	const q = `DELETE FROM members WHERE user_id = $1 AND class_id = $2`
	res, err := s.db.ExecContext(ctx, q, userID, classID)
	if err != nil {
		return 0, svcerr.FromStorage(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, svcerr.FromStorage(err)
	}
	return n, nil
}

func (s *PostgresStore) ListMemberships(ctx context.Context, classID uuid.UUID, roles ...rbac.MemberRole) ([]Membership, error) {
	if len(roles) == 0 {
		return []Membership{}, nil
	}
	args := make([]any, 0, len(roles)+1)
	args = append(args, classID)
	placeholders := make([]string, len(roles))
	for i, r := range roles {
		args = append(args, r.StorageCode())
		placeholders[i] = fmt.Sprintf("$%d", i+2)
	}
	q := `
SELECT user_id, class_id, role, display_name
FROM members
WHERE class_id = $1 AND role IN (` + strings.Join(placeholders, ", ") + `)
ORDER BY role, display_name
`
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, svcerr.FromStorage(err)
	}
	defer rows.Close()

	out := []Membership{}
	for rows.Next() {
		m, err := scanMembership(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, svcerr.FromStorage(err)
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMembership(row rowScanner) (Membership, error) {
	var (
		m    Membership
		code int
	)
	if err := row.Scan(&m.UserID, &m.ClassID, &code, &m.DisplayName); err != nil {
		return Membership{}, svcerr.FromStorage(err)
	}
	role, err := rbac.FromStorage(code)
	if err != nil {
		return Membership{}, svcerr.Internal("corrupt membership row", err)
	}
	m.Role = role
	return m, nil
}
