package audit

import (
	"context"
	"database/sql"

	"classboard/internal/svcerr"
)

// PostgresRepo appends to the audit_events table:
//
//	CREATE TABLE audit_events (
//	  id uuid PRIMARY KEY,
//	  class_id uuid NOT NULL,
//	  type text NOT NULL,
//	  actor_user_id text, actor_role text, ip_address text,
//	  target_user_id text, from_role text, to_role text,
//	  message text,
//	  created_at timestamptz NOT NULL
//	);
type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo { return &PostgresRepo{db: db} }

func (r *PostgresRepo) Append(ctx context.Context, e Event) error {
	const q = `
INSERT INTO audit_events
  (id, class_id, type, actor_user_id, actor_role, ip_address, target_user_id, from_role, to_role, message, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
`
	_, err := r.db.ExecContext(ctx, q,
		e.ID,
		e.ClassID,
		string(e.Type),
		e.ActorUserID,
		e.ActorRole,
		e.IPAddress,
		e.TargetUserID,
		e.FromRole,
		e.ToRole,
		e.Message,
		e.CreatedAt,
	)
	return svcerr.FromStorage(err)
}
