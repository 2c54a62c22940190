package audit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Repository is the persistence contract for audit events.
// It is append-only; there is no Update or Delete.
type Repository interface {
	Append(ctx context.Context, e Event) error
}

// Service records membership changes for internal review.
// Records are not exposed to class members.
type Service struct {
	repo  Repository
	clock func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, clock: time.Now}
}

var ErrInvalidEvent = errors.New("audit: invalid event")

func (s *Service) Append(ctx context.Context, e Event) error {
	if s.repo == nil {
		return errors.New("audit: repository not configured")
	}
	if e.ClassID == "" || e.Type == "" {
		return ErrInvalidEvent
	}

	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = s.clock().UTC()
	}
	return s.repo.Append(ctx, e)
}

// LogTransition records a membership change. The client IP is taken from ctx.
func (s *Service) LogTransition(ctx context.Context, t Transition) error {
	return s.Append(ctx, Event{
		ClassID:      t.ClassID,
		Type:         t.Type,
		ActorUserID:  t.ActorUserID,
		ActorRole:    t.ActorRole,
		IPAddress:    ClientIPFromContext(ctx),
		TargetUserID: t.TargetUserID,
		FromRole:     t.FromRole,
		ToRole:       t.ToRole,
		Message:      describe(t),
	})
}

func describe(t Transition) string {
	switch {
	case t.FromRole == "" && t.ToRole != "":
		return fmt.Sprintf("%s: %s", t.Type, t.ToRole)
	case t.FromRole != "" && t.ToRole == "":
		return fmt.Sprintf("%s: %s removed", t.Type, t.FromRole)
	default:
		return fmt.Sprintf("%s: %s -> %s", t.Type, t.FromRole, t.ToRole)
	}
}
