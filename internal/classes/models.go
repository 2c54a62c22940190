package classes

import (
	"time"

	"classboard/internal/rbac"
	"classboard/internal/svcerr"

	"github.com/google/uuid"
)

type Class struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

// Membership is the per-(user, class) record. A user has at most one per class.
type Membership struct {
	UserID      uuid.UUID       `json:"user_id"`
	ClassID     uuid.UUID       `json:"class_id"`
	Role        rbac.MemberRole `json:"role"`
	DisplayName string          `json:"display_name"`
}

// ClassDetails is a class with its participants (owner, admins, members).
type ClassDetails struct {
	Class
	Members []Membership `json:"members"`
}

type NewClass struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	DisplayName string `json:"display_name"`
}

// ParseID parses an identifier taken from a path or body.
func ParseID(raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, svcerr.BadRequest(svcerr.ReasonInvalidUUID)
	}
	return id, nil
}
