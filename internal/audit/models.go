package audit

import "time"

// Event is an immutable, append-only audit log record of a membership change.
//
// Invariants:
// - Events are never updated or deleted.
// - class_id is required; every event is scoped to one class.
// - actor and ip capture are best-effort; audit failures never fail a transition.
//
// Storage (Postgres): table audit_events, INSERT-only.
type Event struct {
	ID      string    `json:"id" db:"id"`
	ClassID string    `json:"class_id" db:"class_id"`
	Type    EventType `json:"type" db:"type"`

	// ActorUserID is the authenticated caller. The nil UUID marks the bot.
	ActorUserID string `json:"actor_user_id,omitempty" db:"actor_user_id"`
	ActorRole   string `json:"actor_role,omitempty" db:"actor_role"`

	// IPAddress is the resolved client IP when the request carried one.
	IPAddress string `json:"ip_address,omitempty" db:"ip_address"`

	TargetUserID string `json:"target_user_id,omitempty" db:"target_user_id"`
	FromRole     string `json:"from_role,omitempty" db:"from_role"`
	ToRole       string `json:"to_role,omitempty" db:"to_role"`

	Message string `json:"message,omitempty" db:"message"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

type EventType string

const (
	EventClassCreated  EventType = "class_created"
	EventJoinRequested EventType = "join_requested"
	EventJoinAccepted  EventType = "join_accepted"
	EventJoinRejected  EventType = "join_rejected"
	EventPromoted      EventType = "member_promoted"
	EventDemoted       EventType = "member_demoted"
	EventBanned        EventType = "member_banned"
	EventAdded         EventType = "member_added"
	EventRemoved       EventType = "member_removed"
	EventLeft          EventType = "member_left"
)

// Transition describes one membership change before it becomes an Event.
type Transition struct {
	ClassID      string
	Type         EventType
	ActorUserID  string
	ActorRole    string
	TargetUserID string
	FromRole     string
	ToRole       string
}
