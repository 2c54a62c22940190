package classes

import (
	"context"
	"strings"
	"time"

	"classboard/internal/audit"
	"classboard/internal/auth"
	"classboard/internal/events"
	"classboard/internal/rbac"
	"classboard/internal/svcerr"
	"classboard/internal/workerpool"
	"classboard/pkg/logger"

	"github.com/google/uuid"
)

type Auditor interface {
	LogTransition(ctx context.Context, t audit.Transition) error
}

type Publisher interface {
	Publish(ctx context.Context, e events.MembershipChanged) error
}

// Service implements classes and the membership state machine:
//
//	join:            none    -> pending
//	accept:          pending -> member
//	reject:          pending -> none
//	promote/demote:  member <-> admin
//	ban:             any but owner -> banned
//	add:             none    -> member
//	remove:          any but owner -> none
//	leave:           any but owner/banned -> none
//
// Every check and mutation of one operation runs in a single pool task
// against the stored state at that moment. Concurrent transitions race with
// last-write-wins.
type Service struct {
	store  Store
	pool   *workerpool.Pool
	audit  Auditor
	events Publisher
	clock  func() time.Time
}

type Option func(*Service)

func WithAuditor(a Auditor) Option { return func(s *Service) { s.audit = a } }

func WithPublisher(p Publisher) Option { return func(s *Service) { s.events = p } }

func NewService(store Store, pool *workerpool.Pool, opts ...Option) *Service {
	s := &Service{store: store, pool: pool, clock: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) CreateClass(ctx context.Context, claims auth.Claims, in NewClass) (Class, error) {
	who, err := newCaller(claims)
	if err != nil {
		return Class{}, err
	}
	if who.internal {
		return Class{}, svcerr.Forbidden()
	}
	in.Name = strings.TrimSpace(in.Name)
	in.DisplayName = strings.TrimSpace(in.DisplayName)
	if in.Name == "" || in.DisplayName == "" {
		return Class{}, svcerr.BadRequest(svcerr.ReasonInvalidBody)
	}

	c := Class{
		ID:          uuid.New(),
		Name:        in.Name,
		Description: in.Description,
		CreatedAt:   s.clock().UTC(),
	}
	owner := Membership{UserID: who.id, ClassID: c.ID, Role: rbac.RoleOwner, DisplayName: in.DisplayName}

	return workerpool.Do(ctx, s.pool, func(ctx context.Context) (Class, error) {
		if err := s.store.CreateClass(ctx, c, owner); err != nil {
			return Class{}, err
		}
		s.record(ctx, change{
			classID: c.ID, typ: audit.EventClassCreated,
			actor: who, actorRole: rbac.RoleOwner,
			target: who.id, to: rbac.RoleOwner, hasTo: true,
		})
		return c, nil
	})
}

// ListMine returns the classes the caller participates in. Pending requests
// and bans are not listed.
func (s *Service) ListMine(ctx context.Context, claims auth.Claims) ([]Class, error) {
	who, err := newCaller(claims)
	if err != nil {
		return nil, err
	}
	if who.internal {
		return []Class{}, nil
	}
	return workerpool.Do(ctx, s.pool, func(ctx context.Context) ([]Class, error) {
		return s.store.ListClassesForUser(ctx, who.id)
	})
}

// GetClass returns the class and its participants. Only participants and
// internal callers may read it.
func (s *Service) GetClass(ctx context.Context, claims auth.Claims, classID uuid.UUID) (ClassDetails, error) {
	who, err := newCaller(claims)
	if err != nil {
		return ClassDetails{}, err
	}
	return workerpool.Do(ctx, s.pool, func(ctx context.Context) (ClassDetails, error) {
		c, err := s.store.GetClass(ctx, classID)
		if err != nil {
			return ClassDetails{}, err
		}
		if _, err := requireRole(ctx, s.store, who, classID, rbac.MemberRole.IsParticipant); err != nil {
			return ClassDetails{}, err
		}
		members, err := s.store.ListMemberships(ctx, classID, participantRoles...)
		if err != nil {
			return ClassDetails{}, err
		}
		return ClassDetails{Class: c, Members: members}, nil
	})
}

func (s *Service) ListMembers(ctx context.Context, claims auth.Claims, classID uuid.UUID) ([]Membership, error) {
	return s.list(ctx, claims, classID, rbac.MemberRole.IsParticipant, participantRoles...)
}

func (s *Service) ListPending(ctx context.Context, claims auth.Claims, classID uuid.UUID) ([]Membership, error) {
	return s.list(ctx, claims, classID, rbac.MemberRole.HasElevatedRights, rbac.RolePending)
}

func (s *Service) ListBanned(ctx context.Context, claims auth.Claims, classID uuid.UUID) ([]Membership, error) {
	return s.list(ctx, claims, classID, rbac.MemberRole.HasElevatedRights, rbac.RoleBanned)
}

func (s *Service) list(ctx context.Context, claims auth.Claims, classID uuid.UUID, allow func(rbac.MemberRole) bool, roles ...rbac.MemberRole) ([]Membership, error) {
	who, err := newCaller(claims)
	if err != nil {
		return nil, err
	}
	return workerpool.Do(ctx, s.pool, func(ctx context.Context) ([]Membership, error) {
		if _, err := requireRole(ctx, s.store, who, classID, allow); err != nil {
			return nil, err
		}
		return s.store.ListMemberships(ctx, classID, roles...)
	})
}

// Join creates a pending membership. Any existing record, banned included,
// fails Conflict("already-exists") and is left untouched.
func (s *Service) Join(ctx context.Context, claims auth.Claims, classID uuid.UUID, displayName string) (Membership, error) {
	who, err := newCaller(claims)
	if err != nil {
		return Membership{}, err
	}
	if who.internal {
		return Membership{}, svcerr.Forbidden()
	}
	displayName = strings.TrimSpace(displayName)
	if displayName == "" {
		return Membership{}, svcerr.BadRequest(svcerr.ReasonInvalidBody)
	}

	m := Membership{UserID: who.id, ClassID: classID, Role: rbac.RolePending, DisplayName: displayName}
	return workerpool.Do(ctx, s.pool, func(ctx context.Context) (Membership, error) {
		if err := s.store.InsertMembership(ctx, m); err != nil {
			return Membership{}, err
		}
		s.record(ctx, change{
			classID: classID, typ: audit.EventJoinRequested,
			actor: who, actorRole: rbac.RolePending,
			target: who.id, to: rbac.RolePending, hasTo: true,
		})
		return m, nil
	})
}

// AddMember inserts an accepted member directly, skipping the request step.
func (s *Service) AddMember(ctx context.Context, claims auth.Claims, classID, userID uuid.UUID, displayName string) (Membership, error) {
	who, err := newCaller(claims)
	if err != nil {
		return Membership{}, err
	}
	displayName = strings.TrimSpace(displayName)
	if displayName == "" {
		return Membership{}, svcerr.BadRequest(svcerr.ReasonInvalidBody)
	}

	m := Membership{UserID: userID, ClassID: classID, Role: rbac.RoleMember, DisplayName: displayName}
	return workerpool.Do(ctx, s.pool, func(ctx context.Context) (Membership, error) {
		actorRole, err := requireRole(ctx, s.store, who, classID, rbac.MemberRole.HasElevatedRights)
		if err != nil {
			return Membership{}, err
		}
		if err := s.store.InsertMembership(ctx, m); err != nil {
			return Membership{}, err
		}
		s.record(ctx, change{
			classID: classID, typ: audit.EventAdded,
			actor: who, actorRole: actorRole,
			target: userID, to: rbac.RoleMember, hasTo: true,
		})
		return m, nil
	})
}

// Accept turns a pending request into a member. A missing or already decided
// request is NotFound.
func (s *Service) Accept(ctx context.Context, claims auth.Claims, classID, userID uuid.UUID) (Membership, error) {
	return s.transition(ctx, claims, classID, userID, audit.EventJoinAccepted, func(from rbac.MemberRole) (rbac.MemberRole, error) {
		if from != rbac.RolePending {
			return 0, svcerr.NotFound()
		}
		return rbac.RoleMember, nil
	})
}

func (s *Service) Promote(ctx context.Context, claims auth.Claims, classID, userID uuid.UUID) (Membership, error) {
	return s.transition(ctx, claims, classID, userID, audit.EventPromoted, func(from rbac.MemberRole) (rbac.MemberRole, error) {
		switch from {
		case rbac.RoleOwner:
			return 0, svcerr.Forbidden()
		case rbac.RoleMember:
			return rbac.RoleAdmin, nil
		default:
			return 0, svcerr.Conflict(svcerr.ReasonInvalidTransition)
		}
	})
}

func (s *Service) Demote(ctx context.Context, claims auth.Claims, classID, userID uuid.UUID) (Membership, error) {
	return s.transition(ctx, claims, classID, userID, audit.EventDemoted, func(from rbac.MemberRole) (rbac.MemberRole, error) {
		switch from {
		case rbac.RoleOwner:
			return 0, svcerr.Forbidden()
		case rbac.RoleAdmin:
			return rbac.RoleMember, nil
		default:
			return 0, svcerr.Conflict(svcerr.ReasonInvalidTransition)
		}
	})
}

// Ban revokes any non-owner membership. Banning a banned member is a no-op.
// There is no unban.
func (s *Service) Ban(ctx context.Context, claims auth.Claims, classID, userID uuid.UUID) (Membership, error) {
	return s.transition(ctx, claims, classID, userID, audit.EventBanned, func(from rbac.MemberRole) (rbac.MemberRole, error) {
		if from == rbac.RoleOwner {
			return 0, svcerr.Forbidden()
		}
		return rbac.RoleBanned, nil
	})
}

// Reject deletes a pending request.
func (s *Service) Reject(ctx context.Context, claims auth.Claims, classID, userID uuid.UUID) error {
	return s.removal(ctx, claims, classID, userID, audit.EventJoinRejected, func(from rbac.MemberRole) error {
		if from != rbac.RolePending {
			return svcerr.NotFound()
		}
		return nil
	})
}

// Remove deletes a non-owner membership. Removing a banned member lets them
// request to join again.
func (s *Service) Remove(ctx context.Context, claims auth.Claims, classID, userID uuid.UUID) error {
	return s.removal(ctx, claims, classID, userID, audit.EventRemoved, func(from rbac.MemberRole) error {
		if from == rbac.RoleOwner {
			return svcerr.Forbidden()
		}
		return nil
	})
}

// Leave deletes the caller's own membership. The owner cannot leave and a
// banned member cannot clear their ban by leaving.
func (s *Service) Leave(ctx context.Context, claims auth.Claims, classID uuid.UUID) error {
	who, err := newCaller(claims)
	if err != nil {
		return err
	}
	if who.internal {
		return svcerr.NotFound()
	}
	_, err = workerpool.Do(ctx, s.pool, func(ctx context.Context) (struct{}, error) {
		m, err := s.store.FindMembership(ctx, who.id, classID)
		if err != nil {
			return struct{}{}, err
		}
		switch m.Role {
		case rbac.RoleOwner:
			return struct{}{}, svcerr.Conflict(svcerr.ReasonOwnerCannotLeave)
		case rbac.RoleBanned:
			return struct{}{}, svcerr.Forbidden()
		}
		if err := s.delete(ctx, who.id, classID); err != nil {
			return struct{}{}, err
		}
		s.record(ctx, change{
			classID: classID, typ: audit.EventLeft,
			actor: who, actorRole: m.Role,
			target: who.id, from: m.Role, hasFrom: true,
		})
		return struct{}{}, nil
	})
	return err
}

// transition changes the target's role after checking the caller holds
// elevated rights. decide sees the target's current role.
func (s *Service) transition(ctx context.Context, claims auth.Claims, classID, userID uuid.UUID, typ audit.EventType, decide func(from rbac.MemberRole) (rbac.MemberRole, error)) (Membership, error) {
	who, err := newCaller(claims)
	if err != nil {
		return Membership{}, err
	}
	return workerpool.Do(ctx, s.pool, func(ctx context.Context) (Membership, error) {
		actorRole, err := requireRole(ctx, s.store, who, classID, rbac.MemberRole.HasElevatedRights)
		if err != nil {
			return Membership{}, err
		}
		target, err := s.store.FindMembership(ctx, userID, classID)
		if err != nil {
			return Membership{}, err
		}
		next, err := decide(target.Role)
		if err != nil {
			return Membership{}, err
		}
		if next == target.Role {
			return target, nil
		}

		from := target.Role
		target.Role = next
		updated, err := s.store.UpsertMembership(ctx, target)
		if err != nil {
			return Membership{}, err
		}
		s.record(ctx, change{
			classID: classID, typ: typ,
			actor: who, actorRole: actorRole,
			target: userID, from: from, hasFrom: true, to: next, hasTo: true,
		})
		return updated, nil
	})
}

func (s *Service) removal(ctx context.Context, claims auth.Claims, classID, userID uuid.UUID, typ audit.EventType, check func(from rbac.MemberRole) error) error {
	who, err := newCaller(claims)
	if err != nil {
		return err
	}
	_, err = workerpool.Do(ctx, s.pool, func(ctx context.Context) (struct{}, error) {
		actorRole, err := requireRole(ctx, s.store, who, classID, rbac.MemberRole.HasElevatedRights)
		if err != nil {
			return struct{}{}, err
		}
		target, err := s.store.FindMembership(ctx, userID, classID)
		if err != nil {
			return struct{}{}, err
		}
		if err := check(target.Role); err != nil {
			return struct{}{}, err
		}
		if err := s.delete(ctx, userID, classID); err != nil {
			return struct{}{}, err
		}
		s.record(ctx, change{
			classID: classID, typ: typ,
			actor: who, actorRole: actorRole,
			target: userID, from: target.Role, hasFrom: true,
		})
		return struct{}{}, nil
	})
	return err
}

func (s *Service) delete(ctx context.Context, userID, classID uuid.UUID) error {
	n, err := s.store.DeleteMembership(ctx, userID, classID)
	if err != nil {
		return err
	}
	if n == 0 {
		return svcerr.NotFound()
	}
	return nil
}

type change struct {
	classID   uuid.UUID
	typ       audit.EventType
	actor     caller
	actorRole rbac.MemberRole
	target    uuid.UUID

	from, to       rbac.MemberRole
	hasFrom, hasTo bool
}

// record appends the audit event and publishes the change. Both are
// best-effort: failures are logged and never fail the operation.
func (s *Service) record(ctx context.Context, ch change) {
	var from, to string
	if ch.hasFrom {
		from = ch.from.String()
	}
	if ch.hasTo {
		to = ch.to.String()
	}
	log := logger.From(ctx)

	if s.audit != nil {
		err := s.audit.LogTransition(ctx, audit.Transition{
			ClassID:      ch.classID.String(),
			Type:         ch.typ,
			ActorUserID:  ch.actor.id.String(),
			ActorRole:    ch.actorRole.String(),
			TargetUserID: ch.target.String(),
			FromRole:     from,
			ToRole:       to,
		})
		if err != nil {
			log.Warn("audit append failed", "class_id", ch.classID, "type", ch.typ, "err", err)
		}
	}

	if s.events != nil {
		err := s.events.Publish(ctx, events.MembershipChanged{
			ClassID:    ch.classID.String(),
			UserID:     ch.target.String(),
			ActorID:    ch.actor.id.String(),
			Event:      string(ch.typ),
			From:       from,
			To:         to,
			OccurredAt: s.clock().UTC(),
		})
		if err != nil {
			log.Warn("membership event publish failed", "class_id", ch.classID, "type", ch.typ, "err", err)
		}
	}
}
