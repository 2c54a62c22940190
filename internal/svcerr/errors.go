package svcerr

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Kind is the closed set of failure categories surfaced to the protocol layer.
type Kind int

const (
	KindInternal Kind = iota
	KindNotFound
	KindUnauthorized
	KindConflict
	KindBadRequest
	KindForbidden
	KindTransient
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindUnauthorized:
		return "unauthorized"
	case KindConflict:
		return "conflict"
	case KindBadRequest:
		return "bad_request"
	case KindForbidden:
		return "forbidden"
	case KindTransient:
		return "transient"
	default:
		return "internal"
	}
}

// Reason tags. These are sent to clients verbatim.
const (
	ReasonNoBearerToken     = "no-bearer-token"
	ReasonWrongPassword     = "wrong-password"
	ReasonTokenExpired      = "token-expired"
	ReasonInvalidToken      = "invalid-token"
	ReasonRefreshNotAllowed = "refresh-token-not-allowed-here"
	ReasonRefreshRequired   = "refresh-token-required"
	ReasonAlreadyExists     = "already-exists"
	ReasonDoesNotExist      = "does-not-exist"
	ReasonInvalidUUID       = "invalid-uuid"
	ReasonInvalidTransition = "invalid-transition"
	ReasonOwnerCannotLeave  = "owner-cannot-leave"
	ReasonInvalidBody       = "invalid-body"
	ReasonNotFound          = "not-found"
	ReasonNoAdmin           = "no-admin"
	ReasonInternal          = "internal-error"
)

// Error is the single error type crossing service boundaries.
// Message and Err are for server-side logs only.
type Error struct {
	Kind    Kind
	Reason  string
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Kind.String()
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

func NotFound() *Error { return &Error{Kind: KindNotFound, Reason: ReasonNotFound} }

func Unauthorized(reason string) *Error { return &Error{Kind: KindUnauthorized, Reason: reason} }

func Conflict(reason string) *Error { return &Error{Kind: KindConflict, Reason: reason} }

func BadRequest(reason string) *Error { return &Error{Kind: KindBadRequest, Reason: reason} }

func Forbidden() *Error { return &Error{Kind: KindForbidden, Reason: ReasonNoAdmin} }

func Transient(message string, err error) *Error {
	return &Error{Kind: KindTransient, Reason: ReasonInternal, Message: message, Err: err}
}

func Internal(message string, err error) *Error {
	return &Error{Kind: KindInternal, Reason: ReasonInternal, Message: message, Err: err}
}

func Internalf(format string, args ...any) *Error {
	return Internal(fmt.Sprintf(format, args...), nil)
}

// As extracts the classified error, if any.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// KindOf returns the kind of err. Unclassified errors are Internal.
func KindOf(err error) Kind {
	if e, ok := As(err); ok {
		return e.Kind
	}
	return KindInternal
}

// Is reports whether err is classified with kind k.
func Is(err error, k Kind) bool {
	return err != nil && KindOf(err) == k
}

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

// FromStorage classifies an error observed at the storage boundary.
// Already classified errors pass through untouched.
func FromStorage(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := As(err); ok {
		return err
	}
	if errors.Is(err, sql.ErrNoRows) || errors.Is(err, pgx.ErrNoRows) {
		return NotFound()
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			return Conflict(ReasonAlreadyExists)
		case pgForeignKeyViolation:
			return Conflict(ReasonDoesNotExist)
		}
	}
	return Transient("storage failure", err)
}
