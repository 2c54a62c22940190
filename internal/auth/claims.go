package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

type TokenType string

const (
	TokenTypeAccess  TokenType = "access"
	TokenTypeRefresh TokenType = "refresh"
)

// Claims is the identity decoded from a verified token.
// Subject carries the user id. Claims are built per request and never stored.
type Claims struct {
	jwt.RegisteredClaims

	TokenType TokenType `json:"token_type"`
}

func (c Claims) IsRefresh() bool { return c.TokenType == TokenTypeRefresh }

func (c Claims) ExpiresAtTime() time.Time {
	if c.ExpiresAt == nil {
		return time.Time{}
	}
	return c.ExpiresAt.Time
}

// IsServiceInternal reports whether the token belongs to a trusted internal
// caller. Internal callers use the nil UUID as subject; registration never
// mints it for an end user.
func (c Claims) IsServiceInternal() bool {
	return c.Subject == uuid.Nil.String()
}
