package classes

import (
	"testing"

	"classboard/internal/auth"
	"classboard/internal/config"
	"classboard/internal/svcerr"
	"classboard/internal/workerpool"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

func claimsFor(id uuid.UUID) auth.Claims {
	return auth.Claims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: id.String()},
		TokenType:        auth.TokenTypeAccess,
	}
}

func newTestPool() *workerpool.Pool {
	return workerpool.New(config.PoolConfig{Workers: 4}, nil)
}

func expectKind(t *testing.T, err error, kind svcerr.Kind, reason string) {
	t.Helper()
	e, ok := svcerr.As(err)
	if !ok {
		t.Fatalf("expected svcerr %s, got %v", kind, err)
	}
	if e.Kind != kind || (reason != "" && e.Reason != reason) {
		t.Fatalf("expected %s/%s, got %s/%s", kind, reason, e.Kind, e.Reason)
	}
}
