package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"classboard/internal/svcerr"

	"github.com/gin-gonic/gin"
)

func newTestAuthenticator(t *testing.T, now time.Time) (*Authenticator, *Manager) {
	t.Helper()
	m := newTestManager(t)
	a := NewAuthenticator(m)
	a.clock = func() time.Time { return now }
	return a, m
}

func TestAuthenticate_MissingBearer(t *testing.T) {
	now := time.Unix(1700000000, 0).UTC()
	a, _ := newTestAuthenticator(t, now)

	for _, h := range []string{"", "Basic dXNlcjpwYXNz", "Bearer", "Bearer    "} {
		_, err := a.Authenticate(h)
		expectReason(t, err, svcerr.ReasonNoBearerToken)
	}
}

func TestAuthenticate_AcceptsAccessToken(t *testing.T) {
	now := time.Unix(1700000000, 0).UTC()
	a, m := newTestAuthenticator(t, now)

	tok, _, err := m.IssueAccessToken(now, "user-1")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	claims, err := a.Authenticate("bearer " + tok)
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if claims.Subject != "user-1" {
		t.Fatalf("unexpected subject %q", claims.Subject)
	}
}

func TestAuthenticate_RejectsRefreshToken(t *testing.T) {
	now := time.Unix(1700000000, 0).UTC()
	a, m := newTestAuthenticator(t, now)

	tok, err := m.IssueRefreshToken(now, "user-1")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	_, err = a.Authenticate("Bearer " + tok)
	expectReason(t, err, svcerr.ReasonRefreshNotAllowed)

	if _, err := a.AuthenticateRefresh("Bearer " + tok); err != nil {
		t.Fatalf("refresh route must accept refresh token: %v", err)
	}
}

func TestAuthenticateRefresh_RejectsAccessToken(t *testing.T) {
	now := time.Unix(1700000000, 0).UTC()
	a, m := newTestAuthenticator(t, now)

	tok, _, err := m.IssueAccessToken(now, "user-1")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	_, err = a.AuthenticateRefresh("Bearer " + tok)
	expectReason(t, err, svcerr.ReasonRefreshRequired)
}

func TestRequireAccessToken_Middleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	now := time.Unix(1700000000, 0).UTC()
	a, m := newTestAuthenticator(t, now)

	r := gin.New()
	r.GET("/me", RequireAccessToken(a), func(c *gin.Context) {
		claims, err := ClaimsFrom(c.Request.Context())
		if err != nil {
			c.Status(http.StatusInternalServerError)
			return
		}
		c.String(http.StatusOK, claims.Subject)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/me", nil))
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", w.Code)
	}

	refresh, _ := m.IssueRefreshToken(now, "user-1")
	w = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+refresh)
	r.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for refresh token, got %d", w.Code)
	}

	access, _, _ := m.IssueAccessToken(now, "user-1")
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+access)
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK || w.Body.String() != "user-1" {
		t.Fatalf("expected 200 user-1, got %d %q", w.Code, w.Body.String())
	}
}
