package auth

import (
	"strings"
	"time"

	"classboard/internal/svcerr"

	"github.com/gin-gonic/gin"
)

const authorizationHeader = "Authorization"
const bearerScheme = "bearer"

// Authenticator turns an Authorization header into Claims. It performs no I/O
// and never blocks.
type Authenticator struct {
	tokens *Manager
	clock  func() time.Time
}

func NewAuthenticator(tokens *Manager) *Authenticator {
	return &Authenticator{tokens: tokens, clock: time.Now}
}

// Authenticate accepts access tokens only. Refresh tokens are rejected even
// when their signature is valid.
func (a *Authenticator) Authenticate(header string) (Claims, error) {
	claims, err := a.validate(header)
	if err != nil {
		return Claims{}, err
	}
	if claims.IsRefresh() {
		return Claims{}, svcerr.Unauthorized(svcerr.ReasonRefreshNotAllowed)
	}
	return claims, nil
}

// AuthenticateRefresh accepts refresh tokens only; it guards token renewal.
func (a *Authenticator) AuthenticateRefresh(header string) (Claims, error) {
	claims, err := a.validate(header)
	if err != nil {
		return Claims{}, err
	}
	if !claims.IsRefresh() {
		return Claims{}, svcerr.Unauthorized(svcerr.ReasonRefreshRequired)
	}
	return claims, nil
}

func (a *Authenticator) validate(header string) (Claims, error) {
	tok, ok := bearerToken(header)
	if !ok {
		return Claims{}, svcerr.Unauthorized(svcerr.ReasonNoBearerToken)
	}
	return a.tokens.Validate(tok, a.clock())
}

func bearerToken(header string) (string, bool) {
	scheme, tok, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, bearerScheme) {
		return "", false
	}
	tok = strings.TrimSpace(tok)
	return tok, tok != ""
}

// RequireAccessToken verifies an access token and injects Claims into the
// request context. Class-scoped checks belong to internal/rbac.
func RequireAccessToken(a *Authenticator) gin.HandlerFunc {
	return requireClaims(a.Authenticate)
}

// RequireRefreshToken is only mounted on the token renewal route.
func RequireRefreshToken(a *Authenticator) gin.HandlerFunc {
	return requireClaims(a.AuthenticateRefresh)
}

func requireClaims(authenticate func(string) (Claims, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, err := authenticate(c.GetHeader(authorizationHeader))
		if err != nil {
			svcerr.Abort(c, err)
			return
		}
		c.Request = c.Request.WithContext(WithClaims(c.Request.Context(), claims))
		c.Set("user_id", claims.Subject)
		c.Next()
	}
}
