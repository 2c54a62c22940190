package auth

import (
	"errors"
	"time"

	"classboard/internal/config"
	"classboard/internal/svcerr"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Manager issues and validates signed tokens. Key material is copied once at
// construction and never changes afterwards.
type Manager struct {
	secret     []byte
	issuer     string
	audience   string
	accessTTL  time.Duration
	refreshTTL time.Duration
}

func NewManager(cfg config.AuthConfig) (*Manager, error) {
	if cfg.JWTSecret == "" {
		return nil, errors.New("JWT_SECRET is required")
	}
	if cfg.AccessTokenTTL <= 0 || cfg.RefreshTokenTTL <= 0 {
		return nil, errors.New("token lifetimes must be positive")
	}

	return &Manager{
		secret:     []byte(cfg.JWTSecret),
		issuer:     cfg.JWTIssuer,
		audience:   cfg.JWTAudience,
		accessTTL:  cfg.AccessTokenTTL,
		refreshTTL: cfg.RefreshTokenTTL,
	}, nil
}

type TokenPair struct {
	AccessToken  string
	RefreshToken string
	// ExpiresAt is the expiry of the access token.
	ExpiresAt time.Time
}

/* ===================== ISSUE TOKENS ===================== */

// IssueAccessToken returns a short-lived token and its absolute expiry.
func (m *Manager) IssueAccessToken(now time.Time, subject string) (string, time.Time, error) {
	// Tokens carry second precision; report the expiry the token actually holds.
	exp := now.Add(m.accessTTL).Truncate(jwt.TimePrecision)
	tok, err := m.issue(now, exp, TokenTypeAccess, subject)
	if err != nil {
		return "", time.Time{}, err
	}
	return tok, exp, nil
}

// IssueRefreshToken returns a long-lived token usable only for renewal.
func (m *Manager) IssueRefreshToken(now time.Time, subject string) (string, error) {
	return m.issue(now, now.Add(m.refreshTTL), TokenTypeRefresh, subject)
}

func (m *Manager) IssuePair(now time.Time, subject string) (TokenPair, error) {
	access, exp, err := m.IssueAccessToken(now, subject)
	if err != nil {
		return TokenPair{}, err
	}
	refresh, err := m.IssueRefreshToken(now, subject)
	if err != nil {
		return TokenPair{}, err
	}
	return TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresAt:    exp,
	}, nil
}

/* ===================== VALIDATE TOKEN ===================== */

const issuedAtSkew = 30 * time.Second

// Validate verifies signature and expiry as of now. It never touches storage.
// Failures are svcerr Unauthorized errors tagged token-expired or invalid-token.
func (m *Manager) Validate(tokenString string, now time.Time) (Claims, error) {
	var claims Claims

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(func() time.Time { return now }),
		jwt.WithExpirationRequired(),
	}
	if m.issuer != "" {
		opts = append(opts, jwt.WithIssuer(m.issuer))
	}
	if m.audience != "" {
		opts = append(opts, jwt.WithAudience(m.audience))
	}

	_, err := jwt.NewParser(opts...).ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (any, error) {
		return m.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Claims{}, svcerr.Unauthorized(svcerr.ReasonTokenExpired)
		}
		return Claims{}, svcerr.Unauthorized(svcerr.ReasonInvalidToken)
	}

	if claims.Subject == "" {
		return Claims{}, svcerr.Unauthorized(svcerr.ReasonInvalidToken)
	}
	// tolerate replica clock skew on iat only; expiry stays exact
	if claims.IssuedAt != nil && claims.IssuedAt.After(now.Add(issuedAtSkew)) {
		return Claims{}, svcerr.Unauthorized(svcerr.ReasonInvalidToken)
	}
	switch claims.TokenType {
	case TokenTypeAccess, TokenTypeRefresh:
	default:
		return Claims{}, svcerr.Unauthorized(svcerr.ReasonInvalidToken)
	}
	return claims, nil
}

/* ===================== INTERNAL ISSUE ===================== */

func (m *Manager) issue(now, exp time.Time, tokenType TokenType, subject string) (string, error) {
	if subject == "" {
		return "", svcerr.Internalf("issue %s token: empty subject", tokenType)
	}

	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    m.issuer,
			Audience:  audienceOrNil(m.audience),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
			ID:        uuid.NewString(),
		},
		TokenType: tokenType,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", svcerr.Internal("sign token", err)
	}
	return signed, nil
}

func audienceOrNil(aud string) jwt.ClaimStrings {
	if aud == "" {
		return nil
	}
	return jwt.ClaimStrings{aud}
}
