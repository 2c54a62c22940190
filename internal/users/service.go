package users

import (
	"context"
	"strings"
	"sync"
	"time"

	"classboard/internal/auth"
	"classboard/internal/svcerr"
	"classboard/internal/workerpool"
	"classboard/pkg/utils"

	"github.com/google/uuid"
)

const (
	minPasswordLen = 8
	// bcrypt rejects longer input
	maxPasswordLen = 72
)

// Service owns accounts and credential issuance. Hashing and storage both
// block, so each operation runs as one pool task.
type Service struct {
	store  Store
	pool   *workerpool.Pool
	tokens *auth.Manager
	cost   int
	clock  func() time.Time

	dummyOnce sync.Once
	dummyHash string
}

func NewService(store Store, pool *workerpool.Pool, tokens *auth.Manager, bcryptCost int) *Service {
	return &Service{store: store, pool: pool, tokens: tokens, cost: bcryptCost, clock: time.Now}
}

func (s *Service) Register(ctx context.Context, req RegisterRequest) (User, Credentials, error) {
	email := strings.TrimSpace(req.Email)
	if !validEmail(email) || !validPassword(req.Password) {
		return User{}, Credentials{}, svcerr.BadRequest(svcerr.ReasonInvalidBody)
	}

	u, err := workerpool.Do(ctx, s.pool, func(ctx context.Context) (User, error) {
		hash, err := utils.HashPassword(req.Password, s.cost)
		if err != nil {
			return User{}, svcerr.Internal("hash password", err)
		}
		u := User{
			ID:           uuid.New(),
			Email:        email,
			Description:  req.Description,
			PasswordHash: hash,
			CreatedAt:    s.clock().UTC(),
		}
		if err := s.store.CreateUser(ctx, u); err != nil {
			return User{}, err
		}
		return u, nil
	})
	if err != nil {
		return User{}, Credentials{}, err
	}

	creds, err := s.issuePair(u.ID)
	if err != nil {
		return User{}, Credentials{}, err
	}
	return u, creds, nil
}

// Login fails with the same Unauthorized("wrong-password") whether the email
// is unknown or the password is wrong.
func (s *Service) Login(ctx context.Context, req LoginRequest) (Credentials, error) {
	id, err := workerpool.Do(ctx, s.pool, func(ctx context.Context) (uuid.UUID, error) {
		u, err := s.store.FindByEmail(ctx, strings.TrimSpace(req.Email))
		if svcerr.Is(err, svcerr.KindNotFound) {
			// keep timing close to the known-user path
			utils.VerifyPassword(s.dummy(), req.Password)
			return uuid.Nil, svcerr.Unauthorized(svcerr.ReasonWrongPassword)
		}
		if err != nil {
			return uuid.Nil, err
		}
		if !utils.VerifyPassword(u.PasswordHash, req.Password) {
			return uuid.Nil, svcerr.Unauthorized(svcerr.ReasonWrongPassword)
		}
		return u.ID, nil
	})
	if err != nil {
		return Credentials{}, err
	}
	return s.issuePair(id)
}

// Refresh issues a new access token for a refresh token's subject. The
// account must still exist; internal callers skip the lookup.
func (s *Service) Refresh(ctx context.Context, claims auth.Claims) (Credentials, error) {
	if !claims.IsRefresh() {
		return Credentials{}, svcerr.Unauthorized(svcerr.ReasonRefreshRequired)
	}
	if !claims.IsServiceInternal() {
		id, err := subjectID(claims)
		if err != nil {
			return Credentials{}, err
		}
		_, err = workerpool.Do(ctx, s.pool, func(ctx context.Context) (User, error) {
			return s.store.FindByID(ctx, id)
		})
		if svcerr.Is(err, svcerr.KindNotFound) {
			return Credentials{}, svcerr.Unauthorized(svcerr.ReasonInvalidToken)
		}
		if err != nil {
			return Credentials{}, err
		}
	}

	tok, exp, err := s.tokens.IssueAccessToken(s.clock(), claims.Subject)
	if err != nil {
		return Credentials{}, err
	}
	return Credentials{AccessToken: tok, ExpiresAt: exp}, nil
}

func (s *Service) Me(ctx context.Context, claims auth.Claims) (User, error) {
	id, err := subjectID(claims)
	if err != nil {
		return User{}, err
	}
	return workerpool.Do(ctx, s.pool, func(ctx context.Context) (User, error) {
		return s.store.FindByID(ctx, id)
	})
}

// UpdateMe replaces the caller's email and description.
func (s *Service) UpdateMe(ctx context.Context, claims auth.Claims, req UpdateProfileRequest) (User, error) {
	id, err := subjectID(claims)
	if err != nil {
		return User{}, err
	}
	email := strings.TrimSpace(req.Email)
	if !validEmail(email) {
		return User{}, svcerr.BadRequest(svcerr.ReasonInvalidBody)
	}
	return workerpool.Do(ctx, s.pool, func(ctx context.Context) (User, error) {
		return s.store.UpdateProfile(ctx, id, email, req.Description)
	})
}

func (s *Service) ChangePassword(ctx context.Context, claims auth.Claims, req ChangePasswordRequest) error {
	id, err := subjectID(claims)
	if err != nil {
		return err
	}
	if !validPassword(req.NewPassword) {
		return svcerr.BadRequest(svcerr.ReasonInvalidBody)
	}
	_, err = workerpool.Do(ctx, s.pool, func(ctx context.Context) (struct{}, error) {
		u, err := s.store.FindByID(ctx, id)
		if err != nil {
			return struct{}{}, err
		}
		if !utils.VerifyPassword(u.PasswordHash, req.OldPassword) {
			return struct{}{}, svcerr.Unauthorized(svcerr.ReasonWrongPassword)
		}
		hash, err := utils.HashPassword(req.NewPassword, s.cost)
		if err != nil {
			return struct{}{}, svcerr.Internal("hash password", err)
		}
		n, err := s.store.UpdatePasswordHash(ctx, id, hash)
		if err != nil {
			return struct{}{}, err
		}
		if n == 0 {
			return struct{}{}, svcerr.NotFound()
		}
		return struct{}{}, nil
	})
	return err
}

func (s *Service) DeleteMe(ctx context.Context, claims auth.Claims) error {
	id, err := subjectID(claims)
	if err != nil {
		return err
	}
	_, err = workerpool.Do(ctx, s.pool, func(ctx context.Context) (struct{}, error) {
		n, err := s.store.DeleteUser(ctx, id)
		if err != nil {
			return struct{}{}, err
		}
		if n == 0 {
			return struct{}{}, svcerr.NotFound()
		}
		return struct{}{}, nil
	})
	return err
}

func (s *Service) issuePair(id uuid.UUID) (Credentials, error) {
	pair, err := s.tokens.IssuePair(s.clock(), id.String())
	if err != nil {
		return Credentials{}, err
	}
	return Credentials{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		ExpiresAt:    pair.ExpiresAt,
	}, nil
}

func (s *Service) dummy() string {
	s.dummyOnce.Do(func() {
		s.dummyHash, _ = utils.HashPassword("timing-equalizer", s.cost)
	})
	return s.dummyHash
}

func validEmail(email string) bool {
	return strings.Contains(email, "@")
}

func validPassword(pw string) bool {
	return len(pw) >= minPasswordLen && len(pw) <= maxPasswordLen
}

func subjectID(claims auth.Claims) (uuid.UUID, error) {
	id, err := uuid.Parse(claims.Subject)
	if err != nil {
		return uuid.Nil, svcerr.Unauthorized(svcerr.ReasonInvalidToken)
	}
	return id, nil
}
