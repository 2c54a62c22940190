package users

import (
	"log/slog"
	"time"

	"classboard/pkg/logger"

	"github.com/google/uuid"
)

type User struct {
	ID           uuid.UUID `json:"id"`
	Email        string    `json:"email"`
	Description  string    `json:"description"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// Credentials is returned by registration, login and renewal.
type Credentials struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	ExpiresAt    time.Time `json:"expires_at"`
}

type RegisterRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	Description string `json:"description"`
}

func (r RegisterRequest) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("email", r.Email),
		slog.String("password", logger.Redacted),
		slog.String("description", r.Description),
	)
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (r LoginRequest) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("email", r.Email),
		slog.String("password", logger.Redacted),
	)
}

type UpdateProfileRequest struct {
	Email       string `json:"email"`
	Description string `json:"description"`
}

type ChangePasswordRequest struct {
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password"`
}

func (r ChangePasswordRequest) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("old_password", logger.Redacted),
		slog.String("new_password", logger.Redacted),
	)
}
