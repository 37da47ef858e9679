// server/internal/database/seeder.go
package database

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"sistema-bup-api-server/internal/auth"
)

// SeedAdmin creates the initial user when email is configured and not yet
// registered. It returns whether a user was created.
func SeedAdmin(ctx context.Context, users auth.UserStore, email, password string, logger zerolog.Logger) (bool, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return false, nil
	}
	if len([]rune(password)) < auth.MinPasswordLength {
		return false, auth.ErrWeakPassword
	}

	_, err := users.GetUserByEmail(ctx, email)
	if err == nil {
		logger.Info().Str("email", email).Msg("admin user already exists, seeding skipped")
		return false, nil
	}
	if !errors.Is(err, auth.ErrUserNotFound) {
		return false, err
	}

	hashed, err := auth.HashPassword(password)
	if err != nil {
		return false, err
	}
	user := auth.User{ID: uuid.NewString(), Email: email, PasswordHash: hashed, CreatedAt: time.Now().UTC()}
	if err := users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, auth.ErrEmailAlreadyInUse) {
			return false, nil
		}
		return false, err
	}
	logger.Info().Str("email", email).Msg("admin user seeded")
	return true, nil
}
