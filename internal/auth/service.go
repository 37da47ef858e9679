// server/internal/auth/service.go
package auth

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// MinPasswordLength is the shortest password SignUp accepts.
const MinPasswordLength = 6

// RevocationStore remembers signed-out token ids until they expire.
type RevocationStore interface {
	Revoke(ctx context.Context, tokenID string, expiresAt time.Time) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

// Session is an authenticated user. Token is only set by SignIn and SignUp.
type Session struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Token     string    `json:"token,omitempty"`
	ExpiresAt time.Time `json:"expiresAt"`
}

type Service struct {
	users   UserStore
	tokens  *TokenIssuer
	revoked RevocationStore
	logger  zerolog.Logger
}

func NewService(users UserStore, tokens *TokenIssuer, revoked RevocationStore, logger zerolog.Logger) *Service {
	return &Service{
		users:   users,
		tokens:  tokens,
		revoked: revoked,
		logger:  logger.With().Str("component", "auth").Logger(),
	}
}

func (s *Service) SignIn(ctx context.Context, email, password string) (*Session, error) {
	email, ok := normalizeEmail(email)
	if !ok || password == "" {
		return nil, ErrInvalidCredentials
	}
	user, err := s.users.GetUserByEmail(ctx, email)
	if errors.Is(err, ErrUserNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		s.logger.Error().Err(err).Msg("user lookup failed")
		return nil, unknown(err)
	}
	if !CheckPasswordHash(password, user.PasswordHash) {
		return nil, ErrInvalidCredentials
	}
	return s.issue(user)
}

func (s *Service) SignUp(ctx context.Context, email, password string) (*Session, error) {
	email, ok := normalizeEmail(email)
	if !ok {
		return nil, ErrInvalidCredentials
	}
	if len([]rune(password)) < MinPasswordLength {
		return nil, ErrWeakPassword
	}
	_, err := s.users.GetUserByEmail(ctx, email)
	switch {
	case err == nil:
		return nil, ErrEmailAlreadyInUse
	case !errors.Is(err, ErrUserNotFound):
		s.logger.Error().Err(err).Msg("user lookup failed")
		return nil, unknown(err)
	}

	hash, err := HashPassword(password)
	if err != nil {
		return nil, unknown(err)
	}
	user := User{ID: uuid.NewString(), Email: email, PasswordHash: hash, CreatedAt: time.Now().UTC()}
	if err := s.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, ErrEmailAlreadyInUse) {
			return nil, err
		}
		s.logger.Error().Err(err).Msg("create user failed")
		return nil, unknown(err)
	}
	s.logger.Info().Str("user_id", user.ID).Msg("user signed up")
	return s.issue(&user)
}

// SignOut revokes the token until its natural expiry.
func (s *Service) SignOut(ctx context.Context, token string) error {
	claims, err := s.tokens.Parse(token)
	if err != nil {
		return ErrInvalidCredentials
	}
	if err := s.revoked.Revoke(ctx, claims.ID, claims.ExpiresAt.Time); err != nil {
		s.logger.Error().Err(err).Msg("revoke token failed")
		return unknown(err)
	}
	return nil
}

// CurrentSession returns the session a token belongs to, or nil when the token
// is invalid, expired or revoked.
func (s *Service) CurrentSession(ctx context.Context, token string) (*Session, error) {
	claims, err := s.tokens.Parse(token)
	if err != nil {
		return nil, nil
	}
	revoked, err := s.revoked.IsRevoked(ctx, claims.ID)
	if err != nil {
		s.logger.Error().Err(err).Msg("revocation lookup failed")
		return nil, unknown(err)
	}
	if revoked {
		return nil, nil
	}
	return &Session{ID: claims.Subject, Email: claims.Email, ExpiresAt: claims.ExpiresAt.Time}, nil
}

func (s *Service) issue(user *User) (*Session, error) {
	token, claims, err := s.tokens.Issue(user.ID, user.Email)
	if err != nil {
		return nil, unknown(err)
	}
	return &Session{ID: user.ID, Email: user.Email, Token: token, ExpiresAt: claims.ExpiresAt.Time}, nil
}

func normalizeEmail(email string) (string, bool) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return "", false
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", false
	}
	return email, true
}
