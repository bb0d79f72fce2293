package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"vidtube/internal/db"
	"vidtube/internal/models"
)

// Session failure taxonomy. Every one of these maps to a 401 at the HTTP
// boundary; they stay distinct so logs can tell a replayed token from a
// tampered one.
var (
	ErrMissingToken       = errors.New("no token supplied")
	ErrInvalidToken       = errors.New("invalid or expired token")
	ErrUserNotFound       = errors.New("user not found")
	ErrTokenReuse         = errors.New("refresh token superseded or already used")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// Service owns the credential and session lifecycle: login, refresh-token
// rotation, logout and password changes.
type Service struct {
	tokens *TokenService
	users  *db.UserRepository
}

func NewService(tokens *TokenService, users *db.UserRepository) *Service {
	return &Service{tokens: tokens, users: users}
}

// Login verifies the password for the user matching either identifier and
// issues a fresh token pair, persisting the new refresh token hash.
// Returns ErrUserNotFound for an unknown user and ErrInvalidCredentials for
// a bad password; the boundary maps them to 404 and 401 respectively.
func (s *Service) Login(ctx context.Context, username, email, password string) (*models.User, *TokenPair, error) {
	username = strings.ToLower(strings.TrimSpace(username))
	email = strings.ToLower(strings.TrimSpace(email))

	user, err := s.users.FindByLogin(ctx, username, email)
	if errors.Is(err, db.ErrNotFound) {
		return nil, nil, ErrUserNotFound
	}
	if err != nil {
		return nil, nil, fmt.Errorf("finding user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, nil, ErrInvalidCredentials
	}

	pair, err := s.issueAndPersist(ctx, user)
	if err != nil {
		return nil, nil, err
	}

	return user, pair, nil
}

// Rotate validates a presented refresh token, checks it against the single
// stored token for the user, and replaces it with a new pair. The old token
// is dead the moment this returns: presenting it again yields ErrTokenReuse.
func (s *Service) Rotate(ctx context.Context, presentedToken string) (*models.User, *TokenPair, error) {
	if strings.TrimSpace(presentedToken) == "" {
		return nil, nil, ErrMissingToken
	}

	userID, err := s.tokens.ParseRefreshToken(presentedToken)
	if err != nil {
		return nil, nil, ErrInvalidToken
	}

	user, err := s.users.FindByID(ctx, userID)
	if errors.Is(err, db.ErrNotFound) {
		return nil, nil, ErrUserNotFound
	}
	if err != nil {
		return nil, nil, fmt.Errorf("finding user: %w", err)
	}

	presentedHash := HashRefreshToken(presentedToken)
	if user.RefreshTokenHash == "" ||
		subtle.ConstantTimeCompare([]byte(presentedHash), []byte(user.RefreshTokenHash)) != 1 {
		return nil, nil, ErrTokenReuse
	}

	pair, err := s.issueAndPersist(ctx, user)
	if err != nil {
		return nil, nil, err
	}

	return user, pair, nil
}

// Logout clears the stored refresh token unconditionally. Idempotent.
func (s *Service) Logout(ctx context.Context, userID string) error {
	if err := s.users.ClearRefreshToken(ctx, userID); err != nil {
		return fmt.Errorf("clearing refresh token: %w", err)
	}
	return nil
}

// ChangePassword verifies the old password before replacing the hash.
func (s *Service) ChangePassword(ctx context.Context, userID, oldPassword, newPassword string) error {
	user, err := s.users.FindByID(ctx, userID)
	if errors.Is(err, db.ErrNotFound) {
		return ErrUserNotFound
	}
	if err != nil {
		return fmt.Errorf("finding user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(oldPassword)); err != nil {
		return ErrInvalidCredentials
	}

	newHash, err := HashPassword(newPassword)
	if err != nil {
		return err
	}

	if err := s.users.UpdatePasswordHash(ctx, userID, newHash); err != nil {
		return fmt.Errorf("updating password hash: %w", err)
	}
	return nil
}

func (s *Service) issueAndPersist(ctx context.Context, user *models.User) (*TokenPair, error) {
	pair, refreshHash, err := s.tokens.GenerateTokenPair(user)
	if err != nil {
		return nil, fmt.Errorf("generating token pair: %w", err)
	}

	if err := s.users.SetRefreshTokenHash(ctx, user.ID, refreshHash); err != nil {
		return nil, fmt.Errorf("persisting refresh token: %w", err)
	}

	return pair, nil
}

func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hashing password: %w", err)
	}
	return string(hash), nil
}
