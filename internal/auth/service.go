package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

var ErrInvalidCredentials = errors.New("invalid credentials")

const defaultEmail = "example@example.com"

// CredentialStore is the persistence surface the service needs. *Store
// satisfies it; tests swap in fakes.
type CredentialStore interface {
	CreateUser(ctx context.Context, username, passwordRecord, email string) error
	FindCredential(ctx context.Context, username string) (Credential, error)
	FindProfile(ctx context.Context, username string) (Profile, error)
}

type Service struct {
	store  CredentialStore
	tokens *TokenService
}

func NewService(store CredentialStore, tokens *TokenService) *Service {
	return &Service{store: store, tokens: tokens}
}

// Register creates the credential and profile for a new username and issues
// a token for it. A duplicate username fails with ErrUsernameTaken; the
// losing side of a concurrent registration race gets the same error.
func (s *Service) Register(ctx context.Context, username, password string) (string, error) {
	record, err := HashPassword(password)
	if err != nil {
		return "", err
	}

	if err := s.store.CreateUser(ctx, username, record, defaultEmail); err != nil {
		if errors.Is(err, ErrUsernameTaken) {
			return "", err
		}
		return "", fmt.Errorf("register user: %w", err)
	}

	return s.tokens.Issue(username)
}

// Login verifies the credentials and issues a token. Unknown usernames and
// wrong passwords both fail with ErrInvalidCredentials; callers cannot tell
// which happened.
func (s *Service) Login(ctx context.Context, username, password string) (string, error) {
	ok, err := s.VerifyPassword(ctx, username, password)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", ErrInvalidCredentials
	}

	return s.tokens.Issue(username)
}

// VerifyPassword reports whether the plaintext matches the stored record.
// A missing user yields (false, nil), the same shape as a wrong password.
func (s *Service) VerifyPassword(ctx context.Context, username, password string) (bool, error) {
	cred, err := s.store.FindCredential(ctx, username)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, err
	}

	return CheckPassword(password, cred.PasswordRecord), nil
}

// Profile returns the user profile for a username; sql.ErrNoRows passes
// through when it does not exist.
func (s *Service) Profile(ctx context.Context, username string) (Profile, error) {
	return s.store.FindProfile(ctx, username)
}
