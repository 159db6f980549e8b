package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
)

var ErrUsernameTaken = errors.New("username already taken")

const uniqueViolation = "23505"

// Store persists credentials and user profiles. Username uniqueness is the
// primary key's job: concurrent registrations for the same name race at the
// index and exactly one insert wins.
type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// CreateUser inserts the credential and its profile row in one transaction,
// so a failure on either leaves no half-registered user behind. A duplicate
// username surfaces as ErrUsernameTaken.
func (s *Store) CreateUser(ctx context.Context, username, passwordRecord, email string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin register tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO credentials (username, password_record)
		VALUES ($1, $2)
	`, username, passwordRecord); err != nil {
		if isUniqueViolation(err) {
			return ErrUsernameTaken
		}
		return fmt.Errorf("insert credential: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO users (id, username, email)
		VALUES ($1, $1, $2)
	`, username, email); err != nil {
		if isUniqueViolation(err) {
			return ErrUsernameTaken
		}
		return fmt.Errorf("insert user profile: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit register tx: %w", err)
	}

	return nil
}

// FindCredential returns the stored credential for a username, or
// sql.ErrNoRows when the user does not exist.
func (s *Store) FindCredential(ctx context.Context, username string) (Credential, error) {
	var cred Credential
	err := s.db.QueryRowContext(ctx, `
		SELECT username, password_record, created_at
		FROM credentials
		WHERE username = $1
	`, username).Scan(&cred.Username, &cred.PasswordRecord, &cred.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Credential{}, err
		}
		return Credential{}, fmt.Errorf("query credential: %w", err)
	}

	return cred, nil
}

// FindProfile returns the profile row for a username, or sql.ErrNoRows.
func (s *Store) FindProfile(ctx context.Context, username string) (Profile, error) {
	var profile Profile
	err := s.db.QueryRowContext(ctx, `
		SELECT id, username, email
		FROM users
		WHERE username = $1
	`, username).Scan(&profile.ID, &profile.Username, &profile.Email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Profile{}, err
		}
		return Profile{}, fmt.Errorf("query user profile: %w", err)
	}

	return profile, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
