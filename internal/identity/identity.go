// Package identity is the system of record for authentication
// credentials. It hands out opaque account identifiers and enforces
// email uniqueness; the accounts repository keys its documents on the
// identifiers issued here.
package identity

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrNotFound   = errors.New("credential not found")
	ErrEmailTaken = errors.New("email already registered")
)

type Credential struct {
	ID          string    `db:"id"`
	Email       string    `db:"email"`
	DisplayName string    `db:"display_name"`
	CreatedAt   time.Time `db:"created_at"`
}

type Service struct {
	db *sqlx.DB
}

func New(db *sqlx.DB) *Service {
	return &Service{db: db}
}

// Register stores a bcrypt-hashed credential and returns the new
// account identifier. The unique index on email is the authoritative
// duplicate check; a violation surfaces as ErrEmailTaken.
func (s *Service) Register(ctx context.Context, email, password, displayName string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}

	id := uuid.NewString()

	query := `INSERT INTO credentials (id, email, display_name, password_hash)
	          VALUES ($1, $2, $3, $4)`

	_, err = s.db.ExecContext(ctx, query, id, email, displayName, string(hash))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return "", ErrEmailTaken
		}
		return "", fmt.Errorf("failed to insert credential: %w", err)
	}

	return id, nil
}

// Unregister removes a credential whose account document never made it
// to the store, so the email is usable again on the next attempt.
func (s *Service) Unregister(ctx context.Context, id string) error {
	query := `DELETE FROM credentials WHERE id = $1`

	_, err := s.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete credential: %w", err)
	}

	return nil
}

func (s *Service) FindByEmail(ctx context.Context, email string) (*Credential, error) {
	query := `SELECT id, email, display_name, created_at FROM credentials
	          WHERE email = $1`

	cred := &Credential{}
	err := s.db.GetContext(ctx, cred, query, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to query credential: %w", err)
	}

	return cred, nil
}
