package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"calcapi/internal/models"
	"github.com/lib/pq"
)

// UserStore persists user records and their reset-token state. Emails
// are stored lowercased; lookups expect the caller to have normalized.
type UserStore interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
	UpdateCredentials(ctx context.Context, id string, passwordHash string, resetToken *string, resetTokenExpiry *time.Time) error
	UpdateReset(ctx context.Context, id string, resetToken string, resetTokenExpiry time.Time) error
	// ConsumeReset atomically claims a pending reset: it installs the new
	// password hash and clears both reset fields, but only if the token is
	// still present and unexpired at now. Returns ErrNotFound otherwise,
	// so two racing consumers cannot both succeed.
	ConsumeReset(ctx context.Context, token string, passwordHash string, now time.Time) (*models.User, error)
}

type postgresUserStore struct {
	db *sql.DB
}

func NewPostgresUserStore(db *sql.DB) UserStore {
	return &postgresUserStore{db: db}
}

func (r *postgresUserStore) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `
		SELECT id, name, email, password_hash, reset_token, reset_token_expiry, created_at
		FROM users
		WHERE email = $1
	`

	var u models.User
	err := r.db.QueryRowContext(ctx, query, email).
		Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.ResetToken, &u.ResetTokenExpiry, &u.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

func (r *postgresUserStore) Create(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (id, name, email, password_hash, reset_token, reset_token_expiry, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at
	`

	err := r.db.QueryRowContext(ctx, query,
		user.ID, user.Name, user.Email, user.PasswordHash, user.ResetToken, user.ResetTokenExpiry, user.CreatedAt).
		Scan(&user.CreatedAt)
	if err != nil {
		var pqErr *pq.Error
		// 23505: the UNIQUE index on email closed a registration race.
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return ErrConflict
		}
		return err
	}
	return nil
}

func (r *postgresUserStore) UpdateCredentials(ctx context.Context, id string, passwordHash string, resetToken *string, resetTokenExpiry *time.Time) error {
	query := `UPDATE users SET password_hash = $1, reset_token = $2, reset_token_expiry = $3 WHERE id = $4`
	res, err := r.db.ExecContext(ctx, query, passwordHash, resetToken, resetTokenExpiry, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *postgresUserStore) UpdateReset(ctx context.Context, id string, resetToken string, resetTokenExpiry time.Time) error {
	query := `UPDATE users SET reset_token = $1, reset_token_expiry = $2 WHERE id = $3`
	res, err := r.db.ExecContext(ctx, query, resetToken, resetTokenExpiry, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *postgresUserStore) ConsumeReset(ctx context.Context, token string, passwordHash string, now time.Time) (*models.User, error) {
	query := `
		UPDATE users
		SET password_hash = $1, reset_token = NULL, reset_token_expiry = NULL
		WHERE reset_token = $2 AND reset_token_expiry > $3
		RETURNING id, name, email, password_hash, reset_token, reset_token_expiry, created_at
	`

	var u models.User
	err := r.db.QueryRowContext(ctx, query, passwordHash, token, now).
		Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.ResetToken, &u.ResetTokenExpiry, &u.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}
