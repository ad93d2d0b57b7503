package services

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"calcapi/internal/auth"
	"calcapi/internal/models"
	"calcapi/internal/repository"
	"github.com/google/uuid"
)

var (
	ErrInvalidInput  = errors.New("missing required fields")
	ErrAlreadyExists = errors.New("email already registered")
)

const (
	resetTokenBytes = 24
	resetTokenTTL   = 15 * time.Minute
)

// ResetGrant is a freshly issued reset token and its expiry. The token
// is handed back to the caller; delivering it out-of-band is the
// caller's concern.
type ResetGrant struct {
	Token     string
	ExpiresAt time.Time
}

// CredentialService implements the register / authenticate / reset
// lifecycle on top of a UserStore and a PasswordHasher. Unknown users
// are reported as (nil, nil) rather than as errors so that callers can
// answer uniformly and not leak which emails exist. Store failures are
// always returned, never swallowed.
type CredentialService struct {
	store  repository.UserStore
	hasher *auth.PasswordHasher
}

func NewCredentialService(store repository.UserStore, hasher *auth.PasswordHasher) *CredentialService {
	return &CredentialService{store: store, hasher: hasher}
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *CredentialService) Register(ctx context.Context, name, email, password string) (*models.PublicUser, error) {
	email = NormalizeEmail(email)
	if name == "" || email == "" || password == "" {
		return nil, ErrInvalidInput
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	u := &models.User{
		ID:           uuid.NewString(),
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.store.Create(ctx, u); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, ErrAlreadyExists
		}
		return nil, err
	}
	return u.Public(), nil
}

// Authenticate returns the public projection on success and (nil, nil)
// for both an unknown email and a wrong password.
func (s *CredentialService) Authenticate(ctx context.Context, email, password string) (*models.PublicUser, error) {
	u, err := s.store.FindByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	if !s.hasher.Verify(password, u.PasswordHash) {
		return nil, nil
	}
	return u.Public(), nil
}

// IssueReset generates a fresh reset token valid for 15 minutes,
// overwriting any pending one, and returns (nil, nil) for an unknown
// email.
func (s *CredentialService) IssueReset(ctx context.Context, email string) (*ResetGrant, error) {
	u, err := s.store.FindByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}

	b := make([]byte, resetTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return nil, fmt.Errorf("failed to generate reset token: %w", err)
	}
	token := hex.EncodeToString(b)
	expiresAt := time.Now().UTC().Add(resetTokenTTL)

	if err := s.store.UpdateReset(ctx, u.ID, token, expiresAt); err != nil {
		return nil, err
	}
	return &ResetGrant{Token: token, ExpiresAt: expiresAt}, nil
}

// ConsumeReset replaces the password of the user holding token and
// clears the token in the same store operation. It reports false for a
// wrong, already used, or expired token; each token can succeed at most
// once.
func (s *CredentialService) ConsumeReset(ctx context.Context, token, newPassword string) (bool, error) {
	if token == "" || newPassword == "" {
		return false, nil
	}
	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return false, fmt.Errorf("failed to hash password: %w", err)
	}
	if _, err := s.store.ConsumeReset(ctx, token, hash, time.Now().UTC()); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// ChangePassword verifies the old password and installs the new one,
// clearing any pending reset alongside it.
func (s *CredentialService) ChangePassword(ctx context.Context, email, oldPassword, newPassword string) (bool, error) {
	u, err := s.store.FindByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	if !s.hasher.Verify(oldPassword, u.PasswordHash) {
		return false, nil
	}
	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return false, fmt.Errorf("failed to hash password: %w", err)
	}
	if err := s.store.UpdateCredentials(ctx, u.ID, hash, nil, nil); err != nil {
		return false, err
	}
	return true, nil
}
