package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"calcapi/internal/models"
)

// FileStore keeps users in a JSON array on disk. Every mutation is a
// read-modify-write of the whole file behind a single mutex, so within
// one process it enforces email uniqueness and reset-consume atomicity
// as strictly as the SQL store. It is not safe for multiple processes
// sharing the same file.
type FileStore struct {
	mu   sync.Mutex
	path string
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (s *FileStore) load() ([]models.User, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read user file: %w", err)
	}
	var users []models.User
	if err := json.Unmarshal(data, &users); err != nil {
		return nil, fmt.Errorf("failed to parse user file: %w", err)
	}
	return users, nil
}

func (s *FileStore) save(users []models.User) error {
	data, err := json.MarshalIndent(users, "", "  ")
	if err != nil {
		return err
	}
	// Write-then-rename so a crash mid-write cannot truncate the store.
	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".users-*.json")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), s.path)
}

func (s *FileStore) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	users, err := s.load()
	if err != nil {
		return nil, err
	}
	for i := range users {
		if users[i].Email == email {
			u := users[i]
			return &u, nil
		}
	}
	return nil, ErrNotFound
}

func (s *FileStore) Create(ctx context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	users, err := s.load()
	if err != nil {
		return err
	}
	for i := range users {
		if users[i].Email == user.Email {
			return ErrConflict
		}
	}
	users = append(users, *user)
	return s.save(users)
}

func (s *FileStore) UpdateCredentials(ctx context.Context, id string, passwordHash string, resetToken *string, resetTokenExpiry *time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.update(func(u *models.User) bool { return u.ID == id }, func(u *models.User) {
		u.PasswordHash = passwordHash
		u.ResetToken = resetToken
		u.ResetTokenExpiry = resetTokenExpiry
	})
}

func (s *FileStore) UpdateReset(ctx context.Context, id string, resetToken string, resetTokenExpiry time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.update(func(u *models.User) bool { return u.ID == id }, func(u *models.User) {
		u.ResetToken = &resetToken
		u.ResetTokenExpiry = &resetTokenExpiry
	})
}

func (s *FileStore) ConsumeReset(ctx context.Context, token string, passwordHash string, now time.Time) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	users, err := s.load()
	if err != nil {
		return nil, err
	}
	for i := range users {
		u := &users[i]
		if u.ResetToken == nil || *u.ResetToken != token {
			continue
		}
		if u.ResetTokenExpiry == nil || !u.ResetTokenExpiry.After(now) {
			return nil, ErrNotFound
		}
		u.PasswordHash = passwordHash
		u.ResetToken = nil
		u.ResetTokenExpiry = nil
		if err := s.save(users); err != nil {
			return nil, err
		}
		out := *u
		return &out, nil
	}
	return nil, ErrNotFound
}

// update applies fn to the first user matching match, holding s.mu.
func (s *FileStore) update(match func(*models.User) bool, fn func(*models.User)) error {
	users, err := s.load()
	if err != nil {
		return err
	}
	for i := range users {
		if match(&users[i]) {
			fn(&users[i])
			return s.save(users)
		}
	}
	return ErrNotFound
}
