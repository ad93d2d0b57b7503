package auth

import (
	"crypto/rand"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/crypto/pbkdf2"
)

const (
	// MinIterations is the floor for newly created hashes. Stored hashes
	// keep whatever count they were created with.
	MinIterations     = 100000
	DefaultIterations = 120000

	saltLength = 16
	keyLength  = 64
)

// PasswordHasher derives storable password hashes with PBKDF2-SHA512.
// The output is self-describing ("iterations:salt:key", hex fields), so
// the iteration count can be raised later without invalidating old
// hashes.
type PasswordHasher struct {
	iterations int
}

func NewPasswordHasher(iterations int) *PasswordHasher {
	if iterations < MinIterations {
		iterations = DefaultIterations
	}
	return &PasswordHasher{iterations: iterations}
}

func (h *PasswordHasher) Hash(password string) (string, error) {
	salt := make([]byte, saltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("failed to generate salt: %w", err)
	}
	key := pbkdf2.Key([]byte(password), salt, h.iterations, keyLength, sha512.New)
	return fmt.Sprintf("%d:%s:%s", h.iterations, hex.EncodeToString(salt), hex.EncodeToString(key)), nil
}

// Verify reports whether password matches storedHash. It is a total
// function: malformed or truncated stored hashes yield false, never an
// error. The comparison is constant-time.
func (h *PasswordHasher) Verify(password, storedHash string) bool {
	parts := strings.Split(storedHash, ":")
	if len(parts) != 3 {
		return false
	}
	iterations, err := strconv.Atoi(parts[0])
	if err != nil || iterations <= 0 {
		return false
	}
	salt, err := hex.DecodeString(parts[1])
	if err != nil || len(salt) == 0 {
		return false
	}
	stored, err := hex.DecodeString(parts[2])
	if err != nil || len(stored) == 0 {
		return false
	}

	// Derive with the stored parameters, not the hasher's current ones.
	// Matching the stored key length keeps the compare length-equal.
	candidate := pbkdf2.Key([]byte(password), salt, iterations, len(stored), sha512.New)
	return subtle.ConstantTimeCompare(candidate, stored) == 1
}
