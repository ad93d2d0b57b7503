package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenCodec signs and verifies the session bearer tokens. The secret is
// injected once at construction; there is no package-level state.
type TokenCodec struct {
	secret []byte
	ttl    time.Duration
}

func NewTokenCodec(secret string, ttl time.Duration) *TokenCodec {
	return &TokenCodec{secret: []byte(secret), ttl: ttl}
}

func (c *TokenCodec) TTL() time.Duration {
	return c.ttl
}

// Sign returns an HS256 JWT carrying the given claims plus "iat" and
// "exp" (now and now+TTL, Unix seconds).
func (c *TokenCodec) Sign(claims map[string]any) (string, error) {
	return c.SignWithTTL(claims, c.ttl)
}

func (c *TokenCodec) SignWithTTL(claims map[string]any, ttl time.Duration) (string, error) {
	now := time.Now().UTC()
	mapped := jwt.MapClaims{}
	for k, v := range claims {
		mapped[k] = v
	}
	mapped["iat"] = now.Unix()
	mapped["exp"] = now.Add(ttl).Unix()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, mapped)
	return token.SignedString(c.secret)
}

// Verify returns the full claim set and true for a well-formed,
// correctly signed, unexpired token. Every failure mode (malformed
// token, wrong algorithm, bad signature, expired) collapses to
// (nil, false); callers get no hint which check rejected the token.
func (c *TokenCodec) Verify(tokenString string) (jwt.MapClaims, bool) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return c.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || token == nil || !token.Valid {
		return nil, false
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, false
	}
	return claims, true
}
