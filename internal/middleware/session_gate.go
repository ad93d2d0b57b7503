package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"calcapi/internal/auth"
)

type ctxKey string

const (
	CtxUserID ctxKey = "user_id"
	CtxEmail  ctxKey = "email"
	CtxName   ctxKey = "name"
)

// SessionCookieName is the cookie carrying the session bearer token.
const SessionCookieName = "auth_token"

// publicPaths bypass the gate on an exact match or any sub-path
// ("/login" and "/login/…").
var publicPaths = []string{
	"/welcome",
	"/login",
	"/register",
	"/forgot-password",
	"/reset-password",
	"/api/login",
	"/api/register",
	"/api/forgot",
	"/api/reset",
	"/health",
	"/favicon.ico",
}

var publicPrefixes = []string{
	"/static",
	"/assets",
}

func isPublicPath(path string) bool {
	for _, p := range publicPrefixes {
		if strings.HasPrefix(path, p) {
			return true
		}
	}
	for _, p := range publicPaths {
		if path == p || strings.HasPrefix(path, p+"/") {
			return true
		}
	}
	return false
}

// SessionGate requires a valid session token on every path outside the
// public allowlist. The token is read from the session cookie, falling
// back to an Authorization Bearer header. Rejections carry no detail
// about why the token failed: API callers get a bare 401, everything
// else is redirected to /welcome.
func SessionGate(codec *auth.TokenCodec) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if isPublicPath(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			tokenString := ""
			if c, err := r.Cookie(SessionCookieName); err == nil {
				tokenString = c.Value
			}
			if tokenString == "" {
				if h := r.Header.Get("Authorization"); h != "" {
					parts := strings.SplitN(h, " ", 2)
					if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
						tokenString = parts[1]
					}
				}
			}
			if tokenString == "" {
				reject(w, r)
				return
			}

			claims, ok := codec.Verify(tokenString)
			if !ok {
				reject(w, r)
				return
			}

			sub, _ := claims["sub"].(string)
			if sub == "" {
				reject(w, r)
				return
			}
			email, _ := claims["email"].(string)
			name, _ := claims["name"].(string)

			ctx := context.WithValue(r.Context(), CtxUserID, sub)
			ctx = context.WithValue(ctx, CtxEmail, email)
			ctx = context.WithValue(ctx, CtxName, name)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func reject(w http.ResponseWriter, r *http.Request) {
	if strings.HasPrefix(r.URL.Path, "/api/") {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"error":   "unauthorized",
			"message": "Authentication required",
		})
		return
	}
	http.Redirect(w, r, "/welcome", http.StatusFound)
}
