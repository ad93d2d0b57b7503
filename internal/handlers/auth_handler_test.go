package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"calcapi/internal/auth"
	"calcapi/internal/config"
	appmw "calcapi/internal/middleware"
	"calcapi/internal/repository"
	"calcapi/internal/services"
)

type recordingMailer struct {
	to   string
	body string
}

func (m *recordingMailer) Send(to string, subject string, body string) error {
	m.to = to
	m.body = body
	return nil
}

func newTestAuthHandler(t *testing.T, cfg *config.Config) (*AuthHandler, *recordingMailer) {
	t.Helper()
	store := repository.NewFileStore(filepath.Join(t.TempDir(), "users.json"))
	svc := services.NewCredentialService(store, auth.NewPasswordHasher(auth.MinIterations))
	codec := auth.NewTokenCodec(cfg.AuthSecret, time.Duration(cfg.JWTExpiresInSeconds)*time.Second)
	mailer := &recordingMailer{}
	return NewAuthHandler(svc, codec, mailer, cfg), mailer
}

func postJSON(t *testing.T, h http.HandlerFunc, target string, payload any) *httptest.ResponseRecorder {
	t.Helper()
	b, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, target, bytes.NewReader(b))
	w := httptest.NewRecorder()
	h(w, req)
	return w
}

func testConfig() *config.Config {
	return &config.Config{
		Environment:         "test",
		AuthSecret:          "test-secret",
		JWTExpiresInSeconds: 604800,
	}
}

func TestRegisterSetsSessionCookie(t *testing.T) {
	h, _ := newTestAuthHandler(t, testConfig())

	w := postJSON(t, h.Register, "/api/register",
		map[string]any{"name": "Ann", "email": "ann@x.com", "password": "pw123secret"})

	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d (%s)", w.Code, w.Body.String())
	}

	var resp struct {
		User struct {
			ID    string `json:"id"`
			Name  string `json:"name"`
			Email string `json:"email"`
		} `json:"user"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if resp.User.ID == "" || resp.User.Name != "Ann" || resp.User.Email != "ann@x.com" {
		t.Fatalf("unexpected user: %+v", resp.User)
	}

	cookie := sessionCookie(t, w)
	if !cookie.HttpOnly {
		t.Fatal("cookie must be HttpOnly")
	}
	if cookie.SameSite != http.SameSiteLaxMode {
		t.Fatalf("expected SameSite=Lax, got %v", cookie.SameSite)
	}
	if cookie.Path != "/" {
		t.Fatalf("expected Path=/, got %q", cookie.Path)
	}
	if cookie.MaxAge != 604800 {
		t.Fatalf("expected Max-Age 604800, got %d", cookie.MaxAge)
	}
	if cookie.Secure {
		t.Fatal("Secure must be off outside production")
	}

	codec := auth.NewTokenCodec("test-secret", time.Hour)
	claims, ok := codec.Verify(cookie.Value)
	if !ok {
		t.Fatal("cookie value must be a valid token")
	}
	if claims["sub"] != resp.User.ID || claims["email"] != "ann@x.com" || claims["name"] != "Ann" {
		t.Fatalf("unexpected claims: %v", claims)
	}
}

func TestRegisterDuplicateEmailConflict(t *testing.T) {
	h, _ := newTestAuthHandler(t, testConfig())

	payload := map[string]any{"name": "Ann", "email": "ann@x.com", "password": "pw123secret"}
	if w := postJSON(t, h.Register, "/api/register", payload); w.Code != http.StatusCreated {
		t.Fatalf("first register: expected 201, got %d", w.Code)
	}
	if w := postJSON(t, h.Register, "/api/register", payload); w.Code != http.StatusConflict {
		t.Fatalf("second register: expected 409, got %d (%s)", w.Code, w.Body.String())
	}
}

func TestRegisterValidation(t *testing.T) {
	h, _ := newTestAuthHandler(t, testConfig())

	w := postJSON(t, h.Register, "/api/register",
		map[string]any{"name": "Ann", "email": "not-an-email", "password": "pw123secret"})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}

	w = postJSON(t, h.Register, "/api/register",
		map[string]any{"name": "Ann", "email": "ann@x.com", "password": "short"})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for short password, got %d", w.Code)
	}
}

func TestLoginUniformErrors(t *testing.T) {
	h, _ := newTestAuthHandler(t, testConfig())
	postJSON(t, h.Register, "/api/register",
		map[string]any{"name": "Ann", "email": "ann@x.com", "password": "pw123secret"})

	wrongPassword := postJSON(t, h.Login, "/api/login",
		map[string]any{"email": "ann@x.com", "password": "wrong"})
	unknownEmail := postJSON(t, h.Login, "/api/login",
		map[string]any{"email": "nobody@x.com", "password": "pw123secret"})

	for name, w := range map[string]*httptest.ResponseRecorder{
		"wrong password": wrongPassword,
		"unknown email":  unknownEmail,
	} {
		if w.Code != http.StatusUnauthorized {
			t.Fatalf("%s: expected 401, got %d", name, w.Code)
		}
		var resp map[string]any
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatalf("%s: invalid json: %v", name, err)
		}
		if resp["error"] != "invalid_credentials" {
			t.Fatalf("%s: expected invalid_credentials, got %v", name, resp)
		}
	}
	if wrongPassword.Body.String() != unknownEmail.Body.String() {
		t.Fatal("unknown email and wrong password must be indistinguishable")
	}
}

func TestLoginSuccess(t *testing.T) {
	h, _ := newTestAuthHandler(t, testConfig())
	postJSON(t, h.Register, "/api/register",
		map[string]any{"name": "Ann", "email": "ann@x.com", "password": "pw123secret"})

	w := postJSON(t, h.Login, "/api/login",
		map[string]any{"email": "ann@x.com", "password": "pw123secret"})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", w.Code, w.Body.String())
	}
	sessionCookie(t, w)
}

func TestForgotPasswordUniformResponse(t *testing.T) {
	cfg := testConfig()
	cfg.AuthReturnResetToken = true
	h, mailer := newTestAuthHandler(t, cfg)
	postJSON(t, h.Register, "/api/register",
		map[string]any{"name": "Ann", "email": "ann@x.com", "password": "pw123secret"})

	known := postJSON(t, h.ForgotPassword, "/api/forgot", map[string]any{"email": "ann@x.com"})
	unknown := postJSON(t, h.ForgotPassword, "/api/forgot", map[string]any{"email": "nobody@x.com"})

	if known.Code != http.StatusOK || unknown.Code != http.StatusOK {
		t.Fatalf("expected 200/200, got %d/%d", known.Code, unknown.Code)
	}

	var knownResp, unknownResp map[string]any
	if err := json.Unmarshal(known.Body.Bytes(), &knownResp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if err := json.Unmarshal(unknown.Body.Bytes(), &unknownResp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if knownResp["ok"] != true || unknownResp["ok"] != true {
		t.Fatalf("expected ok=true for both, got %v / %v", knownResp, unknownResp)
	}
	if knownResp["token"] == nil {
		t.Fatalf("expected token echoed in dev mode, got %v", knownResp)
	}
	if unknownResp["token"] != nil {
		t.Fatalf("unknown email must not get a token, got %v", unknownResp)
	}
	if mailer.to != "ann@x.com" {
		t.Fatalf("expected reset mail to ann@x.com, got %q", mailer.to)
	}
}

func TestResetPasswordFlow(t *testing.T) {
	cfg := testConfig()
	cfg.AuthReturnResetToken = true
	h, _ := newTestAuthHandler(t, cfg)
	postJSON(t, h.Register, "/api/register",
		map[string]any{"name": "Ann", "email": "ann@x.com", "password": "pw123secret"})

	forgot := postJSON(t, h.ForgotPassword, "/api/forgot", map[string]any{"email": "ann@x.com"})
	var forgotResp map[string]any
	if err := json.Unmarshal(forgot.Body.Bytes(), &forgotResp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	token, _ := forgotResp["token"].(string)
	if token == "" {
		t.Fatalf("expected token, got %v", forgotResp)
	}

	w := postJSON(t, h.ResetPassword, "/api/reset",
		map[string]any{"token": token, "password": "newpassword1"})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", w.Code, w.Body.String())
	}

	// The token is single-use.
	w = postJSON(t, h.ResetPassword, "/api/reset",
		map[string]any{"token": token, "password": "anotherpassword"})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 on reuse, got %d", w.Code)
	}

	// Only the new password logs in.
	if w := postJSON(t, h.Login, "/api/login", map[string]any{"email": "ann@x.com", "password": "pw123secret"}); w.Code != http.StatusUnauthorized {
		t.Fatalf("old password: expected 401, got %d", w.Code)
	}
	if w := postJSON(t, h.Login, "/api/login", map[string]any{"email": "ann@x.com", "password": "newpassword1"}); w.Code != http.StatusOK {
		t.Fatalf("new password: expected 200, got %d", w.Code)
	}
}

func TestResetPasswordBadToken(t *testing.T) {
	h, _ := newTestAuthHandler(t, testConfig())

	w := postJSON(t, h.ResetPassword, "/api/reset",
		map[string]any{"token": "bogus", "password": "newpassword1"})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	var resp map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if resp["error"] != "invalid_token" {
		t.Fatalf("expected invalid_token, got %v", resp)
	}
}

func TestLogoutClearsCookie(t *testing.T) {
	h, _ := newTestAuthHandler(t, testConfig())

	req := httptest.NewRequest(http.MethodPost, "/api/logout", nil)
	w := httptest.NewRecorder()
	h.Logout(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	cookie := rawSessionCookie(t, w)
	if cookie.Value != "" || cookie.MaxAge >= 0 {
		t.Fatalf("expected expired empty cookie, got %+v", cookie)
	}
}

func sessionCookie(t *testing.T, w *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	c := rawSessionCookie(t, w)
	if c.Value == "" {
		t.Fatal("session cookie is empty")
	}
	return c
}

func rawSessionCookie(t *testing.T, w *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range w.Result().Cookies() {
		if c.Name == appmw.SessionCookieName {
			return c
		}
	}
	t.Fatal("session cookie not set")
	return nil
}
