package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"calcapi/internal/auth"
	"calcapi/internal/config"
	"calcapi/internal/models"
	"calcapi/internal/services"
	"github.com/go-playground/validator/v10"
)

type AuthHandler struct {
	creds  *services.CredentialService
	codec  *auth.TokenCodec
	mailer services.EmailSender
	cfg    *config.Config
	v      *validator.Validate
}

func NewAuthHandler(creds *services.CredentialService, codec *auth.TokenCodec, mailer services.EmailSender, cfg *config.Config) *AuthHandler {
	return &AuthHandler{
		creds:  creds,
		codec:  codec,
		mailer: mailer,
		cfg:    cfg,
		v:      validator.New(),
	}
}

// issueSession signs a session token for u and attaches it as the
// session cookie.
func (h *AuthHandler) issueSession(w http.ResponseWriter, u *models.PublicUser) error {
	token, err := h.codec.Sign(map[string]any{
		"sub":   u.ID,
		"email": u.Email,
		"name":  u.Name,
	})
	if err != nil {
		return err
	}
	setSessionCookie(w, token, h.codec.TTL(), h.cfg.IsProduction())
	return nil
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return
	}
	if err := h.v.Struct(req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "validation_error", err.Error())
		return
	}

	u, err := h.creds.Register(r.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrAlreadyExists):
			writeJSONError(w, http.StatusConflict, "already_exists", "Email already registered")
		case errors.Is(err, services.ErrInvalidInput):
			writeJSONError(w, http.StatusBadRequest, "invalid_request", "Missing required fields")
		default:
			writeJSONError(w, http.StatusInternalServerError, "register_failed", "Failed to register")
		}
		return
	}

	if err := h.issueSession(w, u); err != nil {
		writeJSONError(w, http.StatusInternalServerError, "register_failed", "Failed to register")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"user": u})
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return
	}
	if err := h.v.Struct(req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "validation_error", err.Error())
		return
	}

	u, err := h.creds.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, "login_failed", "Failed to login")
		return
	}
	if u == nil {
		// Same answer for unknown email and wrong password.
		writeJSONError(w, http.StatusUnauthorized, "invalid_credentials", "Invalid credentials")
		return
	}

	if err := h.issueSession(w, u); err != nil {
		writeJSONError(w, http.StatusInternalServerError, "login_failed", "Failed to login")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"user": u})
}

func (h *AuthHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req models.ForgotPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return
	}
	if err := h.v.Struct(req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "validation_error", err.Error())
		return
	}

	// Always answer ok so the response does not reveal whether the
	// account exists.
	grant, err := h.creds.IssueReset(r.Context(), req.Email)
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, "forgot_failed", "Failed to process request")
		return
	}
	resp := map[string]any{"ok": true}
	if grant != nil {
		body := "Use this token to reset your password:\n\n" + grant.Token +
			"\n\nThis token expires in 15 minutes."
		_ = h.mailer.Send(services.NormalizeEmail(req.Email), "Reset your password", body)
		if h.cfg.AuthReturnResetToken {
			resp["token"] = grant.Token
			resp["exp"] = grant.ExpiresAt.Unix()
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req models.ResetPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return
	}
	if err := h.v.Struct(req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "validation_error", err.Error())
		return
	}

	ok, err := h.creds.ConsumeReset(r.Context(), req.Token, req.Password)
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, "reset_failed", "Failed to reset password")
		return
	}
	if !ok {
		// Wrong, used, and expired tokens are indistinguishable here.
		writeJSONError(w, http.StatusBadRequest, "invalid_token", "Invalid or expired token")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	clearSessionCookie(w, h.cfg.IsProduction())
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}
