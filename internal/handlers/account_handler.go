package handlers

import (
	"encoding/json"
	"net/http"

	appmw "calcapi/internal/middleware"
	"calcapi/internal/models"
	"calcapi/internal/services"
	"github.com/go-playground/validator/v10"
)

// AccountHandler serves the gated account endpoints; the session gate
// has already verified the token and put the claims on the context.
type AccountHandler struct {
	creds *services.CredentialService
	v     *validator.Validate
}

func NewAccountHandler(creds *services.CredentialService) *AccountHandler {
	return &AccountHandler{creds: creds, v: validator.New()}
}

func (h *AccountHandler) Me(w http.ResponseWriter, r *http.Request) {
	id, _ := r.Context().Value(appmw.CtxUserID).(string)
	email, _ := r.Context().Value(appmw.CtxEmail).(string)
	name, _ := r.Context().Value(appmw.CtxName).(string)
	writeJSON(w, http.StatusOK, map[string]any{"user": models.PublicUser{ID: id, Name: name, Email: email}})
}

func (h *AccountHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	var req models.ChangePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return
	}
	if err := h.v.Struct(req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "validation_error", err.Error())
		return
	}

	email, _ := r.Context().Value(appmw.CtxEmail).(string)
	ok, err := h.creds.ChangePassword(r.Context(), email, req.OldPassword, req.NewPassword)
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, "change_password_failed", "Failed to change password")
		return
	}
	if !ok {
		writeJSONError(w, http.StatusUnauthorized, "invalid_credentials", "Invalid credentials")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}
