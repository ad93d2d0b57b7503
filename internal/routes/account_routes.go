package routes

import (
	"calcapi/internal/handlers"
	"calcapi/internal/services"
	"github.com/go-chi/chi/v5"
)

func RegisterAccountRoutes(router chi.Router, creds *services.CredentialService) {
	accountHandler := handlers.NewAccountHandler(creds)

	router.Get("/api/me", accountHandler.Me)
	router.Post("/api/password", accountHandler.ChangePassword)
}
