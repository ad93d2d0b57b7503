package routes

import (
	"calcapi/internal/auth"
	"calcapi/internal/config"
	"calcapi/internal/handlers"
	"calcapi/internal/services"
	"github.com/go-chi/chi/v5"
)

func RegisterAuthRoutes(router chi.Router, creds *services.CredentialService, codec *auth.TokenCodec, cfg *config.Config) {
	mailer := &services.SMTPSender{
		Host:   cfg.SMTPHost,
		Port:   cfg.SMTPPort,
		User:   cfg.SMTPUser,
		Pass:   cfg.SMTPPassword,
		From:   cfg.SMTPFrom,
		UseTLS: cfg.SMTPUseTLS,
	}
	authHandler := handlers.NewAuthHandler(creds, codec, mailer, cfg)

	router.Post("/api/register", authHandler.Register)
	router.Post("/api/login", authHandler.Login)
	router.Post("/api/forgot", authHandler.ForgotPassword)
	router.Post("/api/reset", authHandler.ResetPassword)
	router.Post("/api/logout", authHandler.Logout)
}
