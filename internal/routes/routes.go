package routes

import (
	"net/http"
	"time"

	"calcapi/internal/auth"
	"calcapi/internal/config"
	appmw "calcapi/internal/middleware"
	"calcapi/internal/repository"
	"calcapi/internal/services"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

func SetupRoutes(store repository.UserStore, cfg *config.Config) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	codec := auth.NewTokenCodec(cfg.AuthSecret, time.Duration(cfg.JWTExpiresInSeconds)*time.Second)
	hasher := auth.NewPasswordHasher(cfg.PBKDF2Iterations)
	creds := services.NewCredentialService(store, hasher)

	// The gate runs on every request; everything past here is protected
	// unless the path is on the public allowlist.
	r.Use(appmw.SessionGate(codec))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	RegisterPageRoutes(r)
	RegisterAuthRoutes(r, creds, codec, cfg)
	RegisterAccountRoutes(r, creds)

	return r
}
