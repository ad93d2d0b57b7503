package routes

import (
	"net/http"

	"calcapi/internal/handlers"
	"github.com/go-chi/chi/v5"
)

func RegisterPageRoutes(router chi.Router) {
	router.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/dashboard", http.StatusFound)
	})
	router.Get("/welcome", handlers.WelcomePage)
	router.Get("/login", handlers.LoginPage)
	router.Get("/register", handlers.RegisterPage)
	router.Get("/forgot-password", handlers.ForgotPasswordPage)
	router.Get("/reset-password", handlers.ResetPasswordPage)
	router.Get("/dashboard", handlers.DashboardPage)
}
