package handlers

import (
	"fmt"
	"html"
	"net/http"

	appmw "calcapi/internal/middleware"
)

// The page handlers are deliberately skeletal: the real UI lives in the
// frontend. They exist so the gate's redirect target and the gated
// pages are routable.

func page(title, body string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprintf(w, "<!DOCTYPE html><html><head><title>%s</title></head><body><h1>%s</h1>%s</body></html>", title, title, body)
	}
}

var (
	WelcomePage        = page("Welcome", `<p><a href="/login">Log in</a> or <a href="/register">register</a> to use the calculators.</p>`)
	LoginPage          = page("Log in", `<p>POST /api/login</p>`)
	RegisterPage       = page("Register", `<p>POST /api/register</p>`)
	ForgotPasswordPage = page("Forgot password", `<p>POST /api/forgot</p>`)
	ResetPasswordPage  = page("Reset password", `<p>POST /api/reset</p>`)
)

func DashboardPage(w http.ResponseWriter, r *http.Request) {
	name, _ := r.Context().Value(appmw.CtxName).(string)
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprintf(w, "<!DOCTYPE html><html><head><title>Dashboard</title></head><body><h1>Dashboard</h1><p>Signed in as %s.</p></body></html>", html.EscapeString(name))
}
