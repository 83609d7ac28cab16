package handlers

import (
	"errors"
	"net/http"

	"log/slog"

	"github.com/subhubsl/subhub/lib/auth"
)

type authPageData struct {
	baseData
	Error string
	Email string
}

// HandleLoginPage renders the sign-in form.
func HandleLoginPage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, role := auth.UserFrom(r.Context()); role != auth.RoleAnonymous {
			http.Redirect(w, r, "/", http.StatusSeeOther)
			return
		}
		renderPage(w, r, "login.html", authPageData{baseData: newBaseData(r)})
	}
}

// HandleLogin checks credentials and opens a session.
func HandleLogin(svc *auth.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		email := r.FormValue("email")
		password := r.FormValue("password")

		user, err := svc.Authenticate(r.Context(), email, password)
		if errors.Is(err, auth.ErrInvalidCredentials) {
			w.WriteHeader(http.StatusUnauthorized)
			renderPage(w, r, "login.html", authPageData{
				baseData: newBaseData(r),
				Error:    "Invalid email or password.",
				Email:    email,
			})
			return
		}
		if err != nil {
			slog.Error("Failed to authenticate", slog.Any("error", err))
			renderError(w, r, "Sign-in is unavailable right now. Please try again later.", http.StatusInternalServerError)
			return
		}

		if err := svc.SignIn(w, r, user); err != nil {
			slog.Error("Failed to open session", slog.Any("error", err))
			renderError(w, r, "Sign-in is unavailable right now. Please try again later.", http.StatusInternalServerError)
			return
		}
		http.Redirect(w, r, "/", http.StatusSeeOther)
	}
}

// HandleRegisterPage renders the registration form.
func HandleRegisterPage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		renderPage(w, r, "register.html", authPageData{baseData: newBaseData(r)})
	}
}

// HandleRegister creates the account and signs the new user in.
func HandleRegister(svc *auth.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		email := r.FormValue("email")
		name := r.FormValue("display_name")
		password := r.FormValue("password")

		if email == "" || password == "" {
			w.WriteHeader(http.StatusBadRequest)
			renderPage(w, r, "register.html", authPageData{
				baseData: newBaseData(r),
				Error:    "Email and password are required.",
				Email:    email,
			})
			return
		}

		user, err := svc.Register(r.Context(), email, name, password)
		if errors.Is(err, auth.ErrEmailTaken) {
			w.WriteHeader(http.StatusConflict)
			renderPage(w, r, "register.html", authPageData{
				baseData: newBaseData(r),
				Error:    "That email is already registered.",
				Email:    email,
			})
			return
		}
		if err != nil {
			slog.Error("Failed to register", slog.Any("error", err))
			renderError(w, r, "Registration is unavailable right now. Please try again later.", http.StatusInternalServerError)
			return
		}

		if err := svc.SignIn(w, r, user); err != nil {
			slog.Error("Failed to open session", slog.Any("error", err))
			renderError(w, r, "Registration is unavailable right now. Please try again later.", http.StatusInternalServerError)
			return
		}
		http.Redirect(w, r, "/", http.StatusSeeOther)
	}
}

// HandleLogout clears the session.
func HandleLogout(svc *auth.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := svc.SignOut(w, r); err != nil {
			slog.Error("Failed to sign out", slog.Any("error", err))
		}
		http.Redirect(w, r, "/", http.StatusSeeOther)
	}
}

// HandleProfile shows the viewer's profile page.
func HandleProfile() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		renderPage(w, r, "profile.html", newBaseData(r))
	}
}
