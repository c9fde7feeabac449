package api

import (
	"log/slog"
	"net/http"

	"github.com/dyluth/cantas/internal/auth"
	"github.com/dyluth/cantas/internal/models"
)

// devCredential is the username and password accepted by the development login.
const devCredential = "admin"

type sessions struct {
	svc    *models.Service
	auth   *auth.Authenticator
	logger *slog.Logger
}

// login signs in the development administrator, creating the user on first
// use, and sets the session cookie.
func (s *sessions) login(w http.ResponseWriter, r *http.Request) {
	username := r.FormValue("username")
	if username != devCredential || r.FormValue("password") != devCredential {
		http.Error(w, "invalid credentials", http.StatusUnauthorized)
		return
	}

	user, created, err := s.svc.EnsureUser(r.Context(), username)
	if err != nil {
		s.logger.Error("failed to load user", "username", username, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if created {
		s.logger.Info("created user", "user", user.ID, "username", username)
	}

	token, err := s.auth.Issue(user.ID)
	if err != nil {
		s.logger.Error("failed to issue token", "user", user.ID, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     s.auth.CookieName(),
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// logout clears the session cookie.
func (s *sessions) logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:   s.auth.CookieName(),
		Value:  "",
		Path:   "/",
		MaxAge: -1,
	})
	http.Redirect(w, r, "/", http.StatusSeeOther)
}
