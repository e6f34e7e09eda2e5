package web

import (
	"errors"
	"net/http"
	"strings"

	"tennisluv/internal/backend"
	"tennisluv/internal/service"
	"tennisluv/internal/session"
)

func (s *Server) handleLoginForm(w http.ResponseWriter, r *http.Request) {
	if sessionFrom(r).Authenticated() {
		http.Redirect(w, r, "/booking", http.StatusSeeOther)
		return
	}
	s.page(w, r, http.StatusOK, "login", "Anmelden", struct{ Email string }{})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)
	email := strings.TrimSpace(r.PostFormValue("email"))
	err := s.accounts.Login(r.Context(), sess, clientIP(r), email, r.PostFormValue("password"))
	if err != nil {
		status := http.StatusOK
		msg := service.UserMessage(err)
		switch {
		case errors.Is(err, backend.ErrAuthExpired):
			// a 401 on login means bad credentials, not an expired session
			status = http.StatusUnauthorized
			var apiErr *backend.APIError
			if !errors.As(err, &apiErr) || apiErr.Message == "" {
				msg = "Email or password is wrong."
			}
		case errors.Is(err, service.ErrRateLimited):
			status = http.StatusTooManyRequests
		}
		sess.AddFlash(session.FlashError, msg)
		s.page(w, r, status, "login", "Anmelden", struct{ Email string }{email})
		return
	}
	// the session got a new id on sign-in
	http.SetCookie(w, s.sessionCookie(sess.ID))
	sess.AddFlash(session.FlashSuccess, "Welcome, "+sess.User.DisplayName()+"!")
	http.Redirect(w, r, "/booking", http.StatusSeeOther)
}

func (s *Server) handleRegisterForm(w http.ResponseWriter, r *http.Request) {
	s.page(w, r, http.StatusOK, "register", "Registrieren", backend.RegisterRequest{})
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)
	req := registerForm(r)
	if err := s.accounts.Register(r.Context(), sess, req); err != nil {
		sess.AddFlash(session.FlashError, service.UserMessage(err))
		req.Password = ""
		s.page(w, r, http.StatusOK, "register", "Registrieren", req)
		return
	}
	http.Redirect(w, r, "/verify-pending", http.StatusSeeOther)
}

func (s *Server) handleVerifyPending(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)
	if sess.PendingEmail == "" {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}
	s.page(w, r, http.StatusOK, "verify_pending", "E-Mail bestätigen", struct{ Email string }{sess.PendingEmail})
}

func (s *Server) handleVerifyCheck(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)
	st, err := s.accounts.CheckVerification(r.Context(), sess)
	if err != nil {
		s.fail(w, r, err, "/verify-pending")
		return
	}
	if st.Enabled {
		sess.AddFlash(session.FlashSuccess, "Your email address is confirmed. Please sign in.")
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}
	sess.AddFlash(session.FlashInfo, "Not confirmed yet. Please follow the link in the email.")
	http.Redirect(w, r, "/verify-pending", http.StatusSeeOther)
}

func (s *Server) handleVerifyResend(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)
	msg, err := s.accounts.ResendVerification(r.Context(), sess)
	if err != nil {
		s.fail(w, r, err, "/verify-pending")
		return
	}
	if msg == "" {
		msg = "The email was sent again."
	}
	sess.AddFlash(session.FlashInfo, msg)
	http.Redirect(w, r, "/verify-pending", http.StatusSeeOther)
}

func (s *Server) handleVerify(w http.ResponseWriter, r *http.Request) {
	content := struct {
		OK      bool
		Message string
	}{}
	msg, err := s.accounts.Verify(r.Context(), r.URL.Query().Get("token"))
	status := http.StatusOK
	if err != nil {
		status = http.StatusBadRequest
		content.Message = service.UserMessage(err)
	} else {
		content.OK = true
		content.Message = msg
		if content.Message == "" {
			content.Message = "Your email address is confirmed."
		}
	}
	s.page(w, r, status, "verify", "E-Mail-Bestätigung", content)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)
	if err := s.accounts.Logout(r.Context(), sess); err != nil {
		s.logger.Error().Err(err).Msg("logout")
	}
	sess.AddFlash(session.FlashInfo, "You have been signed out.")
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	user, err := s.accounts.Profile(r.Context(), sessionFrom(r))
	if err != nil {
		if service.NeedsLogin(err) {
			s.fail(w, r, err, "/login")
			return
		}
		s.errorPage(w, r, statusFor(err), service.UserMessage(err))
		return
	}
	s.page(w, r, http.StatusOK, "profile", "Profil", user)
}

func (s *Server) handleDeleteAccount(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)
	if err := s.accounts.DeleteAccount(r.Context(), sess); err != nil {
		s.fail(w, r, err, "/profile")
		return
	}
	sess.AddFlash(session.FlashInfo, "Your account has been deleted.")
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) handleSettingsForm(w http.ResponseWriter, r *http.Request) {
	s.page(w, r, http.StatusOK, "settings", "Einstellungen", sessionFrom(r).User)
}

func (s *Server) handleSettings(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)
	if _, err := s.accounts.UpdateProfile(r.Context(), sess, profileForm(r)); err != nil {
		s.fail(w, r, err, "/settings")
		return
	}
	sess.AddFlash(session.FlashSuccess, "Your profile was saved.")
	http.Redirect(w, r, "/profile", http.StatusSeeOther)
}
