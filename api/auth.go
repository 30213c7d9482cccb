package api

import "net/http"

const tokenCookie = "token"

func (s *server) register(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Username string `json:"username"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := readJSON(r, &body); err != nil {
		writeError(w, r, err)
		return
	}

	acc, err := s.app.Auth.Register(r.Context(), body.Username, body.Email, body.Password)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"error":   false,
		"message": "User registered successfully",
		"user":    acc.Excerpt(),
	})
}

func (s *server) login(w http.ResponseWriter, r *http.Request) {
	var body struct {
		UsernameOrEmail string `json:"usernameOrEmail"`
		Password        string `json:"password"`
	}
	if err := readJSON(r, &body); err != nil {
		writeError(w, r, err)
		return
	}

	acc, token, err := s.app.Auth.Login(r.Context(), body.UsernameOrEmail, body.Password)
	if err != nil {
		writeError(w, r, err)
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     tokenCookie,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteStrictMode,
		MaxAge:   int(s.app.Tokens.TTL().Seconds()),
	})
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"error":   false,
		"message": "Login successful",
		"user":    acc.Excerpt(),
		"token":   token,
	})
}

func (s *server) logout(w http.ResponseWriter, _ *http.Request) {
	http.SetCookie(w, &http.Cookie{Name: tokenCookie, Value: "", Path: "/", MaxAge: -1})
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"error":   false,
		"message": "Logged out successfully",
	})
}
