package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/sakif/microblog/internal/apperror"
	"github.com/sakif/microblog/internal/service"
)

// AuthHandler manages registration and login.
//
// WHY A SEPARATE HANDLER?
// Separating auth logic from profile logic follows the Single Responsibility
// Principle. Each handler struct "owns" one area of functionality — all the
// code that mints tokens lives here and in UserHandler's profile update
// (which reissues them).
type AuthHandler struct {
	auth   *service.AuthService
	logger *slog.Logger
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(auth *service.AuthService, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{auth: auth, logger: logger}
}

// registerRequest is the expected body for POST /api/users.
type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// loginRequest is the expected body for POST /api/auth.
type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// HandleRegister creates a new account.
//
// HTTP: POST /api/users
//
// The token travels in the x-auth-token response header rather than the
// body, so a client can register and immediately act as the new user
// without a separate login round trip. The body echoes the public part of
// the new account:
//
//	{"_id":"...","username":"sakif","email":"sakif@example.com"}
func (h *AuthHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperror.ValidationFailed("", "Invalid request body"))
		return
	}

	user, token, err := h.auth.Register(r.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}

	h.logger.Info("user registered",
		slog.String("user_id", user.ID),
		slog.String("username", user.Username))

	setAuthToken(w, token)
	writeJSON(w, http.StatusOK, struct {
		ID       string `json:"_id"`
		Username string `json:"username"`
		Email    string `json:"email"`
	}{
		ID:       user.ID,
		Username: user.Username,
		Email:    user.Email,
	})
}

// HandleLogin exchanges credentials for a token.
//
// HTTP: POST /api/auth
//
// The token is the entire response body, as plain text. Bad credentials —
// whether the email is unknown or the password is wrong — always produce
// the same 400 so an attacker cannot probe which emails are registered.
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperror.ValidationFailed("", "Invalid request body"))
		return
	}

	token, err := h.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}

	setAuthToken(w, token)
	writeText(w, http.StatusOK, token)
}
