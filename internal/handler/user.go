package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/sakif/microblog/internal/apperror"
	"github.com/sakif/microblog/internal/auth"
	"github.com/sakif/microblog/internal/middleware"
	"github.com/sakif/microblog/internal/service"
)

// UserHandler serves profiles, follow listings, and profile updates.
type UserHandler struct {
	users  *service.UserService
	logger *slog.Logger
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(users *service.UserService, logger *slog.Logger) *UserHandler {
	return &UserHandler{users: users, logger: logger}
}

// HandleMe returns the authenticated caller's own profile, private fields
// included.
//
// HTTP: GET /api/users/me
func (h *UserHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, apperror.Unauthorized("Access denied. No token provided."))
		return
	}

	user, err := h.users.Get(r.Context(), identity.ID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, struct {
		ID          string `json:"_id"`
		Email       string `json:"email"`
		Username    string `json:"username"`
		Description string `json:"description"`
		ProfilePic  string `json:"profilePic"`
	}{
		ID:          user.ID,
		Email:       user.Email,
		Username:    user.Username,
		Description: user.Description,
		ProfilePic:  user.ProfilePic,
	})
}

// HandleGetUser returns another user's public profile: no email, no
// description, just what's needed to render an avatar and a name.
//
// HTTP: GET /api/users/{id}
func (h *UserHandler) HandleGetUser(w http.ResponseWriter, r *http.Request) {
	user, err := h.users.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, struct {
		ID         string `json:"_id"`
		Username   string `json:"username"`
		ProfilePic string `json:"profilePic"`
	}{
		ID:         user.ID,
		Username:   user.Username,
		ProfilePic: user.ProfilePic,
	})
}

// HandleFollowing lists who a user follows, newest first, paginated by the
// shared maxDate/limit query params.
//
// HTTP: GET /api/users/{id}/following
func (h *UserHandler) HandleFollowing(w http.ResponseWriter, r *http.Request) {
	page := middleware.PageFromContext(r.Context())
	entries, err := h.users.Following(r.Context(), r.PathValue("id"), page)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

// HandleFollowers lists who follows a user.
//
// HTTP: GET /api/users/{id}/followers
func (h *UserHandler) HandleFollowers(w http.ResponseWriter, r *http.Request) {
	page := middleware.PageFromContext(r.Context())
	entries, err := h.users.Followers(r.Context(), r.PathValue("id"), page)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

// HandleCheckLiked reports whether the caller has liked a piece of content.
//
// HTTP: GET /api/users/me/checkLiked/{id}?type=post|comment
//
// The response body is the bare JSON literal true or false.
func (h *UserHandler) HandleCheckLiked(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, apperror.Unauthorized("Access denied. No token provided."))
		return
	}

	liked, err := h.users.CheckLiked(r.Context(), identity.ID,
		r.PathValue("id"), r.URL.Query().Get("type"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, liked)
}

// HandleCheckFollowing reports whether the caller follows the given user.
//
// HTTP: GET /api/users/me/checkFollowing/{id}
func (h *UserHandler) HandleCheckFollowing(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, apperror.Unauthorized("Access denied. No token provided."))
		return
	}

	following, err := h.users.CheckFollowing(r.Context(), identity.ID, r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, following)
}

// HandleUpdateMe applies a single profile change.
//
// HTTP: PATCH /api/users/me
//
// The body names exactly one field to change (email, username, description,
// password, profilePic, or following). The response is plain text — the new
// value, or a confirmation like "Following" — and a fresh token rides in
// x-auth-token, since the token embeds profile data that may just have
// changed.
func (h *UserHandler) HandleUpdateMe(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, apperror.Unauthorized("Access denied. No token provided."))
		return
	}

	var upd service.ProfileUpdate
	if err := json.NewDecoder(r.Body).Decode(&upd); err != nil {
		writeError(w, apperror.ValidationFailed("", "Invalid request body"))
		return
	}

	result, err := h.users.UpdateProfile(r.Context(), identity.ID, upd)
	if err != nil {
		writeError(w, err)
		return
	}

	h.logger.Info("profile updated", slog.String("user_id", identity.ID))

	setAuthToken(w, result.Token)
	writeText(w, http.StatusOK, result.Value)
}
