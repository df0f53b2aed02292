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

// CommentHandler serves comment listing, creation, likes, and deletion.
type CommentHandler struct {
	comments *service.CommentService
	logger   *slog.Logger
}

// NewCommentHandler creates a new CommentHandler.
func NewCommentHandler(comments *service.CommentService, logger *slog.Logger) *CommentHandler {
	return &CommentHandler{comments: comments, logger: logger}
}

// createCommentRequest is the expected body for POST /api/comments. Date is
// optional and lets import tools backdate comments.
type createCommentRequest struct {
	PostID string `json:"postId"`
	Text   string `json:"text"`
	Date   string `json:"date"`
}

// HandleList returns a page of comments on a post, newest first.
//
// HTTP: GET /api/comments?postId=...&maxDate=...&limit=...
func (h *CommentHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	page := middleware.PageFromContext(r.Context())
	comments, err := h.comments.List(r.Context(), r.URL.Query().Get("postId"), page)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, comments)
}

// HandleCreate adds a comment to a post for the authenticated caller.
//
// HTTP: POST /api/comments with body {"postId": "...", "text": "..."}
func (h *CommentHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, apperror.Unauthorized("Access denied. No token provided."))
		return
	}

	var req createCommentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperror.ValidationFailed("", "Invalid request body"))
		return
	}

	comment, err := h.comments.Create(r.Context(), identity.ID, req.PostID, req.Text, req.Date)
	if err != nil {
		writeError(w, err)
		return
	}

	h.logger.Info("comment created",
		slog.String("comment_id", comment.ID),
		slog.String("post_id", comment.PostID),
		slog.String("user_id", identity.ID))

	writeJSON(w, http.StatusOK, comment)
}

// HandleLike toggles the caller's like on a comment.
//
// HTTP: PATCH /api/comments/{id} with body {"like": true|false}
func (h *CommentHandler) HandleLike(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, apperror.Unauthorized("Access denied. No token provided."))
		return
	}

	var req likeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Like == nil {
		writeError(w, apperror.ValidationFailed("like", `"like" must be a boolean`))
		return
	}

	likes, err := h.comments.Like(r.Context(), r.PathValue("id"), identity.ID, *req.Like)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, struct {
		Likes int `json:"likes"`
	}{Likes: likes})
}

// HandleDelete removes the caller's own comment and echoes it back.
//
// HTTP: DELETE /api/comments/{id}
func (h *CommentHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, apperror.Unauthorized("Access denied. No token provided."))
		return
	}

	comment, err := h.comments.Delete(r.Context(), r.PathValue("id"), identity.ID)
	if err != nil {
		writeError(w, err)
		return
	}

	h.logger.Info("comment deleted",
		slog.String("comment_id", comment.ID),
		slog.String("user_id", identity.ID))

	writeJSON(w, http.StatusOK, comment)
}
