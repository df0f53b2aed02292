package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/sakif/microblog/internal/apperror"
	"github.com/sakif/microblog/internal/auth"
	"github.com/sakif/microblog/internal/middleware"
	"github.com/sakif/microblog/internal/model"
	"github.com/sakif/microblog/internal/service"
)

// PostHandler serves the feed and post CRUD.
type PostHandler struct {
	posts  *service.PostService
	logger *slog.Logger
}

// NewPostHandler creates a new PostHandler.
func NewPostHandler(posts *service.PostService, logger *slog.Logger) *PostHandler {
	return &PostHandler{posts: posts, logger: logger}
}

// createPostRequest is the expected body for POST /api/posts. Date is
// optional; import tools send it to backdate posts, normal clients omit it.
type createPostRequest struct {
	Text  string       `json:"text"`
	Media *model.Media `json:"media"`
	Date  string       `json:"date"`
}

// likeRequest is the expected body for PATCH like endpoints. A pointer
// distinguishes `{"like": false}` (unlike) from a missing field.
type likeRequest struct {
	Like *bool `json:"like"`
}

// HandleFeed returns a page of posts, optionally filtered.
//
// HTTP: GET /api/posts?filter=...&filterData=...&maxDate=...&limit=...
//
// FILTERS:
// The filter/filterData pair selects one of the feed views — by author
// username, by author id, posts the caller liked, posts from followed
// users, or posts inside a date window. No filter means the global feed.
// Pagination rides on the shared maxDate/limit params regardless of
// which filter is active.
func (h *PostHandler) HandleFeed(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter, err := service.ParseFeedFilter(q.Get("filter"), q.Get("filterData"))
	if err != nil {
		writeError(w, err)
		return
	}

	page := middleware.PageFromContext(r.Context())
	posts, err := h.posts.Feed(r.Context(), filter, page)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, posts)
}

// HandleGet returns a single post by id.
//
// HTTP: GET /api/posts/{id}
func (h *PostHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	post, err := h.posts.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, post)
}

// HandleCreate publishes a new post for the authenticated caller.
//
// HTTP: POST /api/posts
//
// A post can be text-only, media-only, or both; empty text with no media is
// still accepted (the original clients rely on that).
func (h *PostHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, apperror.Unauthorized("Access denied. No token provided."))
		return
	}

	var req createPostRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperror.ValidationFailed("", "Invalid request body"))
		return
	}

	post, err := h.posts.Create(r.Context(), identity.ID, req.Text, req.Media, req.Date)
	if err != nil {
		writeError(w, err)
		return
	}

	h.logger.Info("post created",
		slog.String("post_id", post.ID),
		slog.String("user_id", identity.ID))

	writeJSON(w, http.StatusOK, post)
}

// HandleLike toggles the caller's like on a post.
//
// HTTP: PATCH /api/posts/{id} with body {"like": true|false}
//
// Responds with the post's new like count:
//
//	{"likes": 42}
func (h *PostHandler) HandleLike(w http.ResponseWriter, r *http.Request) {
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

	likes, err := h.posts.Like(r.Context(), r.PathValue("id"), identity.ID, *req.Like)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, struct {
		Likes int `json:"likes"`
	}{Likes: likes})
}

// HandleDelete removes the caller's own post and everything hanging off it
// (media, comments, likes). The deleted post is echoed back.
//
// HTTP: DELETE /api/posts/{id}
func (h *PostHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, apperror.Unauthorized("Access denied. No token provided."))
		return
	}

	post, err := h.posts.Delete(r.Context(), r.PathValue("id"), identity.ID)
	if err != nil {
		writeError(w, err)
		return
	}

	h.logger.Info("post deleted",
		slog.String("post_id", post.ID),
		slog.String("user_id", identity.ID))

	writeJSON(w, http.StatusOK, post)
}
