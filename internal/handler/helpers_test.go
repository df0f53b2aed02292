package handler_test

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/sakif/microblog/internal/auth"
	"github.com/sakif/microblog/internal/handler"
	"github.com/sakif/microblog/internal/model"
	"github.com/sakif/microblog/internal/repository/sqlite"
	"github.com/sakif/microblog/internal/service"
)

// HANDLER TESTS:
// These tests run the real services against an in-memory SQLite database,
// so each request exercises the same path production traffic takes —
// handler → service → repository — minus only the router and middleware.
// Authentication is injected straight into the request context with
// auth.ContextWithIdentity instead of minting a token per request.

// testEnv bundles everything a handler test needs.
type testEnv struct {
	db       *sqlite.DB
	auth     *handler.AuthHandler
	users    *handler.UserHandler
	posts    *handler.PostHandler
	comments *handler.CommentHandler
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := sqlite.New(":memory:")
	if err != nil {
		t.Fatalf("failed to create test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	tokens, err := auth.NewTokenService("test-secret-key-long-enough")
	if err != nil {
		t.Fatalf("failed to create token service: %v", err)
	}
	passwords := auth.NewPasswordServiceForTest(4)

	authSvc := service.NewAuthService(db, tokens, passwords, logger)
	userSvc := service.NewUserService(db, db, db, tokens, passwords, logger)
	postSvc := service.NewPostService(db, db, db, db, logger)
	commentSvc := service.NewCommentService(db, db, db, logger)

	return &testEnv{
		db:       db,
		auth:     handler.NewAuthHandler(authSvc, logger),
		users:    handler.NewUserHandler(userSvc, logger),
		posts:    handler.NewPostHandler(postSvc, logger),
		comments: handler.NewCommentHandler(commentSvc, logger),
	}
}

// seedUser inserts a user directly through the repository, bypassing
// registration validation, and returns it.
func seedUser(t *testing.T, env *testEnv, username string) *model.User {
	t.Helper()
	user := &model.User{
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: "$2a$04$notarealhashbutlongenough",
	}
	if err := env.db.CreateUser(context.Background(), user); err != nil {
		t.Fatalf("failed to seed user: %v", err)
	}
	return user
}

// seedPost inserts a post for the given author.
func seedPost(t *testing.T, env *testEnv, userID, text string) *model.Post {
	t.Helper()
	post := &model.Post{UserID: userID, Text: text}
	if err := env.db.CreatePost(context.Background(), post, nil); err != nil {
		t.Fatalf("failed to seed post: %v", err)
	}
	return post
}

// authedRequest builds a request carrying the given user's identity, as if
// it had passed through RequireAuth.
func authedRequest(method, target string, body string, user *model.User) *http.Request {
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)
	return req.WithContext(auth.ContextWithIdentity(req.Context(), auth.Identity{
		ID:       user.ID,
		Username: user.Username,
		Email:    user.Email,
	}))
}
