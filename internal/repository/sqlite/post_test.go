package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sakif/microblog/internal/apperror"
	"github.com/sakif/microblog/internal/model"
	"github.com/sakif/microblog/internal/repository"
)

// createTestPost creates a post for the given author at the given time.
// Passing the date explicitly lets tests control feed ordering.
func createTestPost(t *testing.T, db *DB, userID, text string, date time.Time) *model.Post {
	t.Helper()
	post := &model.Post{UserID: userID, Text: text, Date: date}
	if err := db.CreatePost(context.Background(), post, nil); err != nil {
		t.Fatalf("failed to create test post: %v", err)
	}
	return post
}

// testPage is a window wide enough to see everything created during a test.
func testPage() repository.Page {
	return repository.Page{MaxDate: time.Now().Add(time.Hour), Limit: 100}
}

// =========================================================================
// CREATE TESTS
// =========================================================================

func TestCreatePost(t *testing.T) {
	db := newTestDB(t)
	user := createTestUser(t, db, "author")

	post := &model.Post{UserID: user.ID, Text: "first post"}
	if err := db.CreatePost(context.Background(), post, nil); err != nil {
		t.Fatalf("CreatePost() error = %v", err)
	}

	if post.ID == "" {
		t.Error("CreatePost() did not set post.ID")
	}
	if post.Date.IsZero() {
		t.Error("CreatePost() did not set post.Date")
	}
}

func TestCreatePost_WithMedia(t *testing.T) {
	db := newTestDB(t)
	user := createTestUser(t, db, "author")

	post := &model.Post{UserID: user.ID, Text: "look at this"}
	media := &model.Media{Type: model.MediaImage, Data: "data:image/png;base64,abc"}

	if err := db.CreatePost(context.Background(), post, media); err != nil {
		t.Fatalf("CreatePost() error = %v", err)
	}
	if media.ID == "" {
		t.Error("CreatePost() did not set media.ID")
	}
	if post.MediaID != media.ID {
		t.Errorf("post.MediaID = %q, want %q", post.MediaID, media.ID)
	}

	// Read back: the media should come populated with the post.
	found, err := db.GetPostByID(context.Background(), post.ID)
	if err != nil {
		t.Fatalf("GetPostByID() error = %v", err)
	}
	if found.Media == nil {
		t.Fatal("GetPostByID() returned nil Media")
	}
	if found.Media.Type != model.MediaImage {
		t.Errorf("Media.Type = %q, want %q", found.Media.Type, model.MediaImage)
	}
	if found.Media.Data != "data:image/png;base64,abc" {
		t.Errorf("Media.Data = %q", found.Media.Data)
	}
}

// =========================================================================
// GET TESTS
// =========================================================================

func TestGetPostByID_PopulatesAuthor(t *testing.T) {
	db := newTestDB(t)
	user := createTestUser(t, db, "author")
	created := createTestPost(t, db, user.ID, "hello", time.Now())

	found, err := db.GetPostByID(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("GetPostByID() error = %v", err)
	}

	if found.User == nil {
		t.Fatal("GetPostByID() returned nil User")
	}
	if found.User.Username != "author" {
		t.Errorf("User.Username = %q, want %q", found.User.Username, "author")
	}
	if found.Media != nil {
		t.Errorf("Media = %+v, want nil for a text-only post", found.Media)
	}
}

func TestGetPostByID_NotFound(t *testing.T) {
	db := newTestDB(t)

	_, err := db.GetPostByID(context.Background(), "nonexistent")
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}

// =========================================================================
// LIST TESTS
// =========================================================================

func TestListPosts_NewestFirst(t *testing.T) {
	db := newTestDB(t)
	user := createTestUser(t, db, "author")
	base := time.Now().Add(-time.Hour)

	oldest := createTestPost(t, db, user.ID, "oldest", base)
	middle := createTestPost(t, db, user.ID, "middle", base.Add(time.Minute))
	newest := createTestPost(t, db, user.ID, "newest", base.Add(2*time.Minute))

	posts, err := db.ListPosts(context.Background(), testPage())
	if err != nil {
		t.Fatalf("ListPosts() error = %v", err)
	}
	if len(posts) != 3 {
		t.Fatalf("len(posts) = %d, want 3", len(posts))
	}
	if posts[0].ID != newest.ID || posts[1].ID != middle.ID || posts[2].ID != oldest.ID {
		t.Errorf("wrong order: got %s, %s, %s", posts[0].Text, posts[1].Text, posts[2].Text)
	}
}

func TestListPosts_RespectsLimit(t *testing.T) {
	db := newTestDB(t)
	user := createTestUser(t, db, "author")
	base := time.Now().Add(-time.Hour)

	for i := 0; i < 7; i++ {
		createTestPost(t, db, user.ID, "post", base.Add(time.Duration(i)*time.Minute))
	}

	posts, err := db.ListPosts(context.Background(), repository.Page{
		MaxDate: time.Now(),
		Limit:   5,
	})
	if err != nil {
		t.Fatalf("ListPosts() error = %v", err)
	}
	if len(posts) != 5 {
		t.Errorf("len(posts) = %d, want 5", len(posts))
	}
}

func TestListPosts_CursorIsExclusive(t *testing.T) {
	db := newTestDB(t)
	user := createTestUser(t, db, "author")
	base := time.Now().Add(-time.Hour)

	older := createTestPost(t, db, user.ID, "older", base)
	newer := createTestPost(t, db, user.ID, "newer", base.Add(time.Minute))

	// Paginating with the newer post's own date must skip it.
	posts, err := db.ListPosts(context.Background(), repository.Page{
		MaxDate: newer.Date,
		Limit:   100,
	})
	if err != nil {
		t.Fatalf("ListPosts() error = %v", err)
	}
	if len(posts) != 1 || posts[0].ID != older.ID {
		t.Errorf("posts = %v, want only the older post", posts)
	}
}

func TestListPostsByAuthors(t *testing.T) {
	db := newTestDB(t)
	alice := createTestUser(t, db, "alice")
	bob := createTestUser(t, db, "bob")
	carol := createTestUser(t, db, "carol")
	base := time.Now().Add(-time.Hour)

	createTestPost(t, db, alice.ID, "from alice", base)
	createTestPost(t, db, bob.ID, "from bob", base.Add(time.Minute))
	createTestPost(t, db, carol.ID, "from carol", base.Add(2*time.Minute))

	posts, err := db.ListPostsByAuthors(context.Background(), []string{alice.ID, bob.ID}, testPage())
	if err != nil {
		t.Fatalf("ListPostsByAuthors() error = %v", err)
	}
	if len(posts) != 2 {
		t.Fatalf("len(posts) = %d, want 2", len(posts))
	}
	for _, p := range posts {
		if p.UserID == carol.ID {
			t.Error("ListPostsByAuthors() leaked a post from an excluded author")
		}
	}
}

func TestListPostsByAuthors_EmptySet(t *testing.T) {
	db := newTestDB(t)

	posts, err := db.ListPostsByAuthors(context.Background(), nil, testPage())
	if err != nil {
		t.Fatalf("ListPostsByAuthors() error = %v", err)
	}
	if len(posts) != 0 {
		t.Errorf("len(posts) = %d, want 0", len(posts))
	}
}

func TestListPostsByIDs(t *testing.T) {
	db := newTestDB(t)
	user := createTestUser(t, db, "author")
	base := time.Now().Add(-time.Hour)

	wanted := createTestPost(t, db, user.ID, "wanted", base)
	createTestPost(t, db, user.ID, "other", base.Add(time.Minute))

	posts, err := db.ListPostsByIDs(context.Background(), []string{wanted.ID}, testPage())
	if err != nil {
		t.Fatalf("ListPostsByIDs() error = %v", err)
	}
	if len(posts) != 1 || posts[0].ID != wanted.ID {
		t.Errorf("posts = %v, want only %s", posts, wanted.ID)
	}
}

func TestListPostsInRange(t *testing.T) {
	db := newTestDB(t)
	user := createTestUser(t, db, "author")
	base := time.Date(2026, 8, 10, 12, 0, 0, 0, time.UTC)

	before := createTestPost(t, db, user.ID, "before", base.Add(-24*time.Hour))
	inside := createTestPost(t, db, user.ID, "inside", base)
	atEnd := createTestPost(t, db, user.ID, "at end", base.Add(24*time.Hour))

	// [base, base+24h): start inclusive, end exclusive.
	posts, err := db.ListPostsInRange(context.Background(), base, base.Add(24*time.Hour), testPage())
	if err != nil {
		t.Fatalf("ListPostsInRange() error = %v", err)
	}
	if len(posts) != 1 {
		t.Fatalf("len(posts) = %d, want 1", len(posts))
	}
	if posts[0].ID != inside.ID {
		t.Errorf("got %s, want %s (excluded: %s, %s)", posts[0].ID, inside.ID, before.ID, atEnd.ID)
	}
}

// =========================================================================
// LIKE DELTA TESTS
// =========================================================================

func TestApplyPostLikeDelta_LikeAndUnlike(t *testing.T) {
	db := newTestDB(t)
	user := createTestUser(t, db, "author")
	post := createTestPost(t, db, user.ID, "likeable", time.Now())
	ctx := context.Background()

	likes, err := db.ApplyPostLikeDelta(ctx, post.ID, user.ID, 1)
	if err != nil {
		t.Fatalf("ApplyPostLikeDelta(+1) error = %v", err)
	}
	if likes != 1 {
		t.Errorf("likes = %d, want 1", likes)
	}

	// The like row lands alongside the counter.
	liked, err := db.LikeExists(ctx, model.ContentPost, user.ID, post.ID)
	if err != nil {
		t.Fatalf("LikeExists() error = %v", err)
	}
	if !liked {
		t.Error("LikeExists() = false after liking")
	}

	likes, err = db.ApplyPostLikeDelta(ctx, post.ID, user.ID, -1)
	if err != nil {
		t.Fatalf("ApplyPostLikeDelta(-1) error = %v", err)
	}
	if likes != 0 {
		t.Errorf("likes = %d, want 0", likes)
	}

	liked, err = db.LikeExists(ctx, model.ContentPost, user.ID, post.ID)
	if err != nil {
		t.Fatalf("LikeExists() error = %v", err)
	}
	if liked {
		t.Error("LikeExists() = true after unliking")
	}
}

func TestApplyPostLikeDelta_UnlikeAtZero(t *testing.T) {
	db := newTestDB(t)
	user := createTestUser(t, db, "author")
	post := createTestPost(t, db, user.ID, "never liked", time.Now())

	_, err := db.ApplyPostLikeDelta(context.Background(), post.ID, user.ID, -1)
	if !errors.Is(err, apperror.ErrValidation) {
		t.Errorf("error = %v, want ErrValidation", err)
	}

	var appErr *apperror.AppError
	if errors.As(err, &appErr) && appErr.Message != "Can't unlike a post with 0 likes" {
		t.Errorf("Message = %q", appErr.Message)
	}
}

func TestApplyPostLikeDelta_PostNotFound(t *testing.T) {
	db := newTestDB(t)
	user := createTestUser(t, db, "author")

	_, err := db.ApplyPostLikeDelta(context.Background(), "nonexistent", user.ID, 1)
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}

// =========================================================================
// DELETE TESTS
// =========================================================================

func TestDeletePost_Cascades(t *testing.T) {
	db := newTestDB(t)
	author := createTestUser(t, db, "author")
	fan := createTestUser(t, db, "fan")
	ctx := context.Background()

	post := &model.Post{UserID: author.ID, Text: "doomed"}
	media := &model.Media{Type: model.MediaImage, Data: "data:image/png;base64,abc"}
	if err := db.CreatePost(ctx, post, media); err != nil {
		t.Fatalf("CreatePost() error = %v", err)
	}

	comment := &model.Comment{PostID: post.ID, UserID: fan.ID, Text: "nice"}
	if err := db.CreateComment(ctx, comment); err != nil {
		t.Fatalf("CreateComment() error = %v", err)
	}

	if _, err := db.ApplyPostLikeDelta(ctx, post.ID, fan.ID, 1); err != nil {
		t.Fatalf("ApplyPostLikeDelta() error = %v", err)
	}
	if _, err := db.ApplyCommentLikeDelta(ctx, comment.ID, fan.ID, 1); err != nil {
		t.Fatalf("ApplyCommentLikeDelta() error = %v", err)
	}

	deleted, err := db.DeletePost(ctx, post.ID)
	if err != nil {
		t.Fatalf("DeletePost() error = %v", err)
	}
	if deleted.ID != post.ID {
		t.Errorf("deleted.ID = %q, want %q", deleted.ID, post.ID)
	}
	if deleted.Media == nil {
		t.Error("DeletePost() should return the post as it was, media included")
	}

	// Everything hanging off the post is gone.
	if _, err := db.GetPostByID(ctx, post.ID); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("post still readable after delete: %v", err)
	}
	if _, err := db.GetCommentByID(ctx, comment.ID); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("comment still readable after delete: %v", err)
	}
	if liked, _ := db.LikeExists(ctx, model.ContentPost, fan.ID, post.ID); liked {
		t.Error("post like row survived the cascade")
	}
	if liked, _ := db.LikeExists(ctx, model.ContentComment, fan.ID, comment.ID); liked {
		t.Error("comment like row survived the cascade")
	}
}

func TestDeletePost_NotFound(t *testing.T) {
	db := newTestDB(t)

	_, err := db.DeletePost(context.Background(), "nonexistent")
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}
