// Package repository defines the storage interfaces the service layer
// programs against. The concrete implementation lives in repository/sqlite;
// tests substitute in-memory fakes.
package repository

import (
	"context"
	"time"

	"github.com/sakif/microblog/internal/model"
)

// Page is the normalized pagination window every list query takes:
// an exclusive upper bound on the date column plus a result cap.
// Feeds paginate newest-first by passing the date of the oldest item seen
// so far as the next MaxDate.
type Page struct {
	MaxDate time.Time
	Limit   int
}

// UserRepository reads and writes user accounts.
//
// The Set* methods update exactly one column each — profile updates are
// one-field-per-request at the API level, and keeping that shape here avoids
// a generic "update these columns" map.
type UserRepository interface {
	CreateUser(ctx context.Context, user *model.User) error
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	UserExists(ctx context.Context, id string) (bool, error)
	UsernameExists(ctx context.Context, username string) (bool, error)
	EmailExists(ctx context.Context, email string) (bool, error)
	// SearchIDsByUsername returns the ids of users whose username contains
	// the given substring, case-insensitively.
	SearchIDsByUsername(ctx context.Context, substr string) ([]string, error)
	SetEmail(ctx context.Context, id, email string) error
	SetUsername(ctx context.Context, id, username string) error
	SetDescription(ctx context.Context, id, description string) error
	SetPasswordHash(ctx context.Context, id, hash string) error
	SetProfilePic(ctx context.Context, id, profilePic string) error
}

// PostRepository reads and writes posts with their media attachment.
// All list methods return posts with author and media expanded, newest first,
// bounded by the Page.
type PostRepository interface {
	// CreatePost persists the post and, when media is non-nil, its media row
	// in one transaction. The post's ID, and MediaID/Media when applicable,
	// are filled in.
	CreatePost(ctx context.Context, post *model.Post, media *model.Media) error
	GetPostByID(ctx context.Context, id string) (*model.Post, error)
	PostExists(ctx context.Context, id string) (bool, error)
	ListPosts(ctx context.Context, page Page) ([]model.Post, error)
	ListPostsByAuthors(ctx context.Context, authorIDs []string, page Page) ([]model.Post, error)
	ListPostsByIDs(ctx context.Context, ids []string, page Page) ([]model.Post, error)
	ListPostsInRange(ctx context.Context, start, end time.Time, page Page) ([]model.Post, error)
	// ApplyPostLikeDelta adjusts the denormalized like counter by ±1 and
	// inserts/deletes the caller's Like row, atomically. The counter never
	// goes below zero; an unlike at zero fails validation. Returns the new
	// count.
	ApplyPostLikeDelta(ctx context.Context, postID, userID string, delta int) (int, error)
	// DeletePost removes the post and cascades: its likes, its comments,
	// those comments' likes, and its media, all in one transaction. Returns
	// the deleted post as it was, populated.
	DeletePost(ctx context.Context, id string) (*model.Post, error)
}

// CommentRepository reads and writes comments under posts.
type CommentRepository interface {
	// CreateComment persists the comment and increments the parent post's
	// numberOfComments in one transaction.
	CreateComment(ctx context.Context, comment *model.Comment) error
	GetCommentByID(ctx context.Context, id string) (*model.Comment, error)
	ListCommentsByPost(ctx context.Context, postID string, page Page) ([]model.Comment, error)
	ApplyCommentLikeDelta(ctx context.Context, commentID, userID string, delta int) (int, error)
	// DeleteComment removes the comment, its likes, and decrements the
	// parent post's counter (floored at zero), in one transaction. Returns
	// the deleted comment.
	DeleteComment(ctx context.Context, id string) (*model.Comment, error)
}

// LikeRepository answers existence questions about like rows. Writes go
// through the ApplyLikeDelta methods above so the counter and the row move
// together.
type LikeRepository interface {
	LikeExists(ctx context.Context, kind model.ContentKind, userID, contentID string) (bool, error)
	// LikedContentIDs returns the ids of all content of the given kind the
	// user has liked.
	LikedContentIDs(ctx context.Context, kind model.ContentKind, userID string) ([]string, error)
}

// FollowRepository maintains the paired follow rows.
type FollowRepository interface {
	// CreateFollowPair inserts the two complementary rows (A following B,
	// B followedBy A) with one shared timestamp, in one transaction.
	CreateFollowPair(ctx context.Context, userID, targetID string, now time.Time) error
	// DeleteFollowPair removes both directions of the relationship.
	DeleteFollowPair(ctx context.Context, userID, targetID string) error
	// Following lists who userID follows; Followers lists who follows
	// userID. Both return the counterpart user joined in, newest first.
	Following(ctx context.Context, userID string, page Page) ([]model.FollowEntry, error)
	Followers(ctx context.Context, userID string, page Page) ([]model.FollowEntry, error)
	FollowingIDs(ctx context.Context, userID string) ([]string, error)
	IsFollowing(ctx context.Context, userID, targetID string) (bool, error)
}
