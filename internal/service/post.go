// Package service contains the business logic layer of the application.
//
// THE THREE-LAYER ARCHITECTURE:
//
//	Handler (HTTP layer)     → parses requests, writes responses
//	Service (Business layer) → validates, enforces rules, orchestrates
//	Repository (Data layer)  → reads/writes to the database
//
// Handlers only know about HTTP (status codes, headers, JSON). Services only
// know about business rules (validation, ownership, feed strategies).
// Neither knows about SQL.
//
// DEPENDENCY INJECTION:
// Every service takes repository INTERFACES, not *sqlite.DB. Tests pass
// hand-written fakes; main wires in the real SQLite implementation. The
// service packages never import repository/sqlite at all.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/sakif/microblog/internal/apperror"
	"github.com/sakif/microblog/internal/model"
	"github.com/sakif/microblog/internal/repository"
)

// PostService handles the feed, post creation, like toggles, and owner-gated
// deletion.
type PostService struct {
	posts   repository.PostRepository
	users   repository.UserRepository
	likes   repository.LikeRepository
	follows repository.FollowRepository
	logger  *slog.Logger
}

func NewPostService(
	posts repository.PostRepository,
	users repository.UserRepository,
	likes repository.LikeRepository,
	follows repository.FollowRepository,
	logger *slog.Logger,
) *PostService {
	return &PostService{
		posts:   posts,
		users:   users,
		likes:   likes,
		follows: follows,
		logger:  logger,
	}
}

// Feed returns one page of posts for the decoded filter. Every branch
// intersects its own predicate with the pagination window and returns
// newest-first with author and media expanded.
//
// The switch is exhaustive over FilterKind: adding a kind without a branch
// here falls through to the error at the bottom, which is deliberate — a
// loud failure beats silently returning the global feed.
func (s *PostService) Feed(ctx context.Context, f FeedFilter, page repository.Page) ([]model.Post, error) {
	switch f.Kind {
	case FilterNone:
		return s.posts.ListPosts(ctx, page)

	case FilterUsername:
		authorIDs, err := s.users.SearchIDsByUsername(ctx, f.Username)
		if err != nil {
			return nil, err
		}
		return s.posts.ListPostsByAuthors(ctx, authorIDs, page)

	case FilterLikedPosts:
		if err := s.requireUser(ctx, f.UserID); err != nil {
			return nil, err
		}
		likedIDs, err := s.likes.LikedContentIDs(ctx, model.ContentPost, f.UserID)
		if err != nil {
			return nil, err
		}
		return s.posts.ListPostsByIDs(ctx, likedIDs, page)

	case FilterFollowing:
		if err := s.requireUser(ctx, f.UserID); err != nil {
			return nil, err
		}
		followedIDs, err := s.follows.FollowingIDs(ctx, f.UserID)
		if err != nil {
			return nil, err
		}
		return s.posts.ListPostsByAuthors(ctx, followedIDs, page)

	case FilterUserID:
		if err := s.requireUser(ctx, f.UserID); err != nil {
			return nil, err
		}
		return s.posts.ListPostsByAuthors(ctx, []string{f.UserID}, page)

	case FilterDaysAgo:
		start, end := daysAgoWindow(f.Days, time.Now())
		return s.posts.ListPostsInRange(ctx, start, end, page)

	case FilterDateRange:
		return s.posts.ListPostsInRange(ctx, f.Start, f.End, page)

	default:
		return nil, apperror.ValidationFailed("filter", "Invalid filter")
	}
}

// requireUser rejects feed arguments naming a user that doesn't exist. Shape
// was already checked at parse time; both failures wear the same message.
func (s *PostService) requireUser(ctx context.Context, userID string) error {
	exists, err := s.users.UserExists(ctx, userID)
	if err != nil {
		return err
	}
	if !exists {
		return apperror.ValidationFailed("filterData", "Invalid userId")
	}
	return nil
}

// Get returns a single post with author and media expanded.
func (s *PostService) Get(ctx context.Context, id string) (*model.Post, error) {
	return s.posts.GetPostByID(ctx, id)
}

// Create validates and saves a new post for the authenticated user.
// Text may be empty (a post can be media-only), but never over the limit.
// An empty date means "now"; a non-empty one lets importers backdate posts.
// The returned post is re-read so the author comes back populated.
func (s *PostService) Create(ctx context.Context, userID, text string, media *model.Media, date string) (*model.Post, error) {
	if len(text) > model.MaxTextLength {
		return nil, apperror.ValidationFailed("text",
			fmt.Sprintf(`"text" length must be less than or equal to %d characters long`, model.MaxTextLength))
	}
	var postDate time.Time
	if date != "" {
		d, ok := ParseDate(date)
		if !ok {
			return nil, apperror.ValidationFailed("date", `"date" must be a valid date`)
		}
		postDate = d
	}
	if media != nil {
		if !media.Type.Valid() {
			return nil, apperror.ValidationFailed("mediaType", `"mediaType" must be one of [image, video, audio]`)
		}
		if media.Data == "" {
			return nil, apperror.ValidationFailed("data", `"data" is not allowed to be empty`)
		}
	}

	exists, err := s.users.UserExists(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, apperror.ValidationFailed("userId", "Invalid userId for post")
	}

	post := &model.Post{UserID: userID, Text: text, Date: postDate}
	if err := s.posts.CreatePost(ctx, post, media); err != nil {
		return nil, err
	}

	s.logger.Info("post created", slog.String("post_id", post.ID), slog.String("user_id", userID))

	return s.posts.GetPostByID(ctx, post.ID)
}

// Like applies the like toggle: true adds one, false removes one. The
// repository guards the counter at zero and keeps the Like row in step.
// Returns the new like count.
func (s *PostService) Like(ctx context.Context, postID, userID string, like bool) (int, error) {
	delta := 1
	if !like {
		delta = -1
	}
	return s.posts.ApplyPostLikeDelta(ctx, postID, userID, delta)
}

// Delete removes a post after the ownership gate: only the author may delete.
// Likes are independent of ownership; deletion is not. Returns the deleted
// post as it was.
func (s *PostService) Delete(ctx context.Context, postID, callerID string) (*model.Post, error) {
	post, err := s.posts.GetPostByID(ctx, postID)
	if err != nil {
		return nil, err
	}
	if post.UserID != callerID {
		return nil, apperror.Unauthorized("Access denied")
	}

	deleted, err := s.posts.DeletePost(ctx, postID)
	if err != nil {
		return nil, err
	}

	s.logger.Info("post deleted", slog.String("post_id", postID), slog.String("user_id", callerID))

	return deleted, nil
}
