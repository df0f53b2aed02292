package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/rs/xid"
	"github.com/sakif/microblog/internal/apperror"
	"github.com/sakif/microblog/internal/model"
	"github.com/sakif/microblog/internal/repository"
)

// CommentService handles comment listing, creation, like toggles, and
// owner-gated deletion.
type CommentService struct {
	comments repository.CommentRepository
	posts    repository.PostRepository
	users    repository.UserRepository
	logger   *slog.Logger
}

func NewCommentService(
	comments repository.CommentRepository,
	posts repository.PostRepository,
	users repository.UserRepository,
	logger *slog.Logger,
) *CommentService {
	return &CommentService{
		comments: comments,
		posts:    posts,
		users:    users,
		logger:   logger,
	}
}

// List pages a post's comments, newest first. The post id is mandatory —
// there is no global comment feed.
func (s *CommentService) List(ctx context.Context, postID string, page repository.Page) ([]model.Comment, error) {
	if postID == "" {
		return nil, apperror.ValidationFailed("postId", "Specify postId in query string to get comments")
	}
	if _, err := xid.FromString(postID); err != nil {
		return nil, apperror.ValidationFailed("postId", "Invalid Id")
	}

	exists, err := s.posts.PostExists(ctx, postID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, apperror.NotFound("Post")
	}

	return s.comments.ListCommentsByPost(ctx, postID, page)
}

// Create validates and saves a comment under an existing post. Unlike post
// text, comment text must be non-empty. An empty date stamps "now"; a
// non-empty one backdates the comment. The parent's comment counter moves
// in the same transaction as the insert (see the repository).
func (s *CommentService) Create(ctx context.Context, userID, postID, text, date string) (*model.Comment, error) {
	if text == "" {
		return nil, apperror.ValidationFailed("text", `"text" is not allowed to be empty`)
	}
	if len(text) > model.MaxTextLength {
		return nil, apperror.ValidationFailed("text",
			fmt.Sprintf(`"text" length must be less than or equal to %d characters long`, model.MaxTextLength))
	}
	var commentDate time.Time
	if date != "" {
		d, ok := ParseDate(date)
		if !ok {
			return nil, apperror.ValidationFailed("date", `"date" must be a valid date`)
		}
		commentDate = d
	}

	exists, err := s.posts.PostExists(ctx, postID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, apperror.ValidationFailed("postId", "Invalid postId for comment")
	}

	userExists, err := s.users.UserExists(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !userExists {
		return nil, apperror.ValidationFailed("userId", "Invalid userId for comment")
	}

	comment := &model.Comment{PostID: postID, UserID: userID, Text: text, Date: commentDate}
	if err := s.comments.CreateComment(ctx, comment); err != nil {
		return nil, err
	}

	s.logger.Info("comment created",
		slog.String("comment_id", comment.ID),
		slog.String("post_id", postID),
	)

	return s.comments.GetCommentByID(ctx, comment.ID)
}

// Like applies the like toggle to a comment and returns the new count.
func (s *CommentService) Like(ctx context.Context, commentID, userID string, like bool) (int, error) {
	delta := 1
	if !like {
		delta = -1
	}
	return s.comments.ApplyCommentLikeDelta(ctx, commentID, userID, delta)
}

// Delete removes a comment after the ownership gate. Returns the deleted
// comment.
func (s *CommentService) Delete(ctx context.Context, commentID, callerID string) (*model.Comment, error) {
	comment, err := s.comments.GetCommentByID(ctx, commentID)
	if err != nil {
		return nil, err
	}
	if comment.UserID != callerID {
		return nil, apperror.Unauthorized("Access denied")
	}

	deleted, err := s.comments.DeleteComment(ctx, commentID)
	if err != nil {
		return nil, err
	}

	s.logger.Info("comment deleted",
		slog.String("comment_id", commentID),
		slog.String("user_id", callerID),
	)

	return deleted, nil
}
