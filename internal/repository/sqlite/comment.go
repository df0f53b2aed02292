package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/xid"
	"github.com/sakif/microblog/internal/apperror"
	"github.com/sakif/microblog/internal/model"
	"github.com/sakif/microblog/internal/repository"
)

var _ repository.CommentRepository = (*DB)(nil)

const commentSelect = `
	SELECT c.id, c.post_id, c.user_id, c.date, c.text, c.likes,
	       u.username, u.profile_pic
	FROM comments c
	JOIN users u ON u.id = c.user_id`

func scanComment(s rowScanner) (*model.Comment, error) {
	var (
		c                    model.Comment
		username, profilePic string
	)

	err := s.Scan(
		&c.ID, &c.PostID, &c.UserID, &c.Date, &c.Text, &c.Likes,
		&username, &profilePic,
	)
	if err != nil {
		return nil, err
	}

	c.User = &model.UserRef{ID: c.UserID, Username: username, ProfilePic: profilePic}
	return &c, nil
}

// CreateComment persists the comment and bumps the parent post's denormalized
// comment counter in the same transaction, so the count and the rows can't
// drift apart.
func (db *DB) CreateComment(ctx context.Context, comment *model.Comment) error {
	comment.ID = xid.New().String()
	if comment.Date.IsZero() {
		comment.Date = time.Now()
	}
	comment.Date = utc(comment.Date)

	return db.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO comments (id, post_id, user_id, date, text, likes)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			comment.ID, comment.PostID, comment.UserID, comment.Date, comment.Text, comment.Likes,
		); err != nil {
			return fmt.Errorf("sqlite: creating comment: %w", err)
		}

		if _, err := tx.ExecContext(ctx,
			`UPDATE posts SET number_of_comments = number_of_comments + 1 WHERE id = ?`,
			comment.PostID,
		); err != nil {
			return fmt.Errorf("sqlite: incrementing comment count: %w", err)
		}

		return nil
	})
}

func (db *DB) GetCommentByID(ctx context.Context, id string) (*model.Comment, error) {
	comment, err := scanComment(db.conn.QueryRowContext(ctx, commentSelect+` WHERE c.id = ?`, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("Comment")
		}
		return nil, fmt.Errorf("sqlite: getting comment %s: %w", id, err)
	}
	return comment, nil
}

// ListCommentsByPost pages a post's comments newest first under the cursor.
func (db *DB) ListCommentsByPost(ctx context.Context, postID string, page repository.Page) ([]model.Comment, error) {
	rows, err := db.conn.QueryContext(ctx,
		commentSelect+` WHERE c.post_id = ? AND c.date < ?
		 ORDER BY c.date DESC LIMIT ?`,
		postID, utc(page.MaxDate), page.Limit,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing comments: %w", err)
	}
	defer rows.Close()

	comments := []model.Comment{}
	for rows.Next() {
		c, err := scanComment(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning comment row: %w", err)
		}
		comments = append(comments, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating comments: %w", err)
	}

	return comments, nil
}

// ApplyCommentLikeDelta is the comment counterpart of ApplyLikeDelta on
// posts: counter and like row move atomically, guarded non-negative.
func (db *DB) ApplyCommentLikeDelta(ctx context.Context, commentID, userID string, delta int) (int, error) {
	var likes int

	err := db.withTx(ctx, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx,
			`UPDATE comments SET likes = likes + ? WHERE id = ? AND likes + ? >= 0`,
			delta, commentID, delta,
		)
		if err != nil {
			return fmt.Errorf("sqlite: updating comment likes: %w", err)
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("sqlite: checking rows affected: %w", err)
		}
		if affected == 0 {
			exists, err := existsInTx(ctx, tx, `SELECT COUNT(*) FROM comments WHERE id = ?`, commentID)
			if err != nil {
				return err
			}
			if !exists {
				return apperror.NotFound("Comment")
			}
			return apperror.ValidationFailed("like", "Can't unlike a comment with 0 likes")
		}

		if err := setLikedInTx(ctx, tx, model.ContentComment, userID, commentID, delta > 0); err != nil {
			return err
		}

		return tx.QueryRowContext(ctx,
			`SELECT likes FROM comments WHERE id = ?`, commentID,
		).Scan(&likes)
	})
	if err != nil {
		return 0, err
	}

	return likes, nil
}

// DeleteComment removes the comment plus its likes and decrements the parent
// post's counter, floored at zero in case the counter ever drifted.
func (db *DB) DeleteComment(ctx context.Context, id string) (*model.Comment, error) {
	var deleted *model.Comment

	err := db.withTx(ctx, func(tx *sql.Tx) error {
		comment, err := scanComment(tx.QueryRowContext(ctx, commentSelect+` WHERE c.id = ?`, id))
		if err != nil {
			if err == sql.ErrNoRows {
				return apperror.NotFound("Comment")
			}
			return fmt.Errorf("sqlite: getting comment %s: %w", id, err)
		}

		if _, err := tx.ExecContext(ctx,
			`DELETE FROM likes WHERE content = 'comment' AND content_id = ?`, id,
		); err != nil {
			return fmt.Errorf("sqlite: deleting comment likes: %w", err)
		}

		if _, err := tx.ExecContext(ctx,
			`DELETE FROM comments WHERE id = ?`, id,
		); err != nil {
			return fmt.Errorf("sqlite: deleting comment: %w", err)
		}

		if _, err := tx.ExecContext(ctx,
			`UPDATE posts SET number_of_comments = MAX(number_of_comments - 1, 0) WHERE id = ?`,
			comment.PostID,
		); err != nil {
			return fmt.Errorf("sqlite: decrementing comment count: %w", err)
		}

		deleted = comment
		return nil
	})
	if err != nil {
		return nil, err
	}

	return deleted, nil
}
