package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/rs/xid"
	"github.com/sakif/microblog/internal/apperror"
	"github.com/sakif/microblog/internal/model"
	"github.com/sakif/microblog/internal/repository"
)

var _ repository.PostRepository = (*DB)(nil)

// postSelect is the shared projection for every post read: the post row with
// its author and optional media expanded in one query, the way the old API
// "populated" references before responding.
const postSelect = `
	SELECT p.id, p.user_id, p.date, p.text, p.likes, p.number_of_comments,
	       u.username, u.profile_pic,
	       m.id, m.media_type, m.data
	FROM posts p
	JOIN users u ON u.id = p.user_id
	LEFT JOIN media m ON m.id = p.media_id`

// rowScanner covers both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanPost(s rowScanner) (*model.Post, error) {
	var (
		p                             model.Post
		username, profilePic          string
		mediaID, mediaType, mediaData sql.NullString
	)

	err := s.Scan(
		&p.ID, &p.UserID, &p.Date, &p.Text, &p.Likes, &p.NumberOfComments,
		&username, &profilePic,
		&mediaID, &mediaType, &mediaData,
	)
	if err != nil {
		return nil, err
	}

	p.User = &model.UserRef{ID: p.UserID, Username: username, ProfilePic: profilePic}
	if mediaID.Valid {
		p.MediaID = mediaID.String
		p.Media = &model.Media{
			ID:   mediaID.String,
			Type: model.MediaType(mediaType.String),
			Data: mediaData.String,
		}
	}

	return &p, nil
}

// CreatePost persists the post, and its media attachment when present, in one
// transaction. IDs and timestamps are filled in; the caller re-reads through
// GetByID when it needs the populated view.
func (db *DB) CreatePost(ctx context.Context, post *model.Post, media *model.Media) error {
	post.ID = xid.New().String()
	if post.Date.IsZero() {
		post.Date = time.Now()
	}
	post.Date = utc(post.Date)

	return db.withTx(ctx, func(tx *sql.Tx) error {
		if media != nil {
			media.ID = xid.New().String()
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO media (id, media_type, data) VALUES (?, ?, ?)`,
				media.ID, string(media.Type), media.Data,
			); err != nil {
				return fmt.Errorf("sqlite: creating media: %w", err)
			}
			post.MediaID = media.ID
			post.Media = media
		}

		var mediaID any
		if post.MediaID != "" {
			mediaID = post.MediaID
		}

		if _, err := tx.ExecContext(ctx,
			`INSERT INTO posts (id, user_id, date, text, likes, number_of_comments, media_id)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			post.ID, post.UserID, post.Date, post.Text, post.Likes, post.NumberOfComments, mediaID,
		); err != nil {
			return fmt.Errorf("sqlite: creating post: %w", err)
		}

		return nil
	})
}

func (db *DB) GetPostByID(ctx context.Context, id string) (*model.Post, error) {
	post, err := scanPost(db.conn.QueryRowContext(ctx, postSelect+` WHERE p.id = ?`, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("Post")
		}
		return nil, fmt.Errorf("sqlite: getting post %s: %w", id, err)
	}
	return post, nil
}

func (db *DB) PostExists(ctx context.Context, id string) (bool, error) {
	var n int
	err := db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM posts WHERE id = ?`, id,
	).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("sqlite: checking post: %w", err)
	}
	return n > 0, nil
}

// ListPosts returns the global feed page: everything before the cursor, newest
// first, capped at the page limit.
func (db *DB) ListPosts(ctx context.Context, page repository.Page) ([]model.Post, error) {
	return db.listPosts(ctx,
		postSelect+` WHERE p.date < ? ORDER BY p.date DESC LIMIT ?`,
		utc(page.MaxDate), page.Limit,
	)
}

func (db *DB) ListPostsByAuthors(ctx context.Context, authorIDs []string, page repository.Page) ([]model.Post, error) {
	if len(authorIDs) == 0 {
		return []model.Post{}, nil
	}
	args := append(idArgs(authorIDs), utc(page.MaxDate), page.Limit)
	return db.listPosts(ctx,
		postSelect+` WHERE p.user_id IN (`+placeholders(len(authorIDs))+`) AND p.date < ?
		 ORDER BY p.date DESC LIMIT ?`,
		args...,
	)
}

func (db *DB) ListPostsByIDs(ctx context.Context, ids []string, page repository.Page) ([]model.Post, error) {
	if len(ids) == 0 {
		return []model.Post{}, nil
	}
	args := append(idArgs(ids), utc(page.MaxDate), page.Limit)
	return db.listPosts(ctx,
		postSelect+` WHERE p.id IN (`+placeholders(len(ids))+`) AND p.date < ?
		 ORDER BY p.date DESC LIMIT ?`,
		args...,
	)
}

// ListPostsInRange intersects [start, end) with the pagination cursor.
func (db *DB) ListPostsInRange(ctx context.Context, start, end time.Time, page repository.Page) ([]model.Post, error) {
	return db.listPosts(ctx,
		postSelect+` WHERE p.date >= ? AND p.date < ? AND p.date < ?
		 ORDER BY p.date DESC LIMIT ?`,
		utc(start), utc(end), utc(page.MaxDate), page.Limit,
	)
}

func (db *DB) listPosts(ctx context.Context, query string, args ...any) ([]model.Post, error) {
	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing posts: %w", err)
	}
	defer rows.Close()

	posts := []model.Post{}
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning post row: %w", err)
		}
		posts = append(posts, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating posts: %w", err)
	}

	return posts, nil
}

// placeholders returns "?, ?, ?" for an IN clause of n values.
func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func idArgs(ids []string) []any {
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return args
}

// ApplyPostLikeDelta moves the post's denormalized like counter and the caller's
// Like row together in one transaction.
//
// The guard is in the UPDATE itself (likes + delta >= 0), so two concurrent
// unlikes can't drive the counter negative even though both read the same
// snapshot value.
func (db *DB) ApplyPostLikeDelta(ctx context.Context, postID, userID string, delta int) (int, error) {
	var likes int

	err := db.withTx(ctx, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx,
			`UPDATE posts SET likes = likes + ? WHERE id = ? AND likes + ? >= 0`,
			delta, postID, delta,
		)
		if err != nil {
			return fmt.Errorf("sqlite: updating post likes: %w", err)
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("sqlite: checking rows affected: %w", err)
		}
		if affected == 0 {
			// Either the post is gone or the guard blocked an unlike at 0.
			exists, err := existsInTx(ctx, tx, `SELECT COUNT(*) FROM posts WHERE id = ?`, postID)
			if err != nil {
				return err
			}
			if !exists {
				return apperror.NotFound("Post")
			}
			return apperror.ValidationFailed("like", "Can't unlike a post with 0 likes")
		}

		if err := setLikedInTx(ctx, tx, model.ContentPost, userID, postID, delta > 0); err != nil {
			return err
		}

		return tx.QueryRowContext(ctx,
			`SELECT likes FROM posts WHERE id = ?`, postID,
		).Scan(&likes)
	})
	if err != nil {
		return 0, err
	}

	return likes, nil
}

// setLikedInTx records or erases the "liked" mark. Liking inserts a fresh
// row; unliking deletes whatever rows match (duplicates included, since no
// uniqueness is enforced on the table).
func setLikedInTx(ctx context.Context, tx *sql.Tx, kind model.ContentKind, userID, contentID string, liked bool) error {
	if liked {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO likes (id, content, user_id, content_id) VALUES (?, ?, ?, ?)`,
			xid.New().String(), string(kind), userID, contentID,
		)
		if err != nil {
			return fmt.Errorf("sqlite: inserting like: %w", err)
		}
		return nil
	}

	_, err := tx.ExecContext(ctx,
		`DELETE FROM likes WHERE content = ? AND user_id = ? AND content_id = ?`,
		string(kind), userID, contentID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: deleting like: %w", err)
	}
	return nil
}

func existsInTx(ctx context.Context, tx *sql.Tx, query string, args ...any) (bool, error) {
	var n int
	if err := tx.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return false, fmt.Errorf("sqlite: existence check: %w", err)
	}
	return n > 0, nil
}

// DeletePost removes a post and everything hanging off it: the post's likes, its
// comments, those comments' likes, and its media. One transaction, so a
// crash mid-cascade can't strand orphan rows.
func (db *DB) DeletePost(ctx context.Context, id string) (*model.Post, error) {
	var deleted *model.Post

	err := db.withTx(ctx, func(tx *sql.Tx) error {
		post, err := scanPost(tx.QueryRowContext(ctx, postSelect+` WHERE p.id = ?`, id))
		if err != nil {
			if err == sql.ErrNoRows {
				return apperror.NotFound("Post")
			}
			return fmt.Errorf("sqlite: getting post %s: %w", id, err)
		}

		if _, err := tx.ExecContext(ctx,
			`DELETE FROM likes WHERE content = 'post' AND content_id = ?`, id,
		); err != nil {
			return fmt.Errorf("sqlite: deleting post likes: %w", err)
		}

		if _, err := tx.ExecContext(ctx,
			`DELETE FROM likes WHERE content = 'comment' AND content_id IN
			   (SELECT id FROM comments WHERE post_id = ?)`, id,
		); err != nil {
			return fmt.Errorf("sqlite: deleting comment likes: %w", err)
		}

		if _, err := tx.ExecContext(ctx,
			`DELETE FROM comments WHERE post_id = ?`, id,
		); err != nil {
			return fmt.Errorf("sqlite: deleting comments: %w", err)
		}

		if _, err := tx.ExecContext(ctx,
			`DELETE FROM posts WHERE id = ?`, id,
		); err != nil {
			return fmt.Errorf("sqlite: deleting post: %w", err)
		}

		if post.MediaID != "" {
			if _, err := tx.ExecContext(ctx,
				`DELETE FROM media WHERE id = ?`, post.MediaID,
			); err != nil {
				return fmt.Errorf("sqlite: deleting media: %w", err)
			}
		}

		deleted = post
		return nil
	})
	if err != nil {
		return nil, err
	}

	return deleted, nil
}
