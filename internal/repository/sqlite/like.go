package sqlite

import (
	"context"
	"fmt"

	"github.com/sakif/microblog/internal/model"
	"github.com/sakif/microblog/internal/repository"
)

var _ repository.LikeRepository = (*DB)(nil)

// LikeExists backs the checkLiked endpoint: has this user liked this
// post/comment?
func (db *DB) LikeExists(ctx context.Context, kind model.ContentKind, userID, contentID string) (bool, error) {
	var n int
	err := db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM likes WHERE content = ? AND user_id = ? AND content_id = ?`,
		string(kind), userID, contentID,
	).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("sqlite: checking like: %w", err)
	}
	return n > 0, nil
}

// LikedContentIDs returns every content id of the given kind the user has
// liked. Feeds the likedPosts filter, which intersects these ids with the
// posts table.
func (db *DB) LikedContentIDs(ctx context.Context, kind model.ContentKind, userID string) ([]string, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT DISTINCT content_id FROM likes WHERE content = ? AND user_id = ?`,
		string(kind), userID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing liked content: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("sqlite: scanning like row: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating likes: %w", err)
	}

	return ids, nil
}
