package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/xid"
	"github.com/sakif/microblog/internal/model"
	"github.com/sakif/microblog/internal/repository"
)

var _ repository.FollowRepository = (*DB)(nil)

// A follow relationship is stored as TWO rows sharing one timestamp:
//
//	(user_id=A, follow_type=following,  follow_user_id=B)
//	(user_id=B, follow_type=followedBy, follow_user_id=A)
//
// Each side can then list its own edges with a single indexed scan on
// (user_id, follow_type). The pair is written and removed inside a
// transaction so the two directions never disagree.

// CreateFollowPair records that userID follows targetID.
func (db *DB) CreateFollowPair(ctx context.Context, userID, targetID string, now time.Time) error {
	date := utc(now)
	return db.withTx(ctx, func(tx *sql.Tx) error {
		const insert = `INSERT INTO follows (id, user_id, follow_type, follow_user_id, date)
			VALUES (?, ?, ?, ?, ?)`

		if _, err := tx.ExecContext(ctx, insert,
			xid.New().String(), userID, string(model.FollowFollowing), targetID, date,
		); err != nil {
			return fmt.Errorf("sqlite: inserting following edge: %w", err)
		}
		if _, err := tx.ExecContext(ctx, insert,
			xid.New().String(), targetID, string(model.FollowFollowedBy), userID, date,
		); err != nil {
			return fmt.Errorf("sqlite: inserting followedBy edge: %w", err)
		}
		return nil
	})
}

// DeleteFollowPair removes both directions of the relationship.
func (db *DB) DeleteFollowPair(ctx context.Context, userID, targetID string) error {
	return db.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM follows WHERE user_id = ? AND follow_type = ? AND follow_user_id = ?`,
			userID, string(model.FollowFollowing), targetID,
		); err != nil {
			return fmt.Errorf("sqlite: deleting following edge: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM follows WHERE user_id = ? AND follow_type = ? AND follow_user_id = ?`,
			targetID, string(model.FollowFollowedBy), userID,
		); err != nil {
			return fmt.Errorf("sqlite: deleting followedBy edge: %w", err)
		}
		return nil
	})
}

// IsFollowing reports whether a following edge exists from userID to targetID.
func (db *DB) IsFollowing(ctx context.Context, userID, targetID string) (bool, error) {
	var n int
	err := db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM follows WHERE user_id = ? AND follow_type = ? AND follow_user_id = ?`,
		userID, string(model.FollowFollowing), targetID,
	).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("sqlite: checking follow: %w", err)
	}
	return n > 0, nil
}

// FollowingIDs returns the ids of every user that userID follows. Feeds the
// following feed filter.
func (db *DB) FollowingIDs(ctx context.Context, userID string) ([]string, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT follow_user_id FROM follows WHERE user_id = ? AND follow_type = ?`,
		userID, string(model.FollowFollowing),
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing following ids: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("sqlite: scanning follow row: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating follows: %w", err)
	}

	return ids, nil
}

// Following returns a page of users that userID follows, newest first.
func (db *DB) Following(ctx context.Context, userID string, page repository.Page) ([]model.FollowEntry, error) {
	return db.listFollowEntries(ctx, userID, model.FollowFollowing, page)
}

// Followers returns a page of users following userID, newest first.
func (db *DB) Followers(ctx context.Context, userID string, page repository.Page) ([]model.FollowEntry, error) {
	return db.listFollowEntries(ctx, userID, model.FollowFollowedBy, page)
}

func (db *DB) listFollowEntries(ctx context.Context, userID string, ft model.FollowType, page repository.Page) ([]model.FollowEntry, error) {
	// The entry's _id is the counterpart USER's id, not the follow row's:
	// clients navigate to the profile behind it.
	rows, err := db.conn.QueryContext(ctx,
		`SELECT u.id, u.username, f.date, u.profile_pic
		FROM follows f
		JOIN users u ON u.id = f.follow_user_id
		WHERE f.user_id = ? AND f.follow_type = ? AND f.date < ?
		ORDER BY f.date DESC
		LIMIT ?`,
		userID, string(ft), utc(page.MaxDate), page.Limit,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing follow entries: %w", err)
	}
	defer rows.Close()

	entries := []model.FollowEntry{}
	for rows.Next() {
		var e model.FollowEntry
		if err := rows.Scan(&e.ID, &e.Username, &e.Date, &e.ProfilePic); err != nil {
			return nil, fmt.Errorf("sqlite: scanning follow entry: %w", err)
		}
		e.Date = e.Date.UTC()
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating follow entries: %w", err)
	}

	return entries, nil
}
