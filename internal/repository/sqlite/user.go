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

// Compile-time check that *DB implements repository.UserRepository.
// `var _ Iface = (*Impl)(nil)` makes a missing method a build error instead
// of a surprise at the call site.
var _ repository.UserRepository = (*DB)(nil)

// Create inserts a new user. The caller provides username/email/password
// hash; ID and Date are filled in here unless the caller already set a date.
func (db *DB) CreateUser(ctx context.Context, user *model.User) error {
	user.ID = xid.New().String()
	if user.Date.IsZero() {
		user.Date = time.Now()
	}
	user.Date = utc(user.Date)

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO users (id, username, email, password_hash, description, is_admin, profile_pic, date)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		user.ID,
		user.Username,
		user.Email,
		user.PasswordHash,
		user.Description,
		user.IsAdmin,
		user.ProfilePic,
		user.Date,
	)
	if err != nil {
		return fmt.Errorf("sqlite: creating user: %w", err)
	}

	return nil
}

func (db *DB) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	return db.getUser(ctx, "id", id)
}

func (db *DB) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	return db.getUser(ctx, "email", email)
}

func (db *DB) getUser(ctx context.Context, column, value string) (*model.User, error) {
	var u model.User

	err := db.conn.QueryRowContext(ctx,
		`SELECT id, username, email, password_hash, description, is_admin, profile_pic, date
		 FROM users WHERE `+column+` = ?`,
		value,
	).Scan(
		&u.ID,
		&u.Username,
		&u.Email,
		&u.PasswordHash,
		&u.Description,
		&u.IsAdmin,
		&u.ProfilePic,
		&u.Date,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("User")
		}
		return nil, fmt.Errorf("sqlite: getting user by %s: %w", column, err)
	}

	return &u, nil
}

func (db *DB) UserExists(ctx context.Context, id string) (bool, error) {
	return db.userExists(ctx, "id", id)
}

func (db *DB) UsernameExists(ctx context.Context, username string) (bool, error) {
	return db.userExists(ctx, "username", username)
}

func (db *DB) EmailExists(ctx context.Context, email string) (bool, error) {
	return db.userExists(ctx, "email", email)
}

func (db *DB) userExists(ctx context.Context, column, value string) (bool, error) {
	var n int
	err := db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM users WHERE `+column+` = ?`, value,
	).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("sqlite: checking user %s: %w", column, err)
	}
	return n > 0, nil
}

// SearchIDsByUsername finds users whose username contains substr,
// case-insensitively. LIKE is case-insensitive for ASCII in SQLite, which
// matches the regex-with-i-flag behavior this replaces.
func (db *DB) SearchIDsByUsername(ctx context.Context, substr string) ([]string, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT id FROM users WHERE username LIKE ? ESCAPE '\'`,
		"%"+escapeLike(substr)+"%",
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: searching usernames: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("sqlite: scanning username search row: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating username search: %w", err)
	}

	return ids, nil
}

// escapeLike escapes the LIKE wildcards so a search for "100%" doesn't match
// everything.
func escapeLike(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '%', '_', '\\':
			out = append(out, '\\')
		}
		out = append(out, s[i])
	}
	return string(out)
}

func (db *DB) SetEmail(ctx context.Context, id, email string) error {
	return db.setUserColumn(ctx, id, "email", email)
}

func (db *DB) SetUsername(ctx context.Context, id, username string) error {
	return db.setUserColumn(ctx, id, "username", username)
}

func (db *DB) SetDescription(ctx context.Context, id, description string) error {
	return db.setUserColumn(ctx, id, "description", description)
}

func (db *DB) SetPasswordHash(ctx context.Context, id, hash string) error {
	return db.setUserColumn(ctx, id, "password_hash", hash)
}

func (db *DB) SetProfilePic(ctx context.Context, id, profilePic string) error {
	return db.setUserColumn(ctx, id, "profile_pic", profilePic)
}

// setUserColumn updates a single column. RowsAffected distinguishes a
// missing user from a successful no-op-looking update.
func (db *DB) setUserColumn(ctx context.Context, id, column, value string) error {
	result, err := db.conn.ExecContext(ctx,
		`UPDATE users SET `+column+` = ? WHERE id = ?`,
		value, id,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating user %s: %w", column, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if affected == 0 {
		return apperror.NotFound("User")
	}

	return nil
}
