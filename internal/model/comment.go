package model

import "time"

// Comment belongs to a post. Unlike post text, comment text must be non-empty.
// Likes is a denormalized counter with the same non-negative invariant as on Post.
type Comment struct {
	ID     string    `json:"_id"`
	PostID string    `json:"postId"`
	UserID string    `json:"-"`
	User   *UserRef  `json:"user,omitempty"`
	Date   time.Time `json:"date"`
	Text   string    `json:"text"`
	Likes  int       `json:"likes"`
}
