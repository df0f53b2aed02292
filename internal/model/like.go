package model

// ContentKind says what a like points at. Only two kinds exist; anything else
// is rejected at the boundary.
type ContentKind string

const (
	ContentPost    ContentKind = "post"
	ContentComment ContentKind = "comment"
)

// Valid reports whether k is one of the two known kinds.
func (k ContentKind) Valid() bool {
	return k == ContentPost || k == ContentComment
}

// Like links a user to a post or comment. "Liked" is encoded purely as the
// presence of a row — there is no boolean column. Note that nothing below the
// application enforces at-most-one row per (user, kind, content); see the
// like toggle in the service layer.
type Like struct {
	ID        string      `json:"_id"`
	Content   ContentKind `json:"content"`
	UserID    string      `json:"userId"`
	ContentID string      `json:"contentId"`
}
