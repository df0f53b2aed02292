package model

import "time"

// MaxTextLength bounds the text of both posts and comments.
const MaxTextLength = 3000

// Post is a single feed entry.
//
// Likes and NumberOfComments are DENORMALIZED COUNTERS: they are stored on the
// post row and kept in sync by explicit increment/decrement when a like or
// comment is created or removed, rather than counted on every read. The
// invariant is that they never go negative — the repository enforces it at
// the SQL level.
//
// User and Media are populated views (the document-store API "expanded" these
// references on read). UserID/MediaID are the raw foreign keys and never
// appear on the wire.
type Post struct {
	ID               string    `json:"_id"`
	UserID           string    `json:"-"`
	User             *UserRef  `json:"user,omitempty"`
	Date             time.Time `json:"date"`
	Text             string    `json:"text"`
	Likes            int       `json:"likes"`
	NumberOfComments int       `json:"numberOfComments"`
	MediaID          string    `json:"-"`
	Media            *Media    `json:"media,omitempty"`
}
