package model

import "time"

// FollowType is the direction tag on a follow row.
type FollowType string

const (
	FollowFollowing  FollowType = "following"
	FollowFollowedBy FollowType = "followedBy"
)

// Follow is one half of a follow relationship. A "follow" action always
// writes TWO complementary rows sharing one timestamp:
//
//	{user: A, followType: following,  followUser: B}
//	{user: B, followType: followedBy, followUser: A}
//
// so that both "who does A follow" and "who follows B" are single-predicate
// queries. Unfollow deletes both rows.
type Follow struct {
	ID         string     `json:"_id"`
	UserID     string     `json:"user"`
	Type       FollowType `json:"followType"`
	FollowUser string     `json:"followUser"`
	Date       time.Time  `json:"date"`
}

// FollowEntry is a row in the followers/following listings: the counterpart
// user plus the date the relationship was created.
type FollowEntry struct {
	ID         string    `json:"_id"`
	Username   string    `json:"username"`
	Date       time.Time `json:"date"`
	ProfilePic string    `json:"profilePic,omitempty"`
}
