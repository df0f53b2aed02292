// Package model defines the data structures used throughout the application.
// In Go, we use structs to represent our data — similar to classes in other languages,
// but without inheritance. Go favours composition over inheritance.
package model

import "time"

// User represents a registered account.
//
// The `json:"..."` tags preserve the wire format the existing clients expect:
// the API grew up on a document store, so the ID field is exposed as "_id" and
// the rest of the fields keep their original camelCase names.
//
// WHY PasswordHash WITH json:"-"?
// The bcrypt hash must never leave the server. The "-" tag tells encoding/json
// to skip the field entirely, so even a careless handler that encodes a full
// User cannot leak it.
type User struct {
	ID           string    `json:"_id"`
	Username     string    `json:"username"`
	Email        string    `json:"email,omitempty"`
	PasswordHash string    `json:"-"`
	Description  string    `json:"description,omitempty"`
	IsAdmin      bool      `json:"isAdmin,omitempty"`
	ProfilePic   string    `json:"profilePic,omitempty"`
	Date         time.Time `json:"date"`
}

// UserRef is the denormalized author shape embedded in posts and comments:
// just enough to render a byline without a second lookup.
type UserRef struct {
	ID         string `json:"_id"`
	Username   string `json:"username"`
	ProfilePic string `json:"profilePic,omitempty"`
}

// Ref returns the embeddable author view of the user.
func (u *User) Ref() *UserRef {
	return &UserRef{
		ID:         u.ID,
		Username:   u.Username,
		ProfilePic: u.ProfilePic,
	}
}
