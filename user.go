package userdir

import (
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// User represents a user account.
type User struct {
	// ID of the user, assigned by the Store on insert.
	ID bson.ObjectID `bson:"_id,omitempty" json:"id"`

	// Email of the user, used for lookups.
	Email string `bson:"email" json:"email"`

	// Password holds the password hash, never the plaintext.
	Password string `bson:"password" json:"-"`

	// RefreshToken of the current session, nil if there is none.
	RefreshToken *string `bson:"refreshToken" json:"-"`

	// FirstName of the user, optional.
	FirstName string `bson:"firstName,omitempty" json:"firstName,omitempty"`

	// LastName of the user, optional.
	LastName string `bson:"lastName,omitempty" json:"lastName,omitempty"`

	// Created tells when the user was created.
	Created time.Time `bson:"createdAt" json:"createdAt"`

	// Updated tells when the user was last modified.
	Updated time.Time `bson:"updatedAt" json:"updatedAt"`
}

// HasRefreshToken tells if the user has a refresh token set.
func (u *User) HasRefreshToken() bool {
	return u.RefreshToken != nil
}

// clone returns a deep copy of u.
func (u *User) clone() *User {
	c := *u
	if u.RefreshToken != nil {
		token := *u.RefreshToken
		c.RefreshToken = &token
	}
	return &c
}

// NewUser is the payload of Directory.Create.
type NewUser struct {
	// Email of the new user, must be a valid address.
	Email string

	// Password in plaintext, it is hashed before storing.
	Password string

	// FirstName and LastName are optional.
	FirstName string
	LastName  string
}

// Page is a page of users returned by Directory.FindAll.
type Page struct {
	// Data holds the users of the page. Never nil.
	Data []*User `json:"data"`

	// Page is the 1-based page number.
	Page int `json:"page"`

	// Total number of users.
	Total int64 `json:"total"`

	// TotalPages is the number of pages with the used limit.
	TotalPages int64 `json:"totalPages"`
}
