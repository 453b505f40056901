package userdir

import "errors"

var (
	// ErrInvalidEmail is returned when an email is not a valid address.
	ErrInvalidEmail = errors.New("invalid email")

	// ErrInvalidPassword is returned when a password is empty or longer
	// than MaxPasswordBytes.
	ErrInvalidPassword = errors.New("invalid password")

	// ErrInvalidPagination is returned when a negative page or limit is given.
	ErrInvalidPagination = errors.New("invalid pagination")

	// ErrDuplicateEmail is returned by stores refusing a second user with
	// the same email.
	ErrDuplicateEmail = errors.New("duplicate email")

	// ErrNotFound is returned by Store.Save if the user no longer exists.
	// Directory never returns it, absence is reported by a nil user.
	ErrNotFound = errors.New("not found")
)
