package userdir

import "context"

// Store is the persistent collection of users used by Directory.
// Implementations must be safe for concurrent use.
type Store interface {
	// FindByEmail returns the user with the given email.
	// If there is no such user, a nil user and a nil error is returned.
	FindByEmail(ctx context.Context, email string) (*User, error)

	// Insert stores a new user, and sets its ID.
	Insert(ctx context.Context, u *User) error

	// Save replaces the stored user having the ID of u.
	// Returns ErrNotFound if there is no such user.
	Save(ctx context.Context, u *User) error

	// Count returns the number of users.
	Count(ctx context.Context) (int64, error)

	// List returns at most limit users skipping the first skip users,
	// in insertion order.
	List(ctx context.Context, skip, limit int64) ([]*User, error)

	// DeleteAll deletes all users and returns how many were deleted.
	DeleteAll(ctx context.Context) (int64, error)
}
