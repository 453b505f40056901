package userdir

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

const (
	// DefaultPageLimit is the default for Config.DefaultPageLimit.
	DefaultPageLimit = 10

	// DefaultMaxPageLimit is the default for Config.MaxPageLimit.
	DefaultMaxPageLimit = 100
)

// Config holds Directory configuration.
// A zero value is a valid configuration, see constants for default values.
type Config struct {
	// DefaultPageLimit is the page size used by FindAll if limit is 0.
	DefaultPageLimit int

	// MaxPageLimit is the largest page size FindAll accepts, bigger limits
	// are lowered to this.
	MaxPageLimit int

	// Logger to log operations to. Defaults to a no-op logger.
	Logger *zap.Logger
}

// Directory manages user accounts kept in a Store.
// It's safe to use it concurrently from multiple goroutines.
type Directory struct {
	// store holds the users.
	store Store

	// hasher hashes passwords.
	hasher Hasher

	// cfg to use
	cfg Config

	log *zap.Logger
}

// validate checks NewUser payloads and new passwords.
var validate = validator.New(validator.WithRequiredStructEnabled())

// MaxPasswordBytes is the maximum length of a plaintext password in bytes.
// bcrypt does not accept longer input.
const MaxPasswordBytes = 72

// NewDirectory creates a new Directory.
// If hasher is nil, a BcryptHasher with DefaultBcryptCost is used.
// This function panics if store is nil.
func NewDirectory(store Store, hasher Hasher, cfg Config) *Directory {
	if store == nil {
		panic("store must be provided")
	}
	if hasher == nil {
		hasher = NewBcryptHasher(DefaultBcryptCost)
	}

	if cfg.DefaultPageLimit <= 0 {
		cfg.DefaultPageLimit = DefaultPageLimit
	}
	if cfg.MaxPageLimit <= 0 {
		cfg.MaxPageLimit = DefaultMaxPageLimit
	}
	if cfg.DefaultPageLimit > cfg.MaxPageLimit {
		cfg.DefaultPageLimit = cfg.MaxPageLimit
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	return &Directory{
		store:  store,
		hasher: hasher,
		cfg:    cfg,
		log:    cfg.Logger.Named("userdir"),
	}
}

// FindOne returns the user with the given email.
// If there is no such user, user will be nil.
func (d *Directory) FindOne(ctx context.Context, email string) (user *User, err error) {
	user, err = d.store.FindByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	d.log.Debug("find user", zap.String("email", email), zap.Bool("found", user != nil))
	return user, nil
}

// Create creates a new user from the given payload.
// The password is stored hashed, the refresh token is unset.
// The stored user is returned, with its ID set.
func (d *Directory) Create(ctx context.Context, nu NewUser) (user *User, err error) {
	if err = validateNewUser(nu); err != nil {
		return nil, err
	}

	hash, err := d.hasher.Hash(nu.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	now := time.Now()
	user = &User{
		Email:     nu.Email,
		Password:  hash,
		FirstName: nu.FirstName,
		LastName:  nu.LastName,
		Created:   now,
		Updated:   now,
	}
	if err = d.store.Insert(ctx, user); err != nil {
		return nil, err
	}

	d.log.Info("user created", zap.String("email", user.Email), zap.String("id", user.ID.Hex()))
	return user, nil
}

// FindAll returns the given page of users, limit users per page.
// Pages are 1-based. A 0 page means the first page, a 0 limit means
// Config.DefaultPageLimit, and limit is capped at Config.MaxPageLimit.
// Negative values result in ErrInvalidPagination.
// A page past the last one has no users, but Total and TotalPages are set.
func (d *Directory) FindAll(ctx context.Context, page, limit int) (*Page, error) {
	if page < 0 || limit < 0 {
		return nil, fmt.Errorf("%w: page=%d, limit=%d", ErrInvalidPagination, page, limit)
	}
	if page == 0 {
		page = 1
	}
	if limit == 0 {
		limit = d.cfg.DefaultPageLimit
	}
	limit = min(limit, d.cfg.MaxPageLimit)

	skip := int64(page-1) * int64(limit)

	total, err := d.store.Count(ctx)
	if err != nil {
		return nil, err
	}
	users, err := d.store.List(ctx, skip, int64(limit))
	if err != nil {
		return nil, err
	}
	if users == nil {
		users = []*User{}
	}

	d.log.Debug("list users", zap.Int("page", page), zap.Int("limit", limit), zap.Int64("total", total))
	return &Page{
		Data:       users,
		Page:       page,
		Total:      total,
		TotalPages: totalPages(total, int64(limit)),
	}, nil
}

// totalPages returns ceil(total / limit).
func totalPages(total, limit int64) int64 {
	return (total + limit - 1) / limit
}

// DeleteAll deletes all users.
func (d *Directory) DeleteAll(ctx context.Context) error {
	n, err := d.store.DeleteAll(ctx)
	if err != nil {
		return err
	}
	d.log.Info("users deleted", zap.Int64("deleted", n))
	return nil
}

// UpdateRefreshToken sets the refresh token of the user with the given email.
// If there is no such user, user will be nil.
func (d *Directory) UpdateRefreshToken(ctx context.Context, email, refreshToken string) (user *User, err error) {
	return d.update(ctx, email, "refresh token updated", func(u *User) error {
		u.RefreshToken = &refreshToken
		return nil
	})
}

// UpdatePassword changes the password of the user with the given email.
// If there is no such user, user will be nil.
func (d *Directory) UpdatePassword(ctx context.Context, email, password string) (user *User, err error) {
	if err = validatePassword(password); err != nil {
		return nil, err
	}

	return d.update(ctx, email, "password updated", func(u *User) error {
		hash, err := d.hasher.Hash(password)
		if err != nil {
			return fmt.Errorf("failed to hash password: %w", err)
		}
		u.Password = hash
		return nil
	})
}

// Logout clears the refresh token of the user with the given email.
// Returns false if there is no such user.
func (d *Directory) Logout(ctx context.Context, email string) (ok bool, err error) {
	user, err := d.update(ctx, email, "logged out", func(u *User) error {
		u.RefreshToken = nil
		return nil
	})
	return user != nil, err
}

// VerifyPassword checks the given password of the user with the given email.
// If there is no such user or the password does not match, user will be nil.
func (d *Directory) VerifyPassword(ctx context.Context, email, password string) (user *User, err error) {
	user, err = d.store.FindByEmail(ctx, email)
	if err != nil || user == nil {
		return nil, err
	}

	ok, err := d.hasher.Verify(password, user.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to verify password: %w", err)
	}
	if !ok {
		d.log.Debug("password mismatch", zap.String("email", email))
		return nil, nil
	}
	return user, nil
}

// update loads the user with the given email, applies change and saves it.
// If the user does not exist (or vanishes before saving), user will be nil.
func (d *Directory) update(ctx context.Context, email, event string, change func(u *User) error) (user *User, err error) {
	user, err = d.store.FindByEmail(ctx, email)
	if err != nil || user == nil {
		return nil, err
	}

	if err = change(user); err != nil {
		return nil, err
	}
	user.Updated = time.Now()

	if err = d.store.Save(ctx, user); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}

	d.log.Debug(event, zap.String("email", email))
	return user, nil
}

// validateNewUser checks the required fields of a creation payload.
func validateNewUser(nu NewUser) error {
	if err := validate.Var(nu.Email, "required,email"); err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidEmail, nu.Email)
	}
	return validatePassword(nu.Password)
}

// validatePassword checks a plaintext password.
// validator's max counts runes, so the byte limit is checked separately.
func validatePassword(password string) error {
	if err := validate.Var(password, "required"); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPassword, err)
	}
	if len(password) > MaxPasswordBytes {
		return fmt.Errorf("%w: longer than %d bytes", ErrInvalidPassword, MaxPasswordBytes)
	}
	return nil
}
