package userdir

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// DefaultBcryptCost is the bcrypt cost used when no Hasher is given to
// NewDirectory.
const DefaultBcryptCost = 10

// Hasher hashes and verifies passwords.
type Hasher interface {
	// Hash creates a salted hash from a password.
	Hash(password string) (string, error)

	// Verify checks if a password matches a hash.
	// A mismatch is not an error, an invalid hash is.
	Verify(password, hash string) (bool, error)
}

// BcryptHasher is a Hasher using bcrypt.
type BcryptHasher struct {
	cost int
}

// NewBcryptHasher creates a new BcryptHasher.
// The cost is clamped to the range accepted by bcrypt.
func NewBcryptHasher(cost int) *BcryptHasher {
	if cost < bcrypt.MinCost {
		cost = bcrypt.MinCost
	}
	if cost > bcrypt.MaxCost {
		cost = bcrypt.MaxCost
	}
	return &BcryptHasher{cost: cost}
}

// Cost returns the cost used for new hashes.
func (h *BcryptHasher) Cost() int {
	return h.cost
}

// Hash implements Hasher.Hash.
func (h *BcryptHasher) Hash(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// Verify implements Hasher.Verify.
func (h *BcryptHasher) Verify(password, hash string) (bool, error) {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

var _ Hasher = (*BcryptHasher)(nil)
