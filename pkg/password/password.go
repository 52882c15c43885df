package password

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// DefaultCost is used when the configured cost is outside bcrypt's range.
const DefaultCost = 12

// Hash hashes a password using bcrypt at the given cost.
func Hash(password string, cost int) (string, error) {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = DefaultCost
	}
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", err
	}
	return string(bytes), nil
}

// Verify compares a password with a hash
func Verify(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}

var ErrTooLong = bcrypt.ErrPasswordTooLong

// IsTooLong reports whether err came from a password bcrypt refuses to hash.
func IsTooLong(err error) bool {
	return errors.Is(err, ErrTooLong)
}
