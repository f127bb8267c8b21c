// Password hashing for the credential store.
//
// WHY BCRYPT FOR A MOCK LOGIN?
// The credential store is a local emulation of sign-up/sign-in, but the
// secrets in it are still real passwords people reuse elsewhere. bcrypt keeps
// the database file harmless if it leaks, and verification stays an exact
// match: the same bytes in, the same answer out.
//
// Hash format (the full output of bcrypt.GenerateFromPassword):
//
//	$2a$12$<22-char salt><31-char hash>
//	 ^   ^
//	 |   cost (12 rounds → 2^12 = 4096 iterations)
//	 version

package auth

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/sakif/pulse-dashboard/internal/apperror"
)

// defaultCost takes roughly 250ms on a modern machine: negligible for a
// login form, brutal for offline guessing.
const defaultCost = 12

// maxPasswordBytes is bcrypt's input limit. Longer inputs would be silently
// truncated by older implementations, so we refuse them up front.
const maxPasswordBytes = 72

// ErrMismatch is returned by Verify when the password does not match.
var ErrMismatch = errors.New("auth: password does not match")

// PasswordService provides bcrypt hashing and verification.
//
// It's a struct (not free functions) so that the cost can be injected in
// tests: cost 4 makes a test suite with dozens of registrations run in
// milliseconds.
type PasswordService struct {
	cost int
}

// NewPasswordService creates a PasswordService with the default cost (12).
func NewPasswordService() *PasswordService {
	return &PasswordService{cost: defaultCost}
}

// NewPasswordServiceForTest creates a PasswordService with a low bcrypt cost.
// Do NOT use in production.
func NewPasswordServiceForTest(cost int) *PasswordService {
	if cost < bcrypt.MinCost {
		cost = bcrypt.MinCost
	}
	return &PasswordService{cost: cost}
}

// Hash hashes the plaintext password with bcrypt.
//
// Empty and over-long passwords are validation failures (the sign-up form
// shows them next to the password field), everything else is internal.
func (p *PasswordService) Hash(plaintext string) (string, error) {
	if plaintext == "" {
		return "", apperror.ValidationFailed("password", "password is required")
	}
	if len(plaintext) > maxPasswordBytes {
		return "", apperror.ValidationFailed("password",
			fmt.Sprintf("password must be %d bytes or fewer", maxPasswordBytes))
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(plaintext), p.cost)
	if err != nil {
		return "", fmt.Errorf("auth: hashing password: %w", err)
	}

	return string(hashed), nil
}

// Verify checks plaintext against a hash produced by Hash.
// It returns ErrMismatch for a wrong password and a wrapped error for a
// corrupt hash.
func (p *PasswordService) Verify(hash, plaintext string) error {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext))
	if err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return ErrMismatch
		}
		return fmt.Errorf("auth: comparing password hash: %w", err)
	}
	return nil
}
