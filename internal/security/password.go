package security

import (
	"fmt"
	"unicode"

	"golang.org/x/crypto/bcrypt"
)

// MinPasswordLength is the shortest password we allow into the system.
const MinPasswordLength = 10

// HashCost is the bcrypt work factor. The default cost is a reasonable
// interactive-login tradeoff; raise via config for high-value deployments.
var HashCost = bcrypt.DefaultCost

// HashPassword validates the password against policy and returns its bcrypt hash.
func HashPassword(password string) (string, error) {
	if err := ValidatePasswordStrength(password); err != nil {
		return "", err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), HashCost)
	if err != nil {
		return "", fmt.Errorf("hashing password: %w", err)
	}
	return string(hash), nil
}

// ComparePassword checks a candidate password against a stored hash.
// Returns ErrInvalidCredentials on mismatch without leaking which part failed.
func ComparePassword(hash, password string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return ErrInvalidCredentials
	}
	return nil
}

// dummyHash is a bcrypt hash of an unguessable value, burned on lookups of
// unknown accounts so their latency matches a real password comparison.
var dummyHash = func() []byte {
	h, _ := bcrypt.GenerateFromPassword([]byte("rewardhub-dummy-comparison"), bcrypt.DefaultCost)
	return h
}()

// ComparePasswordDummy performs a bcrypt comparison that always fails.
// Called when the account does not exist, to keep unknown-account and
// wrong-password responses indistinguishable by timing.
func ComparePasswordDummy(password string) {
	_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
}

// ValidatePasswordStrength enforces the password policy: minimum length plus
// at least one letter and one digit. Returns ErrWeakPassword with a reason.
func ValidatePasswordStrength(password string) error {
	if len(password) < MinPasswordLength {
		return fmt.Errorf("%w: must be at least %d characters", ErrWeakPassword, MinPasswordLength)
	}
	var hasLetter, hasDigit bool
	for _, r := range password {
		switch {
		case unicode.IsLetter(r):
			hasLetter = true
		case unicode.IsDigit(r):
			hasDigit = true
		}
	}
	if !hasLetter || !hasDigit {
		return fmt.Errorf("%w: must contain at least one letter and one digit", ErrWeakPassword)
	}
	return nil
}
