package auth

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

const (
	BcryptCost       = 12
	ResetTokenLength = 32 // 256 bits
	MinPasswordLen   = 8
	// MaxPasswordLen matches bcrypt's 72-byte input limit; anything longer
	// would pass policy and then fail to hash.
	MaxPasswordLen = 72
)

const specialChars = "!@#$%^&*()_+-=[]{}|;:,.<>?"

// Common weak passwords rejected regardless of character composition
var commonPasswords = map[string]bool{
	"password":    true,
	"123456":      true,
	"password123": true,
	"admin":       true,
	"qwerty":      true,
}

// HashPassword hashes a password with bcrypt at the fixed service cost.
func HashPassword(password string) (string, error) {
	if password == "" {
		return "", fmt.Errorf("password cannot be empty")
	}
	hashedBytes, err := bcrypt.GenerateFromPassword([]byte(password), BcryptCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hashedBytes), nil
}

// VerifyPassword reports whether plain matches the stored bcrypt hash.
// A malformed hash verifies as false rather than erroring.
func VerifyPassword(plain, hashed string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(plain)) == nil
}

// GenerateResetToken returns a cryptographically random URL-safe token.
func GenerateResetToken() (string, error) {
	bytes := make([]byte, ResetTokenLength)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("failed to generate reset token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(bytes), nil
}

// GenerateSessionID returns a cryptographically random URL-safe session id.
func GenerateSessionID() (string, error) {
	bytes := make([]byte, ResetTokenLength)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("failed to generate session id: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(bytes), nil
}

// ValidatePasswordStrength checks a candidate password against the policy and
// returns every rule it violates, not just the first. A nil slice means the
// password is acceptable.
func ValidatePasswordStrength(password string) []string {
	var violations []string

	if len(password) < MinPasswordLen {
		violations = append(violations, fmt.Sprintf("Password must be at least %d characters long", MinPasswordLen))
	}
	if len(password) > MaxPasswordLen {
		violations = append(violations, fmt.Sprintf("Password must be at most %d characters long", MaxPasswordLen))
	}

	hasUpper := false
	hasLower := false
	hasDigit := false
	hasSpecial := false

	for _, r := range password {
		switch {
		case r >= 'A' && r <= 'Z':
			hasUpper = true
		case r >= 'a' && r <= 'z':
			hasLower = true
		case r >= '0' && r <= '9':
			hasDigit = true
		case strings.ContainsRune(specialChars, r):
			hasSpecial = true
		}
	}

	if !hasUpper {
		violations = append(violations, "Password must contain at least one uppercase letter")
	}
	if !hasLower {
		violations = append(violations, "Password must contain at least one lowercase letter")
	}
	if !hasDigit {
		violations = append(violations, "Password must contain at least one digit")
	}
	if !hasSpecial {
		violations = append(violations, "Password must contain at least one special character")
	}

	if commonPasswords[strings.ToLower(password)] {
		violations = append(violations, "Password is too common")
	}

	return violations
}
