package auth

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashPassword_RoundTrip(t *testing.T) {
	password := "Secret1!"

	hash, err := HashPassword(password)
	require.NoError(t, err)
	require.NotEmpty(t, hash)
	assert.NotEqual(t, password, hash)

	assert.True(t, VerifyPassword(password, hash))
	assert.False(t, VerifyPassword("Secret1?", hash))
}

func TestHashPassword_EmptyPassword(t *testing.T) {
	_, err := HashPassword("")
	assert.Error(t, err)
}

func TestHashPassword_NonDeterministicSalt(t *testing.T) {
	h1, err := HashPassword("Secret1!")
	require.NoError(t, err)
	h2, err := HashPassword("Secret1!")
	require.NoError(t, err)

	assert.NotEqual(t, h1, h2)
	assert.True(t, VerifyPassword("Secret1!", h1))
	assert.True(t, VerifyPassword("Secret1!", h2))
}

func TestVerifyPassword_MalformedHash(t *testing.T) {
	assert.False(t, VerifyPassword("Secret1!", "not-a-bcrypt-hash"))
	assert.False(t, VerifyPassword("Secret1!", ""))
}

func TestValidatePasswordStrength_Valid(t *testing.T) {
	assert.Nil(t, ValidatePasswordStrength("Secret1!"))
	assert.Nil(t, ValidatePasswordStrength("Tr0ub4dor&3xample"))
}

func TestValidatePasswordStrength_TooShort(t *testing.T) {
	violations := ValidatePasswordStrength("Ab1!")
	require.NotEmpty(t, violations)
	assert.Contains(t, violations, "Password must be at least 8 characters long")
}

func TestValidatePasswordStrength_TooLong(t *testing.T) {
	violations := ValidatePasswordStrength("Aa1!" + strings.Repeat("x", 130))
	assert.Contains(t, violations, "Password must be at most 72 characters long")
}

// The length cap must match bcrypt's 72-byte input limit: a password the
// policy accepts must always hash, and one byte over must be a policy
// violation rather than a hashing failure.
func TestValidatePasswordStrength_BcryptBoundary(t *testing.T) {
	atLimit := "Aa1!" + strings.Repeat("x", 68)
	require.Len(t, atLimit, 72)
	assert.Nil(t, ValidatePasswordStrength(atLimit))

	_, err := HashPassword(atLimit)
	require.NoError(t, err)

	overLimit := atLimit + "x"
	violations := ValidatePasswordStrength(overLimit)
	assert.Contains(t, violations, "Password must be at most 72 characters long")
}

func TestValidatePasswordStrength_ReportsAllViolations(t *testing.T) {
	// Lowercase-only and short: expect length, uppercase, digit and special
	// violations reported together.
	violations := ValidatePasswordStrength("abc")
	assert.Len(t, violations, 4)
	assert.Contains(t, violations, "Password must be at least 8 characters long")
	assert.Contains(t, violations, "Password must contain at least one uppercase letter")
	assert.Contains(t, violations, "Password must contain at least one digit")
	assert.Contains(t, violations, "Password must contain at least one special character")
}

func TestValidatePasswordStrength_MissingCharacterClasses(t *testing.T) {
	tests := []struct {
		name     string
		password string
		want     string
	}{
		{"no uppercase", "secret123!", "Password must contain at least one uppercase letter"},
		{"no lowercase", "SECRET123!", "Password must contain at least one lowercase letter"},
		{"no digit", "SecretPass!", "Password must contain at least one digit"},
		{"no special", "SecretPass1", "Password must contain at least one special character"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			violations := ValidatePasswordStrength(tt.password)
			assert.Contains(t, violations, tt.want)
		})
	}
}

func TestValidatePasswordStrength_CommonPassword(t *testing.T) {
	violations := ValidatePasswordStrength("password123")
	assert.Contains(t, violations, "Password is too common")

	// Case-insensitive match
	violations = ValidatePasswordStrength("PASSWORD123")
	assert.Contains(t, violations, "Password is too common")
}

func TestGenerateResetToken_UniqueAndURLSafe(t *testing.T) {
	t1, err := GenerateResetToken()
	require.NoError(t, err)
	t2, err := GenerateResetToken()
	require.NoError(t, err)

	assert.NotEqual(t, t1, t2)
	assert.NotContains(t, t1, "+")
	assert.NotContains(t, t1, "/")
	assert.NotContains(t, t1, "=")
	assert.GreaterOrEqual(t, len(t1), 43) // 32 bytes base64url, unpadded
}

func TestValidateEmailFormat(t *testing.T) {
	ok, normalized := ValidateEmailFormat("  Alice@Example.COM ")
	assert.True(t, ok)
	assert.Equal(t, "alice@example.com", normalized)

	ok, normalized = ValidateEmailFormat("not-an-email")
	assert.False(t, ok)
	assert.Empty(t, normalized)

	ok, _ = ValidateEmailFormat("")
	assert.False(t, ok)
}
