package auth

import (
	"strings"

	"github.com/go-playground/validator/v10"
)

var emailValidate = validator.New()

// ValidateEmailFormat checks email syntax and returns the normalized
// (trimmed, lowercased) address. On any validation failure it returns
// (false, "") and never panics.
func ValidateEmailFormat(email string) (bool, string) {
	normalized := strings.ToLower(strings.TrimSpace(email))
	if err := emailValidate.Var(normalized, "required,email"); err != nil {
		return false, ""
	}
	return true, normalized
}
