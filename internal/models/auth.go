package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Token type discriminators carried in the "type" claim.
const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

// TokenClaims is the claim set carried by access and refresh tokens.
// Refresh tokens carry only Subject and Type; access tokens issued at login
// additionally carry the employee profile claims.
type TokenClaims struct {
	Type       string `json:"type"`
	Username   string `json:"username,omitempty"`
	EmployeeID string `json:"employee_id,omitempty"`
	Email      string `json:"email,omitempty"`
	Role       string `json:"role,omitempty"`
	Department string `json:"department,omitempty"`
	jwt.RegisteredClaims
}

// FailedLoginRecord tracks consecutive failed logins for one username.
// LockedUntil is nil until the attempt count reaches the lockout threshold.
type FailedLoginRecord struct {
	Count        int
	FirstAttempt time.Time
	LastAttempt  time.Time
	LockedUntil  *time.Time
}

// ResetTokenRecord is the server-side state behind a password reset token.
type ResetTokenRecord struct {
	Email     string
	ExpiresAt time.Time
	Used      bool
}

// Session is the bookkeeping entry for one logical login. Sessions are not
// cryptographically tied to the issued tokens; removing a session does not
// invalidate them.
type Session struct {
	UserID       int64
	Username     string
	CreatedAt    time.Time
	LastActivity time.Time
}
