package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/hrplatform/auth-service/internal/auth"
	"github.com/hrplatform/auth-service/internal/models"
	pkgauth "github.com/hrplatform/auth-service/pkg/auth"
	pkglogger "github.com/hrplatform/auth-service/pkg/logger"
)

// EmployeeRepository defines the interface for employee data access
type EmployeeRepository interface {
	FindActiveByUsernameOrEmail(ctx context.Context, value string) (*models.Employee, error)
	FindByID(ctx context.Context, id int64) (*models.Employee, error)
	FindByEmail(ctx context.Context, email string) (*models.Employee, error)
	UpdatePasswordHash(ctx context.Context, employeeID int64, hash string, updatedAt time.Time) error
	UpdateLastLogin(ctx context.Context, employeeID int64, lastLogin time.Time) error
	ExistsWithUsername(ctx context.Context, username string, excludeID int64) (bool, error)
	ExistsWithEmail(ctx context.Context, email string, excludeID int64) (bool, error)
}

// AuthConfig tunes the auth core. Zero values fall back to the defaults.
type AuthConfig struct {
	MaxLoginAttempts int
	LockoutDuration  time.Duration
	ResetTokenTTL    time.Duration
}

// UserSummary is the user object embedded in a login response.
type UserSummary struct {
	ID         int64  `json:"id"`
	Username   string `json:"username"`
	EmployeeID string `json:"employee_id"`
	Email      string `json:"email"`
	FullName   string `json:"full_name"`
	Role       string `json:"role,omitempty"`
	Department string `json:"department,omitempty"`
}

// LoginResult is the full token bundle returned after authentication.
type LoginResult struct {
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token"`
	TokenType    string       `json:"token_type"`
	ExpiresIn    int64        `json:"expires_in"`
	SessionID    string       `json:"session_id"`
	User         *UserSummary `json:"user"`
}

// RefreshResult is returned by a token refresh. Only a new access token is
// issued; refresh tokens are not rotated.
type RefreshResult struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

// AuthService owns the authentication state for the process: the
// failed-attempt table, the reset-token table and the session registry.
// All three are in-memory and process-lifetime only.
type AuthService struct {
	repo        EmployeeRepository
	tm          *auth.TokenManager
	lockouts    *lockoutTracker
	resetTokens *resetTokenStore
	sessions    *sessionStore
	logger      *slog.Logger
	auditLogger *pkglogger.AuditLogger
}

// NewAuthService creates a new AuthService
func NewAuthService(repo EmployeeRepository, tm *auth.TokenManager, cfg AuthConfig, logger *slog.Logger, auditLogger *pkglogger.AuditLogger) *AuthService {
	if cfg.MaxLoginAttempts <= 0 {
		cfg.MaxLoginAttempts = 5
	}
	if cfg.LockoutDuration <= 0 {
		cfg.LockoutDuration = 15 * time.Minute
	}
	if cfg.ResetTokenTTL <= 0 {
		cfg.ResetTokenTTL = 1 * time.Hour
	}

	return &AuthService{
		repo:        repo,
		tm:          tm,
		lockouts:    newLockoutTracker(cfg.MaxLoginAttempts, cfg.LockoutDuration),
		resetTokens: newResetTokenStore(cfg.ResetTokenTTL),
		sessions:    newSessionStore(),
		logger:      logger,
		auditLogger: auditLogger,
	}
}

// Authenticate verifies credentials for a username or email. A locked
// account is rejected before any credential check, and without recording a
// further attempt. Unknown users and wrong passwords are indistinguishable
// to the caller.
func (s *AuthService) Authenticate(ctx context.Context, usernameOrEmail, password string) (*models.Employee, error) {
	usernameOrEmail = strings.TrimSpace(usernameOrEmail)
	if usernameOrEmail == "" {
		return nil, models.ErrInvalidCredentials
	}

	if s.lockouts.IsLocked(usernameOrEmail) {
		s.logger.Warn("login attempt on locked account")
		s.auditLogger.LogAuthAttempt(pkglogger.AuditEvent{
			EventType:     "login_failed",
			FailureReason: "account_locked",
			Success:       false,
		})
		return nil, models.ErrAccountLocked
	}

	emp, err := s.repo.FindActiveByUsernameOrEmail(ctx, usernameOrEmail)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			s.lockouts.RecordFailure(usernameOrEmail)
			s.logger.Info("login failed: invalid credentials")
			s.auditLogger.LogAuthAttempt(pkglogger.AuditEvent{
				EventType:     "login_failed",
				FailureReason: "invalid_credentials",
				Success:       false,
			})
			return nil, models.ErrInvalidCredentials
		}
		s.logger.Error("failed to look up employee", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	if !pkgauth.VerifyPassword(password, emp.PasswordHash) {
		locked := s.lockouts.RecordFailure(usernameOrEmail)
		if locked {
			s.logger.Warn("account locked after repeated failures",
				slog.Int64("employee_id", emp.ID))
		}
		s.logger.Info("login failed: invalid credentials")
		s.auditLogger.LogAuthAttempt(pkglogger.AuditEvent{
			EventType:     "login_failed",
			Username:      emp.Username,
			FailureReason: "invalid_credentials",
			Success:       false,
		})
		return nil, models.ErrInvalidCredentials
	}

	s.lockouts.Clear(usernameOrEmail)

	now := time.Now()
	if err := s.repo.UpdateLastLogin(ctx, emp.ID, now); err != nil {
		s.logger.Error("failed to stamp last login",
			slog.Int64("employee_id", emp.ID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	emp.LastLogin = &now

	s.logger.Info("login succeeded", slog.Int64("employee_id", emp.ID))
	s.auditLogger.LogAuthAttempt(pkglogger.AuditEvent{
		EventType: "login_success",
		Username:  emp.Username,
		Success:   true,
	})

	return emp, nil
}

// IssueTokens builds the access/refresh token pair for an authenticated
// employee and registers a session.
func (s *AuthService) IssueTokens(emp *models.Employee) (*LoginResult, error) {
	accessToken, err := s.tm.GenerateAccessToken(emp)
	if err != nil {
		s.logger.Error("failed to generate access token",
			slog.Int64("employee_id", emp.ID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	refreshToken, err := s.tm.GenerateRefreshToken(emp)
	if err != nil {
		s.logger.Error("failed to generate refresh token",
			slog.Int64("employee_id", emp.ID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	sessionID, err := s.sessions.Create(emp.ID, emp.Username)
	if err != nil {
		s.logger.Error("failed to create session", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	return &LoginResult{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "bearer",
		ExpiresIn:    int64(s.tm.AccessTokenExpiry().Seconds()),
		SessionID:    sessionID,
		User: &UserSummary{
			ID:         emp.ID,
			Username:   emp.Username,
			EmployeeID: emp.EmployeeID,
			Email:      emp.Email,
			FullName:   emp.FullName(),
			Role:       emp.RoleTitle(),
			Department: emp.DepartmentName(),
		},
	}, nil
}

// Login authenticates and issues tokens in one step.
func (s *AuthService) Login(ctx context.Context, usernameOrEmail, password string) (*LoginResult, error) {
	emp, err := s.Authenticate(ctx, usernameOrEmail, password)
	if err != nil {
		return nil, err
	}
	return s.IssueTokens(emp)
}

// RefreshAccessToken mints a new access token from a valid refresh token.
// The refresh token itself is not rotated, and no session state is touched.
func (s *AuthService) RefreshAccessToken(refreshToken string) (*RefreshResult, error) {
	claims, err := s.tm.ValidateToken(refreshToken)
	if err != nil {
		s.logger.Info("refresh token validation failed", slog.Any("error", err))
		return nil, models.ErrInvalidOrExpiredToken
	}

	if claims.Type != models.TokenTypeRefresh {
		s.logger.Warn("refresh attempt with non-refresh token")
		return nil, models.ErrInvalidOrExpiredToken
	}

	if claims.Subject == "" {
		return nil, models.ErrInvalidOrExpiredToken
	}

	accessToken, err := s.tm.GenerateAccessTokenForSubject(claims.Subject)
	if err != nil {
		s.logger.Error("failed to generate access token", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	return &RefreshResult{
		AccessToken: accessToken,
		TokenType:   "bearer",
		ExpiresIn:   int64(s.tm.AccessTokenExpiry().Seconds()),
	}, nil
}

// Logout removes the session entry if present and reports whether it
// existed. Already-issued tokens stay valid until natural expiry; this is
// session bookkeeping, not revocation.
func (s *AuthService) Logout(sessionID string) bool {
	removed := s.sessions.Remove(sessionID)
	if removed {
		s.logger.Info("user logged out")
	}
	return removed
}

// ChangePassword verifies the current password, applies the strength policy
// to the new one, rejects reuse of the current password, then persists the
// new hash.
func (s *AuthService) ChangePassword(ctx context.Context, emp *models.Employee, currentPassword, newPassword string) error {
	if !pkgauth.VerifyPassword(currentPassword, emp.PasswordHash) {
		return models.ErrPasswordMismatch
	}

	if violations := pkgauth.ValidatePasswordStrength(newPassword); len(violations) > 0 {
		return &models.WeakPasswordError{Violations: violations}
	}

	// Hash verification, not string equality: the stored hash is the source
	// of truth for what the current password is.
	if pkgauth.VerifyPassword(newPassword, emp.PasswordHash) {
		return models.ErrSamePassword
	}

	hash, err := pkgauth.HashPassword(newPassword)
	if err != nil {
		s.logger.Error("failed to hash password", slog.Any("error", err))
		return models.ErrInternalServer
	}

	if err := s.repo.UpdatePasswordHash(ctx, emp.ID, hash, time.Now()); err != nil {
		s.logger.Error("failed to persist password change",
			slog.Int64("employee_id", emp.ID), slog.Any("error", err))
		return models.ErrInternalServer
	}
	emp.PasswordHash = hash

	s.logger.Info("password changed", slog.Int64("employee_id", emp.ID))
	s.auditLogger.LogPasswordChange(emp.Username, true)
	return nil
}

// GenerateResetToken creates a reset token for the email unconditionally.
// Whether the email belongs to a real account is the caller's concern.
func (s *AuthService) GenerateResetToken(email string) (string, error) {
	token, err := s.resetTokens.Generate(email)
	if err != nil {
		s.logger.Error("failed to generate reset token", slog.Any("error", err))
		return "", models.ErrInternalServer
	}

	s.logger.Info("password reset token generated",
		slog.String("email", pkglogger.SanitizedEmail(email)))
	return token, nil
}

// ValidateResetToken returns the email behind a live, unused reset token.
func (s *AuthService) ValidateResetToken(token string) (string, bool) {
	return s.resetTokens.Validate(token)
}

// ResetPassword consumes a reset token and sets a new password for the
// account the token's email resolves to.
func (s *AuthService) ResetPassword(ctx context.Context, token, newPassword string) error {
	email, ok := s.resetTokens.Validate(token)
	if !ok {
		return models.ErrInvalidOrExpiredToken
	}

	emp, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return models.ErrUserNotFound
		}
		s.logger.Error("failed to look up employee for reset", slog.Any("error", err))
		return models.ErrInternalServer
	}

	if violations := pkgauth.ValidatePasswordStrength(newPassword); len(violations) > 0 {
		return &models.WeakPasswordError{Violations: violations}
	}

	hash, err := pkgauth.HashPassword(newPassword)
	if err != nil {
		s.logger.Error("failed to hash password", slog.Any("error", err))
		return models.ErrInternalServer
	}

	if err := s.repo.UpdatePasswordHash(ctx, emp.ID, hash, time.Now()); err != nil {
		s.logger.Error("failed to persist password reset",
			slog.Int64("employee_id", emp.ID), slog.Any("error", err))
		return models.ErrInternalServer
	}

	s.resetTokens.MarkUsed(token)

	s.logger.Info("password reset completed", slog.Int64("employee_id", emp.ID))
	s.auditLogger.LogAccountAction("password_reset", emp.Username)
	return nil
}

// IsUsernameAvailable reports whether no employee other than excludeID has
// the username. Pass excludeID 0 for a plain availability check.
func (s *AuthService) IsUsernameAvailable(ctx context.Context, username string, excludeID int64) (bool, error) {
	exists, err := s.repo.ExistsWithUsername(ctx, username, excludeID)
	if err != nil {
		s.logger.Error("username availability check failed", slog.Any("error", err))
		return false, models.ErrInternalServer
	}
	return !exists, nil
}

// IsEmailAvailable reports whether no employee other than excludeID has the
// email. Pass excludeID 0 for a plain availability check.
func (s *AuthService) IsEmailAvailable(ctx context.Context, email string, excludeID int64) (bool, error) {
	exists, err := s.repo.ExistsWithEmail(ctx, email, excludeID)
	if err != nil {
		s.logger.Error("email availability check failed", slog.Any("error", err))
		return false, models.ErrInternalServer
	}
	return !exists, nil
}

// SessionCount returns the number of live sessions, for health reporting.
func (s *AuthService) SessionCount() int {
	return s.sessions.Len()
}

// SweepExpired drops expired reset tokens and expired lockouts. Called by
// the background sweeper; lazy expiry on access keeps behavior correct even
// if this never runs, the sweep only bounds memory growth.
func (s *AuthService) SweepExpired(now time.Time) (resetTokens, lockouts int) {
	return s.resetTokens.sweepExpired(now), s.lockouts.sweepExpired(now)
}
