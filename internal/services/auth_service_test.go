package services

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/hrplatform/auth-service/internal/auth"
	"github.com/hrplatform/auth-service/internal/models"
	pkgauth "github.com/hrplatform/auth-service/pkg/auth"
	pkglogger "github.com/hrplatform/auth-service/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAuthService(repo EmployeeRepository, cfg AuthConfig) *AuthService {
	logger := slog.Default()
	tm := auth.NewTokenManager("test-secret-key-for-auth-tests", 30*time.Minute, 7*24*time.Hour)
	return NewAuthService(repo, tm, cfg, logger, pkglogger.NewAuditLogger(logger))
}

func repoWithEmployee(emp *models.Employee) *MockEmployeeRepository {
	return &MockEmployeeRepository{
		FindActiveByUsernameOrEmailFunc: func(ctx context.Context, value string) (*models.Employee, error) {
			if value == emp.Username || value == emp.Email {
				copied := *emp
				return &copied, nil
			}
			return nil, models.ErrNotFound
		},
		FindByEmailFunc: func(ctx context.Context, email string) (*models.Employee, error) {
			if email == emp.Email {
				copied := *emp
				return &copied, nil
			}
			return nil, models.ErrNotFound
		},
	}
}

// ============================================================================
// Authenticate / Login
// ============================================================================

func TestAuthService_Login_Success(t *testing.T) {
	alice := NewTestEmployee(1, "alice", "alice@example.com", "Secret1!")

	var lastLoginStamped bool
	repo := repoWithEmployee(alice)
	repo.UpdateLastLoginFunc = func(ctx context.Context, employeeID int64, lastLogin time.Time) error {
		assert.Equal(t, int64(1), employeeID)
		lastLoginStamped = true
		return nil
	}

	s := newTestAuthService(repo, AuthConfig{})

	result, err := s.Login(context.Background(), "alice", "Secret1!")
	require.NoError(t, err)
	require.NotNil(t, result)

	assert.NotEmpty(t, result.AccessToken)
	assert.NotEmpty(t, result.RefreshToken)
	assert.NotEmpty(t, result.SessionID)
	assert.Equal(t, "bearer", result.TokenType)
	assert.Equal(t, int64(1800), result.ExpiresIn)
	assert.True(t, lastLoginStamped)

	require.NotNil(t, result.User)
	assert.Equal(t, int64(1), result.User.ID)
	assert.Equal(t, "alice", result.User.Username)
	assert.Equal(t, "alice@example.com", result.User.Email)
	assert.Equal(t, "Test Employee", result.User.FullName)
	assert.Equal(t, "Engineer", result.User.Role)
	assert.Equal(t, "Engineering", result.User.Department)

	assert.Equal(t, 1, s.SessionCount())
}

func TestAuthService_Login_ByEmail(t *testing.T) {
	alice := NewTestEmployee(1, "alice", "alice@example.com", "Secret1!")
	s := newTestAuthService(repoWithEmployee(alice), AuthConfig{})

	result, err := s.Login(context.Background(), "alice@example.com", "Secret1!")
	require.NoError(t, err)
	assert.Equal(t, "alice", result.User.Username)
}

func TestAuthService_Authenticate_WrongPassword(t *testing.T) {
	alice := NewTestEmployee(1, "alice", "alice@example.com", "Secret1!")
	s := newTestAuthService(repoWithEmployee(alice), AuthConfig{})

	_, err := s.Authenticate(context.Background(), "alice", "wrong")
	assert.ErrorIs(t, err, models.ErrInvalidCredentials)
	assert.Equal(t, 1, s.lockouts.AttemptCount("alice"))
}

func TestAuthService_Authenticate_UnknownUserSameError(t *testing.T) {
	s := newTestAuthService(&MockEmployeeRepository{}, AuthConfig{})

	_, err := s.Authenticate(context.Background(), "ghost", "whatever")
	assert.ErrorIs(t, err, models.ErrInvalidCredentials)

	// The failed attempt is recorded against the supplied username even
	// though no such account exists.
	assert.Equal(t, 1, s.lockouts.AttemptCount("ghost"))
}

func TestAuthService_Authenticate_ClearsAttemptsOnSuccess(t *testing.T) {
	alice := NewTestEmployee(1, "alice", "alice@example.com", "Secret1!")
	s := newTestAuthService(repoWithEmployee(alice), AuthConfig{})
	ctx := context.Background()

	_, err := s.Authenticate(ctx, "alice", "wrong")
	require.ErrorIs(t, err, models.ErrInvalidCredentials)
	_, err = s.Authenticate(ctx, "alice", "wrong")
	require.ErrorIs(t, err, models.ErrInvalidCredentials)
	assert.Equal(t, 2, s.lockouts.AttemptCount("alice"))

	_, err = s.Authenticate(ctx, "alice", "Secret1!")
	require.NoError(t, err)
	assert.Equal(t, 0, s.lockouts.AttemptCount("alice"))
}

// ============================================================================
// Lockout
// ============================================================================

func TestAuthService_Lockout_AfterMaxAttempts(t *testing.T) {
	alice := NewTestEmployee(1, "alice", "alice@example.com", "Secret1!")
	s := newTestAuthService(repoWithEmployee(alice), AuthConfig{MaxLoginAttempts: 5})
	ctx := context.Background()

	// Four failures: not locked yet.
	for i := 0; i < 4; i++ {
		_, err := s.Authenticate(ctx, "alice", "wrong")
		assert.ErrorIs(t, err, models.ErrInvalidCredentials)
	}
	assert.Equal(t, 4, s.lockouts.AttemptCount("alice"))
	assert.False(t, s.lockouts.IsLocked("alice"))

	// Fifth failure locks the account.
	_, err := s.Authenticate(ctx, "alice", "wrong")
	assert.ErrorIs(t, err, models.ErrInvalidCredentials)
	assert.True(t, s.lockouts.IsLocked("alice"))

	// Correct credentials are still rejected while locked.
	_, err = s.Authenticate(ctx, "alice", "Secret1!")
	assert.ErrorIs(t, err, models.ErrAccountLocked)
}

func TestAuthService_Lockout_NoAttemptGrowthWhileLocked(t *testing.T) {
	alice := NewTestEmployee(1, "alice", "alice@example.com", "Secret1!")
	s := newTestAuthService(repoWithEmployee(alice), AuthConfig{MaxLoginAttempts: 3})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, _ = s.Authenticate(ctx, "alice", "wrong")
	}
	require.True(t, s.lockouts.IsLocked("alice"))

	// Locked accounts short-circuit before attempt recording.
	for i := 0; i < 10; i++ {
		_, err := s.Authenticate(ctx, "alice", "wrong")
		assert.ErrorIs(t, err, models.ErrAccountLocked)
	}
	assert.Equal(t, 3, s.lockouts.AttemptCount("alice"))
}

func TestAuthService_Lockout_ExpiresAndClears(t *testing.T) {
	alice := NewTestEmployee(1, "alice", "alice@example.com", "Secret1!")
	s := newTestAuthService(repoWithEmployee(alice), AuthConfig{
		MaxLoginAttempts: 2,
		LockoutDuration:  20 * time.Millisecond,
	})
	ctx := context.Background()

	_, _ = s.Authenticate(ctx, "alice", "wrong")
	_, _ = s.Authenticate(ctx, "alice", "wrong")
	require.True(t, s.lockouts.IsLocked("alice"))

	time.Sleep(30 * time.Millisecond)

	// Lockout has expired: correct credentials succeed and the attempt
	// count is back to zero.
	_, err := s.Authenticate(ctx, "alice", "Secret1!")
	require.NoError(t, err)
	assert.Equal(t, 0, s.lockouts.AttemptCount("alice"))
}

func TestLockoutTracker_SingleAttemptThresholdLocksOnFirstFailure(t *testing.T) {
	tracker := newLockoutTracker(1, time.Minute)

	// The first failure creates the record and must already count
	// against the threshold.
	assert.True(t, tracker.RecordFailure("alice"))
	assert.True(t, tracker.IsLocked("alice"))
}

func TestLockoutTracker_ConcurrentFailures(t *testing.T) {
	tracker := newLockoutTracker(100, time.Minute)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tracker.RecordFailure("alice")
		}()
	}
	wg.Wait()

	// No increment may be lost to a read-check-then-write race.
	assert.Equal(t, 50, tracker.AttemptCount("alice"))
}

func TestLockoutTracker_SweepKeepsSubThresholdRecords(t *testing.T) {
	tracker := newLockoutTracker(5, 10*time.Millisecond)

	tracker.RecordFailure("accumulating")
	for i := 0; i < 5; i++ {
		tracker.RecordFailure("locked")
	}

	time.Sleep(20 * time.Millisecond)
	removed := tracker.sweepExpired(time.Now())

	assert.Equal(t, 1, removed)
	assert.Equal(t, 1, tracker.AttemptCount("accumulating"))
	assert.Equal(t, 0, tracker.AttemptCount("locked"))
}

// ============================================================================
// Token refresh
// ============================================================================

func TestAuthService_RefreshAccessToken_Success(t *testing.T) {
	alice := NewTestEmployee(1, "alice", "alice@example.com", "Secret1!")
	s := newTestAuthService(repoWithEmployee(alice), AuthConfig{})

	login, err := s.Login(context.Background(), "alice", "Secret1!")
	require.NoError(t, err)

	refreshed, err := s.RefreshAccessToken(login.RefreshToken)
	require.NoError(t, err)
	assert.NotEmpty(t, refreshed.AccessToken)
	assert.Equal(t, "bearer", refreshed.TokenType)
	assert.Equal(t, int64(1800), refreshed.ExpiresIn)

	claims, err := s.tm.ValidateToken(refreshed.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, models.TokenTypeAccess, claims.Type)
	assert.Equal(t, "1", claims.Subject)
}

func TestAuthService_RefreshAccessToken_RejectsAccessToken(t *testing.T) {
	alice := NewTestEmployee(1, "alice", "alice@example.com", "Secret1!")
	s := newTestAuthService(repoWithEmployee(alice), AuthConfig{})

	login, err := s.Login(context.Background(), "alice", "Secret1!")
	require.NoError(t, err)

	// An access token is not accepted where a refresh token is required.
	_, err = s.RefreshAccessToken(login.AccessToken)
	assert.ErrorIs(t, err, models.ErrInvalidOrExpiredToken)
}

func TestAuthService_RefreshAccessToken_RejectsGarbage(t *testing.T) {
	s := newTestAuthService(&MockEmployeeRepository{}, AuthConfig{})

	_, err := s.RefreshAccessToken("garbage.token.value")
	assert.ErrorIs(t, err, models.ErrInvalidOrExpiredToken)
}

func TestAuthService_RefreshAccessToken_DoesNotTouchSessions(t *testing.T) {
	alice := NewTestEmployee(1, "alice", "alice@example.com", "Secret1!")
	s := newTestAuthService(repoWithEmployee(alice), AuthConfig{})

	login, err := s.Login(context.Background(), "alice", "Secret1!")
	require.NoError(t, err)
	require.Equal(t, 1, s.SessionCount())

	_, err = s.RefreshAccessToken(login.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, 1, s.SessionCount())
}

// ============================================================================
// Logout
// ============================================================================

func TestAuthService_Logout(t *testing.T) {
	alice := NewTestEmployee(1, "alice", "alice@example.com", "Secret1!")
	s := newTestAuthService(repoWithEmployee(alice), AuthConfig{})

	login, err := s.Login(context.Background(), "alice", "Secret1!")
	require.NoError(t, err)

	assert.True(t, s.Logout(login.SessionID))
	assert.False(t, s.Logout(login.SessionID))
	assert.False(t, s.Logout("never-issued"))
	assert.Equal(t, 0, s.SessionCount())

	// Logout is bookkeeping only: the issued tokens remain valid.
	_, err = s.tm.ValidateToken(login.AccessToken)
	assert.NoError(t, err)
}

// ============================================================================
// Change password
// ============================================================================

func TestAuthService_ChangePassword_Success(t *testing.T) {
	alice := NewTestEmployee(1, "alice", "alice@example.com", "Secret1!")

	var persistedHash string
	repo := repoWithEmployee(alice)
	repo.UpdatePasswordHashFunc = func(ctx context.Context, employeeID int64, hash string, updatedAt time.Time) error {
		assert.Equal(t, int64(1), employeeID)
		persistedHash = hash
		return nil
	}

	s := newTestAuthService(repo, AuthConfig{})

	err := s.ChangePassword(context.Background(), alice, "Secret1!", "NewSecret2@")
	require.NoError(t, err)
	require.NotEmpty(t, persistedHash)
	assert.True(t, pkgauth.VerifyPassword("NewSecret2@", persistedHash))
	assert.Equal(t, persistedHash, alice.PasswordHash)
}

func TestAuthService_ChangePassword_WrongCurrent(t *testing.T) {
	alice := NewTestEmployee(1, "alice", "alice@example.com", "Secret1!")
	s := newTestAuthService(repoWithEmployee(alice), AuthConfig{})

	err := s.ChangePassword(context.Background(), alice, "NotTheCurrent1!", "NewSecret2@")
	assert.ErrorIs(t, err, models.ErrPasswordMismatch)
}

func TestAuthService_ChangePassword_WeakNewPassword(t *testing.T) {
	alice := NewTestEmployee(1, "alice", "alice@example.com", "Secret1!")
	s := newTestAuthService(repoWithEmployee(alice), AuthConfig{})

	err := s.ChangePassword(context.Background(), alice, "Secret1!", "weak")
	require.Error(t, err)

	wpe, ok := models.IsWeakPassword(err)
	require.True(t, ok)
	assert.NotEmpty(t, wpe.Violations)
}

func TestAuthService_ChangePassword_SamePassword(t *testing.T) {
	alice := NewTestEmployee(1, "alice", "alice@example.com", "Secret1!")
	s := newTestAuthService(repoWithEmployee(alice), AuthConfig{})

	// The current-password check passes, but reusing it is rejected.
	err := s.ChangePassword(context.Background(), alice, "Secret1!", "Secret1!")
	assert.ErrorIs(t, err, models.ErrSamePassword)
}

// ============================================================================
// Password reset tokens
// ============================================================================

func TestAuthService_ResetToken_SingleUse(t *testing.T) {
	alice := NewTestEmployee(1, "alice", "a@b.com", "Secret1!")
	s := newTestAuthService(repoWithEmployee(alice), AuthConfig{})

	token, err := s.GenerateResetToken("a@b.com")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	email, ok := s.ValidateResetToken(token)
	require.True(t, ok)
	assert.Equal(t, "a@b.com", email)

	// Validation has no side effects on a live token.
	email, ok = s.ValidateResetToken(token)
	require.True(t, ok)
	assert.Equal(t, "a@b.com", email)

	err = s.ResetPassword(context.Background(), token, "NewSecret2@")
	require.NoError(t, err)

	// Consumed tokens no longer validate.
	_, ok = s.ValidateResetToken(token)
	assert.False(t, ok)

	err = s.ResetPassword(context.Background(), token, "ThirdSecret3#")
	assert.ErrorIs(t, err, models.ErrInvalidOrExpiredToken)
}

func TestAuthService_ResetToken_Expiry(t *testing.T) {
	s := newTestAuthService(&MockEmployeeRepository{}, AuthConfig{
		ResetTokenTTL: 10 * time.Millisecond,
	})

	token, err := s.GenerateResetToken("a@b.com")
	require.NoError(t, err)

	time.Sleep(20 * time.Millisecond)

	_, ok := s.ValidateResetToken(token)
	assert.False(t, ok)
}

func TestAuthService_ResetToken_Unknown(t *testing.T) {
	s := newTestAuthService(&MockEmployeeRepository{}, AuthConfig{})

	_, ok := s.ValidateResetToken("never-issued")
	assert.False(t, ok)
}

func TestAuthService_ResetPassword_UserNotFound(t *testing.T) {
	s := newTestAuthService(&MockEmployeeRepository{}, AuthConfig{})

	token, err := s.GenerateResetToken("gone@example.com")
	require.NoError(t, err)

	err = s.ResetPassword(context.Background(), token, "NewSecret2@")
	assert.ErrorIs(t, err, models.ErrUserNotFound)
}

func TestAuthService_ResetPassword_WeakPasswordKeepsToken(t *testing.T) {
	alice := NewTestEmployee(1, "alice", "a@b.com", "Secret1!")
	s := newTestAuthService(repoWithEmployee(alice), AuthConfig{})

	token, err := s.GenerateResetToken("a@b.com")
	require.NoError(t, err)

	err = s.ResetPassword(context.Background(), token, "weak")
	_, ok := models.IsWeakPassword(err)
	require.True(t, ok)

	// The token was not consumed by the failed attempt.
	email, ok := s.ValidateResetToken(token)
	assert.True(t, ok)
	assert.Equal(t, "a@b.com", email)
}

// ============================================================================
// Availability checks
// ============================================================================

func TestAuthService_Availability(t *testing.T) {
	repo := &MockEmployeeRepository{
		ExistsWithUsernameFunc: func(ctx context.Context, username string, excludeID int64) (bool, error) {
			return username == "taken", nil
		},
		ExistsWithEmailFunc: func(ctx context.Context, email string, excludeID int64) (bool, error) {
			return email == "taken@example.com", nil
		},
	}
	s := newTestAuthService(repo, AuthConfig{})
	ctx := context.Background()

	available, err := s.IsUsernameAvailable(ctx, "taken", 0)
	require.NoError(t, err)
	assert.False(t, available)

	available, err = s.IsUsernameAvailable(ctx, "free", 0)
	require.NoError(t, err)
	assert.True(t, available)

	available, err = s.IsEmailAvailable(ctx, "taken@example.com", 0)
	require.NoError(t, err)
	assert.False(t, available)

	available, err = s.IsEmailAvailable(ctx, "free@example.com", 0)
	require.NoError(t, err)
	assert.True(t, available)
}

// ============================================================================
// Sweep
// ============================================================================

func TestAuthService_SweepExpired(t *testing.T) {
	s := newTestAuthService(&MockEmployeeRepository{}, AuthConfig{
		ResetTokenTTL: 10 * time.Millisecond,
	})

	_, err := s.GenerateResetToken("a@b.com")
	require.NoError(t, err)
	_, err = s.GenerateResetToken("c@d.com")
	require.NoError(t, err)

	time.Sleep(20 * time.Millisecond)

	resetTokens, lockouts := s.SweepExpired(time.Now())
	assert.Equal(t, 2, resetTokens)
	assert.Equal(t, 0, lockouts)
}

// ============================================================================
// Forgot-password orchestration
// ============================================================================

func TestPasswordResetService_RequestReset_KnownEmail(t *testing.T) {
	alice := NewTestEmployee(1, "alice", "alice@example.com", "Secret1!")
	repo := repoWithEmployee(alice)
	s := newTestAuthService(repo, AuthConfig{})
	mailer := &MockEmailService{}

	prs := NewPasswordResetService(s, repo, mailer, slog.Default(), time.Hour)

	err := prs.RequestReset(context.Background(), "alice@example.com")
	require.NoError(t, err)
	require.Len(t, mailer.SentEmails, 1)
	assert.Equal(t, "alice@example.com", mailer.SentEmails[0])

	// The emailed token is live and resolves to the address.
	email, ok := s.ValidateResetToken(mailer.SentTokens[0])
	require.True(t, ok)
	assert.Equal(t, "alice@example.com", email)
}

func TestPasswordResetService_RequestReset_UnknownEmailSilent(t *testing.T) {
	s := newTestAuthService(&MockEmployeeRepository{}, AuthConfig{})
	mailer := &MockEmailService{}

	prs := NewPasswordResetService(s, &MockEmployeeRepository{}, mailer, slog.Default(), time.Hour)

	// Unknown addresses succeed without sending anything, so the endpoint
	// cannot be used to probe for accounts.
	err := prs.RequestReset(context.Background(), "ghost@example.com")
	require.NoError(t, err)
	assert.Empty(t, mailer.SentEmails)
}

func TestPasswordResetService_RequestReset_InvalidEmail(t *testing.T) {
	s := newTestAuthService(&MockEmployeeRepository{}, AuthConfig{})
	mailer := &MockEmailService{}

	prs := NewPasswordResetService(s, &MockEmployeeRepository{}, mailer, slog.Default(), time.Hour)

	err := prs.RequestReset(context.Background(), "not an address")
	assert.ErrorIs(t, err, models.ErrInvalidEmailFormat)
	assert.Empty(t, mailer.SentEmails)
}
