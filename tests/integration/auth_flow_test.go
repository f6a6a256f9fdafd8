package integration

import (
	"context"
	"flag"
	"net/http"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hrplatform/auth-service/internal/models"
	"github.com/hrplatform/auth-service/internal/services"
)

var (
	testDB   *TestDB
	setupErr error
)

func TestMain(m *testing.M) {
	flag.Parse()

	if !testing.Short() {
		testDB, setupErr = SetupTestDatabase(context.Background())
	}

	code := m.Run()

	if testDB != nil {
		testDB.Teardown(context.Background())
	}
	os.Exit(code)
}

// requireDB skips the test when no database is available and resets table
// state for isolation.
func requireDB(t *testing.T) *TestDB {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	if setupErr != nil {
		t.Skipf("database unavailable: %v", setupErr)
	}

	require.NoError(t, testDB.CleanupTables(context.Background()))
	return testDB
}

func seedActiveEmployee(t *testing.T, db *TestDB, suffix string) (*models.Employee, string) {
	t.Helper()
	ctx := context.Background()

	deptID, err := SeedDepartment(ctx, db.Pool, "Engineering", "ENG-"+suffix)
	require.NoError(t, err)
	roleID, err := SeedRole(ctx, db.Pool, "Engineer", "ROLE-"+suffix)
	require.NoError(t, err)

	badge, username, email, password := TestCredentials(suffix)
	emp, err := SeedEmployee(ctx, db.Pool, badge, username, email, password, SeedEmployeeOptions{
		RoleID:       &roleID,
		DepartmentID: &deptID,
		IsActive:     true,
	})
	require.NoError(t, err)

	return emp, password
}

func TestLoginFlow_EndToEnd(t *testing.T) {
	db := requireDB(t)
	ts := NewTestServer(db.DB)
	defer ts.Close()

	emp, password := seedActiveEmployee(t, db, "login")

	resp, err := ts.Request(http.MethodPost, "/auth/login", map[string]string{
		"username": emp.Username,
		"password": password,
	}, nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var result services.LoginResult
	require.NoError(t, ParseJSONResponse(resp, &result))
	assert.NotEmpty(t, result.AccessToken)
	assert.NotEmpty(t, result.RefreshToken)
	assert.Equal(t, "bearer", result.TokenType)
	assert.NotEmpty(t, result.SessionID)
	require.NotNil(t, result.User)
	assert.Equal(t, emp.Username, result.User.Username)
	assert.Equal(t, "Engineer", result.User.Role)

	// Access token works against a protected route
	meResp, err := ts.RequestWithAuth(http.MethodGet, "/auth/me", result.AccessToken, nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, meResp.StatusCode)

	var summary services.UserSummary
	require.NoError(t, ParseJSONResponse(meResp, &summary))
	assert.Equal(t, emp.ID, summary.ID)
	assert.Equal(t, emp.Email, summary.Email)

	// Login stamps last_login
	var lastLogin *string
	require.NoError(t, db.Pool.QueryRow(context.Background(),
		`SELECT last_login::text FROM employees WHERE id = $1`, emp.ID).Scan(&lastLogin))
	assert.NotNil(t, lastLogin)

	// Logout removes the session; re-logout reports not found
	logoutResp, err := ts.RequestWithAuth(http.MethodPost, "/auth/logout", result.AccessToken,
		map[string]string{"session_id": result.SessionID})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, logoutResp.StatusCode)
	logoutResp.Body.Close()

	logoutAgain, err := ts.RequestWithAuth(http.MethodPost, "/auth/logout", result.AccessToken,
		map[string]string{"session_id": result.SessionID})
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, logoutAgain.StatusCode)
	logoutAgain.Body.Close()
}

func TestLogin_InactiveEmployeeRejected(t *testing.T) {
	db := requireDB(t)
	ts := NewTestServer(db.DB)
	defer ts.Close()

	ctx := context.Background()
	badge, username, email, password := TestCredentials("inactive")
	_, err := SeedEmployee(ctx, db.Pool, badge, username, email, password, SeedEmployeeOptions{
		IsActive:         false,
		EmploymentStatus: models.EmploymentTerminated,
	})
	require.NoError(t, err)

	resp, err := ts.Request(http.MethodPost, "/auth/login", map[string]string{
		"username": username,
		"password": password,
	}, nil)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	msg, err := GetErrorMessage(resp)
	require.NoError(t, err)
	assert.Equal(t, "Incorrect username or password", msg)
}

func TestAccountLockout_WithDatabase(t *testing.T) {
	db := requireDB(t)
	ts := NewTestServer(db.DB)
	defer ts.Close()

	emp, password := seedActiveEmployee(t, db, "lockout")
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := ts.AuthService.Authenticate(ctx, emp.Username, "wrong-password")
		require.ErrorIs(t, err, models.ErrInvalidCredentials)
	}

	// Correct credentials are rejected while the account is locked
	_, err := ts.AuthService.Authenticate(ctx, emp.Username, password)
	assert.ErrorIs(t, err, models.ErrAccountLocked)
}

func TestRefreshFlow_EndToEnd(t *testing.T) {
	db := requireDB(t)
	ts := NewTestServer(db.DB)
	defer ts.Close()

	emp, password := seedActiveEmployee(t, db, "refresh")

	loginResp, err := ts.Request(http.MethodPost, "/auth/login", map[string]string{
		"username": emp.Username,
		"password": password,
	}, nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, loginResp.StatusCode)

	var login services.LoginResult
	require.NoError(t, ParseJSONResponse(loginResp, &login))

	refreshResp, err := ts.Request(http.MethodPost, "/auth/refresh", map[string]string{
		"refresh_token": login.RefreshToken,
	}, nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, refreshResp.StatusCode)

	var refresh services.RefreshResult
	require.NoError(t, ParseJSONResponse(refreshResp, &refresh))
	assert.NotEmpty(t, refresh.AccessToken)
	assert.Equal(t, "bearer", refresh.TokenType)

	// The refreshed access token is accepted on protected routes
	verifyResp, err := ts.RequestWithAuth(http.MethodGet, "/auth/verify-token", refresh.AccessToken, nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, verifyResp.StatusCode)
	verifyResp.Body.Close()

	// The refreshed token carries only the subject claim; profile lookup
	// must still resolve the employee from it
	meResp, err := ts.RequestWithAuth(http.MethodGet, "/auth/me", refresh.AccessToken, nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, meResp.StatusCode)

	var me services.UserSummary
	require.NoError(t, ParseJSONResponse(meResp, &me))
	assert.Equal(t, emp.Username, me.Username)
	assert.Equal(t, emp.Email, me.Email)

	// An access token is not accepted as a refresh token
	badResp, err := ts.Request(http.MethodPost, "/auth/refresh", map[string]string{
		"refresh_token": login.AccessToken,
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, badResp.StatusCode)
	badResp.Body.Close()
}

func TestPasswordResetFlow_EndToEnd(t *testing.T) {
	db := requireDB(t)
	ts := NewTestServer(db.DB)
	defer ts.Close()

	emp, _ := seedActiveEmployee(t, db, "reset")
	ctx := context.Background()

	forgotResp, err := ts.Request(http.MethodPost, "/auth/forgot-password", map[string]string{
		"email": emp.Email,
	}, nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, forgotResp.StatusCode)
	forgotResp.Body.Close()

	email := ts.EmailService.GetLastEmail()
	require.NotNil(t, email)
	assert.Equal(t, emp.Email, email.To)
	require.NotEmpty(t, email.Token)

	newPassword := "BrandNewSecret9$"
	resetResp, err := ts.Request(http.MethodPost, "/auth/reset-password", map[string]string{
		"reset_token":  email.Token,
		"new_password": newPassword,
	}, nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resetResp.StatusCode)
	resetResp.Body.Close()

	// New password authenticates against the updated database row
	_, err = ts.AuthService.Authenticate(ctx, emp.Username, newPassword)
	require.NoError(t, err)

	// Token is single-use
	replayResp, err := ts.Request(http.MethodPost, "/auth/reset-password", map[string]string{
		"reset_token":  email.Token,
		"new_password": "AnotherSecret8@",
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, replayResp.StatusCode)
	replayResp.Body.Close()
}

func TestForgotPassword_UnknownEmailSendsNothing(t *testing.T) {
	db := requireDB(t)
	ts := NewTestServer(db.DB)
	defer ts.Close()

	resp, err := ts.Request(http.MethodPost, "/auth/forgot-password", map[string]string{
		"email": "nobody@example.com",
	}, nil)
	require.NoError(t, err)
	defer resp.Body.Close()

	// Generic success either way, but no email goes out
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Nil(t, ts.EmailService.GetLastEmail())
}
