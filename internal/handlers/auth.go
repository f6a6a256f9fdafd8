package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/hrplatform/auth-service/internal/auth"
	"github.com/hrplatform/auth-service/internal/models"
	"github.com/hrplatform/auth-service/internal/services"
	pkgauth "github.com/hrplatform/auth-service/pkg/auth"
	pkghttp "github.com/hrplatform/auth-service/pkg/http"
)

// AuthServiceInterface defines the interface for auth business logic
type AuthServiceInterface interface {
	Login(ctx context.Context, usernameOrEmail, password string) (*services.LoginResult, error)
	RefreshAccessToken(refreshToken string) (*services.RefreshResult, error)
	Logout(sessionID string) bool
	ChangePassword(ctx context.Context, emp *models.Employee, currentPassword, newPassword string) error
	ResetPassword(ctx context.Context, token, newPassword string) error
}

// PasswordResetRequester defines the interface for the forgot-password flow
type PasswordResetRequester interface {
	RequestReset(ctx context.Context, email string) error
}

// AuthHandler handles authentication-related HTTP requests
type AuthHandler struct {
	service      AuthServiceInterface
	resetService PasswordResetRequester
	repo         services.EmployeeRepository
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(service AuthServiceInterface, resetService PasswordResetRequester, repo services.EmployeeRepository) *AuthHandler {
	return &AuthHandler{
		service:      service,
		resetService: resetService,
		repo:         repo,
	}
}

// Request DTOs

// LoginRequest represents the request body for login
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// RefreshTokenRequest represents the request body for token refresh
type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// LogoutRequest represents the request body for logout
type LogoutRequest struct {
	SessionID string `json:"session_id" validate:"required"`
}

// ChangePasswordRequest represents the request body for a password change
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required"`
}

// ForgotPasswordRequest represents the request body for a reset request
type ForgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// ResetPasswordRequest represents the request body for a token-backed reset
type ResetPasswordRequest struct {
	ResetToken  string `json:"reset_token" validate:"required"`
	NewPassword string `json:"new_password" validate:"required"`
}

// MessageResponse is a simple confirmation payload
type MessageResponse struct {
	Message string `json:"message"`
}

// Login handles user login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	req.Username = strings.TrimSpace(req.Username)

	result, err := h.service.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrInvalidCredentials):
			pkghttp.WriteUnauthorized(w, "Incorrect username or password")
		case errors.Is(err, models.ErrAccountLocked):
			pkghttp.WriteLocked(w,
				"Account temporarily locked due to failed login attempts. Please try again later.")
		default:
			pkghttp.WriteInternalError(w, "Internal server error")
		}
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// RefreshToken handles token refresh
func (h *AuthHandler) RefreshToken(w http.ResponseWriter, r *http.Request) {
	var req RefreshTokenRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	result, err := h.service.RefreshAccessToken(req.RefreshToken)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrInvalidOrExpiredToken):
			pkghttp.WriteUnauthorized(w, "Invalid or expired refresh token")
		default:
			pkghttp.WriteInternalError(w, "Internal server error")
		}
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// Logout removes the server-side session entry. Outstanding tokens stay
// valid until they expire.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	var req LogoutRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	if !h.service.Logout(req.SessionID) {
		pkghttp.WriteNotFound(w, "Session not found")
		return
	}

	writeJSON(w, http.StatusOK, MessageResponse{Message: "Logged out successfully"})
}

// currentEmployee resolves the authenticated employee from the token's
// subject claim. Refreshed access tokens carry only the subject, so this is
// the one lookup every authenticated handler can rely on. Writes the error
// response and returns nil when resolution fails.
func (h *AuthHandler) currentEmployee(w http.ResponseWriter, r *http.Request) *models.Employee {
	claims := auth.GetUserFromContext(r)
	if claims == nil {
		pkghttp.WriteUnauthorized(w, "Authentication required")
		return nil
	}

	id, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil {
		pkghttp.WriteUnauthorized(w, "Authentication required")
		return nil
	}

	emp, err := h.repo.FindByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			pkghttp.WriteUnauthorized(w, "Authentication required")
			return nil
		}
		pkghttp.WriteInternalError(w, "Internal server error")
		return nil
	}
	return emp
}

// ChangePassword handles an authenticated password change
func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	emp := h.currentEmployee(w, r)
	if emp == nil {
		return
	}

	var req ChangePasswordRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	if err := h.service.ChangePassword(r.Context(), emp, req.CurrentPassword, req.NewPassword); err != nil {
		writePasswordError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, MessageResponse{Message: "Password changed successfully"})
}

// ForgotPassword starts the reset flow. The response is identical whether
// or not the email belongs to an account.
func (h *AuthHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req ForgotPasswordRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	ok, normalized := pkgauth.ValidateEmailFormat(req.Email)
	if !ok {
		pkghttp.WriteBadRequest(w, "Invalid email format")
		return
	}

	if err := h.resetService.RequestReset(r.Context(), normalized); err != nil {
		if errors.Is(err, models.ErrInvalidEmailFormat) {
			pkghttp.WriteBadRequest(w, "Invalid email format")
			return
		}
		pkghttp.WriteInternalError(w, "An error occurred while processing password reset request")
		return
	}

	writeJSON(w, http.StatusOK, MessageResponse{
		Message: "If the email exists, a password reset link has been sent",
	})
}

// ResetPassword completes the reset flow with a token from the email link
func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req ResetPasswordRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	if err := h.service.ResetPassword(r.Context(), req.ResetToken, req.NewPassword); err != nil {
		writePasswordError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, MessageResponse{Message: "Password reset successfully"})
}

// Me returns the authenticated employee's profile summary
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	emp := h.currentEmployee(w, r)
	if emp == nil {
		return
	}

	writeJSON(w, http.StatusOK, services.UserSummary{
		ID:         emp.ID,
		Username:   emp.Username,
		EmployeeID: emp.EmployeeID,
		Email:      emp.Email,
		FullName:   emp.FullName(),
		Role:       emp.RoleTitle(),
		Department: emp.DepartmentName(),
	})
}

// VerifyToken confirms the presented access token is valid
func (h *AuthHandler) VerifyToken(w http.ResponseWriter, r *http.Request) {
	claims := auth.GetUserFromContext(r)
	if claims == nil {
		pkghttp.WriteUnauthorized(w, "Authentication required")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"valid":    true,
		"user_id":  claims.Subject,
		"username": claims.Username,
	})
}

// writePasswordError maps password-management failures to responses. Weak
// passwords report every violated rule at once.
func writePasswordError(w http.ResponseWriter, err error) {
	if wpe, ok := models.IsWeakPassword(err); ok {
		pkghttp.WriteErrorWithDetails(w, http.StatusBadRequest, "weak_password",
			"Password does not meet security requirements",
			strings.Join(wpe.Violations, "; "))
		return
	}

	switch {
	case errors.Is(err, models.ErrPasswordMismatch):
		pkghttp.WriteBadRequest(w, "Current password is incorrect")
	case errors.Is(err, models.ErrSamePassword):
		pkghttp.WriteBadRequest(w, "New password must be different from current password")
	case errors.Is(err, models.ErrInvalidOrExpiredToken):
		pkghttp.WriteBadRequest(w, "Invalid or expired reset token")
	case errors.Is(err, models.ErrUserNotFound):
		pkghttp.WriteBadRequest(w, "User not found")
	default:
		pkghttp.WriteInternalError(w, "Internal server error")
	}
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
