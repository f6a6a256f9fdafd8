package services

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/hrplatform/auth-service/internal/models"
	pkgauth "github.com/hrplatform/auth-service/pkg/auth"
	pkglogger "github.com/hrplatform/auth-service/pkg/logger"
)

// PasswordResetService orchestrates the forgot-password flow: account
// lookup, token generation and email delivery. It never reveals to the
// caller whether an account exists for the address.
type PasswordResetService struct {
	authService *AuthService
	repo        EmployeeRepository
	emailSvc    EmailService
	logger      *slog.Logger
	tokenTTL    time.Duration
}

// NewPasswordResetService creates a new PasswordResetService
func NewPasswordResetService(authService *AuthService, repo EmployeeRepository, emailSvc EmailService, logger *slog.Logger, tokenTTL time.Duration) *PasswordResetService {
	if tokenTTL <= 0 {
		tokenTTL = 1 * time.Hour
	}
	return &PasswordResetService{
		authService: authService,
		repo:        repo,
		emailSvc:    emailSvc,
		logger:      logger,
		tokenTTL:    tokenTTL,
	}
}

// RequestReset generates and emails a reset token when the address belongs
// to a real account. Unknown addresses return nil all the same, so the
// response cannot be used to probe for accounts.
func (s *PasswordResetService) RequestReset(ctx context.Context, email string) error {
	ok, normalized := pkgauth.ValidateEmailFormat(email)
	if !ok {
		return models.ErrInvalidEmailFormat
	}
	email = normalized

	_, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			s.logger.Info("password reset requested for unknown email",
				slog.String("email", pkglogger.SanitizedEmail(email)))
			return nil
		}
		s.logger.Error("failed to look up email for reset", slog.Any("error", err))
		return models.ErrInternalServer
	}

	token, err := s.authService.GenerateResetToken(email)
	if err != nil {
		return err
	}

	expiresAt := time.Now().Add(s.tokenTTL)
	if err := s.emailSvc.SendPasswordResetEmail(ctx, email, token, expiresAt); err != nil {
		s.logger.Error("failed to send password reset email", slog.Any("error", err))
		return models.ErrInternalServer
	}

	s.logger.Info("password reset requested",
		slog.String("email", pkglogger.SanitizedEmail(email)))
	return nil
}
