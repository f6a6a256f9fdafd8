package services

import (
	"context"
	"time"

	"github.com/hrplatform/auth-service/internal/models"
	pkgauth "github.com/hrplatform/auth-service/pkg/auth"
)

// MockEmployeeRepository implements EmployeeRepository for testing
type MockEmployeeRepository struct {
	FindActiveByUsernameOrEmailFunc func(ctx context.Context, value string) (*models.Employee, error)
	FindByIDFunc                    func(ctx context.Context, id int64) (*models.Employee, error)
	FindByEmailFunc                 func(ctx context.Context, email string) (*models.Employee, error)
	UpdatePasswordHashFunc          func(ctx context.Context, employeeID int64, hash string, updatedAt time.Time) error
	UpdateLastLoginFunc             func(ctx context.Context, employeeID int64, lastLogin time.Time) error
	ExistsWithUsernameFunc          func(ctx context.Context, username string, excludeID int64) (bool, error)
	ExistsWithEmailFunc             func(ctx context.Context, email string, excludeID int64) (bool, error)
}

func (m *MockEmployeeRepository) FindActiveByUsernameOrEmail(ctx context.Context, value string) (*models.Employee, error) {
	if m.FindActiveByUsernameOrEmailFunc != nil {
		return m.FindActiveByUsernameOrEmailFunc(ctx, value)
	}
	return nil, models.ErrNotFound
}

func (m *MockEmployeeRepository) FindByID(ctx context.Context, id int64) (*models.Employee, error) {
	if m.FindByIDFunc != nil {
		return m.FindByIDFunc(ctx, id)
	}
	return nil, models.ErrNotFound
}

func (m *MockEmployeeRepository) FindByEmail(ctx context.Context, email string) (*models.Employee, error) {
	if m.FindByEmailFunc != nil {
		return m.FindByEmailFunc(ctx, email)
	}
	return nil, models.ErrNotFound
}

func (m *MockEmployeeRepository) UpdatePasswordHash(ctx context.Context, employeeID int64, hash string, updatedAt time.Time) error {
	if m.UpdatePasswordHashFunc != nil {
		return m.UpdatePasswordHashFunc(ctx, employeeID, hash, updatedAt)
	}
	return nil
}

func (m *MockEmployeeRepository) UpdateLastLogin(ctx context.Context, employeeID int64, lastLogin time.Time) error {
	if m.UpdateLastLoginFunc != nil {
		return m.UpdateLastLoginFunc(ctx, employeeID, lastLogin)
	}
	return nil
}

func (m *MockEmployeeRepository) ExistsWithUsername(ctx context.Context, username string, excludeID int64) (bool, error) {
	if m.ExistsWithUsernameFunc != nil {
		return m.ExistsWithUsernameFunc(ctx, username, excludeID)
	}
	return false, nil
}

func (m *MockEmployeeRepository) ExistsWithEmail(ctx context.Context, email string, excludeID int64) (bool, error) {
	if m.ExistsWithEmailFunc != nil {
		return m.ExistsWithEmailFunc(ctx, email, excludeID)
	}
	return false, nil
}

// MockEmailService implements EmailService for testing
type MockEmailService struct {
	SendPasswordResetEmailFunc func(ctx context.Context, email, token string, expiresAt time.Time) error
	SentEmails                 []string
	SentTokens                 []string
}

func (m *MockEmailService) SendPasswordResetEmail(ctx context.Context, email, token string, expiresAt time.Time) error {
	m.SentEmails = append(m.SentEmails, email)
	m.SentTokens = append(m.SentTokens, token)
	if m.SendPasswordResetEmailFunc != nil {
		return m.SendPasswordResetEmailFunc(ctx, email, token, expiresAt)
	}
	return nil
}

// NewTestEmployee builds an active employee whose password is the given
// plaintext, hashed for real so verification paths run end to end.
func NewTestEmployee(id int64, username, email, password string) *models.Employee {
	hash, err := pkgauth.HashPassword(password)
	if err != nil {
		panic(err)
	}

	now := time.Now()
	return &models.Employee{
		ID:               id,
		EmployeeID:       "EMP0001",
		Username:         username,
		Email:            email,
		PasswordHash:     hash,
		FirstName:        "Test",
		LastName:         "Employee",
		IsActive:         true,
		EmploymentStatus: models.EmploymentActive,
		Role:             &models.Role{ID: 1, Title: "Engineer"},
		Department:       &models.Department{ID: 1, Name: "Engineering"},
		CreatedAt:        now,
		UpdatedAt:        now,
	}
}
