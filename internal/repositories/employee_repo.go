package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/hrplatform/auth-service/internal/database"
	"github.com/hrplatform/auth-service/internal/models"
	"github.com/jackc/pgx/v5/pgxpool"
)

// EmployeeRepository is the Postgres-backed employee store.
type EmployeeRepository struct {
	pool *pgxpool.Pool
}

func NewEmployeeRepository(db *database.DB) *EmployeeRepository {
	return &EmployeeRepository{pool: db.Pool}
}

const employeeColumns = `
	e.id, e.employee_id, e.username, e.email, e.password_hash,
	e.first_name, e.last_name, e.is_active, e.employment_status,
	e.last_login, e.created_at, e.updated_at,
	r.id, r.title, r.code,
	d.id, d.name, d.code
`

const employeeJoins = `
	FROM employees e
	LEFT JOIN roles r ON r.id = e.role_id
	LEFT JOIN departments d ON d.id = e.department_id
`

// rowScanner interface for scanning employee rows
type rowScanner interface {
	Scan(dest ...interface{}) error
}

// scanEmployeeRow handles the nullable role/department join columns and
// populates an Employee model from a database row.
func scanEmployeeRow(scanner rowScanner) (*models.Employee, error) {
	var emp models.Employee
	var lastLogin *time.Time
	var roleID *int64
	var roleTitle, roleCode *string
	var deptID *int64
	var deptName, deptCode *string

	err := scanner.Scan(
		&emp.ID, &emp.EmployeeID, &emp.Username, &emp.Email, &emp.PasswordHash,
		&emp.FirstName, &emp.LastName, &emp.IsActive, &emp.EmploymentStatus,
		&lastLogin, &emp.CreatedAt, &emp.UpdatedAt,
		&roleID, &roleTitle, &roleCode,
		&deptID, &deptName, &deptCode,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	emp.LastLogin = lastLogin
	if roleID != nil {
		emp.Role = &models.Role{ID: *roleID, Title: derefString(roleTitle), Code: derefString(roleCode)}
	}
	if deptID != nil {
		emp.Department = &models.Department{ID: *deptID, Name: derefString(deptName), Code: derefString(deptCode)}
	}

	return &emp, nil
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// FindActiveByUsernameOrEmail looks up an employable login target: the row
// must match on username or email, be active, and have active employment
// status.
func (r *EmployeeRepository) FindActiveByUsernameOrEmail(ctx context.Context, value string) (*models.Employee, error) {
	query := `
		SELECT ` + employeeColumns + employeeJoins + `
		WHERE (e.username = $1 OR e.email = $1)
		  AND e.is_active = TRUE
		  AND e.employment_status = 'active'
	`

	return scanEmployeeRow(r.pool.QueryRow(ctx, query, value))
}

// FindByID looks up an employee by primary key. Authenticated handlers
// resolve the token subject through this.
func (r *EmployeeRepository) FindByID(ctx context.Context, id int64) (*models.Employee, error) {
	query := `
		SELECT ` + employeeColumns + employeeJoins + `
		WHERE e.id = $1
	`

	return scanEmployeeRow(r.pool.QueryRow(ctx, query, id))
}

// FindByEmail looks up an employee by email with no activity filter; the
// password reset flow resolves addresses through this.
func (r *EmployeeRepository) FindByEmail(ctx context.Context, email string) (*models.Employee, error) {
	query := `
		SELECT ` + employeeColumns + employeeJoins + `
		WHERE e.email = $1
	`

	return scanEmployeeRow(r.pool.QueryRow(ctx, query, email))
}

// UpdatePasswordHash persists a new password hash and updated-at stamp.
func (r *EmployeeRepository) UpdatePasswordHash(ctx context.Context, employeeID int64, hash string, updatedAt time.Time) error {
	query := `UPDATE employees SET password_hash = $2, updated_at = $3 WHERE id = $1`

	tag, err := r.pool.Exec(ctx, query, employeeID, hash, updatedAt)
	if err != nil {
		return fmt.Errorf("failed to update password hash: %w", database.MapPostgresError(err))
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

// UpdateLastLogin stamps the successful-login time.
func (r *EmployeeRepository) UpdateLastLogin(ctx context.Context, employeeID int64, lastLogin time.Time) error {
	query := `UPDATE employees SET last_login = $2 WHERE id = $1`

	tag, err := r.pool.Exec(ctx, query, employeeID, lastLogin)
	if err != nil {
		return fmt.Errorf("failed to update last login: %w", database.MapPostgresError(err))
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

// ExistsWithUsername reports whether any employee other than excludeID has
// the username. excludeID 0 means no exclusion.
func (r *EmployeeRepository) ExistsWithUsername(ctx context.Context, username string, excludeID int64) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM employees WHERE username = $1 AND ($2 = 0 OR id <> $2))`

	var exists bool
	if err := r.pool.QueryRow(ctx, query, username, excludeID).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check username existence: %w", database.MapPostgresError(err))
	}
	return exists, nil
}

// ExistsWithEmail reports whether any employee other than excludeID has the
// email. excludeID 0 means no exclusion.
func (r *EmployeeRepository) ExistsWithEmail(ctx context.Context, email string, excludeID int64) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM employees WHERE email = $1 AND ($2 = 0 OR id <> $2))`

	var exists bool
	if err := r.pool.QueryRow(ctx, query, email, excludeID).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check email existence: %w", database.MapPostgresError(err))
	}
	return exists, nil
}
