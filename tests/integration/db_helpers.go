package integration

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log"
	"path/filepath"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/lib/pq"
	"github.com/pressly/goose/v3"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/hrplatform/auth-service/internal/database"
	"github.com/hrplatform/auth-service/internal/models"
	"github.com/hrplatform/auth-service/pkg/auth"
)

// TestDB manages PostgreSQL testcontainer and database operations
type TestDB struct {
	Container  testcontainers.Container
	ConnString string
	Pool       *pgxpool.Pool
	DB         *database.DB
}

// SetupTestDatabase creates a PostgreSQL testcontainer, runs migrations, returns TestDB
func SetupTestDatabase(ctx context.Context) (*TestDB, error) {
	container, err := postgres.RunContainer(ctx,
		testcontainers.WithImage("postgres:16-alpine"),
		postgres.WithDatabase("hr_platform"),
		postgres.WithUsername("postgres"),
		postgres.WithPassword("postgres"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to start postgres container: %w", err)
	}

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		container.Terminate(ctx)
		return nil, fmt.Errorf("failed to get connection string: %w", err)
	}

	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		container.Terminate(ctx)
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		container.Terminate(ctx)
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if err := runMigrations(ctx, connStr); err != nil {
		pool.Close()
		container.Terminate(ctx)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &TestDB{
		Container:  container,
		ConnString: connStr,
		Pool:       pool,
		DB:         &database.DB{Pool: pool},
	}, nil
}

// runMigrations executes all goose migrations
func runMigrations(ctx context.Context, connStr string) error {
	migrationsDir, err := filepath.Abs("../../migrations")
	if err != nil {
		return fmt.Errorf("failed to get migrations path: %w", err)
	}

	goose.SetLogger(log.New(io.Discard, "", 0))

	// Goose needs a database/sql connection
	sqlDB, err := sql.Open("postgres", connStr)
	if err != nil {
		return fmt.Errorf("failed to open migration connection: %w", err)
	}
	defer sqlDB.Close()

	if err := goose.UpContext(ctx, sqlDB, migrationsDir); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	return nil
}

// Teardown stops the container and closes the connection pool
func (db *TestDB) Teardown(ctx context.Context) error {
	if db.Pool != nil {
		db.Pool.Close()
	}
	if db.Container != nil {
		return db.Container.Terminate(ctx)
	}
	return nil
}

// CleanupTables truncates all tables for test isolation
func (db *TestDB) CleanupTables(ctx context.Context) error {
	tables := []string{
		"employees",
		"roles",
		"departments",
	}

	for _, table := range tables {
		if _, err := db.Pool.Exec(ctx, fmt.Sprintf("TRUNCATE TABLE %s CASCADE", table)); err != nil {
			return fmt.Errorf("failed to truncate table %s: %w", table, err)
		}
	}

	return nil
}

// SeedDepartment inserts a department and returns its id
func SeedDepartment(ctx context.Context, pool *pgxpool.Pool, name, code string) (int64, error) {
	var id int64
	err := pool.QueryRow(ctx,
		`INSERT INTO departments (name, code) VALUES ($1, $2) RETURNING id`,
		name, code,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to insert department: %w", err)
	}
	return id, nil
}

// SeedRole inserts a role and returns its id
func SeedRole(ctx context.Context, pool *pgxpool.Pool, title, code string) (int64, error) {
	var id int64
	err := pool.QueryRow(ctx,
		`INSERT INTO roles (title, code) VALUES ($1, $2) RETURNING id`,
		title, code,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to insert role: %w", err)
	}
	return id, nil
}

// SeedEmployeeOptions controls optional fields on a seeded employee
type SeedEmployeeOptions struct {
	RoleID           *int64
	DepartmentID     *int64
	IsActive         bool
	EmploymentStatus models.EmploymentStatus
}

// SeedEmployee inserts a test employee with a real bcrypt password hash
func SeedEmployee(ctx context.Context, pool *pgxpool.Pool, badge, username, email, password string, opts SeedEmployeeOptions) (*models.Employee, error) {
	hashed, err := auth.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	if opts.EmploymentStatus == "" {
		opts.EmploymentStatus = models.EmploymentActive
	}

	query := `
		INSERT INTO employees
			(employee_id, username, email, password_hash, first_name, last_name,
			 is_active, employment_status, role_id, department_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW(), NOW())
		RETURNING id, employee_id, username, email, password_hash, first_name, last_name,
			is_active, employment_status, created_at, updated_at
	`

	var emp models.Employee
	err = pool.QueryRow(ctx, query,
		badge, username, email, hashed, "Test", "Employee",
		opts.IsActive, opts.EmploymentStatus, opts.RoleID, opts.DepartmentID,
	).Scan(
		&emp.ID, &emp.EmployeeID, &emp.Username, &emp.Email, &emp.PasswordHash,
		&emp.FirstName, &emp.LastName, &emp.IsActive, &emp.EmploymentStatus,
		&emp.CreatedAt, &emp.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert employee: %w", err)
	}

	return &emp, nil
}
