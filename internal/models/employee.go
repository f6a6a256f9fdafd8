package models

import (
	"time"
)

// EmploymentStatus enumerates the lifecycle states of an employee record.
type EmploymentStatus string

const (
	EmploymentActive     EmploymentStatus = "active"
	EmploymentInactive   EmploymentStatus = "inactive"
	EmploymentTerminated EmploymentStatus = "terminated"
	EmploymentOnLeave    EmploymentStatus = "on_leave"
	EmploymentProbation  EmploymentStatus = "probation"
)

// Department is an organizational unit an employee belongs to.
type Department struct {
	ID   int64
	Name string
	Code string
}

// Role is a job position reference.
type Role struct {
	ID    int64
	Title string
	Code  string
}

// Employee is the account record the auth core operates on. Role and
// Department are optional references resolved by the store; nil when the
// employee has not been assigned one.
type Employee struct {
	ID               int64
	EmployeeID       string // badge code, e.g. "EMP0042"
	Username         string
	Email            string
	PasswordHash     string
	FirstName        string
	LastName         string
	IsActive         bool
	EmploymentStatus EmploymentStatus
	Role             *Role
	Department       *Department
	LastLogin        *time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// FullName returns the display name used in login responses.
func (e *Employee) FullName() string {
	if e.FirstName == "" {
		return e.LastName
	}
	if e.LastName == "" {
		return e.FirstName
	}
	return e.FirstName + " " + e.LastName
}

// RoleTitle returns the role title or "" when no role is assigned.
func (e *Employee) RoleTitle() string {
	if e.Role == nil {
		return ""
	}
	return e.Role.Title
}

// DepartmentName returns the department name or "" when unassigned.
func (e *Employee) DepartmentName() string {
	if e.Department == nil {
		return ""
	}
	return e.Department.Name
}
