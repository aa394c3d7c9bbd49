package model

import "github.com/google/uuid"

type Role string

const (
	RoleAdmin    Role = "admin"
	RoleEmployee Role = "employee"
)

func (r Role) IsValid() bool {
	return r == RoleAdmin || r == RoleEmployee
}

// Actor is the authenticated caller of a mutation.
type Actor struct {
	Role       Role       `json:"role"`
	EmployeeID *uuid.UUID `json:"employee_id,omitempty"`
	ClinicID   *uuid.UUID `json:"clinic_id,omitempty"`
}

func (a Actor) IsAdmin() bool {
	return a.Role == RoleAdmin
}

// WorksAt reports whether clinicID is the actor's home clinic.
func (a Actor) WorksAt(clinicID uuid.UUID) bool {
	return a.ClinicID != nil && *a.ClinicID == clinicID
}

// Is reports whether the actor is the given employee.
func (a Actor) Is(employeeID *uuid.UUID) bool {
	return a.EmployeeID != nil && employeeID != nil && *a.EmployeeID == *employeeID
}

// AuditID returns the id recorded in audit columns, uuid.Nil for accounts without an employee.
func (a Actor) AuditID() uuid.UUID {
	if a.EmployeeID == nil {
		return uuid.Nil
	}
	return *a.EmployeeID
}
