package employee

import "time"

// Employee is owned by the HR system. The time clock only reads it.
type Employee struct {
	ID        string
	FullName  string
	Phone     *string
	Role      Role
	Status    Status
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Role string

const (
	RoleOwner    Role = "owner"    // Dealer group owner - full access
	RoleAdmin    Role = "admin"    // Payroll / HR administrator
	RoleManager  Role = "manager"  // Approves timecards at assigned dealerships
	RoleEmployee Role = "employee" // Regular shift worker
)

type Status string

const (
	StatusActive     Status = "active"
	StatusInactive   Status = "inactive"
	StatusSuspended  Status = "suspended"
	StatusTerminated Status = "terminated"
)

// IsGlobal reports whether the role applies to every dealership without an assignment.
func (r Role) IsGlobal() bool {
	return r == RoleOwner || r == RoleAdmin
}
