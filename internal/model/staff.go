package model

import "time"

// Staff roles.  Receptionists run the front desk; managers additionally
// administer the room inventory.
const (
	RoleManager      = "manager"
	RoleReceptionist = "receptionist"
)

// Staff is a hotel employee allowed to sign in.
//
// Fields:
//
//	ID           – primary key identifier.
//	Username     – unique login name.
//	PasswordHash – bcrypt hash.
//	FullName     – display name.
//	Role         – manager or receptionist.
//	IsActive     – disabled accounts cannot sign in.
//	CreatedAt    – timestamp of creation.
type Staff struct {
	ID           uint64    // Staff.id
	Username     string    // Staff.username
	PasswordHash string    // Staff.password_hash
	FullName     string    // Staff.full_name
	Role         string    // Staff.role
	IsActive     bool      // Staff.is_active
	CreatedAt    time.Time // Staff.created_at
}
