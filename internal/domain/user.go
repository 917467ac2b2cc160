package domain

import "time"

// Role enumerates the access levels known to the service.
type Role string

const (
	RoleAdmin      Role = "ADMIN"
	RoleTechnician Role = "TECHNICIAN"
	RoleEmployee   Role = "EMPLOYEE"
)

// ParseRole validates a raw role value.
func ParseRole(raw string) (Role, bool) {
	switch Role(raw) {
	case RoleAdmin, RoleTechnician, RoleEmployee:
		return Role(raw), true
	}
	return "", false
}

// User is an account that can file, work, or supervise tickets.
type User struct {
	ID           int64
	Name         string
	Email        string
	PasswordHash string
	Role         Role
	Active       bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
