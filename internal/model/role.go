package model

// Role is the caller role attached to a member account.
type Role string

const (
	RoleAdmin  Role = "admin"
	RoleNormal Role = "normal"
	RoleTrial  Role = "trial"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleNormal, RoleTrial:
		return true
	}
	return false
}
