package service

import "github.com/kilo-studio/kilo-backend/internal/model"

// Caller identifies who invokes an admission-checked operation.
type Caller struct {
	MemberID int
	Role     model.Role
}

// AdminCaller is used by system-initiated work such as schedule generation.
var AdminCaller = Caller{Role: model.RoleAdmin}

// IsAdmin reports whether the caller has administrative rights.
func (c Caller) IsAdmin() bool {
	return c.Role == model.RoleAdmin
}

// BypassesDeadline reports whether the caller may change enrollment of a
// lesson that has already started. Only administrators can.
func (c Caller) BypassesDeadline() bool {
	return c.IsAdmin()
}

// CanActFor reports whether the caller may manage memberID's enrollments.
func (c Caller) CanActFor(memberID int) bool {
	return c.IsAdmin() || c.MemberID == memberID
}
