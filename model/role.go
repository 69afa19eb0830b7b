package model

// Account roles carried in session tokens and security logs.
const (
	RolePatient = "patient"
	RoleDoctor  = "doctor"
)

// ValidRole reports whether role names a known account kind.
func ValidRole(role string) bool {
	return role == RolePatient || role == RoleDoctor
}
