package model

// Role enum constants as carried in the "role" token claim
const (
	RoleAdmin       = "admin"
	RoleCompany     = "company"
	RoleCoordinator = "coordinator"
	RoleStudent     = "student"
)

// Profile is the authenticated user as returned by /users/profile.
type Profile struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	Role      string `json:"role"`
	Module    string `json:"module"`              // cached module discriminator ("modulo")
	CompanyID string `json:"company_id,omitempty"` // set for company users
}

// Administrative reports whether the profile acts on behalf of the institution.
func (p Profile) Administrative() bool {
	return p.Role == RoleAdmin
}
