package core

// Scope is the tenant a request acts as. It is resolved once at login and passed
// explicitly to every data access call: a member scope only ever reads and writes
// rows of its own gym, the admin scope spans all gyms.
type Scope struct {
	GymID string
	Admin bool
}

func MemberScope(gymID string) Scope { return Scope{GymID: gymID} }

func AdminScope(gymID string) Scope { return Scope{GymID: gymID, Admin: true} }

var (
	errNoTenant    = NewAuthorizationError("no tenant in scope")
	errAdminOnly   = NewAuthorizationError("admin scope required")
	errOtherTenant = NewAuthorizationError("record belongs to another tenant")
)

// Check fails closed when no tenant was resolved.
func (s Scope) Check() error {
	if s.GymID == "" && !s.Admin {
		return errNoTenant
	}
	return nil
}

func (s Scope) RequireAdmin() error {
	if err := s.Check(); err != nil {
		return err
	}
	if !s.Admin {
		return errAdminOnly
	}
	return nil
}

// CanAccess reports whether rows owned by gymID are visible to the scope.
func (s Scope) CanAccess(gymID string) bool {
	if s.Admin {
		return true
	}
	return s.GymID != "" && s.GymID == gymID
}

// RequireAccess is CanAccess as an error.
func (s Scope) RequireAccess(gymID string) error {
	if err := s.Check(); err != nil {
		return err
	}
	if !s.CanAccess(gymID) {
		return errOtherTenant
	}
	return nil
}
