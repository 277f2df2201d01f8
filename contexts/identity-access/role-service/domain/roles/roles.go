package roles

// Role is one of the closed set of authorization levels.
type Role string

const (
	Student    Role = "student"
	Admin      Role = "admin"
	SuperAdmin Role = "super_admin"
)

// Code classifies why a transition was rejected. Empty means valid.
type Code string

const (
	CodeInvalidRole                Code = "INVALID_ROLE"
	CodeSelfRegistrationRestricted Code = "SELF_REGISTRATION_RESTRICTED"
	CodeUnauthorizedAssignment     Code = "UNAUTHORIZED_ASSIGNMENT"
	CodeSuperAdminRequired         Code = "SUPER_ADMIN_REQUIRED"
	CodeAuthenticationRequired     Code = "AUTHENTICATION_REQUIRED"
	CodeInvalidStateRequiresSupreme Code = "INVALID_STATE_REQUIRES_SUPREME"
	CodeCallerInvalidRole          Code = "CALLER_INVALID_ROLE"
)

// level orders roles as student < admin < super_admin.
var level = map[Role]int{
	Student:    1,
	Admin:      2,
	SuperAdmin: 3,
}

// assignable is the fixed table of roles an authenticated caller may give a
// brand-new user.
var assignable = map[Role][]Role{
	SuperAdmin: {SuperAdmin, Admin, Student},
	Admin:      {Student},
}

// IsValid reports membership in the closed role set.
func IsValid(r Role) bool {
	_, ok := level[r]
	return ok
}

// Level returns the position of r in the role order, 0 for unknown roles.
func Level(r Role) int {
	return level[r]
}

// TransitionInput is everything the validator may consider. Pointer fields
// are nil when the corresponding fact is unknown (no stored role, no
// authenticated caller).
type TransitionInput struct {
	NewRole      Role
	PreviousRole *Role
	CallerRole   *Role
	IsNewUser    bool
	TargetID     string
	CallerID     *string
}

// Decision is the total outcome of transition validation. Valid decisions
// carry Elevation/Demotion so callers can audit elevations distinctly.
type Decision struct {
	Valid     bool
	Code      Code
	Elevation bool
	Demotion  bool
}

func valid(elevation, demotion bool) Decision {
	return Decision{Valid: true, Elevation: elevation, Demotion: demotion}
}

func invalid(code Code) Decision {
	return Decision{Code: code}
}

// ValidateTransition decides whether a role write may be trusted. It is pure
// and total: every input yields exactly one Decision and it never panics.
// Rules are checked in order; the first failure wins.
func ValidateTransition(in TransitionInput) Decision {
	if !IsValid(in.NewRole) {
		return invalid(CodeInvalidRole)
	}

	if in.IsNewUser {
		if in.CallerRole == nil {
			// Unauthenticated self-registration may only claim student.
			if in.NewRole != Student {
				return invalid(CodeSelfRegistrationRestricted)
			}
			return valid(false, false)
		}
		if !IsValid(*in.CallerRole) {
			return invalid(CodeCallerInvalidRole)
		}
		for _, allowed := range assignable[*in.CallerRole] {
			if allowed == in.NewRole {
				return valid(false, false)
			}
		}
		return invalid(CodeUnauthorizedAssignment)
	}

	// Existing user: an unchanged role is always valid.
	if in.PreviousRole != nil && *in.PreviousRole == in.NewRole {
		return valid(false, false)
	}

	if in.CallerRole == nil {
		return invalid(CodeAuthenticationRequired)
	}
	if !IsValid(*in.CallerRole) {
		return invalid(CodeCallerInvalidRole)
	}
	if in.PreviousRole == nil || !IsValid(*in.PreviousRole) {
		// The stored role itself is unusable; only a super_admin may repair it.
		if *in.CallerRole != SuperAdmin {
			return invalid(CodeInvalidStateRequiresSupreme)
		}
		return valid(false, false)
	}
	if *in.CallerRole != SuperAdmin {
		return invalid(CodeSuperAdminRequired)
	}

	elevation := Level(in.NewRole) > Level(*in.PreviousRole)
	return valid(elevation, !elevation)
}
