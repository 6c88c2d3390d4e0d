package auth

// Role is the user's role
type Role string

const (
	// RoleUser can read and edit its own record
	RoleUser Role = "user"
	// RoleAdmin can do anything a user can plus manage other users
	RoleAdmin Role = "admin"
)

var roleHierarchy = map[Role]int{
	RoleUser:  0,
	RoleAdmin: 1,
}

// IsValid checks if the role is one of the predefined valid roles
func (r Role) IsValid() bool {
	_, ok := roleHierarchy[r]
	return ok
}

// IsAtLeast checks if this role meets the minimum required level.
// Unknown roles never satisfy a requirement, and never are one.
func (r Role) IsAtLeast(minRole Role) bool {
	currentLevel, exists := roleHierarchy[r]
	if !exists {
		return false
	}

	minLevel, exists := roleHierarchy[minRole]
	if !exists {
		return false
	}

	return currentLevel >= minLevel
}

func (r Role) String() string {
	return string(r)
}

// GetAllRoles returns all predefined roles in hierarchical order
func GetAllRoles() []Role {
	return []Role{
		RoleUser,
		RoleAdmin,
	}
}

// ParseRole safely parses a string into a Role
func ParseRole(roleStr string) (Role, bool) {
	role := Role(roleStr)
	return role, role.IsValid()
}

// CheckPermissions allows the identity when its role is at least required.
// It has no side effects.
func CheckPermissions(identity Identity, required Role) error {
	if identity == nil {
		return ErrForbidden
	}
	if !identity.Role().IsAtLeast(required) {
		return ErrForbidden
	}
	return nil
}

// PermissionGuard wraps CheckPermissions with metrics and logging
type PermissionGuard struct {
	logger  Logger
	metrics *Metrics
}

// NewPermissionGuard creates a guard
func NewPermissionGuard() *PermissionGuard {
	return &PermissionGuard{
		logger: defLogger(),
	}
}

func (g *PermissionGuard) WithLogger(logger Logger) *PermissionGuard {
	g.logger = logger
	return g
}

func (g *PermissionGuard) WithMetrics(m *Metrics) *PermissionGuard {
	g.metrics = m
	return g
}

// Check returns ErrForbidden when identity's role is insufficient
func (g *PermissionGuard) Check(identity Identity, required Role) error {
	err := CheckPermissions(identity, required)
	if err != nil {
		username := ""
		if identity != nil {
			username = identity.Username()
		}
		g.logger.Warn("permission denied", "username", username, "required", required)
		g.metrics.permissionCheck(outcomeDenied)
		return err
	}
	g.metrics.permissionCheck(outcomeAllowed)
	return nil
}
