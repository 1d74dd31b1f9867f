// Package authz resolves role-based permissions.
//
// Each role carries a fixed list of (resource, action) grants. A role
// is allowed everything granted to any role at or below its hierarchy
// level, so the effective permission set is the level-gated union of
// the static tables. A stored ActionAdmin grant on a resource satisfies
// any requested action on that resource.
package authz

// Role is an ordered authorization level. Higher levels include every
// grant of the levels below them.
type Role int

const (
	RoleInvalid Role = iota
	RoleUser
	RoleAnalyst
	RoleManager
	RoleAdmin
)

// Action is a requested or granted operation on a resource.
type Action string

const (
	ActionRead   Action = "read"
	ActionWrite  Action = "write"
	ActionDelete Action = "delete"

	// ActionAdmin grants every action on its resource.
	ActionAdmin Action = "admin"
)

// Resource names the protected API surfaces.
type Resource string

const (
	ResourceProjects         Resource = "projects"
	ResourceExpenses         Resource = "expenses"
	ResourceBudgetCategories Resource = "budget_categories"
	ResourceBudgetVersions   Resource = "budget_versions"
	ResourceBusinessUnits    Resource = "business_units"
	ResourceProjectTeams     Resource = "project_teams"
	ResourceMilestones       Resource = "milestones"
	ResourceNotifications    Resource = "notifications"
	ResourceUsers            Resource = "users"
	ResourceDashboard        Resource = "dashboard"
	ResourceAnalytics        Resource = "analytics"
)

type grant struct {
	resource Resource
	action   Action
}

// grants lists each role's own permissions. Lookups union these with
// every lower level, so entries are not repeated across roles.
var grants = map[Role][]grant{
	RoleUser: {
		{ResourceProjects, ActionRead},
		{ResourceExpenses, ActionRead},
		{ResourceExpenses, ActionWrite},
		{ResourceBudgetCategories, ActionRead},
		{ResourceBudgetVersions, ActionRead},
		{ResourceBusinessUnits, ActionRead},
		{ResourceProjectTeams, ActionRead},
		{ResourceMilestones, ActionRead},
		{ResourceNotifications, ActionRead},
		{ResourceNotifications, ActionWrite},
		{ResourceDashboard, ActionRead},
		{ResourceAnalytics, ActionRead},
	},
	RoleAnalyst: {
		{ResourceBudgetCategories, ActionWrite},
		{ResourceBudgetVersions, ActionWrite},
		{ResourceMilestones, ActionWrite},
	},
	RoleManager: {
		{ResourceProjects, ActionWrite},
		{ResourceProjects, ActionDelete},
		{ResourceProjectTeams, ActionWrite},
		{ResourceProjectTeams, ActionDelete},
		{ResourceExpenses, ActionAdmin},
		{ResourceBudgetVersions, ActionAdmin},
		{ResourceBudgetCategories, ActionDelete},
		{ResourceMilestones, ActionDelete},
	},
	RoleAdmin: {
		{ResourceProjects, ActionAdmin},
		{ResourceBudgetCategories, ActionAdmin},
		{ResourceBusinessUnits, ActionAdmin},
		{ResourceProjectTeams, ActionAdmin},
		{ResourceMilestones, ActionAdmin},
		{ResourceNotifications, ActionAdmin},
		{ResourceUsers, ActionAdmin},
		{ResourceDashboard, ActionAdmin},
		{ResourceAnalytics, ActionAdmin},
	},
}

var roleNames = map[string]Role{
	"user":    RoleUser,
	"analyst": RoleAnalyst,
	"manager": RoleManager,
	"admin":   RoleAdmin,
}

// ParseRole maps a stored role string to a Role. Unknown or empty
// strings map to RoleInvalid, which is denied everything.
func ParseRole(name string) Role {
	if role, ok := roleNames[name]; ok {
		return role
	}
	return RoleInvalid
}

// String returns the canonical name of the role.
func (r Role) String() string {
	switch r {
	case RoleUser:
		return "user"
	case RoleAnalyst:
		return "analyst"
	case RoleManager:
		return "manager"
	case RoleAdmin:
		return "admin"
	default:
		return "invalid"
	}
}

// Allowed reports whether the role may perform action on resource.
// Fail-closed: RoleInvalid is denied everything.
func Allowed(role Role, resource Resource, action Action) bool {
	if role < RoleUser || role > RoleAdmin {
		return false
	}
	for level := RoleUser; level <= role; level++ {
		for _, g := range grants[level] {
			if g.resource != resource {
				continue
			}
			if g.action == action || g.action == ActionAdmin {
				return true
			}
		}
	}
	return false
}
