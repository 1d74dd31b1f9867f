package authz

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseRole(t *testing.T) {
	assert.Equal(t, RoleUser, ParseRole("user"))
	assert.Equal(t, RoleAnalyst, ParseRole("analyst"))
	assert.Equal(t, RoleManager, ParseRole("manager"))
	assert.Equal(t, RoleAdmin, ParseRole("admin"))
	assert.Equal(t, RoleInvalid, ParseRole(""))
	assert.Equal(t, RoleInvalid, ParseRole("superuser"))
	assert.Equal(t, RoleInvalid, ParseRole("Admin"))
}

func TestAllowedFailClosed(t *testing.T) {
	for _, resource := range allResources() {
		for _, action := range []Action{ActionRead, ActionWrite, ActionDelete, ActionAdmin} {
			assert.False(t, Allowed(RoleInvalid, resource, action),
				"invalid role must be denied %s on %s", action, resource)
		}
	}
	assert.False(t, Allowed(Role(99), ResourceProjects, ActionRead))
}

func TestAllowedHierarchyIsSupersetChain(t *testing.T) {
	chain := []Role{RoleUser, RoleAnalyst, RoleManager, RoleAdmin}
	for i := 1; i < len(chain); i++ {
		lower, higher := chain[i-1], chain[i]
		for _, resource := range allResources() {
			for _, action := range []Action{ActionRead, ActionWrite, ActionDelete} {
				if Allowed(lower, resource, action) {
					assert.True(t, Allowed(higher, resource, action),
						"%s should inherit %s on %s from %s", higher, action, resource, lower)
				}
			}
		}
	}
}

func TestAdminPassesEveryCheck(t *testing.T) {
	for _, resource := range allResources() {
		for _, action := range []Action{ActionRead, ActionWrite, ActionDelete, ActionAdmin} {
			assert.True(t, Allowed(RoleAdmin, resource, action),
				"admin must be allowed %s on %s", action, resource)
		}
	}
}

func TestAdminActionSatisfiesAnyRequest(t *testing.T) {
	// Managers hold ActionAdmin on expenses, which must cover every
	// concrete action on that resource.
	assert.True(t, Allowed(RoleManager, ResourceExpenses, ActionRead))
	assert.True(t, Allowed(RoleManager, ResourceExpenses, ActionWrite))
	assert.True(t, Allowed(RoleManager, ResourceExpenses, ActionDelete))
	assert.True(t, Allowed(RoleManager, ResourceExpenses, ActionAdmin))
}

func TestRoleBoundaries(t *testing.T) {
	// Plain users may read but not manage projects.
	assert.True(t, Allowed(RoleUser, ResourceProjects, ActionRead))
	assert.False(t, Allowed(RoleUser, ResourceProjects, ActionWrite))
	assert.False(t, Allowed(RoleUser, ResourceProjects, ActionDelete))

	// Analysts gain budget writes but still cannot manage teams.
	assert.True(t, Allowed(RoleAnalyst, ResourceBudgetVersions, ActionWrite))
	assert.True(t, Allowed(RoleAnalyst, ResourceBudgetCategories, ActionWrite))
	assert.False(t, Allowed(RoleAnalyst, ResourceProjectTeams, ActionWrite))
	assert.False(t, Allowed(RoleAnalyst, ResourceExpenses, ActionAdmin))

	// Managers manage projects and teams but not users or business units.
	assert.True(t, Allowed(RoleManager, ResourceProjects, ActionWrite))
	assert.True(t, Allowed(RoleManager, ResourceProjectTeams, ActionDelete))
	assert.False(t, Allowed(RoleManager, ResourceUsers, ActionAdmin))
	assert.False(t, Allowed(RoleManager, ResourceBusinessUnits, ActionWrite))
}

func allResources() []Resource {
	return []Resource{
		ResourceProjects,
		ResourceExpenses,
		ResourceBudgetCategories,
		ResourceBudgetVersions,
		ResourceBusinessUnits,
		ResourceProjectTeams,
		ResourceMilestones,
		ResourceNotifications,
		ResourceUsers,
		ResourceDashboard,
		ResourceAnalytics,
	}
}
