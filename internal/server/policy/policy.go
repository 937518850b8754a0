// Package policy decides whether a project membership grants an action.
package policy

import "github.com/dmitrijs2005/taskledger/internal/server/models"

// Named role sets used by the services.
var (
	ProjectAdmins = []models.Role{models.RoleSuperAdmin}
	TaskManagers  = []models.Role{models.RoleSuperAdmin, models.RoleManager}
	Developers    = []models.Role{models.RoleDeveloper}
	Testers       = []models.Role{models.RoleTester}
	Members       = []models.Role{models.RoleSuperAdmin, models.RoleManager, models.RoleDeveloper, models.RoleTester}
)

// Allows reports whether m holds any of the allowed roles. A nil membership
// is never allowed, and neither is an empty role list.
func Allows(m *models.Membership, allowed ...models.Role) bool {
	if m == nil {
		return false
	}
	for _, r := range allowed {
		if m.Role == r {
			return true
		}
	}
	return false
}
