package store

import "fmt"

// Visibility is the row-level read filter for project-scoped data.
// A non-admin user sees a project when they manage it or when a
// project_teams row links them to it. Every query that lists or joins
// against projects must go through Predicate so the filter cannot
// drift between endpoints.
//
// The filter is rebuilt on every request and never cached: team
// membership changes must be visible on the next request.
type Visibility struct {
	UserID int
	Admin  bool
}

// Predicate returns a SQL fragment filtering rows of the projects
// table aliased as alias, plus the arguments it consumes. argIndex is
// the position of the first placeholder to emit.
func (v Visibility) Predicate(alias string, argIndex int) (string, []any) {
	if v.Admin {
		return "TRUE", nil
	}
	clause := fmt.Sprintf(
		"(%s.project_manager_id = $%d OR EXISTS (SELECT 1 FROM project_teams pt WHERE pt.project_id = %s.id AND pt.user_id = $%d))",
		alias, argIndex, alias, argIndex+1,
	)
	return clause, []any{v.UserID, v.UserID}
}
