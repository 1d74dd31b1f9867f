package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVisibilityPredicateAdmin(t *testing.T) {
	clause, args := Visibility{UserID: 7, Admin: true}.Predicate("p", 1)
	assert.Equal(t, "TRUE", clause)
	assert.Empty(t, args)
}

func TestVisibilityPredicateNonAdmin(t *testing.T) {
	clause, args := Visibility{UserID: 42}.Predicate("p", 3)
	assert.Equal(t,
		"(p.project_manager_id = $3 OR EXISTS (SELECT 1 FROM project_teams pt WHERE pt.project_id = p.id AND pt.user_id = $4))",
		clause)
	assert.Equal(t, []any{42, 42}, args)
}
