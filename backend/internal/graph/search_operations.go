package graph

import (
	"context"
	"strings"

	"daydei-social/backend/internal/state"
)

// ============================================================================
// Search Operations
// ============================================================================

// Search matches pattern against email and nickname. An empty pattern lists
// every user except excludingID.
func (r *Repository) Search(ctx context.Context, pattern, excludingID string) ([]state.User, error) {
	query := `
		MATCH (u:User)
		WHERE u.id <> $excludingID
		  AND ($pattern = '' OR toLower(u.email) CONTAINS $pattern OR toLower(u.nickname) CONTAINS $pattern)
		RETURN ` + userFields("u") + `
		ORDER BY u.id`

	records, err := r.read(ctx, "search_users", query, map[string]interface{}{
		"pattern":     strings.ToLower(strings.TrimSpace(pattern)),
		"excludingID": excludingID,
	})
	if err != nil {
		return nil, err
	}
	return usersFromRecords(records), nil
}
