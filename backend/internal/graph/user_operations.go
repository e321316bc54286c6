package graph

import (
	"context"
	"strings"

	"daydei-social/backend/internal/state"
	apperrors "daydei-social/backend/pkg/errors"
)

// ============================================================================
// User Operations
// ============================================================================

// FindByID loads a user node by id
func (r *Repository) FindByID(ctx context.Context, id string) (*state.User, error) {
	query := `
		MATCH (u:User {id: $id})
		RETURN ` + userFields("u")

	records, err := r.read(ctx, "find_user", query, map[string]interface{}{"id": id})
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, apperrors.NewUserNotFound(id)
	}
	u := userFromRecord(records[0])
	return &u, nil
}

// FindByIdentity loads a user by email, case-insensitively
func (r *Repository) FindByIdentity(ctx context.Context, key string) (*state.User, error) {
	query := `
		MATCH (u:User)
		WHERE toLower(u.email) = $key
		RETURN ` + userFields("u") + `
		LIMIT 1`

	records, err := r.read(ctx, "find_user_by_identity", query, map[string]interface{}{
		"key": strings.ToLower(key),
	})
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, apperrors.NewUserNotFound(key)
	}
	u := userFromRecord(records[0])
	return &u, nil
}

// ListUsers returns every user ordered by id
func (r *Repository) ListUsers(ctx context.Context) ([]state.User, error) {
	query := `
		MATCH (u:User)
		RETURN ` + userFields("u") + `
		ORDER BY u.id`

	records, err := r.read(ctx, "list_users", query, nil)
	if err != nil {
		return nil, err
	}
	return usersFromRecords(records), nil
}

// AddCategories appends categories the user does not have yet
func (r *Repository) AddCategories(ctx context.Context, userID string, categories []state.Category) error {
	query := `
		MATCH (u:User {id: $userID})
		WITH u, coalesce(u.categories, []) AS current
		SET u.categories = current + [c IN $categories WHERE NOT c IN current]
		RETURN u.id AS id
	`

	records, err := r.write(ctx, "add_categories", query, map[string]interface{}{
		"userID":     userID,
		"categories": categoryStrings(categories),
	})
	if err != nil {
		return err
	}
	if len(records) == 0 {
		return apperrors.NewUserNotFound(userID)
	}
	return nil
}
