package graph

import (
	"fmt"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"daydei-social/backend/internal/state"
)

// ============================================================================
// Helper Functions
// ============================================================================

// userFields projects the user bound to v under stable column names.
func userFields(v string) string {
	return fmt.Sprintf(`%[1]s.id AS id, %[1]s.email AS email, %[1]s.nickname AS nickname,
		%[1]s.profile_image AS profile_image, %[1]s.introduction AS introduction,
		%[1]s.categories AS categories`, v)
}

const edgeFields = `a.id AS requester_id, b.id AS responder_id, r.id AS id, r.accepted AS accepted,
		r.created_at AS created_at, r.updated_at AS updated_at`

func userFromRecord(record *neo4j.Record) state.User {
	raw := getStringSliceFromRecord(record, "categories")
	categories := make([]state.Category, 0, len(raw))
	for _, c := range raw {
		categories = append(categories, state.Category(c))
	}
	return state.User{
		ID:           getStringFromRecord(record, "id"),
		Email:        getStringFromRecord(record, "email"),
		Nickname:     getStringFromRecord(record, "nickname"),
		ProfileImage: getStringFromRecord(record, "profile_image"),
		Introduction: getStringFromRecord(record, "introduction"),
		Categories:   categories,
	}
}

func usersFromRecords(records []*neo4j.Record) []state.User {
	users := make([]state.User, 0, len(records))
	for _, record := range records {
		users = append(users, userFromRecord(record))
	}
	return users
}

func edgeFromRecord(record *neo4j.Record) *state.FriendEdge {
	return &state.FriendEdge{
		ID:        getStringFromRecord(record, "id"),
		Requester: getStringFromRecord(record, "requester_id"),
		Responder: getStringFromRecord(record, "responder_id"),
		Accepted:  getBoolFromRecord(record, "accepted"),
		CreatedAt: getTimeFromRecord(record, "created_at"),
		UpdatedAt: getTimeFromRecord(record, "updated_at"),
	}
}

func categoryStrings(categories []state.Category) []string {
	out := make([]string, 0, len(categories))
	for _, c := range categories {
		out = append(out, string(c))
	}
	return out
}

func getStringFromRecord(record *neo4j.Record, key string) string {
	val, ok := record.Get(key)
	if !ok || val == nil {
		return ""
	}
	if str, ok := val.(string); ok {
		return str
	}
	return ""
}

func getIntFromRecord(record *neo4j.Record, key string) int {
	val, ok := record.Get(key)
	if !ok || val == nil {
		return 0
	}
	if i, ok := val.(int64); ok {
		return int(i)
	}
	if i, ok := val.(int); ok {
		return i
	}
	return 0
}

func getBoolFromRecord(record *neo4j.Record, key string) bool {
	val, ok := record.Get(key)
	if !ok || val == nil {
		return false
	}
	b, _ := val.(bool)
	return b
}

func getTimeFromRecord(record *neo4j.Record, key string) time.Time {
	val, ok := record.Get(key)
	if !ok || val == nil {
		return time.Time{}
	}
	// Neo4j datetime values come as time.Time
	if t, ok := val.(time.Time); ok {
		return t
	}
	return time.Time{}
}

func getStringSliceFromRecord(record *neo4j.Record, key string) []string {
	val, ok := record.Get(key)
	if !ok || val == nil {
		return []string{}
	}
	if slice, ok := val.([]interface{}); ok {
		result := make([]string, 0, len(slice))
		for _, v := range slice {
			if str, ok := v.(string); ok {
				result = append(result, str)
			}
		}
		return result
	}
	return []string{}
}
