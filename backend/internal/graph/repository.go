package graph

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"

	"daydei-social/backend/internal/relation"
	"daydei-social/backend/internal/state"
	apperrors "daydei-social/backend/pkg/errors"
	"daydei-social/backend/pkg/logger"
)

// Repository handles all Neo4j database operations. Users are :User nodes,
// friend edges are FRIEND_REQUEST relationships and subscriptions are
// SUBSCRIBES relationships.
type Repository struct {
	driver neo4j.DriverWithContext
	logger *zap.Logger
}

var _ relation.Store = (*Repository)(nil)

// NewRepository creates a new graph repository
func NewRepository(driver neo4j.DriverWithContext) *Repository {
	return &Repository{
		driver: driver,
		logger: logger.Named("graph"),
	}
}

// Connect opens a driver and verifies connectivity.
func Connect(ctx context.Context, uri, user, password string) (neo4j.DriverWithContext, error) {
	driver, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(user, password, ""))
	if err != nil {
		return nil, fmt.Errorf("failed to create Neo4j driver: %w", err)
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		_ = driver.Close(ctx)
		return nil, fmt.Errorf("failed to verify Neo4j connectivity: %w", err)
	}
	return driver, nil
}

// Close closes the Neo4j driver connection
func (r *Repository) Close() error {
	return r.driver.Close(context.Background())
}

var schemaStatements = []string{
	"CREATE CONSTRAINT user_id IF NOT EXISTS FOR (u:User) REQUIRE u.id IS UNIQUE",
	"CREATE CONSTRAINT user_email IF NOT EXISTS FOR (u:User) REQUIRE u.email IS UNIQUE",
	"CREATE CONSTRAINT friend_pair_key IF NOT EXISTS FOR (p:FriendPair) REQUIRE p.key IS UNIQUE",
}

// EnsureSchema creates the uniqueness constraints the repository relies on.
// The FriendPair constraint makes concurrent MERGEs of one pair converge on a
// single lock node.
func (r *Repository) EnsureSchema(ctx context.Context) error {
	session := r.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close(ctx)

	for _, stmt := range schemaStatements {
		result, err := session.Run(ctx, stmt, nil)
		if err != nil {
			return apperrors.NewStoreQueryFailed("ensure_schema", err)
		}
		if _, err := result.Consume(ctx); err != nil {
			return apperrors.NewStoreQueryFailed("ensure_schema", err)
		}
	}
	r.logger.Info("Graph schema ensured")
	return nil
}

// UpsertUser creates or replaces a user node, categories included.
func (r *Repository) UpsertUser(ctx context.Context, u state.User) error {
	query := `
		MERGE (u:User {id: $id})
		SET u.email = $email,
		    u.nickname = $nickname,
		    u.profile_image = $profileImage,
		    u.introduction = $introduction,
		    u.categories = $categories
		RETURN u.id AS id
	`
	_, err := r.write(ctx, "upsert_user", query, map[string]interface{}{
		"id":           u.ID,
		"email":        u.Email,
		"nickname":     u.Nickname,
		"profileImage": u.ProfileImage,
		"introduction": u.Introduction,
		"categories":   categoryStrings(u.Categories),
	})
	return err
}

// read runs query in an auto-commit read session and collects every record.
func (r *Repository) read(ctx context.Context, op, query string, params map[string]interface{}) ([]*neo4j.Record, error) {
	return r.run(ctx, neo4j.AccessModeRead, op, query, params)
}

func (r *Repository) write(ctx context.Context, op, query string, params map[string]interface{}) ([]*neo4j.Record, error) {
	return r.run(ctx, neo4j.AccessModeWrite, op, query, params)
}

func (r *Repository) run(ctx context.Context, mode neo4j.AccessMode, op, query string, params map[string]interface{}) ([]*neo4j.Record, error) {
	session := r.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: mode})
	defer session.Close(ctx)

	result, err := session.Run(ctx, query, params)
	if err != nil {
		return nil, apperrors.NewStoreQueryFailed(op, err)
	}
	records, err := result.Collect(ctx)
	if err != nil {
		return nil, apperrors.NewStoreQueryFailed(op, err)
	}
	return records, nil
}

// count runs a query returning a single "n" column.
func (r *Repository) count(ctx context.Context, op, query string, params map[string]interface{}) (int, error) {
	records, err := r.read(ctx, op, query, params)
	if err != nil {
		return 0, err
	}
	if len(records) == 0 {
		return 0, nil
	}
	return getIntFromRecord(records[0], "n"), nil
}
