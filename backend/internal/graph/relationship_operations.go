package graph

import (
	"context"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"

	"daydei-social/backend/internal/relation"
	"daydei-social/backend/internal/state"
	apperrors "daydei-social/backend/pkg/errors"
)

// ============================================================================
// Friend Edge Operations
// ============================================================================

// InPairTx runs fn in a managed write transaction that first takes the write
// lock on the pair's FriendPair node. Every other pair transaction on {a, b}
// blocks on that lock until this one commits or rolls back.
func (r *Repository) InPairTx(ctx context.Context, a, b string, fn func(tx relation.PairTx) error) error {
	session := r.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close(ctx)

	key := state.PairKey(a, b)
	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		result, err := tx.Run(ctx, `
			MERGE (p:FriendPair {key: $key})
			SET p.version = coalesce(p.version, 0) + 1
		`, map[string]interface{}{"key": key})
		if err != nil {
			return nil, apperrors.NewStoreQueryFailed("lock_pair", err)
		}
		if _, err := result.Consume(ctx); err != nil {
			return nil, apperrors.NewStoreQueryFailed("lock_pair", err)
		}
		return nil, fn(&pairTx{tx: tx})
	})
	if err != nil && apperrors.KindOf(err) == "" && !apperrors.IsErrorType(err, apperrors.ErrorTypeStore) {
		r.logger.Warn("Pair transaction failed", zap.String("pair", key), zap.Error(err))
		return apperrors.NewStoreQueryFailed("pair_tx", err)
	}
	return err
}

// FindFriendEdge reads the FRIEND_REQUEST from requester to responder
func (r *Repository) FindFriendEdge(ctx context.Context, requester, responder string) (*state.FriendEdge, error) {
	records, err := r.read(ctx, "find_friend_edge", findEdgeQuery, map[string]interface{}{
		"requester": requester,
		"responder": responder,
	})
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}
	return edgeFromRecord(records[0]), nil
}

// ListFriendEdges returns every FRIEND_REQUEST touching userID, oldest first
func (r *Repository) ListFriendEdges(ctx context.Context, userID string, acceptedOnly bool) ([]state.FriendEdge, error) {
	query := `
		MATCH (a:User)-[r:FRIEND_REQUEST]->(b:User)
		WHERE (a.id = $userID OR b.id = $userID)
		  AND ($acceptedOnly = false OR r.accepted = true)
		RETURN ` + edgeFields + `
		ORDER BY r.created_at`

	records, err := r.read(ctx, "list_friend_edges", query, map[string]interface{}{
		"userID":       userID,
		"acceptedOnly": acceptedOnly,
	})
	if err != nil {
		return nil, err
	}
	edges := make([]state.FriendEdge, 0, len(records))
	for _, record := range records {
		edges = append(edges, *edgeFromRecord(record))
	}
	return edges, nil
}

// CountFriends counts accepted edges in either direction
func (r *Repository) CountFriends(ctx context.Context, userID string) (int, error) {
	query := `
		MATCH (:User {id: $userID})-[r:FRIEND_REQUEST {accepted: true}]-(:User)
		RETURN count(DISTINCT r) AS n
	`
	return r.count(ctx, "count_friends", query, map[string]interface{}{"userID": userID})
}

// ListInconsistentPairs finds pairs holding FRIEND_REQUESTs in both directions
func (r *Repository) ListInconsistentPairs(ctx context.Context) ([]state.InconsistentPair, error) {
	query := `
		MATCH (a:User)-[:FRIEND_REQUEST]->(b:User)-[:FRIEND_REQUEST]->(a)
		WHERE a.id < b.id
		RETURN DISTINCT a.id AS user_a, b.id AS user_b
		ORDER BY user_a, user_b
	`
	records, err := r.read(ctx, "list_inconsistent_pairs", query, nil)
	if err != nil {
		return nil, err
	}
	pairs := make([]state.InconsistentPair, 0, len(records))
	for _, record := range records {
		pairs = append(pairs, state.InconsistentPair{
			UserA: getStringFromRecord(record, "user_a"),
			UserB: getStringFromRecord(record, "user_b"),
		})
	}
	return pairs, nil
}

const findEdgeQuery = `
	MATCH (a:User {id: $requester})-[r:FRIEND_REQUEST]->(b:User {id: $responder})
	RETURN ` + edgeFields + `
	LIMIT 1`

// pairTx runs edge statements inside the managed transaction of InPairTx.
type pairTx struct {
	tx neo4j.ManagedTransaction
}

func (t *pairTx) collect(ctx context.Context, op, query string, params map[string]interface{}) ([]*neo4j.Record, error) {
	result, err := t.tx.Run(ctx, query, params)
	if err != nil {
		return nil, apperrors.NewStoreQueryFailed(op, err)
	}
	records, err := result.Collect(ctx)
	if err != nil {
		return nil, apperrors.NewStoreQueryFailed(op, err)
	}
	return records, nil
}

func (t *pairTx) FindEdge(ctx context.Context, requester, responder string) (*state.FriendEdge, error) {
	records, err := t.collect(ctx, "find_friend_edge", findEdgeQuery, map[string]interface{}{
		"requester": requester,
		"responder": responder,
	})
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}
	return edgeFromRecord(records[0]), nil
}

func (t *pairTx) CreateEdge(ctx context.Context, edge *state.FriendEdge) error {
	if err := edge.Validate(); err != nil {
		return err
	}
	query := `
		MATCH (a:User {id: $requester}), (b:User {id: $responder})
		CREATE (a)-[r:FRIEND_REQUEST {
			id: $id,
			accepted: $accepted,
			created_at: $createdAt,
			updated_at: $updatedAt
		}]->(b)
		RETURN r.id AS id
	`
	records, err := t.collect(ctx, "create_friend_edge", query, map[string]interface{}{
		"requester": edge.Requester,
		"responder": edge.Responder,
		"id":        edge.ID,
		"accepted":  edge.Accepted,
		"createdAt": edge.CreatedAt.UTC(),
		"updatedAt": edge.UpdatedAt.UTC(),
	})
	if err != nil {
		return err
	}
	if len(records) == 0 {
		return apperrors.NewUserNotFound(edge.Responder)
	}
	return nil
}

func (t *pairTx) AcceptEdge(ctx context.Context, requester, responder string, at time.Time) (*state.FriendEdge, error) {
	query := `
		MATCH (a:User {id: $requester})-[r:FRIEND_REQUEST]->(b:User {id: $responder})
		SET r.accepted = true, r.updated_at = $at
		RETURN ` + edgeFields

	records, err := t.collect(ctx, "accept_friend_edge", query, map[string]interface{}{
		"requester": requester,
		"responder": responder,
		"at":        at.UTC(),
	})
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, apperrors.NewNoAcceptableRequest(requester, responder)
	}
	return edgeFromRecord(records[0]), nil
}

func (t *pairTx) DeleteEdge(ctx context.Context, requester, responder string) error {
	query := `
		MATCH (:User {id: $requester})-[r:FRIEND_REQUEST]->(:User {id: $responder})
		DELETE r
		RETURN count(*) AS n
	`
	records, err := t.collect(ctx, "delete_friend_edge", query, map[string]interface{}{
		"requester": requester,
		"responder": responder,
	})
	if err != nil {
		return err
	}
	if len(records) == 0 || getIntFromRecord(records[0], "n") == 0 {
		return apperrors.NewNoRelationship(requester, responder)
	}
	return nil
}
