package graph

import (
	"context"
	"time"

	"daydei-social/backend/internal/state"
)

// ============================================================================
// Subscription Operations
// ============================================================================

// SubscribersOf lists users with a SUBSCRIBES edge into userID
func (r *Repository) SubscribersOf(ctx context.Context, userID string) ([]state.User, error) {
	query := `
		MATCH (s:User)-[:SUBSCRIBES]->(:User {id: $userID})
		RETURN ` + userFields("s") + `
		ORDER BY s.id`

	records, err := r.read(ctx, "subscribers_of", query, map[string]interface{}{"userID": userID})
	if err != nil {
		return nil, err
	}
	return usersFromRecords(records), nil
}

// SubscriptionsOf lists users userID has a SUBSCRIBES edge to
func (r *Repository) SubscriptionsOf(ctx context.Context, userID string) ([]state.User, error) {
	query := `
		MATCH (:User {id: $userID})-[:SUBSCRIBES]->(t:User)
		RETURN ` + userFields("t") + `
		ORDER BY t.id`

	records, err := r.read(ctx, "subscriptions_of", query, map[string]interface{}{"userID": userID})
	if err != nil {
		return nil, err
	}
	return usersFromRecords(records), nil
}

func (r *Repository) IsSubscribed(ctx context.Context, subscriber, target string) (bool, error) {
	query := `
		MATCH (:User {id: $subscriber})-[r:SUBSCRIBES]->(:User {id: $target})
		RETURN count(r) AS n
	`
	n, err := r.count(ctx, "is_subscribed", query, map[string]interface{}{
		"subscriber": subscriber,
		"target":     target,
	})
	return n > 0, err
}

func (r *Repository) CountSubscribers(ctx context.Context, userID string) (int, error) {
	query := `
		MATCH (:User)-[r:SUBSCRIBES]->(:User {id: $userID})
		RETURN count(r) AS n
	`
	return r.count(ctx, "count_subscribers", query, map[string]interface{}{"userID": userID})
}

func (r *Repository) CountSubscriptions(ctx context.Context, userID string) (int, error) {
	query := `
		MATCH (:User {id: $userID})-[r:SUBSCRIBES]->(:User)
		RETURN count(r) AS n
	`
	return r.count(ctx, "count_subscriptions", query, map[string]interface{}{"userID": userID})
}

// Subscribe merges the SUBSCRIBES edge. created is true only when this call
// wrote the edge's created_at.
func (r *Repository) Subscribe(ctx context.Context, subscriber, target string) (bool, error) {
	query := `
		MATCH (a:User {id: $subscriber}), (b:User {id: $target})
		MERGE (a)-[r:SUBSCRIBES]->(b)
		ON CREATE SET r.created_at = $now
		RETURN r.created_at = $now AS created
	`
	records, err := r.write(ctx, "subscribe", query, map[string]interface{}{
		"subscriber": subscriber,
		"target":     target,
		"now":        time.Now().UTC(),
	})
	if err != nil {
		return false, err
	}
	if len(records) == 0 {
		return false, nil
	}
	return getBoolFromRecord(records[0], "created"), nil
}

func (r *Repository) Unsubscribe(ctx context.Context, subscriber, target string) (bool, error) {
	query := `
		MATCH (:User {id: $subscriber})-[r:SUBSCRIBES]->(:User {id: $target})
		DELETE r
		RETURN count(*) AS n
	`
	records, err := r.write(ctx, "unsubscribe", query, map[string]interface{}{
		"subscriber": subscriber,
		"target":     target,
	})
	if err != nil {
		return false, err
	}
	return len(records) > 0 && getIntFromRecord(records[0], "n") > 0, nil
}
