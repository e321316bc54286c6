package relation

import (
	"context"
	"time"

	"daydei-social/backend/internal/state"
)

// UserDirectory resolves users. FindByID and FindByIdentity return an error
// matching apperrors.ErrNotFound when nothing matches.
type UserDirectory interface {
	FindByID(ctx context.Context, id string) (*state.User, error)
	FindByIdentity(ctx context.Context, key string) (*state.User, error)
	// Search matches pattern case-insensitively against email and nickname.
	// An empty pattern matches every user. excludingID is never returned.
	Search(ctx context.Context, pattern, excludingID string) ([]state.User, error)
	ListUsers(ctx context.Context) ([]state.User, error)
	AddCategories(ctx context.Context, userID string, categories []state.Category) error
}

// PairTx is a store transaction holding exclusive access to the friend edges
// of one unordered pair.
type PairTx interface {
	// FindEdge returns the edge requester -> responder, or nil if none exists.
	FindEdge(ctx context.Context, requester, responder string) (*state.FriendEdge, error)
	CreateEdge(ctx context.Context, edge *state.FriendEdge) error
	AcceptEdge(ctx context.Context, requester, responder string, at time.Time) (*state.FriendEdge, error)
	DeleteEdge(ctx context.Context, requester, responder string) error
}

// EdgeStore owns friend edges.
type EdgeStore interface {
	// InPairTx runs fn serialized against every other InPairTx on {a, b}.
	// The transaction commits when fn returns nil.
	InPairTx(ctx context.Context, a, b string, fn func(tx PairTx) error) error
	// FindFriendEdge reads the edge requester -> responder outside a pair transaction.
	FindFriendEdge(ctx context.Context, requester, responder string) (*state.FriendEdge, error)
	ListFriendEdges(ctx context.Context, userID string, acceptedOnly bool) ([]state.FriendEdge, error)
	CountFriends(ctx context.Context, userID string) (int, error)
	ListInconsistentPairs(ctx context.Context) ([]state.InconsistentPair, error)
}

// SubscriptionStore owns subscription edges.
type SubscriptionStore interface {
	SubscribersOf(ctx context.Context, userID string) ([]state.User, error)
	SubscriptionsOf(ctx context.Context, userID string) ([]state.User, error)
	IsSubscribed(ctx context.Context, subscriber, target string) (bool, error)
	CountSubscribers(ctx context.Context, userID string) (int, error)
	CountSubscriptions(ctx context.Context, userID string) (int, error)
	// Subscribe reports false when the edge already existed.
	Subscribe(ctx context.Context, subscriber, target string) (bool, error)
	// Unsubscribe reports false when there was no edge to remove.
	Unsubscribe(ctx context.Context, subscriber, target string) (bool, error)
}

// Store is implemented by every persistence backend.
type Store interface {
	UserDirectory
	EdgeStore
	SubscriptionStore
	Close() error
}

// Notifier receives notifications after the mutation that produced them has
// committed. Delivery is best effort.
type Notifier interface {
	Notify(ctx context.Context, n state.Notification)
}
