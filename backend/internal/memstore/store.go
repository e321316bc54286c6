// Package memstore is an in-process relation.Store used for development and
// tests. Pair transactions are serialized by a per-pair mutex and staged so a
// failing transaction leaves no trace.
package memstore

import (
	"context"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"daydei-social/backend/internal/relation"
	"daydei-social/backend/internal/state"
	apperrors "daydei-social/backend/pkg/errors"
)

type edgeKey struct {
	requester string
	responder string
}

type Store struct {
	mu            sync.RWMutex
	users         map[string]*state.User
	byIdentity    map[string]string
	edges         map[edgeKey]state.FriendEdge
	subscriptions map[edgeKey]time.Time

	pairMu    sync.Mutex
	pairLocks map[string]*sync.Mutex
}

var _ relation.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		users:         make(map[string]*state.User),
		byIdentity:    make(map[string]string),
		edges:         make(map[edgeKey]state.FriendEdge),
		subscriptions: make(map[edgeKey]time.Time),
		pairLocks:     make(map[string]*sync.Mutex),
	}
}

func (s *Store) Close() error { return nil }

// PutUser inserts or replaces a user.
func (s *Store) PutUser(u state.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if old, ok := s.users[u.ID]; ok {
		delete(s.byIdentity, strings.ToLower(old.Email))
	}
	cp := u
	cp.Categories = slices.Clone(u.Categories)
	s.users[u.ID] = &cp
	s.byIdentity[strings.ToLower(u.Email)] = u.ID
}

func (s *Store) UpsertUser(_ context.Context, u state.User) error {
	s.PutUser(u)
	return nil
}

// PutFriendEdge writes an edge without any pair checks. It exists to seed
// data and to reproduce corrupted states.
func (s *Store) PutFriendEdge(e state.FriendEdge) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.edges[edgeKey{e.Requester, e.Responder}] = e
}

// User Directory

func (s *Store) FindByID(_ context.Context, id string) (*state.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return nil, apperrors.NewUserNotFound(id)
	}
	return cloneUser(u), nil
}

func (s *Store) FindByIdentity(_ context.Context, key string) (*state.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byIdentity[strings.ToLower(key)]
	if !ok {
		return nil, apperrors.NewUserNotFound(key)
	}
	return cloneUser(s.users[id]), nil
}

func (s *Store) Search(_ context.Context, pattern, excludingID string) ([]state.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	needle := strings.ToLower(strings.TrimSpace(pattern))
	out := make([]state.User, 0)
	for _, u := range s.users {
		if u.ID == excludingID {
			continue
		}
		if needle == "" ||
			strings.Contains(strings.ToLower(u.Email), needle) ||
			strings.Contains(strings.ToLower(u.Nickname), needle) {
			out = append(out, *cloneUser(u))
		}
	}
	sortUsers(out)
	return out, nil
}

func (s *Store) ListUsers(_ context.Context) ([]state.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]state.User, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, *cloneUser(u))
	}
	sortUsers(out)
	return out, nil
}

func (s *Store) AddCategories(_ context.Context, userID string, categories []state.Category) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return apperrors.NewUserNotFound(userID)
	}
	for _, c := range categories {
		if !u.HasCategory(c) {
			u.Categories = append(u.Categories, c)
		}
	}
	return nil
}

// Edge Store

func (s *Store) pairLock(a, b string) *sync.Mutex {
	key := state.PairKey(a, b)
	s.pairMu.Lock()
	defer s.pairMu.Unlock()
	l, ok := s.pairLocks[key]
	if !ok {
		l = &sync.Mutex{}
		s.pairLocks[key] = l
	}
	return l
}

func (s *Store) InPairTx(ctx context.Context, a, b string, fn func(tx relation.PairTx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	l := s.pairLock(a, b)
	l.Lock()
	defer l.Unlock()

	tx := &pairTx{store: s, staged: make(map[edgeKey]*state.FriendEdge)}
	if err := fn(tx); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for k, e := range tx.staged {
		if e == nil {
			delete(s.edges, k)
			continue
		}
		s.edges[k] = *e
	}
	return nil
}

func (s *Store) FindFriendEdge(_ context.Context, requester, responder string) (*state.FriendEdge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.edges[edgeKey{requester, responder}]
	if !ok {
		return nil, nil
	}
	return &e, nil
}

func (s *Store) ListFriendEdges(_ context.Context, userID string, acceptedOnly bool) ([]state.FriendEdge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]state.FriendEdge, 0)
	for _, e := range s.edges {
		if !e.Involves(userID) || (acceptedOnly && !e.Accepted) {
			continue
		}
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) CountFriends(ctx context.Context, userID string) (int, error) {
	edges, err := s.ListFriendEdges(ctx, userID, true)
	return len(edges), err
}

func (s *Store) ListInconsistentPairs(_ context.Context) ([]state.InconsistentPair, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]state.InconsistentPair, 0)
	for k := range s.edges {
		if k.requester >= k.responder {
			continue
		}
		if _, ok := s.edges[edgeKey{k.responder, k.requester}]; ok {
			out = append(out, state.InconsistentPair{UserA: k.requester, UserB: k.responder})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserA+out[i].UserB < out[j].UserA+out[j].UserB })
	return out, nil
}

// Subscription Store

func (s *Store) SubscribersOf(_ context.Context, userID string) ([]state.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]state.User, 0)
	for k := range s.subscriptions {
		if k.responder == userID {
			if u, ok := s.users[k.requester]; ok {
				out = append(out, *cloneUser(u))
			}
		}
	}
	sortUsers(out)
	return out, nil
}

func (s *Store) SubscriptionsOf(_ context.Context, userID string) ([]state.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]state.User, 0)
	for k := range s.subscriptions {
		if k.requester == userID {
			if u, ok := s.users[k.responder]; ok {
				out = append(out, *cloneUser(u))
			}
		}
	}
	sortUsers(out)
	return out, nil
}

func (s *Store) IsSubscribed(_ context.Context, subscriber, target string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.subscriptions[edgeKey{subscriber, target}]
	return ok, nil
}

func (s *Store) CountSubscribers(ctx context.Context, userID string) (int, error) {
	users, err := s.SubscribersOf(ctx, userID)
	return len(users), err
}

func (s *Store) CountSubscriptions(ctx context.Context, userID string) (int, error) {
	users, err := s.SubscriptionsOf(ctx, userID)
	return len(users), err
}

func (s *Store) Subscribe(_ context.Context, subscriber, target string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := edgeKey{subscriber, target}
	if _, ok := s.subscriptions[k]; ok {
		return false, nil
	}
	s.subscriptions[k] = time.Now()
	return true, nil
}

func (s *Store) Unsubscribe(_ context.Context, subscriber, target string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := edgeKey{subscriber, target}
	if _, ok := s.subscriptions[k]; !ok {
		return false, nil
	}
	delete(s.subscriptions, k)
	return true, nil
}

// pairTx stages writes; nil marks a deletion.
type pairTx struct {
	store  *Store
	staged map[edgeKey]*state.FriendEdge
}

func (t *pairTx) FindEdge(ctx context.Context, requester, responder string) (*state.FriendEdge, error) {
	k := edgeKey{requester, responder}
	if e, ok := t.staged[k]; ok {
		if e == nil {
			return nil, nil
		}
		cp := *e
		return &cp, nil
	}
	return t.store.FindFriendEdge(ctx, requester, responder)
}

func (t *pairTx) CreateEdge(ctx context.Context, edge *state.FriendEdge) error {
	if err := edge.Validate(); err != nil {
		return err
	}
	existing, err := t.FindEdge(ctx, edge.Requester, edge.Responder)
	if err != nil {
		return err
	}
	if existing != nil {
		return apperrors.NewAlreadyRelated(edge.Requester, edge.Responder)
	}
	cp := *edge
	t.staged[edgeKey{edge.Requester, edge.Responder}] = &cp
	return nil
}

func (t *pairTx) AcceptEdge(ctx context.Context, requester, responder string, at time.Time) (*state.FriendEdge, error) {
	e, err := t.FindEdge(ctx, requester, responder)
	if err != nil {
		return nil, err
	}
	if e == nil {
		return nil, apperrors.NewNoAcceptableRequest(requester, responder)
	}
	e.Accepted = true
	e.UpdatedAt = at
	t.staged[edgeKey{requester, responder}] = e
	cp := *e
	return &cp, nil
}

func (t *pairTx) DeleteEdge(ctx context.Context, requester, responder string) error {
	e, err := t.FindEdge(ctx, requester, responder)
	if err != nil {
		return err
	}
	if e == nil {
		return apperrors.NewNoRelationship(requester, responder)
	}
	t.staged[edgeKey{requester, responder}] = nil
	return nil
}

func cloneUser(u *state.User) *state.User {
	cp := *u
	cp.Categories = slices.Clone(u.Categories)
	return &cp
}

func sortUsers(users []state.User) {
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
}
