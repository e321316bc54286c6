package relation

import (
	"context"

	"go.uber.org/zap"

	"daydei-social/backend/internal/state"
	apperrors "daydei-social/backend/pkg/errors"
)

// SubscriptionAccessor answers read queries over subscription edges.
type SubscriptionAccessor struct {
	store SubscriptionStore
}

func NewSubscriptionAccessor(store SubscriptionStore) *SubscriptionAccessor {
	return &SubscriptionAccessor{store: store}
}

// ListSubscribersOf returns the users subscribed to userID.
func (a *SubscriptionAccessor) ListSubscribersOf(ctx context.Context, userID string) ([]state.User, error) {
	users, err := a.store.SubscribersOf(ctx, userID)
	if err != nil {
		return nil, err
	}
	return withoutUser(users, userID), nil
}

// ListSubscriptionsOf returns the users userID subscribes to.
func (a *SubscriptionAccessor) ListSubscriptionsOf(ctx context.Context, userID string) ([]state.User, error) {
	users, err := a.store.SubscriptionsOf(ctx, userID)
	if err != nil {
		return nil, err
	}
	return withoutUser(users, userID), nil
}

func (a *SubscriptionAccessor) IsSubscribed(ctx context.Context, subscriber, target string) (bool, error) {
	return a.store.IsSubscribed(ctx, subscriber, target)
}

func (a *SubscriptionAccessor) CountSubscribers(ctx context.Context, userID string) (int, error) {
	return a.store.CountSubscribers(ctx, userID)
}

func (a *SubscriptionAccessor) CountSubscriptions(ctx context.Context, userID string) (int, error) {
	return a.store.CountSubscriptions(ctx, userID)
}

func withoutUser(users []state.User, userID string) []state.User {
	out := users[:0:0]
	for _, u := range users {
		if u.ID != userID {
			out = append(out, u)
		}
	}
	return out
}

// Subscribe makes the caller follow targetID.
func (s *Service) Subscribe(ctx context.Context, callerKey, targetID string) error {
	caller, err := s.resolveCaller(ctx, callerKey)
	if err != nil {
		return s.fail("subscribe", err)
	}
	target, err := s.resolveUser(ctx, targetID)
	if err != nil {
		return s.fail("subscribe", err)
	}
	if caller.Same(target) {
		return s.fail("subscribe", apperrors.NewInvalidRequest("cannot subscribe to yourself"))
	}
	created, err := s.subs.store.Subscribe(ctx, caller.ID, target.ID)
	if err != nil {
		return s.fail("subscribe", err)
	}
	if !created {
		return s.fail("subscribe", apperrors.NewAlreadyRelated(caller.ID, target.ID))
	}
	s.logger.Info("User subscribed", zap.String("subscriber_id", caller.ID), zap.String("target_id", target.ID))
	return nil
}

// Unsubscribe removes the caller's follow of targetID.
func (s *Service) Unsubscribe(ctx context.Context, callerKey, targetID string) error {
	caller, err := s.resolveCaller(ctx, callerKey)
	if err != nil {
		return s.fail("unsubscribe", err)
	}
	target, err := s.resolveUser(ctx, targetID)
	if err != nil {
		return s.fail("unsubscribe", err)
	}
	removed, err := s.subs.store.Unsubscribe(ctx, caller.ID, target.ID)
	if err != nil {
		return s.fail("unsubscribe", err)
	}
	if !removed {
		return s.fail("unsubscribe", apperrors.NewNoRelationship(caller.ID, target.ID))
	}
	return nil
}

// SubscribersOf lists who follows userID.
func (s *Service) SubscribersOf(ctx context.Context, userID string) ([]state.UserView, error) {
	if _, err := s.resolveUser(ctx, userID); err != nil {
		return nil, s.fail("subscribers_of", err)
	}
	users, err := s.subs.ListSubscribersOf(ctx, userID)
	if err != nil {
		return nil, s.fail("subscribers_of", err)
	}
	return toViews(users, false), nil
}

// SubscriptionsOf lists whom userID follows.
func (s *Service) SubscriptionsOf(ctx context.Context, userID string) ([]state.UserView, error) {
	if _, err := s.resolveUser(ctx, userID); err != nil {
		return nil, s.fail("subscriptions_of", err)
	}
	users, err := s.subs.ListSubscriptionsOf(ctx, userID)
	if err != nil {
		return nil, s.fail("subscriptions_of", err)
	}
	return toViews(users, true), nil
}

func toViews(users []state.User, related bool) []state.UserView {
	views := make([]state.UserView, 0, len(users))
	for i := range users {
		views = append(views, state.NewUserView(&users[i], related))
	}
	return views
}
