package relation

import (
	"cmp"
	"context"
	"slices"

	"daydei-social/backend/internal/state"
	apperrors "daydei-social/backend/pkg/errors"
)

// Relations builds the caller's friends and subscriptions, each ordered by
// the rotation policy.
func (s *Service) Relations(ctx context.Context, callerKey string) (state.RelationsView, error) {
	caller, err := s.resolveCaller(ctx, callerKey)
	if err != nil {
		return state.RelationsView{}, s.fail("relations", err)
	}

	friends, err := s.confirmedFriends(ctx, caller.ID)
	if err != nil {
		return state.RelationsView{}, s.fail("relations", err)
	}
	subscribed, err := s.subs.ListSubscriptionsOf(ctx, caller.ID)
	if err != nil {
		return state.RelationsView{}, s.fail("relations", err)
	}

	view := state.RelationsView{
		Friends:       friends,
		Subscriptions: toViews(subscribed, true),
	}
	s.orderUsers(view.Friends)
	s.orderUsers(view.Subscriptions)
	return view, nil
}

// orderUsers sorts by email on even days and by nickname on odd days, or
// shuffles with the day seed.
func (s *Service) orderUsers(views []state.UserView) {
	byID := func(a, b state.UserView) int { return cmp.Compare(a.ID, b.ID) }
	if s.rotation.Policy == OrderShuffle {
		slices.SortFunc(views, byID)
		shuffle(s.rotation, views)
		return
	}
	key := func(v state.UserView) string { return v.Nickname }
	if s.rotation.Even() {
		key = func(v state.UserView) string { return v.Email }
	}
	slices.SortFunc(views, func(a, b state.UserView) int {
		if c := cmp.Compare(key(a), key(b)); c != 0 {
			return c
		}
		return byID(a, b)
	})
}

// SetCategories registers categories for the caller and returns the updated
// user. Registering a category twice is an invalid request.
func (s *Service) SetCategories(ctx context.Context, callerKey string, tokens []string) (state.UserView, error) {
	caller, err := s.resolveCaller(ctx, callerKey)
	if err != nil {
		return state.UserView{}, s.fail("set_categories", err)
	}
	categories, err := state.ParseCategories(tokens)
	if err != nil {
		return state.UserView{}, s.fail("set_categories", err)
	}
	if len(categories) == 0 {
		return state.UserView{}, s.fail("set_categories", apperrors.NewInvalidRequest("no category given"))
	}
	seen := make(map[state.Category]bool, len(categories))
	for _, c := range categories {
		if caller.HasCategory(c) || seen[c] {
			return state.UserView{}, s.fail("set_categories", apperrors.NewInvalidRequest("category already registered: "+string(c)))
		}
		seen[c] = true
	}
	if err := s.users.AddCategories(ctx, caller.ID, categories); err != nil {
		return state.UserView{}, s.fail("set_categories", err)
	}
	updated, err := s.resolveUser(ctx, caller.ID)
	if err != nil {
		return state.UserView{}, s.fail("set_categories", err)
	}
	return state.NewUserView(updated, false), nil
}
