package relation

import (
	"cmp"
	"context"
	"math/rand/v2"
	"slices"

	"golang.org/x/sync/errgroup"

	"daydei-social/backend/internal/state"
)

// Recommend returns users the caller is not yet both friends with and
// subscribed to, filtered by categories and searchWord.
//
// A candidate matching several requested categories is returned once. With no
// categories every search hit is considered.
func (s *Service) Recommend(ctx context.Context, callerKey string, categories []string, searchWord string) ([]state.Candidate, error) {
	caller, err := s.resolveCaller(ctx, callerKey)
	if err != nil {
		return nil, s.fail("recommend", err)
	}
	wanted, err := state.ParseCategories(categories)
	if err != nil {
		return nil, s.fail("recommend", err)
	}

	pool, err := s.users.Search(ctx, searchWord, caller.ID)
	if err != nil {
		return nil, s.fail("recommend", err)
	}

	seen := make(map[string]bool, len(pool))
	considered := make([]state.User, 0, len(pool))
	for _, u := range pool {
		if u.ID == caller.ID {
			continue
		}
		if len(wanted) == 0 {
			if !seen[u.ID] {
				seen[u.ID] = true
				considered = append(considered, u)
			}
			continue
		}
		for _, c := range wanted {
			if u.HasCategory(c) && !seen[u.ID] {
				seen[u.ID] = true
				considered = append(considered, u)
			}
		}
	}

	candidates, err := s.buildCandidates(ctx, caller.ID, considered)
	if err != nil {
		return nil, s.fail("recommend", err)
	}
	s.orderCandidates(candidates)
	s.metrics.Recommended(len(candidates))
	return candidates, nil
}

// RandomSuggestions returns a random sample of users the caller could still
// befriend or subscribe to.
func (s *Service) RandomSuggestions(ctx context.Context, callerKey string) ([]state.Candidate, error) {
	caller, err := s.resolveCaller(ctx, callerKey)
	if err != nil {
		return nil, s.fail("random_suggestions", err)
	}
	users, err := s.users.ListUsers(ctx)
	if err != nil {
		return nil, s.fail("random_suggestions", err)
	}
	others := withoutUser(users, caller.ID)

	candidates, err := s.buildCandidates(ctx, caller.ID, others)
	if err != nil {
		return nil, s.fail("random_suggestions", err)
	}
	rand.Shuffle(len(candidates), func(i, j int) {
		candidates[i], candidates[j] = candidates[j], candidates[i]
	})
	if len(candidates) > s.randomSize {
		candidates = candidates[:s.randomSize]
	}
	return candidates, nil
}

// buildCandidates computes relationship flags and counts for every user with
// bounded concurrency, dropping users that are both friend and subscribed.
// The result keeps the input order.
func (s *Service) buildCandidates(ctx context.Context, callerID string, users []state.User) ([]state.Candidate, error) {
	results := make([]*state.Candidate, len(users))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, u := range users {
		g.Go(func() error {
			c, err := s.buildCandidate(gctx, callerID, u)
			if err != nil {
				return err
			}
			results[i] = c
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make([]state.Candidate, 0, len(users))
	for _, c := range results {
		if c != nil {
			out = append(out, *c)
		}
	}
	return out, nil
}

// buildCandidate returns nil when u is already both a friend and a
// subscription of the caller.
func (s *Service) buildCandidate(ctx context.Context, callerID string, u state.User) (*state.Candidate, error) {
	out, err := s.edges.FindFriendEdge(ctx, callerID, u.ID)
	if err != nil {
		return nil, err
	}
	in, err := s.edges.FindFriendEdge(ctx, u.ID, callerID)
	if err != nil {
		return nil, err
	}
	isFriend := out != nil || in != nil

	isSubscribed, err := s.subs.IsSubscribed(ctx, callerID, u.ID)
	if err != nil {
		return nil, err
	}
	if isFriend && isSubscribed {
		return nil, nil
	}

	direction := state.PendingNone
	switch {
	case in != nil && !in.Accepted:
		direction = state.PendingIncoming
	case out != nil && !out.Accepted:
		direction = state.PendingOutgoing
	}

	c := &state.Candidate{
		User:             u,
		IsFriend:         isFriend,
		IsSubscribed:     isSubscribed,
		PendingDirection: direction,
	}
	if c.FriendCount, err = s.edges.CountFriends(ctx, u.ID); err != nil {
		return nil, err
	}
	if c.SubscriberCount, err = s.subs.CountSubscribers(ctx, u.ID); err != nil {
		return nil, err
	}
	if c.SubscribingCount, err = s.subs.CountSubscriptions(ctx, u.ID); err != nil {
		return nil, err
	}
	return c, nil
}

// orderCandidates sorts by friend count on even days and by subscriber count
// on odd days, both descending, or shuffles with the day seed.
func (s *Service) orderCandidates(candidates []state.Candidate) {
	byID := func(a, b state.Candidate) int { return cmp.Compare(a.User.ID, b.User.ID) }
	if s.rotation.Policy == OrderShuffle {
		slices.SortFunc(candidates, byID)
		shuffle(s.rotation, candidates)
		return
	}
	count := func(c state.Candidate) int { return c.SubscriberCount }
	if s.rotation.Even() {
		count = func(c state.Candidate) int { return c.FriendCount }
	}
	slices.SortFunc(candidates, func(a, b state.Candidate) int {
		if c := cmp.Compare(count(b), count(a)); c != 0 {
			return c
		}
		return byID(a, b)
	})
}
