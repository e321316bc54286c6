package relation_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"daydei-social/backend/internal/relation"
	"daydei-social/backend/internal/state"
	apperrors "daydei-social/backend/pkg/errors"
)

func TestRecommend_CandidateMatchingManyCategoriesAppearsOnce(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, evenDay, relation.OrderDayParity)
	f.addUser("me", "Me")
	f.addUser("x", "Xavier", state.CategorySports, state.CategoryMusic, state.CategoryGame)
	f.addUser("y", "Yuna", state.CategoryMusic)
	f.addUser("z", "Zoe", state.CategoryTravel)

	got, err := f.svc.Recommend(ctx, email("me"), []string{"sports", "MUSIC", "game"}, "")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"x", "y"}, candidateIDs(got))
}

func TestRecommend_ExcludesFriendAndSubscribed(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, evenDay, relation.OrderDayParity)
	f.addUser("me", "Me")
	f.addUser("both", "Both")
	f.addUser("friend", "Friend")
	f.addUser("followed", "Followed")
	f.addUser("stranger", "Stranger")

	f.store.PutFriendEdge(state.FriendEdge{ID: "e1", Requester: "me", Responder: "both", Accepted: true})
	f.store.PutFriendEdge(state.FriendEdge{ID: "e2", Requester: "friend", Responder: "me", Accepted: true})
	_, err := f.store.Subscribe(ctx, "me", "both")
	require.NoError(t, err)
	_, err = f.store.Subscribe(ctx, "me", "followed")
	require.NoError(t, err)

	got, err := f.svc.Recommend(ctx, email("me"), nil, "")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"friend", "followed", "stranger"}, candidateIDs(got))

	byID := make(map[string]state.Candidate, len(got))
	for _, c := range got {
		byID[c.User.ID] = c
	}
	assert.True(t, byID["friend"].IsFriend)
	assert.False(t, byID["friend"].IsSubscribed)
	assert.False(t, byID["followed"].IsFriend)
	assert.True(t, byID["followed"].IsSubscribed)
	assert.False(t, byID["stranger"].IsFriend)
	assert.False(t, byID["stranger"].IsSubscribed)
}

func TestRecommend_PendingDirection(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, evenDay, relation.OrderDayParity)
	f.addUser("me", "Me")
	f.addUser("in", "Incoming")
	f.addUser("out", "Outgoing")
	f.addUser("none", "Nobody")
	f.addUser("mutual", "Mutual")

	_, err := f.svc.RequestFriend(ctx, email("in"), "me")
	require.NoError(t, err)
	_, err = f.svc.RequestFriend(ctx, email("me"), "out")
	require.NoError(t, err)
	_, err = f.svc.RequestFriend(ctx, email("me"), "mutual")
	require.NoError(t, err)
	_, err = f.svc.AcceptFriend(ctx, email("mutual"), "me")
	require.NoError(t, err)

	got, err := f.svc.Recommend(ctx, email("me"), nil, "")
	require.NoError(t, err)

	want := map[string]state.PendingDirection{
		"in":     state.PendingIncoming,
		"out":    state.PendingOutgoing,
		"none":   state.PendingNone,
		"mutual": state.PendingNone,
	}
	require.Len(t, got, len(want))
	for _, c := range got {
		assert.Equal(t, want[c.User.ID], c.PendingDirection, c.User.ID)
		assert.Equal(t, c.User.ID != "none", c.IsFriend, c.User.ID)
	}
}

func TestRecommend_SearchWord(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, evenDay, relation.OrderDayParity)
	f.addUser("me", "Me")
	f.addUser("k1", "KimChi", state.CategoryHobby)
	f.addUser("k2", "Lee", state.CategoryHobby)
	f.addUser("kim", "Park", state.CategoryStudy)

	got, err := f.svc.Recommend(ctx, email("me"), nil, "kim")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"k1", "kim"}, candidateIDs(got))

	got, err = f.svc.Recommend(ctx, email("me"), []string{"hobby"}, "kim")
	require.NoError(t, err)
	assert.Equal(t, []string{"k1"}, candidateIDs(got))
}

func TestRecommend_Counts(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, evenDay, relation.OrderDayParity)
	f.addUser("me", "Me")
	f.addUser("p", "Popular", state.CategorySports)
	f.addUser("u1", "U1")
	f.addUser("u2", "U2")

	f.store.PutFriendEdge(state.FriendEdge{ID: "e1", Requester: "p", Responder: "u1", Accepted: true})
	f.store.PutFriendEdge(state.FriendEdge{ID: "e2", Requester: "u2", Responder: "p", Accepted: false})
	_, err := f.store.Subscribe(ctx, "u1", "p")
	require.NoError(t, err)
	_, err = f.store.Subscribe(ctx, "u2", "p")
	require.NoError(t, err)
	_, err = f.store.Subscribe(ctx, "p", "u1")
	require.NoError(t, err)

	got, err := f.svc.Recommend(ctx, email("me"), []string{"sports"}, "")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 1, got[0].FriendCount)
	assert.Equal(t, 2, got[0].SubscriberCount)
	assert.Equal(t, 1, got[0].SubscribingCount)
}

func TestRecommend_DayParityOrdering(t *testing.T) {
	seed := func(f *fixture) {
		ctx := context.Background()
		f.addUser("me", "Me")
		f.addUser("p", "ManyFriends", state.CategorySports)
		f.addUser("q", "ManySubscribers", state.CategorySports)
		f.addUser("u1", "U1")
		f.addUser("u2", "U2")
		f.store.PutFriendEdge(state.FriendEdge{ID: "e1", Requester: "p", Responder: "u1", Accepted: true})
		f.store.PutFriendEdge(state.FriendEdge{ID: "e2", Requester: "u2", Responder: "p", Accepted: true})
		_, _ = f.store.Subscribe(ctx, "u1", "q")
		_, _ = f.store.Subscribe(ctx, "u2", "q")
	}

	tests := []struct {
		name string
		day  bool
		want []string
	}{
		{name: "even day sorts by friend count", day: true, want: []string{"p", "q"}},
		{name: "odd day sorts by subscriber count", day: false, want: []string{"q", "p"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			day := oddDay
			if tt.day {
				day = evenDay
			}
			f := newFixture(t, day, relation.OrderDayParity)
			seed(f)

			got, err := f.svc.Recommend(context.Background(), email("me"), []string{"sports"}, "")
			require.NoError(t, err)
			assert.Equal(t, tt.want, candidateIDs(got))
		})
	}
}

func TestRecommend_ShuffleIsStableWithinADay(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, evenDay, relation.OrderShuffle)
	f.addUser("me", "Me")
	for _, id := range []string{"a", "b", "c", "d", "e", "f", "g", "h"} {
		f.addUser(id, "User "+id)
	}

	first, err := f.svc.Recommend(ctx, email("me"), nil, "")
	require.NoError(t, err)
	second, err := f.svc.Recommend(ctx, email("me"), nil, "")
	require.NoError(t, err)

	assert.Len(t, first, 8)
	assert.Equal(t, candidateIDs(first), candidateIDs(second))
}

func TestRecommend_Failures(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, evenDay, relation.OrderDayParity)
	f.addUser("me", "Me")

	_, err := f.svc.Recommend(ctx, email("me"), []string{"sports", "cooking"}, "")
	assert.ErrorIs(t, err, apperrors.ErrInvalidCategory)

	_, err = f.svc.Recommend(ctx, "ghost@test.dev", nil, "")
	assert.ErrorIs(t, err, apperrors.ErrUnauthenticated)
}

func TestRandomSuggestions(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, evenDay, relation.OrderDayParity)
	f.addUser("me", "Me")
	f.addUser("both", "Both")
	for _, id := range []string{"a", "b", "c", "d", "e"} {
		f.addUser(id, "User "+id)
	}
	f.store.PutFriendEdge(state.FriendEdge{ID: "e1", Requester: "me", Responder: "both", Accepted: true})
	_, err := f.store.Subscribe(ctx, "me", "both")
	require.NoError(t, err)

	for i := 0; i < 10; i++ {
		got, err := f.svc.RandomSuggestions(ctx, email("me"))
		require.NoError(t, err)
		assert.Len(t, got, 3)
		assert.NotContains(t, candidateIDs(got), "me")
		assert.NotContains(t, candidateIDs(got), "both")
	}
}
