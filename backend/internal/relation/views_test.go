package relation_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"daydei-social/backend/internal/relation"
	"daydei-social/backend/internal/state"
	apperrors "daydei-social/backend/pkg/errors"
)

func seedRelations(t *testing.T, f *fixture) {
	t.Helper()
	ctx := context.Background()
	f.addUser("me", "Me")
	// email order a < b < c, nickname order c < b < a
	f.addUser("a", "Zed")
	f.addUser("b", "Mia")
	f.addUser("c", "Ann")
	f.addUser("pending", "Pending")

	for _, id := range []string{"a", "b"} {
		f.store.PutFriendEdge(state.FriendEdge{ID: "f-" + id, Requester: "me", Responder: id, Accepted: true})
	}
	f.store.PutFriendEdge(state.FriendEdge{ID: "f-c", Requester: "c", Responder: "me", Accepted: true})
	f.store.PutFriendEdge(state.FriendEdge{ID: "f-p", Requester: "pending", Responder: "me"})
	for _, id := range []string{"c", "a"} {
		_, err := f.store.Subscribe(ctx, "me", id)
		require.NoError(t, err)
	}
}

func TestRelations_DayParityOrdering(t *testing.T) {
	tests := []struct {
		name          string
		day           time.Time
		friends       []string
		subscriptions []string
	}{
		{name: "even day orders by email", day: evenDay, friends: []string{"a", "b", "c"}, subscriptions: []string{"a", "c"}},
		{name: "odd day orders by nickname", day: oddDay, friends: []string{"c", "b", "a"}, subscriptions: []string{"c", "a"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, tt.day, relation.OrderDayParity)
			seedRelations(t, f)

			view, err := f.svc.Relations(context.Background(), email("me"))
			require.NoError(t, err)
			assert.Equal(t, tt.friends, viewIDs(view.Friends))
			assert.Equal(t, tt.subscriptions, viewIDs(view.Subscriptions))
		})
	}
}

func TestRelations_NeverListsCaller(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, evenDay, relation.OrderDayParity)
	f.addUser("me", "Me")
	f.addUser("a", "Ann")
	f.store.PutFriendEdge(state.FriendEdge{ID: "self", Requester: "me", Responder: "me", Accepted: true})
	f.store.PutFriendEdge(state.FriendEdge{ID: "f-a", Requester: "a", Responder: "me", Accepted: true})
	_, err := f.store.Subscribe(ctx, "me", "me")
	require.NoError(t, err)

	view, err := f.svc.Relations(ctx, email("me"))
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, viewIDs(view.Friends))
	assert.Empty(t, view.Subscriptions)
}

func TestRelations_Unauthenticated(t *testing.T) {
	f := newFixture(t, evenDay, relation.OrderDayParity)
	_, err := f.svc.Relations(context.Background(), "nobody@test.dev")
	assert.ErrorIs(t, err, apperrors.ErrUnauthenticated)
}

func TestSetCategories(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, evenDay, relation.OrderDayParity)
	f.addUser("me", "Me", state.CategoryMusic)

	view, err := f.svc.SetCategories(ctx, email("me"), []string{"sports", "Travel"})
	require.NoError(t, err)
	assert.Equal(t, []state.Category{state.CategoryMusic, state.CategorySports, state.CategoryTravel}, view.Categories)

	_, err = f.svc.SetCategories(ctx, email("me"), []string{"music"})
	assert.ErrorIs(t, err, apperrors.ErrInvalidRequest)

	_, err = f.svc.SetCategories(ctx, email("me"), []string{"game", "GAME"})
	assert.ErrorIs(t, err, apperrors.ErrInvalidRequest)

	_, err = f.svc.SetCategories(ctx, email("me"), []string{"knitting"})
	assert.ErrorIs(t, err, apperrors.ErrInvalidCategory)

	_, err = f.svc.SetCategories(ctx, email("me"), nil)
	assert.ErrorIs(t, err, apperrors.ErrInvalidRequest)

	u, err := f.store.FindByID(ctx, "me")
	require.NoError(t, err)
	assert.Len(t, u.Categories, 3)
}
