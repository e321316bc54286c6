package relation_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"daydei-social/backend/internal/relation"
	"daydei-social/backend/internal/state"
	apperrors "daydei-social/backend/pkg/errors"
)

func TestFriendLifecycle_RequestAcceptRemove(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, evenDay, relation.OrderDayParity)
	f.addUser("1", "Alice")
	f.addUser("2", "Bob")

	edge, err := f.svc.RequestFriend(ctx, email("1"), "2")
	require.NoError(t, err)
	assert.Equal(t, "1", edge.RequesterID)
	assert.Equal(t, "2", edge.ResponderID)
	assert.False(t, edge.Accepted)

	sent := f.notifier.all()
	require.Len(t, sent, 1)
	assert.Equal(t, "2", sent[0].Target)
	assert.Equal(t, state.NotificationFriendRequest, sent[0].Kind)
	assert.Equal(t, "Alice sent you a friend request.", sent[0].Content)
	assert.Equal(t, "/users/1", sent[0].URL)

	accepted, err := f.svc.AcceptFriend(ctx, email("2"), "1")
	require.NoError(t, err)
	assert.True(t, accepted.Accepted)
	assert.Equal(t, edge.ID, accepted.ID)

	sent = f.notifier.all()
	require.Len(t, sent, 2)
	assert.Equal(t, "1", sent[1].Target)
	assert.Equal(t, state.NotificationFriendAccept, sent[1].Kind)
	assert.Equal(t, "/users/2", sent[1].URL)

	stored, err := f.store.FindFriendEdge(ctx, "1", "2")
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.True(t, stored.Accepted)

	outcome, err := f.svc.RemoveFriend(ctx, email("1"), "2")
	require.NoError(t, err)
	assert.Equal(t, state.OutcomeFriendRemoved, outcome)

	stored, err = f.store.FindFriendEdge(ctx, "1", "2")
	require.NoError(t, err)
	assert.Nil(t, stored)
}

func TestRemoveFriend_PendingOutcomes(t *testing.T) {
	tests := []struct {
		name    string
		remover string
		other   string
		want    state.RemovalOutcome
	}{
		{name: "requester cancels", remover: "1", other: "2", want: state.OutcomeRequestCanceled},
		{name: "responder rejects", remover: "2", other: "1", want: state.OutcomeRequestRejected},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			f := newFixture(t, evenDay, relation.OrderDayParity)
			f.addUser("1", "Alice")
			f.addUser("2", "Bob")

			_, err := f.svc.RequestFriend(ctx, email("1"), "2")
			require.NoError(t, err)

			outcome, err := f.svc.RemoveFriend(ctx, email(tt.remover), tt.other)
			require.NoError(t, err)
			assert.Equal(t, tt.want, outcome)

			edges, err := f.store.ListFriendEdges(ctx, "1", false)
			require.NoError(t, err)
			assert.Empty(t, edges)
		})
	}
}

func TestRequestFriend_AlreadyRelatedBothDirections(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, evenDay, relation.OrderDayParity)
	f.addUser("1", "Alice")
	f.addUser("2", "Bob")

	_, err := f.svc.RequestFriend(ctx, email("1"), "2")
	require.NoError(t, err)

	_, err = f.svc.RequestFriend(ctx, email("1"), "2")
	assert.ErrorIs(t, err, apperrors.ErrAlreadyRelated)
	_, err = f.svc.RequestFriend(ctx, email("2"), "1")
	assert.ErrorIs(t, err, apperrors.ErrAlreadyRelated)

	// still rejected once the request is accepted
	_, err = f.svc.AcceptFriend(ctx, email("2"), "1")
	require.NoError(t, err)
	_, err = f.svc.RequestFriend(ctx, email("2"), "1")
	assert.ErrorIs(t, err, apperrors.ErrAlreadyRelated)

	_, err = f.svc.RemoveFriend(ctx, email("2"), "1")
	require.NoError(t, err)
	_, err = f.svc.RequestFriend(ctx, email("2"), "1")
	assert.NoError(t, err)

	assert.Len(t, f.notifier.all(), 3)
}

func TestAcceptFriend_OnlyResponderMayAccept(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, evenDay, relation.OrderDayParity)
	f.addUser("1", "Alice")
	f.addUser("2", "Bob")

	_, err := f.svc.RequestFriend(ctx, email("1"), "2")
	require.NoError(t, err)

	_, err = f.svc.AcceptFriend(ctx, email("1"), "2")
	assert.ErrorIs(t, err, apperrors.ErrNoAcceptableRequest)

	stored, err := f.store.FindFriendEdge(ctx, "1", "2")
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.False(t, stored.Accepted)
}

func TestAcceptFriend_Rejections(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, evenDay, relation.OrderDayParity)
	f.addUser("1", "Alice")
	f.addUser("2", "Bob")

	_, err := f.svc.AcceptFriend(ctx, email("2"), "1")
	assert.ErrorIs(t, err, apperrors.ErrNoAcceptableRequest, "nothing pending")

	_, err = f.svc.AcceptFriend(ctx, email("2"), "2")
	assert.ErrorIs(t, err, apperrors.ErrInvalidRequest, "self accept")

	_, err = f.svc.RequestFriend(ctx, email("1"), "2")
	require.NoError(t, err)
	_, err = f.svc.AcceptFriend(ctx, email("2"), "1")
	require.NoError(t, err)

	_, err = f.svc.AcceptFriend(ctx, email("2"), "1")
	assert.ErrorIs(t, err, apperrors.ErrNoAcceptableRequest, "already accepted")
	assert.Len(t, f.notifier.all(), 2)
}

func TestRemoveFriend_NoRelationship(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, evenDay, relation.OrderDayParity)
	f.addUser("1", "Alice")
	f.addUser("2", "Bob")

	_, err := f.svc.RemoveFriend(ctx, email("1"), "2")
	assert.ErrorIs(t, err, apperrors.ErrNoRelationship)

	_, err = f.svc.RemoveFriend(ctx, email("1"), "1")
	assert.ErrorIs(t, err, apperrors.ErrNoRelationship)

	_, err = f.svc.RequestFriend(ctx, email("1"), "2")
	require.NoError(t, err)
	_, err = f.svc.RemoveFriend(ctx, email("1"), "2")
	require.NoError(t, err)

	_, err = f.svc.RemoveFriend(ctx, email("1"), "2")
	assert.ErrorIs(t, err, apperrors.ErrNoRelationship, "second removal")
}

func TestFriendOperations_InconsistentPair(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, evenDay, relation.OrderDayParity)
	f.addUser("1", "Alice")
	f.addUser("2", "Bob")
	f.store.PutFriendEdge(state.FriendEdge{ID: "e1", Requester: "1", Responder: "2"})
	f.store.PutFriendEdge(state.FriendEdge{ID: "e2", Requester: "2", Responder: "1"})

	_, err := f.svc.RemoveFriend(ctx, email("1"), "2")
	assert.ErrorIs(t, err, apperrors.ErrInconsistentState)
	_, err = f.svc.RemoveFriend(ctx, email("2"), "1")
	assert.ErrorIs(t, err, apperrors.ErrInconsistentState)
	_, err = f.svc.AcceptFriend(ctx, email("2"), "1")
	assert.ErrorIs(t, err, apperrors.ErrInconsistentState)
	_, err = f.svc.AcceptFriend(ctx, email("1"), "2")
	assert.ErrorIs(t, err, apperrors.ErrInconsistentState)
	_, err = f.svc.RequestFriend(ctx, email("1"), "2")
	assert.ErrorIs(t, err, apperrors.ErrInconsistentState)

	// nothing was resolved silently
	edges, err := f.store.ListFriendEdges(ctx, "1", false)
	require.NoError(t, err)
	assert.Len(t, edges, 2)
	assert.Empty(t, f.notifier.all())

	pairs, err := f.svc.Audit(ctx)
	require.NoError(t, err)
	assert.Equal(t, []state.InconsistentPair{{UserA: "1", UserB: "2"}}, pairs)
}

func TestFriendOperations_IdentityFailures(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, evenDay, relation.OrderDayParity)
	f.addUser("1", "Alice")

	_, err := f.svc.RequestFriend(ctx, "stranger@test.dev", "1")
	assert.ErrorIs(t, err, apperrors.ErrUnauthenticated)
	_, err = f.svc.RequestFriend(ctx, "", "1")
	assert.ErrorIs(t, err, apperrors.ErrUnauthenticated)

	_, err = f.svc.RequestFriend(ctx, email("1"), "404")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	_, err = f.svc.AcceptFriend(ctx, email("1"), "404")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	_, err = f.svc.RemoveFriend(ctx, email("1"), "404")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	_, err = f.svc.RequestFriend(ctx, email("1"), "1")
	assert.ErrorIs(t, err, apperrors.ErrInvalidRequest)
}

func TestRequestFriend_ConcurrentOppositeRequests(t *testing.T) {
	ctx := context.Background()

	for round := 0; round < 20; round++ {
		f := newFixture(t, evenDay, relation.OrderDayParity)
		f.addUser("1", "Alice")
		f.addUser("2", "Bob")

		var wg sync.WaitGroup
		errs := make([]error, 2)
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, errs[0] = f.svc.RequestFriend(ctx, email("1"), "2")
		}()
		go func() {
			defer wg.Done()
			_, errs[1] = f.svc.RequestFriend(ctx, email("2"), "1")
		}()
		wg.Wait()

		succeeded := 0
		for _, err := range errs {
			if err == nil {
				succeeded++
				continue
			}
			assert.ErrorIs(t, err, apperrors.ErrAlreadyRelated)
		}
		assert.Equal(t, 1, succeeded)

		pairs, err := f.svc.Audit(ctx)
		require.NoError(t, err)
		assert.Empty(t, pairs)
	}
}

func TestFriends_ListsConfirmedOnly(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, evenDay, relation.OrderDayParity)
	f.addUser("1", "Alice")
	f.addUser("2", "Bob")
	f.addUser("3", "Carol")
	f.addUser("4", "Dave")

	_, err := f.svc.RequestFriend(ctx, email("1"), "2")
	require.NoError(t, err)
	_, err = f.svc.AcceptFriend(ctx, email("2"), "1")
	require.NoError(t, err)
	_, err = f.svc.RequestFriend(ctx, email("3"), "1")
	require.NoError(t, err)
	_, err = f.svc.AcceptFriend(ctx, email("1"), "3")
	require.NoError(t, err)
	_, err = f.svc.RequestFriend(ctx, email("1"), "4")
	require.NoError(t, err)

	friends, err := f.svc.Friends(ctx, email("1"))
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"2", "3"}, viewIDs(friends))
	for _, v := range friends {
		assert.True(t, v.Related)
	}
}

func TestFriendOperations_RejectionsNotifyNobody(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, evenDay, relation.OrderDayParity)
	f.addUser("1", "Alice")
	f.addUser("2", "Bob")
	f.addUser("3", "Carol")
	f.addUser("4", "Dave")

	_, err := f.svc.RequestFriend(ctx, email("1"), "2")
	require.NoError(t, err)
	baseline := len(f.notifier.all())

	_, err = f.svc.RequestFriend(ctx, email("1"), "2")
	require.ErrorIs(t, err, apperrors.ErrAlreadyRelated)
	assert.Len(t, f.notifier.all(), baseline, "already related")

	_, err = f.svc.RequestFriend(ctx, email("2"), "1")
	require.ErrorIs(t, err, apperrors.ErrAlreadyRelated)
	assert.Len(t, f.notifier.all(), baseline, "reverse request")

	_, err = f.svc.AcceptFriend(ctx, email("1"), "2")
	require.ErrorIs(t, err, apperrors.ErrNoAcceptableRequest)
	assert.Len(t, f.notifier.all(), baseline, "requester accepting")

	_, err = f.svc.AcceptFriend(ctx, email("3"), "1")
	require.ErrorIs(t, err, apperrors.ErrNoAcceptableRequest)
	assert.Len(t, f.notifier.all(), baseline, "nothing pending")

	f.store.PutFriendEdge(state.FriendEdge{ID: "e1", Requester: "3", Responder: "4"})
	f.store.PutFriendEdge(state.FriendEdge{ID: "e2", Requester: "4", Responder: "3"})

	_, err = f.svc.RequestFriend(ctx, email("3"), "4")
	require.ErrorIs(t, err, apperrors.ErrInconsistentState)
	_, err = f.svc.AcceptFriend(ctx, email("4"), "3")
	require.ErrorIs(t, err, apperrors.ErrInconsistentState)
	_, err = f.svc.RemoveFriend(ctx, email("3"), "4")
	require.ErrorIs(t, err, apperrors.ErrInconsistentState)
	assert.Len(t, f.notifier.all(), baseline, "inconsistent pair")
}
