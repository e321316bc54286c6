package relation

import (
	"context"

	"go.uber.org/zap"

	"daydei-social/backend/internal/metrics"
	"daydei-social/backend/internal/state"
	apperrors "daydei-social/backend/pkg/errors"
)

// findBoth returns the edges a -> b and b -> a.
func findBoth(ctx context.Context, tx PairTx, a, b string) (*state.FriendEdge, *state.FriendEdge, error) {
	ab, err := tx.FindEdge(ctx, a, b)
	if err != nil {
		return nil, nil, err
	}
	ba, err := tx.FindEdge(ctx, b, a)
	if err != nil {
		return nil, nil, err
	}
	return ab, ba, nil
}

// RequestFriend creates a pending edge from the caller to targetID and
// notifies the target.
func (s *Service) RequestFriend(ctx context.Context, callerKey, targetID string) (state.FriendEdgeView, error) {
	caller, err := s.resolveCaller(ctx, callerKey)
	if err != nil {
		return state.FriendEdgeView{}, s.fail("request_friend", err)
	}
	target, err := s.resolveUser(ctx, targetID)
	if err != nil {
		return state.FriendEdgeView{}, s.fail("request_friend", err)
	}
	if caller.Same(target) {
		return state.FriendEdgeView{}, s.fail("request_friend", apperrors.NewInvalidRequest("cannot send a friend request to yourself"))
	}

	var created *state.FriendEdge
	err = s.edges.InPairTx(ctx, caller.ID, target.ID, func(tx PairTx) error {
		out, in, err := findBoth(ctx, tx, caller.ID, target.ID)
		if err != nil {
			return err
		}
		if out != nil && in != nil {
			return apperrors.NewInconsistentState(caller.ID, target.ID)
		}
		if out != nil || in != nil {
			return apperrors.NewAlreadyRelated(caller.ID, target.ID)
		}
		now := s.now()
		edge := &state.FriendEdge{
			ID:        s.newID(),
			Requester: caller.ID,
			Responder: target.ID,
			Accepted:  false,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := tx.CreateEdge(ctx, edge); err != nil {
			return err
		}
		created = edge
		return nil
	})
	if err != nil {
		return state.FriendEdgeView{}, s.fail("request_friend", err)
	}

	s.metrics.Transition(metrics.TransitionRequested)
	s.logger.Info("Friend requested",
		zap.String("requester_id", caller.ID),
		zap.String("responder_id", target.ID),
	)
	s.notify(ctx, target.ID, state.NotificationFriendRequest, caller)
	return state.NewFriendEdgeView(created), nil
}

// AcceptFriend accepts the pending request requesterID -> caller. Only the
// responder can accept; the requester calling this gets NoAcceptableRequest.
func (s *Service) AcceptFriend(ctx context.Context, callerKey, requesterID string) (state.FriendEdgeView, error) {
	caller, err := s.resolveCaller(ctx, callerKey)
	if err != nil {
		return state.FriendEdgeView{}, s.fail("accept_friend", err)
	}
	requester, err := s.resolveUser(ctx, requesterID)
	if err != nil {
		return state.FriendEdgeView{}, s.fail("accept_friend", err)
	}
	if caller.Same(requester) {
		return state.FriendEdgeView{}, s.fail("accept_friend", apperrors.NewInvalidRequest("cannot accept your own friend request"))
	}

	var accepted *state.FriendEdge
	err = s.edges.InPairTx(ctx, requester.ID, caller.ID, func(tx PairTx) error {
		edge, reverse, err := findBoth(ctx, tx, requester.ID, caller.ID)
		if err != nil {
			return err
		}
		if edge != nil && reverse != nil {
			return apperrors.NewInconsistentState(caller.ID, requester.ID)
		}
		if edge == nil || edge.Accepted {
			return apperrors.NewNoAcceptableRequest(requester.ID, caller.ID)
		}
		accepted, err = tx.AcceptEdge(ctx, requester.ID, caller.ID, s.now())
		return err
	})
	if err != nil {
		return state.FriendEdgeView{}, s.fail("accept_friend", err)
	}

	s.metrics.Transition(metrics.TransitionAccepted)
	s.logger.Info("Friend request accepted",
		zap.String("requester_id", requester.ID),
		zap.String("responder_id", caller.ID),
	)
	s.notify(ctx, requester.ID, state.NotificationFriendAccept, caller)
	return state.NewFriendEdgeView(accepted), nil
}

// RemoveFriend deletes the single edge between the caller and otherID. The
// outcome depends on the edge's accepted flag and on which side the caller is.
func (s *Service) RemoveFriend(ctx context.Context, callerKey, otherID string) (state.RemovalOutcome, error) {
	caller, err := s.resolveCaller(ctx, callerKey)
	if err != nil {
		return "", s.fail("remove_friend", err)
	}
	other, err := s.resolveUser(ctx, otherID)
	if err != nil {
		return "", s.fail("remove_friend", err)
	}
	if caller.Same(other) {
		return "", s.fail("remove_friend", apperrors.NewNoRelationship(caller.ID, other.ID))
	}

	var outcome state.RemovalOutcome
	err = s.edges.InPairTx(ctx, caller.ID, other.ID, func(tx PairTx) error {
		out, in, err := findBoth(ctx, tx, caller.ID, other.ID)
		if err != nil {
			return err
		}
		switch {
		case out != nil && in != nil:
			return apperrors.NewInconsistentState(caller.ID, other.ID)
		case out != nil:
			if err := tx.DeleteEdge(ctx, caller.ID, other.ID); err != nil {
				return err
			}
			outcome = state.OutcomeRequestCanceled
			if out.Accepted {
				outcome = state.OutcomeFriendRemoved
			}
		case in != nil:
			if err := tx.DeleteEdge(ctx, other.ID, caller.ID); err != nil {
				return err
			}
			outcome = state.OutcomeRequestRejected
			if in.Accepted {
				outcome = state.OutcomeFriendRemoved
			}
		default:
			return apperrors.NewNoRelationship(caller.ID, other.ID)
		}
		return nil
	})
	if err != nil {
		return "", s.fail("remove_friend", err)
	}

	switch outcome {
	case state.OutcomeFriendRemoved:
		s.metrics.Transition(metrics.TransitionRemoved)
	case state.OutcomeRequestCanceled:
		s.metrics.Transition(metrics.TransitionCanceled)
	case state.OutcomeRequestRejected:
		s.metrics.Transition(metrics.TransitionRejected)
	}
	s.logger.Info("Friend edge removed",
		zap.String("user_id", caller.ID),
		zap.String("other_id", other.ID),
		zap.String("outcome", string(outcome)),
	)
	return outcome, nil
}

// Friends lists the caller's confirmed friends.
func (s *Service) Friends(ctx context.Context, callerKey string) ([]state.UserView, error) {
	caller, err := s.resolveCaller(ctx, callerKey)
	if err != nil {
		return nil, s.fail("friends", err)
	}
	friends, err := s.confirmedFriends(ctx, caller.ID)
	if err != nil {
		return nil, s.fail("friends", err)
	}
	return friends, nil
}

// confirmedFriends resolves the other party of every accepted edge touching
// userID. The user itself is never returned.
func (s *Service) confirmedFriends(ctx context.Context, userID string) ([]state.UserView, error) {
	edges, err := s.edges.ListFriendEdges(ctx, userID, true)
	if err != nil {
		return nil, err
	}
	views := make([]state.UserView, 0, len(edges))
	seen := make(map[string]bool, len(edges))
	for _, e := range edges {
		if !e.Involves(userID) {
			continue
		}
		otherID := e.Other(userID)
		if otherID == userID || seen[otherID] {
			continue
		}
		seen[otherID] = true
		u, err := s.users.FindByID(ctx, otherID)
		if err != nil {
			if apperrors.KindOf(err) == apperrors.KindNotFound {
				s.logger.Warn("Friend edge points at a missing user",
					zap.String("user_id", userID),
					zap.String("other_id", otherID),
				)
				continue
			}
			return nil, err
		}
		views = append(views, state.NewUserView(u, true))
	}
	return views, nil
}
