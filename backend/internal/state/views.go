package state

import "time"

// FriendEdgeView is the response shape for request/accept.
type FriendEdgeView struct {
	ID          string    `json:"id"`
	RequesterID string    `json:"requester_id"`
	ResponderID string    `json:"responder_id"`
	Accepted    bool      `json:"friend_check"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func NewFriendEdgeView(e *FriendEdge) FriendEdgeView {
	return FriendEdgeView{
		ID:          e.ID,
		RequesterID: e.Requester,
		ResponderID: e.Responder,
		Accepted:    e.Accepted,
		UpdatedAt:   e.UpdatedAt,
	}
}

// UserView is a user as listed in relation views.
type UserView struct {
	ID           string     `json:"id"`
	Email        string     `json:"email"`
	Nickname     string     `json:"nickname"`
	ProfileImage string     `json:"profile_image,omitempty"`
	Introduction string     `json:"introduction,omitempty"`
	Categories   []Category `json:"categories"`
	Related      bool       `json:"related"`
}

func NewUserView(u *User, related bool) UserView {
	return UserView{
		ID:           u.ID,
		Email:        u.Email,
		Nickname:     u.Nickname,
		ProfileImage: u.ProfileImage,
		Introduction: u.Introduction,
		Categories:   u.Categories,
		Related:      related,
	}
}

// RelationsView holds the caller's friends and subscriptions.
type RelationsView struct {
	Friends       []UserView `json:"friends"`
	Subscriptions []UserView `json:"subscriptions"`
}

// Candidate is a recommendation built fresh for each request.
type Candidate struct {
	User             User             `json:"user"`
	IsFriend         bool             `json:"friend_check"`
	IsSubscribed     bool             `json:"user_subscribe_check"`
	PendingDirection PendingDirection `json:"pending_direction"`
	FriendCount      int              `json:"friend_count"`
	SubscriberCount  int              `json:"subscriber_count"`
	SubscribingCount int              `json:"subscribing_count"`
}

// RemovalOutcome says what deleting a friend edge meant to the caller.
type RemovalOutcome string

const (
	OutcomeFriendRemoved   RemovalOutcome = "friend removed"
	OutcomeRequestCanceled RemovalOutcome = "request canceled"
	OutcomeRequestRejected RemovalOutcome = "request rejected"
)

// InconsistentPair reports a pair with friend edges in both directions.
type InconsistentPair struct {
	UserA string `json:"user_a"`
	UserB string `json:"user_b"`
}
