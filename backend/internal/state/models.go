package state

import (
	"fmt"
	"strings"
	"time"

	apperrors "daydei-social/backend/pkg/errors"
)

// Category is an interest tag a user can register.
type Category string

const (
	CategorySports  Category = "SPORTS"
	CategoryTravel  Category = "TRAVEL"
	CategoryStudy   Category = "STUDY"
	CategoryGame    Category = "GAME"
	CategoryEconomy Category = "ECONOMY"
	CategoryMusic   Category = "MUSIC"
	CategoryCulture Category = "CULTURE"
	CategoryHobby   Category = "HOBBY"
)

// AllCategories lists every known category in declaration order.
var AllCategories = []Category{
	CategorySports, CategoryTravel, CategoryStudy, CategoryGame,
	CategoryEconomy, CategoryMusic, CategoryCulture, CategoryHobby,
}

// ParseCategory parses a category token case-insensitively.
func ParseCategory(token string) (Category, error) {
	c := Category(strings.ToUpper(strings.TrimSpace(token)))
	for _, known := range AllCategories {
		if c == known {
			return c, nil
		}
	}
	return "", apperrors.NewInvalidCategory(token)
}

// ParseCategories parses every token, failing on the first unknown one.
func ParseCategories(tokens []string) ([]Category, error) {
	out := make([]Category, 0, len(tokens))
	for _, t := range tokens {
		c, err := ParseCategory(t)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

// User is the slice of an account this service needs. Identity is by ID only.
type User struct {
	ID           string     `json:"id"`
	Email        string     `json:"email"`
	Nickname     string     `json:"nickname"`
	ProfileImage string     `json:"profile_image,omitempty"`
	Introduction string     `json:"introduction,omitempty"`
	Categories   []Category `json:"categories"`
}

// HasCategory reports whether the user registered c.
func (u *User) HasCategory(c Category) bool {
	for _, have := range u.Categories {
		if have == c {
			return true
		}
	}
	return false
}

// Same compares identities, never addresses.
func (u *User) Same(other *User) bool {
	return u != nil && other != nil && u.ID == other.ID
}

// FriendEdge is a directed friend request. Accepted edges are friendships.
type FriendEdge struct {
	ID        string    `json:"id"`
	Requester string    `json:"requester_id"`
	Responder string    `json:"responder_id"`
	Accepted  bool      `json:"accepted"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Other returns the party of the edge that is not userID.
func (e *FriendEdge) Other(userID string) string {
	if e.Requester == userID {
		return e.Responder
	}
	return e.Requester
}

// Involves reports whether userID is one of the two parties.
func (e *FriendEdge) Involves(userID string) bool {
	return e.Requester == userID || e.Responder == userID
}

// Validate checks if the FriendEdge is valid
func (e *FriendEdge) Validate() error {
	if e.Requester == "" || e.Responder == "" {
		return ErrInvalidEdge{Reason: "both parties are required"}
	}
	if e.Requester == e.Responder {
		return ErrInvalidEdge{Reason: "an edge cannot point to its own requester"}
	}
	return nil
}

// PairKey returns the order-independent key of the pair {a, b}.
func PairKey(a, b string) string {
	if a > b {
		a, b = b, a
	}
	return a + "|" + b
}

// SubscriptionEdge is a one-way follow.
type SubscriptionEdge struct {
	Subscriber   string    `json:"subscriber_id"`
	SubscribedTo string    `json:"subscribed_to_id"`
	CreatedAt    time.Time `json:"created_at"`
}

// PendingDirection tells which side sent an unanswered friend request.
type PendingDirection string

const (
	PendingNone     PendingDirection = "none"
	PendingIncoming PendingDirection = "incoming"
	PendingOutgoing PendingDirection = "outgoing"
)

// NotificationKind names the event a notification reports.
type NotificationKind string

const (
	NotificationFriendRequest NotificationKind = "FRIEND_REQUEST"
	NotificationFriendAccept  NotificationKind = "FRIEND_ACCEPT"
)

// Content renders the message shown to the target.
func (k NotificationKind) Content(actorNickname string) string {
	switch k {
	case NotificationFriendRequest:
		return fmt.Sprintf("%s sent you a friend request.", actorNickname)
	case NotificationFriendAccept:
		return fmt.Sprintf("%s accepted your friend request.", actorNickname)
	}
	return actorNickname
}

// URL renders the deep link to the actor.
func (k NotificationKind) URL(actorID string) string {
	return "/users/" + actorID
}

// Notification is emitted after a friend state transition commits.
type Notification struct {
	ID        string           `json:"id"`
	Target    string           `json:"target_id"`
	Kind      NotificationKind `json:"kind"`
	Content   string           `json:"content"`
	URL       string           `json:"url"`
	CreatedAt time.Time        `json:"created_at"`
}

// Errors

type ErrInvalidEdge struct {
	Reason string
}

func (e ErrInvalidEdge) Error() string {
	return fmt.Sprintf("invalid friend edge: %s", e.Reason)
}
