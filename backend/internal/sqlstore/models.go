package sqlstore

import (
	"time"

	"daydei-social/backend/internal/state"
)

type UserModel struct {
	ID           string `gorm:"primaryKey"`
	Email        string `gorm:"not null;uniqueIndex"`
	Nickname     string `gorm:"not null"`
	ProfileImage string `gorm:"not null;default:''"`
	Introduction string `gorm:"not null;default:''"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (UserModel) TableName() string { return "users" }

type UserCategoryModel struct {
	UserID   string `gorm:"primaryKey"`
	Category string `gorm:"primaryKey"`
	Position int    `gorm:"not null"`
}

func (UserCategoryModel) TableName() string { return "user_categories" }

type FriendEdgeModel struct {
	ID          string `gorm:"primaryKey"`
	RequesterID string `gorm:"not null;index:idx_friend_pair,unique"`
	ResponderID string `gorm:"not null;index:idx_friend_pair,unique"`
	Accepted    bool   `gorm:"not null;default:false"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (FriendEdgeModel) TableName() string { return "friend_edges" }

type SubscriptionModel struct {
	SubscriberID string `gorm:"primaryKey"`
	TargetID     string `gorm:"primaryKey"`
	CreatedAt    time.Time
}

func (SubscriptionModel) TableName() string { return "subscriptions" }

type PairLockModel struct {
	PairKey string `gorm:"primaryKey"`
	Version int    `gorm:"not null;default:0"`
}

func (PairLockModel) TableName() string { return "friend_pair_locks" }

func (m UserModel) toDomain(categories []state.Category) state.User {
	if categories == nil {
		categories = []state.Category{}
	}
	return state.User{
		ID:           m.ID,
		Email:        m.Email,
		Nickname:     m.Nickname,
		ProfileImage: m.ProfileImage,
		Introduction: m.Introduction,
		Categories:   categories,
	}
}

func (m FriendEdgeModel) toDomain() *state.FriendEdge {
	return &state.FriendEdge{
		ID:        m.ID,
		Requester: m.RequesterID,
		Responder: m.ResponderID,
		Accepted:  m.Accepted,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}

func edgeModel(e *state.FriendEdge) FriendEdgeModel {
	return FriendEdgeModel{
		ID:          e.ID,
		RequesterID: e.Requester,
		ResponderID: e.Responder,
		Accepted:    e.Accepted,
		CreatedAt:   e.CreatedAt,
		UpdatedAt:   e.UpdatedAt,
	}
}
