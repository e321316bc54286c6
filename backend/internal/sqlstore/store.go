package sqlstore

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"daydei-social/backend/internal/relation"
	"daydei-social/backend/internal/state"
	apperrors "daydei-social/backend/pkg/errors"
	"daydei-social/backend/pkg/logger"
)

// Store is a relation.Store over a gorm connection. Friend edge mutations are
// serialized per pair through a row in friend_pair_locks that every pair
// transaction upserts and updates before touching edges.
type Store struct {
	db     *gorm.DB
	logger *zap.Logger
}

var _ relation.Store = (*Store)(nil)

func New(db *gorm.DB) *Store {
	return &Store{
		db:     db,
		logger: logger.Named("sqlstore"),
	}
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// UpsertUser writes u and replaces its categories.
func (s *Store) UpsertUser(ctx context.Context, u state.User) error {
	now := time.Now()
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		m := UserModel{
			ID:           u.ID,
			Email:        u.Email,
			Nickname:     u.Nickname,
			ProfileImage: u.ProfileImage,
			Introduction: u.Introduction,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"email", "nickname", "profile_image", "introduction", "updated_at"}),
		}).Create(&m).Error; err != nil {
			return err
		}
		if err := tx.Where("user_id = ?", u.ID).Delete(&UserCategoryModel{}).Error; err != nil {
			return err
		}
		for i, c := range u.Categories {
			if err := tx.Create(&UserCategoryModel{UserID: u.ID, Category: string(c), Position: i}).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return apperrors.NewStoreQueryFailed("upsert_user", err)
	}
	return nil
}

// User Directory

func (s *Store) FindByID(ctx context.Context, id string) (*state.User, error) {
	return s.findUser(ctx, "find_user", "id = ?", id)
}

func (s *Store) FindByIdentity(ctx context.Context, key string) (*state.User, error) {
	return s.findUser(ctx, "find_user_by_identity", "LOWER(email) = ?", strings.ToLower(key))
}

func (s *Store) findUser(ctx context.Context, op, where, arg string) (*state.User, error) {
	var m UserModel
	if err := s.db.WithContext(ctx).Where(where, arg).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NewUserNotFound(arg)
		}
		return nil, apperrors.NewStoreQueryFailed(op, err)
	}
	users, err := s.withCategories(ctx, []UserModel{m})
	if err != nil {
		return nil, apperrors.NewStoreQueryFailed(op, err)
	}
	return &users[0], nil
}

func (s *Store) Search(ctx context.Context, pattern, excludingID string) ([]state.User, error) {
	q := s.db.WithContext(ctx).Model(&UserModel{}).Where("id <> ?", excludingID)
	if needle := strings.ToLower(strings.TrimSpace(pattern)); needle != "" {
		like := "%" + needle + "%"
		q = q.Where("(LOWER(email) LIKE ? OR LOWER(nickname) LIKE ?)", like, like)
	}
	rows := make([]UserModel, 0)
	if err := q.Order("id").Find(&rows).Error; err != nil {
		return nil, apperrors.NewStoreQueryFailed("search_users", err)
	}
	users, err := s.withCategories(ctx, rows)
	if err != nil {
		return nil, apperrors.NewStoreQueryFailed("search_users", err)
	}
	return users, nil
}

func (s *Store) ListUsers(ctx context.Context) ([]state.User, error) {
	rows := make([]UserModel, 0)
	if err := s.db.WithContext(ctx).Order("id").Find(&rows).Error; err != nil {
		return nil, apperrors.NewStoreQueryFailed("list_users", err)
	}
	users, err := s.withCategories(ctx, rows)
	if err != nil {
		return nil, apperrors.NewStoreQueryFailed("list_users", err)
	}
	return users, nil
}

func (s *Store) AddCategories(ctx context.Context, userID string, categories []state.Category) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&UserModel{}).Where("id = ?", userID).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return apperrors.NewUserNotFound(userID)
		}
		var next int64
		if err := tx.Model(&UserCategoryModel{}).Where("user_id = ?", userID).Count(&next).Error; err != nil {
			return err
		}
		for _, c := range categories {
			res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&UserCategoryModel{
				UserID:   userID,
				Category: string(c),
				Position: int(next),
			})
			if res.Error != nil {
				return res.Error
			}
			next += res.RowsAffected
		}
		return nil
	})
	if err != nil && apperrors.KindOf(err) == "" {
		return apperrors.NewStoreQueryFailed("add_categories", err)
	}
	return err
}

// withCategories attaches categories to rows, keeping row order.
func (s *Store) withCategories(ctx context.Context, rows []UserModel) ([]state.User, error) {
	out := make([]state.User, 0, len(rows))
	if len(rows) == 0 {
		return out, nil
	}
	ids := make([]string, 0, len(rows))
	for _, m := range rows {
		ids = append(ids, m.ID)
	}

	cats := make([]UserCategoryModel, 0)
	if err := s.db.WithContext(ctx).Where("user_id IN ?", ids).Order("user_id, position").Find(&cats).Error; err != nil {
		return nil, err
	}
	byUser := make(map[string][]state.Category, len(rows))
	for _, c := range cats {
		byUser[c.UserID] = append(byUser[c.UserID], state.Category(c.Category))
	}

	for _, m := range rows {
		out = append(out, m.toDomain(byUser[m.ID]))
	}
	return out, nil
}

// Edge Store

func (s *Store) InPairTx(ctx context.Context, a, b string, fn func(tx relation.PairTx) error) error {
	key := state.PairKey(a, b)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockPair(tx, key); err != nil {
			return apperrors.NewStoreQueryFailed("lock_pair", err)
		}
		return fn(&pairTx{db: tx})
	})
	if err != nil && apperrors.KindOf(err) == "" && !apperrors.IsErrorType(err, apperrors.ErrorTypeStore) {
		s.logger.Warn("Pair transaction failed", zap.String("pair", key), zap.Error(err))
		return apperrors.NewStoreQueryFailed("pair_tx", err)
	}
	return err
}

// lockPair takes the row lock for key until the transaction ends.
func lockPair(tx *gorm.DB, key string) error {
	if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&PairLockModel{PairKey: key}).Error; err != nil {
		return err
	}
	return tx.Model(&PairLockModel{}).
		Where("pair_key = ?", key).
		Update("version", gorm.Expr("version + 1")).Error
}

func (s *Store) FindFriendEdge(ctx context.Context, requester, responder string) (*state.FriendEdge, error) {
	e, err := findEdge(s.db.WithContext(ctx), requester, responder)
	if err != nil {
		return nil, apperrors.NewStoreQueryFailed("find_friend_edge", err)
	}
	return e, nil
}

func findEdge(db *gorm.DB, requester, responder string) (*state.FriendEdge, error) {
	rows := make([]FriendEdgeModel, 0, 1)
	if err := db.Where("requester_id = ? AND responder_id = ?", requester, responder).Limit(1).Find(&rows).Error; err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0].toDomain(), nil
}

func (s *Store) ListFriendEdges(ctx context.Context, userID string, acceptedOnly bool) ([]state.FriendEdge, error) {
	q := s.db.WithContext(ctx).Where("(requester_id = ? OR responder_id = ?)", userID, userID)
	if acceptedOnly {
		q = q.Where("accepted = ?", true)
	}
	rows := make([]FriendEdgeModel, 0)
	if err := q.Order("created_at").Find(&rows).Error; err != nil {
		return nil, apperrors.NewStoreQueryFailed("list_friend_edges", err)
	}
	out := make([]state.FriendEdge, 0, len(rows))
	for _, m := range rows {
		out = append(out, *m.toDomain())
	}
	return out, nil
}

func (s *Store) CountFriends(ctx context.Context, userID string) (int, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&FriendEdgeModel{}).
		Where("(requester_id = ? OR responder_id = ?) AND accepted = ?", userID, userID, true).
		Count(&n).Error
	if err != nil {
		return 0, apperrors.NewStoreQueryFailed("count_friends", err)
	}
	return int(n), nil
}

func (s *Store) ListInconsistentPairs(ctx context.Context) ([]state.InconsistentPair, error) {
	type pairRow struct {
		RequesterID string
		ResponderID string
	}
	rows := make([]pairRow, 0)
	err := s.db.WithContext(ctx).Raw(`
		SELECT a.requester_id, a.responder_id
		FROM friend_edges a
		JOIN friend_edges b ON a.requester_id = b.responder_id AND a.responder_id = b.requester_id
		WHERE a.requester_id < a.responder_id
		ORDER BY a.requester_id, a.responder_id`).Scan(&rows).Error
	if err != nil {
		return nil, apperrors.NewStoreQueryFailed("list_inconsistent_pairs", err)
	}
	out := make([]state.InconsistentPair, 0, len(rows))
	for _, r := range rows {
		out = append(out, state.InconsistentPair{UserA: r.RequesterID, UserB: r.ResponderID})
	}
	return out, nil
}

// Subscription Store

func (s *Store) SubscribersOf(ctx context.Context, userID string) ([]state.User, error) {
	return s.subscriptionUsers(ctx, "subscribers_of",
		"JOIN subscriptions ON subscriptions.subscriber_id = users.id", "subscriptions.target_id = ?", userID)
}

func (s *Store) SubscriptionsOf(ctx context.Context, userID string) ([]state.User, error) {
	return s.subscriptionUsers(ctx, "subscriptions_of",
		"JOIN subscriptions ON subscriptions.target_id = users.id", "subscriptions.subscriber_id = ?", userID)
}

func (s *Store) subscriptionUsers(ctx context.Context, op, join, where, userID string) ([]state.User, error) {
	rows := make([]UserModel, 0)
	err := s.db.WithContext(ctx).Model(&UserModel{}).
		Joins(join).
		Where(where, userID).
		Order("users.id").
		Find(&rows).Error
	if err != nil {
		return nil, apperrors.NewStoreQueryFailed(op, err)
	}
	users, err := s.withCategories(ctx, rows)
	if err != nil {
		return nil, apperrors.NewStoreQueryFailed(op, err)
	}
	return users, nil
}

func (s *Store) IsSubscribed(ctx context.Context, subscriber, target string) (bool, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&SubscriptionModel{}).
		Where("subscriber_id = ? AND target_id = ?", subscriber, target).
		Count(&n).Error
	if err != nil {
		return false, apperrors.NewStoreQueryFailed("is_subscribed", err)
	}
	return n > 0, nil
}

func (s *Store) CountSubscribers(ctx context.Context, userID string) (int, error) {
	return s.countSubscriptions(ctx, "count_subscribers", "target_id = ?", userID)
}

func (s *Store) CountSubscriptions(ctx context.Context, userID string) (int, error) {
	return s.countSubscriptions(ctx, "count_subscriptions", "subscriber_id = ?", userID)
}

func (s *Store) countSubscriptions(ctx context.Context, op, where, userID string) (int, error) {
	var n int64
	if err := s.db.WithContext(ctx).Model(&SubscriptionModel{}).Where(where, userID).Count(&n).Error; err != nil {
		return 0, apperrors.NewStoreQueryFailed(op, err)
	}
	return int(n), nil
}

func (s *Store) Subscribe(ctx context.Context, subscriber, target string) (bool, error) {
	res := s.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&SubscriptionModel{
		SubscriberID: subscriber,
		TargetID:     target,
		CreatedAt:    time.Now(),
	})
	if res.Error != nil {
		return false, apperrors.NewStoreQueryFailed("subscribe", res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (s *Store) Unsubscribe(ctx context.Context, subscriber, target string) (bool, error) {
	res := s.db.WithContext(ctx).
		Where("subscriber_id = ? AND target_id = ?", subscriber, target).
		Delete(&SubscriptionModel{})
	if res.Error != nil {
		return false, apperrors.NewStoreQueryFailed("unsubscribe", res.Error)
	}
	return res.RowsAffected > 0, nil
}

type pairTx struct {
	db *gorm.DB
}

func (t *pairTx) FindEdge(_ context.Context, requester, responder string) (*state.FriendEdge, error) {
	e, err := findEdge(t.db, requester, responder)
	if err != nil {
		return nil, apperrors.NewStoreQueryFailed("find_friend_edge", err)
	}
	return e, nil
}

func (t *pairTx) CreateEdge(_ context.Context, edge *state.FriendEdge) error {
	if err := edge.Validate(); err != nil {
		return err
	}
	m := edgeModel(edge)
	if err := t.db.Create(&m).Error; err != nil {
		return apperrors.NewStoreQueryFailed("create_friend_edge", err)
	}
	return nil
}

func (t *pairTx) AcceptEdge(_ context.Context, requester, responder string, at time.Time) (*state.FriendEdge, error) {
	res := t.db.Model(&FriendEdgeModel{}).
		Where("requester_id = ? AND responder_id = ?", requester, responder).
		Updates(map[string]interface{}{"accepted": true, "updated_at": at})
	if res.Error != nil {
		return nil, apperrors.NewStoreQueryFailed("accept_friend_edge", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, apperrors.NewNoAcceptableRequest(requester, responder)
	}
	e, err := findEdge(t.db, requester, responder)
	if err != nil {
		return nil, apperrors.NewStoreQueryFailed("accept_friend_edge", err)
	}
	return e, nil
}

func (t *pairTx) DeleteEdge(_ context.Context, requester, responder string) error {
	res := t.db.Where("requester_id = ? AND responder_id = ?", requester, responder).Delete(&FriendEdgeModel{})
	if res.Error != nil {
		return apperrors.NewStoreQueryFailed("delete_friend_edge", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperrors.NewNoRelationship(requester, responder)
	}
	return nil
}
