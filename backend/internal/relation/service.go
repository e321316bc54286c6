package relation

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"daydei-social/backend/internal/metrics"
	"daydei-social/backend/internal/state"
	apperrors "daydei-social/backend/pkg/errors"
	"daydei-social/backend/pkg/logger"
)

// Config tunes the read paths.
type Config struct {
	Rotation             Rotation
	RecommendConcurrency int
	RandomListSize       int
}

// Service is the relationship core: friend lifecycle, relation views,
// recommendations and subscription reads over a single Store.
type Service struct {
	users    UserDirectory
	edges    EdgeStore
	subs     *SubscriptionAccessor
	notifier Notifier
	metrics  *metrics.Metrics
	logger   *zap.Logger

	rotation    Rotation
	concurrency int
	randomSize  int

	now   func() time.Time
	newID func() string
}

// NewService wires the core. notifier and m may be nil.
func NewService(store Store, notifier Notifier, cfg Config, m *metrics.Metrics) *Service {
	if cfg.RecommendConcurrency < 1 {
		cfg.RecommendConcurrency = 1
	}
	if cfg.Rotation.Policy == "" {
		cfg.Rotation.Policy = OrderDayParity
	}
	return &Service{
		users:       store,
		edges:       store,
		subs:        NewSubscriptionAccessor(store),
		notifier:    notifier,
		metrics:     m,
		logger:      logger.Named("relation"),
		rotation:    cfg.Rotation,
		concurrency: cfg.RecommendConcurrency,
		randomSize:  cfg.RandomListSize,
		now:         time.Now,
		newID:       func() string { return uuid.New().String() },
	}
}

// Subscriptions exposes the read-only subscription accessor.
func (s *Service) Subscriptions() *SubscriptionAccessor {
	return s.subs
}

// resolveCaller maps the caller's identity key to a user.
func (s *Service) resolveCaller(ctx context.Context, key string) (*state.User, error) {
	if key == "" {
		return nil, apperrors.NewUnauthenticated(key)
	}
	u, err := s.users.FindByIdentity(ctx, key)
	if err != nil {
		if apperrors.KindOf(err) == apperrors.KindNotFound {
			return nil, apperrors.NewUnauthenticated(key)
		}
		return nil, err
	}
	return u, nil
}

func (s *Service) resolveUser(ctx context.Context, id string) (*state.User, error) {
	u, err := s.users.FindByID(ctx, id)
	if err != nil {
		if apperrors.KindOf(err) == apperrors.KindNotFound {
			return nil, apperrors.NewUserNotFound(id)
		}
		return nil, err
	}
	return u, nil
}

// fail records err and returns it unchanged.
func (s *Service) fail(op string, err error) error {
	kind := apperrors.KindOf(err)
	switch kind {
	case "":
		s.logger.Error("Relationship operation failed", zap.String("op", op), zap.Error(err))
	case apperrors.KindInconsistentState:
		s.metrics.Inconsistent()
		s.metrics.RelationError(string(kind))
		var re *apperrors.RelationError
		if errors.As(err, &re) {
			s.logger.Error("Friend edges exist in both directions",
				zap.String("op", op),
				zap.String("user_id", re.UserID),
				zap.String("other_id", re.OtherID),
			)
		}
	default:
		s.metrics.RelationError(string(kind))
		s.logger.Debug("Relationship operation rejected", zap.String("op", op), zap.String("kind", string(kind)))
	}
	return err
}

// notify hands a notification to the notifier after the mutation committed.
func (s *Service) notify(ctx context.Context, target string, kind state.NotificationKind, actor *state.User) {
	if s.notifier == nil {
		return
	}
	s.notifier.Notify(ctx, state.Notification{
		ID:        s.newID(),
		Target:    target,
		Kind:      kind,
		Content:   kind.Content(actor.Nickname),
		URL:       kind.URL(actor.ID),
		CreatedAt: s.now(),
	})
}

// Audit lists pairs holding friend edges in both directions.
func (s *Service) Audit(ctx context.Context) ([]state.InconsistentPair, error) {
	pairs, err := s.edges.ListInconsistentPairs(ctx)
	if err != nil {
		return nil, s.fail("audit", err)
	}
	return pairs, nil
}
