// Package notify delivers friend-request notifications after the relationship
// mutation that produced them has committed. Delivery is best effort: a
// failure is logged and counted but never reaches the caller.
package notify

import (
	"context"

	"go.uber.org/zap"

	"daydei-social/backend/internal/state"
	"daydei-social/backend/pkg/logger"
)

// Publisher hands a notification to a delivery backend.
type Publisher interface {
	Publish(ctx context.Context, n state.Notification) error
	Name() string
	Close() error
}

// LogPublisher writes notifications to the log. It is the development default.
type LogPublisher struct {
	logger *zap.Logger
}

func NewLogPublisher() *LogPublisher {
	return &LogPublisher{logger: logger.Named("notify.log")}
}

func (p *LogPublisher) Publish(_ context.Context, n state.Notification) error {
	p.logger.Info("Notification",
		zap.String("id", n.ID),
		zap.String("target_id", n.Target),
		zap.String("kind", string(n.Kind)),
		zap.String("content", n.Content),
		zap.String("url", n.URL),
	)
	return nil
}

func (p *LogPublisher) Name() string { return "log" }

func (p *LogPublisher) Close() error { return nil }
