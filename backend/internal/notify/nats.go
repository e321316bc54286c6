package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"daydei-social/backend/internal/state"
	apperrors "daydei-social/backend/pkg/errors"
)

// SubjectPrefix roots every notification subject: notifications.<kind>.
const SubjectPrefix = "notifications"

// NATSPublisher persists notifications on a JetStream stream.
type NATSPublisher struct {
	nc *nats.Conn
	js jetstream.JetStream
}

// NewNATSPublisher connects and makes sure the stream exists. Creating the
// stream is idempotent.
func NewNATSPublisher(ctx context.Context, url, stream string) (*NATSPublisher, error) {
	nc, err := nats.Connect(url, nats.Name("daydei-social"))
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("jetstream init: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	_, err = js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:     stream,
		Subjects: []string{SubjectPrefix + ".>"},
		Storage:  jetstream.FileStorage,
		Replicas: 1,
	})
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("create stream: %w", err)
	}

	return &NATSPublisher{nc: nc, js: js}, nil
}

// Subject returns the subject a notification kind is published on.
func Subject(kind state.NotificationKind) string {
	return SubjectPrefix + "." + strings.ToLower(string(kind))
}

func (p *NATSPublisher) Publish(ctx context.Context, n state.Notification) error {
	data, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}

	// The message id lets JetStream drop duplicates from retried publishes.
	if _, err := p.js.Publish(ctx, Subject(n.Kind), data, jetstream.WithMsgID(n.ID)); err != nil {
		return apperrors.NewNotifyPublishFailed(p.Name(), err)
	}
	return nil
}

func (p *NATSPublisher) Name() string { return "nats" }

func (p *NATSPublisher) Close() error {
	return p.nc.Drain()
}
