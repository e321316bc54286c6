package relation_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"daydei-social/backend/internal/memstore"
	"daydei-social/backend/internal/relation"
	"daydei-social/backend/internal/state"
)

// 2026-10-18 has an even yyyymmdd, 2026-10-19 an odd one.
var (
	evenDay = time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)
	oddDay  = time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)
)

type recordingNotifier struct {
	mu   sync.Mutex
	sent []state.Notification
}

func (n *recordingNotifier) Notify(_ context.Context, msg state.Notification) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, msg)
}

func (n *recordingNotifier) all() []state.Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]state.Notification, len(n.sent))
	copy(out, n.sent)
	return out
}

type fixture struct {
	store    *memstore.Store
	notifier *recordingNotifier
	svc      *relation.Service
}

func newFixture(t *testing.T, day time.Time, policy relation.OrderPolicy) *fixture {
	t.Helper()
	store := memstore.New()
	notifier := &recordingNotifier{}
	svc := relation.NewService(store, notifier, relation.Config{
		Rotation:             relation.Rotation{Policy: policy, Clock: func() time.Time { return day }},
		RecommendConcurrency: 4,
		RandomListSize:       3,
	}, nil)
	return &fixture{store: store, notifier: notifier, svc: svc}
}

// addUser seeds a user whose identity key is <id>@test.dev.
func (f *fixture) addUser(id, nickname string, categories ...state.Category) state.User {
	u := state.User{
		ID:         id,
		Email:      email(id),
		Nickname:   nickname,
		Categories: categories,
	}
	f.store.PutUser(u)
	return u
}

func email(id string) string {
	return id + "@test.dev"
}

func ids[T any](items []T, id func(T) string) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		out = append(out, id(it))
	}
	return out
}

func viewIDs(views []state.UserView) []string {
	return ids(views, func(v state.UserView) string { return v.ID })
}

func candidateIDs(cs []state.Candidate) []string {
	return ids(cs, func(c state.Candidate) string { return c.User.ID })
}
