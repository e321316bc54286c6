package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"daydei-social/backend/internal/memstore"
	"daydei-social/backend/internal/relation"
	"daydei-social/backend/internal/state"
)

func memoryOpener(store *memstore.Store) opener {
	svc := relation.NewService(store, nil, relation.Config{
		Rotation: relation.Rotation{
			Policy: relation.OrderDayParity,
			Clock:  func() time.Time { return time.Date(2026, 10, 18, 0, 0, 0, 0, time.UTC) },
		},
		RecommendConcurrency: 2,
		RandomListSize:       3,
	}, nil)
	return func(context.Context) (*stack, error) {
		return &stack{store: store, svc: svc, close: func(context.Context) error { return nil }}, nil
	}
}

func run(t *testing.T, open opener, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	err := newApp(&out, open).Run(context.Background(), append([]string{"relctl"}, args...))
	return out.String(), err
}

func TestSeedThenRecommend(t *testing.T) {
	store := memstore.New()
	open := memoryOpener(store)

	path := filepath.Join(t.TempDir(), "users.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"users": [
		{"id": "1", "email": "alice@test.dev", "nickname": "alice", "categories": ["music"]},
		{"id": "2", "email": "bob@test.dev", "nickname": "bob", "categories": ["MUSIC"]},
		{"id": "3", "email": "carol@test.dev", "nickname": "carol", "categories": ["SPORTS"]}
	]}`), 0o600))

	out, err := run(t, open, "seed", path)
	require.NoError(t, err)
	assert.Contains(t, out, "seeded 3 users")

	u, err := store.FindByID(context.Background(), "1")
	require.NoError(t, err)
	assert.Equal(t, []state.Category{state.CategoryMusic}, u.Categories)

	out, err = run(t, open, "recommend", "--as", "alice@test.dev", "--category", "MUSIC", "--json")
	require.NoError(t, err)
	var candidates []state.Candidate
	require.NoError(t, json.Unmarshal([]byte(out), &candidates))
	require.Len(t, candidates, 1)
	assert.Equal(t, "2", candidates[0].User.ID)
}

func TestSeedRejectsUnknownCategory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "users.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"users": [
		{"id": "1", "email": "alice@test.dev", "nickname": "alice", "categories": ["cooking"]}
	]}`), 0o600))

	_, err := run(t, memoryOpener(memstore.New()), "seed", path)
	assert.Error(t, err)
}

func TestAudit(t *testing.T) {
	store := memstore.New()
	store.PutUser(state.User{ID: "1", Email: "alice@test.dev", Nickname: "alice"})
	store.PutUser(state.User{ID: "2", Email: "bob@test.dev", Nickname: "bob"})
	open := memoryOpener(store)

	out, err := run(t, open, "audit")
	require.NoError(t, err)
	assert.Contains(t, out, "no inconsistent pairs")

	now := time.Now()
	store.PutFriendEdge(state.FriendEdge{ID: "e1", Requester: "1", Responder: "2", CreatedAt: now, UpdatedAt: now})
	store.PutFriendEdge(state.FriendEdge{ID: "e2", Requester: "2", Responder: "1", CreatedAt: now, UpdatedAt: now})

	out, err = run(t, open, "audit", "--json")
	require.NoError(t, err)
	var pairs []state.InconsistentPair
	require.NoError(t, json.Unmarshal([]byte(out), &pairs))
	assert.Equal(t, []state.InconsistentPair{{UserA: "1", UserB: "2"}}, pairs)
}

func TestRelations(t *testing.T) {
	store := memstore.New()
	store.PutUser(state.User{ID: "1", Email: "alice@test.dev", Nickname: "alice"})
	store.PutUser(state.User{ID: "2", Email: "bob@test.dev", Nickname: "bob"})
	now := time.Now()
	store.PutFriendEdge(state.FriendEdge{ID: "e1", Requester: "1", Responder: "2", Accepted: true, CreatedAt: now, UpdatedAt: now})
	open := memoryOpener(store)

	out, err := run(t, open, "relations", "--as", "alice@test.dev")
	require.NoError(t, err)
	assert.Contains(t, out, "FRIENDS (1)")
	assert.Contains(t, out, "bob@test.dev")
	assert.Contains(t, out, "SUBSCRIPTIONS (0)")

	_, err = run(t, open, "relations", "--as", "nobody@test.dev")
	assert.Error(t, err)
}

func TestOpenFromEnv_RefusesMemoryBackend(t *testing.T) {
	t.Setenv("STORE_BACKEND", "memory")

	path := filepath.Join(t.TempDir(), "users.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"users": [
		{"id": "a", "email": "a@x.dev", "nickname": "a"}
	]}`), 0o600))

	out, err := run(t, openFromEnv, "seed", path)
	assert.ErrorIs(t, err, errMemoryBackend)
	assert.NotContains(t, out, "seeded")
}

func TestOpenFromEnv_SeedPersistsAcrossRuns(t *testing.T) {
	t.Setenv("STORE_BACKEND", "sqlite")
	t.Setenv("SQLITE_PATH", filepath.Join(t.TempDir(), "relations.db"))
	t.Setenv("SEED_FILE", "")

	path := filepath.Join(t.TempDir(), "users.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"users": [
		{"id": "a", "email": "a@x.dev", "nickname": "a", "categories": ["music"]}
	]}`), 0o600))

	out, err := run(t, openFromEnv, "seed", path)
	require.NoError(t, err)
	assert.Contains(t, out, "seeded 1 users")

	out, err = run(t, openFromEnv, "relations", "--as", "a@x.dev")
	require.NoError(t, err)
	assert.Contains(t, out, "FRIENDS (0)")
}
