// Package seed loads users from a JSON file into a store.
package seed

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"daydei-social/backend/internal/state"
)

// File is the on-disk seed format: {"users": [...]}.
type File struct {
	Users []state.User `json:"users"`
}

// Upserter is the store capability seeding needs.
type Upserter interface {
	UpsertUser(ctx context.Context, u state.User) error
}

// Load reads and validates path. Category tokens are case-insensitive and
// come back normalized.
func Load(path string) ([]state.User, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("seed: %w", err)
	}
	var in File
	if err := json.Unmarshal(data, &in); err != nil {
		return nil, fmt.Errorf("seed: parse %s: %w", path, err)
	}

	users := make([]state.User, 0, len(in.Users))
	for _, u := range in.Users {
		if u.ID == "" || u.Email == "" {
			return nil, fmt.Errorf("seed: user needs id and email: %+v", u)
		}
		tokens := make([]string, len(u.Categories))
		for i, c := range u.Categories {
			tokens[i] = string(c)
		}
		categories, err := state.ParseCategories(tokens)
		if err != nil {
			return nil, fmt.Errorf("seed: user %s: %w", u.ID, err)
		}
		u.Categories = categories
		users = append(users, u)
	}
	return users, nil
}

// Apply upserts users in order, stopping at the first failure.
func Apply(ctx context.Context, store Upserter, users []state.User) error {
	for _, u := range users {
		if err := store.UpsertUser(ctx, u); err != nil {
			return fmt.Errorf("seed: user %s: %w", u.ID, err)
		}
	}
	return nil
}

// LoadFile loads path and applies it to store, returning how many users were
// written.
func LoadFile(ctx context.Context, store Upserter, path string) (int, error) {
	users, err := Load(path)
	if err != nil {
		return 0, err
	}
	if err := Apply(ctx, store, users); err != nil {
		return 0, err
	}
	return len(users), nil
}
