// Command relctl inspects and seeds the relationship store directly, without
// going through the HTTP API.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"daydei-social/backend/internal/relation"
	"daydei-social/backend/internal/seed"
	"daydei-social/backend/internal/services"
	"daydei-social/backend/internal/state"
	"daydei-social/backend/pkg/config"
	"daydei-social/backend/pkg/logger"
)

// stack is an opened store with a service on top of it.
type stack struct {
	store services.Store
	svc   *relation.Service
	close func(ctx context.Context) error
}

type opener func(ctx context.Context) (*stack, error)

func main() {
	args := os.Args
	if len(args) == 1 {
		args = append(args, "--help")
	}

	if err := newApp(os.Stdout, openFromEnv).Run(context.Background(), args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// errMemoryBackend is returned when relctl is pointed at the in-process store,
// whose contents would vanish when the command exits.
var errMemoryBackend = errors.New("relctl needs a persistent store: STORE_BACKEND=memory lives only inside one process " +
	"(use sqlite, postgres or neo4j, or start the server with SEED_FILE)")

func checkBackend(cfg *config.Config) error {
	if cfg.StoreBackend == config.StoreMemory {
		return errMemoryBackend
	}
	return nil
}

// openFromEnv opens the store configured by the environment. Notifications
// are not wired: relctl never mutates friend state.
func openFromEnv(ctx context.Context) (*stack, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if err := checkBackend(cfg); err != nil {
		return nil, err
	}
	level := cfg.LogLevel
	if level == "" {
		level = "warn"
	}
	if err := logger.Init(cfg.Env, level); err != nil {
		return nil, err
	}

	manager := services.NewServiceManager(logger.Named("services"), cfg)
	store, err := manager.StartStore(ctx)
	if err != nil {
		return nil, err
	}
	svc := relation.NewService(store, nil, relation.Config{
		Rotation:             relation.NewRotation(relation.OrderPolicy(cfg.OrderingPolicy)),
		RecommendConcurrency: cfg.RecommendConcurrency,
		RandomListSize:       cfg.RandomListSize,
	}, nil)
	return &stack{store: store, svc: svc, close: manager.StopAll}, nil
}

func newApp(out io.Writer, open opener) *cli.Command {
	return &cli.Command{
		Name:   "relctl",
		Usage:  "Relationship store admin tool",
		Writer: out,
		Commands: []*cli.Command{
			migrateCommand(open),
			auditCommand(open),
			relationsCommand(open),
			recommendCommand(open),
			seedCommand(open),
		},
	}
}

// withStack opens the store for the duration of fn.
func withStack(ctx context.Context, open opener, fn func(s *stack) error) error {
	s, err := open(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err := s.close(ctx); err != nil {
			logger.Get().Warn("Failed to close store", zap.Error(err))
		}
	}()
	return fn(s)
}

func migrateCommand(open opener) *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "Apply schema migrations and constraints for the configured store",
		Action: func(ctx context.Context, c *cli.Command) error {
			return withStack(ctx, open, func(s *stack) error {
				fmt.Fprintln(c.Root().Writer, "schema up to date")
				return nil
			})
		},
	}
}

func auditCommand(open opener) *cli.Command {
	return &cli.Command{
		Name:  "audit",
		Usage: "List user pairs with friend edges in both directions",
		Flags: []cli.Flag{&cli.BoolFlag{Name: "json", Usage: "output raw JSON"}},
		Action: func(ctx context.Context, c *cli.Command) error {
			return withStack(ctx, open, func(s *stack) error {
				pairs, err := s.svc.Audit(ctx)
				if err != nil {
					return err
				}
				if c.Bool("json") {
					return printJSON(c.Root().Writer, pairs)
				}
				printPairs(c.Root().Writer, pairs)
				return nil
			})
		},
	}
}

func relationsCommand(open opener) *cli.Command {
	return &cli.Command{
		Name:  "relations",
		Usage: "Show a user's friends and subscriptions in today's order",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "as", Required: true, Usage: "identity key (email) of the user"},
			&cli.BoolFlag{Name: "json", Usage: "output raw JSON"},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			return withStack(ctx, open, func(s *stack) error {
				view, err := s.svc.Relations(ctx, c.String("as"))
				if err != nil {
					return err
				}
				if c.Bool("json") {
					return printJSON(c.Root().Writer, view)
				}
				printUsers(c.Root().Writer, "FRIENDS", view.Friends)
				printUsers(c.Root().Writer, "SUBSCRIPTIONS", view.Subscriptions)
				return nil
			})
		},
	}
}

func recommendCommand(open opener) *cli.Command {
	return &cli.Command{
		Name:  "recommend",
		Usage: "Show friend recommendations for a user",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "as", Required: true, Usage: "identity key (email) of the user"},
			&cli.StringSliceFlag{Name: "category", Usage: "category filter, repeatable"},
			&cli.StringFlag{Name: "search", Usage: "match email or nickname"},
			&cli.BoolFlag{Name: "json", Usage: "output raw JSON"},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			return withStack(ctx, open, func(s *stack) error {
				candidates, err := s.svc.Recommend(ctx, c.String("as"), c.StringSlice("category"), c.String("search"))
				if err != nil {
					return err
				}
				if c.Bool("json") {
					return printJSON(c.Root().Writer, candidates)
				}
				printCandidates(c.Root().Writer, candidates)
				return nil
			})
		},
	}
}

func seedCommand(open opener) *cli.Command {
	return &cli.Command{
		Name:      "seed",
		Usage:     "Upsert users from a JSON file",
		ArgsUsage: "<file>",
		Action: func(ctx context.Context, c *cli.Command) error {
			path := c.Args().First()
			if path == "" {
				return fmt.Errorf("seed: missing file argument")
			}
			users, err := seed.Load(path)
			if err != nil {
				return err
			}

			return withStack(ctx, open, func(s *stack) error {
				if err := seed.Apply(ctx, s.store, users); err != nil {
					return err
				}
				fmt.Fprintf(c.Root().Writer, "seeded %d users\n", len(users))
				return nil
			})
		},
	}
}

func categoryTokens(cs []state.Category) []string {
	out := make([]string, len(cs))
	for i, c := range cs {
		out[i] = string(c)
	}
	return out
}
