/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"context"
	"fmt"

	"github.com/Seednode/contestbox/contest"
	"github.com/Seednode/contestbox/store"
)

// openStore builds the configured record store and loads the seed file into
// it. The returned func releases the store.
func openStore(ctx context.Context, cfg *Config) (store.Store, func(context.Context), error) {
	var seed store.Seed
	if cfg.seed != "" {
		var err error
		seed, err = store.LoadSeed(cfg.seed)
		if err != nil {
			return nil, nil, err
		}
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var (
		records store.Store
		release = func(context.Context) {}
	)

	switch cfg.store {
	case "mongo":
		m, err := store.NewMongo(ctx, cfg.mongoURI, cfg.mongoDatabase)
		if err != nil {
			return nil, nil, err
		}

		records = m
		release = func(ctx context.Context) {
			if err := m.Close(ctx); err != nil {
				logf(cfg, "STORE: Closing mongo failed: %v", err)
			}
		}

		logf(cfg, "STORE: Using mongo database %q", cfg.mongoDatabase)
	default:
		records = store.NewMemory()

		logf(cfg, "STORE: Using in-memory store")
	}

	if seeder, ok := records.(store.Seeder); ok && cfg.seed != "" {
		if err := seeder.Seed(ctx, seed); err != nil {
			release(context.Background())
			return nil, nil, fmt.Errorf("seeding %s store: %w", cfg.store, err)
		}

		logf(cfg, "STORE: Seeded %d users and %d questions from %s", len(seed.Users), len(seed.Questions), cfg.seed)
	}

	return records, release, nil
}

// openRanking connects the redis leaderboard cache, if one is configured,
// and fills it from s.
func openRanking(ctx context.Context, cfg *Config, s store.Store) (contest.RankingCache, func(), error) {
	if cfg.redisAddr == "" {
		return nil, func() {}, nil
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	r, err := store.NewRedisRanking(ctx, cfg.redisAddr, cfg.redisPassword, cfg.redisDB)
	if err != nil {
		return nil, nil, err
	}

	users, err := s.ListUsersByPointsDesc(ctx)
	if err != nil {
		_ = r.Close()
		return nil, nil, err
	}

	if err := r.Warm(ctx, users); err != nil {
		_ = r.Close()
		return nil, nil, fmt.Errorf("warming leaderboard cache: %w", err)
	}

	logf(cfg, "STORE: Leaderboard cache at %s warmed with %d users", cfg.redisAddr, len(users))

	return r, func() {
		if err := r.Close(); err != nil {
			logf(cfg, "STORE: Closing redis failed: %v", err)
		}
	}, nil
}
