/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package store

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/redis/go-redis/v9"
)

const (
	rankingScoreKey = "contestbox:leaderboard:points"
	rankingNameKey  = "contestbox:leaderboard:names"
)

// RedisRanking mirrors user points into a sorted set so leaderboards can be
// read without scanning the users collection.
type RedisRanking struct {
	client *redis.Client
}

func NewRedisRanking(ctx context.Context, addr, password string, db int) (*RedisRanking, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis %s: %w", addr, err)
	}

	return &RedisRanking{client: client}, nil
}

func (r *RedisRanking) Close() error {
	return r.client.Close()
}

// Warm replaces the cached ranking with users.
func (r *RedisRanking) Warm(ctx context.Context, users []User) error {
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, rankingScoreKey, rankingNameKey)
		for _, u := range users {
			queueRecord(ctx, pipe, u)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("warm ranking: %w", err)
	}

	return nil
}

// Record stores a user's current points and display name.
func (r *RedisRanking) Record(ctx context.Context, u User) error {
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		queueRecord(ctx, pipe, u)
		return nil
	})
	if err != nil {
		return fmt.Errorf("record %s: %w", u.Email, err)
	}

	return nil
}

func queueRecord(ctx context.Context, pipe redis.Pipeliner, u User) {
	pipe.ZAdd(ctx, rankingScoreKey, redis.Z{
		Score:  float64(u.Points),
		Member: u.Email,
	})
	pipe.HSet(ctx, rankingNameKey, u.Email, u.Name)
}

// Ranking returns every cached user, points descending then email
// ascending. Only Email, Name and Points are populated.
func (r *RedisRanking) Ranking(ctx context.Context) ([]User, error) {
	results, err := r.client.ZRevRangeWithScores(ctx, rankingScoreKey, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("read ranking: %w", err)
	}
	if len(results) == 0 {
		return nil, nil
	}

	emails := make([]string, 0, len(results))
	users := make([]User, 0, len(results))
	for _, z := range results {
		email, ok := z.Member.(string)
		if !ok {
			continue
		}
		emails = append(emails, email)
		users = append(users, User{Email: email, Points: int64(z.Score)})
	}

	names, err := r.client.HMGet(ctx, rankingNameKey, emails...).Result()
	if err != nil {
		return nil, fmt.Errorf("read ranking names: %w", err)
	}
	for i := range users {
		if name, ok := names[i].(string); ok && name != "" {
			users[i].Name = name
		} else {
			users[i].Name = users[i].Email
		}
	}

	// ZREVRANGE orders equal scores by member descending.
	slices.SortStableFunc(users, func(a, b User) int {
		if c := cmp.Compare(b.Points, a.Points); c != 0 {
			return c
		}
		return strings.Compare(a.Email, b.Email)
	})

	return users, nil
}
