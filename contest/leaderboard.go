/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package contest

import (
	"cmp"
	"context"
	"slices"
	"strings"

	"github.com/Seednode/contestbox/store"
)

// DefaultSystemAccount is left off every published leaderboard.
const DefaultSystemAccount = "admin@contestbox.local"

// RankingCache is a faster source of the ranking than the store. It is
// consulted first and the store is used whenever it fails, is empty, or has
// missed a Record.
type RankingCache interface {
	Ranking(ctx context.Context) ([]store.User, error)
	Record(ctx context.Context, u store.User) error

	// Warm replaces the whole cached ranking with users.
	Warm(ctx context.Context, users []store.User) error
}

// BuildLeaderboard ranks users by points descending, breaking ties by
// ascending email, and drops the excluded account.
func BuildLeaderboard(users []store.User, exclude string) []LeaderboardEntry {
	ranked := slices.Clone(users)
	slices.SortStableFunc(ranked, func(a, b store.User) int {
		if c := cmp.Compare(b.Points, a.Points); c != 0 {
			return c
		}
		return strings.Compare(a.Email, b.Email)
	})

	board := make([]LeaderboardEntry, 0, len(ranked))
	for _, u := range ranked {
		if exclude != "" && u.Email == exclude {
			continue
		}

		name := u.Name
		if name == "" {
			name = u.Email
		}

		board = append(board, LeaderboardEntry{
			Name:   name,
			Points: u.Points,
			Rank:   len(board) + 1,
		})
	}

	return board
}
