/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package contest

import (
	"math"

	"github.com/Seednode/contestbox/store"
)

// ComputeReward returns what a correct answer earns at the question's
// current value. Hint 1 takes 10% of base; hint 2 then takes 20% of what
// remains, each step rounded down.
func ComputeReward(base int64, hint1Used, hint2Used bool) int64 {
	reward := base
	if hint1Used {
		reward -= base / 10
	}
	if hint2Used {
		reward = reward/5*4 + reward%5*4/5
	}

	return reward
}

// ComputeHintDeduction returns the points left after opening hint level on
// a question currently worth before. For level 2, before must already
// include the hint 1 deduction.
func ComputeHintDeduction(before int64, level int) int64 {
	switch level {
	case 1:
		return before - before/10
	case 2:
		return before - before/5
	default:
		return before
	}
}

// HintPreview is the display value of a question for someone holding rec.
func HintPreview(base int64, rec store.HintRecord) int64 {
	points := base
	if rec.Hint1Used {
		points = ComputeHintDeduction(points, 1)
	}
	if rec.Hint2Used {
		points = ComputeHintDeduction(points, 2)
	}

	return points
}

// ComputeGlobalDecay returns a question's value after one more correct
// solve. It never drops below half the original value, and never rises.
func ComputeGlobalDecay(current, original int64, decayFactor float64) int64 {
	deduction := int64(math.Floor(float64(current)*decayFactor + 1e-9))

	next := current - deduction
	if floor := original / 2; next < floor {
		next = min(floor, current)
	}

	return next
}
