/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package contest

import (
	"math"
	"testing"

	"github.com/Seednode/contestbox/store"
)

func TestComputeReward(t *testing.T) {
	tests := []struct {
		name         string
		base         int64
		hint1, hint2 bool
		want         int64
	}{
		{"no hints", 100, false, false, 100},
		{"hint1", 100, true, false, 90},
		{"both hints", 100, true, true, 72},
		{"hint1 after decay", 95, true, false, 86},
		{"both hints after decay", 95, true, true, 68},
		{"zero", 0, true, true, 0},
		{"rounds down", 7, true, false, 7},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ComputeReward(tt.base, tt.hint1, tt.hint2); got != tt.want {
				t.Errorf("ComputeReward(%d, %t, %t) = %d, want %d", tt.base, tt.hint1, tt.hint2, got, tt.want)
			}
		})
	}
}

func TestComputeRewardHint1Property(t *testing.T) {
	for base := int64(0); base <= 2000; base++ {
		if got, want := ComputeReward(base, true, false), base-base/10; got != want {
			t.Fatalf("ComputeReward(%d, true, false) = %d, want %d", base, got, want)
		}
		if got := ComputeReward(base, true, true); got > ComputeReward(base, true, false) {
			t.Fatalf("hint2 raised reward for %d", base)
		}
	}
}

func TestComputeRewardLargeBase(t *testing.T) {
	for base := int64(0); base <= 2000; base++ {
		if got, want := ComputeReward(base, false, true), base*4/5; got != want {
			t.Fatalf("ComputeReward(%d, false, true) = %d, want %d", base, got, want)
		}
	}

	// floor(MaxInt64 * 4 / 5)
	if got, want := ComputeReward(math.MaxInt64, false, true), int64(7378697629483820645); got != want {
		t.Errorf("ComputeReward(MaxInt64, false, true) = %d, want %d", got, want)
	}
	if got, want := ComputeReward(math.MaxInt64, true, true), int64(6640827866535438581); got != want {
		t.Errorf("ComputeReward(MaxInt64, true, true) = %d, want %d", got, want)
	}
}

func TestComputeGlobalDecay(t *testing.T) {
	tests := []struct {
		current, original int64
		decay             float64
		want              int64
	}{
		{100, 100, 0.05, 95},
		{95, 100, 0.05, 91},
		{52, 100, 0.05, 50},
		{50, 100, 0.05, 50},
		{100, 100, 0, 100},
		{200, 200, 0.1, 180},
		{40, 100, 0.05, 40},
	}

	for _, tt := range tests {
		if got := ComputeGlobalDecay(tt.current, tt.original, tt.decay); got != tt.want {
			t.Errorf("ComputeGlobalDecay(%d, %d, %v) = %d, want %d", tt.current, tt.original, tt.decay, got, tt.want)
		}
	}
}

func TestComputeGlobalDecayConverges(t *testing.T) {
	for _, original := range []int64{99, 100, 1000, 12345} {
		points := original
		for i := 0; i < 500; i++ {
			next := ComputeGlobalDecay(points, original, 0.05)
			if next > points {
				t.Fatalf("original %d: decay raised %d to %d", original, points, next)
			}
			if next < original/2 {
				t.Fatalf("original %d: decayed below floor to %d", original, next)
			}
			points = next
		}

		if points != original/2 {
			t.Errorf("original %d: settled at %d, want %d", original, points, original/2)
		}
	}
}

func TestHintPreview(t *testing.T) {
	tests := []struct {
		name string
		base int64
		rec  store.HintRecord
		want int64
	}{
		{"none", 100, store.HintRecord{}, 100},
		{"hint1", 100, store.HintRecord{Hint1Used: true}, 90},
		{"both", 100, store.HintRecord{Hint1Used: true, Hint2Used: true}, 72},
		{"both after decay", 95, store.HintRecord{Hint1Used: true, Hint2Used: true}, 69},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := HintPreview(tt.base, tt.rec); got != tt.want {
				t.Errorf("HintPreview(%d, %+v) = %d, want %d", tt.base, tt.rec, got, tt.want)
			}
		})
	}
}

func TestComputeHintDeduction(t *testing.T) {
	if got := ComputeHintDeduction(100, 1); got != 90 {
		t.Errorf("level 1 = %d, want 90", got)
	}
	if got := ComputeHintDeduction(90, 2); got != 72 {
		t.Errorf("level 2 = %d, want 72", got)
	}
	if got := ComputeHintDeduction(90, 3); got != 90 {
		t.Errorf("unknown level = %d, want 90", got)
	}
}
