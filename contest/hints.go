/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package contest

import (
	"time"

	"github.com/Seednode/contestbox/store"
)

const DefaultHintUnlock = 2 * time.Hour

// HintTracker decides when hints open up and records their use.
type HintTracker struct {
	UnlockDelay time.Duration
}

// RecordVisit marks q as visited at now unless it already was. It reports
// whether q changed and needs to be persisted.
func (t HintTracker) RecordVisit(q *store.Question, now time.Time) bool {
	if q.Visit.Visited {
		return false
	}

	at := now
	q.Visit = store.Visit{Visited: true, VisitTime: &at}

	return true
}

// Eligible reports whether hints for q are available at now.
func (t HintTracker) Eligible(q store.Question, now time.Time) bool {
	if !q.Visit.Visited || q.Visit.VisitTime == nil {
		return false
	}

	return now.Sub(*q.Visit.VisitTime) >= t.UnlockDelay
}

// Remaining is how long until hints unlock; zero once they have.
func (t HintTracker) Remaining(q store.Question, now time.Time) time.Duration {
	if !q.Visit.Visited || q.Visit.VisitTime == nil {
		return t.UnlockDelay
	}

	left := q.Visit.VisitTime.Add(t.UnlockDelay).Sub(now)
	if left < 0 {
		return 0
	}

	return left
}

// UseHint consumes hint level on rec and returns the resulting point
// preview for a question worth base. Reopening a consumed hint returns
// ErrHintAlreadyUsed along with the unchanged preview.
func (t HintTracker) UseHint(level int, rec *store.HintRecord, base int64) (int64, error) {
	switch level {
	case 1:
		if rec.Hint1Used {
			return HintPreview(base, *rec), ErrHintAlreadyUsed
		}
		rec.Hint1Used = true
	case 2:
		if !rec.Hint1Used {
			return HintPreview(base, *rec), ErrHintPrerequisite
		}
		if rec.Hint2Used {
			return HintPreview(base, *rec), ErrHintAlreadyUsed
		}
		rec.Hint2Used = true
	default:
		return base, ErrInvalidHintLevel
	}

	return HintPreview(base, *rec), nil
}
