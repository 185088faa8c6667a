/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package store

import (
	"context"
	"errors"
	"testing"
	"time"
)

func newTestMemory() *Memory {
	m := NewMemory()
	m.PutUser(User{Email: "b@example.com", Name: "B", Points: 50})
	m.PutUser(User{Email: "a@example.com", Name: "A", Points: 50})
	m.PutUser(User{Email: "c@example.com", Name: "C", Points: 80})
	m.PutQuestion(Question{ID: 1, Answer: "paris", Points: 100, OriginalPoints: 100, DecayFactor: 0.05})

	return m
}

func TestMemoryGetMissing(t *testing.T) {
	m := newTestMemory()
	ctx := context.Background()

	if _, err := m.GetUser(ctx, "nobody@example.com"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("GetUser err = %v, want ErrNotFound", err)
	}
	if _, err := m.GetQuestion(ctx, 42); !errors.Is(err, ErrNotFound) {
		t.Fatalf("GetQuestion err = %v, want ErrNotFound", err)
	}
}

func TestMemoryUpdateUserAppendsAnswer(t *testing.T) {
	m := newTestMemory()
	ctx := context.Background()

	expect := int64(0)
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	u, err := m.UpdateUser(ctx, "a@example.com", UserDelta{
		AddPoints:      100,
		Answer:         &AnswerLogEntry{QuestionID: 1, AnsweredAt: at},
		ExpectAnswered: &expect,
		Hint:           &HintRecord{QuestionID: 1},
	})
	if err != nil {
		t.Fatalf("UpdateUser: %v", err)
	}
	if u.Points != 150 || u.QuestionsAnswered != 1 {
		t.Fatalf("got points=%d answered=%d, want 150 and 1", u.Points, u.QuestionsAnswered)
	}
	if len(u.Answers) != 1 || u.Answers[0].QuestionID != 1 || !u.Answers[0].AnsweredAt.Equal(at) {
		t.Fatalf("unexpected answer log %+v", u.Answers)
	}
	if _, ok := u.HintFor(1); !ok {
		t.Fatalf("expected hint record for question 1")
	}

	if _, err := m.UpdateUser(ctx, "a@example.com", UserDelta{ExpectAnswered: &expect}); !errors.Is(err, ErrConflict) {
		t.Fatalf("stale ExpectAnswered err = %v, want ErrConflict", err)
	}
}

func TestMemoryHintUpsertReplaces(t *testing.T) {
	m := newTestMemory()
	ctx := context.Background()

	if _, err := m.UpdateUser(ctx, "a@example.com", UserDelta{Hint: &HintRecord{QuestionID: 3, Hint1Used: true}}); err != nil {
		t.Fatalf("first upsert: %v", err)
	}
	u, err := m.UpdateUser(ctx, "a@example.com", UserDelta{Hint: &HintRecord{QuestionID: 3, Hint1Used: true, Hint2Used: true}})
	if err != nil {
		t.Fatalf("second upsert: %v", err)
	}
	if len(u.Hints) != 1 {
		t.Fatalf("got %d hint records, want 1", len(u.Hints))
	}
	if h, _ := u.HintFor(3); !h.Hint1Used || !h.Hint2Used {
		t.Fatalf("hint record not replaced: %+v", h)
	}
}

func TestMemoryUpdateQuestionGuard(t *testing.T) {
	m := newTestMemory()
	ctx := context.Background()

	stale := int64(99)
	next := int64(95)
	if _, err := m.UpdateQuestion(ctx, 1, QuestionDelta{Points: &next, ExpectPoints: &stale}); !errors.Is(err, ErrConflict) {
		t.Fatalf("err = %v, want ErrConflict", err)
	}

	current := int64(100)
	q, err := m.UpdateQuestion(ctx, 1, QuestionDelta{Points: &next, ExpectPoints: &current, ConsumeHint: 2})
	if err != nil {
		t.Fatalf("UpdateQuestion: %v", err)
	}
	if q.Points != 95 || !q.Hint2.Used || q.Hint1.Used {
		t.Fatalf("unexpected question %+v", q)
	}
}

func TestMemoryReturnsCopies(t *testing.T) {
	m := newTestMemory()
	ctx := context.Background()

	now := time.Now()
	if _, err := m.UpdateQuestion(ctx, 1, QuestionDelta{Visit: &Visit{Visited: true, VisitTime: &now}}); err != nil {
		t.Fatalf("UpdateQuestion: %v", err)
	}

	q, _ := m.GetQuestion(ctx, 1)
	*q.Visit.VisitTime = now.Add(time.Hour)
	q.Points = 1

	again, _ := m.GetQuestion(ctx, 1)
	if again.Points != 100 || !again.Visit.VisitTime.Equal(now) {
		t.Fatalf("mutating a returned question changed the store: %+v", again)
	}
}

func TestMemoryListUsersByPointsDesc(t *testing.T) {
	m := newTestMemory()

	users, err := m.ListUsersByPointsDesc(context.Background())
	if err != nil {
		t.Fatalf("ListUsersByPointsDesc: %v", err)
	}

	want := []string{"c@example.com", "a@example.com", "b@example.com"}
	if len(users) != len(want) {
		t.Fatalf("got %d users, want %d", len(users), len(want))
	}
	for i, email := range want {
		if users[i].Email != email {
			t.Fatalf("position %d = %s, want %s", i, users[i].Email, email)
		}
	}
}

func TestMemoryHonoursCancelledContext(t *testing.T) {
	m := newTestMemory()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := m.GetUser(ctx, "a@example.com"); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}
