/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package store

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const seedJSON = `{
  "users": [
    {"email": "ada@example.com", "name": "Ada", "points": 120, "questionsAnswered": 1,
     "questionAnsweredTime": [{"questionId": 1, "time": "2026-03-01T10:00:00Z"}]},
    {"email": "bob@example.com"}
  ],
  "questions": [
    {"questionId": 1, "answer": "42", "imageUrl": "/img/1.png", "points": 100, "dec_factor": 0.05,
     "hint1": {"hint": "think"}, "hint2": {"hint": "harder"}},
    {"questionId": 2, "answer": "blue", "points": 200, "originalpoints": 250, "dec_factor": 0.1}
  ]
}`

func writeSeed(t *testing.T, name, body string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write seed: %v", err)
	}

	return path
}

func TestLoadSeed(t *testing.T) {
	seed, err := LoadSeed(writeSeed(t, "seed.json", seedJSON))
	if err != nil {
		t.Fatalf("LoadSeed: %v", err)
	}

	if len(seed.Users) != 2 || len(seed.Questions) != 2 {
		t.Fatalf("got %d users and %d questions", len(seed.Users), len(seed.Questions))
	}

	ada := seed.Users[0]
	if ada.Points != 120 || len(ada.Answers) != 1 || ada.Answers[0].AnsweredAt.Year() != 2026 {
		t.Fatalf("unexpected user %+v", ada)
	}
	if seed.Users[1].Name != "bob@example.com" {
		t.Fatalf("name should default to email, got %q", seed.Users[1].Name)
	}

	q1 := seed.Questions[0]
	if q1.OriginalPoints != 100 || q1.Hint1.Text != "think" || q1.DecayFactor != 0.05 {
		t.Fatalf("unexpected question %+v", q1)
	}
	if seed.Questions[1].OriginalPoints != 250 {
		t.Fatalf("explicit original points overwritten: %+v", seed.Questions[1])
	}

	m := NewMemory()
	if err := m.Seed(context.Background(), seed); err != nil {
		t.Fatalf("Seed: %v", err)
	}
	if _, err := m.GetQuestion(context.Background(), 2); err != nil {
		t.Fatalf("seeded question missing: %v", err)
	}
}

func TestLoadSeedRejectsInconsistentUser(t *testing.T) {
	body := `{"users": [{"email": "x@example.com", "questionsAnswered": 2}]}`

	_, err := LoadSeed(writeSeed(t, "bad.json", body))
	if err == nil || !strings.Contains(err.Error(), "questionsAnswered") {
		t.Fatalf("err = %v, want questionsAnswered mismatch", err)
	}
}

func TestLoadSeedRejectsDuplicateQuestion(t *testing.T) {
	body := `{"questions": [{"questionId": 1, "points": 10}, {"questionId": 1, "points": 20}]}`

	if _, err := LoadSeed(writeSeed(t, "dup.json", body)); err == nil {
		t.Fatalf("expected duplicate question error")
	}
}
