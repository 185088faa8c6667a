/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package store

import (
	"context"
	"slices"
	"strings"
	"sync"
)

// Memory is a Store kept entirely in process memory. Insertion order of
// users is preserved so listing is deterministic.
type Memory struct {
	mu        sync.RWMutex
	users     map[string]*User
	order     []string
	questions map[int64]*Question
}

func NewMemory() *Memory {
	return &Memory{
		users:     make(map[string]*User),
		questions: make(map[int64]*Question),
	}
}

func cloneUser(u *User) User {
	out := *u
	out.Answers = slices.Clone(u.Answers)
	out.Hints = slices.Clone(u.Hints)

	return out
}

func cloneQuestion(q *Question) Question {
	out := *q
	if q.Visit.VisitTime != nil {
		t := *q.Visit.VisitTime
		out.Visit.VisitTime = &t
	}

	return out
}

// PutUser inserts or replaces a user.
func (m *Memory) PutUser(u User) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.users[u.Email]; !ok {
		m.order = append(m.order, u.Email)
	}

	c := cloneUser(&u)
	m.users[u.Email] = &c
}

// PutQuestion inserts or replaces a question.
func (m *Memory) PutQuestion(q Question) {
	m.mu.Lock()
	defer m.mu.Unlock()

	c := cloneQuestion(&q)
	m.questions[q.ID] = &c
}

func (m *Memory) Seed(ctx context.Context, seed Seed) error {
	for _, u := range seed.Users {
		m.PutUser(u)
	}
	for _, q := range seed.Questions {
		m.PutQuestion(q)
	}

	return ctx.Err()
}

func (m *Memory) GetUser(ctx context.Context, email string) (User, error) {
	if err := ctx.Err(); err != nil {
		return User{}, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	u, ok := m.users[email]
	if !ok {
		return User{}, ErrNotFound
	}

	return cloneUser(u), nil
}

func (m *Memory) UpdateUser(ctx context.Context, email string, delta UserDelta) (User, error) {
	if err := ctx.Err(); err != nil {
		return User{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[email]
	if !ok {
		return User{}, ErrNotFound
	}

	if delta.ExpectAnswered != nil && *delta.ExpectAnswered != u.QuestionsAnswered {
		return User{}, ErrConflict
	}

	u.Points += delta.AddPoints

	if delta.Answer != nil {
		u.QuestionsAnswered++
		u.Answers = append(u.Answers, *delta.Answer)
	}

	if delta.Hint != nil {
		i := slices.IndexFunc(u.Hints, func(h HintRecord) bool {
			return h.QuestionID == delta.Hint.QuestionID
		})
		if i >= 0 {
			u.Hints[i] = *delta.Hint
		} else {
			u.Hints = append(u.Hints, *delta.Hint)
		}
	}

	return cloneUser(u), nil
}

func (m *Memory) GetQuestion(ctx context.Context, id int64) (Question, error) {
	if err := ctx.Err(); err != nil {
		return Question{}, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	q, ok := m.questions[id]
	if !ok {
		return Question{}, ErrNotFound
	}

	return cloneQuestion(q), nil
}

func (m *Memory) UpdateQuestion(ctx context.Context, id int64, delta QuestionDelta) (Question, error) {
	if err := ctx.Err(); err != nil {
		return Question{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	q, ok := m.questions[id]
	if !ok {
		return Question{}, ErrNotFound
	}

	if delta.ExpectPoints != nil && *delta.ExpectPoints != q.Points {
		return Question{}, ErrConflict
	}

	if delta.Points != nil {
		q.Points = *delta.Points
	}

	if delta.Visit != nil {
		q.Visit = *delta.Visit
		if delta.Visit.VisitTime != nil {
			t := *delta.Visit.VisitTime
			q.Visit.VisitTime = &t
		}
	}

	switch delta.ConsumeHint {
	case 1:
		q.Hint1.Used = true
	case 2:
		q.Hint2.Used = true
	}

	return cloneQuestion(q), nil
}

// ListUsersByPointsDesc orders by points, then by email.
func (m *Memory) ListUsersByPointsDesc(ctx context.Context) ([]User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	users := make([]User, 0, len(m.order))
	for _, email := range m.order {
		users = append(users, cloneUser(m.users[email]))
	}
	m.mu.RUnlock()

	slices.SortStableFunc(users, func(a, b User) int {
		if a.Points != b.Points {
			if a.Points > b.Points {
				return -1
			}
			return 1
		}
		return strings.Compare(a.Email, b.Email)
	})

	return users, nil
}
