/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

// Package store holds the contest's persistent records and the backends
// that read and write them.
package store

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound is returned when a user or question does not exist.
	ErrNotFound = errors.New("store: record not found")

	// ErrConflict is returned when a guarded update finds the record in a
	// different state than the caller expected.
	ErrConflict = errors.New("store: conflicting update")
)

// AnswerLogEntry records when a user solved a question.
type AnswerLogEntry struct {
	QuestionID int64     `bson:"questionId" json:"questionId" mapstructure:"questionId"`
	AnsweredAt time.Time `bson:"time" json:"time" mapstructure:"time"`
}

// HintRecord tracks which hints a user has opened on one question.
type HintRecord struct {
	QuestionID int64 `bson:"questionId" json:"questionId" mapstructure:"questionId"`
	Hint1Used  bool  `bson:"hint1Used" json:"hint1Used" mapstructure:"hint1Used"`
	Hint2Used  bool  `bson:"hint2Used" json:"hint2Used" mapstructure:"hint2Used"`
}

type User struct {
	Email             string           `bson:"email" json:"email" mapstructure:"email"`
	Name              string           `bson:"name" json:"name" mapstructure:"name"`
	Points            int64            `bson:"points" json:"points" mapstructure:"points"`
	QuestionsAnswered int64            `bson:"questionsAnswered" json:"questionsAnswered" mapstructure:"questionsAnswered"`
	Answers           []AnswerLogEntry `bson:"questionAnsweredTime" json:"questionAnsweredTime" mapstructure:"questionAnsweredTime"`
	Hints             []HintRecord     `bson:"-" json:"hints" mapstructure:"hints"`
}

// CurrentQuestion is the 1-based id of the question the user is working on.
func (u User) CurrentQuestion() int64 {
	return u.QuestionsAnswered + 1
}

// HintFor returns the user's hint record for a question. The second return
// value is false when no record exists yet, in which case a zero record for
// that question is returned.
func (u User) HintFor(questionID int64) (HintRecord, bool) {
	for _, h := range u.Hints {
		if h.QuestionID == questionID {
			return h, true
		}
	}

	return HintRecord{QuestionID: questionID}, false
}

// Hint is one of a question's optional hint texts.
type Hint struct {
	Text string `bson:"hint" json:"hint" mapstructure:"hint"`
	Used bool   `bson:"used" json:"used" mapstructure:"used"`
}

// Visit marks the first time a question was served. Hints unlock a fixed
// delay after VisitTime.
type Visit struct {
	Visited   bool       `bson:"visited" json:"visited" mapstructure:"visited"`
	VisitTime *time.Time `bson:"visitTime,omitempty" json:"visitTime,omitempty" mapstructure:"visitTime"`
}

type Question struct {
	ID             int64   `bson:"questionId" json:"questionId" mapstructure:"questionId"`
	Answer         string  `bson:"answer" json:"answer" mapstructure:"answer"`
	ImageURL       string  `bson:"imageUrl" json:"imageUrl" mapstructure:"imageUrl"`
	Points         int64   `bson:"points" json:"points" mapstructure:"points"`
	OriginalPoints int64   `bson:"originalpoints" json:"originalpoints" mapstructure:"originalpoints"`
	DecayFactor    float64 `bson:"dec_factor" json:"dec_factor" mapstructure:"dec_factor"`
	Hint1          Hint    `bson:"hint1" json:"hint1" mapstructure:"hint1"`
	Hint2          Hint    `bson:"hint2" json:"hint2" mapstructure:"hint2"`
	Visit          Visit   `bson:"visit" json:"visit" mapstructure:"visit"`
}

// Original returns the question's baseline value, falling back to the
// current value for records seeded without one.
func (q Question) Original() int64 {
	if q.OriginalPoints > 0 {
		return q.OriginalPoints
	}

	return q.Points
}

// UserDelta describes an update to a user. A nil pointer leaves that part
// of the record alone.
type UserDelta struct {
	AddPoints int64

	// Answer appends to the answer log and increments QuestionsAnswered.
	Answer *AnswerLogEntry

	// ExpectAnswered rejects the update with ErrConflict unless the stored
	// QuestionsAnswered equals it.
	ExpectAnswered *int64

	// Hint inserts or replaces the record for Hint.QuestionID.
	Hint *HintRecord
}

// QuestionDelta describes an update to a question.
type QuestionDelta struct {
	Points *int64

	// ExpectPoints rejects the update with ErrConflict unless the stored
	// points equal it.
	ExpectPoints *int64

	Visit *Visit

	// ConsumeHint marks hint 1 or 2 as used; zero leaves both alone.
	ConsumeHint int
}

// Store is the persistence contract the contest engine depends on.
type Store interface {
	GetUser(ctx context.Context, email string) (User, error)
	UpdateUser(ctx context.Context, email string, delta UserDelta) (User, error)
	GetQuestion(ctx context.Context, id int64) (Question, error)
	UpdateQuestion(ctx context.Context, id int64, delta QuestionDelta) (Question, error)
	ListUsersByPointsDesc(ctx context.Context) ([]User, error)
}

// Seeder is implemented by stores that can be provisioned from a Seed.
type Seeder interface {
	Seed(ctx context.Context, seed Seed) error
}
