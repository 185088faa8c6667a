/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package contest

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
)

const (
	CommandConnect = "connect"
	CommandAnswer  = "answer"
	CommandHint1   = "hint1"
	CommandHint2   = "hint2"

	StatusCorrect   = "correct"
	StatusIncorrect = "incorrect"
)

// QuestionID is written as a JSON string and read from either a string or
// a number.
type QuestionID int64

func (id QuestionID) MarshalJSON() ([]byte, error) {
	return json.Marshal(strconv.FormatInt(int64(id), 10))
}

func (id *QuestionID) UnmarshalJSON(b []byte) error {
	s := string(bytes.Trim(b, `"`))

	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return fmt.Errorf("question id %s: %w", b, err)
	}
	*id = QuestionID(n)

	return nil
}

// Request is one inbound message.
type Request struct {
	Command string      `json:"command"`
	Email   string      `json:"email"`
	Answer  *Submission `json:"answer,omitempty"`
}

type Submission struct {
	ID     *QuestionID     `json:"id"`
	Answer json.RawMessage `json:"answer"`
}

// Text returns the submitted answer as a string: JSON strings verbatim,
// any other scalar by its literal text.
func (s Submission) Text() (string, bool) {
	raw := bytes.TrimSpace(s.Answer)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return "", false
	}

	if raw[0] == '"' {
		var text string
		if err := json.Unmarshal(raw, &text); err != nil {
			return "", false
		}
		return text, true
	}

	if raw[0] == '{' || raw[0] == '[' {
		return "", false
	}

	return string(raw), true
}

type LeaderboardEntry struct {
	Name   string `json:"name"`
	Points int64  `json:"points"`
	Rank   int    `json:"rank"`
}

// QuestionView is a question as one participant sees it; Points already
// reflects that participant's hints.
type QuestionView struct {
	QuestionID QuestionID `json:"questionId"`
	ImageURL   string     `json:"imageUrl"`
	Points     int64      `json:"points"`
}

type ConnectReply struct {
	Leaderboard []LeaderboardEntry `json:"leaderboard"`
	Question    *QuestionView      `json:"question"`
	TotalPoints int64              `json:"totalPoints"`
}

type CorrectReply struct {
	AnswerStatus string             `json:"answerStatus"`
	Leaderboard  []LeaderboardEntry `json:"leaderboard"`
	Question     *QuestionView      `json:"question"`
	TotalPoints  int64              `json:"totalPoints"`
}

type IncorrectReply struct {
	AnswerStatus string `json:"answerStatus"`
}

type HintReply struct {
	Hint1  string `json:"hint1,omitempty"`
	Hint2  string `json:"hint2,omitempty"`
	Points int64  `json:"points"`
}

type ErrorReply struct {
	Error string `json:"error"`
}

type MessageReply struct {
	Message string `json:"message"`
}

type LeaderboardUpdate struct {
	Leaderboard []LeaderboardEntry `json:"leaderboard"`
}

type QuestionUpdate struct {
	UpdatedQuestion QuestionView `json:"updatedQuestion"`
}

// replyFor renders a command failure for the client.
func replyFor(err error) any {
	var e *Error
	if !errors.As(err, &e) {
		return ErrorReply{Error: "An error occurred"}
	}

	if e.Informational() {
		return MessageReply{Message: e.Message}
	}

	return ErrorReply{Error: e.Message}
}
