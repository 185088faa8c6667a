/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package contest

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestQuestionIDJSON(t *testing.T) {
	b, err := json.Marshal(QuestionView{QuestionID: 7, ImageURL: "/q/7.png", Points: 40})
	if err != nil {
		t.Fatal(err)
	}
	if want := `{"questionId":"7","imageUrl":"/q/7.png","points":40}`; string(b) != want {
		t.Errorf("marshal = %s, want %s", b, want)
	}

	for _, in := range []string{`7`, `"7"`} {
		var id QuestionID
		if err := json.Unmarshal([]byte(in), &id); err != nil || id != 7 {
			t.Errorf("unmarshal %s = %d, %v", in, id, err)
		}
	}

	var id QuestionID
	if err := json.Unmarshal([]byte(`"seven"`), &id); err == nil {
		t.Error("unmarshal of non-numeric id succeeded")
	}
}

func TestSubmissionText(t *testing.T) {
	tests := []struct {
		raw  string
		want string
		ok   bool
	}{
		{`"paris"`, "paris", true},
		{`42`, "42", true},
		{`true`, "true", true},
		{`""`, "", true},
		{`null`, "", false},
		{``, "", false},
		{`{"a":1}`, "", false},
		{`[1]`, "", false},
	}

	for _, tt := range tests {
		got, ok := Submission{Answer: json.RawMessage(tt.raw)}.Text()
		if got != tt.want || ok != tt.ok {
			t.Errorf("Text(%s) = %q, %t; want %q, %t", tt.raw, got, ok, tt.want, tt.ok)
		}
	}
}

func TestRequestDecoding(t *testing.T) {
	var req Request
	raw := `{"command":"answer","email":"a@example.com","answer":{"id":2,"answer":42}}`
	if err := json.Unmarshal([]byte(raw), &req); err != nil {
		t.Fatal(err)
	}

	if req.Command != CommandAnswer || req.Answer == nil || req.Answer.ID == nil || *req.Answer.ID != 2 {
		t.Fatalf("decoded %+v", req)
	}
	if text, ok := req.Answer.Text(); !ok || text != "42" {
		t.Errorf("answer text = %q, %t", text, ok)
	}
}

func TestReplyFor(t *testing.T) {
	tests := []struct {
		err  error
		want any
	}{
		{newError(InvalidState, "Question already answered"), ErrorReply{Error: "Question already answered"}},
		{newError(ContestClosed, "The contest has ended"), MessageReply{Message: "The contest has ended"}},
		{newError(HintLocked, "Hints unlock in 1h0m0s"), MessageReply{Message: "Hints unlock in 1h0m0s"}},
		{unavailable(errors.New("timeout")), ErrorReply{Error: "The contest is temporarily unavailable, please try again"}},
		{errors.New("boom"), ErrorReply{Error: "An error occurred"}},
	}

	for _, tt := range tests {
		if got := replyFor(tt.err); got != tt.want {
			t.Errorf("replyFor(%v) = %#v, want %#v", tt.err, got, tt.want)
		}
	}
}
