/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Seednode/contestbox/contest"
	"github.com/Seednode/contestbox/store"
	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	mem := store.NewMemory()
	mem.PutUser(store.User{Email: "alice@example.com", Name: "Alice"})
	mem.PutUser(store.User{Email: contest.DefaultSystemAccount, Name: "Admin", Points: 500})
	mem.PutQuestion(store.Question{
		ID:             1,
		Answer:         "paris",
		ImageURL:       "/q/1.png",
		Points:         100,
		OriginalPoints: 100,
		DecayFactor:    0.05,
	})

	cfg := &Config{idleTimeout: time.Minute, store: "memory"}
	ctrl := contest.New(contest.Options{
		Store:         mem,
		HintUnlock:    time.Hour,
		SystemAccount: contest.DefaultSystemAccount,
	})

	mux := httprouter.New()
	errs := make(chan error, 8)
	registerContest(cfg, ctrl, mux, errs)

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	return srv
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = conn.Close() })

	return conn
}

func roundTrip(t *testing.T, conn *websocket.Conn, req string) map[string]any {
	t.Helper()

	if err := conn.WriteMessage(websocket.TextMessage, []byte(req)); err != nil {
		t.Fatal(err)
	}

	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	var reply map[string]any
	if err := conn.ReadJSON(&reply); err != nil {
		t.Fatal(err)
	}

	return reply
}

func TestSocketContestFlow(t *testing.T) {
	srv := newTestServer(t)
	conn := dial(t, srv)

	reply := roundTrip(t, conn, `{"command":"connect","email":"alice@example.com"}`)
	question, ok := reply["question"].(map[string]any)
	if !ok || question["questionId"] != "1" || question["points"] != float64(100) {
		t.Fatalf("connect reply = %v", reply)
	}
	if board := reply["leaderboard"].([]any); len(board) != 1 {
		t.Errorf("leaderboard = %v, want only alice", board)
	}

	reply = roundTrip(t, conn, `{"command":"answer","email":"alice@example.com","answer":{"id":"1","answer":"rome"}}`)
	if reply["answerStatus"] != "incorrect" {
		t.Errorf("wrong answer reply = %v", reply)
	}

	reply = roundTrip(t, conn, `{"command":"answer","email":"alice@example.com","answer":{"id":1,"answer":"paris"}}`)
	if reply["answerStatus"] != "correct" || reply["totalPoints"] != float64(100) {
		t.Errorf("correct answer reply = %v", reply)
	}
	if reply["question"] != nil {
		t.Errorf("next question = %v, want null", reply["question"])
	}

	reply = roundTrip(t, conn, `not json`)
	if !strings.HasPrefix(reply["error"].(string), "Invalid message format") {
		t.Errorf("malformed reply = %v", reply)
	}

	resp, err := http.Get(srv.URL + "/leaderboard")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	var board contest.LeaderboardUpdate
	if err := json.NewDecoder(resp.Body).Decode(&board); err != nil {
		t.Fatal(err)
	}
	want := contest.LeaderboardEntry{Name: "Alice", Points: 100, Rank: 1}
	if len(board.Leaderboard) != 1 || board.Leaderboard[0] != want {
		t.Errorf("leaderboard = %+v", board.Leaderboard)
	}
}

func TestSocketBroadcastsToPeers(t *testing.T) {
	srv := newTestServer(t)
	first, second := dial(t, srv), dial(t, srv)

	roundTrip(t, first, `{"command":"connect","email":"alice@example.com"}`)

	if err := second.WriteMessage(websocket.TextMessage, []byte(`{"command":"connect","email":"alice@example.com"}`)); err != nil {
		t.Fatal(err)
	}

	_ = first.SetReadDeadline(time.Now().Add(5 * time.Second))

	var update map[string]any
	if err := first.ReadJSON(&update); err != nil {
		t.Fatal(err)
	}
	if _, ok := update["leaderboard"]; !ok || len(update) != 1 {
		t.Errorf("peer update = %v, want leaderboard only", update)
	}
}

func TestClientSend(t *testing.T) {
	c := &Client{send: make(chan any, 1)}

	if err := c.Send("first"); err != nil {
		t.Fatal(err)
	}
	if err := c.Send("second"); !errors.Is(err, errClientSlow) {
		t.Errorf("full buffer: err = %v, want %v", err, errClientSlow)
	}

	c.close()
	c.close()

	if err := c.Send("third"); !errors.Is(err, errClientClosed) {
		t.Errorf("closed client: err = %v, want %v", err, errClientClosed)
	}
}

func TestServeQR(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/qr")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); ct != "image/png" {
		t.Errorf("Content-Type = %q", ct)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.HasPrefix(body, []byte("\x89PNG")) {
		t.Error("body is not a png")
	}
}
