/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/julienschmidt/httprouter"
)

func TestMetricsEndpoint(t *testing.T) {
	srv := newTestServer(t)

	conn := dial(t, srv)
	roundTrip(t, conn, `{"command":"connect","email":"alice@example.com"}`)
	// The reader handles one message at a time, so this reply means the
	// first command has been counted.
	roundTrip(t, conn, `{"command":"connect","email":"alice@example.com"}`)

	mux := httprouter.New()
	registerProfileHandlers(&Config{profile: true}, mux)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	body, err := io.ReadAll(rec.Body)
	if err != nil {
		t.Fatal(err)
	}

	for _, want := range []string{
		"contestbox_sessions_open",
		`contestbox_commands_total{command="connect",outcome="ok"}`,
		"go_goroutines",
	} {
		if !strings.Contains(string(body), want) {
			t.Errorf("metrics output lacks %s", want)
		}
	}
}
