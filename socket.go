/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/Seednode/contestbox/contest"
	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
	"github.com/skip2/go-qrcode"
)

const (
	maxMessageSize = 1 << 20
	sendBuffer     = 32
	writeWait      = 10 * time.Second
)

var (
	errClientClosed = errors.New("client closed")
	errClientSlow   = errors.New("client send buffer full")
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Client is one websocket participant. Outbound messages are queued on
// send and written by writePump, so Send never blocks the caller.
type Client struct {
	conn   *websocket.Conn
	remote string

	mu     sync.Mutex
	send   chan any
	closed bool
}

func (c *Client) Send(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return errClientClosed
	}

	select {
	case c.send <- v:
		return nil
	default:
		return errClientSlow
	}
}

func (c *Client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

func (c *Client) readPump(ctx context.Context, cfg *Config, ctrl *contest.Controller) {
	defer func() {
		ctrl.Disconnect(c)
		c.close()
		_ = c.conn.Close()

		logf(cfg, "SOCKET: Closed connection from %s", c.remote)
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(cfg.idleTimeout))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(cfg.idleTimeout))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logf(cfg, "SOCKET: Read from %s failed: %v", c.remote, err)
			}
			return
		}

		ctrl.Handle(ctx, c, raw)
	}
}

func (c *Client) writePump(pingPeriod time.Duration) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func serveSocket(cfg *Config, ctrl *contest.Controller) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logf(cfg, "SOCKET: Upgrade for %s failed: %v", realIP(r), err)
			return
		}

		client := &Client{
			conn:   conn,
			remote: realIP(r),
			send:   make(chan any, sendBuffer),
		}

		logf(cfg, "SOCKET: Opened connection from %s", client.remote)

		go client.writePump(cfg.idleTimeout * 9 / 10)
		client.readPump(r.Context(), cfg, ctrl)
	}
}

func serveLeaderboard(cfg *Config, ctrl *contest.Controller, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		startTime := time.Now()

		board, err := ctrl.Leaderboard(r.Context())
		if err != nil {
			logf(cfg, "SERVE: Leaderboard for %s failed: %v", realIP(r), err)
			http.Error(w, "leaderboard unavailable", http.StatusServiceUnavailable)
			return
		}

		data, err := json.Marshal(contest.LeaderboardUpdate{Leaderboard: board})
		if err != nil {
			errs <- err

			return
		}

		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.Header().Set("Cache-Control", "no-store")
		securityHeaders(cfg, w)

		written, err := w.Write(data)
		if err != nil {
			errs <- err

			return
		}

		logf(cfg, "SERVE: Leaderboard (%s) to %s in %s",
			humanReadableSize(int64(written)),
			realIP(r),
			time.Since(startTime).Round(time.Microsecond),
		)
	}
}

// serveQR renders a PNG QR code pointing at the contest landing page.
func serveQR(cfg *Config) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		scheme := cfg.scheme()
		if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
			scheme = proto
		}

		url := scheme + "://" + r.Host + cfg.prefix + "/"

		const qrSize = 320
		png, err := qrcode.Encode(url, qrcode.Medium, qrSize)
		if err != nil {
			http.Error(w, "qr generation failed", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "image/png")
		securityHeaders(cfg, w)
		_, _ = w.Write(png)
	}
}

func registerContest(cfg *Config, ctrl *contest.Controller, mux *httprouter.Router, errs chan<- error) {
	mux.GET(cfg.prefix+"/ws", serveSocket(cfg, ctrl))
	mux.GET(cfg.prefix+"/leaderboard", serveLeaderboard(cfg, ctrl, errs))
	mux.GET(cfg.prefix+"/qr", serveQR(cfg))
}
