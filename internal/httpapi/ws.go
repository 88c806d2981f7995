// Copyright (c) 2019 The Eacred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package httpapi

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/mcqueen256/hasher-agg/pool"
)

// pingInterval keeps idle connections from being reaped by
// intermediate proxies.
const pingInterval = 30 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// statusHub fans pool.Snapshot updates out to every connected
// /ws/status client (SPEC_FULL.md §6).
type statusHub struct {
	mu      sync.Mutex
	clients map[*websocket.Conn]chan pool.Snapshot
}

func newStatusHub() *statusHub {
	return &statusHub{clients: make(map[*websocket.Conn]chan pool.Snapshot)}
}

func (h *statusHub) add(conn *websocket.Conn) chan pool.Snapshot {
	ch := make(chan pool.Snapshot, 4)
	h.mu.Lock()
	h.clients[conn] = ch
	h.mu.Unlock()
	return ch
}

func (h *statusHub) remove(conn *websocket.Conn) {
	h.mu.Lock()
	if ch, ok := h.clients[conn]; ok {
		close(ch)
		delete(h.clients, conn)
	}
	h.mu.Unlock()
}

// broadcast pushes snap to every connected client's buffered channel,
// dropping the update for any client whose buffer is already full
// rather than blocking the caller (the coordinator's lock is held by
// the caller of this path).
func (h *statusHub) broadcast(snap pool.Snapshot) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for conn, ch := range h.clients {
		select {
		case ch <- snap:
		default:
			log.Debugf("ws/status: dropping update for slow client %s", conn.RemoteAddr())
		}
	}
}

// handleWebsocketStatus upgrades the connection and streams every
// Snapshot produced by a job/submit acceptance, plus an initial
// snapshot on connect.
func (s *Server) handleWebsocketStatus(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Debugf("ws/status: upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	ch := s.hub.add(conn)
	defer s.hub.remove(conn)

	if err := conn.WriteJSON(s.coordinator.Snapshot()); err != nil {
		return
	}

	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	// Drain client-initiated messages on a separate goroutine purely to
	// notice disconnects; /ws/status is a server-push-only feed.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case snap, ok := <-ch:
			if !ok {
				return
			}
			if err := conn.WriteJSON(snap); err != nil {
				return
			}
		case <-ticker.C:
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-closed:
			return
		}
	}
}
