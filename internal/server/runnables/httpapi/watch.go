package httpapi

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	// The API binds to loopback for a local tool; browser-origin checks
	// would only reject the playground's own page.
	CheckOrigin: func(*http.Request) bool { return true },
}

const watchWriteTimeout = 10 * time.Second

// handleWatch upgrades to a websocket and streams session snapshots: one
// immediately, then one after every state change.
func (r *Runner) handleWatch(w http.ResponseWriter, req *http.Request) {
	updates, err := r.api.Watch(req.Context())
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}

	conn, err := upgrader.Upgrade(w, req, nil)
	if err != nil {
		r.logger.Debug("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	// Reads are discarded, but the read loop surfaces client disconnects.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	snap, err := r.api.Snapshot(req.Context())
	if err != nil {
		return
	}
	if err := r.writeSnapshot(conn, buildSessionPayload(snap)); err != nil {
		return
	}

	for {
		select {
		case snap, ok := <-updates:
			if !ok {
				return
			}
			if err := r.writeSnapshot(conn, buildSessionPayload(snap)); err != nil {
				r.logger.Debug("websocket write failed", "error", err)
				return
			}
		case <-req.Context().Done():
			return
		}
	}
}

func (r *Runner) writeSnapshot(conn *websocket.Conn, payload sessionPayload) error {
	if err := conn.SetWriteDeadline(time.Now().Add(watchWriteTimeout)); err != nil {
		return err
	}
	return conn.WriteJSON(payload)
}
