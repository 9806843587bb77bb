package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
)

const writeTimeout = 5 * time.Second

// streamCourses sends the current collection snapshot and then every newer
// one until the client goes away. Slow clients skip intermediate snapshots.
func (h *handler) streamCourses(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{OriginPatterns: h.origins})
	if err != nil {
		slog.Warn("websocket accept failed", "error", err)
		return
	}
	defer conn.CloseNow()

	ctx := conn.CloseRead(r.Context())
	snaps, cancel := h.catalog.Subscribe()
	defer cancel()

	slog.Debug("snapshot stream opened", "remote", r.RemoteAddr)
	for {
		select {
		case <-ctx.Done():
			return
		case snap, ok := <-snaps:
			if !ok {
				conn.Close(websocket.StatusGoingAway, "stream closed")
				return
			}
			wctx, done := context.WithTimeout(ctx, writeTimeout)
			err := wsjson.Write(wctx, conn, snap)
			done()
			if err != nil {
				slog.Debug("snapshot stream closed", "remote", r.RemoteAddr, "error", err)
				return
			}
		}
	}
}
