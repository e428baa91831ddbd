package broadcast

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = wsPongWait * 9 / 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// WSHandler streams hub events as JSON text frames. Inbound frames are read only to
// notice disconnects.
func WSHandler(hub *Hub, log *zap.Logger) http.Handler {
	log = log.With(zap.String("component", "ws"))

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Warn("failed to upgrade to websocket", zap.Error(err))
			return
		}
		defer conn.Close()

		sub := hub.Subscribe()
		defer hub.Unsubscribe(sub)

		closed := make(chan struct{})
		go func() {
			defer close(closed)
			conn.SetReadLimit(512)
			_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
			conn.SetPongHandler(func(string) error {
				return conn.SetReadDeadline(time.Now().Add(wsPongWait))
			})
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					log.Debug("websocket disconnected", zap.String("subscriber", sub.ID), zap.Error(err))
					return
				}
			}
		}()

		ping := time.NewTicker(wsPingPeriod)
		defer ping.Stop()

		for {
			select {
			case <-closed:
				return
			case <-r.Context().Done():
				return
			case <-ping.C:
				_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
				if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					return
				}
			case e, ok := <-sub.Events():
				if !ok {
					_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, ""))
					return
				}
				_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
				if err := conn.WriteJSON(e); err != nil {
					log.Debug("websocket write error", zap.String("subscriber", sub.ID), zap.Error(err))
					return
				}
			}
		}
	})
}
