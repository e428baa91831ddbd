package broadcast

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
)

const DefaultHeartbeat = 15 * time.Second

// SSEHandler streams hub events as server-sent events, with a comment line as heartbeat.
func SSEHandler(hub *Hub, heartbeat time.Duration, log *zap.Logger) http.Handler {
	if heartbeat <= 0 {
		heartbeat = DefaultHeartbeat
	}
	log = log.With(zap.String("component", "sse"))

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		flusher, ok := w.(http.Flusher)
		if !ok {
			http.Error(w, "streaming unsupported", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.Header().Set("X-Accel-Buffering", "no")
		w.WriteHeader(http.StatusOK)
		flusher.Flush()

		sub := hub.Subscribe()
		defer hub.Unsubscribe(sub)

		ticker := time.NewTicker(heartbeat)
		defer ticker.Stop()

		for {
			select {
			case <-r.Context().Done():
				return
			case <-ticker.C:
				if _, err := fmt.Fprint(w, ": heartbeat\n\n"); err != nil {
					return
				}
				flusher.Flush()
			case e, ok := <-sub.Events():
				if !ok {
					return
				}
				data, err := json.Marshal(e)
				if err != nil {
					log.Warn("encode event", zap.Error(err))
					continue
				}
				if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", e.Type, data); err != nil {
					return
				}
				flusher.Flush()
			}
		}
	})
}
