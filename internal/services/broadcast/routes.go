package broadcast

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/NordCoder/Vigil/internal/obs"
)

// Mount registers the push endpoints on mux.
func Mount(mux *http.ServeMux, hub *Hub, heartbeat time.Duration, log *zap.Logger) {
	mux.Handle("GET /v1/events", obs.HTTPHandler(SSEHandler(hub, heartbeat, log), "events.sse"))
	mux.Handle("GET /v1/ws", WSHandler(hub, log))
}
