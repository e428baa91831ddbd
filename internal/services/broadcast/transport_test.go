package broadcast

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/NordCoder/Vigil/internal/domain/event"
)

func newServer(t *testing.T, hub *Hub) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	Mount(mux, hub, time.Hour, zap.NewNop())
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func waitSubscribers(t *testing.T, hub *Hub, n int) {
	t.Helper()
	require.Eventually(t, func() bool { return hub.Len() == n }, 2*time.Second, 10*time.Millisecond)
}

func TestSSEStream(t *testing.T) {
	hub := NewHub(8, zap.NewNop())
	srv := newServer(t, hub)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/v1/events", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	waitSubscribers(t, hub, 1)
	require.NoError(t, hub.Publish(ctx, pageEvent(7)))

	var (
		names []string
		datas []string
	)
	sc := bufio.NewScanner(resp.Body)
	for sc.Scan() && len(datas) < 2 {
		line := sc.Text()
		switch {
		case strings.HasPrefix(line, "event: "):
			names = append(names, strings.TrimPrefix(line, "event: "))
		case strings.HasPrefix(line, "data: "):
			datas = append(datas, strings.TrimPrefix(line, "data: "))
		}
	}
	require.Len(t, datas, 2)
	assert.Equal(t, []string{"connected", "page_update"}, names)

	var e event.Event
	require.NoError(t, json.Unmarshal([]byte(datas[1]), &e))
	assert.Equal(t, int64(7), e.Page.PageID)

	cancel()
	waitSubscribers(t, hub, 0)
}

func TestWebSocketStream(t *testing.T) {
	hub := NewHub(8, zap.NewNop())
	srv := newServer(t, hub)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/v1/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)

	var first event.Event
	require.NoError(t, conn.ReadJSON(&first))
	assert.Equal(t, event.TypeConnected, first.Type)

	waitSubscribers(t, hub, 1)
	require.NoError(t, hub.Publish(context.Background(), pageEvent(9)))

	var next event.Event
	require.NoError(t, conn.ReadJSON(&next))
	assert.Equal(t, event.TypePageUpdate, next.Type)
	assert.Equal(t, int64(9), next.Page.PageID)

	require.NoError(t, conn.Close())
	waitSubscribers(t, hub, 0)
}
