package livereload

import (
	"context"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	httpmiddleware "pingboard/internal/http"
)

func dialHub(t *testing.T, server *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func TestHub_Broadcast(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	defer hub.Close()

	server := httptest.NewServer(hub)
	defer server.Close()

	conn := dialHub(t, server)

	// the connection registers asynchronously with ServeHTTP
	require.Eventually(t, func() bool {
		hub.mu.Lock()
		defer hub.mu.Unlock()
		return len(hub.clients) == 1
	}, time.Second, 10*time.Millisecond)

	hub.Broadcast()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(time.Second)))
	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)
	require.Equal(t, "reload", string(msg))
}

func TestHub_UpgradesThroughRequestLogger(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	defer hub.Close()

	// the server mounts the hub behind the access-log middleware, whose
	// writer wrapper must still let the upgrade hijack the connection
	server := httptest.NewServer(httpmiddleware.RequestLogger(zerolog.Nop())(hub))
	defer server.Close()

	conn := dialHub(t, server)

	require.Eventually(t, func() bool {
		hub.mu.Lock()
		defer hub.mu.Unlock()
		return len(hub.clients) == 1
	}, time.Second, 10*time.Millisecond)

	hub.Broadcast()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(time.Second)))
	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)
	require.Equal(t, "reload", string(msg))
}

func TestHub_DisconnectReleasesPingLoop(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	defer hub.Close()

	server := httptest.NewServer(hub)
	defer server.Close()

	conn := dialHub(t, server)

	var done chan struct{}
	require.Eventually(t, func() bool {
		hub.mu.Lock()
		defer hub.mu.Unlock()
		for _, d := range hub.clients {
			done = d
		}
		return len(hub.clients) == 1
	}, time.Second, 10*time.Millisecond)

	require.NoError(t, conn.Close())

	// the read loop notices the disconnect and signals the ping goroutine
	// right away, not at the next ping tick
	require.Eventually(t, func() bool {
		select {
		case <-done:
			return true
		default:
			return false
		}
	}, time.Second, 10*time.Millisecond)

	hub.mu.Lock()
	defer hub.mu.Unlock()
	require.Empty(t, hub.clients)
}

func TestHub_CloseDisconnectsClients(t *testing.T) {
	hub := NewHub(zerolog.Nop())

	server := httptest.NewServer(hub)
	defer server.Close()

	conn := dialHub(t, server)

	require.Eventually(t, func() bool {
		hub.mu.Lock()
		defer hub.mu.Unlock()
		return len(hub.clients) == 1
	}, time.Second, 10*time.Millisecond)

	hub.Close()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(time.Second)))
	_, _, err := conn.ReadMessage()
	require.Error(t, err)
}

func TestWatcher_FiresOnWrite(t *testing.T) {
	dir := t.TempDir()

	var (
		mu    sync.Mutex
		paths []string
	)
	w, err := NewWatcher([]string{dir}, func(path string) {
		mu.Lock()
		defer mu.Unlock()
		paths = append(paths, path)
	}, zerolog.Nop())
	require.NoError(t, err)

	require.NoError(t, w.Start(context.Background()))
	defer w.Stop()

	target := filepath.Join(dir, "root.html")
	require.NoError(t, os.WriteFile(target, []byte("<html></html>"), 0o600))

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(paths) > 0
	}, 5*time.Second, 20*time.Millisecond)
}

func TestWatcher_DebouncesBursts(t *testing.T) {
	dir := t.TempDir()

	var (
		mu    sync.Mutex
		fires int
	)
	w, err := NewWatcher([]string{dir}, func(string) {
		mu.Lock()
		defer mu.Unlock()
		fires++
	}, zerolog.Nop())
	require.NoError(t, err)

	require.NoError(t, w.Start(context.Background()))
	defer w.Stop()

	target := filepath.Join(dir, "root.html")
	for i := 0; i < 5; i++ {
		require.NoError(t, os.WriteFile(target, []byte("<html></html>"), 0o600))
		time.Sleep(10 * time.Millisecond)
	}

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return fires >= 1
	}, 5*time.Second, 20*time.Millisecond)

	// the burst collapses into far fewer fires than writes
	time.Sleep(500 * time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	require.Less(t, fires, 5)
}

func TestWatcher_StopIsClean(t *testing.T) {
	w, err := NewWatcher([]string{t.TempDir()}, nil, zerolog.Nop())
	require.NoError(t, err)

	require.NoError(t, w.Start(context.Background()))
	w.Stop()
}
