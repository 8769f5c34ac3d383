package connectivity

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestStreamPushesCurrentStateAndTransitions(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	monitor := NewMonitor(nil, time.Second, nil)
	srv := httptest.NewServer(http.HandlerFunc(NewHandler(monitor).Stream))
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)

	var first Transition
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(time.Second)))
	require.NoError(t, conn.ReadJSON(&first))
	assert.Equal(t, Offline, first.To)
	assert.Equal(t, "current", first.Reason)

	monitor.Set(Online, "probe")

	var next Transition
	require.NoError(t, conn.ReadJSON(&next))
	assert.Equal(t, Offline, next.From)
	assert.Equal(t, Online, next.To)
	assert.Equal(t, "probe", next.Reason)

	require.NoError(t, conn.Close())
	require.Eventually(t, func() bool {
		monitor.mu.RLock()
		defer monitor.mu.RUnlock()
		return len(monitor.listeners) == 0
	}, time.Second, 5*time.Millisecond)
}
