package hub

import (
	"bufio"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"assetgraph/internal/service"
)

func readLine(t *testing.T, r *bufio.Reader) string {
	t.Helper()
	line, err := r.ReadString('\n')
	require.NoError(t, err)
	return strings.TrimRight(line, "\n")
}

func TestHubStreamsEvents(t *testing.T) {
	bus := service.NewEventBus()
	h := New(nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	stopped := make(chan error, 1)
	go func() { stopped <- h.Run(ctx, bus) }()

	srv := httptest.NewServer(h)
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	body := bufio.NewReader(resp.Body)
	assert.Equal(t, ": connected", readLine(t, body))
	assert.Equal(t, "", readLine(t, body))

	require.Eventually(t, func() bool { return h.ClientCount() == 1 }, time.Second, 10*time.Millisecond)

	bus.Publish(service.Event{
		Type:    service.EventClassCreated,
		Payload: map[string]string{"class": "Router"},
	})
	assert.Equal(t, "event: class_created", readLine(t, body))
	assert.JSONEq(t,
		`{"type":"class_created","payload":{"class":"Router"}}`,
		strings.TrimPrefix(readLine(t, body), "data: "))

	// Stopping the hub ends every stream
	cancel()
	require.NoError(t, <-stopped)
	for {
		if _, err := body.ReadString('\n'); err != nil {
			break
		}
	}
	assert.Equal(t, 0, h.ClientCount())
}

func TestHubRejectsClientsAfterShutdown(t *testing.T) {
	h := New(nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, h.Run(ctx, service.NewEventBus()))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/events", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestHubKeepAlive(t *testing.T) {
	bus := service.NewEventBus()
	h := New(nil).WithKeepAlive(20 * time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go h.Run(ctx, bus)

	srv := httptest.NewServer(h)
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	body := bufio.NewReader(resp.Body)
	assert.Equal(t, ": connected", readLine(t, body))
	assert.Equal(t, "", readLine(t, body))
	assert.Equal(t, ": keepalive", readLine(t, body))
}
