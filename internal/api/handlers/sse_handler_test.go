package handlers_test

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

	"github.com/zatekoja/servicemarket/internal/adapters/events"
	"github.com/zatekoja/servicemarket/internal/api/handlers"
	"github.com/zatekoja/servicemarket/internal/domain/entities"
	"github.com/zatekoja/servicemarket/internal/domain/providers"
)

// readEvent returns the next "event:" name and its data line
func readEvent(t *testing.T, r *bufio.Reader) (string, string) {
	t.Helper()
	var name, data string
	for {
		line, err := r.ReadString('\n')
		require.NoError(t, err)
		line = strings.TrimRight(line, "\n")
		switch {
		case strings.HasPrefix(line, "event: "):
			name = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			data = strings.TrimPrefix(line, "data: ")
		case line == "" && name != "":
			return name, data
		}
	}
}

func TestSSEHandler_StreamMyEvents(t *testing.T) {
	bus := events.NewLocalEventBus()
	defer bus.Close()
	handler := handlers.NewSSEHandler(bus)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := entities.Identity{UserID: "cust-1", Role: entities.RoleCustomer}
		handler.StreamMyEvents(w, r.WithContext(entities.ContextWithIdentity(r.Context(), id)))
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, server.URL, nil)
	require.NoError(t, err)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))
	assert.Equal(t, "no-cache", resp.Header.Get("Cache-Control"))

	reader := bufio.NewReader(resp.Body)
	name, data := readEvent(t, reader)
	assert.Equal(t, "connected", name)
	assert.Contains(t, data, `"user_id":"cust-1"`)
	assert.Equal(t, 1, handler.GetClientCount())

	// Another user's notification must not reach this stream.
	require.NoError(t, bus.Publish(context.Background(), providers.GetUserChannel("cust-2"), &entities.Notification{
		ID: "n-0", UserID: "cust-2", Type: entities.NotificationBookingDeclined,
	}))
	require.NoError(t, bus.Publish(context.Background(), providers.GetUserChannel("cust-1"), &entities.Notification{
		ID: "n-1", UserID: "cust-1", Type: entities.NotificationBookingAccepted, BookingID: "b-1",
	}))

	name, data = readEvent(t, reader)
	assert.Equal(t, string(entities.NotificationBookingAccepted), name)
	assert.Contains(t, data, `"booking_id":"b-1"`)

	cancel()
	assert.Eventually(t, func() bool { return handler.GetClientCount() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestSSEHandler_RequiresIdentity(t *testing.T) {
	handler := handlers.NewSSEHandler(events.NewLocalEventBus())

	req := httptest.NewRequest(http.MethodGet, "/api/me/events", nil)
	w := httptest.NewRecorder()
	handler.StreamMyEvents(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), `"type":"UNAUTHORIZED"`)
}
