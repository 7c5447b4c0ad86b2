package broadcast_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/charging-platform/charge-point-simulator/internal/broadcast"
	"github.com/charging-platform/charge-point-simulator/internal/logger"
)

func newTestLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New(logger.DefaultConfig())
	require.NoError(t, err)
	return log
}

func TestHub_PublishFansOutToAllSubscribers(t *testing.T) {
	hub := broadcast.NewHub(newTestLogger(t))

	id1, ch1 := hub.Subscribe()
	_, ch2 := hub.Subscribe()

	ev := broadcast.Event{Type: "station.status", StationID: "CP001", Payload: "Charging", Timestamp: time.Now()}
	require.NoError(t, hub.Publish(ev))

	for _, ch := range []<-chan broadcast.Event{ch1, ch2} {
		select {
		case got := <-ch:
			assert.Equal(t, ev.StationID, got.StationID)
			assert.Equal(t, ev.Type, got.Type)
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for published event")
		}
	}

	hub.Unsubscribe(id1)
	_, stillOpen := <-ch1
	assert.False(t, stillOpen)
}

func TestHub_DropsOnFullSubscriberBuffer(t *testing.T) {
	hub := broadcast.NewHub(newTestLogger(t))
	_, ch := hub.Subscribe()

	for i := 0; i < 300; i++ {
		_ = hub.Publish(broadcast.Event{Type: "spam", StationID: "CP001"})
	}

	assert.NotPanics(t, func() {
		for len(ch) > 0 {
			<-ch
		}
	})
}

func TestHub_CloseClosesAllSubscribers(t *testing.T) {
	hub := broadcast.NewHub(newTestLogger(t))
	_, ch := hub.Subscribe()

	require.NoError(t, hub.Close())

	_, stillOpen := <-ch
	assert.False(t, stillOpen)
}
