package station

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/charging-platform/charge-point-simulator/internal/logger"
)

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New(logger.DefaultConfig())
	require.NoError(t, err)
	return log
}

func TestCorrelator_ResolveDeliversPayload(t *testing.T) {
	c := NewCorrelator(testLogger(t))
	id := NewRequestID()
	pr := c.BeginRequest(id, "Heartbeat", nil, time.Second)
	assert.Equal(t, 1, c.Count())

	c.Resolve(id, []byte(`{"ok":true}`))

	result := <-pr.ResponseCh
	require.NoError(t, result.Err)
	assert.JSONEq(t, `{"ok":true}`, string(result.Payload))
	assert.Equal(t, 0, c.Count())
}

func TestCorrelator_RejectDeliversError(t *testing.T) {
	c := NewCorrelator(testLogger(t))
	id := NewRequestID()
	pr := c.BeginRequest(id, "Heartbeat", nil, time.Second)

	c.Reject(id, ErrDisconnected)

	result := <-pr.ResponseCh
	assert.ErrorIs(t, result.Err, ErrDisconnected)
}

func TestCorrelator_ResolveUnknownIDIsDropped(t *testing.T) {
	c := NewCorrelator(testLogger(t))
	// No panic, no send on a closed/nonexistent channel.
	c.Resolve("does-not-exist", []byte(`{}`))
	assert.Equal(t, 0, c.Count())
}

func TestCorrelator_TimeoutRejectsExpiredRequests(t *testing.T) {
	c := NewCorrelator(testLogger(t))
	id := NewRequestID()
	pr := c.BeginRequest(id, "Heartbeat", nil, time.Millisecond)

	time.Sleep(5 * time.Millisecond)
	c.Timeout()

	result := <-pr.ResponseCh
	assert.ErrorIs(t, result.Err, ErrTimeout)
	assert.Equal(t, 0, c.Count())
}

func TestCorrelator_RejectAllDisconnectsEverything(t *testing.T) {
	c := NewCorrelator(testLogger(t))
	pr1 := c.BeginRequest(NewRequestID(), "Heartbeat", nil, time.Second)
	pr2 := c.BeginRequest(NewRequestID(), "MeterValues", nil, time.Second)

	c.RejectAll()

	assert.ErrorIs(t, (<-pr1.ResponseCh).Err, ErrDisconnected)
	assert.ErrorIs(t, (<-pr2.ResponseCh).Err, ErrDisconnected)
	assert.Equal(t, 0, c.Count())
}

func TestCorrelator_SerialActionBlocksUntilReleased(t *testing.T) {
	c := NewCorrelator(testLogger(t))
	id1 := NewRequestID()
	c.BeginRequest(id1, "BootNotification", nil, time.Second)

	done := make(chan struct{})
	go func() {
		// Must wait for id1's BootNotification to resolve before this
		// returns, since BootNotification is a serial action.
		c.BeginRequest(NewRequestID(), "BootNotification", nil, time.Second)
		close(done)
	}()

	select {
	case <-done:
		t.Fatal("second BootNotification began before the first was released")
	case <-time.After(20 * time.Millisecond):
	}

	c.Resolve(id1, []byte(`{}`))

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("second BootNotification never unblocked")
	}
}
