package worker_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/charging-platform/charge-point-simulator/internal/logger"
	"github.com/charging-platform/charge-point-simulator/internal/template"
	"github.com/charging-platform/charge-point-simulator/internal/worker"
)

type fakeStation struct {
	id      string
	stopped bool
}

func (f *fakeStation) ID() string                      { return f.id }
func (f *fakeStation) Start(ctx context.Context) error { return nil }
func (f *fakeStation) Stop()                           { f.stopped = true }

func newFakeFactory() worker.Factory {
	return func(tmpl *template.Template, index int) (worker.Station, error) {
		return &fakeStation{id: fmt.Sprintf("%s-%d", tmpl.BaseName, index)}, nil
	}
}

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New(logger.DefaultConfig())
	require.NoError(t, err)
	return log
}

func TestFixedPool_AddHashesByIndex(t *testing.T) {
	p := worker.NewFixedPool(2, newFakeFactory(), testLogger(t), nil, 0)
	tmpl := &template.Template{BaseName: "cp"}

	for i := 0; i < 4; i++ {
		_, err := p.Add(tmpl, i)
		require.NoError(t, err)
	}

	assert.Len(t, p.Stations(), 4)
}

func TestFixedPool_BroadcastAndStop(t *testing.T) {
	p := worker.NewFixedPool(1, newFakeFactory(), testLogger(t), nil, 0)
	tmpl := &template.Template{BaseName: "cp"}

	s, err := p.Add(tmpl, 0)
	require.NoError(t, err)

	received := make(chan worker.Event, 1)
	p.OnMessage(func(ev worker.Event) { received <- ev })
	require.NoError(t, p.Start(context.Background()))

	require.NoError(t, p.Broadcast("reset"))
	select {
	case ev := <-received:
		assert.Equal(t, s.ID(), ev.StationID)
		assert.Equal(t, "reset", ev.Payload)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for broadcast event")
	}

	require.NoError(t, p.Stop())
	assert.True(t, s.(*fakeStation).stopped)
}

func TestWorkerSetPool_SpawnsOnCapacity(t *testing.T) {
	p := worker.NewWorkerSetPool(1, newFakeFactory(), testLogger(t), nil, 0)
	tmpl := &template.Template{BaseName: "cp"}

	_, err := p.Add(tmpl, 0)
	require.NoError(t, err)
	_, err = p.Add(tmpl, 1)
	require.NoError(t, err)

	assert.Len(t, p.Stations(), 2)
}

func TestDynamicPool_GrowsUpToMax(t *testing.T) {
	p := worker.NewDynamicPool(2, 1, time.Minute, newFakeFactory(), testLogger(t), nil, 0)
	tmpl := &template.Template{BaseName: "cp"}

	for i := 0; i < 3; i++ {
		_, err := p.Add(tmpl, i)
		require.NoError(t, err)
	}

	assert.Len(t, p.Stations(), 3)
}
