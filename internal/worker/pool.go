// Package worker implements C12: the three worker-pool models that host
// running stations, sharing one external contract regardless of model,
// generalized from the teacher's fixed WorkerCount/workerRoutine precedent.
package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/charging-platform/charge-point-simulator/internal/logger"
	"github.com/charging-platform/charge-point-simulator/internal/storage"
	"github.com/charging-platform/charge-point-simulator/internal/template"
)

// Station is the surface a worker needs to own a simulated charge point;
// station.Station satisfies it.
type Station interface {
	ID() string
	Start(ctx context.Context) error
	Stop()
}

// Factory builds one Station from a template and an instance index. It is
// supplied by the caller (cmd/simulator) since building a station.Config
// requires the session/configstore/auth wiring the worker package has no
// business owning.
type Factory func(tmpl *template.Template, index int) (Station, error)

// Event is one message a hosted station's execution unit emits; workers
// fan these out to whatever OnMessage handler is registered, the same shape
// C14's broadcast hub consumes.
type Event struct {
	StationID string
	Payload   interface{}
}

// Pool is the external contract all three models share (spec §4.12).
type Pool interface {
	Add(tmpl *template.Template, index int) (Station, error)
	Start(ctx context.Context) error
	Stop() error
	Broadcast(payload interface{}) error
	OnMessage(handler func(Event))
	Stations() []Station
}

// unit is one execution unit: its own goroutine, its own set of hosted
// stations, scheduled cooperatively — grounded on the teacher's
// workerRoutine processing one station's messages at a time off a shared
// channel rather than spinning a goroutine per message.
type unit struct {
	id       string
	log      *logger.Logger
	mu       sync.Mutex
	stations map[string]Station
	inbox    chan Event
	handler  func(Event)
	cancel   context.CancelFunc
}

func newUnit(id string, log *logger.Logger) *unit {
	return &unit{
		id:       id,
		log:      log,
		stations: make(map[string]Station),
		inbox:    make(chan Event, 256),
	}
}

func (u *unit) run(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	u.cancel = cancel
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-u.inbox:
			if u.handler != nil {
				u.handler(ev)
			}
		}
	}
}

func (u *unit) add(s Station) {
	u.mu.Lock()
	u.stations[s.ID()] = s
	u.mu.Unlock()
}

func (u *unit) count() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return len(u.stations)
}

func (u *unit) stopAll() {
	u.mu.Lock()
	defer u.mu.Unlock()
	for _, s := range u.stations {
		s.Stop()
	}
	if u.cancel != nil {
		u.cancel()
	}
}

func (u *unit) broadcast(payload interface{}) {
	u.mu.Lock()
	ids := make([]string, 0, len(u.stations))
	for id := range u.stations {
		ids = append(ids, id)
	}
	u.mu.Unlock()
	for _, id := range ids {
		select {
		case u.inbox <- Event{StationID: id, Payload: payload}:
		default:
			u.log.Warnf("worker %s: inbox full, dropped broadcast for station %s", u.id, id)
		}
	}
}

// Registry optionally records which worker owns which station, for
// multi-supervisor deployments sharing one template set.
type Registry = storage.Registry

type baseRegistry struct {
	registry Registry
	ttl      time.Duration
}

func (b baseRegistry) record(ctx context.Context, workerID, stationID string) {
	if b.registry == nil {
		return
	}
	_ = b.registry.SetOwner(ctx, stationID, workerID, b.ttl)
}

func (b baseRegistry) forget(ctx context.Context, stationID string) {
	if b.registry == nil {
		return
	}
	_ = b.registry.DeleteOwner(ctx, stationID)
}

var errNoCapacity = fmt.Errorf("worker: no capacity available")
