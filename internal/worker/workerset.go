package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/charging-platform/charge-point-simulator/internal/logger"
	"github.com/charging-platform/charge-point-simulator/internal/template"
)

// WorkerSetPool hosts up to capacity stations per unit, spawning a new unit
// once the current ones are full.
type WorkerSetPool struct {
	baseRegistry
	factory  Factory
	log      *logger.Logger
	capacity int
	handler  func(Event)

	mu      sync.Mutex
	units   []*unit
	running bool
	ctx     context.Context
}

// NewWorkerSetPool builds a pool where each unit hosts at most capacity
// stations.
func NewWorkerSetPool(capacity int, factory Factory, log *logger.Logger, registry Registry, registryTTL time.Duration) *WorkerSetPool {
	if capacity < 1 {
		capacity = 1
	}
	return &WorkerSetPool{
		baseRegistry: baseRegistry{registry: registry, ttl: registryTTL},
		factory:      factory,
		log:          log,
		capacity:     capacity,
		ctx:          context.Background(),
	}
}

func (p *WorkerSetPool) Add(tmpl *template.Template, index int) (Station, error) {
	s, err := p.factory(tmpl, index)
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	u := p.unitWithRoomLocked()
	fresh := u.count() == 0
	u.add(s)
	running := p.running
	ctx := p.ctx
	p.mu.Unlock()

	if running && fresh {
		u.handler = p.handler
		go u.run(ctx)
	}

	p.record(context.Background(), u.id, s.ID())
	return s, nil
}

// unitWithRoomLocked returns a unit with capacity to spare, spawning a new
// one if every existing unit is full. Caller holds p.mu.
func (p *WorkerSetPool) unitWithRoomLocked() *unit {
	for _, u := range p.units {
		if u.count() < p.capacity {
			return u
		}
	}
	u := newUnit(fmt.Sprintf("set-%d", len(p.units)), p.log)
	p.units = append(p.units, u)
	return u
}

func (p *WorkerSetPool) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.running {
		return nil
	}
	p.running = true
	p.ctx = ctx
	for _, u := range p.units {
		u.handler = p.handler
		go u.run(ctx)
	}
	return nil
}

func (p *WorkerSetPool) Stop() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.running {
		return nil
	}
	p.running = false
	for _, u := range p.units {
		u.stopAll()
	}
	return nil
}

func (p *WorkerSetPool) Broadcast(payload interface{}) error {
	p.mu.Lock()
	units := append([]*unit(nil), p.units...)
	p.mu.Unlock()
	for _, u := range units {
		u.broadcast(payload)
	}
	return nil
}

func (p *WorkerSetPool) OnMessage(handler func(Event)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.handler = handler
	for _, u := range p.units {
		u.handler = handler
	}
}

func (p *WorkerSetPool) Stations() []Station {
	p.mu.Lock()
	units := append([]*unit(nil), p.units...)
	p.mu.Unlock()

	var out []Station
	for _, u := range units {
		u.mu.Lock()
		for _, s := range u.stations {
			out = append(out, s)
		}
		u.mu.Unlock()
	}
	return out
}
