package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/charging-platform/charge-point-simulator/internal/logger"
	"github.com/charging-platform/charge-point-simulator/internal/template"
)

// FixedPool hosts stations across N fixed worker units; a station always
// lands on unit[index % N], so repeated Add calls for the same index are
// idempotent about placement.
type FixedPool struct {
	baseRegistry
	factory Factory
	log     *logger.Logger
	units   []*unit
	handler func(Event)

	mu      sync.Mutex
	running bool
}

// NewFixedPool builds a pool of n fixed units.
func NewFixedPool(n int, factory Factory, log *logger.Logger, registry Registry, registryTTL time.Duration) *FixedPool {
	if n < 1 {
		n = 1
	}
	units := make([]*unit, n)
	for i := range units {
		units[i] = newUnit(fmt.Sprintf("fixed-%d", i), log)
	}
	return &FixedPool{
		baseRegistry: baseRegistry{registry: registry, ttl: registryTTL},
		factory:      factory,
		log:          log,
		units:        units,
	}
}

func (p *FixedPool) Add(tmpl *template.Template, index int) (Station, error) {
	s, err := p.factory(tmpl, index)
	if err != nil {
		return nil, err
	}
	u := p.units[index%len(p.units)]
	u.add(s)
	p.record(context.Background(), u.id, s.ID())
	return s, nil
}

func (p *FixedPool) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.running {
		return nil
	}
	p.running = true
	for _, u := range p.units {
		u.handler = p.handler
		go u.run(ctx)
	}
	return nil
}

func (p *FixedPool) Stop() error {
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

func (p *FixedPool) Broadcast(payload interface{}) error {
	for _, u := range p.units {
		u.broadcast(payload)
	}
	return nil
}

func (p *FixedPool) OnMessage(handler func(Event)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.handler = handler
	for _, u := range p.units {
		u.handler = handler
	}
}

func (p *FixedPool) Stations() []Station {
	var out []Station
	for _, u := range p.units {
		u.mu.Lock()
		for _, s := range u.stations {
			out = append(out, s)
		}
		u.mu.Unlock()
	}
	return out
}
