package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/charging-platform/charge-point-simulator/internal/logger"
	"github.com/charging-platform/charge-point-simulator/internal/template"
)

// DynamicPool starts with no units and spawns one, up to maxWorkers,
// whenever every existing unit's station count reaches queueDepth; units
// that sit empty for idleTTL are retired.
type DynamicPool struct {
	baseRegistry
	factory     Factory
	log         *logger.Logger
	maxWorkers  int
	queueDepth  int
	idleTTL     time.Duration
	handler     func(Event)

	mu         sync.Mutex
	units      []*dynUnit
	running    bool
	ctx        context.Context
	cancelIdle context.CancelFunc
}

type dynUnit struct {
	*unit
	idleSince time.Time
}

// NewDynamicPool builds a pool that grows lazily up to maxWorkers, spawning
// a new unit once every existing one holds queueDepth stations, and retires
// empty units after idleTTL.
func NewDynamicPool(maxWorkers, queueDepth int, idleTTL time.Duration, factory Factory, log *logger.Logger, registry Registry, registryTTL time.Duration) *DynamicPool {
	if maxWorkers < 1 {
		maxWorkers = 1
	}
	if queueDepth < 1 {
		queueDepth = 1
	}
	return &DynamicPool{
		baseRegistry: baseRegistry{registry: registry, ttl: registryTTL},
		factory:      factory,
		log:          log,
		maxWorkers:   maxWorkers,
		queueDepth:   queueDepth,
		idleTTL:      idleTTL,
		ctx:          context.Background(),
	}
}

func (p *DynamicPool) Add(tmpl *template.Template, index int) (Station, error) {
	s, err := p.factory(tmpl, index)
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	u, err := p.unitWithRoomLocked()
	if err != nil {
		p.mu.Unlock()
		return nil, err
	}
	fresh := u.count() == 0
	u.add(s)
	u.idleSince = time.Time{}
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

// unitWithRoomLocked returns a unit below queueDepth, spawning one if every
// unit is at capacity and maxWorkers hasn't been reached, or the least
// loaded unit otherwise (grown over capacity rather than rejecting the
// station). Caller holds p.mu.
func (p *DynamicPool) unitWithRoomLocked() (*dynUnit, error) {
	var least *dynUnit
	for _, u := range p.units {
		if u.count() < p.queueDepth {
			return u, nil
		}
		if least == nil || u.count() < least.count() {
			least = u
		}
	}
	if len(p.units) < p.maxWorkers {
		u := &dynUnit{unit: newUnit(fmt.Sprintf("dyn-%d", len(p.units)), p.log)}
		p.units = append(p.units, u)
		return u, nil
	}
	if least != nil {
		return least, nil
	}
	return nil, errNoCapacity
}

func (p *DynamicPool) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return nil
	}
	p.running = true
	p.ctx = ctx
	for _, u := range p.units {
		u.handler = p.handler
		go u.run(ctx)
	}
	p.mu.Unlock()

	idleCtx, cancel := context.WithCancel(ctx)
	p.cancelIdle = cancel
	go p.retireIdleLoop(idleCtx)
	return nil
}

func (p *DynamicPool) retireIdleLoop(ctx context.Context) {
	interval := p.idleTTL / 4
	if interval <= 0 {
		interval = 30 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.retireIdle()
		}
	}
}

func (p *DynamicPool) retireIdle() {
	if p.idleTTL <= 0 {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	kept := p.units[:0]
	for _, u := range p.units {
		if u.count() == 0 {
			if u.idleSince.IsZero() {
				u.idleSince = time.Now()
			} else if time.Since(u.idleSince) >= p.idleTTL && len(kept) > 0 {
				// keep at least one unit alive; retire this one
				u.stopAll()
				p.log.Infof("worker %s: retired after %s idle", u.id, p.idleTTL)
				continue
			}
		} else {
			u.idleSince = time.Time{}
		}
		kept = append(kept, u)
	}
	p.units = kept
}

func (p *DynamicPool) Stop() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.running {
		return nil
	}
	p.running = false
	if p.cancelIdle != nil {
		p.cancelIdle()
	}
	for _, u := range p.units {
		u.stopAll()
	}
	return nil
}

func (p *DynamicPool) Broadcast(payload interface{}) error {
	p.mu.Lock()
	units := append([]*dynUnit(nil), p.units...)
	p.mu.Unlock()
	for _, u := range units {
		u.broadcast(payload)
	}
	return nil
}

func (p *DynamicPool) OnMessage(handler func(Event)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.handler = handler
	for _, u := range p.units {
		u.handler = handler
	}
}

func (p *DynamicPool) Stations() []Station {
	p.mu.Lock()
	units := append([]*dynUnit(nil), p.units...)
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
