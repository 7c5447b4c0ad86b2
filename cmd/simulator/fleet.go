package main

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/charging-platform/charge-point-simulator/internal/broadcast"
	"github.com/charging-platform/charge-point-simulator/internal/logger"
	"github.com/charging-platform/charge-point-simulator/internal/metrics"
	"github.com/charging-platform/charge-point-simulator/internal/station"
	"github.com/charging-platform/charge-point-simulator/internal/template"
	"github.com/charging-platform/charge-point-simulator/internal/uiserver"
	"github.com/charging-platform/charge-point-simulator/internal/worker"
)

// fleet implements uiserver.Fleet on top of one worker.Pool, the loaded
// template set, and the broadcast bus, which is the only place these three
// actually meet — internal/uiserver stays transport-only and never learns
// about worker.Pool or broadcast.Bus directly.
type fleet struct {
	log       *logger.Logger
	pool      worker.Pool
	bus       broadcast.Bus
	templates map[string]*template.Template

	mu        sync.Mutex
	nextIndex map[string]int
	hosted    map[string]*hostedStation // hashID -> station

	broadcastTimeout time.Duration
}

func newFleet(log *logger.Logger, pool worker.Pool, bus broadcast.Bus, templates map[string]*template.Template, broadcastTimeout time.Duration) *fleet {
	return &fleet{
		log:              log,
		pool:             pool,
		bus:              bus,
		templates:        templates,
		nextIndex:        make(map[string]int),
		hosted:           make(map[string]*hostedStation),
		broadcastTimeout: broadcastTimeout,
	}
}

func (f *fleet) ListTemplates() []string {
	names := make([]string, 0, len(f.templates))
	for name := range f.templates {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (f *fleet) ListStations() []uiserver.StationInfo {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]uiserver.StationInfo, 0, len(f.hosted))
	for hashID, h := range f.hosted {
		out = append(out, uiserver.StationInfo{
			HashID:       hashID,
			TemplateName: h.templateName,
			State:        string(h.Station.State()),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].HashID < out[j].HashID })
	return out
}

// AddStations instantiates count new stations from templateName but leaves
// them Stopped — StartChargingStation (or StartSimulator) is what actually
// dials the CSMS, keeping "add to the fleet" and "connect" as distinct
// procedures the way the spec lists them separately.
func (f *fleet) AddStations(ctx context.Context, templateName string, count int) ([]string, error) {
	tmpl, ok := f.templates[templateName]
	if !ok {
		return nil, fmt.Errorf("fleet: unknown template %q", templateName)
	}

	f.mu.Lock()
	ids := make([]string, 0, count)
	var addErr error
	for i := 0; i < count; i++ {
		index := f.nextIndex[templateName]
		f.nextIndex[templateName] = index + 1

		st, err := f.pool.Add(tmpl, index)
		if err != nil {
			addErr = fmt.Errorf("fleet: add station %d of template %q: %w", index, templateName, err)
			break
		}
		h, ok := st.(*hostedStation)
		if !ok {
			addErr = fmt.Errorf("fleet: factory returned unexpected station type for template %q", templateName)
			break
		}
		f.hosted[h.hashID] = h
		ids = append(ids, h.hashID)
	}
	f.mu.Unlock()

	f.refreshGauges()
	return ids, addErr
}

func (f *fleet) DeleteStations(ctx context.Context, hashIDs []string) uiserver.BatchResult {
	return f.forEach(hashIDs, func(h *hostedStation) error {
		h.Stop()
		f.mu.Lock()
		delete(f.hosted, h.hashID)
		f.mu.Unlock()
		return nil
	})
}

func (f *fleet) StartStations(ctx context.Context, hashIDs []string) uiserver.BatchResult {
	return f.forEach(hashIDs, func(h *hostedStation) error {
		return h.Start(ctx)
	})
}

func (f *fleet) StopStations(ctx context.Context, hashIDs []string) uiserver.BatchResult {
	return f.forEach(hashIDs, func(h *hostedStation) error {
		h.Stop()
		return nil
	})
}

func (f *fleet) OpenConnection(ctx context.Context, hashID string) error {
	h, ok := f.lookup(hashID)
	if !ok {
		return fmt.Errorf("fleet: unknown station %q", hashID)
	}
	err := h.Start(ctx)
	f.refreshGauges()
	return err
}

func (f *fleet) CloseConnection(ctx context.Context, hashID string) error {
	h, ok := f.lookup(hashID)
	if !ok {
		return fmt.Errorf("fleet: unknown station %q", hashID)
	}
	h.Stop()
	f.refreshGauges()
	return nil
}

func (f *fleet) StartTransaction(ctx context.Context, hashID string, connectorID int, idTag string) error {
	h, ok := f.lookup(hashID)
	if !ok {
		return fmt.Errorf("fleet: unknown station %q", hashID)
	}
	return h.Station.RequestTransactionStart(connectorID, idTag)
}

func (f *fleet) StopTransaction(ctx context.Context, hashID string, connectorID int) error {
	h, ok := f.lookup(hashID)
	if !ok {
		return fmt.Errorf("fleet: unknown station %q", hashID)
	}
	return h.Station.RequestTransactionStop(connectorID)
}

func (f *fleet) StartATG(ctx context.Context, hashIDs []string) uiserver.BatchResult {
	return f.forEach(hashIDs, func(h *hostedStation) error {
		if h.atgCfg.Enabled {
			h.Station.StartATG(h.atgCfg)
		}
		return nil
	})
}

func (f *fleet) StopATG(ctx context.Context, hashIDs []string) uiserver.BatchResult {
	return f.forEach(hashIDs, func(h *hostedStation) error {
		h.Station.StopATG()
		return nil
	})
}

// SetSupervisionURL checks that hashID exists, logs the requested URL and
// reports success. It stores nothing: session.Config.URL is fixed when the
// station's session is constructed, so the station keeps dialing its
// original supervision URL, now and on every later start.
func (f *fleet) SetSupervisionURL(ctx context.Context, hashID, url string) error {
	h, ok := f.lookup(hashID)
	if !ok {
		return fmt.Errorf("fleet: unknown station %q", hashID)
	}
	f.log.Warnf("fleet: SetSupervisionUrl for %s to %s is not applied; the station keeps its configured supervision URL", hashID, url)
	_ = h
	return nil
}

func (f *fleet) StartSimulator(ctx context.Context) error {
	if err := f.pool.Start(ctx); err != nil {
		return err
	}
	f.mu.Lock()
	toStart := make([]*hostedStation, 0, len(f.hosted))
	for _, h := range f.hosted {
		toStart = append(toStart, h)
	}
	f.mu.Unlock()

	for _, h := range toStart {
		if h.Station.State() == station.StateStopped {
			if err := h.Start(ctx); err != nil {
				f.log.Errorf("fleet: start %s failed: %v", h.hashID, err)
			}
		}
	}
	f.refreshGauges()
	return nil
}

func (f *fleet) StopSimulator(ctx context.Context) error {
	f.mu.Lock()
	toStop := make([]*hostedStation, 0, len(f.hosted))
	for _, h := range f.hosted {
		toStop = append(toStop, h)
	}
	f.mu.Unlock()

	for _, h := range toStop {
		h.Stop()
	}
	f.refreshGauges()
	return f.pool.Stop()
}

// refreshGauges recomputes the fleet-size/running-count metrics; called
// after any operation that adds, removes, starts, or stops a station.
// Callers must not hold f.mu.
func (f *fleet) refreshGauges() {
	f.mu.Lock()
	total := len(f.hosted)
	running := 0
	for _, h := range f.hosted {
		if h.Station.State() == station.StateRunning {
			running++
		}
	}
	f.mu.Unlock()

	metrics.StationsTotal.Set(float64(total))
	metrics.StationsRunning.Set(float64(running))
}

func (f *fleet) lookup(hashID string) (*hostedStation, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	h, ok := f.hosted[hashID]
	return h, ok
}

// forEach applies fn to every hashID present in the fleet, collecting
// which ones succeeded/failed — the synchronous half of the spec's
// broadcast contract; fanning this out across process boundaries via the
// broadcast bus instead of direct calls is future work once the worker
// pool itself spans more than one host.
func (f *fleet) forEach(hashIDs []string, fn func(*hostedStation) error) uiserver.BatchResult {
	result := uiserver.BatchResult{}
	for _, id := range hashIDs {
		h, ok := f.lookup(id)
		if !ok {
			result.HashIDsFailed = append(result.HashIDsFailed, id)
			continue
		}
		if err := fn(h); err != nil {
			f.log.Errorf("fleet: operation on %s failed: %v", id, err)
			result.HashIDsFailed = append(result.HashIDsFailed, id)
			continue
		}
		result.HashIDsSucceeded = append(result.HashIDsSucceeded, id)
	}
	f.refreshGauges()
	return result
}
