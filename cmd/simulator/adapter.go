package main

import (
	"context"

	"github.com/charging-platform/charge-point-simulator/internal/station"
)

// hostedStation wraps one station.Station so it satisfies worker.Station
// while also driving the automatic transaction generator on start, since
// the worker pool only knows how to start/stop a generic Station and has
// no business owning ATG policy itself.
type hostedStation struct {
	*station.Station
	hashID       string
	templateName string
	index        int
	atgCfg       station.ATGConfig
}

func (h *hostedStation) Start(ctx context.Context) error {
	if err := h.Station.Start(ctx); err != nil {
		return err
	}
	if h.atgCfg.Enabled {
		h.Station.StartATG(h.atgCfg)
	}
	return nil
}

func (h *hostedStation) Stop() {
	h.Station.Stop()
}
