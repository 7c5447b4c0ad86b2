package main

import (
	"context"

	"github.com/charging-platform/charge-point-simulator/internal/station"
	"github.com/charging-platform/charge-point-simulator/internal/station/auth"
)

// lazyRemoteAuthorizer breaks the construction-order cycle between
// auth.Pipeline (which needs a RemoteAuthorizer) and station.Station
// (which implements one, but only exists once its own Config — including
// the pipeline — has already been built). The factory wires the station in
// immediately after station.New returns, before Start is ever called.
type lazyRemoteAuthorizer struct {
	station *station.Station
}

func (r *lazyRemoteAuthorizer) Authorize(ctx context.Context, id auth.Identifier) (auth.Status, error) {
	if r.station == nil {
		return auth.StatusInvalid, nil
	}
	return r.station.Authorize(ctx, id)
}
