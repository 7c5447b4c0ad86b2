package station

import (
	"context"
	"math/rand"
	"time"

	"github.com/charging-platform/charge-point-simulator/internal/domain/ocpp201"
	"github.com/charging-platform/charge-point-simulator/internal/metrics"
)

// ATGConfig drives one connector's automatic transaction generator loop,
// field shape grounded on the teacher's transaction.ManagerConfig timeout/
// idle-bound knobs, billing fields dropped per the billing non-goal.
type ATGConfig struct {
	Enabled                        bool
	MinDelayBetweenTwoTransactions time.Duration
	MaxDelayBetweenTwoTransactions time.Duration
	ProbabilityOfStart             float64 // [0,1]
	MinDuration                    time.Duration
	MaxDuration                    time.Duration
	StopAfter                      time.Duration // 0 = run indefinitely
	IdTags                         []string
}

// StartATG launches one cooperative generator loop for every connector of
// the station when ATGConfig.Enabled is set and IdTags is non-empty,
// returning a cancel function that stops all of them. A running transaction always finishes its stop step before the
// loop observes cancellation, per spec §4.11.
func (s *Station) StartATG(cfg ATGConfig) context.CancelFunc {
	ctx, cancel := context.WithCancel(context.Background())
	s.atgCancel = cancel

	if !cfg.Enabled || len(cfg.IdTags) == 0 {
		return cancel
	}

	s.connMu.RLock()
	ids := make([]int, 0, len(s.connectors))
	for id := range s.connectors {
		ids = append(ids, id)
	}
	s.connMu.RUnlock()

	for _, connectorID := range ids {
		go s.atgLoop(ctx, connectorID, cfg)
	}
	return cancel
}

// StopATG cancels a running generator started by StartATG without
// affecting the rest of the station, exposed for the UI control plane's
// StopAutomaticTransactionGenerator procedure. Safe to call when no
// generator is running.
func (s *Station) StopATG() {
	if s.atgCancel != nil {
		s.atgCancel()
	}
}

func (s *Station) atgLoop(ctx context.Context, connectorID int, cfg ATGConfig) {
	deadline := time.Time{}
	if cfg.StopAfter > 0 {
		deadline = time.Now().Add(cfg.StopAfter)
	}

	for {
		if !deadline.IsZero() && time.Now().After(deadline) {
			return
		}

		if !sleepCancelable(ctx, randDuration(cfg.MinDelayBetweenTwoTransactions, cfg.MaxDelayBetweenTwoTransactions)) {
			return
		}

		if !deadline.IsZero() && time.Now().After(deadline) {
			return
		}

		if rand.Float64() >= cfg.ProbabilityOfStart {
			continue
		}

		idTag := cfg.IdTags[rand.Intn(len(cfg.IdTags))]
		s.atgStart(connectorID, idTag)

		// The hold duration and the stop step both run to completion even
		// if ctx is cancelled mid-transaction — only the scheduling sleep
		// above is interruptible, so a cancel never orphans an open
		// transaction.
		time.Sleep(randDuration(cfg.MinDuration, cfg.MaxDuration))
		s.atgStop(connectorID)

		select {
		case <-ctx.Done():
			return
		default:
		}
	}
}

func (s *Station) atgStart(connectorID int, idTag string) {
	metrics.TransactionsStarted.WithLabelValues(s.id).Inc()
	switch s.version {
	case OCPP16:
		s.startTransaction16(connectorID, idTag)
	case OCPP201:
		conn, ok := s.connectorFor(connectorID)
		if !ok || conn.InTransaction() || conn.Snapshot().Availability != AvailabilityOperative {
			return
		}
		tx := &Transaction{ID: NewRequestID(), ConnectorID: connectorID, IdTag: idTag, StartedAt: time.Now().UTC()}
		if conn.StartTransaction(tx) {
			s.announceTransactionEvent201(tx, ocpp201.TransactionEventStarted, ocpp201.TriggerReasonCablePluggedIn)
			_, _ = s.outbox.StatusNotification(connectorID, StatusCharging, s.reqTimeout)
		}
	}
}

func (s *Station) atgStop(connectorID int) {
	switch s.version {
	case OCPP16:
		s.stopTransaction16(connectorID, StopReasonLocal)
	case OCPP201:
		s.stopTransaction201(connectorID, StopReasonLocal, ocpp201.TriggerReasonStopAuthorized)
	}
}

func randDuration(min, max time.Duration) time.Duration {
	if max <= min {
		return min
	}
	return min + time.Duration(rand.Int63n(int64(max-min)))
}

// sleepCancelable sleeps for d, returning false early if ctx is cancelled.
func sleepCancelable(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
