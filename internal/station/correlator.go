package station

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/charging-platform/charge-point-simulator/internal/logger"
	"github.com/google/uuid"
)

// Correlator implements C3: it matches CallResult/CallError frames back to
// the outstanding Call that produced them, by message id. Grounded on the
// teacher's processor.go pendingRequests map + mutex + timeout-goroutine
// pattern; here the station is the one awaiting responses instead of the
// gateway.
type Correlator struct {
	mu       sync.Mutex
	pending  map[string]*PendingRequest
	serialMu sync.Mutex
	serial   map[string]chan struct{} // actions marked at-most-one-in-flight

	logger *logger.Logger
}

// serialActions lists the OCPP actions held to at most one in flight at a
// time per session, keyed by action name. Only BootNotification is listed;
// StatusNotification calls are not serialized, here or in the station layer.
var serialActions = map[string]bool{
	"BootNotification": true,
}

func NewCorrelator(log *logger.Logger) *Correlator {
	return &Correlator{
		pending: make(map[string]*PendingRequest),
		serial:  make(map[string]chan struct{}),
		logger:  log,
	}
}

// NewRequestID returns a <=36 char unique id suitable for both OCPP
// versions' messageId.
func NewRequestID() string {
	return uuid.NewString()
}

// BeginRequest registers a pending request and returns the channel that
// receives its eventual CorrelatorResult. If actionName is serial and
// already in flight, the call blocks (cooperatively, via a tiny channel
// wait) until the prior one completes — spec §4.3's
// at-most-one-in-flight-per-action policy.
func (c *Correlator) BeginRequest(id, actionName string, payload interface{}, timeout time.Duration) *PendingRequest {
	if serialActions[actionName] {
		c.serialMu.Lock()
		if gate, ok := c.serial[actionName]; ok {
			c.serialMu.Unlock()
			<-gate // wait for the prior in-flight call of this action
		} else {
			c.serialMu.Unlock()
		}
		c.serialMu.Lock()
		c.serial[actionName] = make(chan struct{})
		c.serialMu.Unlock()
	}

	pr := &PendingRequest{
		ID:         id,
		ActionName: actionName,
		Payload:    payload,
		Deadline:   time.Now().Add(timeout),
		ResponseCh: make(chan CorrelatorResult, 1),
		CreatedAt:  time.Now(),
	}

	c.mu.Lock()
	c.pending[id] = pr
	c.mu.Unlock()

	return pr
}

// releaseSerial closes and clears the gate for a serial action so the next
// waiter (if any) can proceed.
func (c *Correlator) releaseSerial(actionName string) {
	if !serialActions[actionName] {
		return
	}
	c.serialMu.Lock()
	if gate, ok := c.serial[actionName]; ok {
		close(gate)
		delete(c.serial, actionName)
	}
	c.serialMu.Unlock()
}

// Resolve completes a pending request with a CallResult payload.
func (c *Correlator) Resolve(id string, payload json.RawMessage) {
	c.complete(id, CorrelatorResult{Payload: payload})
}

// Reject completes a pending request with an error (CallError, timeout, or
// disconnect).
func (c *Correlator) Reject(id string, err error) {
	c.complete(id, CorrelatorResult{Err: err})
}

func (c *Correlator) complete(id string, result CorrelatorResult) {
	c.mu.Lock()
	pr, ok := c.pending[id]
	if ok {
		delete(c.pending, id)
	}
	c.mu.Unlock()

	if !ok {
		c.logger.Warnf("unmatched response id %s, dropping", id)
		return
	}

	pr.ResponseCh <- result
	close(pr.ResponseCh)
	c.releaseSerial(pr.ActionName)
}

// Timeout scans for and rejects any pending request past its deadline; a
// small ticker in Session/Station calls this periodically (grounded on the
// teacher's cleanupRoutine/cleanupExpiredRequests).
func (c *Correlator) Timeout() {
	now := time.Now()
	var expired []*PendingRequest

	c.mu.Lock()
	for id, pr := range c.pending {
		if now.After(pr.Deadline) {
			expired = append(expired, pr)
			delete(c.pending, id)
		}
	}
	c.mu.Unlock()

	for _, pr := range expired {
		pr.ResponseCh <- CorrelatorResult{Err: fmt.Errorf("%w: action %s", ErrTimeout, pr.ActionName)}
		close(pr.ResponseCh)
		c.releaseSerial(pr.ActionName)
	}
}

// RejectAll rejects every outstanding request with ErrDisconnected — called
// on session close, per spec §4.3.
func (c *Correlator) RejectAll() {
	c.mu.Lock()
	all := c.pending
	c.pending = make(map[string]*PendingRequest)
	c.mu.Unlock()

	for _, pr := range all {
		pr.ResponseCh <- CorrelatorResult{Err: ErrDisconnected}
		close(pr.ResponseCh)
		c.releaseSerial(pr.ActionName)
	}
}

// Count reports the number of in-flight requests, for diagnostics/metrics.
func (c *Correlator) Count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}
