// Package station implements the per-station OCPP engine: C3 correlator,
// C5 connector model, C10 lifecycle FSM, and the C11 automatic transaction
// generator that runs on top of it. One Station owns exactly one Session,
// one ConfigStore, one AuthCache, one LocalAuthList, and one CertStore; it
// is never touched by more than one goroutine tree outside its own.
package station

import (
	"encoding/json"
	"sync"
	"time"
)

// OCPPVersion selects the protocol variant a station speaks.
type OCPPVersion string

const (
	OCPP16  OCPPVersion = "1.6"
	OCPP201 OCPPVersion = "2.0.1"
)

// LifecycleState is C10's state machine vocabulary.
type LifecycleState string

const (
	StateStopped      LifecycleState = "Stopped"
	StateStarting     LifecycleState = "Starting"
	StateRegistering  LifecycleState = "Registering"
	StateRunning      LifecycleState = "Running"
	StateReconnecting LifecycleState = "Reconnecting"
	StateStopping     LifecycleState = "Stopping"
)

// ConnectorAvailability mirrors spec §3's Operative/Inoperative pair.
type ConnectorAvailability string

const (
	AvailabilityOperative   ConnectorAvailability = "Operative"
	AvailabilityInoperative ConnectorAvailability = "Inoperative"
)

// ConnectorStatus is the unified per-connector status vocabulary shared by
// both protocol versions (OCPP 2.0.1's ConnectorStatusType is coarser;
// connectorStatusToOCPP201 maps these values onto it).
type ConnectorStatus string

const (
	StatusAvailable     ConnectorStatus = "Available"
	StatusPreparing     ConnectorStatus = "Preparing"
	StatusCharging      ConnectorStatus = "Charging"
	StatusSuspendedEV   ConnectorStatus = "SuspendedEV"
	StatusSuspendedEVSE ConnectorStatus = "SuspendedEVSE"
	StatusFinishing     ConnectorStatus = "Finishing"
	StatusReserved      ConnectorStatus = "Reserved"
	StatusUnavailable   ConnectorStatus = "Unavailable"
	StatusFaulted       ConnectorStatus = "Faulted"
)

// StopReason is the unified transaction-stop reason vocabulary.
type StopReason string

const (
	StopReasonLocal          StopReason = "Local"
	StopReasonRemote         StopReason = "Remote"
	StopReasonEVDisconnected StopReason = "EVDisconnected"
	StopReasonOther          StopReason = "Other"
)

// Transaction holds the lifecycle state of one charging session.
type Transaction struct {
	ID             string // integer string for 1.6, uuid for 2.0.1 (<=36 chars)
	ConnectorID    int
	IdTag          string
	StartedAt      time.Time
	StoppedAt      *time.Time
	EnergyAtStart  int
	EnergyRegister int
	StopReason     StopReason
	SeqNo          int // 2.0.1 TransactionEvent monotonic sequence
}

// SampledValueTemplate is one measurand/unit pair a connector can carry in
// SampleTemplate; Outbox.MeterValues does not read it and always reports
// Energy.Active.Import.Register.
type SampledValueTemplate struct {
	Measurand string
	Unit      string
}

// ChargingProfile is kept opaque beyond stack level/purpose for ordering.
type ChargingProfile struct {
	ID         int
	StackLevel int
	Purpose    string
	Raw        interface{}
}

// Connector is C5's per-connector/EVSE state.
type Connector struct {
	mu sync.Mutex

	ID             int
	Availability   ConnectorAvailability
	Status         ConnectorStatus
	Transaction    *Transaction
	SampleTemplate []SampledValueTemplate
	Profiles       []ChargingProfile // ordered by stack level, highest first
	pendingAvail   *ConnectorAvailability
}

// NewConnector builds an Available/Operative connector with id ≥ 1. Id 0 is
// represented by the Station itself and is never constructed here.
func NewConnector(id int) *Connector {
	return &Connector{
		ID:           id,
		Availability: AvailabilityOperative,
		Status:       StatusAvailable,
	}
}

// InTransaction reports whether a transaction is currently open, guarding
// spec §3's invariant that id 0 and Available/Unavailable/Faulted/Reserved
// connectors never carry one.
func (c *Connector) InTransaction() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.Transaction != nil
}

// Snapshot returns a shallow copy safe to read without holding the lock
// further (e.g. for StatusNotification/MeterValues builders).
func (c *Connector) Snapshot() Connector {
	c.mu.Lock()
	defer c.mu.Unlock()
	cp := *c
	return cp
}

// TransitionTo applies a status change, enforcing the invariant that
// Charging/SuspendedEV/SuspendedEVSE/Finishing require a live transaction:
// a request for one of those on a connector with no open transaction is
// ignored.
func (c *Connector) TransitionTo(status ConnectorStatus) {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch status {
	case StatusCharging, StatusSuspendedEV, StatusSuspendedEVSE, StatusFinishing:
		if c.Transaction == nil {
			return
		}
	}
	c.Status = status
}

// StartTransaction opens a transaction on this connector. Returns false if
// one is already in progress (at-most-one-per-connector invariant).
func (c *Connector) StartTransaction(tx *Transaction) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Transaction != nil {
		return false
	}
	c.Transaction = tx
	c.Status = StatusCharging
	return true
}

// StopTransaction closes the open transaction, if any, and returns it.
func (c *Connector) StopTransaction(reason StopReason, stoppedAt time.Time) *Transaction {
	c.mu.Lock()
	defer c.mu.Unlock()
	tx := c.Transaction
	if tx == nil {
		return nil
	}
	tx.StoppedAt = &stoppedAt
	tx.StopReason = reason
	c.Transaction = nil
	c.Status = StatusFinishing
	return tx
}

// RequestAvailability applies ChangeAvailability immediately, or defers it
// (spec §4.5's Scheduled tie-break) when a transaction is in progress.
func (c *Connector) RequestAvailability(target ConnectorAvailability) (scheduled bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Transaction != nil {
		c.pendingAvail = &target
		return true
	}
	c.Availability = target
	if target == AvailabilityInoperative {
		c.Status = StatusUnavailable
	} else if c.Status == StatusUnavailable {
		c.Status = StatusAvailable
	}
	return false
}

// SettlePendingAvailability applies a deferred ChangeAvailability once the
// connector's transaction ends; called from the station FSM after
// StopTransaction/TransactionEvent(Ended).
func (c *Connector) SettlePendingAvailability() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pendingAvail == nil {
		return
	}
	c.Availability = *c.pendingAvail
	if *c.pendingAvail == AvailabilityInoperative {
		c.Status = StatusUnavailable
	} else {
		c.Status = StatusAvailable
	}
	c.pendingAvail = nil
}

// Fault marks the connector Faulted; only an operator clear (ClearFault)
// returns it to Available.
func (c *Connector) Fault() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Status = StatusFaulted
}

func (c *Connector) ClearFault() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Status == StatusFaulted {
		c.Status = StatusAvailable
	}
}

// PendingRequest is one outstanding station→CSMS Call (C3).
type PendingRequest struct {
	ID          string
	ActionName  string
	Payload     interface{}
	Deadline    time.Time
	ResponseCh  chan CorrelatorResult
	CreatedAt   time.Time
}

// CorrelatorResult is what a PendingRequest resolves with — exactly one of
// Payload/Err is set.
type CorrelatorResult struct {
	Payload json.RawMessage
	Err     error
}
