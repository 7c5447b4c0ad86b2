package station

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestConnector_New(t *testing.T) {
	c := NewConnector(1)
	assert.Equal(t, 1, c.ID)
	assert.Equal(t, AvailabilityOperative, c.Availability)
	assert.Equal(t, StatusAvailable, c.Status)
	assert.False(t, c.InTransaction())
}

func TestConnector_StartTransactionRejectsWhenAlreadyInProgress(t *testing.T) {
	c := NewConnector(1)
	tx1 := &Transaction{ID: "tx1", ConnectorID: 1}
	assert.True(t, c.StartTransaction(tx1))
	assert.True(t, c.InTransaction())

	tx2 := &Transaction{ID: "tx2", ConnectorID: 1}
	assert.False(t, c.StartTransaction(tx2), "a connector must carry at most one open transaction")
	assert.Equal(t, StatusCharging, c.Snapshot().Status)
}

func TestConnector_StopTransactionClosesAndReturnsIt(t *testing.T) {
	c := NewConnector(1)
	tx := &Transaction{ID: "tx1", ConnectorID: 1}
	c.StartTransaction(tx)

	stoppedAt := time.Now()
	stopped := c.StopTransaction(StopReasonLocal, stoppedAt)

	assert.Equal(t, "tx1", stopped.ID)
	assert.Equal(t, StopReasonLocal, stopped.StopReason)
	assert.NotNil(t, stopped.StoppedAt)
	assert.False(t, c.InTransaction())
	assert.Equal(t, StatusFinishing, c.Snapshot().Status)
}

func TestConnector_StopTransactionWithNoneOpenReturnsNil(t *testing.T) {
	c := NewConnector(1)
	assert.Nil(t, c.StopTransaction(StopReasonLocal, time.Now()))
}

func TestConnector_ChangeAvailabilityAppliesImmediatelyWhenIdle(t *testing.T) {
	c := NewConnector(1)
	scheduled := c.RequestAvailability(AvailabilityInoperative)

	assert.False(t, scheduled)
	assert.Equal(t, AvailabilityInoperative, c.Snapshot().Availability)
	assert.Equal(t, StatusUnavailable, c.Snapshot().Status)
}

func TestConnector_ChangeAvailabilityDeferredDuringTransaction(t *testing.T) {
	c := NewConnector(1)
	c.StartTransaction(&Transaction{ID: "tx1", ConnectorID: 1})

	scheduled := c.RequestAvailability(AvailabilityInoperative)
	assert.True(t, scheduled, "a live transaction must defer ChangeAvailability")
	assert.Equal(t, AvailabilityOperative, c.Snapshot().Availability, "availability must not change until the transaction ends")

	c.StopTransaction(StopReasonLocal, time.Now())
	c.SettlePendingAvailability()

	assert.Equal(t, AvailabilityInoperative, c.Snapshot().Availability)
	assert.Equal(t, StatusUnavailable, c.Snapshot().Status)
}

func TestConnector_FaultAndClearFault(t *testing.T) {
	c := NewConnector(1)
	c.Fault()
	assert.Equal(t, StatusFaulted, c.Snapshot().Status)

	c.ClearFault()
	assert.Equal(t, StatusAvailable, c.Snapshot().Status)
}

func TestConnector_ClearFaultIsNoOpWhenNotFaulted(t *testing.T) {
	c := NewConnector(1)
	c.TransitionTo(StatusPreparing)
	c.ClearFault()
	assert.Equal(t, StatusPreparing, c.Snapshot().Status, "ClearFault only ever acts on a Faulted connector")
}
