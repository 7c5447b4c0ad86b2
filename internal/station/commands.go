package station

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/charging-platform/charge-point-simulator/internal/domain/ocpp16"
	"github.com/charging-platform/charge-point-simulator/internal/domain/ocpp201"
	"github.com/charging-platform/charge-point-simulator/internal/metrics"
)

// Transport is the minimal outbound surface commands.go needs; Station
// satisfies it via its *session.Session field, kept as an interface here
// so this file has no direct dependency on the transport package.
type Transport interface {
	Send(message []byte) error
}

// Outbox builds and sends C9's outgoing Call frames for both protocol
// versions, keyed off a Station's OCPPVersion and correlator.
type Outbox struct {
	version    OCPPVersion
	correlator *Correlator
	transport  Transport
}

func NewOutbox(version OCPPVersion, correlator *Correlator, transport Transport) *Outbox {
	return &Outbox{version: version, correlator: correlator, transport: transport}
}

// send frames a Call as [2, messageId, action, payload] and writes it to
// the transport. Callers register the message id with the correlator
// (BeginRequest) before calling send, so a fast CallResult can never race
// ahead of the pending-request entry.
func (o *Outbox) send(action, id string, payload interface{}) error {
	frame := []interface{}{2, id, action, payload}
	raw, err := json.Marshal(frame)
	if err != nil {
		return fmt.Errorf("commands: marshal %s: %w", action, err)
	}
	metrics.MessagesSent.WithLabelValues(string(o.version), action).Inc()
	return o.transport.Send(raw)
}

// BootNotification emits the version-appropriate boot call and returns the
// channel its response (or timeout/disconnect) will arrive on.
func (o *Outbox) BootNotification(vendor, model, serial, firmware string, timeout time.Duration) (*PendingRequest, error) {
	id := NewRequestID()
	var payload interface{}

	switch o.version {
	case OCPP16:
		payload = &ocpp16.BootNotificationRequest{
			ChargePointVendor:       vendor,
			ChargePointModel:        model,
			ChargePointSerialNumber: strPtr(serial),
			FirmwareVersion:         strPtr(firmware),
		}
	case OCPP201:
		payload = &ocpp201.BootNotificationRequest{
			ChargingStation: ocpp201.ChargingStation{
				Model:           model,
				VendorName:      vendor,
				SerialNumber:    strPtr(serial),
				FirmwareVersion: strPtr(firmware),
			},
			Reason: ocpp201.BootReasonPowerUp,
		}
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupported, o.version)
	}

	pr := o.correlator.BeginRequest(id, "BootNotification", payload, timeout)
	if err := o.send("BootNotification", id, payload); err != nil {
		o.correlator.Reject(id, err)
		return pr, err
	}
	return pr, nil
}

// Heartbeat emits a Heartbeat call; per S1, its payload must serialize to
// exactly {} in both versions, so both branches send an empty struct.
func (o *Outbox) Heartbeat(timeout time.Duration) (*PendingRequest, error) {
	id := NewRequestID()
	var payload interface{}
	switch o.version {
	case OCPP16:
		payload = &ocpp16.HeartbeatRequest{}
	case OCPP201:
		payload = &ocpp201.HeartbeatRequest{}
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupported, o.version)
	}

	pr := o.correlator.BeginRequest(id, "Heartbeat", payload, timeout)
	if err := o.send("Heartbeat", id, payload); err != nil {
		o.correlator.Reject(id, err)
		return pr, err
	}
	return pr, nil
}

// StatusNotification reports a connector (or station-level, connectorId 0)
// status transition.
func (o *Outbox) StatusNotification(connectorID int, status ConnectorStatus, timeout time.Duration) (*PendingRequest, error) {
	id := NewRequestID()
	var payload interface{}

	switch o.version {
	case OCPP16:
		payload = &ocpp16.StatusNotificationRequest{
			ConnectorId: connectorID,
			ErrorCode:   ocpp16.ChargePointErrorCodeNoError,
			Status:      ocpp16.ChargePointStatus(status),
			Timestamp:   &ocpp16.DateTime{Time: time.Now().UTC()},
		}
	case OCPP201:
		payload = &ocpp201.StatusNotificationRequest{
			Timestamp:       ocpp201.DateTime{Time: time.Now().UTC()},
			ConnectorStatus: connectorStatusToOCPP201(status),
			EvseId:          connectorID,
			ConnectorId:     1,
		}
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupported, o.version)
	}

	pr := o.correlator.BeginRequest(id, "StatusNotification", payload, timeout)
	if err := o.send("StatusNotification", id, payload); err != nil {
		o.correlator.Reject(id, err)
		return pr, err
	}
	return pr, nil
}

// connectorStatusToOCPP201 maps the unified status taxonomy down onto
// 2.0.1's coarser ConnectorStatusType, per spec §9's polymorphism note.
func connectorStatusToOCPP201(s ConnectorStatus) ocpp201.ConnectorStatusType {
	switch s {
	case StatusAvailable, StatusFinishing:
		return ocpp201.ConnectorStatusAvailable
	case StatusPreparing, StatusCharging, StatusSuspendedEV, StatusSuspendedEVSE:
		return ocpp201.ConnectorStatusOccupied
	case StatusReserved:
		return ocpp201.ConnectorStatusReserved
	case StatusUnavailable:
		return ocpp201.ConnectorStatusUnavailable
	case StatusFaulted:
		return ocpp201.ConnectorStatusFaulted
	default:
		return ocpp201.ConnectorStatusAvailable
	}
}

// MeterValues reports a single Energy.Active.Import.Register sample in Wh
// for a connector currently charging; the connector's SampleTemplate is not
// consulted.
func (o *Outbox) MeterValues(connectorID int, transactionID *int, energyWh int, timeout time.Duration) (*PendingRequest, error) {
	id := NewRequestID()
	now := time.Now().UTC()
	value := strconv.Itoa(energyWh)

	var payload interface{}
	switch o.version {
	case OCPP16:
		payload = &ocpp16.MeterValuesRequest{
			ConnectorId:   connectorID,
			TransactionId: transactionID,
			MeterValue: []ocpp16.MeterValue{{
				Timestamp: ocpp16.DateTime{Time: now},
				SampledValue: []ocpp16.SampledValue{{
					Value:     value,
					Measurand: measurandPtr(ocpp16.MeasurandEnergyActiveImportRegister),
					Unit:      unitPtr(ocpp16.UnitOfMeasureWh),
				}},
			}},
		}
	case OCPP201:
		measurand := "Energy.Active.Import.Register"
		unit := "Wh"
		payload = &ocpp201.MeterValuesRequest{
			EvseId: connectorID,
			MeterValue: []ocpp201.MeterValue{{
				Timestamp: ocpp201.DateTime{Time: now},
				SampledValue: []ocpp201.SampledValue{{
					Value:     value,
					Measurand: &measurand,
					Unit:      &unit,
				}},
			}},
		}
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupported, o.version)
	}

	pr := o.correlator.BeginRequest(id, "MeterValues", payload, timeout)
	if err := o.send("MeterValues", id, payload); err != nil {
		o.correlator.Reject(id, err)
		return pr, err
	}
	return pr, nil
}

// TransactionEvent emits a 2.0.1 Started/Updated/Ended event. 1.6 has no
// equivalent action; callers on that version use StartTransaction/
// StopTransaction directly instead. evse is always populated from the
// connector id (spec S5); on the Ended event, tx.StopReason (if set) is
// mapped into TransactionInfo.StoppedReason so the CSMS learns why the
// transaction closed.
func (o *Outbox) TransactionEvent(evt ocpp201.TransactionEventType, connectorID int, tx *Transaction, triggerReason ocpp201.EventTriggerType, timeout time.Duration) (*PendingRequest, error) {
	if o.version != OCPP201 {
		return nil, fmt.Errorf("%w: TransactionEvent requires OCPP 2.0.1", ErrUnsupported)
	}

	id := NewRequestID()
	txInfo := ocpp201.TransactionInfo{
		TransactionId: tx.ID,
	}
	if evt == ocpp201.TransactionEventEnded && tx.StopReason != "" {
		stopped := reasonToOCPP201(tx.StopReason)
		txInfo.StoppedReason = &stopped
	}

	payload := &ocpp201.TransactionEventRequest{
		EventType:       evt,
		Timestamp:       ocpp201.DateTime{Time: time.Now().UTC()},
		TriggerReason:   triggerReason,
		SeqNo:           tx.SeqNo,
		TransactionInfo: txInfo,
		Evse:            &ocpp201.EVSE{Id: connectorID},
	}

	pr := o.correlator.BeginRequest(id, "TransactionEvent", payload, timeout)
	if err := o.send("TransactionEvent", id, payload); err != nil {
		o.correlator.Reject(id, err)
		return pr, err
	}
	return pr, nil
}

// StartTransaction (1.6 only) opens a transaction and returns the CSMS-
// assigned transaction id once the CallResult arrives.
func (o *Outbox) StartTransaction(connectorID int, idTag string, meterStart int, timeout time.Duration) (*PendingRequest, error) {
	if o.version != OCPP16 {
		return nil, fmt.Errorf("%w: StartTransaction requires OCPP 1.6", ErrUnsupported)
	}
	id := NewRequestID()
	payload := &ocpp16.StartTransactionRequest{
		ConnectorId: connectorID,
		IdTag:       idTag,
		MeterStart:  meterStart,
		Timestamp:   ocpp16.DateTime{Time: time.Now().UTC()},
	}

	pr := o.correlator.BeginRequest(id, "StartTransaction", payload, timeout)
	if err := o.send("StartTransaction", id, payload); err != nil {
		o.correlator.Reject(id, err)
		return pr, err
	}
	return pr, nil
}

// StopTransaction (1.6 only) closes a transaction.
func (o *Outbox) StopTransaction(transactionID, meterStop int, reason ocpp16.Reason, timeout time.Duration) (*PendingRequest, error) {
	if o.version != OCPP16 {
		return nil, fmt.Errorf("%w: StopTransaction requires OCPP 1.6", ErrUnsupported)
	}
	id := NewRequestID()
	payload := &ocpp16.StopTransactionRequest{
		MeterStop:     meterStop,
		Timestamp:     ocpp16.DateTime{Time: time.Now().UTC()},
		TransactionId: transactionID,
		Reason:        &reason,
	}

	pr := o.correlator.BeginRequest(id, "StopTransaction", payload, timeout)
	if err := o.send("StopTransaction", id, payload); err != nil {
		o.correlator.Reject(id, err)
		return pr, err
	}
	return pr, nil
}

// Authorize performs the Authorize round-trip C7's Remote strategy needs.
func (o *Outbox) Authorize(idTag string, timeout time.Duration) (*PendingRequest, error) {
	id := NewRequestID()
	var payload interface{}
	switch o.version {
	case OCPP16:
		payload = &ocpp16.AuthorizeRequest{IdTag: idTag}
	case OCPP201:
		payload = &ocpp201.AuthorizeRequest{IdToken: ocpp201.IdToken{IdToken: idTag, Type: ocpp201.IdTokenTypeCentral}}
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupported, o.version)
	}

	pr := o.correlator.BeginRequest(id, "Authorize", payload, timeout)
	if err := o.send("Authorize", id, payload); err != nil {
		o.correlator.Reject(id, err)
		return pr, err
	}
	return pr, nil
}

func strPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func measurandPtr(m ocpp16.Measurand) *ocpp16.Measurand     { return &m }
func unitPtr(u ocpp16.UnitOfMeasure) *ocpp16.UnitOfMeasure { return &u }
