package station

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/charging-platform/charge-point-simulator/internal/domain/ocpp16"
	"github.com/charging-platform/charge-point-simulator/internal/domain/ocpp201"
	"github.com/charging-platform/charge-point-simulator/internal/domain/serialization"
	"github.com/charging-platform/charge-point-simulator/internal/logger"
	"github.com/charging-platform/charge-point-simulator/internal/metrics"
	"github.com/charging-platform/charge-point-simulator/internal/station/auth"
	"github.com/charging-platform/charge-point-simulator/internal/station/configstore"
	"github.com/charging-platform/charge-point-simulator/internal/transport/session"
)

const (
	configStatusAccepted       = configstore.ChangeAccepted
	configStatusRejected       = configstore.ChangeRejected
	configStatusRebootRequired = configstore.ChangeRebootRequired
)

// Identity is everything a Station needs to know about itself before its
// first BootNotification, grounded on the teacher's OCPPConfig per-device
// fields (vendor/model/serial), generalized with a protocol version switch.
type Identity struct {
	ID              string
	Vendor          string
	Model           string
	SerialNumber    string
	FirmwareVersion string
	NumConnectors   int
}

// Config bundles everything station.New needs to assemble one running
// simulated charge point.
type Config struct {
	Identity       Identity
	Version        OCPPVersion
	SessionConfig  *session.Config
	ConfigStore    *configstore.Store
	AuthCache      *auth.Cache
	LocalList      *auth.LocalList
	AuthPipeline   *auth.Pipeline
	Certs          CertManager
	EVCertCarrier  EVCertificateCarrier
	Logger         *logger.Logger
	RequestTimeout time.Duration
}

// Station implements C10: the per-station lifecycle state machine, owning
// one Session, one Correlator, one ConfigStore, the C6/C7 auth machinery,
// and a Connector per EVSE. It is the single point other components
// (ATG, UI control plane, worker pool) drive through.
type Station struct {
	id      string
	version OCPPVersion
	ident   Identity
	log     *logger.Logger

	cfg           *configstore.Store
	authCache     *auth.Cache
	localList     *auth.LocalList
	authPipeline  *auth.Pipeline
	certs         CertManager
	evCertCarrier EVCertificateCarrier

	connMu     sync.RWMutex
	connectors map[int]*Connector

	sess       *session.Session
	correlator *Correlator
	outbox     *Outbox
	serializer *serialization.Serializer
	reqTimeout time.Duration

	stateMu sync.Mutex
	state   LifecycleState

	atgCancel context.CancelFunc
	stopOnce  sync.Once
	runCancel context.CancelFunc
}

// New assembles a Station in StateStopped; call Start to begin dialing.
func New(cfg Config) *Station {
	s := &Station{
		id:            cfg.Identity.ID,
		version:       cfg.Version,
		ident:         cfg.Identity,
		log:           cfg.Logger,
		cfg:           cfg.ConfigStore,
		authCache:     cfg.AuthCache,
		localList:     cfg.LocalList,
		authPipeline:  cfg.AuthPipeline,
		certs:         cfg.Certs,
		evCertCarrier: cfg.EVCertCarrier,
		connectors:    make(map[int]*Connector),
		serializer:    serialization.NewSerializer(serialization.FormatJSON),
		reqTimeout:    cfg.RequestTimeout,
		state:         StateStopped,
	}
	if s.reqTimeout == 0 {
		s.reqTimeout = 30 * time.Second
	}

	for i := 1; i <= cfg.Identity.NumConnectors; i++ {
		s.connectors[i] = NewConnector(i)
	}

	s.correlator = NewCorrelator(cfg.Logger)
	sess, err := session.New(cfg.SessionConfig, cfg.Logger, s.onMessage, s.onDisconnect)
	if err != nil {
		// SessionConfig is built by the caller from static configuration;
		// a construction failure here is a programmer error, not a runtime
		// fault, so it is surfaced by leaving sess nil and Start failing loud.
		s.log.Errorf("station %s: session construction failed: %v", s.id, err)
	}
	s.sess = sess
	s.outbox = NewOutbox(cfg.Version, s.correlator, sess)

	return s
}

func (s *Station) ID() string { return s.id }

// Authorize performs the Authorize round-trip against the CSMS, implementing
// auth.RemoteAuthorizer so C7's Remote strategy can resolve through this
// station's own correlator/outbox instead of a second connection.
func (s *Station) Authorize(ctx context.Context, id auth.Identifier) (auth.Status, error) {
	pr, err := s.outbox.Authorize(id.Value, s.reqTimeout)
	if err != nil {
		return auth.StatusInvalid, err
	}

	select {
	case <-ctx.Done():
		return auth.StatusInvalid, ctx.Err()
	case result := <-pr.ResponseCh:
		if result.Err != nil {
			return auth.StatusInvalid, result.Err
		}
		return s.parseAuthorizeStatus(result.Payload), nil
	}
}

func (s *Station) parseAuthorizeStatus(raw json.RawMessage) auth.Status {
	switch s.version {
	case OCPP16:
		var resp ocpp16.AuthorizeResponse
		if err := json.Unmarshal(raw, &resp); err != nil {
			return auth.StatusInvalid
		}
		return auth.Status(resp.IdTagInfo.Status)
	case OCPP201:
		var resp ocpp201.AuthorizeResponse
		if err := json.Unmarshal(raw, &resp); err != nil {
			return auth.StatusInvalid
		}
		return auth.Status(resp.IdTokenInfo.Status)
	default:
		return auth.StatusInvalid
	}
}

// RequestTransactionStart simulates a driver plugging in on connectorID,
// the same station-initiated path the automatic transaction generator
// drives, exposed for the UI control plane's StartTransaction procedure.
func (s *Station) RequestTransactionStart(connectorID int, idTag string) error {
	conn, ok := s.connectorFor(connectorID)
	if !ok {
		return ErrConnectorNotFound
	}
	if conn.InTransaction() {
		return ErrConnectorBusy
	}
	s.atgStart(connectorID, idTag)
	return nil
}

// RequestTransactionStop simulates a driver unplugging on connectorID,
// exposed for the UI control plane's StopTransaction procedure.
func (s *Station) RequestTransactionStop(connectorID int) error {
	conn, ok := s.connectorFor(connectorID)
	if !ok {
		return ErrConnectorNotFound
	}
	if !conn.InTransaction() {
		return ErrNoActiveTransaction
	}
	s.atgStop(connectorID)
	return nil
}

func (s *Station) State() LifecycleState {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	return s.state
}

func (s *Station) setState(st LifecycleState) {
	s.stateMu.Lock()
	s.state = st
	s.stateMu.Unlock()
}

// Start dials the CSMS and starts the correlator timeout sweep, then sends
// BootNotification; on Accepted it transitions to Running and begins the
// heartbeat loop. Per spec §4.10, a
// Pending response holds and retries after the CSMS-returned interval; a
// Rejected response also holds and retries, sending no other messages.
func (s *Station) Start(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	s.runCancel = cancel

	s.setState(StateStarting)
	go func() {
		if err := s.sess.Run(runCtx); err != nil && runCtx.Err() == nil {
			s.log.Warnf("station %s: session run exited: %v", s.id, err)
		}
	}()

	go s.registrationLoop(runCtx)
	go s.correlatorTimeoutLoop(runCtx)
	return nil
}

// registrationLoop sends BootNotification until Accepted, then drives the
// heartbeat loop for the remaining life of the station.
func (s *Station) registrationLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if s.sess.State() != session.StateOpen {
			time.Sleep(500 * time.Millisecond)
			continue
		}

		s.setState(StateRegistering)
		pr, err := s.outbox.BootNotification(s.ident.Vendor, s.ident.Model, s.ident.SerialNumber, s.ident.FirmwareVersion, s.reqTimeout)
		if err != nil {
			time.Sleep(s.reqTimeout)
			continue
		}

		select {
		case <-ctx.Done():
			return
		case result := <-pr.ResponseCh:
			if result.Err != nil {
				time.Sleep(s.reqTimeout)
				continue
			}

			interval, accepted := s.parseBootResult(result.Payload)
			if !accepted {
				time.Sleep(time.Duration(interval) * time.Second)
				continue
			}

			s.setState(StateRunning)
			s.heartbeatLoop(ctx, time.Duration(interval)*time.Second)
			return
		}
	}
}

func (s *Station) parseBootResult(raw json.RawMessage) (interval int, accepted bool) {
	switch s.version {
	case OCPP16:
		var resp ocpp16BootResult
		if err := json.Unmarshal(raw, &resp); err != nil {
			return 300, false
		}
		return resp.Interval, resp.Status == "Accepted"
	case OCPP201:
		var resp ocpp201.BootNotificationResponse
		if err := json.Unmarshal(raw, &resp); err != nil {
			return 300, false
		}
		return resp.Interval, resp.Status == ocpp201.RegistrationStatusAccepted
	default:
		return 300, false
	}
}

// ocpp16BootResult mirrors ocpp16.BootNotificationResponse's wire shape
// without importing it twice under two field names; kept local since
// parseBootResult only needs Status/Interval.
type ocpp16BootResult struct {
	Status   string `json:"status"`
	Interval int    `json:"interval"`
}

func (s *Station) heartbeatLoop(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 300 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if s.State() != StateRunning {
				continue
			}
			pr, err := s.outbox.Heartbeat(s.reqTimeout)
			if err != nil {
				continue
			}
			<-pr.ResponseCh
		}
	}
}

func (s *Station) correlatorTimeoutLoop(ctx context.Context) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.correlator.Timeout()
		}
	}
}

// onDisconnect moves the station to Reconnecting, rejecting every
// in-flight request, per spec §4.10.
func (s *Station) onDisconnect(err error) {
	if s.State() == StateStopping || s.State() == StateStopped {
		return
	}
	s.setState(StateReconnecting)
	s.correlator.RejectAll()
}

// onMessage decodes one inbound frame and routes it to the correlator
// (CallResult/CallError) or the handler dispatch table (Call), mirroring
// the teacher's processor.go message-type switch.
func (s *Station) onMessage(raw []byte) {
	msgType, msgID, action, payload, err := s.serializer.DeserializeMessage(raw)
	if err != nil {
		s.log.Warnf("station %s: malformed inbound frame: %v", s.id, err)
		return
	}

	switch msgType {
	case 3: // CallResult
		s.correlator.Resolve(msgID, payload)
	case 4: // CallError
		var ce struct {
			ErrorCode        string      `json:"errorCode"`
			ErrorDescription string      `json:"errorDescription"`
			ErrorDetails     interface{} `json:"errorDetails"`
		}
		_ = json.Unmarshal(payload, &ce)
		s.correlator.Reject(msgID, fmt.Errorf("callerror %s: %s", ce.ErrorCode, ce.ErrorDescription))
	case 2: // Call
		metrics.MessagesReceived.WithLabelValues(string(s.version), action).Inc()
		s.handleIncomingCall(msgID, action, payload)
	default:
		s.log.Warnf("station %s: unknown message type %d", s.id, msgType)
	}
}

// handleIncomingCall decodes the action-specific payload, dispatches it,
// and frames the CallResult/CallError reply. Handler errors are converted
// to InternalError here rather than propagated, per spec §4.8's handler
// failure policy.
func (s *Station) handleIncomingCall(msgID, action string, raw json.RawMessage) {
	var codecVersion serialization.OCPPVersion
	if s.version == OCPP201 {
		codecVersion = serialization.Version201
	} else {
		codecVersion = serialization.Version16
	}

	payload := s.serializer.CreatePayloadInstanceFor(codecVersion, action, true)
	if payload == nil {
		s.sendCallError(msgID, "NotImplemented", fmt.Sprintf("unsupported action %s", action))
		return
	}
	if err := json.Unmarshal(raw, payload); err != nil {
		s.sendCallError(msgID, "FormationViolation", err.Error())
		return
	}

	resp, err := s.Dispatch(action, payload)
	if err != nil {
		s.sendCallError(msgID, "InternalError", fmt.Sprintf("%s: %v", action, err))
		return
	}

	respRaw, err := json.Marshal(resp)
	if err != nil {
		s.sendCallError(msgID, "InternalError", fmt.Sprintf("%s: marshal response: %v", action, err))
		return
	}
	frame := []interface{}{3, msgID, json.RawMessage(respRaw)}
	out, err := json.Marshal(frame)
	if err != nil {
		return
	}
	if err := s.sess.Send(out); err != nil {
		s.log.Warnf("station %s: send CallResult for %s failed: %v", s.id, action, err)
	}
}

func (s *Station) sendCallError(msgID, code, description string) {
	frame := []interface{}{4, msgID, code, description, map[string]interface{}{}}
	out, err := json.Marshal(frame)
	if err != nil {
		return
	}
	if err := s.sess.Send(out); err != nil {
		s.log.Warnf("station %s: send CallError failed: %v", s.id, err)
	}
}

// Stop cancels the ATG, ends any open transactions with StopReasonLocal,
// reports every connector Unavailable best-effort, and closes the
// session, per spec §4.10's teardown sequence.
func (s *Station) Stop() {
	s.stopOnce.Do(func() {
		s.setState(StateStopping)
		if s.atgCancel != nil {
			s.atgCancel()
		}

		s.connMu.RLock()
		conns := make([]*Connector, 0, len(s.connectors))
		for _, c := range s.connectors {
			conns = append(conns, c)
		}
		s.connMu.RUnlock()

		for _, c := range conns {
			if c.InTransaction() {
				if s.version == OCPP16 {
					s.stopTransaction16(c.ID, StopReasonLocal)
				} else {
					s.stopTransaction201(c.ID, StopReasonLocal, ocpp201.TriggerReasonTrigger)
				}
			}
			c.TransitionTo(StatusUnavailable)
			_, _ = s.outbox.StatusNotification(c.ID, StatusUnavailable, s.reqTimeout)
		}

		if s.runCancel != nil {
			s.runCancel()
		}
		s.sess.Close()
		s.setState(StateStopped)
	})
}

// scheduleReset fulfills a Reset handler's side effect: an immediate reset
// stops the station right away; a deferred reset polls once a second until
// no connector has an open transaction, then stops the station.
func (s *Station) scheduleReset(immediate bool) {
	if immediate {
		go s.Stop()
		return
	}
	go func() {
		for s.anyConnectorInTransaction() {
			time.Sleep(time.Second)
		}
		s.Stop()
	}()
}

func (s *Station) anyConnectorInTransaction() bool {
	s.connMu.RLock()
	defer s.connMu.RUnlock()
	for _, c := range s.connectors {
		if c.InTransaction() {
			return true
		}
	}
	return false
}

func (s *Station) connectorFor(id int) (*Connector, bool) {
	s.connMu.RLock()
	defer s.connMu.RUnlock()
	c, ok := s.connectors[id]
	return c, ok
}

func (s *Station) connectorByTransactionID(txID string) (*Connector, bool) {
	s.connMu.RLock()
	defer s.connMu.RUnlock()
	for _, c := range s.connectors {
		snap := c.Snapshot()
		if snap.Transaction != nil && snap.Transaction.ID == txID {
			return c, true
		}
	}
	return nil, false
}

// applyAvailability applies ChangeAvailability to one connector, or to
// every connector when connectorID is 0 (whole-station scope), returning
// true if any target had to defer the change (Scheduled).
func (s *Station) applyAvailability(connectorID int, target ConnectorAvailability) (scheduled bool) {
	s.connMu.RLock()
	defer s.connMu.RUnlock()

	if connectorID == 0 {
		for _, c := range s.connectors {
			if c.RequestAvailability(target) {
				scheduled = true
			}
		}
		return scheduled
	}

	if c, ok := s.connectors[connectorID]; ok {
		return c.RequestAvailability(target)
	}
	return false
}

// startTransaction16 runs the 1.6 RemoteStartTransaction side effect:
// Authorize (if AuthorizeRemoteTxRequests is set), then the station's own
// StartTransaction Call, opening the connector on a CSMS-assigned id.
func (s *Station) startTransaction16(connectorID int, idTag string) {
	conn, ok := s.connectorFor(connectorID)
	if !ok {
		return
	}

	if requireAuth, _ := s.cfg.Value("AuthorizeRemoteTxRequests"); requireAuth == "true" {
		verdict := s.authPipeline.Evaluate(context.Background(), auth.Identifier{Type: auth.IdentifierIdTag, Value: idTag}, auth.ContextTransactionStart)
		if verdict.Status != auth.StatusAccepted {
			return
		}
	}

	pr, err := s.outbox.StartTransaction(connectorID, idTag, 0, s.reqTimeout)
	if err != nil {
		return
	}
	result := <-pr.ResponseCh
	if result.Err != nil {
		return
	}

	var resp struct {
		TransactionId int `json:"transactionId"`
	}
	if err := json.Unmarshal(result.Payload, &resp); err != nil {
		return
	}

	tx := &Transaction{
		ID:          fmt.Sprintf("%d", resp.TransactionId),
		ConnectorID: connectorID,
		IdTag:       idTag,
		StartedAt:   time.Now().UTC(),
	}
	if conn.StartTransaction(tx) {
		_, _ = s.outbox.StatusNotification(connectorID, StatusCharging, s.reqTimeout)
	}
}

// stopTransaction16 closes the open transaction on a connector via 1.6's
// StopTransaction, then settles any deferred ChangeAvailability.
func (s *Station) stopTransaction16(connectorID int, reason StopReason) {
	conn, ok := s.connectorFor(connectorID)
	if !ok {
		return
	}
	tx := conn.StopTransaction(reason, time.Now().UTC())
	if tx == nil {
		return
	}

	txID := 0
	fmt.Sscanf(tx.ID, "%d", &txID)
	pr, err := s.outbox.StopTransaction(txID, tx.EnergyRegister, reasonToOCPP16(reason), s.reqTimeout)
	if err == nil {
		<-pr.ResponseCh
	}
	conn.SettlePendingAvailability()
	_, _ = s.outbox.StatusNotification(connectorID, StatusAvailable, s.reqTimeout)
}

// stopTransaction201 closes the open transaction on a connector by
// emitting a 2.0.1 TransactionEvent(Ended).
func (s *Station) stopTransaction201(connectorID int, reason StopReason, trigger ocpp201.EventTriggerType) {
	conn, ok := s.connectorFor(connectorID)
	if !ok {
		return
	}
	tx := conn.StopTransaction(reason, time.Now().UTC())
	if tx == nil {
		return
	}

	tx.SeqNo++
	pr, err := s.outbox.TransactionEvent(ocpp201.TransactionEventEnded, connectorID, tx, trigger, s.reqTimeout)
	if err == nil {
		<-pr.ResponseCh
	}
	conn.SettlePendingAvailability()
	_, _ = s.outbox.StatusNotification(connectorID, StatusAvailable, s.reqTimeout)
}

// announceTransactionEvent201 emits a Started/Updated TransactionEvent for
// a transaction the handler already opened synchronously.
func (s *Station) announceTransactionEvent201(tx *Transaction, evt ocpp201.TransactionEventType, trigger ocpp201.EventTriggerType) {
	pr, err := s.outbox.TransactionEvent(evt, tx.ConnectorID, tx, trigger, s.reqTimeout)
	if err == nil {
		<-pr.ResponseCh
	}
}

// sendNotifyReport frames and sends a NotifyReport Call directly, bypassing
// Outbox's per-action builder methods since GetBaseReport is the only
// caller and the payload is already fully formed.
func (s *Station) sendNotifyReport(payload *ocpp201.NotifyReportRequest) {
	id := NewRequestID()
	pr := s.correlator.BeginRequest(id, "NotifyReport", payload, s.reqTimeout)
	frame := []interface{}{2, id, "NotifyReport", payload}
	raw, err := json.Marshal(frame)
	if err != nil {
		s.correlator.Reject(id, err)
		return
	}
	if err := s.sess.Send(raw); err != nil {
		s.correlator.Reject(id, err)
		return
	}
	<-pr.ResponseCh
}

// reasonToOCPP16 maps the unified StopReason vocabulary onto 1.6's Reason
// enum for StopTransactionRequest.
func reasonToOCPP16(r StopReason) ocpp16.Reason {
	switch r {
	case StopReasonLocal:
		return ocpp16.ReasonLocal
	case StopReasonRemote:
		return ocpp16.ReasonRemote
	case StopReasonEVDisconnected:
		return ocpp16.ReasonEVDisconnected
	default:
		return ocpp16.ReasonOther
	}
}

func reasonToOCPP201(r StopReason) ocpp201.StoppedReasonType {
	switch r {
	case StopReasonLocal:
		return ocpp201.StoppedReasonLocal
	case StopReasonRemote:
		return ocpp201.StoppedReasonRemote
	case StopReasonEVDisconnected:
		return ocpp201.StoppedReasonEVDisconnected
	default:
		return ocpp201.StoppedReasonOther
	}
}
