package station

import (
	"context"
	"fmt"
	"time"

	"github.com/charging-platform/charge-point-simulator/internal/domain/ocpp16"
	"github.com/charging-platform/charge-point-simulator/internal/domain/ocpp201"
	"github.com/charging-platform/charge-point-simulator/internal/station/auth"
)

// Dispatch routes one decoded inbound Call to its handler and returns the
// response payload to frame as a CallResult. Per spec §4.8's handler failure
// policy, a returned error is turned into a CallError (InternalError, naming
// the action) by the caller — handlers never panic the session themselves.
func (s *Station) Dispatch(action string, payload interface{}) (interface{}, error) {
	switch s.version {
	case OCPP16:
		return s.dispatch16(action, payload)
	case OCPP201:
		return s.dispatch201(action, payload)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupported, s.version)
	}
}

func (s *Station) dispatch16(action string, payload interface{}) (interface{}, error) {
	switch action {
	case "Reset":
		return s.handleReset16(payload.(*ocpp16.ResetRequest))
	case "ChangeAvailability":
		return s.handleChangeAvailability16(payload.(*ocpp16.ChangeAvailabilityRequest))
	case "GetConfiguration":
		return s.handleGetConfiguration(payload.(*ocpp16.GetConfigurationRequest))
	case "ChangeConfiguration":
		return s.handleChangeConfiguration(payload.(*ocpp16.ChangeConfigurationRequest))
	case "ClearCache":
		return s.handleClearCache16(payload.(*ocpp16.ClearCacheRequest))
	case "UnlockConnector":
		return s.handleUnlockConnector(payload.(*ocpp16.UnlockConnectorRequest))
	case "RemoteStartTransaction":
		return s.handleRemoteStartTransaction(payload.(*ocpp16.RemoteStartTransactionRequest))
	case "RemoteStopTransaction":
		return s.handleRemoteStopTransaction(payload.(*ocpp16.RemoteStopTransactionRequest))
	case "SendLocalList":
		return s.handleSendLocalList(payload.(*ocpp16.SendLocalListRequest))
	case "GetLocalListVersion":
		return s.handleGetLocalListVersion(payload.(*ocpp16.GetLocalListVersionRequest))
	case "DataTransfer":
		return &ocpp16.DataTransferResponse{Status: ocpp16.DataTransferStatusUnknownVendorId}, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupported, action)
	}
}

func (s *Station) dispatch201(action string, payload interface{}) (interface{}, error) {
	switch action {
	case "Reset":
		return s.handleReset201(payload.(*ocpp201.ResetRequest))
	case "ChangeAvailability":
		return s.handleChangeAvailability201(payload.(*ocpp201.ChangeAvailabilityRequest))
	case "GetVariables":
		return s.handleGetVariables(payload.(*ocpp201.GetVariablesRequest))
	case "SetVariables":
		return s.handleSetVariables(payload.(*ocpp201.SetVariablesRequest))
	case "GetBaseReport":
		return s.handleGetBaseReport(payload.(*ocpp201.GetBaseReportRequest))
	case "RequestStartTransaction":
		return s.handleRequestStartTransaction(payload.(*ocpp201.RequestStartTransactionRequest))
	case "RequestStopTransaction":
		return s.handleRequestStopTransaction(payload.(*ocpp201.RequestStopTransactionRequest))
	case "ClearCache":
		return s.handleClearCache201(payload.(*ocpp201.ClearCacheRequest))
	case "InstallCertificate":
		return s.handleInstallCertificate(payload.(*ocpp201.InstallCertificateRequest))
	case "DeleteCertificate":
		return s.handleDeleteCertificate(payload.(*ocpp201.DeleteCertificateRequest))
	case "GetInstalledCertificateIds":
		return s.handleGetInstalledCertificateIds(payload.(*ocpp201.GetInstalledCertificateIdsRequest))
	case "Get15118EVCertificate":
		return s.handleGet15118EVCertificate(payload.(*ocpp201.Get15118EVCertificateRequest))
	case "GetCertificateStatus":
		return s.handleGetCertificateStatus(payload.(*ocpp201.GetCertificateStatusRequest))
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupported, action)
	}
}

// -- Reset --------------------------------------------------------------

func (s *Station) handleReset16(req *ocpp16.ResetRequest) (*ocpp16.ResetResponse, error) {
	s.scheduleReset(true)
	return &ocpp16.ResetResponse{Status: ocpp16.ResetStatusAccepted}, nil
}

func (s *Station) handleReset201(req *ocpp201.ResetRequest) (*ocpp201.ResetResponse, error) {
	if req.Type == ocpp201.ResetTypeOnIdle && s.anyConnectorInTransaction() {
		s.scheduleReset(false)
		return &ocpp201.ResetResponse{Status: ocpp201.ResetStatusScheduled}, nil
	}
	s.scheduleReset(true)
	return &ocpp201.ResetResponse{Status: ocpp201.ResetStatusAccepted}, nil
}

// -- ChangeAvailability ---------------------------------------------------

func (s *Station) handleChangeAvailability16(req *ocpp16.ChangeAvailabilityRequest) (*ocpp16.ChangeAvailabilityResponse, error) {
	target := AvailabilityOperative
	if req.Type == ocpp16.AvailabilityTypeInoperative {
		target = AvailabilityInoperative
	}

	scheduled := s.applyAvailability(req.ConnectorId, target)
	status := ocpp16.AvailabilityStatusAccepted
	if scheduled {
		status = ocpp16.AvailabilityStatusScheduled
	}
	return &ocpp16.ChangeAvailabilityResponse{Status: status}, nil
}

func (s *Station) handleChangeAvailability201(req *ocpp201.ChangeAvailabilityRequest) (*ocpp201.ChangeAvailabilityResponse, error) {
	target := AvailabilityOperative
	if req.OperationalStatus == ocpp201.OperationalStatusInoperative {
		target = AvailabilityInoperative
	}

	connectorID := 0
	if req.Evse != nil {
		connectorID = req.Evse.Id
	}

	scheduled := s.applyAvailability(connectorID, target)
	status := ocpp201.ChangeAvailabilityAccepted
	if scheduled {
		status = ocpp201.ChangeAvailabilityScheduled
	}
	return &ocpp201.ChangeAvailabilityResponse{Status: status}, nil
}

// -- Configuration (1.6) / Variables (2.0.1) ------------------------------

func (s *Station) handleGetConfiguration(req *ocpp16.GetConfigurationRequest) (*ocpp16.GetConfigurationResponse, error) {
	known, unknown := s.cfg.Get(req.Key)

	resp := &ocpp16.GetConfigurationResponse{UnknownKey: unknown}
	for _, k := range known {
		v := k.Value
		resp.ConfigurationKey = append(resp.ConfigurationKey, ocpp16.KeyValue{
			Key:      k.Name,
			Readonly: k.ReadOnly,
			Value:    &v,
		})
	}
	return resp, nil
}

func (s *Station) handleChangeConfiguration(req *ocpp16.ChangeConfigurationRequest) (*ocpp16.ChangeConfigurationResponse, error) {
	status, err := s.cfg.Set(req.Key, req.Value)
	if err != nil {
		return nil, err
	}

	var mapped ocpp16.ConfigurationStatus
	switch status {
	case configStatusAccepted:
		mapped = ocpp16.ConfigurationStatusAccepted
	case configStatusRejected:
		mapped = ocpp16.ConfigurationStatusRejected
	case configStatusRebootRequired:
		mapped = ocpp16.ConfigurationStatusRebootRequired
	default:
		mapped = ocpp16.ConfigurationStatusNotSupported
	}
	return &ocpp16.ChangeConfigurationResponse{Status: mapped}, nil
}

func (s *Station) handleGetVariables(req *ocpp201.GetVariablesRequest) (*ocpp201.GetVariablesResponse, error) {
	resp := &ocpp201.GetVariablesResponse{}
	for _, item := range req.GetVariableData {
		value, ok := s.cfg.Value(item.Variable.Name)
		result := ocpp201.GetVariableResult{Component: item.Component, Variable: item.Variable}
		if !ok {
			result.AttributeStatus = ocpp201.AttributeStatusUnknownVariable
		} else {
			result.AttributeStatus = ocpp201.AttributeStatusAccepted
			result.AttributeValue = strPtr(value)
		}
		resp.GetVariableResult = append(resp.GetVariableResult, result)
	}
	return resp, nil
}

func (s *Station) handleSetVariables(req *ocpp201.SetVariablesRequest) (*ocpp201.SetVariablesResponse, error) {
	resp := &ocpp201.SetVariablesResponse{}
	for _, item := range req.SetVariableData {
		status, err := s.cfg.Set(item.Variable.Name, item.AttributeValue)
		if err != nil {
			return nil, err
		}

		result := ocpp201.SetVariableResult{Component: item.Component, Variable: item.Variable}
		switch status {
		case configStatusAccepted:
			result.AttributeStatus = ocpp201.AttributeStatusAccepted
		case configStatusRejected:
			result.AttributeStatus = ocpp201.AttributeStatusRejected
		case configStatusRebootRequired:
			result.AttributeStatus = ocpp201.AttributeStatusRebootRequired
		default:
			result.AttributeStatus = ocpp201.AttributeStatusUnknownVariable
		}
		resp.SetVariableResult = append(resp.SetVariableResult, result)
	}
	return resp, nil
}

// -- GetBaseReport ---------------------------------------------------------

func (s *Station) handleGetBaseReport(req *ocpp201.GetBaseReportRequest) (*ocpp201.GetBaseReportResponse, error) {
	switch req.ReportBase {
	case ocpp201.ReportBaseConfigurationInventory, ocpp201.ReportBaseFullInventory, ocpp201.ReportBaseSummaryInventory:
	default:
		return &ocpp201.GetBaseReportResponse{Status: ocpp201.GenericDeviceModelNotSupported}, nil
	}

	names := s.cfg.Names()
	if len(names) == 0 {
		return &ocpp201.GetBaseReportResponse{Status: ocpp201.GenericDeviceModelEmptyResultSet}, nil
	}

	go s.emitBaseReport(req.RequestId, names, req.ReportBase)
	return &ocpp201.GetBaseReportResponse{Status: ocpp201.GenericDeviceModelAccepted}, nil
}

func (s *Station) emitBaseReport(requestID int, names []string, reportBase ocpp201.ReportBaseType) {
	data := make([]ocpp201.ReportDatum, 0, len(names))

	// FullInventory and SummaryInventory both enumerate the device model's
	// fixed components (spec §4.8), not just the configuration key/value
	// rows ConfigurationInventory is limited to.
	if reportBase == ocpp201.ReportBaseFullInventory || reportBase == ocpp201.ReportBaseSummaryInventory {
		data = append(data,
			ocpp201.ReportDatum{
				Component: ocpp201.Component{Name: "ChargingStation"},
				Variable:  ocpp201.Variable{Name: "Model"},
				VariableAttribute: []ocpp201.VariableAttribute{
					{Type: ocpp201.AttributeTypeActual, Value: s.ident.Model},
				},
			},
			ocpp201.ReportDatum{
				Component: ocpp201.Component{Name: "ChargingStation"},
				Variable:  ocpp201.Variable{Name: "VendorName"},
				VariableAttribute: []ocpp201.VariableAttribute{
					{Type: ocpp201.AttributeTypeActual, Value: s.ident.Vendor},
				},
			},
		)
	}

	for _, n := range names {
		value, _ := s.cfg.Value(n)
		data = append(data, ocpp201.ReportDatum{
			Component: ocpp201.Component{Name: "StationConfiguration"},
			Variable:  ocpp201.Variable{Name: n},
			VariableAttribute: []ocpp201.VariableAttribute{
				{Type: ocpp201.AttributeTypeActual, Value: value},
			},
		})
	}

	payload := &ocpp201.NotifyReportRequest{
		RequestId:   requestID,
		GeneratedAt: ocpp201.DateTime{Time: time.Now().UTC()},
		SeqNo:       0,
		TBC:         false,
		ReportData:  data,
	}
	s.sendNotifyReport(payload)
}

// -- Remote/RequestStart/StopTransaction -----------------------------------

func (s *Station) handleRemoteStartTransaction(req *ocpp16.RemoteStartTransactionRequest) (*ocpp16.RemoteStartTransactionResponse, error) {
	connectorID := 0
	if req.ConnectorId != nil {
		connectorID = *req.ConnectorId
	}
	conn, ok := s.connectorFor(connectorID)
	if !ok || conn.InTransaction() || conn.Snapshot().Availability != AvailabilityOperative {
		return &ocpp16.RemoteStartTransactionResponse{Status: ocpp16.RemoteStartStopStatusRejected}, nil
	}

	go s.startTransaction16(conn.ID, req.IdTag)
	return &ocpp16.RemoteStartTransactionResponse{Status: ocpp16.RemoteStartStopStatusAccepted}, nil
}

func (s *Station) handleRemoteStopTransaction(req *ocpp16.RemoteStopTransactionRequest) (*ocpp16.RemoteStopTransactionResponse, error) {
	conn, ok := s.connectorByTransactionID(fmt.Sprintf("%d", req.TransactionId))
	if !ok {
		return &ocpp16.RemoteStopTransactionResponse{Status: ocpp16.RemoteStartStopStatusRejected}, nil
	}
	go s.stopTransaction16(conn.ID, StopReasonRemote)
	return &ocpp16.RemoteStopTransactionResponse{Status: ocpp16.RemoteStartStopStatusAccepted}, nil
}

func (s *Station) handleRequestStartTransaction(req *ocpp201.RequestStartTransactionRequest) (*ocpp201.RequestStartTransactionResponse, error) {
	connectorID := 0
	if req.EvseId != nil {
		connectorID = *req.EvseId
	}
	conn, ok := s.connectorFor(connectorID)
	if !ok || conn.InTransaction() || conn.Snapshot().Availability != AvailabilityOperative {
		return &ocpp201.RequestStartTransactionResponse{Status: ocpp201.RequestStartStopRejected}, nil
	}

	verdict := s.authPipeline.Evaluate(context.Background(), auth.Identifier{
		Type:  auth.IdentifierType(req.IdToken.Type),
		Value: req.IdToken.IdToken,
	}, auth.ContextTransactionStart)
	if verdict.Status != auth.StatusAccepted {
		return &ocpp201.RequestStartTransactionResponse{Status: ocpp201.RequestStartStopRejected}, nil
	}

	txID := NewRequestID()
	tx := &Transaction{ID: txID, ConnectorID: conn.ID, IdTag: req.IdToken.IdToken, StartedAt: time.Now().UTC()}
	if !conn.StartTransaction(tx) {
		return &ocpp201.RequestStartTransactionResponse{Status: ocpp201.RequestStartStopRejected}, nil
	}

	go s.announceTransactionEvent201(tx, ocpp201.TransactionEventStarted, ocpp201.TriggerReasonRemoteStart)
	return &ocpp201.RequestStartTransactionResponse{Status: ocpp201.RequestStartStopAccepted, TransactionId: &txID}, nil
}

func (s *Station) handleRequestStopTransaction(req *ocpp201.RequestStopTransactionRequest) (*ocpp201.RequestStopTransactionResponse, error) {
	conn, ok := s.connectorByTransactionID(req.TransactionId)
	if !ok {
		return &ocpp201.RequestStopTransactionResponse{Status: ocpp201.RequestStartStopRejected}, nil
	}
	go s.stopTransaction201(conn.ID, StopReasonRemote, ocpp201.TriggerReasonRemoteStop)
	return &ocpp201.RequestStopTransactionResponse{Status: ocpp201.RequestStartStopAccepted}, nil
}

// -- ClearCache / UnlockConnector / local list -----------------------------

func (s *Station) handleClearCache16(req *ocpp16.ClearCacheRequest) (*ocpp16.ClearCacheResponse, error) {
	enabled, _ := s.cfg.Value("AuthorizationCacheEnabled")
	if enabled == "false" {
		return &ocpp16.ClearCacheResponse{Status: ocpp16.ClearCacheStatusRejected}, nil
	}
	s.authCache.Clear()
	return &ocpp16.ClearCacheResponse{Status: ocpp16.ClearCacheStatusAccepted}, nil
}

func (s *Station) handleClearCache201(req *ocpp201.ClearCacheRequest) (*ocpp201.ClearCacheResponse, error) {
	s.authCache.Clear()
	return &ocpp201.ClearCacheResponse{Status: ocpp201.ClearCacheAccepted}, nil
}

func (s *Station) handleUnlockConnector(req *ocpp16.UnlockConnectorRequest) (*ocpp16.UnlockConnectorResponse, error) {
	conn, ok := s.connectorFor(req.ConnectorId)
	if !ok {
		return &ocpp16.UnlockConnectorResponse{Status: ocpp16.UnlockStatusNotSupported}, nil
	}
	if conn.InTransaction() {
		return &ocpp16.UnlockConnectorResponse{Status: ocpp16.UnlockStatusOngoingAuthorizedTransaction}, nil
	}
	return &ocpp16.UnlockConnectorResponse{Status: ocpp16.UnlockStatusUnlocked}, nil
}

func (s *Station) handleSendLocalList(req *ocpp16.SendLocalListRequest) (*ocpp16.SendLocalListResponse, error) {
	entries := make([]auth.ListEntry, 0, len(req.LocalAuthorizationList))
	for _, e := range req.LocalAuthorizationList {
		status := auth.StatusAccepted
		if e.IdTagInfo != nil {
			status = auth.Status(e.IdTagInfo.Status)
		}
		entries = append(entries, auth.ListEntry{Identifier: e.IdTag, Status: status})
	}

	updateType := auth.UpdateFull
	if req.UpdateType == ocpp16.UpdateTypeDifferential {
		updateType = auth.UpdateDifferential
	}

	if err := s.localList.Apply(updateType, req.ListVersion, entries, nil); err != nil {
		return &ocpp16.SendLocalListResponse{Status: ocpp16.UpdateStatusVersionMismatch}, nil
	}
	return &ocpp16.SendLocalListResponse{Status: ocpp16.UpdateStatusAccepted}, nil
}

func (s *Station) handleGetLocalListVersion(req *ocpp16.GetLocalListVersionRequest) (*ocpp16.GetLocalListVersionResponse, error) {
	return &ocpp16.GetLocalListVersionResponse{ListVersion: s.localList.Version()}, nil
}

// -- Certificate management (2.0.1, delegated to C15) ----------------------

func (s *Station) handleInstallCertificate(req *ocpp201.InstallCertificateRequest) (*ocpp201.InstallCertificateResponse, error) {
	if s.certs == nil {
		return &ocpp201.InstallCertificateResponse{Status: ocpp201.InstallCertificateFailed}, nil
	}
	status, err := s.certs.Store(s.id, CertUse(req.CertificateType), req.Certificate)
	if err != nil {
		return nil, err
	}

	mapped := ocpp201.InstallCertificateFailed
	switch status {
	case CertAccepted:
		mapped = ocpp201.InstallCertificateAccepted
	case CertRejected, CertInvalid:
		mapped = ocpp201.InstallCertificateRejected
	}
	return &ocpp201.InstallCertificateResponse{Status: mapped}, nil
}

func (s *Station) handleDeleteCertificate(req *ocpp201.DeleteCertificateRequest) (*ocpp201.DeleteCertificateResponse, error) {
	if s.certs == nil {
		return &ocpp201.DeleteCertificateResponse{Status: ocpp201.DeleteCertificateNotFound}, nil
	}
	status, err := s.certs.Delete(s.id, CertHashData{
		HashAlgorithm:  CertHashAlgorithm(req.CertificateHashData.HashAlgorithm),
		IssuerNameHash: req.CertificateHashData.IssuerNameHash,
		IssuerKeyHash:  req.CertificateHashData.IssuerKeyHash,
		SerialNumber:   req.CertificateHashData.SerialNumber,
	})
	if err != nil {
		return nil, err
	}

	mapped := ocpp201.DeleteCertificateFailed
	switch status {
	case CertAccepted:
		mapped = ocpp201.DeleteCertificateAccepted
	case CertNotFound:
		mapped = ocpp201.DeleteCertificateNotFound
	}
	return &ocpp201.DeleteCertificateResponse{Status: mapped}, nil
}

func (s *Station) handleGetInstalledCertificateIds(req *ocpp201.GetInstalledCertificateIdsRequest) (*ocpp201.GetInstalledCertificateIdsResponse, error) {
	if s.certs == nil {
		return &ocpp201.GetInstalledCertificateIdsResponse{Status: ocpp201.GetInstalledCertificateNotFound}, nil
	}

	uses := make([]CertUse, 0, len(req.CertificateType))
	for _, u := range req.CertificateType {
		uses = append(uses, CertUse(u))
	}

	chains, err := s.certs.List(s.id, uses)
	if err != nil {
		return nil, err
	}
	if len(chains) == 0 {
		return &ocpp201.GetInstalledCertificateIdsResponse{Status: ocpp201.GetInstalledCertificateNotFound}, nil
	}

	resp := &ocpp201.GetInstalledCertificateIdsResponse{Status: ocpp201.GetInstalledCertificateAccepted}
	for _, c := range chains {
		chain := ocpp201.CertificateHashDataChain{
			CertificateType: ocpp201.CertificateUseType(c.Use),
			CertificateHashData: ocpp201.CertificateHashDataType{
				HashAlgorithm:  ocpp201.HashAlgorithmType(c.HashData.HashAlgorithm),
				IssuerNameHash: c.HashData.IssuerNameHash,
				IssuerKeyHash:  c.HashData.IssuerKeyHash,
				SerialNumber:   c.HashData.SerialNumber,
			},
		}
		for _, child := range c.ChildHashData {
			chain.ChildCertificateHashData = append(chain.ChildCertificateHashData, ocpp201.CertificateHashDataType{
				HashAlgorithm:  ocpp201.HashAlgorithmType(child.HashAlgorithm),
				IssuerNameHash: child.IssuerNameHash,
				IssuerKeyHash:  child.IssuerKeyHash,
				SerialNumber:   child.SerialNumber,
			})
		}
		resp.CertificateHashDataChain = append(resp.CertificateHashDataChain, chain)
	}
	return resp, nil
}

// -- ISO 15118 pass-through carriers ----------------------------------------

// handleGet15118EVCertificate forwards exiRequest to the configured
// EVCertificateCarrier and returns its exiResponse verbatim. With no
// carrier configured it falls back to the OCSP-unavailable stub spec §4.8
// sanctions for a simulator with no real EV/PKI carrier behind it.
func (s *Station) handleGet15118EVCertificate(req *ocpp201.Get15118EVCertificateRequest) (*ocpp201.Get15118EVCertificateResponse, error) {
	if s.evCertCarrier == nil {
		return &ocpp201.Get15118EVCertificateResponse{Status: "Failed", ExiResponse: ""}, nil
	}

	resp, err := s.evCertCarrier.Forward(context.Background(), req)
	if err != nil {
		return &ocpp201.Get15118EVCertificateResponse{Status: "Failed", ExiResponse: ""}, nil
	}
	return resp, nil
}

func (s *Station) handleGetCertificateStatus(req *ocpp201.GetCertificateStatusRequest) (*ocpp201.GetCertificateStatusResponse, error) {
	return &ocpp201.GetCertificateStatusResponse{Status: "Failed"}, nil
}
