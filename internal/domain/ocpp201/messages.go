package ocpp201

// ChargingStation describes the booting station's identity.
type ChargingStation struct {
	SerialNumber    *string `json:"serialNumber,omitempty" validate:"omitempty,max=25"`
	Model           string  `json:"model" validate:"required,max=20"`
	VendorName      string  `json:"vendorName" validate:"required,max=50"`
	FirmwareVersion *string `json:"firmwareVersion,omitempty" validate:"omitempty,max=50"`
}

type BootNotificationRequest struct {
	Reason          BootReasonType  `json:"reason" validate:"required"`
	ChargingStation ChargingStation `json:"chargingStation" validate:"required"`
}

type BootNotificationResponse struct {
	CurrentTime DateTime                `json:"currentTime" validate:"required"`
	Interval    int                     `json:"interval" validate:"required,min=0"`
	Status      RegistrationStatusType  `json:"status" validate:"required"`
}

// HeartbeatRequest is always the empty object — S1 pins this exactly.
type HeartbeatRequest struct{}

type HeartbeatResponse struct {
	CurrentTime DateTime `json:"currentTime" validate:"required"`
}

type StatusNotificationRequest struct {
	Timestamp       DateTime            `json:"timestamp" validate:"required"`
	ConnectorStatus ConnectorStatusType `json:"connectorStatus" validate:"required"`
	EvseId          int                 `json:"evseId" validate:"min=0"`
	ConnectorId     int                 `json:"connectorId" validate:"min=0"`
}

type StatusNotificationResponse struct{}

type AuthorizeRequest struct {
	IdToken IdToken `json:"idToken" validate:"required"`
}

type AuthorizeResponse struct {
	IdTokenInfo IdTokenInfo `json:"idTokenInfo" validate:"required"`
}

type EventTriggerType string

const (
	TriggerReasonAuthorized        EventTriggerType = "Authorized"
	TriggerReasonCablePluggedIn    EventTriggerType = "CablePluggedIn"
	TriggerReasonEVCommunicationLost EventTriggerType = "EVCommunicationLost"
	TriggerReasonMeterValuePeriodic EventTriggerType = "MeterValuePeriodic"
	TriggerReasonRemoteStart       EventTriggerType = "RemoteStart"
	TriggerReasonRemoteStop        EventTriggerType = "RemoteStop"
	TriggerReasonStopAuthorized    EventTriggerType = "StopAuthorized"
	TriggerReasonTrigger           EventTriggerType = "Trigger"
)

type TransactionEventType string

const (
	TransactionEventStarted TransactionEventType = "Started"
	TransactionEventUpdated TransactionEventType = "Updated"
	TransactionEventEnded   TransactionEventType = "Ended"
)

type ChargingStateType string

const (
	ChargingStateCharging    ChargingStateType = "Charging"
	ChargingStateEVConnected ChargingStateType = "EVConnected"
	ChargingStateIdle        ChargingStateType = "Idle"
	ChargingStateSuspendedEV ChargingStateType = "SuspendedEV"
	ChargingStateSuspendedEVSE ChargingStateType = "SuspendedEVSE"
)

type StoppedReasonType string

const (
	StoppedReasonEVDisconnected StoppedReasonType = "EVDisconnected"
	StoppedReasonLocal          StoppedReasonType = "Local"
	StoppedReasonOther          StoppedReasonType = "Other"
	StoppedReasonRemote         StoppedReasonType = "Remote"
)

type TransactionInfo struct {
	TransactionId string             `json:"transactionId" validate:"required,max=36"`
	ChargingState *ChargingStateType `json:"chargingState,omitempty"`
	StoppedReason *StoppedReasonType `json:"stoppedReason,omitempty"`
	RemoteStartId *int               `json:"remoteStartId,omitempty"`
}

type SampledValue struct {
	Value     string  `json:"value" validate:"required"`
	Context   *string `json:"context,omitempty"`
	Measurand *string `json:"measurand,omitempty"`
	Unit      *string `json:"unit,omitempty"`
}

type MeterValue struct {
	Timestamp    DateTime       `json:"timestamp" validate:"required"`
	SampledValue []SampledValue `json:"sampledValue" validate:"required,min=1"`
}

type TransactionEventRequest struct {
	EventType       TransactionEventType `json:"eventType" validate:"required"`
	Timestamp       DateTime             `json:"timestamp" validate:"required"`
	TriggerReason   EventTriggerType     `json:"triggerReason" validate:"required"`
	SeqNo           int                  `json:"seqNo" validate:"min=0"`
	TransactionInfo TransactionInfo      `json:"transactionInfo" validate:"required"`
	IdToken         *IdToken             `json:"idToken,omitempty"`
	Evse            *EVSE                `json:"evse,omitempty"`
	MeterValue      []MeterValue         `json:"meterValue,omitempty"`
}

type TransactionEventResponse struct {
	IdTokenInfo *IdTokenInfo `json:"idTokenInfo,omitempty"`
}

type MeterValuesRequest struct {
	EvseId     int          `json:"evseId" validate:"min=0"`
	MeterValue []MeterValue `json:"meterValue" validate:"required,min=1"`
}

type MeterValuesResponse struct{}

type ResetType string

const (
	ResetTypeImmediate ResetType = "Immediate"
	ResetTypeOnIdle    ResetType = "OnIdle"
)

type ResetStatusType string

const (
	ResetStatusAccepted  ResetStatusType = "Accepted"
	ResetStatusRejected  ResetStatusType = "Rejected"
	ResetStatusScheduled ResetStatusType = "Scheduled"
)

type ResetRequest struct {
	Type   ResetType `json:"type" validate:"required"`
	EvseId *int      `json:"evseId,omitempty"`
}

type ResetResponse struct {
	Status ResetStatusType `json:"status" validate:"required"`
}

type OperationalStatusType string

const (
	OperationalStatusInoperative OperationalStatusType = "Inoperative"
	OperationalStatusOperative   OperationalStatusType = "Operative"
)

type ChangeAvailabilityStatusType string

const (
	ChangeAvailabilityAccepted  ChangeAvailabilityStatusType = "Accepted"
	ChangeAvailabilityRejected  ChangeAvailabilityStatusType = "Rejected"
	ChangeAvailabilityScheduled ChangeAvailabilityStatusType = "Scheduled"
)

type ChangeAvailabilityRequest struct {
	OperationalStatus OperationalStatusType `json:"operationalStatus" validate:"required"`
	Evse              *EVSE                 `json:"evse,omitempty"`
}

type ChangeAvailabilityResponse struct {
	Status ChangeAvailabilityStatusType `json:"status" validate:"required"`
}

type AttributeStatusType string

const (
	AttributeStatusAccepted                  AttributeStatusType = "Accepted"
	AttributeStatusRejected                  AttributeStatusType = "Rejected"
	AttributeStatusUnknownComponent          AttributeStatusType = "UnknownComponent"
	AttributeStatusUnknownVariable           AttributeStatusType = "UnknownVariable"
	AttributeStatusNotSupportedAttributeType AttributeStatusType = "NotSupportedAttributeType"
	AttributeStatusInvalidValue              AttributeStatusType = "InvalidValue"
	AttributeStatusRebootRequired            AttributeStatusType = "RebootRequired"
)

type GetVariableDatum struct {
	Component     Component      `json:"component" validate:"required"`
	Variable      Variable       `json:"variable" validate:"required"`
	AttributeType *AttributeType `json:"attributeType,omitempty"`
}

type GetVariablesRequest struct {
	GetVariableData []GetVariableDatum `json:"getVariableData" validate:"required,min=1"`
}

type GetVariableResult struct {
	AttributeStatus AttributeStatusType `json:"attributeStatus" validate:"required"`
	AttributeType   *AttributeType      `json:"attributeType,omitempty"`
	AttributeValue  *string             `json:"attributeValue,omitempty"`
	Component       Component           `json:"component" validate:"required"`
	Variable        Variable            `json:"variable" validate:"required"`
}

type GetVariablesResponse struct {
	GetVariableResult []GetVariableResult `json:"getVariableResult" validate:"required,min=1"`
}

type SetVariableDatum struct {
	AttributeType  *AttributeType `json:"attributeType,omitempty"`
	AttributeValue string         `json:"attributeValue" validate:"required"`
	Component      Component      `json:"component" validate:"required"`
	Variable       Variable       `json:"variable" validate:"required"`
}

type SetVariableResult struct {
	AttributeType   *AttributeType      `json:"attributeType,omitempty"`
	AttributeStatus AttributeStatusType `json:"attributeStatus" validate:"required"`
	Component       Component           `json:"component" validate:"required"`
	Variable        Variable            `json:"variable" validate:"required"`
}

type SetVariablesRequest struct {
	SetVariableData []SetVariableDatum `json:"setVariableData" validate:"required,min=1"`
}

type SetVariablesResponse struct {
	SetVariableResult []SetVariableResult `json:"setVariableResult" validate:"required,min=1"`
}

type ReportBaseType string

const (
	ReportBaseConfigurationInventory ReportBaseType = "ConfigurationInventory"
	ReportBaseFullInventory          ReportBaseType = "FullInventory"
	ReportBaseSummaryInventory       ReportBaseType = "SummaryInventory"
)

type GenericDeviceModelStatusType string

const (
	GenericDeviceModelAccepted        GenericDeviceModelStatusType = "Accepted"
	GenericDeviceModelRejected        GenericDeviceModelStatusType = "Rejected"
	GenericDeviceModelNotSupported    GenericDeviceModelStatusType = "NotSupported"
	GenericDeviceModelEmptyResultSet  GenericDeviceModelStatusType = "EmptyResultSet"
)

type GetBaseReportRequest struct {
	RequestId   int            `json:"requestId" validate:"required"`
	ReportBase  ReportBaseType `json:"reportBase" validate:"required"`
}

type GetBaseReportResponse struct {
	Status GenericDeviceModelStatusType `json:"status" validate:"required"`
}

type VariableAttribute struct {
	Type  AttributeType `json:"type,omitempty"`
	Value string        `json:"value,omitempty"`
}

type ReportDatum struct {
	Component          Component           `json:"component" validate:"required"`
	Variable           Variable            `json:"variable" validate:"required"`
	VariableAttribute  []VariableAttribute `json:"variableAttribute" validate:"required,min=1"`
}

type NotifyReportRequest struct {
	RequestId  int           `json:"requestId" validate:"required"`
	GeneratedAt DateTime     `json:"generatedAt" validate:"required"`
	SeqNo      int           `json:"seqNo" validate:"min=0"`
	TBC        bool          `json:"tbc,omitempty"`
	ReportData []ReportDatum `json:"reportData,omitempty"`
}

type NotifyReportResponse struct{}

type RequestStartStopStatusType string

const (
	RequestStartStopAccepted RequestStartStopStatusType = "Accepted"
	RequestStartStopRejected RequestStartStopStatusType = "Rejected"
)

type RequestStartTransactionRequest struct {
	EvseId        *int    `json:"evseId,omitempty"`
	RemoteStartId int     `json:"remoteStartId" validate:"required"`
	IdToken       IdToken `json:"idToken" validate:"required"`
}

type RequestStartTransactionResponse struct {
	Status        RequestStartStopStatusType `json:"status" validate:"required"`
	TransactionId *string                    `json:"transactionId,omitempty"`
}

type RequestStopTransactionRequest struct {
	TransactionId string `json:"transactionId" validate:"required,max=36"`
}

type RequestStopTransactionResponse struct {
	Status RequestStartStopStatusType `json:"status" validate:"required"`
}

type ClearCacheStatusType string

const (
	ClearCacheAccepted ClearCacheStatusType = "Accepted"
	ClearCacheRejected ClearCacheStatusType = "Rejected"
)

type ClearCacheRequest struct{}

type ClearCacheResponse struct {
	Status ClearCacheStatusType `json:"status" validate:"required"`
}

type HashAlgorithmType string

const (
	HashAlgorithmSHA256 HashAlgorithmType = "SHA256"
	HashAlgorithmSHA384 HashAlgorithmType = "SHA384"
	HashAlgorithmSHA512 HashAlgorithmType = "SHA512"
)

type CertificateHashDataType struct {
	HashAlgorithm  HashAlgorithmType `json:"hashAlgorithm" validate:"required"`
	IssuerNameHash string            `json:"issuerNameHash" validate:"required,max=128"`
	IssuerKeyHash  string            `json:"issuerKeyHash" validate:"required,max=128"`
	SerialNumber   string            `json:"serialNumber" validate:"required,max=40"`
}

type CertificateUseType string

const (
	CertificateUseCSMSRoot        CertificateUseType = "CSMSRootCertificate"
	CertificateUseV2GRoot         CertificateUseType = "V2GRootCertificate"
	CertificateUseManufacturerRoot CertificateUseType = "ManufacturerRootCertificate"
	CertificateUseMORoot          CertificateUseType = "MORootCertificate"
)

type InstallCertificateStatusType string

const (
	InstallCertificateAccepted InstallCertificateStatusType = "Accepted"
	InstallCertificateRejected InstallCertificateStatusType = "Rejected"
	InstallCertificateFailed   InstallCertificateStatusType = "Failed"
)

type InstallCertificateRequest struct {
	CertificateType CertificateUseType `json:"certificateType" validate:"required"`
	Certificate     string             `json:"certificate" validate:"required"`
}

type InstallCertificateResponse struct {
	Status InstallCertificateStatusType `json:"status" validate:"required"`
}

type DeleteCertificateStatusType string

const (
	DeleteCertificateAccepted DeleteCertificateStatusType = "Accepted"
	DeleteCertificateFailed   DeleteCertificateStatusType = "Failed"
	DeleteCertificateNotFound DeleteCertificateStatusType = "NotFound"
)

type DeleteCertificateRequest struct {
	CertificateHashData CertificateHashDataType `json:"certificateHashData" validate:"required"`
}

type DeleteCertificateResponse struct {
	Status DeleteCertificateStatusType `json:"status" validate:"required"`
}

type CertificateHashDataChain struct {
	CertificateType     CertificateUseType        `json:"certificateType"`
	CertificateHashData CertificateHashDataType    `json:"certificateHashData"`
	ChildCertificateHashData []CertificateHashDataType `json:"childCertificateHashData,omitempty"`
}

type GetInstalledCertificateStatusType string

const (
	GetInstalledCertificateAccepted         GetInstalledCertificateStatusType = "Accepted"
	GetInstalledCertificateNotFound         GetInstalledCertificateStatusType = "NotFound"
)

type GetInstalledCertificateIdsRequest struct {
	CertificateType []CertificateUseType `json:"certificateType,omitempty"`
}

type GetInstalledCertificateIdsResponse struct {
	Status                    GetInstalledCertificateStatusType `json:"status" validate:"required"`
	CertificateHashDataChain  []CertificateHashDataChain        `json:"certificateHashDataChain,omitempty"`
}

type Get15118EVCertificateRequest struct {
	Iso15118SchemaVersion string `json:"iso15118SchemaVersion" validate:"required,max=50"`
	Action                string `json:"action" validate:"required"`
	ExiRequest            string `json:"exiRequest" validate:"required"`
}

type Get15118EVCertificateResponse struct {
	Status      string `json:"status" validate:"required"`
	ExiResponse string `json:"exiResponse" validate:"required"`
}

type GetCertificateStatusRequest struct {
	OcspRequestData CertificateHashDataType `json:"ocspRequestData" validate:"required"`
}

type GetCertificateStatusResponse struct {
	Status string  `json:"status" validate:"required"`
	OcspResult *string `json:"ocspResult,omitempty"`
}
