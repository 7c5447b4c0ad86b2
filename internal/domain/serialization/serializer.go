package serialization

import (
	"encoding/json"
	"fmt"
	"reflect"

	"github.com/charging-platform/charge-point-simulator/internal/domain/ocpp16"
	"github.com/charging-platform/charge-point-simulator/internal/domain/ocpp201"
)

// ErrorKind classifies a decode/encode failure per the wire codec contract
// (C1): callers switch on this to decide between a CallError reply
// (FormationViolation), a dropped frame (ProtocolError), or an internal
// programmer error (Unsupported).
type ErrorKind string

const (
	KindFormat     ErrorKind = "FormatError"
	KindProtocol   ErrorKind = "ProtocolError"
	KindSchema     ErrorKind = "SchemaError"
	KindUnsupported ErrorKind = "Unsupported"
)

// OCPPVersion selects which action/type table GetPayloadType consults.
type OCPPVersion string

const (
	Version16  OCPPVersion = "ocpp1.6"
	Version201 OCPPVersion = "ocpp2.0.1"
)

// SerializationFormat 序列化格式
type SerializationFormat string

const (
	FormatJSON SerializationFormat = "json"
	FormatXML  SerializationFormat = "xml"
)

// Serializer 消息序列化器
type Serializer struct {
	format SerializationFormat
}

// SerializationError 序列化错误
type SerializationError struct {
	Operation string
	Message   string
	Cause     error
	Kind      ErrorKind
}

// Error 实现error接口
func (e SerializationError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s failed: %s (caused by: %v)", e.Operation, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s failed: %s", e.Operation, e.Message)
}

// Unwrap lets callers use errors.Is/errors.As against the wrapped cause.
func (e SerializationError) Unwrap() error {
	return e.Cause
}

// NewSerializer 创建新的序列化器
func NewSerializer(format SerializationFormat) *Serializer {
	return &Serializer{
		format: format,
	}
}

// SerializeMessage 序列化OCPP消息
func (s *Serializer) SerializeMessage(messageType int, messageID string, action string, payload interface{}) ([]byte, error) {
	switch s.format {
	case FormatJSON:
		return s.serializeJSON(messageType, messageID, action, payload)
	case FormatXML:
		return nil, SerializationError{
			Operation: "SerializeMessage",
			Message:   "XML format not implemented",
		}
	default:
		return nil, SerializationError{
			Operation: "SerializeMessage",
			Message:   fmt.Sprintf("Unsupported format: %s", s.format),
		}
	}
}

// DeserializeMessage 反序列化OCPP消息
func (s *Serializer) DeserializeMessage(data []byte) (messageType int, messageID string, action string, payload json.RawMessage, err error) {
	switch s.format {
	case FormatJSON:
		return s.deserializeJSON(data)
	case FormatXML:
		return 0, "", "", nil, SerializationError{
			Operation: "DeserializeMessage",
			Message:   "XML format not implemented",
		}
	default:
		return 0, "", "", nil, SerializationError{
			Operation: "DeserializeMessage",
			Message:   fmt.Sprintf("Unsupported format: %s", s.format),
		}
	}
}

// serializeJSON 序列化为JSON格式
func (s *Serializer) serializeJSON(messageType int, messageID string, action string, payload interface{}) ([]byte, error) {
	var message []interface{}
	
	switch messageType {
	case 2: // Call
		message = []interface{}{messageType, messageID, action, payload}
	case 3: // CallResult
		message = []interface{}{messageType, messageID, payload}
	case 4: // CallError
		if errorPayload, ok := payload.(map[string]interface{}); ok {
			errorCode := errorPayload["errorCode"]
			errorDescription := errorPayload["errorDescription"]
			errorDetails := errorPayload["errorDetails"]
			message = []interface{}{messageType, messageID, errorCode, errorDescription, errorDetails}
		} else {
			return nil, SerializationError{
				Operation: "serializeJSON",
				Message:   "Invalid CallError payload format",
			}
		}
	default:
		return nil, SerializationError{
			Operation: "serializeJSON",
			Message:   fmt.Sprintf("Invalid message type: %d", messageType),
		}
	}
	
	data, err := json.Marshal(message)
	if err != nil {
		return nil, SerializationError{
			Operation: "serializeJSON",
			Message:   "Failed to marshal JSON",
			Cause:     err,
		}
	}
	
	return data, nil
}

// deserializeJSON 从JSON格式反序列化
func (s *Serializer) deserializeJSON(data []byte) (messageType int, messageID string, action string, payload json.RawMessage, err error) {
	var message []json.RawMessage
	
	if err := json.Unmarshal(data, &message); err != nil {
		return 0, "", "", nil, SerializationError{
			Operation: "deserializeJSON",
				Kind:      KindFormat,
			Message:   "Failed to unmarshal JSON array",
			Cause:     err,
		}
	}
	
	if len(message) < 3 {
		return 0, "", "", nil, SerializationError{
			Operation: "deserializeJSON",
				Kind:      KindFormat,
			Message:   "Message array too short",
		}
	}
	
	// 解析消息类型
	var msgType int
	if err := json.Unmarshal(message[0], &msgType); err != nil {
		return 0, "", "", nil, SerializationError{
			Operation: "deserializeJSON",
				Kind:      KindFormat,
			Message:   "Failed to parse message type",
			Cause:     err,
		}
	}
	
	// 解析消息ID
	var msgID string
	if err := json.Unmarshal(message[1], &msgID); err != nil {
		return 0, "", "", nil, SerializationError{
			Operation: "deserializeJSON",
				Kind:      KindFormat,
			Message:   "Failed to parse message ID",
			Cause:     err,
		}
	}
	
	switch msgType {
	case 2: // Call
		if len(message) != 4 {
			return 0, "", "", nil, SerializationError{
				Operation: "deserializeJSON",
				Kind:      KindFormat,
				Message:   "Call message must have exactly 4 elements",
			}
		}
		
		var act string
		if err := json.Unmarshal(message[2], &act); err != nil {
			return 0, "", "", nil, SerializationError{
				Operation: "deserializeJSON",
				Kind:      KindFormat,
				Message:   "Failed to parse action",
				Cause:     err,
			}
		}
		
		return msgType, msgID, act, message[3], nil
		
	case 3: // CallResult
		if len(message) != 3 {
			return 0, "", "", nil, SerializationError{
				Operation: "deserializeJSON",
				Kind:      KindFormat,
				Message:   "CallResult message must have exactly 3 elements",
			}
		}
		
		return msgType, msgID, "", message[2], nil
		
	case 4: // CallError
		if len(message) < 4 || len(message) > 5 {
			return 0, "", "", nil, SerializationError{
				Operation: "deserializeJSON",
				Kind:      KindFormat,
				Message:   "CallError message must have 4 or 5 elements",
			}
		}
		
		// 构造错误payload
		errorPayload := map[string]interface{}{}
		
		var errorCode string
		if err := json.Unmarshal(message[2], &errorCode); err != nil {
			return 0, "", "", nil, SerializationError{
				Operation: "deserializeJSON",
				Kind:      KindFormat,
				Message:   "Failed to parse error code",
				Cause:     err,
			}
		}
		errorPayload["errorCode"] = errorCode
		
		var errorDescription string
		if err := json.Unmarshal(message[3], &errorDescription); err != nil {
			return 0, "", "", nil, SerializationError{
				Operation: "deserializeJSON",
				Kind:      KindFormat,
				Message:   "Failed to parse error description",
				Cause:     err,
			}
		}
		errorPayload["errorDescription"] = errorDescription
		
		if len(message) == 5 {
			var errorDetails interface{}
			if err := json.Unmarshal(message[4], &errorDetails); err != nil {
				return 0, "", "", nil, SerializationError{
					Operation: "deserializeJSON",
				Kind:      KindFormat,
					Message:   "Failed to parse error details",
					Cause:     err,
				}
			}
			errorPayload["errorDetails"] = errorDetails
		}
		
		payloadData, _ := json.Marshal(errorPayload)
		return msgType, msgID, "", payloadData, nil
		
	default:
		return 0, "", "", nil, SerializationError{
			Operation: "deserializeJSON",
				Kind:      KindFormat,
			Message:   fmt.Sprintf("Invalid message type: %d", msgType),
		}
	}
}

// SerializePayload 序列化载荷到指定类型
func (s *Serializer) SerializePayload(payload interface{}) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, SerializationError{
			Operation: "SerializePayload",
			Message:   "Failed to marshal payload",
			Cause:     err,
		}
	}
	return data, nil
}

// DeserializePayload 反序列化载荷到指定类型
func (s *Serializer) DeserializePayload(data []byte, target interface{}) error {
	if err := json.Unmarshal(data, target); err != nil {
		return SerializationError{
			Operation: "DeserializePayload",
			Message:   "Failed to unmarshal payload",
			Cause:     err,
		}
	}
	return nil
}

// GetPayloadType 根据action获取对应的payload类型
func (s *Serializer) GetPayloadType(action string, isRequest bool) reflect.Type {
	payloadTypes := map[string]map[bool]reflect.Type{
		"BootNotification": {
			true:  reflect.TypeOf(ocpp16.BootNotificationRequest{}),
			false: reflect.TypeOf(ocpp16.BootNotificationResponse{}),
		},
		"Heartbeat": {
			true:  reflect.TypeOf(ocpp16.HeartbeatRequest{}),
			false: reflect.TypeOf(ocpp16.HeartbeatResponse{}),
		},
		"StatusNotification": {
			true:  reflect.TypeOf(ocpp16.StatusNotificationRequest{}),
			false: reflect.TypeOf(ocpp16.StatusNotificationResponse{}),
		},
		"Authorize": {
			true:  reflect.TypeOf(ocpp16.AuthorizeRequest{}),
			false: reflect.TypeOf(ocpp16.AuthorizeResponse{}),
		},
		"StartTransaction": {
			true:  reflect.TypeOf(ocpp16.StartTransactionRequest{}),
			false: reflect.TypeOf(ocpp16.StartTransactionResponse{}),
		},
		"StopTransaction": {
			true:  reflect.TypeOf(ocpp16.StopTransactionRequest{}),
			false: reflect.TypeOf(ocpp16.StopTransactionResponse{}),
		},
		"MeterValues": {
			true:  reflect.TypeOf(ocpp16.MeterValuesRequest{}),
			false: reflect.TypeOf(ocpp16.MeterValuesResponse{}),
		},
		"DataTransfer": {
			true:  reflect.TypeOf(ocpp16.DataTransferRequest{}),
			false: reflect.TypeOf(ocpp16.DataTransferResponse{}),
		},
		"Reset": {
			true:  reflect.TypeOf(ocpp16.ResetRequest{}),
			false: reflect.TypeOf(ocpp16.ResetResponse{}),
		},
		"ChangeAvailability": {
			true:  reflect.TypeOf(ocpp16.ChangeAvailabilityRequest{}),
			false: reflect.TypeOf(ocpp16.ChangeAvailabilityResponse{}),
		},
		"GetConfiguration": {
			true:  reflect.TypeOf(ocpp16.GetConfigurationRequest{}),
			false: reflect.TypeOf(ocpp16.GetConfigurationResponse{}),
		},
		"ChangeConfiguration": {
			true:  reflect.TypeOf(ocpp16.ChangeConfigurationRequest{}),
			false: reflect.TypeOf(ocpp16.ChangeConfigurationResponse{}),
		},
		"ClearCache": {
			true:  reflect.TypeOf(ocpp16.ClearCacheRequest{}),
			false: reflect.TypeOf(ocpp16.ClearCacheResponse{}),
		},
		"UnlockConnector": {
			true:  reflect.TypeOf(ocpp16.UnlockConnectorRequest{}),
			false: reflect.TypeOf(ocpp16.UnlockConnectorResponse{}),
		},
		"RemoteStartTransaction": {
			true:  reflect.TypeOf(ocpp16.RemoteStartTransactionRequest{}),
			false: reflect.TypeOf(ocpp16.RemoteStartTransactionResponse{}),
		},
		"RemoteStopTransaction": {
			true:  reflect.TypeOf(ocpp16.RemoteStopTransactionRequest{}),
			false: reflect.TypeOf(ocpp16.RemoteStopTransactionResponse{}),
		},
		"SendLocalList": {
			true:  reflect.TypeOf(ocpp16.SendLocalListRequest{}),
			false: reflect.TypeOf(ocpp16.SendLocalListResponse{}),
		},
		"GetLocalListVersion": {
			true:  reflect.TypeOf(ocpp16.GetLocalListVersionRequest{}),
			false: reflect.TypeOf(ocpp16.GetLocalListVersionResponse{}),
		},
	}
	
	if actionTypes, exists := payloadTypes[action]; exists {
		if payloadType, exists := actionTypes[isRequest]; exists {
			return payloadType
		}
	}
	
	return nil
}

// CreatePayloadInstance 创建payload实例
func (s *Serializer) CreatePayloadInstance(action string, isRequest bool) interface{} {
	payloadType := s.GetPayloadType(action, isRequest)
	if payloadType == nil {
		return nil
	}

	return reflect.New(payloadType).Interface()
}

var ocpp201PayloadTypes = map[string]map[bool]reflect.Type{
	"BootNotification": {
		true:  reflect.TypeOf(ocpp201.BootNotificationRequest{}),
		false: reflect.TypeOf(ocpp201.BootNotificationResponse{}),
	},
	"Heartbeat": {
		true:  reflect.TypeOf(ocpp201.HeartbeatRequest{}),
		false: reflect.TypeOf(ocpp201.HeartbeatResponse{}),
	},
	"StatusNotification": {
		true:  reflect.TypeOf(ocpp201.StatusNotificationRequest{}),
		false: reflect.TypeOf(ocpp201.StatusNotificationResponse{}),
	},
	"Authorize": {
		true:  reflect.TypeOf(ocpp201.AuthorizeRequest{}),
		false: reflect.TypeOf(ocpp201.AuthorizeResponse{}),
	},
	"TransactionEvent": {
		true:  reflect.TypeOf(ocpp201.TransactionEventRequest{}),
		false: reflect.TypeOf(ocpp201.TransactionEventResponse{}),
	},
	"MeterValues": {
		true:  reflect.TypeOf(ocpp201.MeterValuesRequest{}),
		false: reflect.TypeOf(ocpp201.MeterValuesResponse{}),
	},
	"Reset": {
		true:  reflect.TypeOf(ocpp201.ResetRequest{}),
		false: reflect.TypeOf(ocpp201.ResetResponse{}),
	},
	"ChangeAvailability": {
		true:  reflect.TypeOf(ocpp201.ChangeAvailabilityRequest{}),
		false: reflect.TypeOf(ocpp201.ChangeAvailabilityResponse{}),
	},
	"GetVariables": {
		true:  reflect.TypeOf(ocpp201.GetVariablesRequest{}),
		false: reflect.TypeOf(ocpp201.GetVariablesResponse{}),
	},
	"SetVariables": {
		true:  reflect.TypeOf(ocpp201.SetVariablesRequest{}),
		false: reflect.TypeOf(ocpp201.SetVariablesResponse{}),
	},
	"GetBaseReport": {
		true:  reflect.TypeOf(ocpp201.GetBaseReportRequest{}),
		false: reflect.TypeOf(ocpp201.GetBaseReportResponse{}),
	},
	"NotifyReport": {
		true:  reflect.TypeOf(ocpp201.NotifyReportRequest{}),
		false: reflect.TypeOf(ocpp201.NotifyReportResponse{}),
	},
	"RequestStartTransaction": {
		true:  reflect.TypeOf(ocpp201.RequestStartTransactionRequest{}),
		false: reflect.TypeOf(ocpp201.RequestStartTransactionResponse{}),
	},
	"RequestStopTransaction": {
		true:  reflect.TypeOf(ocpp201.RequestStopTransactionRequest{}),
		false: reflect.TypeOf(ocpp201.RequestStopTransactionResponse{}),
	},
	"ClearCache": {
		true:  reflect.TypeOf(ocpp201.ClearCacheRequest{}),
		false: reflect.TypeOf(ocpp201.ClearCacheResponse{}),
	},
	"InstallCertificate": {
		true:  reflect.TypeOf(ocpp201.InstallCertificateRequest{}),
		false: reflect.TypeOf(ocpp201.InstallCertificateResponse{}),
	},
	"DeleteCertificate": {
		true:  reflect.TypeOf(ocpp201.DeleteCertificateRequest{}),
		false: reflect.TypeOf(ocpp201.DeleteCertificateResponse{}),
	},
	"GetInstalledCertificateIds": {
		true:  reflect.TypeOf(ocpp201.GetInstalledCertificateIdsRequest{}),
		false: reflect.TypeOf(ocpp201.GetInstalledCertificateIdsResponse{}),
	},
	"Get15118EVCertificate": {
		true:  reflect.TypeOf(ocpp201.Get15118EVCertificateRequest{}),
		false: reflect.TypeOf(ocpp201.Get15118EVCertificateResponse{}),
	},
	"GetCertificateStatus": {
		true:  reflect.TypeOf(ocpp201.GetCertificateStatusRequest{}),
		false: reflect.TypeOf(ocpp201.GetCertificateStatusResponse{}),
	},
}

// GetPayloadTypeFor looks up a payload type for a specific OCPP version. A
// missing schema for an action under that version is reported the way the
// wire codec contract requires: the caller sees a nil type and must reply
// Unsupported, not panic or guess a shape.
func (s *Serializer) GetPayloadTypeFor(version OCPPVersion, action string, isRequest bool) reflect.Type {
	switch version {
	case Version201:
		if actionTypes, ok := ocpp201PayloadTypes[action]; ok {
			return actionTypes[isRequest]
		}
		return nil
	default:
		return s.GetPayloadType(action, isRequest)
	}
}

// CreatePayloadInstanceFor mirrors CreatePayloadInstance but is version-aware.
func (s *Serializer) CreatePayloadInstanceFor(version OCPPVersion, action string, isRequest bool) interface{} {
	t := s.GetPayloadTypeFor(version, action, isRequest)
	if t == nil {
		return nil
	}
	return reflect.New(t).Interface()
}

// PrettyPrint 格式化打印JSON
func (s *Serializer) PrettyPrint(data []byte) ([]byte, error) {
	var temp interface{}
	if err := json.Unmarshal(data, &temp); err != nil {
		return nil, SerializationError{
			Operation: "PrettyPrint",
			Message:   "Failed to parse JSON",
			Cause:     err,
		}
	}
	
	prettyData, err := json.MarshalIndent(temp, "", "  ")
	if err != nil {
		return nil, SerializationError{
			Operation: "PrettyPrint",
			Message:   "Failed to format JSON",
			Cause:     err,
		}
	}
	
	return prettyData, nil
}

// CompactJSON 压缩JSON
func (s *Serializer) CompactJSON(data []byte) ([]byte, error) {
	var temp interface{}
	if err := json.Unmarshal(data, &temp); err != nil {
		return nil, SerializationError{
			Operation: "CompactJSON",
			Message:   "Failed to parse JSON",
			Cause:     err,
		}
	}
	
	compactData, err := json.Marshal(temp)
	if err != nil {
		return nil, SerializationError{
			Operation: "CompactJSON",
			Message:   "Failed to compact JSON",
			Cause:     err,
		}
	}
	
	return compactData, nil
}
