// Package uiserver implements C13: the UI control-plane server, exposing a
// persistent WebSocket and a request/response HTTP endpoint over the same
// procedure set, grounded on the teacher's websocket.Manager HTTP bootstrap
// (ServeMux + http.Server) and on JoseRFJuniorLLMs-EV-IA's SecurityManager
// for origin/subprotocol checks, with a fresh token-bucket limiter in place
// of that reference's plain connection counter.
package uiserver

import "context"

// StationInfo is one row of ListChargingStations.
type StationInfo struct {
	HashID       string `json:"hashId"`
	TemplateName string `json:"templateName"`
	State        string `json:"state"`
}

// BatchResult is the aggregate shape spec §4.13 describes for hashIds-scoped
// procedures: every targeted station lands in either Succeeded or Failed.
type BatchResult struct {
	HashIDsSucceeded []string `json:"hashIdsSucceeded"`
	HashIDsFailed    []string `json:"hashIdsFailed"`
}

// Fleet is the contract the control plane drives; cmd/simulator supplies the
// concrete implementation wiring together the worker.Pool(s) it built, since
// constructing one requires the station.Config/session/configstore/auth
// plumbing this package has no business owning.
type Fleet interface {
	ListTemplates() []string
	ListStations() []StationInfo

	AddStations(ctx context.Context, templateName string, count int) ([]string, error)
	DeleteStations(ctx context.Context, hashIDs []string) BatchResult

	StartStations(ctx context.Context, hashIDs []string) BatchResult
	StopStations(ctx context.Context, hashIDs []string) BatchResult
	OpenConnection(ctx context.Context, hashID string) error
	CloseConnection(ctx context.Context, hashID string) error

	StartTransaction(ctx context.Context, hashID string, connectorID int, idTag string) error
	StopTransaction(ctx context.Context, hashID string, connectorID int) error

	StartATG(ctx context.Context, hashIDs []string) BatchResult
	StopATG(ctx context.Context, hashIDs []string) BatchResult

	SetSupervisionURL(ctx context.Context, hashID, url string) error

	StartSimulator(ctx context.Context) error
	StopSimulator(ctx context.Context) error
}

func success(fields map[string]interface{}) map[string]interface{} {
	if fields == nil {
		fields = map[string]interface{}{}
	}
	fields["status"] = "success"
	return fields
}

func failure(reason string) map[string]interface{} {
	return map[string]interface{}{"status": "failure", "reason": reason}
}
