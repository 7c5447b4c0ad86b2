package uiserver

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/charging-platform/charge-point-simulator/internal/metrics"
)

// dispatch runs one procedure against the fleet and returns the fields the
// response envelope carries alongside status, per spec §4.13's procedure
// set. Unknown procedures and payload decode errors surface as failures
// rather than panics or dropped connections.
func (s *Server) dispatch(ctx context.Context, procedure string, payload json.RawMessage) map[string]interface{} {
	start := time.Now()
	defer func() {
		metrics.UIProcedureDuration.WithLabelValues(procedure).Observe(time.Since(start).Seconds())
	}()

	switch procedure {
	case "ListChargingStations":
		return success(map[string]interface{}{"stations": s.fleet.ListStations()})

	case "ListTemplates":
		return success(map[string]interface{}{"templates": s.fleet.ListTemplates()})

	case "AddChargingStations":
		var p struct {
			TemplateName string `json:"templateName"`
			Count        int    `json:"count"`
		}
		if err := json.Unmarshal(payload, &p); err != nil {
			return failure(err.Error())
		}
		if p.Count <= 0 {
			p.Count = 1
		}
		if s.maxStationsPerAdd > 0 && p.Count > s.maxStationsPerAdd {
			return failure(fmt.Sprintf("count %d exceeds max %d stations per add", p.Count, s.maxStationsPerAdd))
		}
		hashIDs, err := s.fleet.AddStations(ctx, p.TemplateName, p.Count)
		if err != nil {
			return failure(err.Error())
		}
		return success(map[string]interface{}{"hashIds": hashIDs})

	case "DeleteChargingStations":
		hashIDs, err := decodeHashIDs(payload)
		if err != nil {
			return failure(err.Error())
		}
		return batchFields(s.fleet.DeleteStations(ctx, hashIDs))

	case "StartChargingStation":
		hashIDs, err := decodeHashIDs(payload)
		if err != nil {
			return failure(err.Error())
		}
		return batchFields(s.fleet.StartStations(ctx, hashIDs))

	case "StopChargingStation":
		hashIDs, err := decodeHashIDs(payload)
		if err != nil {
			return failure(err.Error())
		}
		return batchFields(s.fleet.StopStations(ctx, hashIDs))

	case "StartAutomaticTransactionGenerator":
		hashIDs, err := decodeHashIDs(payload)
		if err != nil {
			return failure(err.Error())
		}
		return batchFields(s.fleet.StartATG(ctx, hashIDs))

	case "StopAutomaticTransactionGenerator":
		hashIDs, err := decodeHashIDs(payload)
		if err != nil {
			return failure(err.Error())
		}
		return batchFields(s.fleet.StopATG(ctx, hashIDs))

	case "OpenConnection":
		hashID, err := decodeHashID(payload)
		if err != nil {
			return failure(err.Error())
		}
		if err := s.fleet.OpenConnection(ctx, hashID); err != nil {
			return failure(err.Error())
		}
		return success(nil)

	case "CloseConnection":
		hashID, err := decodeHashID(payload)
		if err != nil {
			return failure(err.Error())
		}
		if err := s.fleet.CloseConnection(ctx, hashID); err != nil {
			return failure(err.Error())
		}
		return success(nil)

	case "StartTransaction":
		var p struct {
			HashID      string `json:"hashId"`
			ConnectorID int    `json:"connectorId"`
			IdTag       string `json:"idTag"`
		}
		if err := json.Unmarshal(payload, &p); err != nil {
			return failure(err.Error())
		}
		if err := s.fleet.StartTransaction(ctx, p.HashID, p.ConnectorID, p.IdTag); err != nil {
			return failure(err.Error())
		}
		return success(nil)

	case "StopTransaction":
		var p struct {
			HashID      string `json:"hashId"`
			ConnectorID int    `json:"connectorId"`
		}
		if err := json.Unmarshal(payload, &p); err != nil {
			return failure(err.Error())
		}
		if err := s.fleet.StopTransaction(ctx, p.HashID, p.ConnectorID); err != nil {
			return failure(err.Error())
		}
		return success(nil)

	case "SetSupervisionUrl":
		var p struct {
			HashID string `json:"hashId"`
			URL    string `json:"url"`
		}
		if err := json.Unmarshal(payload, &p); err != nil {
			return failure(err.Error())
		}
		if err := s.fleet.SetSupervisionURL(ctx, p.HashID, p.URL); err != nil {
			return failure(err.Error())
		}
		return success(nil)

	case "StartSimulator":
		if err := s.fleet.StartSimulator(ctx); err != nil {
			return failure(err.Error())
		}
		return success(nil)

	case "StopSimulator":
		if err := s.fleet.StopSimulator(ctx); err != nil {
			return failure(err.Error())
		}
		return success(nil)

	default:
		return failure(fmt.Sprintf("unknown procedure %q", procedure))
	}
}

func decodeHashIDs(payload json.RawMessage) ([]string, error) {
	var p struct {
		HashIDs []string `json:"hashIds"`
	}
	if err := json.Unmarshal(payload, &p); err != nil {
		return nil, err
	}
	return p.HashIDs, nil
}

func decodeHashID(payload json.RawMessage) (string, error) {
	var p struct {
		HashID string `json:"hashId"`
	}
	if err := json.Unmarshal(payload, &p); err != nil {
		return "", err
	}
	return p.HashID, nil
}

func batchFields(result BatchResult) map[string]interface{} {
	status := "success"
	if len(result.HashIDsFailed) > 0 {
		status = "failure"
	}
	return map[string]interface{}{
		"status":           status,
		"hashIdsSucceeded": result.HashIDsSucceeded,
		"hashIdsFailed":    result.HashIDsFailed,
	}
}
