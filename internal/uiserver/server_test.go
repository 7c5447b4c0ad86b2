package uiserver

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/charging-platform/charge-point-simulator/internal/config"
	"github.com/charging-platform/charge-point-simulator/internal/logger"
)

type fakeFleet struct {
	stations  []StationInfo
	templates []string
	addErr    error
	lastAdded struct {
		template string
		count    int
	}
}

func (f *fakeFleet) ListTemplates() []string      { return f.templates }
func (f *fakeFleet) ListStations() []StationInfo { return f.stations }

func (f *fakeFleet) AddStations(ctx context.Context, templateName string, count int) ([]string, error) {
	f.lastAdded.template = templateName
	f.lastAdded.count = count
	if f.addErr != nil {
		return nil, f.addErr
	}
	ids := make([]string, count)
	for i := range ids {
		ids[i] = templateName
	}
	return ids, nil
}

func (f *fakeFleet) DeleteStations(ctx context.Context, hashIDs []string) BatchResult {
	return BatchResult{HashIDsSucceeded: hashIDs}
}
func (f *fakeFleet) StartStations(ctx context.Context, hashIDs []string) BatchResult {
	return BatchResult{HashIDsSucceeded: hashIDs}
}
func (f *fakeFleet) StopStations(ctx context.Context, hashIDs []string) BatchResult {
	return BatchResult{HashIDsSucceeded: hashIDs}
}
func (f *fakeFleet) OpenConnection(ctx context.Context, hashID string) error  { return nil }
func (f *fakeFleet) CloseConnection(ctx context.Context, hashID string) error { return nil }
func (f *fakeFleet) StartTransaction(ctx context.Context, hashID string, connectorID int, idTag string) error {
	return nil
}
func (f *fakeFleet) StopTransaction(ctx context.Context, hashID string, connectorID int) error {
	return nil
}
func (f *fakeFleet) StartATG(ctx context.Context, hashIDs []string) BatchResult {
	return BatchResult{HashIDsSucceeded: hashIDs}
}
func (f *fakeFleet) StopATG(ctx context.Context, hashIDs []string) BatchResult {
	return BatchResult{HashIDsSucceeded: hashIDs}
}
func (f *fakeFleet) SetSupervisionURL(ctx context.Context, hashID, url string) error { return nil }
func (f *fakeFleet) StartSimulator(ctx context.Context) error                       { return nil }
func (f *fakeFleet) StopSimulator(ctx context.Context) error                        { return nil }

func testLog(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New(logger.DefaultConfig())
	require.NoError(t, err)
	return log
}

func defaultCfg() config.UIServerConfig {
	return config.UIServerConfig{
		Host:               "127.0.0.1",
		WebSocketPath:      "/ui",
		RateLimitPerSecond: 1000,
		RateLimitBurst:     1000,
		MaxBodyBytes:       1 << 20,
		MaxStationsPerAdd:  10,
	}
}

func postEnvelope(t *testing.T, srv *Server, uuid, procedure string, payload interface{}) map[string]interface{} {
	t.Helper()
	payloadRaw, err := json.Marshal(payload)
	require.NoError(t, err)
	body, err := json.Marshal([]interface{}{uuid, procedure, json.RawMessage(payloadRaw)})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/procedure", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	srv.handleHTTPProcedure(rec, req)

	var envelope []json.RawMessage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	require.Len(t, envelope, 2)

	var fields map[string]interface{}
	require.NoError(t, json.Unmarshal(envelope[1], &fields))
	return fields
}

func TestListChargingStations(t *testing.T) {
	fleet := &fakeFleet{stations: []StationInfo{{HashID: "cp-1", State: "Running"}}}
	srv := New(defaultCfg(), fleet, testLog(t))

	fields := postEnvelope(t, srv, "req-1", "ListChargingStations", nil)
	assert.Equal(t, "success", fields["status"])
	stations, ok := fields["stations"].([]interface{})
	require.True(t, ok)
	assert.Len(t, stations, 1)
}

func TestAddChargingStationsRespectsMax(t *testing.T) {
	fleet := &fakeFleet{}
	cfg := defaultCfg()
	cfg.MaxStationsPerAdd = 2
	srv := New(cfg, fleet, testLog(t))

	fields := postEnvelope(t, srv, "req-2", "AddChargingStations", map[string]interface{}{
		"templateName": "cp-template",
		"count":        5,
	})
	assert.Equal(t, "failure", fields["status"])
}

func TestAddChargingStationsSuccess(t *testing.T) {
	fleet := &fakeFleet{}
	srv := New(defaultCfg(), fleet, testLog(t))

	fields := postEnvelope(t, srv, "req-3", "AddChargingStations", map[string]interface{}{
		"templateName": "cp-template",
		"count":        2,
	})
	assert.Equal(t, "success", fields["status"])
	assert.Equal(t, 2, fleet.lastAdded.count)
}

func TestStopChargingStationBatch(t *testing.T) {
	fleet := &fakeFleet{}
	srv := New(defaultCfg(), fleet, testLog(t))

	fields := postEnvelope(t, srv, "req-4", "StopChargingStation", map[string]interface{}{
		"hashIds": []string{"cp-1", "cp-2"},
	})
	assert.Equal(t, "success", fields["status"])
	succeeded, ok := fields["hashIdsSucceeded"].([]interface{})
	require.True(t, ok)
	assert.Len(t, succeeded, 2)
}

func TestUnknownProcedureFails(t *testing.T) {
	fleet := &fakeFleet{}
	srv := New(defaultCfg(), fleet, testLog(t))

	fields := postEnvelope(t, srv, "req-5", "DoesNotExist", nil)
	assert.Equal(t, "failure", fields["status"])
}
