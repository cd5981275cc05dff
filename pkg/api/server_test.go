package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skylens/aqcast/pkg/forecast"
	"github.com/skylens/aqcast/pkg/types"
)

// stubBatch records the ids it was called with and returns Saved for each.
type stubBatch struct {
	gotIDs    []string
	gotAnchor time.Time
	err       error
}

func (s *stubBatch) RunBatch(ctx context.Context, sensorIDs []string, anchor time.Time) (map[string]string, error) {
	s.gotIDs = sensorIDs
	s.gotAnchor = anchor
	if s.err != nil {
		return nil, s.err
	}
	results := make(map[string]string, len(sensorIDs))
	for _, id := range sensorIDs {
		results[id] = types.StatusSaved()
	}
	return results, nil
}

func postJSON(t *testing.T, handler http.Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestForecastAcceptsSensorIDList(t *testing.T) {
	stub := &stubBatch{}
	handler := NewServer(":0", stub).Handler()

	rec := postJSON(t, handler, `{"sensorId": ["s1", "s2"], "timestamp": "20250310T1400"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var results map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &results))
	assert.Len(t, results, 2)
	assert.Equal(t, types.StatusSaved(), results["s1"])

	assert.Equal(t, []string{"s1", "s2"}, stub.gotIDs)
	assert.Equal(t, time.Date(2025, 3, 10, 14, 0, 0, 0, time.UTC), stub.gotAnchor)
}

func TestForecastBareStringEqualsSingletonList(t *testing.T) {
	stub := &stubBatch{}
	handler := NewServer(":0", stub).Handler()

	rec := postJSON(t, handler, `{"sensorId": "s1", "timestamp": "20250310T1400"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"s1"}, stub.gotIDs)
}

func TestForecastRejectsInvalidSensorID(t *testing.T) {
	stub := &stubBatch{}
	handler := NewServer(":0", stub).Handler()

	for _, body := range []string{
		`{"sensorId": 42}`,
		`{"sensorId": {"id": "s1"}}`,
		`{"sensorId": null}`,
		`{"sensorId": ""}`,
		`{"sensorId": ["s1", ""]}`,
		`{"timestamp": "20250310T1400"}`,
	} {
		rec := postJSON(t, handler, body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
	}
	assert.Nil(t, stub.gotIDs)
}

func TestForecastRejectsInvalidTimestamp(t *testing.T) {
	handler := NewServer(":0", &stubBatch{}).Handler()

	rec := postJSON(t, handler, `{"sensorId": "s1", "timestamp": "2025-03-10 14:00"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestForecastEmptyBatchIsRequestError(t *testing.T) {
	handler := NewServer(":0", &stubBatch{err: forecast.ErrNoSensors}).Handler()

	rec := postJSON(t, handler, `{"sensorId": []}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestForecastTimestampDefaultsToNow(t *testing.T) {
	stub := &stubBatch{}
	handler := NewServer(":0", stub).Handler()

	before := time.Now()
	rec := postJSON(t, handler, `{"sensorId": "s1"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	assert.False(t, stub.gotAnchor.Before(before))
	assert.False(t, stub.gotAnchor.After(time.Now()))
}

func TestHealth(t *testing.T) {
	handler := NewServer(":0", &stubBatch{}).Handler()

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "healthy")
}
