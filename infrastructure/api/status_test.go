package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/slotbench/go-slot-capture/entities"
	"github.com/slotbench/go-slot-capture/infrastructure/store/pebbledb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type FakeSessionProvider struct {
	lastSession string
	summaries   []entities.EndpointSummary
	err         error
}

func (f *FakeSessionProvider) GetLastSession() (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.lastSession, nil
}

func (f *FakeSessionProvider) GetSummaries(_ string) ([]entities.EndpointSummary, error) {
	return f.summaries, nil
}

func TestStatusHandler_ServeHTTP(t *testing.T) {
	handler := NewStatusHandler(&FakeSessionProvider{
		lastSession: "session-1",
		summaries: []entities.EndpointSummary{{
			SessionID:    "session-1",
			Endpoint:     "provider-A",
			SlotUpdates:  2,
			StatusCounts: map[entities.SlotStatus]int{entities.SlotStatusProcessed: 2},
		}},
	}, zap.NewNop().Sugar())

	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/v1/status", nil))
	require.Equal(t, http.StatusOK, recorder.Code)

	var response struct {
		LastSession string `json:"lastSession"`
		Summaries   []struct {
			Endpoint     string         `json:"endpoint"`
			StatusCounts map[string]int `json:"statusCounts"`
		} `json:"summaries"`
	}
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &response))
	assert.Equal(t, "session-1", response.LastSession)
	require.Len(t, response.Summaries, 1)
	assert.Equal(t, map[string]int{"processed": 2}, response.Summaries[0].StatusCounts)
}

func TestStatusHandler_ServeHTTP_givenNoSession_thenNotFound(t *testing.T) {
	handler := NewStatusHandler(&FakeSessionProvider{err: pebbledb.ErrNotFound}, zap.NewNop().Sugar())

	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/v1/status", nil))
	assert.Equal(t, http.StatusNotFound, recorder.Code)
}

func TestStatusHandler_ServeHTTP_givenStoreError_thenInternalError(t *testing.T) {
	handler := NewStatusHandler(&FakeSessionProvider{err: errors.New("error")}, zap.NewNop().Sugar())

	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/v1/status", nil))
	assert.Equal(t, http.StatusInternalServerError, recorder.Code)
}
