package export

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/slotbench/go-slot-capture/business/domain/capture"
	"github.com/slotbench/go-slot-capture/business/domain/ingest"
	"github.com/slotbench/go-slot-capture/entities"
	"github.com/slotbench/go-slot-capture/external/elastic"
	"github.com/slotbench/go-slot-capture/metrics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type FakeElasticClient struct {
	err            error
	documents      []*elastic.EsDocument
	bulkIndexCalls int
}

func (f *FakeElasticClient) BulkIndex(_ context.Context, data []*elastic.EsDocument) error {
	for _, d := range data {
		if len(d.Id) == 0 {
			return errors.New("empty id")
		}
	}
	if f.err != nil {
		return f.err
	}
	f.bulkIndexCalls++
	f.documents = append(f.documents, data...)
	return nil
}

type FakeSummaryStore struct {
	summaries   []entities.EndpointSummary
	lastSession string
}

func (f *FakeSummaryStore) SaveSummary(summary entities.EndpointSummary) error {
	f.summaries = append(f.summaries, summary)
	return nil
}

func (f *FakeSummaryStore) SetLastSession(sessionID string) error {
	f.lastSession = sessionID
	return nil
}

var m = metrics.NewCaptureMetrics("test")

var pubkey = solana.MustPublicKeyFromBase58("TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA")

func testResult() *ingest.SessionResult {
	start := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	data := capture.NewEndpointData("provider-A", 2, 0)
	data.RecordSlotUpdate(entities.NewSlotUpdate(5, entities.SlotStatusProcessed, start.Add(time.Millisecond)))
	data.RecordSlotUpdate(entities.NewSlotUpdate(5, entities.SlotStatusConfirmed, start.Add(2*time.Millisecond)))
	data.RecordAccountUpdate(entities.NewAccountUpdate(5, pubkey, 7, solana.Signature{}, start.Add(3*time.Millisecond)).
		WithRelayTime(start.Add(2500 * time.Microsecond)))
	return &ingest.SessionResult{
		ID:        "session-1",
		StartedAt: start,
		Endpoints: []*capture.EndpointData{data, capture.NewEndpointData("provider-B", 2, 0)},
	}
}

func TestExporter_Export(t *testing.T) {
	elasticClient := &FakeElasticClient{}
	store := &FakeSummaryStore{}
	exporter := NewExporter(elasticClient, store, 2, m, zap.NewNop().Sugar())

	err := exporter.Export(context.Background(), testResult())
	require.NoError(t, err)

	require.Len(t, elasticClient.documents, 3)
	assert.Equal(t, 2, elasticClient.bulkIndexCalls) // batch size 2
	assert.Equal(t, "session-1-provider-A-slot-0", elasticClient.documents[0].Id)
	assert.Equal(t, "session-1-provider-A-slot-1", elasticClient.documents[1].Id)
	assert.Equal(t, "session-1-provider-A-account-0", elasticClient.documents[2].Id)

	require.Len(t, store.summaries, 2)
	assert.Equal(t, 2, store.summaries[0].SlotUpdates)
	assert.Equal(t, 1, store.summaries[0].AccountUpdates)
	assert.Equal(t, "provider-B", store.summaries[1].Endpoint)
	assert.Equal(t, "session-1", store.lastSession)
}

func TestExporter_Export_givenElasticError_thenErrorAndNoLastSession(t *testing.T) {
	elasticClient := &FakeElasticClient{err: errors.New("error")}
	store := &FakeSummaryStore{}
	exporter := NewExporter(elasticClient, store, 10, m, zap.NewNop().Sugar())

	err := exporter.Export(context.Background(), testResult())
	require.Error(t, err)
	assert.Empty(t, store.lastSession)
}

func TestExporter_convertToDocuments(t *testing.T) {
	result := testResult()

	documents, err := convertToDocuments(result.ID, result.StartedAt, result.Endpoints[0])
	require.NoError(t, err)
	require.Len(t, documents, 3)

	assert.JSONEq(t, `{"sessionId":"session-1","endpoint":"provider-A","kind":"slot","slot":5,"status":"processed","systemTime":"2025-03-01T12:00:00.001Z","offsetNanos":1000000}`,
		string(documents[0].Payload))
	assert.JSONEq(t, `{"sessionId":"session-1","endpoint":"provider-A","kind":"account","slot":5,"pubkey":"TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA","writeVersion":7,"txSignature":"1111111111111111111111111111111111111111111111111111111111111111","systemTime":"2025-03-01T12:00:00.003Z","relayTime":"2025-03-01T12:00:00.0025Z","offsetNanos":3000000}`,
		string(documents[2].Payload))
}
