package export

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/slotbench/go-slot-capture/business/domain/capture"
	"github.com/slotbench/go-slot-capture/business/domain/ingest"
	"github.com/slotbench/go-slot-capture/entities"
	"github.com/slotbench/go-slot-capture/external/elastic"
	"github.com/slotbench/go-slot-capture/metrics"
	"go.uber.org/zap"
)

const (
	kindSlot    = "slot"
	kindAccount = "account"
)

type ElasticClient interface {
	BulkIndex(ctx context.Context, data []*elastic.EsDocument) error
}

type SummaryStore interface {
	SaveSummary(summary entities.EndpointSummary) error
	SetLastSession(sessionID string) error
}

// Exporter hands a finished session to the analysis side: every record goes to elastic
// and one summary per endpoint goes to the local store.
type Exporter struct {
	elasticClient  ElasticClient
	store          SummaryStore
	batchSize      int
	captureMetrics *metrics.CaptureMetrics
	logger         *zap.SugaredLogger
}

func NewExporter(elasticClient ElasticClient, store SummaryStore, batchSize int, captureMetrics *metrics.CaptureMetrics, logger *zap.SugaredLogger) *Exporter {
	return &Exporter{
		elasticClient:  elasticClient,
		store:          store,
		batchSize:      max(batchSize, 1),
		captureMetrics: captureMetrics,
		logger:         logger,
	}
}

type slotDocument struct {
	SessionID   string              `json:"sessionId"`
	Endpoint    string              `json:"endpoint"`
	Kind        string              `json:"kind"`
	Slot        uint64              `json:"slot"`
	Status      entities.SlotStatus `json:"status"`
	SystemTime  time.Time           `json:"systemTime"`
	RelayTime   *time.Time          `json:"relayTime,omitempty"`
	OffsetNanos int64               `json:"offsetNanos"`
}

type accountDocument struct {
	SessionID    string     `json:"sessionId"`
	Endpoint     string     `json:"endpoint"`
	Kind         string     `json:"kind"`
	Slot         uint64     `json:"slot"`
	Pubkey       string     `json:"pubkey"`
	WriteVersion uint64     `json:"writeVersion"`
	TxSignature  string     `json:"txSignature"`
	SystemTime   time.Time  `json:"systemTime"`
	RelayTime    *time.Time `json:"relayTime,omitempty"`
	OffsetNanos  int64      `json:"offsetNanos"`
}

// Export must only be called after the session finished writing.
func (e *Exporter) Export(ctx context.Context, result *ingest.SessionResult) error {
	for _, data := range result.Endpoints {
		summary := data.Summary(result.ID)
		if err := e.store.SaveSummary(summary); err != nil {
			return errors.Wrapf(err, "saving summary of endpoint [%s]", data.Endpoint())
		}

		documents, err := convertToDocuments(result.ID, result.StartedAt, data)
		if err != nil {
			return err
		}
		if err = e.index(ctx, documents); err != nil {
			return errors.Wrapf(err, "indexing records of endpoint [%s]", data.Endpoint())
		}
		e.logger.Infow("Exported endpoint.", "session", result.ID, "endpoint", data.Endpoint(),
			"slotUpdates", summary.SlotUpdates, "accountUpdates", summary.AccountUpdates)
	}

	if err := e.store.SetLastSession(result.ID); err != nil {
		return errors.Wrap(err, "storing last session")
	}
	return nil
}

func (e *Exporter) index(ctx context.Context, documents []*elastic.EsDocument) error {
	for start := 0; start < len(documents); start += e.batchSize {
		batch := documents[start:min(start+e.batchSize, len(documents))]
		if err := e.elasticClient.BulkIndex(ctx, batch); err != nil {
			return err
		}
		e.captureMetrics.AddExportedDocuments(len(batch))
	}
	return nil
}

func documentID(sessionID, endpoint, kind string, index int) string {
	return fmt.Sprintf("%s-%s-%s-%d", sessionID, endpoint, kind, index)
}

func optionalTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

func convertToDocuments(sessionID string, startedAt time.Time, data *capture.EndpointData) ([]*elastic.EsDocument, error) {
	updates := data.Updates()
	accountUpdates := data.AccountUpdates()
	documents := make([]*elastic.EsDocument, 0, len(updates)+len(accountUpdates))

	for i, update := range updates {
		val, err := json.Marshal(slotDocument{
			SessionID:   sessionID,
			Endpoint:    data.Endpoint(),
			Kind:        kindSlot,
			Slot:        update.Slot(),
			Status:      update.Status(),
			SystemTime:  update.SystemTime(),
			RelayTime:   optionalTime(update.RelayTime()),
			OffsetNanos: update.Instant().Sub(startedAt).Nanoseconds(),
		})
		if err != nil {
			return nil, errors.Wrapf(err, "marshalling slot update [%d] of endpoint [%s]", i, data.Endpoint())
		}
		documents = append(documents, &elastic.EsDocument{Id: documentID(sessionID, data.Endpoint(), kindSlot, i), Payload: val})
	}

	for i, update := range accountUpdates {
		val, err := json.Marshal(accountDocument{
			SessionID:    sessionID,
			Endpoint:     data.Endpoint(),
			Kind:         kindAccount,
			Slot:         update.Slot(),
			Pubkey:       update.Pubkey().String(),
			WriteVersion: update.WriteVersion(),
			TxSignature:  update.TxSignature().String(),
			SystemTime:   update.SystemTime(),
			RelayTime:    optionalTime(update.RelayTime()),
			OffsetNanos:  update.Instant().Sub(startedAt).Nanoseconds(),
		})
		if err != nil {
			return nil, errors.Wrapf(err, "marshalling account update [%d] of endpoint [%s]", i, data.Endpoint())
		}
		documents = append(documents, &elastic.EsDocument{Id: documentID(sessionID, data.Endpoint(), kindAccount, i), Payload: val})
	}
	return documents, nil
}
