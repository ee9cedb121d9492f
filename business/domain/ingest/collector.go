package ingest

import (
	"context"
	"errors"

	pkgerrors "github.com/pkg/errors"
	"github.com/slotbench/go-slot-capture/business/domain/capture"
	"github.com/slotbench/go-slot-capture/entities"
	"github.com/slotbench/go-slot-capture/metrics"
	"go.uber.org/zap"
)

// Collector is the only writer of its endpoint buffer.
type Collector struct {
	source         Source
	data           *capture.EndpointData
	captureMetrics *metrics.CaptureMetrics
	logger         *zap.SugaredLogger
	highestSlot    uint64
}

func NewCollector(source Source, data *capture.EndpointData, captureMetrics *metrics.CaptureMetrics, logger *zap.SugaredLogger) *Collector {
	return &Collector{
		source:         source,
		data:           data,
		captureMetrics: captureMetrics,
		logger:         logger.With("endpoint", data.Endpoint()),
	}
}

// Run records events until the source is exhausted or the context ends. Both are a
// regular end of capture; only source failures are returned.
func (c *Collector) Run(ctx context.Context) error {
	for {
		event, err := c.source.Next(ctx)
		if err != nil {
			if errors.Is(err, ErrSourceClosed) || ctx.Err() != nil {
				c.logger.Infow("Capture finished.", "slotUpdates", len(c.data.Updates()),
					"accountUpdates", len(c.data.AccountUpdates()))
				return nil
			}
			return pkgerrors.Wrapf(err, "reading from endpoint [%s]", c.data.Endpoint())
		}

		if err = c.record(event); err != nil {
			c.captureMetrics.IncDroppedEvents(c.data.Endpoint())
			c.logger.Warnw("Dropping event.", "error", err)
		}
	}
}

func (c *Collector) record(event entities.ReceivedEvent) error {
	endpoint := c.data.Endpoint()
	switch {
	case event.Event.Slot != nil:
		raw := event.Event.Slot
		if !entities.IsKnownStatusCode(raw.Status) {
			c.captureMetrics.IncUnknownStatusCodes(endpoint)
			c.logger.Debugw("Unknown status code recorded as dead.", "slot", raw.Slot, "code", raw.Status)
		}
		c.data.RecordSlotUpdate(entities.NewSlotUpdate(raw.Slot, entities.StatusFromCode(raw.Status), event.ReceivedAt).
			WithRelayTime(event.RelayedAt))
		c.captureMetrics.IncSlotUpdates(endpoint)
		c.observeSlot(raw.Slot)
	case event.Event.Account != nil:
		raw := event.Event.Account
		c.data.RecordAccountUpdate(entities.NewAccountUpdate(raw.Slot, raw.Pubkey, raw.WriteVersion, raw.TxSignature, event.ReceivedAt).
			WithRelayTime(event.RelayedAt))
		c.captureMetrics.IncAccountUpdates(endpoint)
		c.observeSlot(raw.Slot)
	default:
		return entities.ErrEmptyEvent
	}
	return nil
}

func (c *Collector) observeSlot(slot uint64) {
	if slot > c.highestSlot {
		c.highestSlot = slot
		c.captureMetrics.SetHighestSlot(c.data.Endpoint(), slot)
	}
}
