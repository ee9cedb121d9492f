package kafka

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/pkg/errors"
	"github.com/slotbench/go-slot-capture/entities"
	"github.com/twmb/franz-go/pkg/kgo"
	"go.uber.org/zap"
)

const (
	eventTypeSlot    = "slot"
	eventTypeAccount = "account"
)

type KafkaClient interface {
	PollRecords(ctx context.Context, maxPollRecords int) kgo.Fetches
}

type Client struct {
	kcl            KafkaClient
	maxPollRecords int
	logger         *zap.SugaredLogger
	now            func() time.Time

	mu  sync.Mutex
	err error
}

func NewClient(kafkaClient KafkaClient, maxPollRecords int, logger *zap.SugaredLogger) *Client {
	return &Client{
		kcl:            kafkaClient,
		maxPollRecords: maxPollRecords,
		logger:         logger,
		now:            time.Now,
	}
}

// Err returns the error Dispatch ended with. It is set before the route channels are
// closed, so readers that saw a closed channel can rely on it.
func (c *Client) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// TopicName returns the topic an endpoint relay publishes to.
func TopicName(prefix, endpoint string) string {
	return prefix + endpoint
}

// Dispatch polls records and hands them to the channel registered for their topic. Each
// record is stamped with its own clock reading when it is taken from the poll result,
// together with the relay timestamp of the record. The route channels are closed when
// Dispatch returns so that the readers can finish; Err reports why.
func (c *Client) Dispatch(ctx context.Context, routes map[string]chan<- entities.ReceivedEvent) (err error) {
	defer func() {
		c.mu.Lock()
		c.err = err
		c.mu.Unlock()
		for _, route := range routes {
			close(route)
		}
	}()

	for ctx.Err() == nil {
		fetches := c.kcl.PollRecords(ctx, c.maxPollRecords)
		if fetches.IsClientClosed() || ctx.Err() != nil {
			return nil
		}
		if errs := fetches.Errors(); len(errs) > 0 {
			// Only non-retryable errors are returned.
			for _, fetchErr := range errs {
				c.logger.Errorw("Error fetching records.", "topic", fetchErr.Topic, "partition", fetchErr.Partition, "error", fetchErr.Err)
			}
			return errors.Wrap(errs[0].Err, "fetching records")
		}

		iter := fetches.RecordIter()
		for !iter.Done() {
			record := iter.Next()
			receivedAt := c.now()
			route, ok := routes[record.Topic]
			if !ok {
				c.logger.Warnw("Skipping record of unknown topic.", "topic", record.Topic)
				continue
			}
			event, err := unmarshalEvent(record.Value)
			if err != nil {
				c.logger.Warnw("Skipping malformed record.", "topic", record.Topic, "offset", record.Offset, "error", err)
				continue
			}
			select {
			case route <- entities.ReceivedEvent{Event: event, ReceivedAt: receivedAt, RelayedAt: record.Timestamp}:
			case <-ctx.Done():
				return nil
			}
		}
	}
	return nil
}

type wireEvent struct {
	Type         string `json:"type"`
	Slot         uint64 `json:"slot"`
	Status       *int32 `json:"status"`
	Pubkey       string `json:"pubkey"`
	WriteVersion uint64 `json:"writeVersion"`
	TxSignature  string `json:"txSignature"`
}

func unmarshalEvent(value []byte) (entities.RawEvent, error) {
	var wire wireEvent
	if err := json.Unmarshal(value, &wire); err != nil {
		return entities.RawEvent{}, errors.Wrap(err, "unmarshalling record")
	}

	switch wire.Type {
	case eventTypeSlot:
		if wire.Status == nil {
			return entities.RawEvent{}, errors.Errorf("slot event without status for slot [%d]", wire.Slot)
		}
		return entities.RawEvent{Slot: &entities.RawSlotEvent{Slot: wire.Slot, Status: *wire.Status}}, nil
	case eventTypeAccount:
		pubkey, err := solana.PublicKeyFromBase58(wire.Pubkey)
		if err != nil {
			return entities.RawEvent{}, errors.Wrapf(err, "decoding pubkey [%s]", wire.Pubkey)
		}
		signature, err := solana.SignatureFromBase58(wire.TxSignature)
		if err != nil {
			return entities.RawEvent{}, errors.Wrapf(err, "decoding tx signature [%s]", wire.TxSignature)
		}
		return entities.RawEvent{Account: &entities.RawAccountEvent{
			Slot:         wire.Slot,
			Pubkey:       pubkey,
			WriteVersion: wire.WriteVersion,
			TxSignature:  signature,
		}}, nil
	default:
		return entities.RawEvent{}, errors.Errorf("unknown event type [%s]", wire.Type)
	}
}
