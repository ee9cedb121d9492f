package ingest

import (
	"context"
	"errors"

	"github.com/slotbench/go-slot-capture/entities"
)

var ErrSourceClosed = errors.New("source closed")

// Source delivers the events of one endpoint in arrival order.
type Source interface {
	Next(ctx context.Context) (entities.ReceivedEvent, error)
}

// ChannelSource reads events from a channel fed by a transport. When the channel is
// closed, transportErr tells a regular end (nil) apart from a transport failure.
type ChannelSource struct {
	events       <-chan entities.ReceivedEvent
	transportErr func() error
}

func NewChannelSource(events <-chan entities.ReceivedEvent, transportErr func() error) *ChannelSource {
	return &ChannelSource{events: events, transportErr: transportErr}
}

func (s *ChannelSource) Next(ctx context.Context) (entities.ReceivedEvent, error) {
	select {
	case <-ctx.Done():
		return entities.ReceivedEvent{}, ctx.Err()
	case event, ok := <-s.events:
		if !ok {
			if s.transportErr != nil {
				if err := s.transportErr(); err != nil {
					return entities.ReceivedEvent{}, err
				}
			}
			return entities.ReceivedEvent{}, ErrSourceClosed
		}
		return event, nil
	}
}
