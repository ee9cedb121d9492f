package ingest

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/slotbench/go-slot-capture/business/domain/capture"
	"github.com/slotbench/go-slot-capture/metrics"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type EndpointSource struct {
	Endpoint string
	Source   Source
}

// SessionResult hands the captured buffers over to readers. It is only created after
// every collector returned.
type SessionResult struct {
	ID        string
	StartedAt time.Time
	Endpoints []*capture.EndpointData
}

type Session struct {
	sources        []EndpointSource
	slotCount      int
	bufferFraction float64
	captureMetrics *metrics.CaptureMetrics
	logger         *zap.SugaredLogger
}

func NewSession(sources []EndpointSource, slotCount int, bufferFraction float64, captureMetrics *metrics.CaptureMetrics, logger *zap.SugaredLogger) (*Session, error) {
	if len(sources) == 0 {
		return nil, errors.New("no endpoints configured")
	}
	seen := make(map[string]bool, len(sources))
	for _, source := range sources {
		if source.Endpoint == "" {
			return nil, errors.New("empty endpoint label")
		}
		if seen[source.Endpoint] {
			return nil, errors.Errorf("duplicate endpoint [%s]", source.Endpoint)
		}
		if source.Source == nil {
			return nil, errors.Errorf("missing source for endpoint [%s]", source.Endpoint)
		}
		seen[source.Endpoint] = true
	}
	return &Session{
		sources:        sources,
		slotCount:      slotCount,
		bufferFraction: bufferFraction,
		captureMetrics: captureMetrics,
		logger:         logger,
	}, nil
}

// Run captures all endpoints in parallel until their sources end or ctx is done. A failing
// endpoint stops only its own collector; the first failure is returned next to the result.
func (s *Session) Run(ctx context.Context) (*SessionResult, error) {
	result := &SessionResult{
		ID:        uuid.NewString(),
		StartedAt: time.Now(),
		Endpoints: make([]*capture.EndpointData, 0, len(s.sources)),
	}
	s.logger.Infow("Starting capture session.", "session", result.ID, "endpoints", len(s.sources),
		"slotCount", s.slotCount, "bufferFraction", s.bufferFraction)

	var errorGroup errgroup.Group
	for _, source := range s.sources {
		data := capture.NewEndpointData(source.Endpoint, s.slotCount, s.bufferFraction)
		result.Endpoints = append(result.Endpoints, data)
		collector := NewCollector(source.Source, data, s.captureMetrics, s.logger.With("session", result.ID))
		errorGroup.Go(func() error {
			err := collector.Run(ctx)
			if err != nil {
				s.logger.Errorw("Endpoint capture failed.", "session", result.ID, "endpoint", source.Endpoint, "error", err)
			}
			return err
		})
	}
	err := errorGroup.Wait()
	s.captureMetrics.IncSessions()
	s.logger.Infow("Capture session finished.", "session", result.ID, "duration", time.Since(result.StartedAt))
	return result, err
}
