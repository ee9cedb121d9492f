package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ardanlabs/conf"
	"github.com/elastic/go-elasticsearch/v8"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/slotbench/go-slot-capture/business/domain/export"
	"github.com/slotbench/go-slot-capture/business/domain/ingest"
	"github.com/slotbench/go-slot-capture/entities"
	"github.com/slotbench/go-slot-capture/external/elastic"
	"github.com/slotbench/go-slot-capture/external/kafka"
	"github.com/slotbench/go-slot-capture/infrastructure/api"
	"github.com/slotbench/go-slot-capture/infrastructure/rpc"
	"github.com/slotbench/go-slot-capture/infrastructure/store/pebbledb"
	"github.com/slotbench/go-slot-capture/metrics"
	"github.com/twmb/franz-go/pkg/kgo"
	"github.com/twmb/franz-go/plugin/kprom"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const prefix = "SLOT_CAPTURE"

func main() {
	if err := run(); err != nil {
		log.Fatalf("main: exited with error: %s", err.Error())
	}
}

func run() error {
	config := zap.NewProductionConfig()
	// this is just for sugar, to display a readable date instead of an epoch time
	config.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout(time.DateTime)

	logger, err := config.Build()
	if err != nil {
		return fmt.Errorf("creating logger: %v", err)
	}
	defer logger.Sync()
	sLogger := logger.Sugar()

	var cfg struct {
		Capture struct {
			Endpoints      []string      `conf:"default:provider-a;provider-b"`
			SlotCount      int           `conf:"default:1000"`
			BufferFraction float64       `conf:"default:0.1"`
			Duration       time.Duration `conf:"default:10m"`
			ChannelSize    int           `conf:"default:4096"`
		}
		Broker struct {
			BootstrapServers []string `conf:"default:localhost:9092"`
			TopicPrefix      string   `conf:"default:slot-capture-"`
			MaxPollRecords   int      `conf:"default:1000"`
		}
		Elastic struct {
			Addresses     []string      `conf:"default:https://localhost:9200"`
			Username      string        `conf:"default:slot-capture"`
			Password      string        `conf:"optional,noprint"`
			IndexName     string        `conf:"default:slot-capture-updates"`
			Certificate   string        `conf:"default:http_ca.crt"`
			MaxRetries    int           `conf:"default:15"`
			BatchSize     int           `conf:"default:5000"`
			ExportTimeout time.Duration `conf:"default:5m"`
			Enabled       bool          `conf:"default:true"`
		}
		Store struct {
			Folder string `conf:"default:store"`
		}
		Server struct {
			GrpcListenAddr string `conf:"default:0.0.0.0:8001"`
			HttpListenAddr string `conf:"default:0.0.0.0:8000"`
		}
		Metrics struct {
			Namespace string `conf:"default:slot_capture"`
		}
	}

	if err := conf.Parse(os.Args[1:], prefix, &cfg); err != nil {
		switch {
		case errors.Is(err, conf.ErrHelpWanted):
			usage, err := conf.Usage(prefix, &cfg)
			if err != nil {
				return fmt.Errorf("generating config usage: %v", err)
			}
			fmt.Println(usage)
			return nil
		case errors.Is(err, conf.ErrVersionWanted):
			version, err := conf.VersionString(prefix, &cfg)
			if err != nil {
				return fmt.Errorf("generating config version: %v", err)
			}
			fmt.Println(version)
			return nil
		}
		return fmt.Errorf("parsing config: %v", err)
	}

	out, err := conf.String(&cfg)
	if err != nil {
		return fmt.Errorf("generating config for output: %v", err)
	}
	log.Printf("main: Config :\n%v\n", out)

	captureMetrics := metrics.NewCaptureMetrics(cfg.Metrics.Namespace)

	store, err := pebbledb.NewSummaryStore(cfg.Store.Folder)
	if err != nil {
		return fmt.Errorf("creating summary store: %v", err)
	}
	defer store.Close()

	var elasticClient export.ElasticClient
	if cfg.Elastic.Enabled {
		cert, err := os.ReadFile(cfg.Elastic.Certificate)
		if err != nil {
			sLogger.Warnw("Could not read elastic certificate.", "error", err)
		}
		esClient, err := elasticsearch.NewClient(elasticsearch.Config{
			Addresses:     cfg.Elastic.Addresses,
			Username:      cfg.Elastic.Username,
			Password:      cfg.Elastic.Password,
			CACert:        cert,
			RetryOnStatus: []int{502, 503, 504, 429},
			MaxRetries:    cfg.Elastic.MaxRetries,
			RetryBackoff:  calculateBackoff(sLogger),
		})
		if err != nil {
			return fmt.Errorf("creating elastic client: %v", err)
		}
		elasticClient = elastic.NewClient(esClient, cfg.Elastic.IndexName, sLogger)
	} else {
		sLogger.Warn("Elastic export disabled. Only summaries are stored.")
		elasticClient = &ElasticStubClient{logger: sLogger}
	}

	topics := make([]string, 0, len(cfg.Capture.Endpoints))
	for _, endpoint := range cfg.Capture.Endpoints {
		topics = append(topics, kafka.TopicName(cfg.Broker.TopicPrefix, endpoint))
	}

	m := kprom.NewMetrics(cfg.Metrics.Namespace,
		kprom.Registerer(prometheus.DefaultRegisterer),
		kprom.Gatherer(prometheus.DefaultGatherer))
	kcl, err := kgo.NewClient(
		kgo.WithHooks(m),
		kgo.SeedBrokers(cfg.Broker.BootstrapServers...),
		kgo.ConsumeTopics(topics...),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtEnd()),
		kgo.WithLogger(kgo.BasicLogger(os.Stdout, kgo.LogLevelInfo, nil)),
	)
	if err != nil {
		return fmt.Errorf("creating kafka client: %v", err)
	}
	defer kcl.Close()
	dispatcher := kafka.NewClient(kcl, cfg.Broker.MaxPollRecords, sLogger)

	routes := make(map[string]chan<- entities.ReceivedEvent, len(cfg.Capture.Endpoints))
	sources := make([]ingest.EndpointSource, 0, len(cfg.Capture.Endpoints))
	for i, endpoint := range cfg.Capture.Endpoints {
		events := make(chan entities.ReceivedEvent, cfg.Capture.ChannelSize)
		routes[topics[i]] = events
		sources = append(sources, ingest.EndpointSource{Endpoint: endpoint, Source: ingest.NewChannelSource(events, dispatcher.Err)})
	}

	session, err := ingest.NewSession(sources, cfg.Capture.SlotCount, cfg.Capture.BufferFraction, captureMetrics, sLogger)
	if err != nil {
		return fmt.Errorf("creating capture session: %v", err)
	}

	serverErr := make(chan error, 2)

	healthServer := rpc.NewHealthServer(cfg.Server.GrpcListenAddr)
	if err = healthServer.Start(serverErr); err != nil {
		return fmt.Errorf("starting grpc health server: %v", err)
	}
	defer healthServer.Stop()

	go func() {
		sLogger.Infow("Starting status and metrics endpoint.", "address", cfg.Server.HttpListenAddr)
		http.HandleFunc("/health", api.Health)
		http.Handle("/v1/status", api.NewStatusHandler(store, sLogger))
		http.Handle("/metrics", promhttp.Handler())
		serverErr <- http.ListenAndServe(cfg.Server.HttpListenAddr, nil)
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, cfg.Capture.Duration)
	defer cancel()

	go func() {
		select {
		case err := <-serverErr:
			sLogger.Errorw("Server error, stopping capture.", "error", err)
			cancel()
		case <-ctx.Done():
		}
	}()

	dispatchErr := make(chan error, 1)
	go func() {
		dispatchErr <- dispatcher.Dispatch(ctx, routes)
	}()

	healthServer.SetCapturing(true)
	result, sessionErr := session.Run(ctx)
	healthServer.SetCapturing(false)
	cancel()

	captureErr := captureError(<-dispatchErr, sessionErr)
	if captureErr != nil {
		sLogger.Errorw("Capture ended with errors, exporting partial session.", "session", result.ID, "error", captureErr)
	}
	// the capture context is done at this point
	exportCtx, exportCancel := context.WithTimeout(context.Background(), cfg.Elastic.ExportTimeout)
	defer exportCancel()
	exporter := export.NewExporter(elasticClient, store, cfg.Elastic.BatchSize, captureMetrics, sLogger)
	if err = exporter.Export(exportCtx, result); err != nil {
		return fmt.Errorf("exporting session [%s]: %v", result.ID, err)
	}

	sLogger.Infow("Session exported.", "session", result.ID)
	if captureErr != nil {
		return fmt.Errorf("capture session [%s] incomplete: %w", result.ID, captureErr)
	}
	return nil
}

// captureError combines the transport and the session outcome. A transport failure also
// ends the collectors, so both usually carry the same cause.
func captureError(dispatchErr, sessionErr error) error {
	switch {
	case dispatchErr == nil:
		return sessionErr
	case sessionErr == nil:
		return fmt.Errorf("dispatching records: %w", dispatchErr)
	default:
		return errors.Join(fmt.Errorf("dispatching records: %w", dispatchErr), sessionErr)
	}
}

// calculateBackoff needs retry number because of multi threading
func calculateBackoff(logger *zap.SugaredLogger) func(i int) time.Duration {
	return func(i int) time.Duration {
		var d time.Duration
		if i < 10 {
			d = time.Second*time.Duration(i) + randomMillis()
		} else {
			d = time.Second*30 + randomMillis()
		}
		logger.Warnw("Elasticsearch client retry.", "attempt", i, "backoff", d)
		return d
	}
}

func randomMillis() time.Duration {
	return time.Duration(rand.Intn(1000)) * time.Millisecond
}

type ElasticStubClient struct {
	logger *zap.SugaredLogger
}

func (e *ElasticStubClient) BulkIndex(_ context.Context, data []*elastic.EsDocument) error {
	e.logger.Warnf("Elastic client stubbed! Skipping [%d] documents.", len(data))
	return nil
}
