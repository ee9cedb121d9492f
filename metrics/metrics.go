package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type CaptureMetrics struct {
	slotUpdatesCounter       *prometheus.CounterVec
	accountUpdatesCounter    *prometheus.CounterVec
	unknownStatusCodeCounter *prometheus.CounterVec
	droppedEventsCounter     *prometheus.CounterVec
	highestSlotGauge         *prometheus.GaugeVec
	sessionsCounter          prometheus.Counter
	exportedDocumentsCounter prometheus.Counter
}

func NewCaptureMetrics(namespace string) *CaptureMetrics {
	m := CaptureMetrics{
		// per endpoint
		slotUpdatesCounter: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: fmt.Sprintf("%s_slot_updates_count", namespace),
			Help: "The total number of captured slot updates",
		}, []string{"endpoint"}),
		accountUpdatesCounter: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: fmt.Sprintf("%s_account_updates_count", namespace),
			Help: "The total number of captured account updates",
		}, []string{"endpoint"}),
		unknownStatusCodeCounter: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: fmt.Sprintf("%s_unknown_status_codes_count", namespace),
			Help: "The total number of slot updates with a status code outside the known table",
		}, []string{"endpoint"}),
		droppedEventsCounter: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: fmt.Sprintf("%s_dropped_events_count", namespace),
			Help: "The total number of events without payload",
		}, []string{"endpoint"}),
		highestSlotGauge: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Name: fmt.Sprintf("%s_highest_slot", namespace),
			Help: "The highest slot seen per endpoint",
		}, []string{"endpoint"}),
		// per service
		sessionsCounter: promauto.NewCounter(prometheus.CounterOpts{
			Name: fmt.Sprintf("%s_sessions_count", namespace),
			Help: "The total number of finished capture sessions",
		}),
		exportedDocumentsCounter: promauto.NewCounter(prometheus.CounterOpts{
			Name: fmt.Sprintf("%s_exported_documents_count", namespace),
			Help: "The total number of documents sent to elastic",
		}),
	}
	return &m
}

func (metrics *CaptureMetrics) IncSlotUpdates(endpoint string) {
	metrics.slotUpdatesCounter.WithLabelValues(endpoint).Inc()
}

func (metrics *CaptureMetrics) IncAccountUpdates(endpoint string) {
	metrics.accountUpdatesCounter.WithLabelValues(endpoint).Inc()
}

func (metrics *CaptureMetrics) IncUnknownStatusCodes(endpoint string) {
	metrics.unknownStatusCodeCounter.WithLabelValues(endpoint).Inc()
}

func (metrics *CaptureMetrics) IncDroppedEvents(endpoint string) {
	metrics.droppedEventsCounter.WithLabelValues(endpoint).Inc()
}

func (metrics *CaptureMetrics) SetHighestSlot(endpoint string, slot uint64) {
	metrics.highestSlotGauge.WithLabelValues(endpoint).Set(float64(slot))
}

func (metrics *CaptureMetrics) IncSessions() {
	metrics.sessionsCounter.Inc()
}

func (metrics *CaptureMetrics) AddExportedDocuments(count int) {
	metrics.exportedDocumentsCounter.Add(float64(count))
}
