package metrics

import (
	"github.com/UnknownOlympus/hestia/internal/models"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	RowsProcessed   *prometheus.CounterVec
	ProviderErrors  *prometheus.CounterVec
	ProviderRetries prometheus.Counter
	RequestSeconds  *prometheus.HistogramVec
	BatchSeconds    *prometheus.HistogramVec
	ActiveWorkers   prometheus.Gauge
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	return &Metrics{
		RowsProcessed: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "hestia_rows_processed_total",
			Help: "Total number of annotated rows by method and status.",
		}, []string{"method", "status"}),
		ProviderErrors: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "hestia_provider_api_errors_total",
			Help: "Total number of errors received from the geocoding provider API after retries.",
		}, []string{"provider"}),
		ProviderRetries: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "hestia_provider_retries_total",
			Help: "Total number of retried geocoding provider requests.",
		}),
		RequestSeconds: promauto.With(reg).NewHistogramVec(prometheus.HistogramOpts{
			Name:    "hestia_provider_request_duration_seconds",
			Help:    "Duration of requests to the geocoding provider API.",
			Buckets: prometheus.DefBuckets,
		}, []string{"provider"}),
		BatchSeconds: promauto.With(reg).NewHistogramVec(prometheus.HistogramOpts{
			Name:    "hestia_batch_duration_seconds",
			Help:    "Wall-clock duration of a batch by method.",
			Buckets: prometheus.ExponentialBuckets(0.001, 4, 10),
		}, []string{"method"}),
		ActiveWorkers: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "hestia_active_workers",
			Help: "Current number of boundary lookup workers.",
		}),
	}
}

// ObserveBatch records the row outcomes and duration of a finished batch.
func (m *Metrics) ObserveBatch(result *models.BatchResult) {
	for status, count := range result.Summary {
		m.RowsProcessed.WithLabelValues(result.Method, string(status)).Add(float64(count))
	}
	m.BatchSeconds.WithLabelValues(result.Method).Observe(result.Elapsed.Seconds())
}
