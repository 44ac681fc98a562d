package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/mr1hm/go-incident-dedupe/internal/models"
)

// Metrics holds the ingestion collectors. A nil *Metrics records nothing.
type Metrics struct {
	decisions     *prometheus.CounterVec
	matchScore    prometheus.Histogram
	batchDuration prometheus.Histogram
	snapshotSize  prometheus.Gauge
	seenSkipped   prometheus.Counter
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		decisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "incident_dedupe",
			Name:      "decisions_total",
			Help:      "Ingest decisions by status",
		}, []string{"status"}),
		matchScore: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "incident_dedupe",
			Name:      "match_score",
			Help:      "Score of accepted duplicate matches",
			Buckets:   prometheus.LinearBuckets(60, 5, 11),
		}),
		batchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "incident_dedupe",
			Name:      "batch_duration_seconds",
			Help:      "Time spent ingesting one batch of sources",
			Buckets:   prometheus.DefBuckets,
		}),
		snapshotSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "incident_dedupe",
			Name:      "snapshot_records",
			Help:      "Recent incidents loaded for the last batch",
		}),
		seenSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "incident_dedupe",
			Name:      "seen_links_skipped_total",
			Help:      "Feed items skipped because their link was already processed",
		}),
	}

	reg.MustRegister(m.decisions, m.matchScore, m.batchDuration, m.snapshotSize, m.seenSkipped)
	return m
}

func (m *Metrics) ObserveDecision(d models.Decision) {
	if m == nil {
		return
	}
	m.decisions.WithLabelValues(string(d.Status)).Inc()
	if d.Status == models.DecisionDeduped {
		m.matchScore.Observe(d.Score)
	}
}

func (m *Metrics) ObserveBatch(start time.Time, snapshot int) {
	if m == nil {
		return
	}
	m.batchDuration.Observe(time.Since(start).Seconds())
	m.snapshotSize.Set(float64(snapshot))
}

func (m *Metrics) SeenSkipped() {
	if m == nil {
		return
	}
	m.seenSkipped.Inc()
}
