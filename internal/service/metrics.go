package service

import (
	"github.com/prometheus/client_golang/prometheus"

	"docsync/internal/model"
)

// SyncMetrics holds the prometheus instruments for reconciliation runs. All
// methods are nil-safe so wiring metrics stays optional.
type SyncMetrics struct {
	entries *prometheus.CounterVec
	runs    *prometheus.CounterVec
}

// NewSyncMetrics registers the sync counters on the given registerer.
func NewSyncMetrics(reg prometheus.Registerer) (*SyncMetrics, error) {
	m := &SyncMetrics{
		entries: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "docsync_sync_entries_total",
				Help: "Changelog entries processed per outcome category.",
			},
			[]string{"category"},
		),
		runs: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "docsync_sync_runs_total",
				Help: "Reconciliation runs per terminal status.",
			},
			[]string{"status"},
		),
	}
	if err := reg.Register(m.entries); err != nil {
		return nil, err
	}
	if err := reg.Register(m.runs); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *SyncMetrics) observeTotals(t model.SyncTotals) {
	if m == nil {
		return
	}
	m.entries.WithLabelValues("created").Add(float64(t.Created))
	m.entries.WithLabelValues("updated").Add(float64(t.Updated))
	m.entries.WithLabelValues("deleted").Add(float64(t.Deleted))
	m.entries.WithLabelValues("security").Add(float64(t.Security))
	m.entries.WithLabelValues("failed").Add(float64(t.Failed))
}

func (m *SyncMetrics) runFinished(status string) {
	if m == nil {
		return
	}
	m.runs.WithLabelValues(status).Inc()
}
