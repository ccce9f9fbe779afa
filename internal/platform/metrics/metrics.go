package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus instruments for the registry.
type Metrics struct {
	EntitiesCreated *prometheus.CounterVec
	EntitiesDeleted *prometheus.CounterVec
	TableSize       *prometheus.GaugeVec
	RejectedOps     *prometheus.CounterVec
}

// New creates and registers all metrics on the default registerer. The
// "table" label is one of gs1_code, ons_record, service_type.
func New() *Metrics {
	return &Metrics{
		EntitiesCreated: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "onsd_entities_created_total",
			Help: "Entities created, by table",
		}, []string{"table"}),
		EntitiesDeleted: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "onsd_entities_deleted_total",
			Help: "Entities deleted, by table",
		}, []string{"table"}),
		TableSize: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Name: "onsd_table_size",
			Help: "Current number of live entries, by table",
		}, []string{"table"}),
		RejectedOps: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "onsd_rejected_operations_total",
			Help: "Mutations rejected before any state change, by reason",
		}, []string{"reason"}),
	}
}

func (m *Metrics) Created(table string, size int) {
	if m == nil {
		return
	}
	m.EntitiesCreated.WithLabelValues(table).Inc()
	m.TableSize.WithLabelValues(table).Set(float64(size))
}

func (m *Metrics) Deleted(table string, size int) {
	if m == nil {
		return
	}
	m.EntitiesDeleted.WithLabelValues(table).Inc()
	m.TableSize.WithLabelValues(table).Set(float64(size))
}

func (m *Metrics) Rejected(reason string) {
	if m == nil {
		return
	}
	m.RejectedOps.WithLabelValues(reason).Inc()
}
