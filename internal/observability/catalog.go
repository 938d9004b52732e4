package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/iskra-katalog/katalog/internal/catalog"
)

// CatalogMetrics exposes Prometheus collectors for catalog store operations
// and imports.
type CatalogMetrics struct {
	operations *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	errors     *prometheus.CounterVec
	importRows *prometheus.CounterVec
}

// NewCatalogMetrics registers the catalog collectors against registerer.
func NewCatalogMetrics(registerer prometheus.Registerer) *CatalogMetrics {
	operations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "katalog_store_operations_total",
		Help: "Catalog store operations partitioned by operation and status.",
	}, []string{"op", "status"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "katalog_store_operation_duration_seconds",
		Help:    "Duration of catalog store operations.",
		Buckets: prometheus.DefBuckets,
	}, []string{"op"})
	errs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "katalog_store_errors_total",
		Help: "Failed catalog operations grouped by error code.",
	}, []string{"op", "code"})
	rows := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "katalog_import_rows_total",
		Help: "Imported rows grouped by import mode and outcome.",
	}, []string{"mode", "outcome"})
	registerer.MustRegister(operations, duration, errs, rows)
	return &CatalogMetrics{operations: operations, duration: duration, errors: errs, importRows: rows}
}

// Tracker instruments a single catalog operation.
type Tracker struct {
	metrics *CatalogMetrics
	op      string
	start   time.Time
}

// Track starts timing op.
func (m *CatalogMetrics) Track(op string) *Tracker {
	return &Tracker{metrics: m, op: op, start: time.Now()}
}

// End records the outcome of the tracked operation and returns err untouched.
func (t *Tracker) End(err error) error {
	if t == nil || t.metrics == nil {
		return err
	}
	status := "success"
	if err != nil {
		status = "failure"
		code := string(catalog.CodeOf(err))
		if code == "" {
			code = "internal"
		}
		t.metrics.errors.WithLabelValues(t.op, code).Inc()
	}
	t.metrics.operations.WithLabelValues(t.op, status).Inc()
	t.metrics.duration.WithLabelValues(t.op).Observe(time.Since(t.start).Seconds())
	return err
}

// ObserveImport counts the rows of a finished import.
func (m *CatalogMetrics) ObserveImport(mode string, result catalog.Result) {
	if m == nil {
		return
	}
	add := func(outcome string, n int) {
		if n > 0 {
			m.importRows.WithLabelValues(mode, outcome).Add(float64(n))
		}
	}
	add("inserted", result.Inserted)
	add("updated", result.Updated)
	add("dropped", result.DroppedRows)
	add("coerced_cells", result.CoercedCells)
}
