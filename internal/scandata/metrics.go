package scandata

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	storeOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "colorscanner_scan_store_operation_duration_seconds",
			Help:    "Duration of scan index store operations",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	rowsAppended = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "colorscanner_scan_rows_appended_total",
			Help: "Total number of scan rows appended",
		},
	)

	rowsDeleted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "colorscanner_scan_rows_deleted_total",
			Help: "Total number of scan rows deleted by undo",
		},
	)
)

func observe(operation string, started time.Time) {
	storeOperationDuration.WithLabelValues(operation).Observe(time.Since(started).Seconds())
}

func RowsAppendedInc() {
	rowsAppended.Inc()
}

func RowsDeletedAdd(n int64) {
	rowsDeleted.Add(float64(n))
}
