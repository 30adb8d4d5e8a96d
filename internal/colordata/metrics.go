package colordata

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	engineOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "colorscanner_color_engine_operation_duration_seconds",
			Help:    "Duration of color engine operations",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	txsScanned = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "colorscanner_color_txs_scanned_total",
			Help: "Total number of transactions scanned by kernel and whether they carried color",
		},
		[]string{"kernel", "colored"},
	)

	colorsDefined = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "colorscanner_colors_defined_total",
			Help: "Total number of color genesis transactions seen by kernel",
		},
		[]string{"kernel"},
	)

	txCacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "colorscanner_tx_cache_lookups_total",
			Help: "Transaction fetcher cache lookups by result",
		},
		[]string{"result"},
	)
)

func observe(operation string, started time.Time) {
	engineOperationDuration.WithLabelValues(operation).Observe(time.Since(started).Seconds())
}

func TxScannedInc(kernel string, colored bool) {
	txsScanned.WithLabelValues(kernel, strconv.FormatBool(colored)).Inc()
}

func ColorsDefinedInc(kernel string) {
	colorsDefined.WithLabelValues(kernel).Inc()
}

func TxCacheInc(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	txCacheLookups.WithLabelValues(result).Inc()
}
