package metrics

import (
	"runtime"
	"slices"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Scanning metrics
	LastIndexedHeight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "colorscanner_last_indexed_height",
			Help: "Height of the highest block in the scan index",
		},
	)

	ChainTipHeight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "colorscanner_chain_tip_height",
			Help: "Best block height reported by the chain source",
		},
	)

	BlocksScanned = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "colorscanner_blocks_scanned_total",
			Help: "Total number of blocks scanned",
		},
	)

	TxsScanned = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "colorscanner_txs_scanned_total",
			Help: "Total number of transactions committed to the scan index",
		},
	)

	DuplicateRows = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "colorscanner_duplicate_rows_total",
			Help: "Transactions found already indexed while scanning a block",
		},
	)

	BlockScanTime = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "colorscanner_block_scan_duration_seconds",
			Help:    "Time taken to scan one block",
			Buckets: prometheus.DefBuckets,
		},
	)

	HeightsUndone = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "colorscanner_heights_undone_total",
			Help: "Total number of heights removed from the index",
		},
	)

	UndoDepth = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "colorscanner_undo_depth_blocks",
			Help:    "Number of heights removed by one undo",
			Buckets: []float64{1, 2, 5, 10, 20, 50, 100},
		},
	)

	UndoLastTimestamp = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "colorscanner_undo_last_timestamp",
			Help: "Unix timestamp of the last undo",
		},
	)

	CoordinatorState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "colorscanner_coordinator_state",
			Help: "Current coordinator state (1 for the active state, 0 otherwise)",
		},
		[]string{"state"},
	)

	ScanProgress = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "colorscanner_scan_progress",
			Help: "Latest progress snapshot by counter",
		},
		[]string{"counter"},
	)

	Retries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "colorscanner_retries_total",
			Help: "Loop iterations retried after a transient failure",
		},
		[]string{"component"},
	)

	// System metrics
	Uptime = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "colorscanner_uptime_seconds",
			Help: "Application uptime in seconds",
		},
	)

	Errors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "colorscanner_errors_total",
			Help: "Total number of errors by component and severity",
		},
		[]string{"component", "severity"},
	)

	ComponentHealth = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "colorscanner_component_health",
			Help: "Component health status (1=healthy, 0=unhealthy)",
		},
		[]string{"component"},
	)

	Goroutines = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "colorscanner_goroutines",
			Help: "Number of active goroutines",
		},
	)

	MemoryUsage = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "colorscanner_memory_usage_bytes",
			Help: "Memory usage statistics",
		},
		[]string{"type"},
	)

	startTime = time.Now()
)

func BlockScannedLog(height int64, txs int, duration time.Duration) {
	BlocksScanned.Inc()
	TxsScanned.Add(float64(txs))
	BlockScanTime.Observe(duration.Seconds())
	LastIndexedHeight.Set(float64(height))
}

func DuplicateRowInc() {
	DuplicateRows.Inc()
}

func UndoLog(depth int64, newHeight int64) {
	HeightsUndone.Add(float64(depth))
	UndoDepth.Observe(float64(depth))
	UndoLastTimestamp.Set(float64(time.Now().UTC().Unix()))
	LastIndexedHeight.Set(float64(newHeight))
}

func ChainTipSet(height int64) {
	ChainTipHeight.Set(float64(height))
}

// CoordinatorStateSet marks state as the active one among all.
func CoordinatorStateSet(state string, all []string) {
	for _, s := range all {
		value := float64(0)
		if s == state {
			value = 1
		}
		CoordinatorState.WithLabelValues(s).Set(value)
	}
}

func ScanProgressSet(blocksCurrent, blocksTotal, txCurrent, txTotal int64) {
	ScanProgress.WithLabelValues("blocks_current").Set(float64(blocksCurrent))
	ScanProgress.WithLabelValues("blocks_total").Set(float64(blocksTotal))
	ScanProgress.WithLabelValues("tx_current").Set(float64(txCurrent))
	ScanProgress.WithLabelValues("tx_total").Set(float64(txTotal))
}

func RetryInc(component string) {
	Retries.WithLabelValues(component).Inc()
}

func ErrorsInc(component, severity string) {
	Errors.WithLabelValues(component, severity).Inc()
}

// componentHealthy mirrors ComponentHealth for the /health endpoint.
var componentHealthy sync.Map

func ComponentHealthSet(component string, healthy bool) {
	componentHealthy.Store(component, healthy)

	value := float64(0)
	if healthy {
		value = 1
	}
	ComponentHealth.WithLabelValues(component).Set(value)
}

// UnhealthyComponents returns the components last reported unhealthy, sorted.
func UnhealthyComponents() []string {
	var unhealthy []string
	componentHealthy.Range(func(k, v any) bool {
		if !v.(bool) {
			unhealthy = append(unhealthy, k.(string))
		}
		return true
	})
	slices.Sort(unhealthy)

	return unhealthy
}

// UpdateSystemMetrics updates runtime system metrics.
// This should be called periodically (e.g., every 15 seconds).
func UpdateSystemMetrics() {
	Uptime.Set(time.Since(startTime).Seconds())
	Goroutines.Set(float64(runtime.NumGoroutine()))

	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	MemoryUsage.WithLabelValues("alloc").Set(float64(m.Alloc))
	MemoryUsage.WithLabelValues("total_alloc").Set(float64(m.TotalAlloc))
	MemoryUsage.WithLabelValues("sys").Set(float64(m.Sys))
	MemoryUsage.WithLabelValues("heap_inuse").Set(float64(m.HeapInuse))
}
