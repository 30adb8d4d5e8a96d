package db

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	maintenancePasses = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "colorscanner_db_maintenance_duration_seconds",
			Help:    "Duration of database maintenance passes by outcome",
			Buckets: []float64{.1, .5, 1, 5, 15, 60, 300, 900},
		},
		[]string{"outcome"},
	)

	maintenanceLastRun = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "colorscanner_db_maintenance_last_run_timestamp",
		Help: "Unix timestamp of the last maintenance pass",
	})

	maintenanceSteps = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "colorscanner_db_maintenance_steps_total",
			Help: "WAL checkpoints and VACUUM runs, by step",
		},
		[]string{"step"},
	)

	dbFileBytes = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "colorscanner_db_size_bytes",
			Help: "Database size after the last maintenance pass, and the bytes it reclaimed",
		},
		[]string{"kind"},
	)

	operationLockWait = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "colorscanner_db_operation_lock_wait_seconds",
		Help:    "Time store operations waited for a maintenance pass to finish",
		Buckets: []float64{.0001, .001, .01, .1, 1, 10, 60},
	})
)

// recordMaintenance publishes the result of one maintenance pass.
func recordMaintenance(elapsed time.Duration, sizeBefore, sizeAfter int64, err error) {
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	maintenancePasses.WithLabelValues(outcome).Observe(elapsed.Seconds())
	maintenanceLastRun.SetToCurrentTime()

	dbFileBytes.WithLabelValues("total").Set(float64(sizeAfter))
	dbFileBytes.WithLabelValues("reclaimed").Set(float64(max(sizeBefore-sizeAfter, 0)))
}

func maintenanceStepInc(step string) {
	maintenanceSteps.WithLabelValues(step).Inc()
}
