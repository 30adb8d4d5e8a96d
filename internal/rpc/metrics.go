package rpc

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	rpcCalls = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "colorscanner_bitcoind_call_duration_seconds",
			Help:    "Duration of bitcoind JSON-RPC calls by method and outcome",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		},
		[]string{"method", "outcome"},
	)

	rpcRetries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "colorscanner_bitcoind_retries_total",
			Help: "Total number of repeated bitcoind JSON-RPC calls by method",
		},
		[]string{"method"},
	)
)

// observeCall records one attempt of method. outcome is "ok" or the error type.
func observeCall(method string, started time.Time, err error) {
	outcome := "ok"
	if err != nil {
		outcome = errorType(err)
	}
	rpcCalls.WithLabelValues(method, outcome).Observe(time.Since(started).Seconds())
}

func RPCRetryInc(method string) {
	rpcRetries.WithLabelValues(method).Inc()
}
