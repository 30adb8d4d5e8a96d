package progress

import (
	"github.com/goran-ethernal/ColorScanner/internal/metrics"
	"github.com/goran-ethernal/ColorScanner/internal/scanner"
)

// Exporter mirrors every progress snapshot into the scan progress gauges.
type Exporter struct{}

// NewExporter creates an Exporter.
func NewExporter() *Exporter {
	return &Exporter{}
}

// OnProgress implements scanner.ProgressObserver.
func (*Exporter) OnProgress(p scanner.Progress) {
	metrics.ScanProgressSet(p.BlocksCurrent, p.BlocksTotal, int64(p.TxCurrent), int64(p.TxTotal))
}
