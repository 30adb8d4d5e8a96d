package progress

import (
	"sync"
	"time"

	"github.com/goran-ethernal/ColorScanner/internal/logger"
	"github.com/goran-ethernal/ColorScanner/internal/scanner"
)

// DefaultLogInterval is the minimum time between two progress lines of a LogReporter.
const DefaultLogInterval = 5 * time.Second

// LogReporter writes the scan progress as a log line. Lines are throttled to one per
// interval, except when a block has just been completed while catching up.
type LogReporter struct {
	log      *logger.Logger
	interval time.Duration
	now      func() time.Time

	mu      sync.Mutex
	last    time.Time
	lastTip int64
}

// NewLogReporter creates a LogReporter. A non-positive interval uses DefaultLogInterval.
func NewLogReporter(log *logger.Logger, interval time.Duration) *LogReporter {
	if interval <= 0 {
		interval = DefaultLogInterval
	}

	return &LogReporter{
		log:      log,
		interval: interval,
		now:      time.Now,
		lastTip:  -1,
	}
}

// OnProgress implements scanner.ProgressObserver.
func (r *LogReporter) OnProgress(p scanner.Progress) {
	r.mu.Lock()
	now := r.now()
	blockDone := p.TxTotal > 0 && p.TxCurrent == p.TxTotal && p.BlocksCurrent != r.lastTip
	if now.Sub(r.last) < r.interval && !blockDone {
		r.mu.Unlock()
		return
	}
	r.last = now
	if blockDone {
		r.lastTip = p.BlocksCurrent
	}
	r.mu.Unlock()

	r.log.Infof("blocks: %d / %d, transactions for current block: %d / %d",
		p.BlocksCurrent, p.BlocksTotal, p.TxCurrent, p.TxTotal)
}
