package scanner

import (
	"github.com/btcsuite/btcd/chaincfg/chainhash"
)

// Progress is the latest view of how far the scan is. Block counters are heights, transaction
// counters refer to the block being scanned.
type Progress struct {
	BlocksCurrent int64 `json:"blocksCurrent"`
	BlocksTotal   int64 `json:"blocksTotal"`
	TxCurrent     int   `json:"txCurrent"`
	TxTotal       int   `json:"txTotal"`
}

// ProgressObserver receives every progress update. It is called from the scanning goroutine
// and must return quickly.
type ProgressObserver interface {
	OnProgress(p Progress)
}

// EventObserver receives index changes. Progress observers that also implement it are
// notified of both.
type EventObserver interface {
	OnBlockScanned(height int64, hash chainhash.Hash, txCount int)
	OnHeightUndone(height int64)
}

// ProgressFunc adapts a function to ProgressObserver.
type ProgressFunc func(p Progress)

func (f ProgressFunc) OnProgress(p Progress) { f(p) }
