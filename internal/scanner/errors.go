package scanner

import (
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/goran-ethernal/ColorScanner/pkg/chain"
	"github.com/goran-ethernal/ColorScanner/pkg/scandata"
)

// ErrNotOpened is returned by operations called before Open completed.
var ErrNotOpened = errors.New("scan coordinator is not opened")

// KernelScanFailureError is returned when a kernel fails on a transaction. The row of that
// transaction and of every later transaction in the block is not committed.
type KernelScanFailureError struct {
	Height int64
	TxID   chainhash.Hash
	Kernel string
	Err    error
}

func (e *KernelScanFailureError) Error() string {
	return fmt.Sprintf("kernel %s failed to scan tx %s at height %d: %v", e.Kernel, e.TxID, e.Height, e.Err)
}

func (e *KernelScanFailureError) Unwrap() error { return e.Err }

// UndoInconsistencyError is returned when color state of an indexed transaction cannot be removed.
// Continuing would leave color state behind for a height no longer in the index.
type UndoInconsistencyError struct {
	Height int64
	TxID   chainhash.Hash
	Kernel string
	Err    error
}

func (e *UndoInconsistencyError) Error() string {
	return fmt.Sprintf("failed to remove %s color values of tx %s at height %d: %v", e.Kernel, e.TxID, e.Height, e.Err)
}

func (e *UndoInconsistencyError) Unwrap() error { return e.Err }

// FatalError is returned by Run when the coordinator stops on an error.
type FatalError struct {
	State State
	Err   error
}

func (e *FatalError) Error() string {
	return fmt.Sprintf("scan coordinator stopped in state %s: %v", e.State, e.Err)
}

func (e *FatalError) Unwrap() error { return e.Err }

// isTransient reports failures the loop retries with backoff. Undo inconsistencies never are.
// A missing block means the chain got shorter after its tip was read.
func isTransient(err error) bool {
	var undoErr *UndoInconsistencyError
	if errors.As(err, &undoErr) {
		return false
	}

	return errors.Is(err, chain.ErrUnavailable) ||
		errors.Is(err, scandata.ErrUnavailable) ||
		errors.Is(err, chain.ErrBlockNotFound)
}
