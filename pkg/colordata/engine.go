package colordata

import (
	"context"
	"errors"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
)

//go:generate mockgen -source=$GOFILE -destination=mocks/engine.go -package=mocks

var (
	// ErrUnknownKernel is returned for a kernel name that is not configured.
	ErrUnknownKernel = errors.New("unknown color kernel")

	// ErrUnknownColorDescriptor is returned when a color descriptor was never seen.
	ErrUnknownColorDescriptor = errors.New("color not known")

	// ErrInvalidOutIndex is returned when a queried output does not exist.
	ErrInvalidOutIndex = errors.New("output index out of range")
)

// ColorDefinition identifies a color known to the engine.
type ColorDefinition struct {
	ID          int64          `meddler:"id,pk"`
	Kernel      string         `meddler:"kernel"`
	Descriptor  string         `meddler:"descriptor"`
	GenesisTxID chainhash.Hash `meddler:"txid,hash"`
	Height      int64          `meddler:"height"`
}

// ColorValue is the amount of one color carried by an output.
type ColorValue struct {
	Color ColorDefinition
	Value int64
}

// OutputColors lists the colors found on one output, normally zero or one.
type OutputColors struct {
	OutIndex int
	Values   []ColorValue
}

// TxFetcher resolves transactions referenced by inputs. It fails with
// chain.ErrTxNotFound for unknown ids.
type TxFetcher interface {
	FetchTx(ctx context.Context, txID chainhash.Hash) (*btcutil.Tx, error)
}

// Engine computes and stores color state per transaction and kernel.
// Calls for a single kernel are made sequentially by the scanner.
type Engine interface {
	// ScanTransaction computes and persists the color state of tx. Rescanning a tx
	// replaces its previous state.
	ScanTransaction(ctx context.Context, tx *btcutil.Tx, height int64, kernel string, fetcher TxFetcher) error

	// RemoveColorValues deletes every color value and marker stored for txID under kernel,
	// together with the colors txID created. It is a no-op when nothing is stored.
	RemoveColorValues(ctx context.Context, txID chainhash.Hash, kernel string) error

	// HasColorState reports whether txID was scanned under kernel.
	HasColorState(ctx context.Context, txID chainhash.Hash, kernel string) (bool, error)

	// QueryColorValues returns the colors of the selected outputs of tx (all when
	// outIndices is nil). Stored values are preferred, unscanned transactions are
	// evaluated from their inputs without persisting anything.
	QueryColorValues(
		ctx context.Context, tx *btcutil.Tx, outIndices []int, kernel string, fetcher TxFetcher,
	) ([]OutputColors, error)

	// ResolveColorDescriptor looks up a color. It returns nil when the descriptor is unknown.
	ResolveColorDescriptor(ctx context.Context, descriptor string) (*ColorDefinition, error)

	// Kernels lists the configured kernel names in scan order.
	Kernels() []string
}
