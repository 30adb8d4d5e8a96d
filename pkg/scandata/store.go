package scandata

import (
	"context"
	"errors"
	"iter"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
)

//go:generate mockgen -source=$GOFILE -destination=mocks/store.go -package=mocks

var (
	// ErrDuplicateKey is returned by AppendRow when (BlockHash, TxID) is already recorded.
	ErrDuplicateKey = errors.New("scan row already exists")

	// ErrUnavailable marks transient storage failures (busy database, lost connection).
	// Callers may retry an operation failing with it.
	ErrUnavailable = errors.New("scan store unavailable")
)

// EmptyHeight is the Tip height of an empty index.
const EmptyHeight int64 = -1

// Tip is the highest indexed block. Hash is nil when the index is empty.
type Tip struct {
	Height int64
	Hash   *chainhash.Hash
}

// IsEmpty reports whether nothing has been indexed yet.
func (t Tip) IsEmpty() bool {
	return t.Height == EmptyHeight
}

// Row records that a transaction of a block was fully processed by every kernel.
type Row struct {
	Height    int64          `meddler:"height"`
	Position  int            `meddler:"position"`
	BlockHash chainhash.Hash `meddler:"blockhash,hash"`
	TxID      chainhash.Hash `meddler:"txid,hash"`
}

// Coin is a colored output of an indexed transaction.
type Coin struct {
	TxID     chainhash.Hash `meddler:"txid,hash"`
	OutIndex int            `meddler:"oidx"`
	Value    int64          `meddler:"value"`
}

// Stats summarizes the index contents.
type Stats struct {
	Rows      int64
	MinHeight int64
	MaxHeight int64
}

// Store is the durable per-transaction scan index.
// Every mutation is atomic: it either fully applies or leaves no trace.
type Store interface {
	// GetLatest returns the highest indexed height and its block hash.
	GetLatest(ctx context.Context) (Tip, error)

	// AppendRow records a processed transaction. It fails with ErrDuplicateKey when the
	// (BlockHash, TxID) pair already exists.
	AppendRow(ctx context.Context, row Row) error

	// TransactionIDsAt returns the transaction ids recorded at height in block order.
	TransactionIDsAt(ctx context.Context, height int64) ([]chainhash.Hash, error)

	// DeleteRowsAt removes every row at height.
	DeleteRowsAt(ctx context.Context, height int64) error

	// BlockHashAt returns the block hash recorded at height, if any.
	BlockHashAt(ctx context.Context, height int64) (*chainhash.Hash, bool, error)

	// CoinsForColor lazily yields the colored outputs of colorID found in indexed
	// transactions. Each range over the sequence runs a fresh query.
	CoinsForColor(ctx context.Context, colorID int64) iter.Seq2[Coin, error]

	// Stats returns row count and height range.
	Stats(ctx context.Context) (Stats, error)
}
