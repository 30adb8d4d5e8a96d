package chain

import (
	"context"
	"errors"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
)

//go:generate mockgen -source=$GOFILE -destination=mocks/source.go -package=mocks

// ErrUnavailable marks transient failures talking to the node (network errors, timeouts,
// node warming up). Callers may retry an operation failing with it.
var ErrUnavailable = errors.New("chain source unavailable")

var (
	// ErrBlockNotFound is returned when no block exists at the requested height.
	ErrBlockNotFound = errors.New("block not found")

	// ErrTxNotFound is returned when the node does not know a transaction.
	ErrTxNotFound = errors.New("transaction not found")
)

// Tip is the node's current best block.
type Tip struct {
	Height int64
	Hash   chainhash.Hash
}

// Block is a block on the best chain with its transactions in block order.
type Block struct {
	Height       int64
	Hash         chainhash.Hash
	PrevHash     chainhash.Hash
	Transactions []*btcutil.Tx
}

// Source provides read access to a Bitcoin node.
type Source interface {
	// GetLatestTip returns the best block height and hash.
	GetLatestTip(ctx context.Context) (Tip, error)

	// GetBlock returns the best-chain block at height.
	GetBlock(ctx context.Context, height int64) (*Block, error)

	// GetRawTransaction returns the decoded raw transaction with the given id.
	GetRawTransaction(ctx context.Context, txID chainhash.Hash) (*btcutil.Tx, error)
}
