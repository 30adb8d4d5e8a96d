package colordata

import (
	"context"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/goran-ethernal/ColorScanner/pkg/colordata"
)

// InputResolver gives a kernel access to the outputs spent by the transaction it evaluates.
type InputResolver interface {
	// PrevOut returns the output spent by input i.
	PrevOut(ctx context.Context, i int) (*wire.TxOut, error)

	// Color returns the color carried by the output spent by input i, or nil when it is uncolored.
	Color(ctx context.Context, i int) (*colordata.ColorValue, error)
}

// Output is one colored output produced by a kernel.
type Output struct {
	OutIndex int
	Value    int64
	Color    colordata.ColorDefinition
	// Genesis is set when Color is created by the evaluated transaction and has no ID yet.
	Genesis bool
}

// Kernel implements the coloring rules of one colored-coin scheme.
type Kernel interface {
	// Name is the kernel identifier used in configuration and queries, for example "epobc".
	Name() string

	// Evaluate computes the colored outputs of tx confirmed at height. It must not have side effects.
	Evaluate(ctx context.Context, tx *btcutil.Tx, height int64, inputs InputResolver) ([]Output, error)
}

func isCoinbase(tx *btcutil.Tx) bool {
	ins := tx.MsgTx().TxIn
	if len(ins) != 1 {
		return false
	}

	prev := ins[0].PreviousOutPoint
	return prev.Index == wire.MaxPrevOutIndex && prev.Hash == chainhash.Hash{}
}
