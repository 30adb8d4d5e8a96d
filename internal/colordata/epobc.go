package colordata

import (
	"context"
	"fmt"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/goran-ethernal/ColorScanner/internal/common"
	"github.com/goran-ethernal/ColorScanner/internal/logger"
	"github.com/goran-ethernal/ColorScanner/pkg/colordata"
)

// EPOBCName is the identifier of the order-based coloring kernel.
const EPOBCName = "epobc"

// EPOBC tag values carried in the low six bits of the first input's sequence number.
const (
	epobcTagMask     = 0x3f
	epobcTagTransfer = 0x33
	epobcTagGenesis  = 0x25
	epobcPaddingBits = 6
	// padding codes from 63 up would overflow int64 amounts
	epobcMaxPaddingCode = 62
)

var _ Kernel = (*EPOBC)(nil)

// EPOBC implements enhanced padded order-based coloring. A genesis transaction colors its
// first output; a transfer transaction moves color from inputs to outputs by matching
// their positions in the ordered sums of input and output values, after subtracting
// the padding from each.
type EPOBC struct {
	log *logger.Logger
}

// NewEPOBC is the registry factory of the EPOBC kernel.
func NewEPOBC(log *logger.Logger) (Kernel, error) {
	return &EPOBC{log: log.WithComponent(common.ComponentColorEngine)}, nil
}

func (k *EPOBC) Name() string { return EPOBCName }

// EPOBCDescriptor returns the descriptor of the color created by genesis transaction txID.
func EPOBCDescriptor(txID chainhash.Hash, height int64) string {
	return fmt.Sprintf("%s:%s:0:%d", EPOBCName, txID, height)
}

type epobcTag struct {
	kind    uint32
	padding int64
}

func parseEPOBCTag(sequence uint32) (epobcTag, bool) {
	kind := sequence & epobcTagMask
	if kind != epobcTagTransfer && kind != epobcTagGenesis {
		return epobcTag{}, false
	}

	code := (sequence >> epobcPaddingBits) & epobcTagMask
	if code > epobcMaxPaddingCode {
		return epobcTag{}, false
	}

	var padding int64
	if code > 0 {
		padding = int64(1) << code
	}

	return epobcTag{kind: kind, padding: padding}, true
}

// Evaluate implements Kernel.
func (k *EPOBC) Evaluate(ctx context.Context, tx *btcutil.Tx, height int64, inputs InputResolver) ([]Output, error) {
	msg := tx.MsgTx()
	if len(msg.TxIn) == 0 || len(msg.TxOut) == 0 || isCoinbase(tx) {
		return nil, nil
	}

	tag, ok := parseEPOBCTag(msg.TxIn[0].Sequence)
	if !ok {
		return nil, nil
	}

	if tag.kind == epobcTagGenesis {
		value := msg.TxOut[0].Value - tag.padding
		if value <= 0 {
			return nil, nil
		}

		return []Output{{
			OutIndex: 0,
			Value:    value,
			Genesis:  true,
			Color: colordata.ColorDefinition{
				Kernel:      EPOBCName,
				Descriptor:  EPOBCDescriptor(*tx.Hash(), height),
				GenesisTxID: *tx.Hash(),
				Height:      height,
			},
		}}, nil
	}

	return k.transfer(ctx, tx, tag.padding, inputs)
}

func (k *EPOBC) transfer(ctx context.Context, tx *btcutil.Tx, padding int64, inputs InputResolver) ([]Output, error) {
	msg := tx.MsgTx()

	inValues := make([]int64, len(msg.TxIn))
	for i := range msg.TxIn {
		prev, err := inputs.PrevOut(ctx, i)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve input %d of %s: %w", i, tx.Hash(), err)
		}

		inValues[i] = prev.Value - padding
		if inValues[i] <= 0 {
			// an input not covering the padding breaks the ordering for the whole transaction
			return nil, nil
		}
	}

	var (
		outputs    []Output
		outPrecSum int64
	)
	for oi, out := range msg.TxOut {
		outValue := out.Value - padding
		if outValue <= 0 {
			break
		}

		color, err := k.transferColor(ctx, inValues, outPrecSum, outValue, inputs)
		if err != nil {
			return nil, fmt.Errorf("failed to color output %d of %s: %w", oi, tx.Hash(), err)
		}
		if color != nil {
			outputs = append(outputs, Output{OutIndex: oi, Value: outValue, Color: *color})
		}

		outPrecSum += outValue
	}

	if len(outputs) > 0 {
		k.log.Debugw("epobc transfer", "tx", tx.Hash(), "colored_outputs", len(outputs))
	}

	return outputs, nil
}

// transferColor returns the color of the output spanning [outPrecSum, outPrecSum+outValue) when
// every input overlapping that range carries the same color.
func (k *EPOBC) transferColor(
	ctx context.Context, inValues []int64, outPrecSum, outValue int64, inputs InputResolver,
) (*colordata.ColorDefinition, error) {
	var (
		color     *colordata.ColorDefinition
		inPrecSum int64
	)

	for ii, inValue := range inValues {
		affects := inPrecSum < outPrecSum+outValue && outPrecSum < inPrecSum+inValue
		inPrecSum += inValue
		if !affects {
			continue
		}

		in, err := inputs.Color(ctx, ii)
		if err != nil {
			return nil, err
		}
		if in == nil {
			return nil, nil
		}

		switch {
		case color == nil:
			def := in.Color
			color = &def
		case color.ID != in.Color.ID:
			return nil, nil
		}
	}

	return color, nil
}

// EPOBCGenesisSequence returns the first-input sequence number tagging a genesis transaction.
func EPOBCGenesisSequence(paddingCode uint32) uint32 {
	return (paddingCode&epobcTagMask)<<epobcPaddingBits | epobcTagGenesis
}

// EPOBCTransferSequence returns the first-input sequence number tagging a transfer transaction.
func EPOBCTransferSequence(paddingCode uint32) uint32 {
	return (paddingCode&epobcTagMask)<<epobcPaddingBits | epobcTagTransfer
}
