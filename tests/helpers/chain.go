package helpers

import (
	"context"
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/goran-ethernal/ColorScanner/pkg/chain"
)

// untaggedSequence is the sequence number of inputs that carry no color tag.
const untaggedSequence = wire.MaxTxInSequenceNum

// NewTx builds a transaction spending ins, the first input carrying sequence seq0, with
// one output per value.
func NewTx(seq0 uint32, ins []wire.OutPoint, values ...int64) *btcutil.Tx {
	msg := wire.NewMsgTx(wire.TxVersion)
	for i, op := range ins {
		in := wire.NewTxIn(&op, nil, nil)
		in.Sequence = untaggedSequence
		if i == 0 {
			in.Sequence = seq0
		}
		msg.AddTxIn(in)
	}
	for _, v := range values {
		msg.AddTxOut(wire.NewTxOut(v, []byte{0x51}))
	}

	return btcutil.NewTx(msg)
}

// FundingTx builds an untagged transaction with the given output values. salt keeps
// funding transactions with equal values distinct.
func FundingTx(salt uint32, values ...int64) *btcutil.Tx {
	var hash chainhash.Hash
	binary.LittleEndian.PutUint32(hash[:], salt)
	hash[31] = 0xfe

	return NewTx(untaggedSequence, []wire.OutPoint{{Hash: hash, Index: 0}}, values...)
}

// Out returns the outpoint of output i of tx.
func Out(tx *btcutil.Tx, i uint32) wire.OutPoint {
	return wire.OutPoint{Hash: *tx.Hash(), Index: i}
}

// FakeChain is an in-memory chain.Source. Height 0 holds a genesis block without
// transactions of interest.
type FakeChain struct {
	mu          sync.Mutex
	blocks      []*chain.Block
	txs         map[chainhash.Hash]*btcutil.Tx
	nonce       uint32
	unavailable int
	calls       map[string]int
}

var _ chain.Source = (*FakeChain)(nil)

// NewFakeChain creates a chain holding only its genesis block.
func NewFakeChain() *FakeChain {
	c := &FakeChain{
		txs:   make(map[chainhash.Hash]*btcutil.Tx),
		calls: make(map[string]int),
	}
	c.blocks = append(c.blocks, c.newBlock(0, chainhash.Hash{}, nil))

	return c
}

func (c *FakeChain) newBlock(height int64, prev chainhash.Hash, txs []*btcutil.Tx) *chain.Block {
	c.nonce++

	coinbase := wire.NewMsgTx(wire.TxVersion)
	script := binary.LittleEndian.AppendUint32([]byte{0x04}, c.nonce)
	coinbase.AddTxIn(wire.NewTxIn(wire.NewOutPoint(&chainhash.Hash{}, wire.MaxPrevOutIndex), script, nil))
	coinbase.AddTxOut(wire.NewTxOut(50_0000_0000, []byte{0x51})) //nolint:mnd

	all := append([]*btcutil.Tx{btcutil.NewTx(coinbase)}, txs...)

	msg := wire.NewMsgBlock(&wire.BlockHeader{
		Version:    1,
		PrevBlock:  prev,
		MerkleRoot: *all[0].Hash(),
		Nonce:      c.nonce,
	})
	for _, tx := range all {
		_ = msg.AddTransaction(tx.MsgTx())
		c.txs[*tx.Hash()] = tx
	}

	return &chain.Block{
		Height:       height,
		Hash:         msg.BlockHash(),
		PrevHash:     prev,
		Transactions: all,
	}
}

// Extend appends a block holding a coinbase followed by txs and returns it.
func (c *FakeChain) Extend(txs ...*btcutil.Tx) *chain.Block {
	c.mu.Lock()
	defer c.mu.Unlock()

	tip := c.blocks[len(c.blocks)-1]
	block := c.newBlock(tip.Height+1, tip.Hash, txs)
	c.blocks = append(c.blocks, block)

	return block
}

// Fork drops every block from height up, so the next Extend replaces the block at height.
func (c *FakeChain) Fork(height int64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if height < 1 || height >= int64(len(c.blocks)) {
		panic(fmt.Sprintf("fork height %d outside chain of %d blocks", height, len(c.blocks)))
	}
	c.blocks = c.blocks[:height]
}

// AddTx makes a transaction known to GetRawTransaction without putting it in a block.
func (c *FakeChain) AddTx(txs ...*btcutil.Tx) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, tx := range txs {
		c.txs[*tx.Hash()] = tx
	}
}

// Block returns the current block at height.
func (c *FakeChain) Block(height int64) *chain.Block {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.blocks[height]
}

// FailNext makes the next n calls fail with chain.ErrUnavailable.
func (c *FakeChain) FailNext(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.unavailable = n
}

// Calls returns how many times method was called.
func (c *FakeChain) Calls(method string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.calls[method]
}

func (c *FakeChain) enter(method string) error {
	c.calls[method]++
	if c.unavailable > 0 {
		c.unavailable--
		return fmt.Errorf("%s: %w", method, chain.ErrUnavailable)
	}

	return nil
}

// GetLatestTip implements chain.Source.
func (c *FakeChain) GetLatestTip(ctx context.Context) (chain.Tip, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.enter("GetLatestTip"); err != nil {
		return chain.Tip{}, err
	}

	tip := c.blocks[len(c.blocks)-1]
	return chain.Tip{Height: tip.Height, Hash: tip.Hash}, nil
}

// GetBlock implements chain.Source.
func (c *FakeChain) GetBlock(ctx context.Context, height int64) (*chain.Block, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.enter("GetBlock"); err != nil {
		return nil, err
	}
	if height < 0 || height >= int64(len(c.blocks)) {
		return nil, fmt.Errorf("height %d: %w", height, chain.ErrBlockNotFound)
	}

	return c.blocks[height], nil
}

// GetRawTransaction implements chain.Source.
func (c *FakeChain) GetRawTransaction(ctx context.Context, txID chainhash.Hash) (*btcutil.Tx, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.enter("GetRawTransaction"); err != nil {
		return nil, err
	}

	tx, ok := c.txs[txID]
	if !ok {
		return nil, fmt.Errorf("tx %s: %w", txID, chain.ErrTxNotFound)
	}

	return tx, nil
}
