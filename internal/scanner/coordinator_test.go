package scanner

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/goran-ethernal/ColorScanner/internal/colordata"
	"github.com/goran-ethernal/ColorScanner/internal/common"
	"github.com/goran-ethernal/ColorScanner/internal/logger"
	"github.com/goran-ethernal/ColorScanner/pkg/chain"
	pkgcolordata "github.com/goran-ethernal/ColorScanner/pkg/colordata"
	"github.com/goran-ethernal/ColorScanner/pkg/scandata"
	"github.com/goran-ethernal/ColorScanner/tests/helpers"
	"github.com/stretchr/testify/require"
)

// startRun runs c in the background and returns a function stopping it and returning Run's error.
func startRun(t *testing.T, c *Coordinator) func() error {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()

	return func() error {
		cancel()
		select {
		case err := <-done:
			return err
		case <-time.After(5 * time.Second):
			t.Fatal("coordinator did not stop")
			return nil
		}
	}
}

func requireIdleAt(t *testing.T, c *Coordinator, height int64) {
	t.Helper()

	require.Eventually(t, func() bool {
		status := c.Status()
		return status.State == StateIdlePoll && status.IndexTip.Height == height
	}, 5*time.Second, 5*time.Millisecond)
}

func TestCoordinator_NotOpened(t *testing.T) {
	f := newFixture(t)

	c, err := New(testScannerConfig(colordata.EPOBCName), f.chain, f.store, f.engine, f.fetcher, logger.NewNopLogger())
	require.NoError(t, err)

	ctx := context.Background()
	require.ErrorIs(t, c.Run(ctx), ErrNotOpened)
	require.ErrorIs(t, c.UndoTo(ctx, 0), ErrNotOpened)
	require.ErrorIs(t, c.ScanBlock(ctx, f.chain.Block(0), 0), ErrNotOpened)
	require.Equal(t, StateNew, c.State())
}

func TestNew_Validation(t *testing.T) {
	f := newFixture(t)
	log := logger.NewNopLogger()
	cfg := testScannerConfig(colordata.EPOBCName)

	_, err := New(cfg, nil, f.store, f.engine, f.fetcher, log)
	require.ErrorContains(t, err, "chain source is required")

	_, err = New(cfg, f.chain, nil, f.engine, f.fetcher, log)
	require.ErrorContains(t, err, "scan store is required")

	_, err = New(cfg, f.chain, f.store, nil, f.fetcher, log)
	require.ErrorContains(t, err, "color engine is required")

	_, err = New(cfg, f.chain, f.store, f.engine, nil, log)
	require.ErrorContains(t, err, "tx fetcher is required")

	_, err = New(testScannerConfig("obc"), f.chain, f.store, f.engine, f.fetcher, log)
	require.ErrorIs(t, err, pkgcolordata.ErrUnknownKernel)
}

func TestCoordinator_FreshIndex(t *testing.T) {
	f := newFixture(t)
	for range 3 {
		f.chain.Extend()
	}

	converge(t, f.coordinator)

	tip := f.latest(t)
	require.Equal(t, int64(3), tip.Height)
	require.Equal(t, f.chain.Block(3).Hash, *tip.Hash)

	for h := int64(0); h <= 3; h++ {
		require.Equal(t, txIDs(f.chain.Block(h).Transactions), f.txIDsAt(t, h), "height %d", h)
	}

	status := f.coordinator.Status()
	require.Equal(t, []string{colordata.EPOBCName}, status.Kernels)
	require.Equal(t, int64(3), status.ChainTip.Height)
	require.Equal(t, Progress{BlocksCurrent: 3, BlocksTotal: 3, TxCurrent: 1, TxTotal: 1}, f.recorder.lastProgress())
}

func TestCoordinator_IndexGrowsOneHeightAtATime(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	for i := range 4 {
		genesis, transfer := coloredPair(f, uint32(i))
		f.chain.Extend(genesis, transfer)
	}

	prev := int64(scandata.EmptyHeight)
	for {
		idle, err := f.coordinator.iterate(ctx)
		require.NoError(t, err)
		if idle {
			break
		}

		tip := f.latest(t)
		require.Equal(t, prev+1, tip.Height)
		require.Equal(t, f.chain.Block(tip.Height).Hash, *tip.Hash)

		stats, err := f.store.Stats(ctx)
		require.NoError(t, err)
		require.Equal(t, tip.Height, stats.MaxHeight)
		prev = tip.Height
	}
	require.Equal(t, int64(4), prev)
}

func TestCoordinator_ForkAtTip(t *testing.T) {
	f := newFixture(t)
	for range 5 {
		f.chain.Extend()
	}
	converge(t, f.coordinator)
	f.recorder.reset()

	f.chain.Fork(5)
	replaced := f.chain.Extend()

	converge(t, f.coordinator)

	require.Equal(t, []int64{5}, f.recorder.undoneHeights())
	tip := f.latest(t)
	require.Equal(t, int64(5), tip.Height)
	require.Equal(t, replaced.Hash, *tip.Hash)
	require.Equal(t, txIDs(replaced.Transactions), f.txIDsAt(t, 5))
}

func TestCoordinator_DeepFork(t *testing.T) {
	f := newFixture(t)
	for range 5 {
		f.chain.Extend()
	}
	converge(t, f.coordinator)
	f.recorder.reset()

	// the new branch is longer, so the fork is only visible through parent hashes
	f.chain.Fork(4)
	for range 3 {
		f.chain.Extend()
	}

	converge(t, f.coordinator)

	require.Equal(t, []int64{5, 4}, f.recorder.undoneHeights())
	tip := f.latest(t)
	require.Equal(t, int64(6), tip.Height)
	require.Equal(t, f.chain.Block(6).Hash, *tip.Hash)
	for h := int64(4); h <= 6; h++ {
		require.Equal(t, txIDs(f.chain.Block(h).Transactions), f.txIDsAt(t, h), "height %d", h)
	}
}

func TestCoordinator_ChainShorterThanIndex(t *testing.T) {
	f := newFixture(t)
	for range 5 {
		f.chain.Extend()
	}
	converge(t, f.coordinator)
	f.recorder.reset()

	f.chain.Fork(4)

	converge(t, f.coordinator)

	// the chain tip height itself is undone and rescanned
	require.Equal(t, []int64{5, 4, 3}, f.recorder.undoneHeights())
	tip := f.latest(t)
	require.Equal(t, int64(3), tip.Height)
	require.Equal(t, f.chain.Block(3).Hash, *tip.Hash)
	require.Empty(t, f.txIDsAt(t, 4))
	require.Empty(t, f.txIDsAt(t, 5))
}

func TestCoordinator_ScanThenUndoRestoresState(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	genesis, transfer := coloredPair(f, 1)
	f.chain.Extend(genesis, transfer)
	converge(t, f.coordinator)
	before := f.snapshot(t)

	// block 2 spends colors created at height 1 and defines a new color
	next := helpers.NewTx(colordata.EPOBCTransferSequence(0),
		[]wire.OutPoint{helpers.Out(transfer, 0)}, 6_000)
	genesis2, _ := coloredPair(f, 2)
	block := f.chain.Extend(next, genesis2)

	require.NoError(t, f.coordinator.ScanBlock(ctx, block, 2))
	require.NotEqual(t, before, f.snapshot(t))

	colors, err := f.engine.QueryColorValues(ctx, next, []int{0}, colordata.EPOBCName, f.fetcher)
	require.NoError(t, err)
	require.Len(t, colors[0].Values, 1)

	require.NoError(t, f.coordinator.UndoTo(ctx, 2))
	require.Equal(t, before, f.snapshot(t))

	def, err := f.engine.ResolveColorDescriptor(ctx, colordata.EPOBCDescriptor(*genesis2.Hash(), 2))
	require.NoError(t, err)
	require.Nil(t, def)
}

func TestCoordinator_UndoIsIdempotent(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	for i := range 4 {
		genesis, _ := coloredPair(f, uint32(i))
		f.chain.Extend(genesis)
	}
	converge(t, f.coordinator)

	require.NoError(t, f.coordinator.UndoTo(ctx, 3))
	once := f.snapshot(t)
	undone := f.recorder.undoneHeights()

	require.NoError(t, f.coordinator.UndoTo(ctx, 3))
	require.Equal(t, once, f.snapshot(t))
	require.Equal(t, undone, f.recorder.undoneHeights())
	require.Equal(t, int64(2), f.latest(t).Height)
}

func TestCoordinator_UndoToClampsAtZero(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.chain.Extend()
	converge(t, f.coordinator)

	require.NoError(t, f.coordinator.UndoTo(ctx, -10))
	require.True(t, f.latest(t).IsEmpty())
	require.Equal(t, []int64{1, 0}, f.recorder.undoneHeights())
}

func TestCoordinator_UndoRecoversFromCrash(t *testing.T) {
	tests := []struct {
		name  string
		store func(s scandata.Store) *faultyStore
		// index height left behind by the interrupted undo
		leftAt int64
	}{
		{
			name: "after rows of a height were deleted",
			store: func(s scandata.Store) *faultyStore {
				return &faultyStore{Store: s, failTxIDsAt: 4, failDeleteAt: -1}
			},
			leftAt: 4,
		},
		{
			name: "after colors were removed but before rows were deleted",
			store: func(s scandata.Store) *faultyStore {
				return &faultyStore{Store: s, failTxIDsAt: -1, failDeleteAt: 4}
			},
			leftAt: 4,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			f := newFixture(t)

			f.chain.Extend()
			converge(t, f.coordinator)
			expected := f.snapshot(t)

			var colored []chainhash.Hash
			for i := range 4 {
				genesis, transfer := coloredPair(f, uint32(i))
				f.chain.Extend(genesis, transfer)
				colored = append(colored, *genesis.Hash(), *transfer.Hash())
			}
			converge(t, f.coordinator)

			crashing := f.newCoordinator(t, tt.store(f.store), f.engine, colordata.EPOBCName)
			require.ErrorIs(t, crashing.UndoTo(ctx, 2), errCrash)
			require.Equal(t, tt.leftAt, f.latest(t).Height)

			require.NoError(t, f.coordinator.UndoTo(ctx, 2))
			require.Equal(t, expected, f.snapshot(t))
			for _, txID := range colored {
				has, err := f.engine.HasColorState(ctx, txID, colordata.EPOBCName)
				require.NoError(t, err)
				require.False(t, has)
			}
		})
	}
}

func TestCoordinator_BlockOrderWithinBlock(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	genesis, transfer := coloredPair(f, 7)
	f.chain.Extend(genesis, transfer)
	converge(t, f.coordinator)

	colors, err := f.engine.QueryColorValues(ctx, transfer, []int{0}, colordata.EPOBCName, f.fetcher)
	require.NoError(t, err)
	require.Len(t, colors[0].Values, 1)
	require.Equal(t, colordata.EPOBCDescriptor(*genesis.Hash(), 1), colors[0].Values[0].Color.Descriptor)

	// scanning the spender before its parent loses the color
	reversed := newFixture(t)
	for _, in := range transfer.MsgTx().TxIn {
		parent, err := f.chain.GetRawTransaction(ctx, in.PreviousOutPoint.Hash)
		require.NoError(t, err)
		reversed.chain.AddTx(parent)
	}
	require.NoError(t, reversed.engine.ScanTransaction(ctx, transfer, 1, colordata.EPOBCName, reversed.fetcher))
	require.NoError(t, reversed.engine.ScanTransaction(ctx, genesis, 1, colordata.EPOBCName, reversed.fetcher))

	colors, err = reversed.engine.QueryColorValues(ctx, transfer, []int{0}, colordata.EPOBCName, reversed.fetcher)
	require.NoError(t, err)
	require.Empty(t, colors[0].Values)
}

func TestCoordinator_DuplicateRowIsSkipped(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	block := f.chain.Extend(helpers.FundingTx(1, 1_000))

	coinbase := block.Transactions[0]
	require.NoError(t, f.store.AppendRow(ctx, scandata.Row{
		Height: 1, Position: 0, BlockHash: block.Hash, TxID: *coinbase.Hash(),
	}))
	require.NoError(t, f.engine.ScanTransaction(ctx, coinbase, 1, colordata.EPOBCName, f.fetcher))

	require.Empty(t, f.coordinator.verifyColorState(ctx, 1, *coinbase.Hash()))

	require.NoError(t, f.coordinator.ScanBlock(ctx, block, 1))
	require.Equal(t, txIDs(block.Transactions), f.txIDsAt(t, 1))
}

func TestCoordinator_IndexedTxWithoutColorStateIsRescanned(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	genesis, transfer := coloredPair(f, 3)
	block := f.chain.Extend(genesis, transfer)

	// a row left without the color state it should prove
	require.NoError(t, f.store.AppendRow(ctx, scandata.Row{
		Height: 1, Position: 1, BlockHash: block.Hash, TxID: *genesis.Hash(),
	}))
	require.Equal(t, []string{colordata.EPOBCName}, f.coordinator.verifyColorState(ctx, 1, *genesis.Hash()))

	require.NoError(t, f.coordinator.ScanBlock(ctx, block, 1))

	require.Empty(t, f.coordinator.verifyColorState(ctx, 1, *genesis.Hash()))
	require.ElementsMatch(t, txIDs(block.Transactions), f.txIDsAt(t, 1))
	for _, tx := range []*btcutil.Tx{genesis, transfer} {
		has, err := f.engine.HasColorState(ctx, *tx.Hash(), colordata.EPOBCName)
		require.NoError(t, err)
		require.True(t, has)
	}
}

func TestCoordinator_KernelFailureIsFatal(t *testing.T) {
	f := newFixture(t, colordata.EPOBCName, failingKernelName)

	before, broken, after := helpers.FundingTx(1, 1_000), helpers.FundingTx(2, 1_000), helpers.FundingTx(3, 1_000)
	f.failing.failOn[*broken.Hash()] = errors.New("malformed script")
	block := f.chain.Extend(before, broken, after)

	err := f.coordinator.Run(context.Background())

	var fatal *FatalError
	require.ErrorAs(t, err, &fatal)
	require.Equal(t, StateCatchingUpScan, fatal.State)

	var scanErr *KernelScanFailureError
	require.ErrorAs(t, err, &scanErr)
	require.Equal(t, *broken.Hash(), scanErr.TxID)
	require.Equal(t, failingKernelName, scanErr.Kernel)
	require.Equal(t, int64(1), scanErr.Height)

	require.Equal(t, StateFatal, f.coordinator.State())
	require.Contains(t, f.coordinator.Status().LastError, "malformed script")

	// rows stop before the failing transaction
	require.Equal(t, txIDs(block.Transactions[:2]), f.txIDsAt(t, 1))
}

func TestCoordinator_TransientScanFailureRescansBlock(t *testing.T) {
	f := newFixture(t, colordata.EPOBCName, failingKernelName)

	genesis, transfer := coloredPair(f, 1)
	f.failing.failOn[*transfer.Hash()] = fmt.Errorf("fetch parent: %w", chain.ErrUnavailable)
	block := f.chain.Extend(genesis, transfer)

	stop := startRun(t, f.coordinator)
	requireIdleAt(t, f.coordinator, 1)
	require.ErrorIs(t, stop(), context.Canceled)

	require.Equal(t, StateStopped, f.coordinator.State())
	require.Contains(t, f.recorder.undoneHeights(), int64(1))
	require.Equal(t, txIDs(block.Transactions), f.txIDsAt(t, 1))

	has, err := f.engine.HasColorState(context.Background(), *transfer.Hash(), colordata.EPOBCName)
	require.NoError(t, err)
	require.True(t, has)
}

func TestCoordinator_RetriesUnavailableSource(t *testing.T) {
	f := newFixture(t)
	f.chain.Extend()
	f.chain.Extend()
	f.chain.FailNext(3)

	stop := startRun(t, f.coordinator)
	requireIdleAt(t, f.coordinator, 2)
	require.ErrorIs(t, stop(), context.Canceled)

	require.Equal(t, f.chain.Block(2).Hash, *f.latest(t).Hash)
}

// staleTipChain reports a tip one block above what it serves for the next ahead reads.
type staleTipChain struct {
	*helpers.FakeChain
	ahead int
}

func (c *staleTipChain) GetLatestTip(ctx context.Context) (chain.Tip, error) {
	tip, err := c.FakeChain.GetLatestTip(ctx)
	if err == nil && c.ahead > 0 {
		c.ahead--
		tip.Height++
	}
	return tip, err
}

func TestCoordinator_ChainShrinksAfterTipRead(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.chain.Extend()
	f.chain.Extend()

	source := &staleTipChain{FakeChain: f.chain}
	c, err := New(testScannerConfig(colordata.EPOBCName), source, f.store, f.engine, f.fetcher,
		logger.NewNopLogger(), f.recorder)
	require.NoError(t, err)
	require.NoError(t, c.Open(ctx))
	converge(t, c)

	source.ahead = 1
	_, err = c.iterate(ctx)
	require.ErrorIs(t, err, chain.ErrBlockNotFound)
	require.True(t, isTransient(err))

	source.ahead = 1
	stop := startRun(t, c)
	requireIdleAt(t, c, 2)
	require.ErrorIs(t, stop(), context.Canceled)

	require.Equal(t, StateStopped, c.State())
	require.Equal(t, f.chain.Block(2).Hash, *f.latest(t).Hash)
}

func TestCoordinator_StartupUndoesTopHeight(t *testing.T) {
	f := newFixture(t)
	for range 3 {
		f.chain.Extend()
	}
	converge(t, f.coordinator)
	f.recorder.reset()

	restarted := f.newCoordinator(t, f.store, f.engine, colordata.EPOBCName)
	stop := startRun(t, restarted)
	requireIdleAt(t, restarted, 3)
	require.ErrorIs(t, stop(), context.Canceled)

	require.Equal(t, []int64{3}, f.recorder.undoneHeights())
	require.Equal(t, txIDs(f.chain.Block(3).Transactions), f.txIDsAt(t, 3))
}

func TestCoordinator_NotifyWakesIdleLoop(t *testing.T) {
	f := newFixture(t)

	cfg := testScannerConfig(colordata.EPOBCName)
	cfg.PollInterval = common.NewDuration(time.Hour)
	c, err := New(cfg, f.chain, f.store, f.engine, f.fetcher, logger.NewNopLogger())
	require.NoError(t, err)
	require.NoError(t, c.Open(context.Background()))

	notify := make(chan struct{}, 1)
	c.SetNotify(notify)

	stop := startRun(t, c)
	requireIdleAt(t, c, 0)

	f.chain.Extend()
	notify <- struct{}{}
	requireIdleAt(t, c, 1)

	require.ErrorIs(t, stop(), context.Canceled)
	require.Equal(t, StateStopped, c.State())
}
