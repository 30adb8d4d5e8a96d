package scanner

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/goran-ethernal/ColorScanner/internal/common"
	"github.com/goran-ethernal/ColorScanner/internal/logger"
	"github.com/goran-ethernal/ColorScanner/internal/metrics"
	"github.com/goran-ethernal/ColorScanner/pkg/chain"
	"github.com/goran-ethernal/ColorScanner/pkg/colordata"
	"github.com/goran-ethernal/ColorScanner/pkg/config"
	"github.com/goran-ethernal/ColorScanner/pkg/scandata"
)

// blockAwareFetcher is implemented by fetchers that can be primed with the block being scanned.
type blockAwareFetcher interface {
	Remember(txs ...*btcutil.Tx)
}

// Status is a consistent snapshot of the coordinator for status reporting.
type Status struct {
	State     State
	IndexTip  scandata.Tip
	ChainTip  chain.Tip
	Progress  Progress
	LastError string
	Kernels   []string
}

// Coordinator keeps the scan index and the color state in step with the chain source's best
// chain. A single goroutine runs Run; blocks, transactions and kernels are processed strictly
// sequentially.
type Coordinator struct {
	cfg       config.ScannerConfig
	source    chain.Source
	store     scandata.Store
	engine    colordata.Engine
	fetcher   colordata.TxFetcher
	kernels   []string
	observers []ProgressObserver
	events    []EventObserver
	notify    <-chan struct{}
	log       *logger.Logger

	// owned by the Run goroutine
	needsReconcile bool

	mu       sync.RWMutex
	opened   bool
	state    State
	progress Progress
	indexTip scandata.Tip
	chainTip chain.Tip
	lastErr  error
}

// New creates a coordinator. Open must complete before any other call.
func New(
	cfg config.ScannerConfig,
	source chain.Source,
	store scandata.Store,
	engine colordata.Engine,
	fetcher colordata.TxFetcher,
	log *logger.Logger,
	observers ...ProgressObserver,
) (*Coordinator, error) {
	if source == nil {
		return nil, errors.New("chain source is required")
	}
	if store == nil {
		return nil, errors.New("scan store is required")
	}
	if engine == nil {
		return nil, errors.New("color engine is required")
	}
	if fetcher == nil {
		return nil, errors.New("tx fetcher is required")
	}
	if log == nil {
		return nil, errors.New("logger is required")
	}

	cfg.ApplyDefaults()

	kernels := slices.Clone(cfg.Kernels)
	for _, k := range kernels {
		if !slices.Contains(engine.Kernels(), k) {
			return nil, fmt.Errorf("%w: %s (engine kernels: %v)", colordata.ErrUnknownKernel, k, engine.Kernels())
		}
	}

	c := &Coordinator{
		cfg:       cfg,
		source:    source,
		store:     store,
		engine:    engine,
		fetcher:   fetcher,
		kernels:   kernels,
		observers: observers,
		log:       log.WithComponent(common.ComponentScanner),
		state:     StateNew,
		indexTip:  scandata.Tip{Height: scandata.EmptyHeight},
	}
	for _, o := range observers {
		if e, ok := o.(EventObserver); ok {
			c.events = append(c.events, e)
		}
	}

	return c, nil
}

// SetNotify makes the idle wait end early whenever a value arrives on ch, for example
// from a new-block notification.
func (c *Coordinator) SetNotify(ch <-chan struct{}) {
	c.notify = ch
}

// Open waits until both the chain source and the scan store answer. Transient failures are
// retried until ctx is done.
func (c *Coordinator) Open(ctx context.Context) error {
	for attempt := 1; ; attempt++ {
		chainTip, indexTip, err := c.readTips(ctx)
		if err == nil {
			c.mu.Lock()
			c.opened = true
			c.chainTip, c.indexTip = chainTip, indexTip
			c.mu.Unlock()

			metrics.ChainTipSet(chainTip.Height)
			metrics.LastIndexedHeight.Set(float64(indexTip.Height))
			metrics.ComponentHealthSet(common.ComponentScanner, true)

			c.log.Infow("scan coordinator opened",
				"chain_height", chainTip.Height,
				"index_height", indexTip.Height,
				"kernels", c.kernels,
			)
			return nil
		}
		if !isTransient(err) {
			return fmt.Errorf("failed to open scan coordinator: %w", err)
		}

		c.log.Warnw("dependencies not reachable yet, retrying", "attempt", attempt, "error", err)
		if err := common.SleepWithContext(ctx, c.backoff(attempt)); err != nil {
			return fmt.Errorf("failed to open scan coordinator: %w", err)
		}
	}
}

func (c *Coordinator) readTips(ctx context.Context) (chain.Tip, scandata.Tip, error) {
	chainTip, err := c.source.GetLatestTip(ctx)
	if err != nil {
		return chain.Tip{}, scandata.Tip{}, fmt.Errorf("failed to get chain tip: %w", err)
	}

	indexTip, err := c.store.GetLatest(ctx)
	if err != nil {
		return chain.Tip{}, scandata.Tip{}, fmt.Errorf("failed to get index tip: %w", err)
	}

	return chainTip, indexTip, nil
}

func (c *Coordinator) isOpened() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.opened
}

// Run follows the chain until ctx is cancelled or a fatal error occurs. Cancellation is
// observed between iterations only: a block scan or undo in progress always completes.
func (c *Coordinator) Run(ctx context.Context) error {
	if !c.isOpened() {
		return ErrNotOpened
	}

	c.log.Info("starting scan coordinator")
	c.needsReconcile = true

	attempt := 0
	for {
		if err := ctx.Err(); err != nil {
			c.setState(StateStopped)
			c.log.Info("scan coordinator stopped")
			return err
		}

		idle, err := c.iterate(context.WithoutCancel(ctx))
		if err == nil {
			attempt = 0
			if idle {
				c.waitForTip(ctx)
			}
			continue
		}

		if !isTransient(err) {
			return c.fail(err)
		}

		attempt++
		metrics.RetryInc(common.ComponentScanner)
		c.log.Warnw("transient failure, retrying", "attempt", attempt, "error", err)
		_ = common.SleepWithContext(ctx, c.backoff(attempt))
	}
}

// iterate performs one loop step and reports whether the index is at the chain tip.
func (c *Coordinator) iterate(ctx context.Context) (bool, error) {
	if c.needsReconcile {
		if err := c.reconcile(ctx); err != nil {
			return false, err
		}
		c.needsReconcile = false
	}

	chainTip, indexTip, err := c.readTips(ctx)
	if err != nil {
		return false, err
	}
	c.setTips(chainTip, indexTip)

	if indexTip.Height == chainTip.Height && indexTip.Hash != nil && *indexTip.Hash == chainTip.Hash {
		return true, nil
	}

	c.updateProgress(func(p *Progress) {
		p.BlocksCurrent = indexTip.Height
		p.BlocksTotal = chainTip.Height
	})

	if indexTip.Height >= chainTip.Height {
		c.setState(StateCatchingUpUndo)
		c.log.Warnw("index is not behind the chain tip, undoing",
			"index_height", indexTip.Height,
			"chain_height", chainTip.Height,
		)
		return false, c.UndoTo(ctx, chainTip.Height)
	}

	c.setState(StateCatchingUpScan)

	height := indexTip.Height + 1
	block, err := c.source.GetBlock(ctx, height)
	if err != nil {
		return false, fmt.Errorf("failed to fetch block %d: %w", height, err)
	}

	if !indexTip.IsEmpty() && block.PrevHash != *indexTip.Hash {
		c.setState(StateCatchingUpUndo)
		c.log.Warnw("indexed block is not the parent of the next block, undoing",
			"height", indexTip.Height,
			"indexed_hash", indexTip.Hash,
			"expected_parent", block.PrevHash,
		)
		return false, c.UndoTo(ctx, indexTip.Height)
	}

	if err := c.ScanBlock(ctx, block, height); err != nil {
		if isTransient(err) {
			// the block may be partially indexed
			c.needsReconcile = true
		}
		return false, err
	}

	return false, nil
}

// reconcile undoes the topmost indexed height, which may hold a partially scanned block.
func (c *Coordinator) reconcile(ctx context.Context) error {
	tip, err := c.store.GetLatest(ctx)
	if err != nil {
		return fmt.Errorf("failed to get index tip: %w", err)
	}
	if tip.Height <= 0 {
		return nil
	}

	c.setState(StateCatchingUpUndo)
	c.log.Infow("undoing topmost indexed height before scanning", "height", tip.Height)

	return c.UndoTo(ctx, tip.Height)
}

func (c *Coordinator) waitForTip(ctx context.Context) {
	c.setState(StateIdlePoll)

	timer := time.NewTimer(c.cfg.PollInterval.Duration)
	defer timer.Stop()

	select {
	case <-ctx.Done():
	case <-timer.C:
	case <-c.notify:
		c.log.Debug("new tip notification")
	}
}

// UndoTo removes every indexed height from the index tip down to target inclusive, one height
// at a time. It is a no-op when the index is already below target.
func (c *Coordinator) UndoTo(ctx context.Context, target int64) error {
	if !c.isOpened() {
		return ErrNotOpened
	}

	target = max(target, 0)

	tip, err := c.store.GetLatest(ctx)
	if err != nil {
		return fmt.Errorf("failed to get index tip: %w", err)
	}
	if tip.Height < target {
		return nil
	}

	for height := tip.Height; height >= target; height-- {
		if err := c.undoHeight(ctx, height); err != nil {
			return err
		}
		c.updateProgress(func(p *Progress) { p.BlocksCurrent = height - 1 })
		for _, e := range c.events {
			e.OnHeightUndone(height)
		}
	}

	depth := tip.Height - target + 1
	metrics.UndoLog(depth, target-1)
	c.log.Infow("undo completed", "from_height", tip.Height, "to_height", target, "depth", depth)

	return nil
}

func (c *Coordinator) undoHeight(ctx context.Context, height int64) error {
	txIDs, err := c.store.TransactionIDsAt(ctx, height)
	if err != nil {
		return fmt.Errorf("failed to read transactions at height %d: %w", height, err)
	}

	for _, txID := range slices.Backward(txIDs) {
		for _, kernel := range c.kernels {
			if err := c.engine.RemoveColorValues(ctx, txID, kernel); err != nil {
				return &UndoInconsistencyError{Height: height, TxID: txID, Kernel: kernel, Err: err}
			}
		}
	}

	if err := c.store.DeleteRowsAt(ctx, height); err != nil {
		return fmt.Errorf("failed to delete rows at height %d: %w", height, err)
	}

	c.log.Debugw("height undone", "height", height, "txs", len(txIDs))
	return nil
}

// ScanBlock feeds every transaction of block, in block order, through every kernel and
// commits one row per transaction. A kernel failure stops the scan before the failing
// transaction's row.
func (c *Coordinator) ScanBlock(ctx context.Context, block *chain.Block, height int64) error {
	if !c.isOpened() {
		return ErrNotOpened
	}

	started := time.Now()
	txs := block.Transactions

	c.updateProgress(func(p *Progress) {
		p.TxCurrent = 0
		p.TxTotal = len(txs)
	})

	if f, ok := c.fetcher.(blockAwareFetcher); ok {
		f.Remember(txs...)
	}

	indexed, err := c.store.TransactionIDsAt(ctx, height)
	if err != nil {
		return fmt.Errorf("failed to read indexed txs at height %d: %w", height, err)
	}

	for pos, tx := range txs {
		txID := *tx.Hash()

		if slices.Contains(indexed, txID) {
			c.verifyColorState(ctx, height, txID)
		}

		for _, kernel := range c.kernels {
			if err := c.engine.ScanTransaction(ctx, tx, height, kernel, c.fetcher); err != nil {
				return &KernelScanFailureError{Height: height, TxID: txID, Kernel: kernel, Err: err}
			}
		}

		err := c.store.AppendRow(ctx, scandata.Row{
			Height:    height,
			Position:  pos,
			BlockHash: block.Hash,
			TxID:      txID,
		})
		switch {
		case errors.Is(err, scandata.ErrDuplicateKey):
			metrics.DuplicateRowInc()
			c.log.Debugw("tx already indexed", "height", height, "tx", txID)
		case err != nil:
			return fmt.Errorf("failed to record tx %s at height %d: %w", txID, height, err)
		}

		c.updateProgress(func(p *Progress) { p.TxCurrent = pos + 1 })
	}

	c.updateProgress(func(p *Progress) { p.BlocksCurrent = height })
	metrics.BlockScannedLog(height, len(txs), time.Since(started))
	for _, e := range c.events {
		e.OnBlockScanned(height, block.Hash, len(txs))
	}

	c.log.Debugw("block scanned",
		"height", height,
		"hash", block.Hash,
		"txs", len(txs),
		"duration", time.Since(started),
	)

	return nil
}

// verifyColorState checks, before a rescan, that a transaction whose row survived has color
// state for every kernel. It returns the kernels missing state.
func (c *Coordinator) verifyColorState(ctx context.Context, height int64, txID chainhash.Hash) []string {
	var missing []string
	for _, kernel := range c.kernels {
		ok, err := c.engine.HasColorState(ctx, txID, kernel)
		switch {
		case err != nil:
			c.log.Warnw("failed to verify color state of already indexed tx",
				"height", height, "tx", txID, "kernel", kernel, "error", err)
		case !ok:
			missing = append(missing, kernel)
			metrics.ErrorsInc(common.ComponentScanner, "missing_color_state")
			c.log.Errorw("already indexed tx has no color state, rescanning",
				"height", height, "tx", txID, "kernel", kernel)
		}
	}
	return missing
}

func (c *Coordinator) fail(err error) error {
	c.mu.Lock()
	state := c.state
	c.state = StateFatal
	c.lastErr = err
	c.mu.Unlock()

	metrics.CoordinatorStateSet(StateFatal.String(), AllStates())
	metrics.ComponentHealthSet(common.ComponentScanner, false)
	metrics.ErrorsInc(common.ComponentScanner, "fatal")
	c.log.Errorw("scan coordinator stopped on fatal error", "state", state, "error", err)

	return &FatalError{State: state, Err: err}
}

func (c *Coordinator) backoff(attempt int) time.Duration {
	retry := c.cfg.Retry
	return common.ExponentialBackoff(attempt, retry.InitialBackoff.Duration, retry.MaxBackoff.Duration, retry.BackoffMultiplier)
}

func (c *Coordinator) setState(s State) {
	c.mu.Lock()
	changed := c.state != s
	c.state = s
	c.mu.Unlock()

	if changed {
		metrics.CoordinatorStateSet(s.String(), AllStates())
		c.log.Debugw("state changed", "state", s)
	}
}

func (c *Coordinator) setTips(chainTip chain.Tip, indexTip scandata.Tip) {
	c.mu.Lock()
	c.chainTip, c.indexTip = chainTip, indexTip
	c.mu.Unlock()

	metrics.ChainTipSet(chainTip.Height)
}

func (c *Coordinator) updateProgress(update func(p *Progress)) {
	c.mu.Lock()
	update(&c.progress)
	snapshot := c.progress
	c.mu.Unlock()

	for _, o := range c.observers {
		o.OnProgress(snapshot)
	}
}

// State returns the current state.
func (c *Coordinator) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.state
}

// Progress returns the latest progress snapshot.
func (c *Coordinator) Progress() Progress {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.progress
}

// Status returns a snapshot of state, tips and progress as last seen by the loop.
func (c *Coordinator) Status() Status {
	c.mu.RLock()
	defer c.mu.RUnlock()

	status := Status{
		State:    c.state,
		IndexTip: c.indexTip,
		ChainTip: c.chainTip,
		Progress: c.progress,
		Kernels:  slices.Clone(c.kernels),
	}
	if c.lastErr != nil {
		status.LastError = c.lastErr.Error()
	}

	return status
}
