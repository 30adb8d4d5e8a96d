package scanner

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/goran-ethernal/ColorScanner/internal/colordata"
	"github.com/goran-ethernal/ColorScanner/internal/common"
	"github.com/goran-ethernal/ColorScanner/internal/db"
	"github.com/goran-ethernal/ColorScanner/internal/logger"
	"github.com/goran-ethernal/ColorScanner/internal/scandata"
	pkgcolordata "github.com/goran-ethernal/ColorScanner/pkg/colordata"
	"github.com/goran-ethernal/ColorScanner/pkg/config"
	pkgscandata "github.com/goran-ethernal/ColorScanner/pkg/scandata"
	"github.com/goran-ethernal/ColorScanner/tests/helpers"
	"github.com/stretchr/testify/require"
)

const failingKernelName = "failing"

// recorder captures everything the coordinator reports.
type recorder struct {
	mu       sync.Mutex
	progress []Progress
	scanned  []int64
	undone   []int64
}

func (r *recorder) OnProgress(p Progress) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.progress = append(r.progress, p)
}

func (r *recorder) OnBlockScanned(height int64, _ chainhash.Hash, _ int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.scanned = append(r.scanned, height)
}

func (r *recorder) OnHeightUndone(height int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.undone = append(r.undone, height)
}

func (r *recorder) undoneHeights() []int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.undone)
}

func (r *recorder) lastProgress() Progress {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.progress) == 0 {
		return Progress{}
	}
	return r.progress[len(r.progress)-1]
}

func (r *recorder) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.progress, r.scanned, r.undone = nil, nil, nil
}

// failingKernel fails on the transactions listed in failOn and colors nothing.
type failingKernel struct {
	mu     sync.Mutex
	failOn map[chainhash.Hash]error
}

func (k *failingKernel) Name() string { return failingKernelName }

func (k *failingKernel) Evaluate(
	_ context.Context, tx *btcutil.Tx, _ int64, _ colordata.InputResolver,
) ([]colordata.Output, error) {
	k.mu.Lock()
	defer k.mu.Unlock()

	if err, ok := k.failOn[*tx.Hash()]; ok {
		delete(k.failOn, *tx.Hash())
		return nil, err
	}
	return nil, nil
}

type fixture struct {
	sqlDB       *sql.DB
	chain       *helpers.FakeChain
	store       *scandata.Store
	engine      *colordata.Engine
	fetcher     *colordata.CachingFetcher
	failing     *failingKernel
	recorder    *recorder
	coordinator *Coordinator
}

func testScannerConfig(kernels ...string) config.ScannerConfig {
	return config.ScannerConfig{
		Kernels:      kernels,
		PollInterval: common.NewDuration(10 * time.Millisecond),
		Retry: &config.RetryConfig{
			MaxAttempts:       1,
			InitialBackoff:    common.NewDuration(time.Millisecond),
			MaxBackoff:        common.NewDuration(5 * time.Millisecond),
			BackoffMultiplier: 2,
		},
	}
}

func newFixture(t *testing.T, kernels ...string) *fixture {
	t.Helper()

	if len(kernels) == 0 {
		kernels = []string{colordata.EPOBCName}
	}

	log := logger.NewNopLogger()
	f := &fixture{
		sqlDB:    helpers.NewTestDB(t, "scanner.sqlite"),
		chain:    helpers.NewFakeChain(),
		failing:  &failingKernel{failOn: make(map[chainhash.Hash]error)},
		recorder: &recorder{},
	}

	registry := colordata.DefaultRegistry(log)
	registry.Register(failingKernelName, func(*logger.Logger) (colordata.Kernel, error) { return f.failing, nil })
	engineKernels, err := registry.Create([]string{colordata.EPOBCName, failingKernelName})
	require.NoError(t, err)

	f.store = scandata.NewStore(f.sqlDB, db.SQLite, nil, log)
	f.engine, err = colordata.NewEngine(f.sqlDB, db.SQLite, engineKernels, nil, log)
	require.NoError(t, err)
	f.fetcher = colordata.NewCachingFetcher(f.chain, 1000)

	f.coordinator = f.newCoordinator(t, f.store, f.engine, kernels...)

	return f
}

func (f *fixture) newCoordinator(
	t *testing.T, store pkgscandata.Store, engine pkgcolordata.Engine, kernels ...string,
) *Coordinator {
	t.Helper()

	c, err := New(testScannerConfig(kernels...), f.chain, store, engine, f.fetcher, logger.NewNopLogger(), f.recorder)
	require.NoError(t, err)
	require.NoError(t, c.Open(context.Background()))

	return c
}

// converge runs loop iterations until the index reaches the chain tip.
func converge(t *testing.T, c *Coordinator) {
	t.Helper()

	for range 1000 {
		idle, err := c.iterate(context.Background())
		require.NoError(t, err)
		if idle {
			return
		}
	}
	t.Fatal("coordinator did not converge")
}

func (f *fixture) latest(t *testing.T) pkgscandata.Tip {
	t.Helper()

	tip, err := f.store.GetLatest(context.Background())
	require.NoError(t, err)
	return tip
}

func (f *fixture) txIDsAt(t *testing.T, height int64) []chainhash.Hash {
	t.Helper()

	ids, err := f.store.TransactionIDsAt(context.Background(), height)
	require.NoError(t, err)
	return ids
}

func txIDs(txs []*btcutil.Tx) []chainhash.Hash {
	ids := make([]chainhash.Hash, 0, len(txs))
	for _, tx := range txs {
		ids = append(ids, *tx.Hash())
	}
	return ids
}

// snapshot renders every stored row so two database states can be compared.
func (f *fixture) snapshot(t *testing.T) []string {
	t.Helper()

	queries := []string{
		`SELECT 'scan', height, position, blockhash, txid FROM scan_data`,
		`SELECT 'color', kernel, descriptor, txid, height FROM color_definitions`,
		`SELECT 'value', v.kernel, d.descriptor, v.txid, v.oidx || ':' || v.value
			FROM color_values v JOIN color_definitions d ON d.id = v.color_id`,
		`SELECT 'marker', kernel, txid, '', '' FROM color_scanned_txs`,
	}

	var rows []string
	for _, q := range queries {
		res, err := f.sqlDB.Query(q)
		require.NoError(t, err)
		for res.Next() {
			var a, b, c, d, e any
			require.NoError(t, res.Scan(&a, &b, &c, &d, &e))
			rows = append(rows, fmt.Sprint(a, b, c, d, e))
		}
		require.NoError(t, res.Err())
		require.NoError(t, res.Close())
	}
	slices.Sort(rows)

	return rows
}

// coloredPair returns a genesis transaction and a transfer spending its colored output.
func coloredPair(f *fixture, salt uint32) (genesis, transfer *btcutil.Tx) {
	fund := helpers.FundingTx(salt, 10_000, 3_000)
	f.chain.AddTx(fund)

	genesis = helpers.NewTx(colordata.EPOBCGenesisSequence(0), []wire.OutPoint{helpers.Out(fund, 0)}, 10_000)
	transfer = helpers.NewTx(colordata.EPOBCTransferSequence(0),
		[]wire.OutPoint{helpers.Out(genesis, 0), helpers.Out(fund, 1)}, 7_000, 3_000, 3_000)

	return genesis, transfer
}

// faultyStore fails one chosen operation once to simulate a crash in the middle of an undo.
type faultyStore struct {
	pkgscandata.Store
	failTxIDsAt  int64
	failDeleteAt int64
}

var errCrash = errors.New("simulated crash")

func (s *faultyStore) TransactionIDsAt(ctx context.Context, height int64) ([]chainhash.Hash, error) {
	if height == s.failTxIDsAt {
		s.failTxIDsAt = -1
		return nil, errCrash
	}
	return s.Store.TransactionIDsAt(ctx, height)
}

func (s *faultyStore) DeleteRowsAt(ctx context.Context, height int64) error {
	if height == s.failDeleteAt {
		s.failDeleteAt = -1
		return errCrash
	}
	return s.Store.DeleteRowsAt(ctx, height)
}
