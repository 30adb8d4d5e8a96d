package colordata

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/goran-ethernal/ColorScanner/internal/common"
	"github.com/goran-ethernal/ColorScanner/internal/db"
	"github.com/goran-ethernal/ColorScanner/internal/logger"
	"github.com/goran-ethernal/ColorScanner/pkg/colordata"
)

var _ colordata.Engine = (*Engine)(nil)

// ErrAmbiguousInputColor is returned when an output spent by an input carries more than one color.
var ErrAmbiguousInputColor = errors.New("spent output carries more than one color")

// Engine is the SQL backed color engine. Color definitions, per-output color values and the
// set of scanned transactions live in the same database as the scan index.
type Engine struct {
	db          *sql.DB
	dialect     db.Dialect
	kernels     map[string]Kernel
	order       []string
	maintenance db.Maintenance
	log         *logger.Logger
}

// NewEngine creates an engine running the given kernels, in that order, over a migrated database.
func NewEngine(
	sqlDB *sql.DB, dialect db.Dialect, kernels []Kernel, maintenance db.Maintenance, log *logger.Logger,
) (*Engine, error) {
	if len(kernels) == 0 {
		return nil, errors.New("at least one color kernel is required")
	}
	if maintenance == nil {
		maintenance = &db.NoOpMaintenance{}
	}

	e := &Engine{
		db:          sqlDB,
		dialect:     dialect,
		kernels:     make(map[string]Kernel, len(kernels)),
		order:       make([]string, 0, len(kernels)),
		maintenance: maintenance,
		log:         log.WithComponent(common.ComponentColorEngine),
	}
	for _, k := range kernels {
		if _, exists := e.kernels[k.Name()]; exists {
			return nil, fmt.Errorf("duplicate color kernel: %s", k.Name())
		}
		e.kernels[k.Name()] = k
		e.order = append(e.order, k.Name())
	}

	return e, nil
}

// Kernels implements colordata.Engine.
func (e *Engine) Kernels() []string {
	return slices.Clone(e.order)
}

func (e *Engine) kernel(name string) (Kernel, error) {
	k, ok := e.kernels[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", colordata.ErrUnknownKernel, name)
	}

	return k, nil
}

// ScanTransaction implements colordata.Engine.
func (e *Engine) ScanTransaction(
	ctx context.Context, tx *btcutil.Tx, height int64, kernel string, fetcher colordata.TxFetcher,
) error {
	defer observe("scan_transaction", time.Now())

	k, err := e.kernel(kernel)
	if err != nil {
		return err
	}

	txID := *tx.Hash()
	outputs, err := k.Evaluate(ctx, tx, height, e.newInputResolver(tx, kernel, fetcher))
	if err != nil {
		return fmt.Errorf("kernel %s failed on tx %s: %w", kernel, txID, err)
	}

	unlock := e.maintenance.AcquireOperationLock()
	defer unlock()

	dbTx, err := e.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer e.rollback(dbTx)

	if _, err := e.removeTx(ctx, dbTx, txID, kernel); err != nil {
		return err
	}

	for _, out := range outputs {
		colorID := out.Color.ID
		if out.Genesis {
			def := out.Color
			def.ID = 0
			if err := e.dialect.Meddler.Insert(dbTx, "color_definitions", &def); err != nil {
				return fmt.Errorf("failed to insert color %s: %w", def.Descriptor, err)
			}
			colorID = def.ID
			ColorsDefinedInc(kernel)
			e.log.Infow("new color defined", "kernel", kernel, "color", def.Descriptor)
		}

		_, err := dbTx.ExecContext(ctx, e.dialect.Rebind(
			`INSERT INTO color_values (color_id, kernel, txid, oidx, value) VALUES (?, ?, ?, ?, ?)`),
			colorID, kernel, txID.String(), out.OutIndex, out.Value)
		if err != nil {
			return fmt.Errorf("failed to insert color value for %s:%d: %w", txID, out.OutIndex, err)
		}
	}

	if _, err := dbTx.ExecContext(ctx, e.dialect.Rebind(
		`INSERT INTO color_scanned_txs (kernel, txid) VALUES (?, ?)`), kernel, txID.String()); err != nil {
		return fmt.Errorf("failed to mark tx %s as scanned: %w", txID, err)
	}

	if err := dbTx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	TxScannedInc(kernel, len(outputs) > 0)
	return nil
}

// RemoveColorValues implements colordata.Engine.
func (e *Engine) RemoveColorValues(ctx context.Context, txID chainhash.Hash, kernel string) error {
	defer observe("remove_color_values", time.Now())

	if _, err := e.kernel(kernel); err != nil {
		return err
	}

	unlock := e.maintenance.AcquireOperationLock()
	defer unlock()

	dbTx, err := e.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer e.rollback(dbTx)

	removed, err := e.removeTx(ctx, dbTx, txID, kernel)
	if err != nil {
		return err
	}

	if err := dbTx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	if removed > 0 {
		e.log.Debugw("removed color values", "tx", txID, "kernel", kernel, "rows", removed)
	}

	return nil
}

// removeTx deletes everything txID stored under kernel and returns the number of deleted color values.
func (e *Engine) removeTx(ctx context.Context, dbTx *sql.Tx, txID chainhash.Hash, kernel string) (int64, error) {
	id := txID.String()

	res, err := dbTx.ExecContext(ctx, e.dialect.Rebind(
		`DELETE FROM color_values WHERE txid = ? AND kernel = ?`), id, kernel)
	if err != nil {
		return 0, fmt.Errorf("failed to delete color values of tx %s: %w", txID, err)
	}
	removed, _ := res.RowsAffected()

	// colors created by txID, with any value still referencing them
	if _, err := dbTx.ExecContext(ctx, e.dialect.Rebind(`
		DELETE FROM color_values WHERE color_id IN (
			SELECT id FROM color_definitions WHERE txid = ? AND kernel = ?)`), id, kernel); err != nil {
		return 0, fmt.Errorf("failed to delete values of colors created by tx %s: %w", txID, err)
	}
	if _, err := dbTx.ExecContext(ctx, e.dialect.Rebind(
		`DELETE FROM color_definitions WHERE txid = ? AND kernel = ?`), id, kernel); err != nil {
		return 0, fmt.Errorf("failed to delete colors created by tx %s: %w", txID, err)
	}

	if _, err := dbTx.ExecContext(ctx, e.dialect.Rebind(
		`DELETE FROM color_scanned_txs WHERE txid = ? AND kernel = ?`), id, kernel); err != nil {
		return 0, fmt.Errorf("failed to unmark tx %s: %w", txID, err)
	}

	return removed, nil
}

// HasColorState implements colordata.Engine.
func (e *Engine) HasColorState(ctx context.Context, txID chainhash.Hash, kernel string) (bool, error) {
	var one int
	err := e.db.QueryRowContext(ctx, e.dialect.Rebind(
		`SELECT 1 FROM color_scanned_txs WHERE kernel = ? AND txid = ?`), kernel, txID.String()).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to query scan marker of tx %s: %w", txID, err)
	}

	return true, nil
}

// QueryColorValues implements colordata.Engine.
func (e *Engine) QueryColorValues(
	ctx context.Context, tx *btcutil.Tx, outIndices []int, kernel string, fetcher colordata.TxFetcher,
) ([]colordata.OutputColors, error) {
	defer observe("query_color_values", time.Now())

	k, err := e.kernel(kernel)
	if err != nil {
		return nil, err
	}

	indices, err := selectOutputs(tx, outIndices)
	if err != nil {
		return nil, err
	}

	txID := *tx.Hash()
	scanned, err := e.HasColorState(ctx, txID, kernel)
	if err != nil {
		return nil, err
	}

	byIndex := make(map[int][]colordata.ColorValue)
	if scanned {
		rows, err := e.colorValueRows(ctx, `v.txid = ? AND v.kernel = ?`, txID.String(), kernel)
		if err != nil {
			return nil, err
		}
		for _, r := range rows {
			byIndex[r.OutIndex] = append(byIndex[r.OutIndex], r.colorValue())
		}
	} else {
		// not indexed yet, evaluate as if it were confirmed at height 0
		outputs, err := k.Evaluate(ctx, tx, 0, e.newInputResolver(tx, kernel, fetcher))
		if err != nil {
			return nil, fmt.Errorf("kernel %s failed on tx %s: %w", kernel, txID, err)
		}
		for _, out := range outputs {
			byIndex[out.OutIndex] = append(byIndex[out.OutIndex], colordata.ColorValue{Color: out.Color, Value: out.Value})
		}
	}

	result := make([]colordata.OutputColors, 0, len(indices))
	for _, i := range indices {
		result = append(result, colordata.OutputColors{OutIndex: i, Values: byIndex[i]})
	}

	return result, nil
}

func selectOutputs(tx *btcutil.Tx, outIndices []int) ([]int, error) {
	count := len(tx.MsgTx().TxOut)
	if outIndices == nil {
		all := make([]int, count)
		for i := range all {
			all[i] = i
		}
		return all, nil
	}

	for _, i := range outIndices {
		if i < 0 || i >= count {
			return nil, fmt.Errorf("%w: %d (tx %s has %d outputs)", colordata.ErrInvalidOutIndex, i, tx.Hash(), count)
		}
	}

	return outIndices, nil
}

// ResolveColorDescriptor implements colordata.Engine.
func (e *Engine) ResolveColorDescriptor(ctx context.Context, descriptor string) (*colordata.ColorDefinition, error) {
	var def colordata.ColorDefinition
	err := e.dialect.Meddler.QueryRow(e.db, &def, e.dialect.Rebind(
		`SELECT id, kernel, descriptor, txid, height FROM color_definitions WHERE descriptor = ?`), descriptor)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to resolve color %s: %w", descriptor, err)
	}

	return &def, nil
}

type colorValueRow struct {
	ColorID     int64          `meddler:"id"`
	Kernel      string         `meddler:"kernel"`
	Descriptor  string         `meddler:"descriptor"`
	GenesisTxID chainhash.Hash `meddler:"txid,hash"`
	Height      int64          `meddler:"height"`
	OutIndex    int            `meddler:"oidx"`
	Value       int64          `meddler:"value"`
}

func (r *colorValueRow) colorValue() colordata.ColorValue {
	return colordata.ColorValue{
		Color: colordata.ColorDefinition{
			ID:          r.ColorID,
			Kernel:      r.Kernel,
			Descriptor:  r.Descriptor,
			GenesisTxID: r.GenesisTxID,
			Height:      r.Height,
		},
		Value: r.Value,
	}
}

func (e *Engine) colorValueRows(ctx context.Context, where string, args ...any) ([]*colorValueRow, error) {
	var rows []*colorValueRow
	err := e.dialect.Meddler.QueryAll(e.db, &rows, e.dialect.Rebind(`
		SELECT d.id, d.kernel, d.descriptor, d.txid, d.height, v.oidx, v.value
		FROM color_values v
		JOIN color_definitions d ON d.id = v.color_id
		WHERE `+where+`
		ORDER BY v.oidx, d.id`), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query color values: %w", err)
	}

	return rows, nil
}

func (e *Engine) rollback(dbTx *sql.Tx) {
	if err := dbTx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		e.log.Errorw("failed to rollback transaction", "error", err)
	}
}

// inputResolver looks up spent outputs through the fetcher and their colors in the database.
type inputResolver struct {
	engine  *Engine
	tx      *btcutil.Tx
	kernel  string
	fetcher colordata.TxFetcher
}

func (e *Engine) newInputResolver(tx *btcutil.Tx, kernel string, fetcher colordata.TxFetcher) *inputResolver {
	return &inputResolver{engine: e, tx: tx, kernel: kernel, fetcher: fetcher}
}

func (r *inputResolver) outPoint(i int) (wire.OutPoint, error) {
	ins := r.tx.MsgTx().TxIn
	if i < 0 || i >= len(ins) {
		return wire.OutPoint{}, fmt.Errorf("input %d out of range", i)
	}

	return ins[i].PreviousOutPoint, nil
}

func (r *inputResolver) PrevOut(ctx context.Context, i int) (*wire.TxOut, error) {
	op, err := r.outPoint(i)
	if err != nil {
		return nil, err
	}

	prev, err := r.fetcher.FetchTx(ctx, op.Hash)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch tx %s: %w", op.Hash, err)
	}

	outs := prev.MsgTx().TxOut
	if int(op.Index) >= len(outs) {
		return nil, fmt.Errorf("input %d spends missing output %s", i, op)
	}

	return outs[op.Index], nil
}

func (r *inputResolver) Color(ctx context.Context, i int) (*colordata.ColorValue, error) {
	op, err := r.outPoint(i)
	if err != nil {
		return nil, err
	}

	rows, err := r.engine.colorValueRows(ctx, `v.txid = ? AND v.oidx = ? AND v.kernel = ?`,
		op.Hash.String(), op.Index, r.kernel)
	if err != nil {
		return nil, err
	}

	switch len(rows) {
	case 0:
		return nil, nil
	case 1:
		value := rows[0].colorValue()
		return &value, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrAmbiguousInputColor, op)
	}
}
