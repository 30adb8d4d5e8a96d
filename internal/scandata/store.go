package scandata

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"iter"
	"time"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/goran-ethernal/ColorScanner/internal/common"
	"github.com/goran-ethernal/ColorScanner/internal/db"
	"github.com/goran-ethernal/ColorScanner/internal/logger"
	"github.com/goran-ethernal/ColorScanner/pkg/scandata"
)

var _ scandata.Store = (*Store)(nil)

// Store is the SQL implementation of scandata.Store for SQLite and PostgreSQL.
type Store struct {
	db          *sql.DB
	dialect     db.Dialect
	maintenance db.Maintenance
	log         *logger.Logger
}

// NewStore creates a scan index store over an already migrated database.
func NewStore(sqlDB *sql.DB, dialect db.Dialect, maintenance db.Maintenance, log *logger.Logger) *Store {
	if maintenance == nil {
		maintenance = &db.NoOpMaintenance{}
	}

	return &Store{
		db:          sqlDB,
		dialect:     dialect,
		maintenance: maintenance,
		log:         log.WithComponent(common.ComponentScanStore),
	}
}

type latestRow struct {
	Height    int64          `meddler:"height"`
	BlockHash chainhash.Hash `meddler:"blockhash,hash"`
}

// GetLatest returns the highest indexed height, or EmptyHeight when nothing is indexed.
func (s *Store) GetLatest(ctx context.Context) (scandata.Tip, error) {
	defer observe("get_latest", time.Now())

	var row latestRow
	err := s.dialect.Meddler.QueryRow(s.db, &row,
		s.dialect.Rebind(`SELECT height, blockhash FROM scan_data ORDER BY height DESC LIMIT 1`))
	if errors.Is(err, sql.ErrNoRows) {
		return scandata.Tip{Height: scandata.EmptyHeight}, nil
	}
	if err != nil {
		return scandata.Tip{}, storeErr(err, "failed to query latest scan row")
	}

	hash := row.BlockHash
	return scandata.Tip{Height: row.Height, Hash: &hash}, nil
}

// AppendRow inserts a row, mapping constraint violations to scandata.ErrDuplicateKey.
func (s *Store) AppendRow(ctx context.Context, row scandata.Row) error {
	defer observe("append_row", time.Now())

	unlock := s.maintenance.AcquireOperationLock()
	defer unlock()

	_, err := s.db.ExecContext(ctx,
		s.dialect.Rebind(`INSERT INTO scan_data (height, position, blockhash, txid) VALUES (?, ?, ?, ?)`),
		row.Height, row.Position, row.BlockHash.String(), row.TxID.String())
	if err != nil {
		if db.IsUniqueViolation(err) {
			return fmt.Errorf("tx %s in block %s: %w", row.TxID, row.BlockHash, scandata.ErrDuplicateKey)
		}
		return storeErr(err, "failed to append scan row for tx %s", row.TxID)
	}

	RowsAppendedInc()
	return nil
}

// TransactionIDsAt returns the transaction ids recorded at height in block order.
func (s *Store) TransactionIDsAt(ctx context.Context, height int64) ([]chainhash.Hash, error) {
	defer observe("transaction_ids_at", time.Now())

	var rows []*scandata.Row
	err := s.dialect.Meddler.QueryAll(s.db, &rows,
		s.dialect.Rebind(`SELECT height, position, blockhash, txid FROM scan_data WHERE height = ? ORDER BY position`),
		height)
	if err != nil {
		return nil, storeErr(err, "failed to query transactions at height %d", height)
	}

	ids := make([]chainhash.Hash, 0, len(rows))
	for _, r := range rows {
		ids = append(ids, r.TxID)
	}

	return ids, nil
}

// DeleteRowsAt removes every row at height in a single transaction.
func (s *Store) DeleteRowsAt(ctx context.Context, height int64) error {
	defer observe("delete_rows_at", time.Now())

	unlock := s.maintenance.AcquireOperationLock()
	defer unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return storeErr(err, "failed to begin transaction")
	}
	defer func() {
		if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
			s.log.Errorw("failed to rollback transaction", "error", err)
		}
	}()

	res, err := tx.ExecContext(ctx, s.dialect.Rebind(`DELETE FROM scan_data WHERE height = ?`), height)
	if err != nil {
		return storeErr(err, "failed to delete scan rows at height %d", height)
	}

	if err := tx.Commit(); err != nil {
		return storeErr(err, "failed to commit transaction")
	}

	deleted, _ := res.RowsAffected()
	RowsDeletedAdd(deleted)
	s.log.Debugw("deleted scan rows", "height", height, "rows", deleted)

	return nil
}

// BlockHashAt returns the block hash recorded at height.
func (s *Store) BlockHashAt(ctx context.Context, height int64) (*chainhash.Hash, bool, error) {
	defer observe("block_hash_at", time.Now())

	var row latestRow
	err := s.dialect.Meddler.QueryRow(s.db, &row,
		s.dialect.Rebind(`SELECT height, blockhash FROM scan_data WHERE height = ? LIMIT 1`), height)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, storeErr(err, "failed to query block hash at height %d", height)
	}

	hash := row.BlockHash
	return &hash, true, nil
}

// CoinsForColor yields colored outputs of colorID that belong to indexed transactions,
// ordered by height, block position and output index.
func (s *Store) CoinsForColor(ctx context.Context, colorID int64) iter.Seq2[scandata.Coin, error] {
	query := s.dialect.Rebind(`
		SELECT v.txid, v.oidx, v.value
		FROM color_values v
		JOIN scan_data s ON s.txid = v.txid
		WHERE v.color_id = ?
		ORDER BY s.height, s.position, v.oidx`)

	return func(yield func(scandata.Coin, error) bool) {
		rows, err := s.db.QueryContext(ctx, query, colorID)
		if err != nil {
			yield(scandata.Coin{}, fmt.Errorf("failed to query coins for color %d: %w", colorID, err))
			return
		}
		defer rows.Close()

		for rows.Next() {
			var coin scandata.Coin
			if err := s.dialect.Meddler.ScanRow(rows, &coin); err != nil {
				yield(scandata.Coin{}, fmt.Errorf("failed to scan coin row: %w", err))
				return
			}
			if !yield(coin, nil) {
				return
			}
		}

		if err := rows.Err(); err != nil {
			yield(scandata.Coin{}, fmt.Errorf("failed to iterate coins for color %d: %w", colorID, err))
		}
	}
}

type statsRow struct {
	Rows      int64
	MinHeight sql.NullInt64
	MaxHeight sql.NullInt64
}

// Stats returns the row count and indexed height range.
func (s *Store) Stats(ctx context.Context) (scandata.Stats, error) {
	var row statsRow
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*), MIN(height), MAX(height) FROM scan_data`).Scan(&row.Rows, &row.MinHeight, &row.MaxHeight)
	if err != nil {
		return scandata.Stats{}, storeErr(err, "failed to query scan stats")
	}

	stats := scandata.Stats{Rows: row.Rows, MinHeight: scandata.EmptyHeight, MaxHeight: scandata.EmptyHeight}
	if row.MinHeight.Valid {
		stats.MinHeight = row.MinHeight.Int64
	}
	if row.MaxHeight.Valid {
		stats.MaxHeight = row.MaxHeight.Int64
	}

	return stats, nil
}

// storeErr wraps err with msg, marking transient database failures with scandata.ErrUnavailable.
func storeErr(err error, msg string, args ...any) error {
	msg = fmt.Sprintf(msg, args...)
	if db.IsTransient(err) {
		return fmt.Errorf("%s: %w: %w", msg, scandata.ErrUnavailable, err)
	}

	return fmt.Errorf("%s: %w", msg, err)
}
