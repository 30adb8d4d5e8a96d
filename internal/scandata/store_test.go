package scandata

import (
	"context"
	"testing"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/goran-ethernal/ColorScanner/internal/db"
	"github.com/goran-ethernal/ColorScanner/internal/logger"
	"github.com/goran-ethernal/ColorScanner/pkg/scandata"
	"github.com/goran-ethernal/ColorScanner/tests/helpers"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	return NewStore(helpers.NewTestDB(t, "scandata.sqlite"), db.SQLite, nil, logger.NewNopLogger())
}

func hashOf(b byte) chainhash.Hash {
	return chainhash.Hash{b}
}

func TestStore_GetLatest(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	tip, err := store.GetLatest(ctx)
	require.NoError(t, err)
	require.True(t, tip.IsEmpty())
	require.Nil(t, tip.Hash)

	require.NoError(t, store.AppendRow(ctx, scandata.Row{Height: 0, BlockHash: hashOf(0xa0), TxID: hashOf(1)}))
	require.NoError(t, store.AppendRow(ctx, scandata.Row{Height: 1, BlockHash: hashOf(0xa1), TxID: hashOf(2)}))
	require.NoError(t, store.AppendRow(ctx, scandata.Row{Height: 1, Position: 1, BlockHash: hashOf(0xa1), TxID: hashOf(3)}))

	tip, err = store.GetLatest(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(1), tip.Height)
	require.NotNil(t, tip.Hash)
	require.Equal(t, hashOf(0xa1), *tip.Hash)
}

func TestStore_AppendRow_Duplicate(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	row := scandata.Row{Height: 5, BlockHash: hashOf(0xb5), TxID: hashOf(7)}
	require.NoError(t, store.AppendRow(ctx, row))

	err := store.AppendRow(ctx, row)
	require.ErrorIs(t, err, scandata.ErrDuplicateKey)

	// the same tx in a different block is a different key
	require.NoError(t, store.AppendRow(ctx, scandata.Row{Height: 5, BlockHash: hashOf(0xc5), TxID: hashOf(7)}))
}

func TestStore_TransactionIDsAtAndDelete(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	ids, err := store.TransactionIDsAt(ctx, 10)
	require.NoError(t, err)
	require.Empty(t, ids)

	for pos, id := range []byte{9, 3, 5} {
		require.NoError(t, store.AppendRow(ctx, scandata.Row{
			Height: 10, Position: pos, BlockHash: hashOf(0x10), TxID: hashOf(id),
		}))
	}
	require.NoError(t, store.AppendRow(ctx, scandata.Row{Height: 11, BlockHash: hashOf(0x11), TxID: hashOf(1)}))

	ids, err = store.TransactionIDsAt(ctx, 10)
	require.NoError(t, err)
	require.Equal(t, []chainhash.Hash{hashOf(9), hashOf(3), hashOf(5)}, ids, "block order is kept")

	require.NoError(t, store.DeleteRowsAt(ctx, 10))
	ids, err = store.TransactionIDsAt(ctx, 10)
	require.NoError(t, err)
	require.Empty(t, ids)

	// deleting an empty height is a no-op
	require.NoError(t, store.DeleteRowsAt(ctx, 10))

	ids, err = store.TransactionIDsAt(ctx, 11)
	require.NoError(t, err)
	require.Len(t, ids, 1)
}

func TestStore_BlockHashAt(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	_, ok, err := store.BlockHashAt(ctx, 3)
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, store.AppendRow(ctx, scandata.Row{Height: 3, BlockHash: hashOf(0x33), TxID: hashOf(1)}))

	hash, ok, err := store.BlockHashAt(ctx, 3)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, hashOf(0x33), *hash)
}

func TestStore_CoinsForColor(t *testing.T) {
	ctx := context.Background()
	sqlDB := helpers.NewTestDB(t, "coins.sqlite")
	store := NewStore(sqlDB, db.SQLite, &db.NoOpMaintenance{}, logger.NewNopLogger())

	_, err := sqlDB.Exec(`INSERT INTO color_definitions (id, kernel, descriptor, height) VALUES
		(1, 'epobc', 'epobc:aa:0:1', 1), (2, 'epobc', 'epobc:bb:0:2', 2)`)
	require.NoError(t, err)

	indexed := hashOf(0x01)
	later := hashOf(0x02)
	orphan := hashOf(0x03)
	require.NoError(t, store.AppendRow(ctx, scandata.Row{Height: 2, BlockHash: hashOf(0xf2), TxID: later}))
	require.NoError(t, store.AppendRow(ctx, scandata.Row{Height: 1, BlockHash: hashOf(0xf1), TxID: indexed}))

	insert := `INSERT INTO color_values (color_id, kernel, txid, oidx, value) VALUES (?, 'epobc', ?, ?, ?)`
	for _, v := range []struct {
		color int64
		txid  chainhash.Hash
		oidx  int
		value int64
	}{
		{1, later, 0, 40},
		{1, indexed, 1, 60},
		{1, indexed, 0, 100},
		{1, orphan, 0, 7},
		{2, indexed, 2, 5},
	} {
		_, err := sqlDB.Exec(insert, v.color, v.txid.String(), v.oidx, v.value)
		require.NoError(t, err)
	}

	collect := func() []scandata.Coin {
		var coins []scandata.Coin
		for coin, err := range store.CoinsForColor(ctx, 1) {
			require.NoError(t, err)
			coins = append(coins, coin)
		}
		return coins
	}

	expected := []scandata.Coin{
		{TxID: indexed, OutIndex: 0, Value: 100},
		{TxID: indexed, OutIndex: 1, Value: 60},
		{TxID: later, OutIndex: 0, Value: 40},
	}
	require.Equal(t, expected, collect())
	// restartable
	require.Equal(t, expected, collect())

	// early break stops the cursor
	n := 0
	for range store.CoinsForColor(ctx, 1) {
		n++
		break
	}
	require.Equal(t, 1, n)

	for _, err := range store.CoinsForColor(ctx, 99) {
		t.Fatalf("unexpected element for unknown color, err=%v", err)
	}
}

func TestStore_Stats(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	stats, err := store.Stats(ctx)
	require.NoError(t, err)
	require.Equal(t, scandata.Stats{Rows: 0, MinHeight: -1, MaxHeight: -1}, stats)

	require.NoError(t, store.AppendRow(ctx, scandata.Row{Height: 4, BlockHash: hashOf(4), TxID: hashOf(1)}))
	require.NoError(t, store.AppendRow(ctx, scandata.Row{Height: 6, BlockHash: hashOf(6), TxID: hashOf(2)}))

	stats, err = store.Stats(ctx)
	require.NoError(t, err)
	require.Equal(t, scandata.Stats{Rows: 2, MinHeight: 4, MaxHeight: 6}, stats)
}
