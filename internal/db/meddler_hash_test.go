package db

import (
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/russross/meddler"
	"github.com/stretchr/testify/require"
)

type hashRow struct {
	ID     int64           `meddler:"id,pk"`
	Hash   chainhash.Hash  `meddler:"hash,hash"`
	Parent *chainhash.Hash `meddler:"parent,hash"`
}

func TestHashMeddler_RoundTrip(t *testing.T) {
	sqlDB, err := NewSQLiteDB(filepath.Join(t.TempDir(), "hash.sqlite"))
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	_, err = sqlDB.Exec(`CREATE TABLE hashes (id INTEGER PRIMARY KEY, hash TEXT NOT NULL, parent TEXT)`)
	require.NoError(t, err)

	genesis, err := chainhash.NewHashFromStr("000000000019d6689c085ae165831e934ff763ae46a2a6c172b3f1b60a8ce26f")
	require.NoError(t, err)

	require.NoError(t, meddler.Insert(sqlDB, "hashes", &hashRow{Hash: *genesis}))
	require.NoError(t, meddler.Insert(sqlDB, "hashes", &hashRow{Hash: chainhash.Hash{1}, Parent: genesis}))

	var raw string
	require.NoError(t, sqlDB.QueryRow(`SELECT hash FROM hashes WHERE id = 1`).Scan(&raw))
	require.Equal(t, genesis.String(), raw, "hashes are stored in display order")

	var rows []*hashRow
	require.NoError(t, meddler.QueryAll(sqlDB, &rows, `SELECT * FROM hashes ORDER BY id`))
	require.Len(t, rows, 2)
	require.Equal(t, *genesis, rows[0].Hash)
	require.Nil(t, rows[0].Parent)
	require.Equal(t, chainhash.Hash{1}, rows[1].Hash)
	require.Equal(t, genesis, rows[1].Parent)
}

func TestHashMeddler_InvalidValue(t *testing.T) {
	var h chainhash.Hash
	err := HashMeddler{}.PostRead(&h, &sql.NullString{String: "zz", Valid: true})
	require.Error(t, err)

	_, err = HashMeddler{}.PreWrite("not a hash")
	require.Error(t, err)
}
