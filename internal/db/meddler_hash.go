package db

import (
	"database/sql"
	"fmt"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/russross/meddler"
)

func init() {
	meddler.Register("hash", HashMeddler{})
}

// HashMeddler stores chainhash.Hash values as their display (byte-reversed) hex string,
// the same form bitcoind prints for block and transaction ids.
type HashMeddler struct{}

func (h HashMeddler) PreRead(fieldAddr interface{}) (scanTarget interface{}, err error) {
	return new(sql.NullString), nil
}

func (h HashMeddler) PostRead(fieldAddr, scanTarget interface{}) error {
	ns, ok := scanTarget.(*sql.NullString)
	if !ok {
		return fmt.Errorf("expected *sql.NullString, got %T", scanTarget)
	}

	if ptr, ok := fieldAddr.(**chainhash.Hash); ok {
		if !ns.Valid {
			*ptr = nil
			return nil
		}
		hash, err := chainhash.NewHashFromStr(ns.String)
		if err != nil {
			return fmt.Errorf("invalid hash %q: %w", ns.String, err)
		}
		*ptr = hash
		return nil
	}

	if ptr, ok := fieldAddr.(*chainhash.Hash); ok {
		if !ns.Valid {
			*ptr = chainhash.Hash{}
			return nil
		}
		hash, err := chainhash.NewHashFromStr(ns.String)
		if err != nil {
			return fmt.Errorf("invalid hash %q: %w", ns.String, err)
		}
		*ptr = *hash
		return nil
	}

	return fmt.Errorf("expected *chainhash.Hash or **chainhash.Hash, got %T", fieldAddr)
}

func (h HashMeddler) PreWrite(field interface{}) (saveValue interface{}, err error) {
	if ptr, ok := field.(*chainhash.Hash); ok {
		if ptr == nil {
			return nil, nil
		}
		return ptr.String(), nil
	}

	if hash, ok := field.(chainhash.Hash); ok {
		return hash.String(), nil
	}

	return nil, fmt.Errorf("expected chainhash.Hash or *chainhash.Hash, got %T", field)
}
