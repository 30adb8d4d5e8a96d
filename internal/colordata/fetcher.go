package colordata

import (
	"context"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/ethereum/go-ethereum/common/lru"
	"github.com/goran-ethernal/ColorScanner/pkg/chain"
	"github.com/goran-ethernal/ColorScanner/pkg/colordata"
)

// DefaultTxCacheSize is used when no cache size is configured.
const DefaultTxCacheSize = 10000

var _ colordata.TxFetcher = (*CachingFetcher)(nil)

// CachingFetcher resolves transactions through a chain source and keeps the most recently
// used ones in memory. Transactions of the block being scanned can be added up front so
// spends inside the block never hit the node.
type CachingFetcher struct {
	source chain.Source
	cache  *lru.Cache[chainhash.Hash, *btcutil.Tx]
}

// NewCachingFetcher creates a fetcher caching up to size transactions.
func NewCachingFetcher(source chain.Source, size int) *CachingFetcher {
	if size <= 0 {
		size = DefaultTxCacheSize
	}

	return &CachingFetcher{
		source: source,
		cache:  lru.NewCache[chainhash.Hash, *btcutil.Tx](size),
	}
}

// FetchTx implements colordata.TxFetcher.
func (f *CachingFetcher) FetchTx(ctx context.Context, txID chainhash.Hash) (*btcutil.Tx, error) {
	if tx, ok := f.cache.Get(txID); ok {
		TxCacheInc(true)
		return tx, nil
	}
	TxCacheInc(false)

	tx, err := f.source.GetRawTransaction(ctx, txID)
	if err != nil {
		return nil, err
	}

	f.cache.Add(txID, tx)
	return tx, nil
}

// Remember adds transactions to the cache.
func (f *CachingFetcher) Remember(txs ...*btcutil.Tx) {
	for _, tx := range txs {
		f.cache.Add(*tx.Hash(), tx)
	}
}

// Len returns the number of cached transactions.
func (f *CachingFetcher) Len() int {
	return f.cache.Len()
}
