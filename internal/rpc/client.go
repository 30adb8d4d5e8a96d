package rpc

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/rpcclient"
	"github.com/goran-ethernal/ColorScanner/internal/common"
	"github.com/goran-ethernal/ColorScanner/internal/logger"
	"github.com/goran-ethernal/ColorScanner/pkg/chain"
	"github.com/goran-ethernal/ColorScanner/pkg/config"
	"go.uber.org/ratelimit"
)

// Compile-time check to ensure Client implements chain.Source.
var _ chain.Source = (*Client)(nil)

// Client follows a bitcoind node over JSON-RPC.
// Every call is rate limited, retried on transient failures and instrumented.
type Client struct {
	rpc     RPCClient
	retry   *config.RetryConfig
	limiter ratelimit.Limiter
	log     *logger.Logger
}

// NewClient creates a client for the node described by cfg. No request is made until Open.
func NewClient(cfg config.ChainConfig, log *logger.Logger) (*Client, error) {
	rpc, err := rpcclient.New(&rpcclient.ConnConfig{
		Host:         cfg.Host,
		User:         cfg.User,
		Pass:         cfg.Password,
		HTTPPostMode: true,
		DisableTLS:   cfg.DisableTLS,
	}, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create bitcoind rpc client: %w", err)
	}

	return newClient(rpc, cfg, log), nil
}

func newClient(rpc RPCClient, cfg config.ChainConfig, log *logger.Logger) *Client {
	limiter := ratelimit.NewUnlimited()
	if cfg.RateLimit > 0 {
		limiter = ratelimit.New(cfg.RateLimit)
	}

	return &Client{
		rpc:     rpc,
		retry:   cfg.Retry,
		limiter: limiter,
		log:     log.WithComponent(common.ComponentChainSource),
	}
}

// Open checks that the node answers and logs its version.
func (c *Client) Open(ctx context.Context) error {
	var version int32
	var subversion string
	err := c.call(ctx, "getnetworkinfo", func() error {
		info, err := c.rpc.GetNetworkInfo()
		if err != nil {
			return err
		}
		version, subversion = info.Version, info.SubVersion
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to connect to bitcoind: %w", err)
	}

	c.log.Infow("connected to bitcoind", "version", version, "subversion", subversion)
	return nil
}

// Close shuts the underlying client down.
func (c *Client) Close() {
	c.rpc.Shutdown()
}

// GetLatestTip returns the best block height and hash.
func (c *Client) GetLatestTip(ctx context.Context) (chain.Tip, error) {
	var count int64
	err := c.call(ctx, "getblockcount", func() (err error) {
		count, err = c.rpc.GetBlockCount()
		return err
	})
	if err != nil {
		return chain.Tip{}, fmt.Errorf("get block count: %w", err)
	}

	hash, err := c.blockHash(ctx, count)
	if err != nil {
		return chain.Tip{}, err
	}

	return chain.Tip{Height: count, Hash: *hash}, nil
}

// GetBlock returns the best-chain block at height with its transactions in block order.
func (c *Client) GetBlock(ctx context.Context, height int64) (*chain.Block, error) {
	hash, err := c.blockHash(ctx, height)
	if err != nil {
		return nil, err
	}

	var block *btcutil.Block
	err = c.call(ctx, "getblock", func() error {
		msg, err := c.rpc.GetBlock(hash)
		if err != nil {
			return err
		}
		block = btcutil.NewBlock(msg)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("get block %s: %w", hash, err)
	}

	block.SetHeight(int32(height)) //nolint:gosec

	return &chain.Block{
		Height:       height,
		Hash:         *block.Hash(),
		PrevHash:     block.MsgBlock().Header.PrevBlock,
		Transactions: block.Transactions(),
	}, nil
}

// GetRawTransaction returns the transaction with the given id.
// It needs txindex=1 on the node for transactions outside the mempool.
func (c *Client) GetRawTransaction(ctx context.Context, txID chainhash.Hash) (*btcutil.Tx, error) {
	var tx *btcutil.Tx
	err := c.call(ctx, "getrawtransaction", func() (err error) {
		tx, err = c.rpc.GetRawTransaction(&txID)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("get raw transaction %s: %w", txID, err)
	}

	return tx, nil
}

func (c *Client) blockHash(ctx context.Context, height int64) (*chainhash.Hash, error) {
	var hash *chainhash.Hash
	err := c.call(ctx, "getblockhash", func() (err error) {
		hash, err = c.rpc.GetBlockHash(height)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("get block hash at height %d: %w", height, err)
	}

	return hash, nil
}

// call runs fn under the rate limiter with retries, and maps the final error onto the
// chain error taxonomy.
func (c *Client) call(ctx context.Context, method string, fn func() error) error {
	err := retryWithBackoff(ctx, c.retry, method, func() error {
		c.limiter.Take()

		started := time.Now()
		err := fn()
		observeCall(method, started, err)
		if err != nil {
			c.log.Debugw("rpc call failed", "method", method, "error", err)
		}
		return err
	})
	if err == nil {
		return nil
	}

	switch {
	case isNotFound(err):
		if method == "getrawtransaction" {
			return fmt.Errorf("%w: %w", chain.ErrTxNotFound, err)
		}
		return fmt.Errorf("%w: %w", chain.ErrBlockNotFound, err)
	case retryableError(err), errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%w: %w", chain.ErrUnavailable, err)
	default:
		return err
	}
}
