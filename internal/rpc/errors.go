package rpc

import (
	"errors"

	"github.com/btcsuite/btcd/btcjson"
)

// bitcoind JSON-RPC error codes the client reacts to.
const (
	codeInvalidAddressOrKey btcjson.RPCErrorCode = -5  // no such transaction or block
	codeInvalidParameter    btcjson.RPCErrorCode = -8  // block height out of range
	codeInWarmup            btcjson.RPCErrorCode = -28 // node still loading
)

// rpcErrorCode extracts the JSON-RPC error code returned by bitcoind.
func rpcErrorCode(err error) (btcjson.RPCErrorCode, bool) {
	var rpcErr *btcjson.RPCError
	if errors.As(err, &rpcErr) {
		return rpcErr.Code, true
	}

	return 0, false
}

// isNotFound reports errors bitcoind returns for unknown heights, blocks or transactions.
func isNotFound(err error) bool {
	code, ok := rpcErrorCode(err)
	return ok && (code == codeInvalidAddressOrKey || code == codeInvalidParameter)
}

// isWarmingUp reports bitcoind's "loading block index" style responses.
func isWarmingUp(err error) bool {
	code, ok := rpcErrorCode(err)
	return ok && code == codeInWarmup
}

// errorType labels an error for metrics.
func errorType(err error) string {
	switch {
	case isNotFound(err):
		return "not_found"
	case isWarmingUp(err):
		return "warmup"
	case retryableError(err):
		return "transient"
	default:
		return "other"
	}
}
