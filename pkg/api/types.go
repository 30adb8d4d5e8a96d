package api

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// TxColorValuesRequest selects the outputs of a transaction whose colors are requested.
// OutIndex is a single-output alias used when OutIndices is absent.
type TxColorValuesRequest struct {
	TxID        string    `json:"txId"`
	OutIndices  []flexInt `json:"outIndices,omitempty"`
	OutIndex    *flexInt  `json:"outIndex,omitempty"`
	ColorKernel string    `json:"colorKernel,omitempty"`
}

// ColorValue is the color carried by one output.
type ColorValue struct {
	Color string `json:"color"`
	Value int64  `json:"value"`
}

// TxColorValuesResponse lists one entry per selected output, null for uncolored outputs.
// ColorValues itself is null when no selected output is colored.
type TxColorValuesResponse struct {
	ColorValues []*ColorValue `json:"colorValues"`
}

// ColoredCoinsRequest names the color whose coins are requested.
type ColoredCoinsRequest struct {
	Color string `json:"color"`
}

// ColoredCoin is an indexed output carrying the requested color.
type ColoredCoin struct {
	TxID       string `json:"txId"`
	OutIndex   int    `json:"outIndex"`
	ColorValue int64  `json:"colorValue"`
}

// ColoredCoinsResponse lists the colored outputs of one color.
type ColoredCoinsResponse struct {
	Coins []ColoredCoin `json:"coins"`
}

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Code    int    `json:"code"`
}

// HealthResponse represents a health check response.
type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	State     string    `json:"state"`
}

// TipInfo is a block height and hash.
type TipInfo struct {
	Height int64  `json:"height"`
	Hash   string `json:"hash,omitempty"`
}

// ProgressInfo is the latest scan progress snapshot.
type ProgressInfo struct {
	BlocksCurrent int64 `json:"blocksCurrent"`
	BlocksTotal   int64 `json:"blocksTotal"`
	TxCurrent     int   `json:"txCurrent"`
	TxTotal       int   `json:"txTotal"`
}

// StatusResponse describes the scanner and its index.
type StatusResponse struct {
	State     string       `json:"state"`
	IndexTip  TipInfo      `json:"indexTip"`
	ChainTip  TipInfo      `json:"chainTip"`
	Progress  ProgressInfo `json:"progress"`
	Kernels   []string     `json:"kernels"`
	Rows      int64        `json:"rows"`
	LastError string       `json:"lastError,omitempty"`
}

// flexInt accepts a JSON number or a numeric string.
type flexInt int

func (f *flexInt) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	v, err := strconv.Atoi(s)
	if err != nil {
		return fmt.Errorf("invalid output index %s", data)
	}
	*f = flexInt(v)

	return nil
}

func (f flexInt) MarshalJSON() ([]byte, error) {
	return json.Marshal(int(f))
}
