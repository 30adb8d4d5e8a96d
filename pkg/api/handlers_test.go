package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"iter"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/golang/mock/gomock"
	"github.com/goran-ethernal/ColorScanner/internal/logger"
	"github.com/goran-ethernal/ColorScanner/internal/scanner"
	"github.com/goran-ethernal/ColorScanner/pkg/chain"
	"github.com/goran-ethernal/ColorScanner/pkg/colordata"
	colormocks "github.com/goran-ethernal/ColorScanner/pkg/colordata/mocks"
	"github.com/goran-ethernal/ColorScanner/pkg/config"
	"github.com/goran-ethernal/ColorScanner/pkg/scandata"
	scanmocks "github.com/goran-ethernal/ColorScanner/pkg/scandata/mocks"
	"github.com/goran-ethernal/ColorScanner/tests/helpers"
	"github.com/stretchr/testify/require"
)

type staticStatus struct {
	status scanner.Status
}

func (s *staticStatus) Status() scanner.Status { return s.status }

type apiFixture struct {
	engine  *colormocks.MockEngine
	fetcher *colormocks.MockTxFetcher
	store   *scanmocks.MockStore
	status  *staticStatus
	server  *Server
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()

	ctrl := gomock.NewController(t)
	f := &apiFixture{
		engine:  colormocks.NewMockEngine(ctrl),
		fetcher: colormocks.NewMockTxFetcher(ctrl),
		store:   scanmocks.NewMockStore(ctrl),
		status:  &staticStatus{},
	}

	cfg := &config.APIConfig{Enabled: true, ListenAddress: ":0"}
	cfg.ApplyDefaults()
	f.server = NewServer(cfg, f.engine, f.fetcher, f.store, f.status, logger.NewNopLogger())

	return f
}

func (f *apiFixture) do(t *testing.T, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()

	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}

	w := httptest.NewRecorder()
	f.server.Handler().ServeHTTP(w, req)

	return w
}

func colorOf(desc string, value int64) colordata.ColorValue {
	return colordata.ColorValue{Color: colordata.ColorDefinition{Kernel: "epobc", Descriptor: desc}, Value: value}
}

func coins(items ...scandata.Coin) iter.Seq2[scandata.Coin, error] {
	return func(yield func(scandata.Coin, error) bool) {
		for _, c := range items {
			if !yield(c, nil) {
				return
			}
		}
	}
}

func TestHandler_GetTxColorValues(t *testing.T) {
	tx := helpers.NewTx(0, []wire.OutPoint{{Index: 1}}, 100, 200, 300)
	txID := tx.Hash().String()
	desc := "epobc:" + strings.Repeat("ab", 32) + ":0:7"

	tests := []struct {
		name         string
		method       string
		target       string
		body         string
		kernel       string
		outIndices   []int
		outputs      []colordata.OutputColors
		expectedBody string
	}{
		{
			name:       "all outputs",
			method:     http.MethodGet,
			target:     "/api/getTxColorValues?txId=" + txID,
			kernel:     "epobc",
			outIndices: nil,
			outputs: []colordata.OutputColors{
				{OutIndex: 0, Values: []colordata.ColorValue{colorOf(desc, 99)}},
				{OutIndex: 1},
				{OutIndex: 2},
			},
			expectedBody: fmt.Sprintf(`{"colorValues":[{"color":%q,"value":99},null,null]}`, desc),
		},
		{
			name:       "outIndex alias",
			method:     http.MethodGet,
			target:     "/api/getTxColorValues?outIndex=1&txId=" + txID,
			kernel:     "epobc",
			outIndices: []int{1},
			outputs: []colordata.OutputColors{
				{OutIndex: 1, Values: []colordata.ColorValue{colorOf(desc, 199)}},
			},
			expectedBody: fmt.Sprintf(`{"colorValues":[{"color":%q,"value":199}]}`, desc),
		},
		{
			name:       "repeated and comma separated indices",
			method:     http.MethodGet,
			target:     "/api/getTxColorValues?outIndices=2&outIndices=0,1&colorKernel=obc&txId=" + txID,
			kernel:     "obc",
			outIndices: []int{2, 0, 1},
			outputs: []colordata.OutputColors{
				{OutIndex: 2}, {OutIndex: 0}, {OutIndex: 1, Values: []colordata.ColorValue{colorOf(desc, 5)}},
			},
			expectedBody: fmt.Sprintf(`{"colorValues":[null,null,{"color":%q,"value":5}]}`, desc),
		},
		{
			name:         "POST body with string indices",
			method:       http.MethodPost,
			target:       "/api/getTxColorValues",
			body:         fmt.Sprintf(`{"txId":%q,"outIndices":["1",2],"outIndex":0}`, txID),
			kernel:       "epobc",
			outIndices:   []int{1, 2},
			outputs:      []colordata.OutputColors{{OutIndex: 1}, {OutIndex: 2}},
			expectedBody: `{"colorValues":null}`,
		},
		{
			name:         "POST body with outIndex alias",
			method:       http.MethodPost,
			target:       "/api/getTxColorValues",
			body:         fmt.Sprintf(`{"txId":%q,"outIndex":2,"colorKernel":"epobc"}`, txID),
			kernel:       "epobc",
			outIndices:   []int{2},
			outputs:      []colordata.OutputColors{{OutIndex: 2, Values: []colordata.ColorValue{colorOf(desc, 1)}}},
			expectedBody: fmt.Sprintf(`{"colorValues":[{"color":%q,"value":1}]}`, desc),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newAPIFixture(t)

			f.fetcher.EXPECT().FetchTx(gomock.Any(), *tx.Hash()).Return(tx, nil)
			f.engine.EXPECT().QueryColorValues(gomock.Any(), tx, tt.outIndices, tt.kernel, f.fetcher).Return(tt.outputs, nil)

			w := f.do(t, tt.method, tt.target, tt.body)

			require.Equal(t, http.StatusOK, w.Code, w.Body.String())
			require.JSONEq(t, tt.expectedBody, w.Body.String())
		})
	}
}

func TestHandler_GetTxColorValues_Errors(t *testing.T) {
	tx := helpers.NewTx(0, []wire.OutPoint{{Index: 1}}, 100, 200)
	txID := tx.Hash().String()

	tests := []struct {
		name           string
		method         string
		target         string
		body           string
		setup          func(f *apiFixture)
		expectedStatus int
		expectedMsg    string
	}{
		{
			name:           "missing txId",
			method:         http.MethodGet,
			target:         "/api/getTxColorValues",
			expectedStatus: http.StatusBadRequest,
			expectedMsg:    `invalid txId ""`,
		},
		{
			name:           "malformed txId",
			method:         http.MethodGet,
			target:         "/api/getTxColorValues?txId=zz",
			expectedStatus: http.StatusBadRequest,
			expectedMsg:    `invalid txId "zz"`,
		},
		{
			name:           "malformed output index",
			method:         http.MethodGet,
			target:         "/api/getTxColorValues?outIndices=a&txId=" + txID,
			expectedStatus: http.StatusBadRequest,
			expectedMsg:    `invalid output index "a"`,
		},
		{
			name:           "body is not JSON",
			method:         http.MethodPost,
			target:         "/api/getTxColorValues",
			body:           "txId=abc",
			expectedStatus: http.StatusBadRequest,
			expectedMsg:    "JSON required",
		},
		{
			name:   "unknown transaction",
			method: http.MethodGet,
			target: "/api/getTxColorValues?txId=" + txID,
			setup: func(f *apiFixture) {
				f.fetcher.EXPECT().FetchTx(gomock.Any(), *tx.Hash()).
					Return(nil, fmt.Errorf("tx %s: %w", txID, chain.ErrTxNotFound))
			},
			expectedStatus: http.StatusNotFound,
			expectedMsg:    "transaction not found",
		},
		{
			name:   "unknown kernel",
			method: http.MethodGet,
			target: "/api/getTxColorValues?colorKernel=nope&txId=" + txID,
			setup: func(f *apiFixture) {
				f.fetcher.EXPECT().FetchTx(gomock.Any(), *tx.Hash()).Return(tx, nil)
				f.engine.EXPECT().QueryColorValues(gomock.Any(), tx, nil, "nope", f.fetcher).
					Return(nil, fmt.Errorf("%w: nope", colordata.ErrUnknownKernel))
			},
			expectedStatus: http.StatusBadRequest,
			expectedMsg:    "unknown color kernel: nope",
		},
		{
			name:   "output index out of range",
			method: http.MethodGet,
			target: "/api/getTxColorValues?outIndex=9&txId=" + txID,
			setup: func(f *apiFixture) {
				f.fetcher.EXPECT().FetchTx(gomock.Any(), *tx.Hash()).Return(tx, nil)
				f.engine.EXPECT().QueryColorValues(gomock.Any(), tx, []int{9}, "epobc", f.fetcher).
					Return(nil, fmt.Errorf("%w: 9", colordata.ErrInvalidOutIndex))
			},
			expectedStatus: http.StatusBadRequest,
			expectedMsg:    "output index out of range",
		},
		{
			name:   "two colors on one output",
			method: http.MethodGet,
			target: "/api/getTxColorValues?txId=" + txID,
			setup: func(f *apiFixture) {
				f.fetcher.EXPECT().FetchTx(gomock.Any(), *tx.Hash()).Return(tx, nil)
				f.engine.EXPECT().QueryColorValues(gomock.Any(), tx, nil, "epobc", f.fetcher).
					Return([]colordata.OutputColors{
						{OutIndex: 0},
						{OutIndex: 1, Values: []colordata.ColorValue{colorOf("epobc:a:0:1", 1), colorOf("epobc:b:0:1", 2)}},
					}, nil)
			},
			expectedStatus: http.StatusInternalServerError,
			expectedMsg:    "two colorvalues for one output",
		},
		{
			name:   "engine failure",
			method: http.MethodGet,
			target: "/api/getTxColorValues?txId=" + txID,
			setup: func(f *apiFixture) {
				f.fetcher.EXPECT().FetchTx(gomock.Any(), *tx.Hash()).Return(tx, nil)
				f.engine.EXPECT().QueryColorValues(gomock.Any(), tx, nil, "epobc", f.fetcher).
					Return(nil, errors.New("database is locked"))
			},
			expectedStatus: http.StatusInternalServerError,
			expectedMsg:    "database is locked",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newAPIFixture(t)
			if tt.setup != nil {
				tt.setup(f)
			}

			w := f.do(t, tt.method, tt.target, tt.body)

			require.Equal(t, tt.expectedStatus, w.Code)

			var resp ErrorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			require.Equal(t, tt.expectedStatus, resp.Code)
			require.Contains(t, resp.Message, tt.expectedMsg)
		})
	}
}

func TestHandler_GetAllColoredCoins(t *testing.T) {
	desc := "epobc:" + strings.Repeat("cd", 32) + ":0:12"
	txA, txB := chainhash.Hash{0x0a}, chainhash.Hash{0x0b}

	t.Run("GET lists coins", func(t *testing.T) {
		f := newAPIFixture(t)
		f.engine.EXPECT().ResolveColorDescriptor(gomock.Any(), desc).Return(&colordata.ColorDefinition{ID: 3, Descriptor: desc}, nil)
		f.store.EXPECT().CoinsForColor(gomock.Any(), int64(3)).Return(coins(
			scandata.Coin{TxID: txA, OutIndex: 0, Value: 500},
			scandata.Coin{TxID: txB, OutIndex: 2, Value: 20},
		))

		w := f.do(t, http.MethodGet, "/api/getAllColoredCoins?color="+desc, "")

		require.Equal(t, http.StatusOK, w.Code)
		require.JSONEq(t, fmt.Sprintf(`{"coins":[
			{"txId":%q,"outIndex":0,"colorValue":500},
			{"txId":%q,"outIndex":2,"colorValue":20}
		]}`, txA, txB), w.Body.String())
	})

	t.Run("POST without coins", func(t *testing.T) {
		f := newAPIFixture(t)
		f.engine.EXPECT().ResolveColorDescriptor(gomock.Any(), desc).Return(&colordata.ColorDefinition{ID: 4, Descriptor: desc}, nil)
		f.store.EXPECT().CoinsForColor(gomock.Any(), int64(4)).Return(coins())

		w := f.do(t, http.MethodPost, "/api/getAllColoredCoins", fmt.Sprintf(`{"color":%q}`, desc))

		require.Equal(t, http.StatusOK, w.Code)
		require.JSONEq(t, `{"coins":[]}`, w.Body.String())
	})

	t.Run("unknown color", func(t *testing.T) {
		f := newAPIFixture(t)
		f.engine.EXPECT().ResolveColorDescriptor(gomock.Any(), "epobc:nope").Return(nil, nil)

		w := f.do(t, http.MethodGet, "/api/getAllColoredCoins?color=epobc:nope", "")

		require.Equal(t, http.StatusBadRequest, w.Code)
		var resp ErrorResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		require.Equal(t, "color not known: epobc:nope", resp.Message)
	})

	t.Run("cursor failure", func(t *testing.T) {
		f := newAPIFixture(t)
		f.engine.EXPECT().ResolveColorDescriptor(gomock.Any(), desc).Return(&colordata.ColorDefinition{ID: 3}, nil)
		f.store.EXPECT().CoinsForColor(gomock.Any(), int64(3)).Return(
			iter.Seq2[scandata.Coin, error](func(yield func(scandata.Coin, error) bool) {
				yield(scandata.Coin{}, errors.New("connection reset"))
			}))

		w := f.do(t, http.MethodGet, "/api/getAllColoredCoins?color="+desc, "")

		require.Equal(t, http.StatusInternalServerError, w.Code)
	})
}

func TestHandler_Status(t *testing.T) {
	f := newAPIFixture(t)

	indexHash, chainHash := chainhash.Hash{0x01}, chainhash.Hash{0x02}
	f.status.status = scanner.Status{
		State:    scanner.StateCatchingUpScan,
		IndexTip: scandata.Tip{Height: 10, Hash: &indexHash},
		ChainTip: chain.Tip{Height: 12, Hash: chainHash},
		Progress: scanner.Progress{BlocksCurrent: 10, BlocksTotal: 12, TxCurrent: 1, TxTotal: 4},
		Kernels:  []string{"epobc"},
	}
	f.store.EXPECT().Stats(gomock.Any()).Return(scandata.Stats{Rows: 42, MinHeight: 0, MaxHeight: 10}, nil)

	w := f.do(t, http.MethodGet, "/api/status", "")

	require.Equal(t, http.StatusOK, w.Code)

	var resp StatusResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, "catching_up_scan", resp.State)
	require.Equal(t, TipInfo{Height: 10, Hash: indexHash.String()}, resp.IndexTip)
	require.Equal(t, TipInfo{Height: 12, Hash: chainHash.String()}, resp.ChainTip)
	require.Equal(t, ProgressInfo{BlocksCurrent: 10, BlocksTotal: 12, TxCurrent: 1, TxTotal: 4}, resp.Progress)
	require.Equal(t, []string{"epobc"}, resp.Kernels)
	require.Equal(t, int64(42), resp.Rows)
	require.Empty(t, resp.LastError)
}

func TestHandler_Health(t *testing.T) {
	tests := []struct {
		state          scanner.State
		expectedStatus int
		expectedBody   string
	}{
		{state: scanner.StateIdlePoll, expectedStatus: http.StatusOK, expectedBody: "ok"},
		{state: scanner.StateCatchingUpUndo, expectedStatus: http.StatusOK, expectedBody: "ok"},
		{state: scanner.StateFatal, expectedStatus: http.StatusServiceUnavailable, expectedBody: "unhealthy"},
	}

	for _, tt := range tests {
		t.Run(tt.state.String(), func(t *testing.T) {
			f := newAPIFixture(t)
			f.status.status = scanner.Status{State: tt.state}

			w := f.do(t, http.MethodGet, "/health", "")

			require.Equal(t, tt.expectedStatus, w.Code)
			var resp HealthResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			require.Equal(t, tt.expectedBody, resp.Status)
			require.Equal(t, tt.state.String(), resp.State)
		})
	}
}

func TestRespondJSON_EncodingError(t *testing.T) {
	w := httptest.NewRecorder()
	respondJSON(w, http.StatusOK, map[string]any{"ch": make(chan int)})

	require.Equal(t, http.StatusInternalServerError, w.Code)
	require.Contains(t, w.Body.String(), "Failed to encode response")
}

func TestFlexInt_Unmarshal(t *testing.T) {
	var req TxColorValuesRequest
	require.NoError(t, json.Unmarshal([]byte(`{"outIndices":[1,"2"],"outIndex":"3"}`), &req))
	require.Equal(t, []int{1, 2}, req.outIndices())
	require.Equal(t, flexInt(3), *req.OutIndex)

	require.Error(t, json.Unmarshal([]byte(`{"outIndices":["x"]}`), &req))
}
