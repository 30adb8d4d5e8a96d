package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/goran-ethernal/ColorScanner/internal/common"
	"github.com/goran-ethernal/ColorScanner/internal/logger"
	"github.com/goran-ethernal/ColorScanner/internal/scanner"
	"github.com/goran-ethernal/ColorScanner/pkg/chain"
	"github.com/goran-ethernal/ColorScanner/pkg/colordata"
	"github.com/goran-ethernal/ColorScanner/pkg/scandata"
)

const maxBodyBytes = 1 << 20

// StatusProvider exposes the scanner state for status and health endpoints.
type StatusProvider interface {
	Status() scanner.Status
}

// AmbiguousColorAssignmentError is returned when an output carries more than one color.
type AmbiguousColorAssignmentError struct {
	TxID     chainhash.Hash
	OutIndex int
	Colors   []string
}

func (e *AmbiguousColorAssignmentError) Error() string {
	return fmt.Sprintf("two colorvalues for one output %s:%d: %s", e.TxID, e.OutIndex, strings.Join(e.Colors, ", "))
}

// Handler handles HTTP requests for the API.
type Handler struct {
	engine        colordata.Engine
	fetcher       colordata.TxFetcher
	store         scandata.Store
	status        StatusProvider
	defaultKernel string
	log           *logger.Logger
}

// NewHandler creates a new API handler.
func NewHandler(
	engine colordata.Engine,
	fetcher colordata.TxFetcher,
	store scandata.Store,
	status StatusProvider,
	defaultKernel string,
	log *logger.Logger,
) *Handler {
	return &Handler{
		engine:        engine,
		fetcher:       fetcher,
		store:         store,
		status:        status,
		defaultKernel: defaultKernel,
		log:           log,
	}
}

// GetTxColorValues returns the colors of the selected outputs of a transaction.
// @Summary Get transaction color values
// @Description Colors of the selected outputs of a transaction. Unscanned transactions are evaluated from their inputs.
// @Tags Colors
// @Accept json
// @Produce json
// @Param txId query string true "Transaction id"
// @Param outIndices query []int false "Output indices, all outputs when omitted" collectionFormat(multi)
// @Param outIndex query int false "Single output index, used when outIndices is omitted"
// @Param colorKernel query string false "Color kernel" default(epobc)
// @Success 200 {object} TxColorValuesResponse "One entry per selected output"
// @Failure 400 {object} ErrorResponse "Invalid parameters"
// @Failure 404 {object} ErrorResponse "Transaction not found"
// @Failure 500 {object} ErrorResponse "Internal server error"
// @Router /getTxColorValues [get]
// @Router /getTxColorValues [post]
func (h *Handler) GetTxColorValues(w http.ResponseWriter, r *http.Request) {
	var req TxColorValuesRequest
	if err := decodeRequest(r, &req, txColorValuesFromQuery); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	txID, err := chainhash.NewHashFromStr(req.TxID)
	if req.TxID == "" || err != nil {
		respondError(w, http.StatusBadRequest, fmt.Sprintf("invalid txId %q", req.TxID))
		return
	}

	kernel := req.ColorKernel
	if kernel == "" {
		kernel = h.defaultKernel
	}

	tx, err := h.fetcher.FetchTx(r.Context(), *txID)
	if err != nil {
		h.respondFailure(w, fmt.Errorf("failed to fetch tx %s: %w", txID, err))
		return
	}

	outputs, err := h.engine.QueryColorValues(r.Context(), tx, req.outIndices(), kernel, h.fetcher)
	if err != nil {
		h.respondFailure(w, err)
		return
	}

	values, err := flattenColors(*txID, outputs)
	if err != nil {
		h.respondFailure(w, err)
		return
	}

	respondJSON(w, http.StatusOK, TxColorValuesResponse{ColorValues: values})
}

func (req *TxColorValuesRequest) outIndices() []int {
	switch {
	case req.OutIndices != nil:
		indices := make([]int, 0, len(req.OutIndices))
		for _, i := range req.OutIndices {
			indices = append(indices, int(i))
		}
		return indices
	case req.OutIndex != nil:
		return []int{int(*req.OutIndex)}
	default:
		return nil
	}
}

// flattenColors maps every output to its single color. It returns nil when no output is colored.
func flattenColors(txID chainhash.Hash, outputs []colordata.OutputColors) ([]*ColorValue, error) {
	values := make([]*ColorValue, len(outputs))
	colored := false

	for i, out := range outputs {
		switch len(out.Values) {
		case 0:
		case 1:
			values[i] = &ColorValue{Color: out.Values[0].Color.Descriptor, Value: out.Values[0].Value}
			colored = true
		default:
			colors := make([]string, 0, len(out.Values))
			for _, v := range out.Values {
				colors = append(colors, v.Color.Descriptor)
			}
			return nil, &AmbiguousColorAssignmentError{TxID: txID, OutIndex: out.OutIndex, Colors: colors}
		}
	}

	if !colored {
		return nil, nil
	}

	return values, nil
}

// GetAllColoredCoins lists every indexed output carrying a color.
// @Summary Get all coins of a color
// @Description Every indexed output carrying the color identified by its descriptor
// @Tags Colors
// @Accept json
// @Produce json
// @Param color query string true "Color descriptor"
// @Success 200 {object} ColoredCoinsResponse "Colored outputs"
// @Failure 400 {object} ErrorResponse "Unknown color"
// @Failure 500 {object} ErrorResponse "Internal server error"
// @Router /getAllColoredCoins [get]
// @Router /getAllColoredCoins [post]
func (h *Handler) GetAllColoredCoins(w http.ResponseWriter, r *http.Request) {
	var req ColoredCoinsRequest
	if err := decodeRequest(r, &req, func(q map[string][]string, req *ColoredCoinsRequest) error {
		req.Color = first(q["color"])
		return nil
	}); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	def, err := h.engine.ResolveColorDescriptor(r.Context(), req.Color)
	if err != nil {
		h.respondFailure(w, err)
		return
	}
	if def == nil {
		h.respondFailure(w, fmt.Errorf("%w: %s", colordata.ErrUnknownColorDescriptor, req.Color))
		return
	}

	coins := make([]ColoredCoin, 0)
	for coin, err := range h.store.CoinsForColor(r.Context(), def.ID) {
		if err != nil {
			h.respondFailure(w, err)
			return
		}
		coins = append(coins, ColoredCoin{TxID: coin.TxID.String(), OutIndex: coin.OutIndex, ColorValue: coin.Value})
	}

	respondJSON(w, http.StatusOK, ColoredCoinsResponse{Coins: coins})
}

// Status returns the scanner state, tips and progress.
// @Summary Scanner status
// @Description Coordinator state, index and chain tips, progress and row count
// @Tags Status
// @Produce json
// @Success 200 {object} StatusResponse "Scanner status"
// @Failure 500 {object} ErrorResponse "Internal server error"
// @Router /status [get]
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	status := h.status.Status()

	stats, err := h.store.Stats(r.Context())
	if err != nil {
		h.respondFailure(w, err)
		return
	}

	response := StatusResponse{
		State:     status.State.String(),
		IndexTip:  TipInfo{Height: status.IndexTip.Height},
		ChainTip:  TipInfo{Height: status.ChainTip.Height, Hash: status.ChainTip.Hash.String()},
		Progress:  ProgressInfo(status.Progress),
		Kernels:   status.Kernels,
		Rows:      stats.Rows,
		LastError: status.LastError,
	}
	if status.IndexTip.Hash != nil {
		response.IndexTip.Hash = status.IndexTip.Hash.String()
	}

	respondJSON(w, http.StatusOK, response)
}

// Health reports whether the scanner is running.
// @Summary Health check
// @Description 200 while the coordinator runs, 503 once it stopped on a fatal error
// @Tags Health
// @Produce json
// @Success 200 {object} HealthResponse "Healthy"
// @Failure 503 {object} HealthResponse "Coordinator stopped on a fatal error"
// @Router /health [get]
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	state := h.status.Status().State

	response := HealthResponse{
		Status:    "ok",
		Timestamp: time.Now(),
		State:     state.String(),
	}
	code := http.StatusOK
	if state == scanner.StateFatal {
		response.Status = "unhealthy"
		code = http.StatusServiceUnavailable
	}

	respondJSON(w, code, response)
}

// respondFailure maps an error to its status code.
func (h *Handler) respondFailure(w http.ResponseWriter, err error) {
	var ambiguous *AmbiguousColorAssignmentError

	switch {
	case errors.Is(err, colordata.ErrUnknownColorDescriptor),
		errors.Is(err, colordata.ErrUnknownKernel),
		errors.Is(err, colordata.ErrInvalidOutIndex):
		respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, chain.ErrTxNotFound):
		respondError(w, http.StatusNotFound, err.Error())
	case errors.As(err, &ambiguous):
		h.log.Errorw("ambiguous color assignment", "error", err)
		respondError(w, http.StatusInternalServerError, err.Error())
	default:
		h.log.Errorw("request failed", "error", err)
		respondError(w, http.StatusInternalServerError, err.Error())
	}
}

// decodeRequest reads a POST JSON body or, for other methods, the query string.
func decodeRequest[T any](r *http.Request, req *T, fromQuery func(q map[string][]string, req *T) error) error {
	if r.Method == http.MethodPost {
		dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, maxBodyBytes))
		if err := dec.Decode(req); err != nil {
			return fmt.Errorf("JSON required: %w", err)
		}
		return nil
	}

	return fromQuery(r.URL.Query(), req)
}

func txColorValuesFromQuery(q map[string][]string, req *TxColorValuesRequest) error {
	req.TxID = first(q["txId"])
	req.ColorKernel = first(q["colorKernel"])

	for _, list := range slices.Concat(q["outIndices"], q["outIndices[]"]) {
		indices, err := common.ParseIndexList(list)
		if err != nil {
			return err
		}
		for _, i := range indices {
			req.OutIndices = append(req.OutIndices, flexInt(i))
		}
	}

	if s := first(q["outIndex"]); s != "" {
		indices, err := common.ParseIndexList(s)
		if err != nil || len(indices) != 1 {
			return fmt.Errorf("invalid output index %q", s)
		}
		idx := flexInt(indices[0])
		req.OutIndex = &idx
	}

	return nil
}

func first(values []string) string {
	if len(values) == 0 {
		return ""
	}
	return values[0]
}

// respondJSON sends a JSON response.
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")

	// Encode first so an encoding error can still change the status
	encoded, err := json.Marshal(data)
	if err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(status)
	_, _ = w.Write(encoded)
}

// respondError sends an error response.
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, ErrorResponse{
		Error:   http.StatusText(status),
		Message: message,
		Code:    status,
	})
}
