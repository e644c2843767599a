package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/verdictlabs/oraclebot/internal/domain"
)

// MarketCreator submits market-creation transactions.
type MarketCreator interface {
	Create(ctx context.Context, question string, duration time.Duration) (uint64, string, error)
}

// MarketReader reads market state and specs.
type MarketReader interface {
	GetMarket(ctx context.Context, id uint64) (domain.Market, error)
	RequestSettlement(ctx context.Context, id uint64) (string, error)
}

// SpecReader loads the stored oracle spec for a market.
type SpecReader interface {
	Get(ctx context.Context, marketID uint64) (domain.OracleSpec, error)
}

// MarketHandler serves market-related HTTP endpoints.
type MarketHandler struct {
	creator         MarketCreator
	ledger          MarketReader
	specs           SpecReader
	defaultDuration time.Duration
	logger          *slog.Logger
}

// NewMarketHandler creates a MarketHandler. defaultDuration is used when a
// creation request omits durationSeconds.
func NewMarketHandler(creator MarketCreator, ledger MarketReader, specs SpecReader, defaultDuration time.Duration, logger *slog.Logger) *MarketHandler {
	if defaultDuration <= 0 {
		defaultDuration = 24 * time.Hour
	}
	return &MarketHandler{
		creator:         creator,
		ledger:          ledger,
		specs:           specs,
		defaultDuration: defaultDuration,
		logger:          logger,
	}
}

type createMarketRequest struct {
	Question        string `json:"question"`
	DurationSeconds int64  `json:"durationSeconds"`
}

type createMarketResponse struct {
	MarketID uint64 `json:"marketId"`
	TxHash   string `json:"txHash"`
}

// CreateMarket submits a new market and classifies its question.
// POST /api/markets
func (h *MarketHandler) CreateMarket(w http.ResponseWriter, r *http.Request) {
	var req createMarketRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Question == "" {
		writeError(w, http.StatusBadRequest, "question is required")
		return
	}
	if req.DurationSeconds < 0 {
		writeError(w, http.StatusBadRequest, "durationSeconds must not be negative")
		return
	}
	dur := h.defaultDuration
	if req.DurationSeconds > 0 {
		dur = time.Duration(req.DurationSeconds) * time.Second
	}

	id, txHash, err := h.creator.Create(r.Context(), req.Question, dur)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: create market failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to create market")
		return
	}

	writeJSON(w, http.StatusCreated, createMarketResponse{MarketID: id, TxHash: txHash})
}

type marketResponse struct {
	ID            uint64 `json:"id"`
	Question      string `json:"question"`
	Status        string `json:"status"`
	Outcome       string `json:"outcome"`
	ConfidenceBps uint16 `json:"confidenceBps"`
	SpecType      string `json:"specType,omitempty"`
	Category      string `json:"category,omitempty"`
}

// GetMarket returns the on-chain state of a market plus its stored spec.
// GET /api/markets/{id}
func (h *MarketHandler) GetMarket(w http.ResponseWriter, r *http.Request) {
	id, ok := marketIDParam(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid market id")
		return
	}

	market, err := h.ledger.GetMarket(r.Context(), id)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: get market failed",
			slog.Uint64("market_id", id),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusBadGateway, "failed to read market")
		return
	}

	resp := marketResponse{
		ID:            market.ID,
		Question:      market.Question,
		Status:        market.Status.String(),
		Outcome:       market.Outcome.String(),
		ConfidenceBps: market.ConfidenceBps,
	}
	if h.specs != nil {
		if spec, err := h.specs.Get(r.Context(), id); err == nil {
			resp.SpecType = string(spec.Type)
			resp.Category = string(spec.Category)
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

// RequestSettlement moves an open market to SettlementRequested without
// resolving it.
// POST /api/markets/{id}/request-settlement
func (h *MarketHandler) RequestSettlement(w http.ResponseWriter, r *http.Request) {
	id, ok := marketIDParam(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid market id")
		return
	}

	txHash, err := h.ledger.RequestSettlement(r.Context(), id)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: request settlement failed",
			slog.Uint64("market_id", id),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusBadGateway, "failed to request settlement")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"txHash": txHash})
}
