package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/verdictlabs/oraclebot/internal/domain"
)

// Settler runs one settlement attempt for a market.
type Settler interface {
	Settle(ctx context.Context, marketID uint64, consortium bool) (domain.SettlementRecord, error)
}

// SettlementHandler serves the settlement trigger and audit record endpoints.
type SettlementHandler struct {
	settler Settler
	records domain.SettlementStore
	logger  *slog.Logger
}

// NewSettlementHandler creates a SettlementHandler.
func NewSettlementHandler(settler Settler, records domain.SettlementStore, logger *slog.Logger) *SettlementHandler {
	return &SettlementHandler{
		settler: settler,
		records: records,
		logger:  logger,
	}
}

type settlementResponse struct {
	MarketID      uint64           `json:"marketId"`
	Outcome       string           `json:"outcome"`
	ConfidenceBps uint16           `json:"confidenceBps"`
	Method        string           `json:"method"`
	IsFallback    bool             `json:"isFallback"`
	Tally         domain.VoteTally `json:"tally"`
	ResponseID    string           `json:"responseId"`
	TxHash        string           `json:"txHash"`
	EvidenceKey   string           `json:"evidenceKey,omitempty"`
}

func toResponse(rec domain.SettlementRecord) settlementResponse {
	return settlementResponse{
		MarketID:      rec.MarketID,
		Outcome:       rec.Outcome.String(),
		ConfidenceBps: rec.ConfidenceBps,
		Method:        string(rec.Method),
		IsFallback:    rec.IsFallback,
		Tally:         rec.Tally,
		ResponseID:    rec.ResponseID,
		TxHash:        rec.TxHash,
		EvidenceKey:   rec.EvidenceKey,
	}
}

// Settle triggers a settlement attempt for the market.
// POST /api/markets/{id}/settle?consortium=true
func (h *SettlementHandler) Settle(w http.ResponseWriter, r *http.Request) {
	id, ok := marketIDParam(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid market id")
		return
	}

	rec, err := h.settler.Settle(r.Context(), id, queryBool(r, "consortium"))
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrAlreadySettled):
			writeError(w, http.StatusConflict, "market already settled")
		case errors.Is(err, domain.ErrLockHeld):
			writeError(w, http.StatusConflict, "settlement already in progress")
		default:
			h.logger.ErrorContext(r.Context(), "handler: settle failed",
				slog.Uint64("market_id", id),
				slog.String("error", err.Error()),
			)
			writeError(w, http.StatusInternalServerError, "settlement failed")
		}
		return
	}

	writeJSON(w, http.StatusOK, toResponse(rec))
}

// GetRecord returns the audit record for a market.
// GET /api/settlements/{id}
func (h *SettlementHandler) GetRecord(w http.ResponseWriter, r *http.Request) {
	id, ok := marketIDParam(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid market id")
		return
	}

	rec, err := h.records.GetByMarket(r.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "no settlement record for market")
			return
		}
		h.logger.ErrorContext(r.Context(), "handler: get settlement record failed",
			slog.Uint64("market_id", id),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to load settlement record")
		return
	}

	writeJSON(w, http.StatusOK, toResponse(rec))
}

// ListRecords returns the most recent settlement records.
// GET /api/settlements?limit=50
func (h *SettlementHandler) ListRecords(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 500 {
			limit = n
		}
	}

	recs, err := h.records.ListRecent(r.Context(), limit)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: list settlement records failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to list settlement records")
		return
	}

	out := make([]settlementResponse, 0, len(recs))
	for _, rec := range recs {
		out = append(out, toResponse(rec))
	}
	writeJSON(w, http.StatusOK, map[string]any{"settlements": out, "limit": limit})
}
