package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/verdictlabs/oraclebot/internal/domain"
)

// Overrider applies an admin settlement override.
type Overrider interface {
	Override(ctx context.Context, marketID uint64, outcome domain.Outcome, source string) (domain.SettlementRecord, error)
}

// AdminHandler serves the admin override endpoint.
type AdminHandler struct {
	admin  Overrider
	logger *slog.Logger
}

// NewAdminHandler creates an AdminHandler.
func NewAdminHandler(admin Overrider, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{admin: admin, logger: logger}
}

type overrideRequest struct {
	Outcome string `json:"outcome"` // "yes", "no", or "inconclusive"
	Source  string `json:"source"`
}

// Override settles the market with an operator-chosen outcome.
// POST /api/markets/{id}/override
func (h *AdminHandler) Override(w http.ResponseWriter, r *http.Request) {
	id, ok := marketIDParam(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid market id")
		return
	}

	var req overrideRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	var outcome domain.Outcome
	switch strings.ToLower(req.Outcome) {
	case "yes":
		outcome = domain.OutcomeYes
	case "no":
		outcome = domain.OutcomeNo
	case "inconclusive":
		outcome = domain.OutcomeInconclusive
	default:
		writeError(w, http.StatusBadRequest, "outcome must be yes, no, or inconclusive")
		return
	}
	if req.Source == "" {
		writeError(w, http.StatusBadRequest, "source is required")
		return
	}

	rec, err := h.admin.Override(r.Context(), id, outcome, req.Source)
	if err != nil {
		if errors.Is(err, domain.ErrAlreadySettled) {
			writeError(w, http.StatusConflict, "market already settled")
			return
		}
		h.logger.ErrorContext(r.Context(), "handler: admin override failed",
			slog.Uint64("market_id", id),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "override failed")
		return
	}

	writeJSON(w, http.StatusOK, toResponse(rec))
}
