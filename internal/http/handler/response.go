package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/your-org/shadow-trading-bot/internal/datastore"
	"github.com/your-org/shadow-trading-bot/internal/engine"
	"github.com/your-org/shadow-trading-bot/internal/indicator"
	"github.com/your-org/shadow-trading-bot/internal/portfolio"
	"github.com/your-org/shadow-trading-bot/internal/report"
	"github.com/your-org/shadow-trading-bot/pkg/logger"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Warnf("Failed to encode response: %v", err)
	}
}

// writeError maps domain errors onto HTTP status codes.
func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, statusFor(err), errorResponse{Error: err.Error()})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, engine.ErrInvalidParams):
		return http.StatusBadRequest
	case errors.Is(err, engine.ErrTaskNotFound),
		errors.Is(err, indicator.ErrNoData),
		errors.Is(err, report.ErrNoTrades),
		errors.Is(err, datastore.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, engine.ErrAlreadyRunning),
		errors.Is(err, engine.ErrNotRunning),
		errors.Is(err, engine.ErrTaskFinished),
		errors.Is(err, portfolio.ErrInsufficientPosition):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
