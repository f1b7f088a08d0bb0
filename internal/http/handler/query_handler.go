package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/your-org/shadow-trading-bot/internal/assistant"
)

// QueryHandler answers free-text questions.
type QueryHandler struct {
	responder *assistant.Responder
}

// NewQueryHandler creates a QueryHandler.
func NewQueryHandler(responder *assistant.Responder) *QueryHandler {
	return &QueryHandler{responder: responder}
}

// RegisterRoutes registers the query route on r.
func (h *QueryHandler) RegisterRoutes(r chi.Router) {
	r.Post("/query", h.Query)
}

type queryRequest struct {
	Query string `json:"query"`
}

// Query classifies and answers the question in the body.
func (h *QueryHandler) Query(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	if req.Query == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "query is required"})
		return
	}
	ans, err := h.responder.Answer(r.Context(), req.Query)
	if err != nil {
		writeJSON(w, http.StatusBadGateway, errorResponse{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, ans)
}
