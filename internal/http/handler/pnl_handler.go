package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/your-org/shadow-trading-bot/internal/datastore"
)

// MetricsSource reads stored performance reports.
type MetricsSource interface {
	FetchLatestPerformanceMetrics(ctx context.Context, taskID string) (*datastore.PerformanceMetrics, error)
}

// PnlHandler はPnL関連のHTTPリクエストを処理します。
type PnlHandler struct {
	repo MetricsSource
}

// NewPnlHandler は新しいPnlHandlerを作成します。
func NewPnlHandler(repo MetricsSource) *PnlHandler {
	return &PnlHandler{repo: repo}
}

// RegisterRoutes はchiルーターにPnL関連のルートを登録します。
func (h *PnlHandler) RegisterRoutes(r chi.Router) {
	r.Get("/pnl/{id}/latest_metrics", h.GetLatestPnlMetrics)
}

// GetLatestPnlMetrics は最新のパフォーマンス指標を取得します。
func (h *PnlHandler) GetLatestPnlMetrics(w http.ResponseWriter, r *http.Request) {
	metrics, err := h.repo.FetchLatestPerformanceMetrics(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, metrics)
}
