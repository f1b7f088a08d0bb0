package handler

import (
	"net/http"

	"github.com/your-org/shadow-trading-bot/internal/report"
)

// PerformanceSource reports the aggregate state of the bot.
type PerformanceSource interface {
	Performance() report.Summary
}

type healthResponse struct {
	Status      string `json:"status"`
	Tasks       int    `json:"tasks"`
	ActiveTasks int    `json:"active_tasks"`
}

// HealthCheckHandler answers liveness checks with HTTP 200 and the task counts.
func HealthCheckHandler(src PerformanceSource) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s := src.Performance()
		writeJSON(w, http.StatusOK, healthResponse{Status: "ok", Tasks: s.TaskCount, ActiveTasks: s.ActiveTasks})
	}
}
