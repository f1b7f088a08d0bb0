package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/your-org/shadow-trading-bot/internal/assistant"
	"github.com/your-org/shadow-trading-bot/pkg/logger"
)

// RouterConfig lists what the API serves. Nil parts are not mounted.
type RouterConfig struct {
	Engine         Engine
	StatePath      string
	Assistant      *assistant.Responder
	Metrics        http.Handler
	PnlSource      MetricsSource
	StreamInterval time.Duration
}

// NewRouter assembles the HTTP API.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/health", HealthCheckHandler(cfg.Engine))
	if cfg.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", cfg.Metrics)
	}

	r.Route("/api", func(r chi.Router) {
		NewTaskHandler(cfg.Engine, cfg.StatePath).RegisterRoutes(r)
		NewStreamHandler(cfg.Engine, cfg.StreamInterval).RegisterRoutes(r)
		if cfg.Assistant != nil {
			NewQueryHandler(cfg.Assistant).RegisterRoutes(r)
		}
		if cfg.PnlSource != nil {
			NewPnlHandler(cfg.PnlSource).RegisterRoutes(r)
		}
	})
	return r
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		logger.Debugf("%s %s -> %d (%s)", r.Method, r.URL.Path, ww.Status(), time.Since(start))
	})
}
