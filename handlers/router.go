// handlers/router.go
package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/cheapflightsfrom/backend/database"
	"github.com/cheapflightsfrom/backend/logging"
	"github.com/cheapflightsfrom/backend/services"
)

// Pinger checks the backing store.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler carries the dependencies of every route.
type Handler struct {
	insights   *services.InsightService
	warmer     *services.Warmer
	db         Pinger
	cronSecret string
	warmSlugs  []string
	log        zerolog.Logger
}

func NewHandler(insights *services.InsightService, warmer *services.Warmer, db Pinger, cronSecret string, warmSlugs []string) *Handler {
	return &Handler{
		insights:   insights,
		warmer:     warmer,
		db:         db,
		cronSecret: cronSecret,
		warmSlugs:  warmSlugs,
		log:        logging.With("http"),
	}
}

// NewRouter wires every route onto a chi router.
func NewRouter(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(h.requestLogger)

	r.Get("/api/health", h.HealthHandler)
	r.Get("/api/home", h.HomeHandler)
	r.Get("/api/metros", h.MetrosHandler)
	r.Get("/api/hubs/{slug}", h.HubHandler)
	r.Get("/api/hubs/{slug}/routes/{dest}", h.RouteHandler)
	r.Get("/api/sitemap-routes", h.SitemapRoutesHandler)

	r.Route("/api/admin", func(r chi.Router) {
		r.Use(requireCronSecret(h.cronSecret))
		r.Post("/warm-cache", h.WarmCacheHandler)
		r.Post("/invalidate/{tag}", h.InvalidateHandler)
	})

	r.Handle("/metrics", promhttp.Handler())
	return r
}

// HealthHandler pings the store through the connection manager. The pool state is
// reported when the pinger exposes one.
func (h *Handler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	body := map[string]string{"status": "ok"}
	code := http.StatusOK
	if err := h.db.Ping(r.Context()); err != nil {
		h.log.Warn().Err(err).Msg("health check failed: database ping error")
		body = map[string]string{"status": "error", "message": "database connection error"}
		code = http.StatusServiceUnavailable
	}
	if sr, ok := h.db.(interface{ State() database.State }); ok {
		body["pool"] = sr.State().String()
	}
	respondWithJSON(w, code, body)
}

func (h *Handler) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		h.log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("duration", time.Since(start)).
			Str("request_id", chimiddleware.GetReqID(r.Context())).
			Msg("request")
	})
}
