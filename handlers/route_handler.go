// handlers/route_handler.go
package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/cheapflightsfrom/backend/services"
)

// respondWithServiceError maps lookup misses to 404 and everything else to 500.
func respondWithServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrMetroNotFound), errors.Is(err, services.ErrRouteNotFound):
		respondWithError(w, http.StatusNotFound, err.Error())
	default:
		respondWithError(w, http.StatusInternalServerError, err.Error())
	}
}

// HubHandler serves GET /api/hubs/{slug}.
func (h *Handler) HubHandler(w http.ResponseWriter, r *http.Request) {
	summary, err := h.insights.HubSummary(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, summary)
}

// RouteHandler serves GET /api/hubs/{slug}/routes/{dest}.
func (h *Handler) RouteHandler(w http.ResponseWriter, r *http.Request) {
	summary, err := h.insights.RouteSummary(r.Context(), chi.URLParam(r, "slug"), chi.URLParam(r, "dest"))
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, summary)
}

// SitemapRoutesHandler serves GET /api/sitemap-routes.
func (h *Handler) SitemapRoutesHandler(w http.ResponseWriter, r *http.Request) {
	routes, err := h.insights.SitemapRoutes(r.Context())
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, routes)
}

// HomeHandler serves GET /api/home.
func (h *Handler) HomeHandler(w http.ResponseWriter, r *http.Request) {
	summary, err := h.insights.HomeSummary(r.Context())
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, summary)
}

// MetrosHandler serves GET /api/metros.
func (h *Handler) MetrosHandler(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, h.insights.Metros().All())
}
