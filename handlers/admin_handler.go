// handlers/admin_handler.go
package handlers

import (
	"crypto/subtle"
	"errors"
	"io"
	"net/http"
	"slices"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"github.com/cheapflightsfrom/backend/logging"
	"github.com/cheapflightsfrom/backend/models"
	"github.com/cheapflightsfrom/backend/services"
)

// Helper to respond with JSON
func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		logging.Error().Err(err).Msg("failed to marshal JSON response")
		http.Error(w, `{"error":"Failed to marshal JSON response"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}

// Helper to respond with an error
func respondWithError(w http.ResponseWriter, code int, message string) {
	if code >= http.StatusInternalServerError {
		logging.Error().Int("status", code).Msg(message)
	} else {
		logging.Debug().Int("status", code).Msg(message)
	}
	respondWithJSON(w, code, map[string]string{"error": message})
}

// requireCronSecret rejects requests without "Authorization: Bearer <secret>". An
// empty secret leaves the admin routes open, which is only meant for local use.
func requireCronSecret(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if secret == "" {
			return next
		}
		want := []byte("Bearer " + secret)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got := []byte(r.Header.Get("Authorization"))
			if subtle.ConstantTimeCompare(got, want) != 1 {
				respondWithError(w, http.StatusUnauthorized, "Unauthorized")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

type warmRequest struct {
	Metros []string `json:"metros"`
}

type warmResponse struct {
	Warmed  int                 `json:"warmed"`
	Failed  int                 `json:"failed"`
	Results []models.WarmResult `json:"results"`
}

// WarmCacheHandler pre-builds hub summaries.
// Expects POST to /api/admin/warm-cache with an optional body {"metros": ["atlanta"]};
// without one the configured metros are warmed.
func (h *Handler) WarmCacheHandler(w http.ResponseWriter, r *http.Request) {
	var req warmRequest
	if r.Body != nil {
		defer r.Body.Close()
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			respondWithError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
			return
		}
	}
	slugs := req.Metros
	if len(slugs) == 0 {
		slugs = h.warmSlugs
	}

	results := h.warmer.Warm(r.Context(), slugs)
	resp := warmResponse{Results: results}
	for _, res := range results {
		if res.OK {
			resp.Warmed++
		} else {
			resp.Failed++
		}
	}
	h.log.Info().Int("warmed", resp.Warmed).Int("failed", resp.Failed).Msg("cache warm finished")
	respondWithJSON(w, http.StatusOK, resp)
}

// InvalidateHandler force-expires every cache entry with the given tag.
// Expects POST to /api/admin/invalidate/{tag}.
func (h *Handler) InvalidateHandler(w http.ResponseWriter, r *http.Request) {
	tag := strings.ToLower(chi.URLParam(r, "tag"))
	if !slices.Contains(services.Tags, tag) {
		respondWithError(w, http.StatusBadRequest, "Unknown tag '"+tag+"'. Use one of: "+strings.Join(services.Tags, ", "))
		return
	}

	n, err := h.insights.Cache().Invalidate(r.Context(), tag)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to invalidate "+tag+": "+err.Error())
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]interface{}{"tag": tag, "removed": n})
}
