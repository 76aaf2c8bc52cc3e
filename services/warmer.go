// services/warmer.go
package services

import (
	"context"
	"time"

	"github.com/cheapflightsfrom/backend/logging"
	"github.com/cheapflightsfrom/backend/models"
)

// Warmer pre-populates hub summaries so the first visitor after a refresh does not pay
// for the queries.
type Warmer struct {
	insights *InsightService
}

func NewWarmer(insights *InsightService) *Warmer {
	return &Warmer{insights: insights}
}

// Warm builds the hub summary for each slug in turn. Slugs run sequentially because
// the store allows one connection. A failed slug is reported and the rest continue;
// a canceled context stops the run.
func (w *Warmer) Warm(ctx context.Context, slugs []string) []models.WarmResult {
	log := logging.With("warmer")
	results := make([]models.WarmResult, 0, len(slugs))
	for _, slug := range slugs {
		if ctx.Err() != nil {
			results = append(results, models.WarmResult{Slug: slug, Error: ctx.Err().Error()})
			continue
		}
		start := time.Now()
		_, err := w.insights.HubSummary(ctx, slug)
		res := models.WarmResult{Slug: slug, OK: err == nil, DurationMs: time.Since(start).Milliseconds()}
		if err != nil {
			res.Error = err.Error()
			log.Warn().Err(err).Str("slug", slug).Msg("cache warm failed")
		} else {
			log.Info().Str("slug", slug).Int64("duration_ms", res.DurationMs).Msg("cache warmed")
		}
		results = append(results, res)
	}
	return results
}
