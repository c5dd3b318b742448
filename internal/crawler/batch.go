package crawler

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	"partsync/internal/model"
)

// DefaultCategories are the source-site sections crawled by CrawlAll.
var DefaultCategories = []string{
	"motion/motors",
	"motion/servos",
	"motion/wheels",
	"structure/channels",
	"structure/brackets",
	"motion/bearings",
	"motion/shafts",
	"hardware/screws",
	"hardware/nuts",
	"electronics/sensors",
}

// CrawlAll scrapes every category in order, waiting delay between categories.
// A failing category is logged and reported in errs; the crawl continues.
func CrawlAll(ctx context.Context, s CategoryScraper, categories []string, delay time.Duration, logger *slog.Logger) (records []model.ScrapedRecord, errs map[string]error) {
	if logger == nil {
		logger = slog.Default()
	}

	limit := rate.Inf
	if delay > 0 {
		limit = rate.Every(delay)
	}
	limiter := rate.NewLimiter(limit, 1)

	records = make([]model.ScrapedRecord, 0)
	errs = make(map[string]error)
	for _, category := range categories {
		if err := limiter.Wait(ctx); err != nil {
			errs[category] = err
			return records, errs
		}

		recs, err := s.ScrapeCategory(ctx, category)
		if err != nil {
			logger.Error("category scrape failed", "category", category, "error", err)
			errs[category] = err
			continue
		}
		records = append(records, recs...)
	}
	return records, errs
}
