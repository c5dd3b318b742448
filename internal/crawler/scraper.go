package crawler

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gocolly/colly/v2"
	lru "github.com/hashicorp/golang-lru/v2"

	"partsync/internal/config"
	"partsync/internal/model"
)

// CategoryScraper turns one category path of the source site into scraped records.
type CategoryScraper interface {
	ScrapeCategory(ctx context.Context, categoryPath string) ([]model.ScrapedRecord, error)
}

// SiteScraper walks category listing pages with colly and enriches the first
// MaxDetails products of each category from their detail pages.
type SiteScraper struct {
	baseURL    string
	userAgent  string
	maxPages   int
	maxDetails int
	client     *http.Client
	cache      *lru.Cache[string, model.ScrapedRecord]
	logger     *slog.Logger
}

var _ CategoryScraper = (*SiteScraper)(nil)

// NewSiteScraper builds a scraper; a nil client gets cfg.Timeout.
func NewSiteScraper(cfg config.ScraperConfig, client *http.Client, logger *slog.Logger) (*SiteScraper, error) {
	if client == nil {
		client = defaultHTTPClient
		if cfg.Timeout > 0 {
			client = &http.Client{Timeout: cfg.Timeout}
		}
	}
	if logger == nil {
		logger = slog.Default()
	}

	size := cfg.CacheSize
	if size <= 0 {
		size = 128
	}
	cache, err := lru.New[string, model.ScrapedRecord](size)
	if err != nil {
		return nil, fmt.Errorf("create detail cache: %w", err)
	}

	maxPages := cfg.MaxPages
	if maxPages <= 0 {
		maxPages = 1
	}

	return &SiteScraper{
		baseURL:    strings.TrimSuffix(cfg.BaseURL, "/"),
		userAgent:  cfg.UserAgent,
		maxPages:   maxPages,
		maxDetails: cfg.MaxDetails,
		client:     client,
		cache:      cache,
		logger:     logger,
	}, nil
}

// ScrapeCategory returns every product found on the category's listing pages.
// A failing detail page falls back to the listing data.
func (s *SiteScraper) ScrapeCategory(ctx context.Context, categoryPath string) ([]model.ScrapedRecord, error) {
	s.logger.Info("scraping category", "category", categoryPath)

	records, err := s.scrapeListings(ctx, categoryPath)
	if err != nil {
		return nil, err
	}
	s.logger.Info("found products", "category", categoryPath, "count", len(records))

	for i := range records {
		if i >= s.maxDetails {
			records[i] = withDefaults(records[i])
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		records[i] = s.details(ctx, records[i])
	}
	return records, nil
}

func (s *SiteScraper) scrapeListings(ctx context.Context, categoryPath string) ([]model.ScrapedRecord, error) {
	c := colly.NewCollector(colly.UserAgent(s.userAgent))
	c.WithTransport(s.client.Transport)
	if s.client.Timeout > 0 {
		c.SetRequestTimeout(s.client.Timeout)
	}

	var (
		records = make([]model.ScrapedRecord, 0)
		seen    = map[string]struct{}{}
		visited = 1
	)

	c.OnHTML(productSelector, func(e *colly.HTMLElement) {
		l, ok := ParseListing(e.DOM)
		if !ok {
			return
		}
		if _, dup := seen[l.SKU]; dup {
			return
		}
		seen[l.SKU] = struct{}{}

		if l.ImageURL != "" {
			l.ImageURL = e.Request.AbsoluteURL(l.ImageURL)
		}
		if l.ProductURL != "" {
			l.ProductURL = e.Request.AbsoluteURL(l.ProductURL)
		}
		records = append(records, l.record(categoryLabel(e.Request.URL)))
	})

	c.OnHTML(nextPageSelector, func(e *colly.HTMLElement) {
		if visited >= s.maxPages || ctx.Err() != nil {
			return
		}
		next := e.Request.AbsoluteURL(e.Attr("href"))
		if next == "" {
			return
		}
		visited++
		if err := c.Visit(next); err != nil {
			s.logger.Debug("next page visit failed", "url", next, "error", err)
		}
	})

	if err := c.Visit(s.baseURL + "/" + strings.Trim(categoryPath, "/")); err != nil {
		return nil, fmt.Errorf("scrape category %s: %w", categoryPath, err)
	}
	return records, nil
}

func (s *SiteScraper) details(ctx context.Context, basic model.ScrapedRecord) model.ScrapedRecord {
	if basic.ProductURL == "" {
		return withDefaults(basic)
	}
	if cached, ok := s.cache.Get(basic.ProductURL); ok {
		return cached
	}

	doc, err := fetchDocument(ctx, s.client, s.userAgent, basic.ProductURL)
	if err != nil {
		s.logger.Warn("product details unavailable", "sku", basic.SKU, "error", err)
		return withDefaults(basic)
	}

	rec := ParseProductDetails(doc, basic)
	s.cache.Add(basic.ProductURL, rec)
	return rec
}
