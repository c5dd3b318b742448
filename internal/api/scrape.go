package api

import (
	"errors"
	"io/fs"
	"log/slog"
	"net/http"
	"time"

	"partsync/internal/crawler"
	"partsync/internal/model"
)

// Scrape serves the scraping service endpoints consumed by the updater's fetcher.
type Scrape struct {
	scraper    crawler.CategoryScraper
	categories []string
	delay      time.Duration
	outputFile string
	logger     *slog.Logger
}

// NewScrape wires the scrape handlers. outputFile receives the result of a full crawl
// and backs GET /api/parts.
func NewScrape(s crawler.CategoryScraper, categories []string, delay time.Duration, outputFile string, logger *slog.Logger) *Scrape {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scrape{
		scraper:    s,
		categories: categories,
		delay:      delay,
		outputFile: outputFile,
		logger:     logger.With("component", "scrape-api"),
	}
}

// Routes returns the scrape mux.
func (s *Scrape) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/scrape/{category...}", s.scrapeCategory)
	mux.HandleFunc("GET /api/scrape-all", s.scrapeAll)
	mux.HandleFunc("GET /api/parts", s.parts)
	mux.HandleFunc("GET /health", s.health)
	return mux
}

func (s *Scrape) scrapeCategory(w http.ResponseWriter, r *http.Request) {
	category := r.PathValue("category")
	if category == "" {
		writeError(w, s.logger, http.StatusBadRequest, "category is required")
		return
	}

	records, err := s.scraper.ScrapeCategory(r.Context(), category)
	if err != nil {
		s.logger.Error("scrape failed", "category", category, "error", err)
		writeError(w, s.logger, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, s.logger, http.StatusOK, records)
}

type scrapeAllResponse struct {
	Success bool                  `json:"success"`
	Count   int                   `json:"count"`
	Errors  map[string]string     `json:"errors,omitempty"`
	Data    []model.ScrapedRecord `json:"data"`
}

func (s *Scrape) scrapeAll(w http.ResponseWriter, r *http.Request) {
	records, errs := crawler.CrawlAll(r.Context(), s.scraper, s.categories, s.delay, s.logger)
	if r.Context().Err() != nil {
		s.logger.Warn("crawl abandoned by client", "scraped", len(records))
		return
	}

	if err := crawler.WriteRecordsFile(s.outputFile, records); err != nil {
		s.logger.Error("save scraped parts", "file", s.outputFile, "error", err)
		writeError(w, s.logger, http.StatusInternalServerError, err.Error())
		return
	}
	s.logger.Info("saved scraped parts", "file", s.outputFile, "count", len(records))

	resp := scrapeAllResponse{Success: true, Count: len(records), Data: records}
	if len(errs) > 0 {
		resp.Errors = make(map[string]string, len(errs))
		for category, err := range errs {
			resp.Errors[category] = err.Error()
		}
	}
	writeJSON(w, s.logger, http.StatusOK, resp)
}

func (s *Scrape) parts(w http.ResponseWriter, _ *http.Request) {
	records, err := crawler.ReadRecordsFile(s.outputFile)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			s.logger.Warn("read scraped parts", "file", s.outputFile, "error", err)
		}
		writeError(w, s.logger, http.StatusNotFound, "Parts data not found")
		return
	}
	writeJSON(w, s.logger, http.StatusOK, records)
}

func (s *Scrape) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, s.logger, http.StatusOK, map[string]string{
		"status":    "OK",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
