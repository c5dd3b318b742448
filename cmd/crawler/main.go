package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"partsync/internal/api"
	"partsync/internal/config"
	"partsync/internal/crawler"
	"partsync/internal/logging"
)

// go run ./cmd/crawler -mode=serve
// go run ./cmd/crawler -mode=category -cat="motion/motors"
// go run ./cmd/crawler -mode=all
func main() {
	mode := flag.String("mode", "serve", "execution mode: 'serve', 'category' or 'all'")
	cat := flag.String("cat", "motion/motors", "category path for -mode=category")
	cats := flag.String("cats", "", "comma separated category paths for -mode=all (default: built-in list)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		logging.New("error").Error("load config", "error", err)
		os.Exit(1)
	}
	logger := logging.New(cfg.Logging.Level)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	scraper, err := crawler.NewSiteScraper(cfg.Scraper, nil, logger.With("component", "scraper"))
	if err != nil {
		logger.Error("build scraper", "error", err)
		os.Exit(1)
	}

	categories := crawler.DefaultCategories
	if *cats != "" {
		categories = splitList(*cats)
	}

	switch *mode {
	case "serve":
		err = serve(ctx, cfg.Scraper, scraper, categories, logger)
	case "category":
		err = scrapeOne(ctx, cfg.Scraper, scraper, *cat, logger)
	case "all":
		err = scrapeAll(ctx, cfg.Scraper, scraper, categories, logger)
	default:
		err = fmt.Errorf("unknown mode %q", *mode)
	}
	if err != nil {
		logger.Error("crawler failed", "mode", *mode, "error", err)
		os.Exit(1)
	}
	logger.Info("crawler finished", "mode", *mode)
}

func serve(ctx context.Context, cfg config.ScraperConfig, s crawler.CategoryScraper, categories []string, logger *slog.Logger) error {
	h := api.NewScrape(s, categories, cfg.CategoryDelay, cfg.OutputFile, logger)
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           h.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("scrape api listening", "addr", cfg.Addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func scrapeOne(ctx context.Context, cfg config.ScraperConfig, s crawler.CategoryScraper, category string, logger *slog.Logger) error {
	records, err := s.ScrapeCategory(ctx, category)
	if err != nil {
		return err
	}
	if err := crawler.WriteRecordsFile(cfg.OutputFile, records); err != nil {
		return err
	}
	logger.Info("saved parts", "file", cfg.OutputFile, "count", len(records))
	return nil
}

func scrapeAll(ctx context.Context, cfg config.ScraperConfig, s crawler.CategoryScraper, categories []string, logger *slog.Logger) error {
	records, errs := crawler.CrawlAll(ctx, s, categories, cfg.CategoryDelay, logger)
	if err := crawler.WriteRecordsFile(cfg.OutputFile, records); err != nil {
		return err
	}
	logger.Info("saved parts", "file", cfg.OutputFile, "count", len(records), "failed_categories", len(errs))
	return nil
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
