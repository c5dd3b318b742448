// Package updater runs catalog sync passes: fetch each category, merge it into the
// stored catalog and persist the result.
package updater

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"partsync/internal/catalog"
	"partsync/internal/crawler"
	"partsync/internal/model"
	"partsync/internal/observability"
)

// DefaultCategories are the category paths synced on every run.
var DefaultCategories = []string{
	"motion/motors-servos",
	"motion/wheels-hubs",
	"structure/channels-brackets",
	"motion/bearings-shafts",
	"hardware/fasteners",
}

const (
	DefaultUpdateInterval  = 24 * time.Hour
	DefaultCategoryTimeout = 2 * time.Minute
)

// Repository is the persistence the updater needs.
type Repository interface {
	LoadCatalog(ctx context.Context) ([]model.Part, error)
	SaveCatalog(ctx context.Context, parts []model.Part) error
	LoadLastUpdate(ctx context.Context) (time.Time, bool, error)
	SaveLastUpdate(ctx context.Context, t time.Time) error
}

// Deps configures an Updater. Zero values fall back to the package defaults.
type Deps struct {
	Fetcher         crawler.Fetcher
	Repository      Repository
	Categories      []string
	UpdateInterval  time.Duration
	CategoryTimeout time.Duration
	// StampFailedRuns advances the last update time even when every category failed.
	StampFailedRuns bool
	Now             func() time.Time
	Logger          *slog.Logger
	Metrics         *observability.Metrics
}

// Updater is the catalog sync orchestrator. At most one run executes at a time;
// callers arriving during a run share its result.
type Updater struct {
	fetcher         crawler.Fetcher
	repo            Repository
	categories      []string
	interval        time.Duration
	categoryTimeout time.Duration
	stampFailedRuns bool
	now             func() time.Time
	logger          *slog.Logger
	metrics         *observability.Metrics

	group   singleflight.Group
	running atomic.Bool
}

// New builds an Updater. No I/O happens until a run is requested.
func New(d Deps) *Updater {
	u := &Updater{
		fetcher:         d.Fetcher,
		repo:            d.Repository,
		categories:      d.Categories,
		interval:        d.UpdateInterval,
		categoryTimeout: d.CategoryTimeout,
		stampFailedRuns: d.StampFailedRuns,
		now:             d.Now,
		logger:          d.Logger,
		metrics:         d.Metrics,
	}
	if u.categories == nil {
		u.categories = DefaultCategories
	}
	if u.interval <= 0 {
		u.interval = DefaultUpdateInterval
	}
	if u.categoryTimeout <= 0 {
		u.categoryTimeout = DefaultCategoryTimeout
	}
	if u.now == nil {
		u.now = time.Now
	}
	if u.logger == nil {
		u.logger = slog.Default()
	}
	u.logger = u.logger.With("component", "updater")
	return u
}

// Interval returns the due-ness interval.
func (u *Updater) Interval() time.Duration {
	return u.interval
}

// IsRunning reports whether a run is in flight.
func (u *Updater) IsRunning() bool {
	return u.running.Load()
}

// ShouldUpdate reports whether a sync is due: nothing was ever synced, or more than the
// update interval has passed since the last one.
func (u *Updater) ShouldUpdate(ctx context.Context) (bool, error) {
	last, ok, err := u.repo.LoadLastUpdate(ctx)
	if err != nil {
		return false, err
	}
	if !ok {
		return true, nil
	}
	return u.now().Sub(last) > u.interval, nil
}

// RunUpdate syncs every category in order. A failing category is recorded in the
// result and the run moves on; a persistence failure aborts the run.
func (u *Updater) RunUpdate(ctx context.Context) (model.UpdateResult, error) {
	v, err, shared := u.group.Do("run", func() (any, error) {
		u.running.Store(true)
		defer u.running.Store(false)
		return u.run(ctx)
	})
	if shared {
		u.logger.Debug("joined in-flight update run")
	}
	res, _ := v.(model.UpdateResult)
	return res, err
}

// ForceUpdate runs a sync regardless of due-ness.
func (u *Updater) ForceUpdate(ctx context.Context) (model.UpdateResult, error) {
	u.logger.Info("forced update requested")
	return u.RunUpdate(ctx)
}

func (u *Updater) run(ctx context.Context) (model.UpdateResult, error) {
	start := u.now()
	res := model.UpdateResult{Errors: []string{}}
	u.logger.Info("update run started", "categories", len(u.categories))

	var failed int
	for _, category := range u.categories {
		fetched, err := u.syncCategory(ctx, category, &res)
		if err != nil {
			u.metrics.ObserveRun("aborted", time.Since(start), res.Added, res.Updated)
			return res, err
		}
		if !fetched {
			failed++
		}
	}

	if len(u.categories) == 0 || failed < len(u.categories) || u.stampFailedRuns {
		if err := u.repo.SaveLastUpdate(ctx, u.now()); err != nil {
			u.metrics.ObserveRun("aborted", time.Since(start), res.Added, res.Updated)
			return res, err
		}
	} else {
		u.logger.Warn("every category failed, last update time left unchanged")
	}

	outcome := "success"
	if res.HasErrors() {
		outcome = "partial"
	}
	u.metrics.ObserveRun(outcome, time.Since(start), res.Added, res.Updated)
	u.logger.Info("update run finished",
		"added", res.Added,
		"updated", res.Updated,
		"errors", len(res.Errors),
		"duration", time.Since(start),
	)
	return res, nil
}

// syncCategory reports whether the category was fetched. Only persistence failures
// are returned as errors.
func (u *Updater) syncCategory(ctx context.Context, category string, res *model.UpdateResult) (bool, error) {
	recs, err := u.fetch(ctx, category)
	if err != nil {
		u.logger.Warn("category fetch failed", "category", category, "error", err)
		u.metrics.IncCategoryError(crawler.ErrorKind(err))
		res.Errors = append(res.Errors, fmt.Sprintf("Error scraping %s: %v", category, err))
		return false, nil
	}

	existing, err := u.repo.LoadCatalog(ctx)
	if err != nil {
		return false, fmt.Errorf("load catalog for %s: %w", category, err)
	}

	merged := catalog.Merge(existing, recs)
	if err := u.repo.SaveCatalog(ctx, merged.Catalog); err != nil {
		return false, fmt.Errorf("save catalog for %s: %w", category, err)
	}

	res.Added += merged.Added
	res.Updated += merged.Updated
	u.metrics.SetCatalogSize(len(merged.Catalog))
	u.logger.Info("category synced",
		"category", category,
		"fetched", len(recs),
		"added", merged.Added,
		"updated", merged.Updated,
		"skipped", merged.Skipped,
	)
	return true, nil
}

func (u *Updater) fetch(ctx context.Context, category string) ([]model.ScrapedRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, u.categoryTimeout)
	defer cancel()

	start := time.Now()
	recs, err := u.fetcher.FetchCategory(ctx, category)
	u.metrics.ObserveFetch(time.Since(start))
	return recs, err
}

// Status reports the persisted sync state.
func (u *Updater) Status(ctx context.Context) (model.UpdateStatus, error) {
	parts, err := u.repo.LoadCatalog(ctx)
	if err != nil {
		return model.UpdateStatus{}, err
	}
	last, ok, err := u.repo.LoadLastUpdate(ctx)
	if err != nil {
		return model.UpdateStatus{}, err
	}

	st := model.UpdateStatus{TotalParts: len(parts), NextUpdateDue: u.now()}
	if ok {
		st.LastUpdate = &last
		st.NextUpdateDue = last.Add(u.interval)
	}
	return st, nil
}

// LastUpdate returns the last sync time, if any.
func (u *Updater) LastUpdate(ctx context.Context) (time.Time, bool, error) {
	return u.repo.LoadLastUpdate(ctx)
}
