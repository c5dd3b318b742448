// Package scheduler drives periodic catalog sync runs and keeps the notification history.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"partsync/internal/model"
)

const (
	DefaultInterval          = 24 * time.Hour
	DefaultNotificationLimit = 10

	NotificationType = "parts-update"
)

// Trigger names what started a run.
type Trigger string

const (
	TriggerScheduled Trigger = "scheduled"
	TriggerInitial   Trigger = "initial"
	TriggerManual    Trigger = "manual"
)

// Event is published to listeners after every run.
type Event struct {
	Trigger Trigger
	Result  model.UpdateResult
	Err     error
	At      time.Time
}

// Listener receives run events. Listeners are called asynchronously and must not block the caller.
type Listener func(Event)

// Runner is the update orchestrator as seen by the scheduler.
type Runner interface {
	ShouldUpdate(ctx context.Context) (bool, error)
	RunUpdate(ctx context.Context) (model.UpdateResult, error)
	ForceUpdate(ctx context.Context) (model.UpdateResult, error)
	LastUpdate(ctx context.Context) (time.Time, bool, error)
}

// NotificationStore keeps the bounded notification list.
type NotificationStore interface {
	LoadNotifications(ctx context.Context) ([]model.Notification, error)
	PrependNotification(ctx context.Context, n model.Notification, limit int) error
	ClearNotifications(ctx context.Context) error
}

// Options configures a Scheduler. Zero values fall back to the defaults.
type Options struct {
	Interval          time.Duration
	NotificationLimit int
	Now               func() time.Time
	Logger            *slog.Logger
}

// Scheduler runs due-checks on a fixed interval. Creating one performs no I/O; the
// host decides when to call Start.
type Scheduler struct {
	runner        Runner
	notifications NotificationStore
	limit         int
	now           func() time.Time
	logger        *slog.Logger

	mu        sync.Mutex
	interval  time.Duration
	ctx       context.Context
	stop      chan struct{}
	listeners []Listener
}

// New builds a stopped scheduler.
func New(runner Runner, notifications NotificationStore, opts Options) *Scheduler {
	s := &Scheduler{
		runner:        runner,
		notifications: notifications,
		limit:         opts.NotificationLimit,
		now:           opts.Now,
		logger:        opts.Logger,
		interval:      opts.Interval,
	}
	if s.interval <= 0 {
		s.interval = DefaultInterval
	}
	if s.limit <= 0 {
		s.limit = DefaultNotificationLimit
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	s.logger = s.logger.With("component", "scheduler")
	return s
}

// Start arms the timer and performs one due-check right away, so a long idle
// process catches up without waiting a full interval. ctx bounds the timer's lifetime.
// Starting a running scheduler logs a warning and does nothing.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stop != nil {
		s.logger.Warn("scheduler already running")
		return
	}
	s.ctx = ctx
	s.start()
}

// start must be called with mu held.
func (s *Scheduler) start() {
	stop := make(chan struct{})
	s.stop = stop
	interval := s.interval
	ctx := s.ctx

	s.logger.Info("scheduler started", "interval", interval)
	go s.loop(ctx, stop, interval)
}

func (s *Scheduler) loop(ctx context.Context, stop chan struct{}, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.tick(ctx, TriggerInitial)
	for {
		select {
		case <-ticker.C:
			s.tick(ctx, TriggerScheduled)
		case <-stop:
			return
		case <-ctx.Done():
			s.release(stop)
			return
		}
	}
}

// release marks the scheduler stopped when its context ends, unless a restart
// already replaced stop.
func (s *Scheduler) release(stop chan struct{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stop == stop {
		s.stop = nil
		s.logger.Info("scheduler stopped", "reason", "context done")
	}
}

// Stop disarms the timer. An in-flight run is not cancelled. Safe to call repeatedly.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked()
}

func (s *Scheduler) stopLocked() {
	if s.stop == nil {
		return
	}
	close(s.stop)
	s.stop = nil
	s.logger.Info("scheduler stopped")
}

// UpdateInterval changes the timer interval. A running scheduler is restarted, which
// triggers an immediate due-check under the new interval.
func (s *Scheduler) UpdateInterval(d time.Duration) error {
	if d <= 0 {
		return fmt.Errorf("interval must be positive, got %s", d)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.interval = d
	if s.stop == nil {
		return nil
	}
	s.stopLocked()
	s.start()
	return nil
}

// IsRunning reports whether the timer is armed.
func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stop != nil
}

// Interval returns the current timer interval.
func (s *Scheduler) Interval() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.interval
}

// ScheduleInfo reports the timer state. NextUpdate is the last sync time plus the
// interval, nil when nothing was synced yet.
func (s *Scheduler) ScheduleInfo(ctx context.Context) (model.ScheduleInfo, error) {
	info := model.ScheduleInfo{
		IsRunning: s.IsRunning(),
		Interval:  s.Interval(),
	}

	last, ok, err := s.runner.LastUpdate(ctx)
	if err != nil {
		return info, err
	}
	if ok {
		next := last.Add(info.Interval)
		info.NextUpdate = &next
	}
	return info, nil
}

// Subscribe registers l for every subsequent run event.
func (s *Scheduler) Subscribe(l Listener) {
	if l == nil {
		return
	}
	s.mu.Lock()
	s.listeners = append(s.listeners, l)
	s.mu.Unlock()
}

// ForceUpdate runs a sync now, regardless of due-ness. The result is published to
// listeners but not recorded as a notification.
func (s *Scheduler) ForceUpdate(ctx context.Context) (model.UpdateResult, error) {
	res, err := s.runner.ForceUpdate(ctx)
	s.publish(Event{Trigger: TriggerManual, Result: res, Err: err, At: s.now()})
	return res, err
}

// Notifications returns the recorded notifications, most recent first.
func (s *Scheduler) Notifications(ctx context.Context) ([]model.Notification, error) {
	return s.notifications.LoadNotifications(ctx)
}

// ClearNotifications empties the notification list.
func (s *Scheduler) ClearNotifications(ctx context.Context) error {
	return s.notifications.ClearNotifications(ctx)
}

// tick never lets a failure escape; the timer keeps running.
func (s *Scheduler) tick(ctx context.Context, trigger Trigger) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("scheduled update panicked", "trigger", trigger, "panic", r)
		}
	}()

	if err := s.checkAndRun(ctx, trigger); err != nil && !errors.Is(err, context.Canceled) {
		s.logger.Error("scheduled update failed", "trigger", trigger, "error", err)
	}
}

func (s *Scheduler) checkAndRun(ctx context.Context, trigger Trigger) error {
	due, err := s.runner.ShouldUpdate(ctx)
	if err != nil {
		return fmt.Errorf("check due: %w", err)
	}
	if !due {
		s.logger.Debug("update not due", "trigger", trigger)
		return nil
	}

	s.logger.Info("running scheduled update", "trigger", trigger)
	res, err := s.runner.RunUpdate(ctx)
	s.publish(Event{Trigger: trigger, Result: res, Err: err, At: s.now()})
	if err != nil {
		return fmt.Errorf("run update: %w", err)
	}

	if trigger == TriggerInitial && res.Added == 0 && res.Updated == 0 {
		return nil
	}
	return s.record(ctx, res)
}

func (s *Scheduler) record(ctx context.Context, res model.UpdateResult) error {
	n := model.Notification{
		Timestamp: s.now(),
		Type:      NotificationType,
		Message:   NotificationMessage(res),
		HasErrors: res.HasErrors(),
		Errors:    res.Errors,
	}
	if n.Errors == nil {
		n.Errors = []string{}
	}
	if err := s.notifications.PrependNotification(ctx, n, s.limit); err != nil {
		return fmt.Errorf("record notification: %w", err)
	}
	return nil
}

// NotificationMessage is the one-line outcome of a run.
func NotificationMessage(res model.UpdateResult) string {
	return fmt.Sprintf("Parts database updated: %d new, %d updated", res.Added, res.Updated)
}

func (s *Scheduler) publish(ev Event) {
	s.mu.Lock()
	listeners := append([]Listener(nil), s.listeners...)
	s.mu.Unlock()

	for _, l := range listeners {
		go func(l Listener) {
			defer func() {
				if r := recover(); r != nil {
					s.logger.Error("listener panicked", "panic", r)
				}
			}()
			l(ev)
		}(l)
	}
}
