package scheduler

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"partsync/internal/logging"
	"partsync/internal/model"
	"partsync/internal/repository"
	"partsync/internal/store"
)

type fakeRunner struct {
	mu     sync.Mutex
	due    bool
	dueErr error
	result model.UpdateResult
	runErr error
	panics bool
	last   *time.Time
	runs   int32
	forced int32
}

func (f *fakeRunner) ShouldUpdate(context.Context) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.panics {
		panic("tick exploded")
	}
	return f.due, f.dueErr
}

func (f *fakeRunner) RunUpdate(context.Context) (model.UpdateResult, error) {
	atomic.AddInt32(&f.runs, 1)
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.result, f.runErr
}

func (f *fakeRunner) ForceUpdate(ctx context.Context) (model.UpdateResult, error) {
	atomic.AddInt32(&f.forced, 1)
	return f.RunUpdate(ctx)
}

func (f *fakeRunner) LastUpdate(context.Context) (time.Time, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.last == nil {
		return time.Time{}, false, nil
	}
	return *f.last, true, nil
}

func (f *fakeRunner) setDue(due bool) {
	f.mu.Lock()
	f.due = due
	f.mu.Unlock()
}

func (f *fakeRunner) runCount() int32 {
	return atomic.LoadInt32(&f.runs)
}

func newNotificationRepo() *repository.CatalogRepository {
	return repository.NewCatalogRepository(store.NewMemoryStore(), "test", logging.Discard())
}

func newScheduler(r Runner, repo NotificationStore, interval time.Duration) *Scheduler {
	return New(r, repo, Options{Interval: interval, Logger: logging.Discard()})
}

func TestStartRunsInitialCheck(t *testing.T) {
	r := &fakeRunner{due: true, result: model.UpdateResult{Added: 2, Errors: []string{}}}
	repo := newNotificationRepo()
	s := newScheduler(r, repo, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s.Start(ctx)
	defer s.Stop()

	require.Eventually(t, func() bool { return r.runCount() == 1 }, time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool {
		list, err := s.Notifications(ctx)
		return err == nil && len(list) == 1
	}, time.Second, 5*time.Millisecond)

	list, err := s.Notifications(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Parts database updated: 2 new, 0 updated", list[0].Message)
	assert.Equal(t, NotificationType, list[0].Type)
	assert.False(t, list[0].HasErrors)
}

func TestInitialCheckWithoutChangesRecordsNothing(t *testing.T) {
	r := &fakeRunner{due: true, result: model.UpdateResult{Errors: []string{}}}
	repo := newNotificationRepo()
	s := newScheduler(r, repo, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s.Start(ctx)
	defer s.Stop()

	require.Eventually(t, func() bool { return r.runCount() == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(20 * time.Millisecond)

	list, err := s.Notifications(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestTicksRunOnlyWhenDue(t *testing.T) {
	r := &fakeRunner{}
	s := newScheduler(r, newNotificationRepo(), 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s.Start(ctx)
	defer s.Stop()

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int32(0), r.runCount())

	r.setDue(true)
	require.Eventually(t, func() bool { return r.runCount() >= 2 }, time.Second, 5*time.Millisecond)
}

func TestScheduledRunsCapNotifications(t *testing.T) {
	r := &fakeRunner{due: true, result: model.UpdateResult{Updated: 1, Errors: []string{}}}
	repo := newNotificationRepo()
	s := New(r, repo, Options{Interval: 5 * time.Millisecond, NotificationLimit: 3, Logger: logging.Discard()})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s.Start(ctx)

	require.Eventually(t, func() bool { return r.runCount() >= 6 }, 2*time.Second, 5*time.Millisecond)
	s.Stop()
	// Let a tick that was already in flight finish.
	time.Sleep(20 * time.Millisecond)

	list, err := s.Notifications(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 3)

	require.NoError(t, s.ClearNotifications(ctx))
	list, err = s.Notifications(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestTickFailuresDoNotStopTimer(t *testing.T) {
	r := &fakeRunner{panics: true}
	s := newScheduler(r, newNotificationRepo(), 5*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s.Start(ctx)
	defer s.Stop()

	time.Sleep(20 * time.Millisecond)

	r.mu.Lock()
	r.panics = false
	r.due = true
	r.runErr = errors.New("store unavailable")
	r.mu.Unlock()

	require.Eventually(t, func() bool { return r.runCount() >= 2 }, time.Second, 5*time.Millisecond)
	assert.True(t, s.IsRunning())
}

func TestStartStopIdempotent(t *testing.T) {
	s := newScheduler(&fakeRunner{}, newNotificationRepo(), time.Hour)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s.Stop()
	assert.False(t, s.IsRunning())

	s.Start(ctx)
	s.Start(ctx)
	assert.True(t, s.IsRunning())

	s.Stop()
	s.Stop()
	assert.False(t, s.IsRunning())
}

func TestCancelledContextStopsScheduler(t *testing.T) {
	r := &fakeRunner{}
	s := newScheduler(r, newNotificationRepo(), time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	s.Start(ctx)
	require.True(t, s.IsRunning())

	cancel()
	require.Eventually(t, func() bool { return !s.IsRunning() }, time.Second, 5*time.Millisecond)

	info, err := s.ScheduleInfo(context.Background())
	require.NoError(t, err)
	assert.False(t, info.IsRunning)

	restart, stopRestart := context.WithCancel(context.Background())
	defer stopRestart()
	s.Start(restart)
	defer s.Stop()
	assert.True(t, s.IsRunning())
}

func TestUpdateIntervalRestartsRunningScheduler(t *testing.T) {
	r := &fakeRunner{due: true, result: model.UpdateResult{Errors: []string{}}}
	s := newScheduler(r, newNotificationRepo(), time.Hour)

	require.Error(t, s.UpdateInterval(0))

	require.NoError(t, s.UpdateInterval(2*time.Hour))
	assert.Equal(t, 2*time.Hour, s.Interval())
	assert.False(t, s.IsRunning())
	assert.Equal(t, int32(0), r.runCount())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s.Start(ctx)
	defer s.Stop()
	require.Eventually(t, func() bool { return r.runCount() == 1 }, time.Second, 5*time.Millisecond)

	require.NoError(t, s.UpdateInterval(3*time.Hour))
	assert.True(t, s.IsRunning())
	assert.Equal(t, 3*time.Hour, s.Interval())
	require.Eventually(t, func() bool { return r.runCount() == 2 }, time.Second, 5*time.Millisecond,
		"restart performs an immediate due-check")
}

func TestScheduleInfo(t *testing.T) {
	r := &fakeRunner{}
	s := newScheduler(r, newNotificationRepo(), time.Hour)
	ctx := context.Background()

	info, err := s.ScheduleInfo(ctx)
	require.NoError(t, err)
	assert.False(t, info.IsRunning)
	assert.Equal(t, time.Hour, info.Interval)
	assert.Nil(t, info.NextUpdate)

	last := time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)
	r.last = &last

	info, err = s.ScheduleInfo(ctx)
	require.NoError(t, err)
	require.NotNil(t, info.NextUpdate)
	assert.Equal(t, last.Add(time.Hour), *info.NextUpdate)
}

func TestForceUpdatePublishesManualEvent(t *testing.T) {
	r := &fakeRunner{result: model.UpdateResult{Added: 1, Errors: []string{"Error scraping x: boom"}}}
	repo := newNotificationRepo()
	s := newScheduler(r, repo, time.Hour)

	events := make(chan Event, 1)
	s.Subscribe(func(ev Event) { events <- ev })

	res, err := s.ForceUpdate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Added)
	assert.Equal(t, int32(1), atomic.LoadInt32(&r.forced))

	select {
	case ev := <-events:
		assert.Equal(t, TriggerManual, ev.Trigger)
		assert.Equal(t, res, ev.Result)
	case <-time.After(time.Second):
		t.Fatal("no event published")
	}

	list, err := s.Notifications(context.Background())
	require.NoError(t, err)
	assert.Empty(t, list, "manual runs are not recorded")
}
