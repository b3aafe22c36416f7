package service

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"reminder-bot/internal/repository"
)

type testStore struct {
	tasks *repository.TaskRepository
	users *repository.UserRepository
}

func newTestStore(t *testing.T) testStore {
	t.Helper()
	db, err := repository.NewDB(filepath.Join(t.TempDir(), "reminders.db"), zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return testStore{tasks: repository.NewTaskRepository(db), users: repository.NewUserRepository(db)}
}

func fixedClock(at time.Time) func() time.Time {
	return func() time.Time { return at }
}

// newTestTimers returns a timer manager whose events land in the returned channel.
func newTestTimers(t *testing.T, st testStore, now func() time.Time) (*TimerManager, chan Event) {
	t.Helper()
	events := make(chan Event, 16)
	tm := NewTimerManager(st.tasks, st.users, NewTimeResolver(), events, zap.NewNop())
	tm.now = now
	t.Cleanup(tm.Stop)
	return tm, events
}

func newTestTaskService(st testStore, timers TimerControl, now time.Time) *TaskService {
	svc := NewTaskService(st.tasks, st.users, NewTimeResolver(), timers)
	svc.now = fixedClock(now)
	return svc
}

type recordedTimer struct {
	owner int64
	due   time.Time
}

// recordingTimers is a TimerControl that only remembers what it was asked to do.
type recordingTimers struct {
	mu        sync.Mutex
	armed     map[uint]recordedTimer
	cancelled []uint
}

func newRecordingTimers() *recordingTimers {
	return &recordingTimers{armed: make(map[uint]recordedTimer)}
}

func (r *recordingTimers) Schedule(taskID uint, owner int64, due time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.armed[taskID] = recordedTimer{owner: owner, due: due}
}

func (r *recordingTimers) Cancel(taskID uint) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.armed, taskID)
	r.cancelled = append(r.cancelled, taskID)
}

type reminderCall struct {
	owner    int64
	text     string
	localDue time.Time
	tz       string
}

type summaryCall struct {
	owner int64
	items []DigestItem
	date  time.Time
	tz    string
}

// fakeSink records deliveries and fails for owners listed in failFor.
type fakeSink struct {
	mu        sync.Mutex
	reminders []reminderCall
	summaries []summaryCall
	failFor   map[int64]error
}

func (f *fakeSink) NotifyReminder(_ context.Context, owner int64, text string, localDue time.Time, tz string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failFor[owner]; err != nil {
		return err
	}
	f.reminders = append(f.reminders, reminderCall{owner: owner, text: text, localDue: localDue, tz: tz})
	return nil
}

func (f *fakeSink) NotifyDailySummary(_ context.Context, owner int64, items []DigestItem, date time.Time, tz string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failFor[owner]; err != nil {
		return err
	}
	f.summaries = append(f.summaries, summaryCall{owner: owner, items: items, date: date, tz: tz})
	return nil
}

func (f *fakeSink) reminderCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.reminders)
}

func (f *fakeSink) summaryCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.summaries)
}
