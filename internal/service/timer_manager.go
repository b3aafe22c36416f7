package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"reminder-bot/internal/model"
	"reminder-bot/internal/repository"
)

const (
	fireLookupTimeout = 10 * time.Second
	fireRetryDelay    = time.Minute
)

type taskTimer struct {
	owner int64
	due   time.Time
	gen   uint64
	timer *time.Timer
}

// TimerManager keeps exactly one in-memory timer per pending task. It holds scheduling
// data only; task state is re-read from the store when a timer fires.
type TimerManager struct {
	taskRepo *repository.TaskRepository
	userRepo *repository.UserRepository
	resolver *TimeResolver
	events   chan<- Event
	log      *zap.Logger
	now      func() time.Time

	mu      sync.Mutex
	timers  map[uint]*taskTimer
	gen     uint64
	stopped bool
	done    chan struct{}
}

func NewTimerManager(taskRepo *repository.TaskRepository, userRepo *repository.UserRepository, resolver *TimeResolver, events chan<- Event, log *zap.Logger) *TimerManager {
	return &TimerManager{
		taskRepo: taskRepo,
		userRepo: userRepo,
		resolver: resolver,
		events:   events,
		log:      log.Named("timers"),
		now:      time.Now,
		timers:   make(map[uint]*taskTimer),
		done:     make(chan struct{}),
	}
}

// Schedule arms a timer for the task, replacing any existing one. A due instant in the
// past fires immediately.
func (m *TimerManager) Schedule(taskID uint, owner int64, due time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stopped {
		return
	}

	if existing, ok := m.timers[taskID]; ok {
		existing.timer.Stop()
		delete(m.timers, taskID)
	}

	m.gen++
	gen := m.gen
	delay := due.Sub(m.now())
	if delay < 0 {
		delay = 0
	}
	m.timers[taskID] = &taskTimer{
		owner: owner,
		due:   due.UTC(),
		gen:   gen,
		timer: time.AfterFunc(delay, func() { m.fire(taskID, gen) }),
	}
	m.log.Debug("timer armed", zap.Uint("task_id", taskID), zap.Int64("chat_id", owner), zap.Duration("in", delay))
}

// Cancel disarms the task's timer, if any.
func (m *TimerManager) Cancel(taskID uint) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t, ok := m.timers[taskID]; ok {
		t.timer.Stop()
		delete(m.timers, taskID)
		m.log.Debug("timer cancelled", zap.Uint("task_id", taskID))
	}
}

// Recover arms a timer for every pending task in the store. Overdue tasks fire at once.
func (m *TimerManager) Recover(ctx context.Context, now time.Time) (int, error) {
	tasks, err := m.taskRepo.ListPending(ctx)
	if err != nil {
		return 0, err
	}
	overdue := 0
	for _, task := range tasks {
		if !task.DueAt.After(now) {
			overdue++
		}
		m.Schedule(task.ID, task.Owner, task.DueAt)
	}
	m.log.Info("rescheduled pending reminders", zap.Int("count", len(tasks)), zap.Int("overdue", overdue))
	return len(tasks), nil
}

// Scheduled reports the due instant of the live timer for taskID.
func (m *TimerManager) Scheduled(taskID uint) (time.Time, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.timers[taskID]
	if !ok {
		return time.Time{}, false
	}
	return t.due, true
}

// Len returns the number of live timers.
func (m *TimerManager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.timers)
}

// Stop disarms all timers. Later Schedule calls are ignored.
func (m *TimerManager) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stopped {
		return
	}
	m.stopped = true
	for id, t := range m.timers {
		t.timer.Stop()
		delete(m.timers, id)
	}
	close(m.done)
}

func (m *TimerManager) fire(taskID uint, gen uint64) {
	m.mu.Lock()
	t, ok := m.timers[taskID]
	if !ok || t.gen != gen {
		m.mu.Unlock()
		return
	}
	delete(m.timers, taskID)
	m.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), fireLookupTimeout)
	defer cancel()

	ev, ok, err := m.reminderEvent(ctx, taskID)
	if err != nil {
		m.log.Error("load task for reminder, retrying", zap.Uint("task_id", taskID), zap.Error(err))
		m.Schedule(taskID, t.owner, m.now().Add(fireRetryDelay))
		return
	}
	if !ok {
		return
	}

	select {
	case m.events <- ev:
		m.log.Info("reminder fired", zap.Uint("task_id", taskID), zap.Int64("chat_id", ev.Owner))
	case <-m.done:
		m.log.Warn("reminder dropped on shutdown", zap.Uint("task_id", taskID))
	}
}

// reminderEvent re-reads the task; completed or removed tasks produce no event.
func (m *TimerManager) reminderEvent(ctx context.Context, taskID uint) (Event, bool, error) {
	task, err := m.taskRepo.Get(ctx, taskID)
	if errors.Is(err, model.ErrNotFound) {
		m.log.Debug("reminder suppressed, task removed", zap.Uint("task_id", taskID))
		return Event{}, false, nil
	}
	if err != nil {
		return Event{}, false, err
	}
	if task.Done {
		m.log.Debug("reminder suppressed, task done", zap.Uint("task_id", taskID))
		return Event{}, false, nil
	}

	tz, err := m.userRepo.GetTimezone(ctx, task.Owner)
	if err != nil {
		m.log.Warn("load timezone, using default", zap.Int64("chat_id", task.Owner), zap.Error(err))
	}
	localDue, err := m.resolver.ToLocal(task.DueAt, tz)
	if err != nil {
		tz = model.DefaultTimezone
		localDue = task.DueAt.UTC()
	}

	return Event{
		Kind:     EventReminder,
		Owner:    task.Owner,
		Timezone: tz,
		TaskID:   task.ID,
		Text:     task.Text,
		LocalDue: localDue,
	}, true, nil
}
