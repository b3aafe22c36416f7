package service

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"reminder-bot/internal/repository"
)

// SchedulerConfig tunes the scheduling runtime.
type SchedulerConfig struct {
	TickInterval time.Duration
	SendTimeout  time.Duration
	EventBuffer  int
}

// SchedulerContext owns the process-wide scheduling state: per-task timers, the daily tick,
// and the event channel feeding the Notifier. Create one at boot, Start it once and Stop it
// on shutdown.
type SchedulerContext struct {
	Timers    *TimerManager
	Daily     *DailyDispatcher
	Reminders *ReminderService

	cfg      SchedulerConfig
	events   chan Event
	notifier *Notifier
	cron     *SchedulerService
	log      *zap.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewSchedulerContext(cfg SchedulerConfig, taskRepo *repository.TaskRepository, userRepo *repository.UserRepository, resolver *TimeResolver, sink Sink, log *zap.Logger) *SchedulerContext {
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = time.Minute
	}
	if cfg.EventBuffer <= 0 {
		cfg.EventBuffer = 64
	}
	events := make(chan Event, cfg.EventBuffer)
	reminders := NewReminderService(taskRepo, userRepo, resolver)

	return &SchedulerContext{
		Timers:    NewTimerManager(taskRepo, userRepo, resolver, events, log),
		Daily:     NewDailyDispatcher(userRepo, reminders, events, log),
		Reminders: reminders,
		cfg:       cfg,
		events:    events,
		notifier:  NewNotifier(sink, cfg.SendTimeout, log),
		cron:      NewSchedulerService(time.UTC, log),
		log:       log,
	}
}

// Start launches the notifier, re-arms pending tasks and begins the daily tick.
func (s *SchedulerContext) Start(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.notifier.Run(runCtx, s.events)
	}()

	if _, err := s.Timers.Recover(ctx, time.Now().UTC()); err != nil {
		s.Stop()
		return err
	}

	if _, err := s.cron.ScheduleInterval("daily-tick", s.cfg.TickInterval, s.cfg.TickInterval, s.Daily.Tick); err != nil {
		s.Stop()
		return err
	}
	s.cron.Start()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.Daily.Tick(runCtx); err != nil && runCtx.Err() == nil {
			s.log.Error("initial daily tick", zap.Error(err))
		}
	}()

	s.log.Info("scheduler started", zap.Duration("tick", s.cfg.TickInterval), zap.Int("timers", s.Timers.Len()))
	return nil
}

// Stop disarms timers, stops the tick and waits for the notifier to exit.
func (s *SchedulerContext) Stop() {
	s.Timers.Stop()
	s.cron.Stop()
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
	s.log.Info("scheduler stopped")
}
