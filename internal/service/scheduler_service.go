package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// SchedulerService runs periodic jobs on a cron runner.
type SchedulerService struct {
	cron *cron.Cron
	log  *zap.Logger
	ctx  context.Context
	stop context.CancelFunc
}

func NewSchedulerService(loc *time.Location, log *zap.Logger) *SchedulerService {
	ctx, stop := context.WithCancel(context.Background())
	log = log.Named("cron")
	cl := cronLogger{log: log.Sugar()}
	return &SchedulerService{
		cron: cron.New(
			cron.WithLocation(loc),
			cron.WithSeconds(),
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		log:  log,
		ctx:  ctx,
		stop: stop,
	}
}

func (s *SchedulerService) Start() {
	s.cron.Start()
}

// Stop cancels running jobs and waits for them to return.
func (s *SchedulerService) Stop() {
	s.stop()
	ctx := s.cron.Stop()
	<-ctx.Done()
}

// ScheduleInterval registers job to run every interval. Each run gets its own timeout;
// errors are logged.
func (s *SchedulerService) ScheduleInterval(name string, interval, timeout time.Duration, job func(ctx context.Context) error) (cron.EntryID, error) {
	if interval <= 0 {
		return 0, fmt.Errorf("interval must be positive")
	}
	seconds := int(interval.Seconds())
	if seconds <= 0 {
		seconds = 1
	}
	spec := fmt.Sprintf("@every %ds", seconds)
	return s.cron.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(s.ctx, timeout)
		defer cancel()
		if err := job(ctx); err != nil && !errors.Is(err, context.Canceled) {
			s.log.Error("job failed", zap.String("job", name), zap.Error(err))
		}
	})
}

// cronLogger routes cron's own messages, including recovered panics, into zap.
type cronLogger struct {
	log *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Errorw(msg, append(keysAndValues, "error", err)...)
}
