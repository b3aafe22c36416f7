package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"reminder-bot/internal/repository"
)

const releaseTimeout = 5 * time.Second

// DailyDispatcher raises one daily summary event per user and local calendar day, at the
// user's configured local time.
type DailyDispatcher struct {
	userRepo  *repository.UserRepository
	reminders *ReminderService
	events    chan<- Event
	log       *zap.Logger
	now       func() time.Time
}

func NewDailyDispatcher(userRepo *repository.UserRepository, reminders *ReminderService, events chan<- Event, log *zap.Logger) *DailyDispatcher {
	return &DailyDispatcher{
		userRepo:  userRepo,
		reminders: reminders,
		events:    events,
		log:       log.Named("daily"),
		now:       time.Now,
	}
}

// Tick evaluates the current minute.
func (d *DailyDispatcher) Tick(ctx context.Context) error {
	_, err := d.TickAt(ctx, d.now())
	return err
}

// TickAt raises summaries for every user whose local time at now matches their summary
// time and who has not had one on that local date yet. It returns the number raised.
func (d *DailyDispatcher) TickAt(ctx context.Context, now time.Time) (int, error) {
	users, err := d.userRepo.ListWithDailySummary(ctx)
	if err != nil {
		return 0, err
	}

	raised := 0
	for _, user := range users {
		at, ok := user.SummaryTime()
		if !ok {
			d.log.Warn("bad daily summary time", zap.Int64("chat_id", user.ChatID))
			continue
		}
		loc, err := LoadZone(user.Timezone)
		if err != nil {
			d.log.Warn("skip daily summary", zap.Int64("chat_id", user.ChatID), zap.Error(err))
			continue
		}
		local := now.In(loc)
		if local.Hour() != at.Hour || local.Minute() != at.Minute {
			continue
		}

		digest, err := d.reminders.DayDigest(ctx, user.ChatID, user.Timezone, now)
		if err != nil {
			d.log.Error("build daily digest", zap.Int64("chat_id", user.ChatID), zap.Error(err))
			continue
		}
		date := local.Format(time.DateOnly)
		claimed, err := d.userRepo.ClaimDailySummary(ctx, user.ChatID, date)
		if err != nil {
			d.log.Error("claim daily summary", zap.Int64("chat_id", user.ChatID), zap.Error(err))
			continue
		}
		if !claimed {
			continue
		}

		ev := Event{
			Kind:     EventDailySummary,
			Owner:    user.ChatID,
			Timezone: digest.Timezone,
			Date:     digest.Date,
			Items:    digest.Items,
		}
		select {
		case d.events <- ev:
			raised++
			d.log.Info("daily summary raised", zap.Int64("chat_id", user.ChatID), zap.Int("items", len(digest.Items)))
		case <-ctx.Done():
			d.release(ctx, user.ChatID, date, user.LastSummaryDate)
			return raised, ctx.Err()
		}
	}
	return raised, nil
}

// release undoes the date claim for a summary that was never queued.
func (d *DailyDispatcher) release(ctx context.Context, chatID int64, date string, previous *string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), releaseTimeout)
	defer cancel()
	if err := d.userRepo.ReleaseDailySummary(ctx, chatID, date, previous); err != nil {
		d.log.Error("release daily summary", zap.Int64("chat_id", chatID), zap.String("date", date), zap.Error(err))
		return
	}
	d.log.Warn("daily summary not queued", zap.Int64("chat_id", chatID), zap.String("date", date))
}
