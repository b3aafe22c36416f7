package service

import (
	"context"
	"time"

	"reminder-bot/internal/repository"
)

// ReminderService builds the daily digest of tasks due on the user's current local date.
type ReminderService struct {
	taskRepo *repository.TaskRepository
	userRepo *repository.UserRepository
	resolver *TimeResolver
}

func NewReminderService(taskRepo *repository.TaskRepository, userRepo *repository.UserRepository, resolver *TimeResolver) *ReminderService {
	return &ReminderService{taskRepo: taskRepo, userRepo: userRepo, resolver: resolver}
}

// Digest is a daily summary for one user.
type Digest struct {
	Owner    int64
	Timezone string
	Date     time.Time // local midnight
	Items    []DigestItem
}

// DailyDigest loads the owner's timezone and builds the digest for now.
func (s *ReminderService) DailyDigest(ctx context.Context, owner int64, now time.Time) (Digest, error) {
	tz, err := s.userRepo.GetTimezone(ctx, owner)
	if err != nil {
		return Digest{}, err
	}
	return s.DayDigest(ctx, owner, tz, now)
}

// DayDigest lists pending tasks whose local due time is within [00:00, 23:59] of the
// local date of now in tz, ascending.
func (s *ReminderService) DayDigest(ctx context.Context, owner int64, tz string, now time.Time) (Digest, error) {
	loc, err := LoadZone(tz)
	if err != nil {
		return Digest{}, err
	}
	tasks, err := s.taskRepo.ListByOwner(ctx, owner, false)
	if err != nil {
		return Digest{}, err
	}

	y, m, d := now.In(loc).Date()
	start := time.Date(y, m, d, 0, 0, 0, 0, loc)
	end := time.Date(y, m, d, 23, 59, 0, 0, loc)

	digest := Digest{Owner: owner, Timezone: loc.String(), Date: start}
	for _, task := range tasks {
		local := task.DueAt.In(loc)
		minute := local.Truncate(time.Minute)
		if minute.Before(start) || minute.After(end) {
			continue
		}
		digest.Items = append(digest.Items, DigestItem{TaskID: task.ID, Text: task.Text, LocalTime: local})
	}
	return digest, nil
}
