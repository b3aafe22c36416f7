package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"reminder-bot/internal/model"
	"reminder-bot/internal/repository"
)

// TaskGuardWindow is the minimum lead time a new task needs so it cannot fire while
// it is being created.
const TaskGuardWindow = 5 * time.Second

// TimerControl arms and disarms per-task timers.
type TimerControl interface {
	Schedule(taskID uint, owner int64, due time.Time)
	Cancel(taskID uint)
}

// TaskService is the task store: user settings and tasks, kept in step with live timers.
type TaskService struct {
	taskRepo *repository.TaskRepository
	userRepo *repository.UserRepository
	resolver *TimeResolver
	timers   TimerControl
	now      func() time.Time
}

func NewTaskService(taskRepo *repository.TaskRepository, userRepo *repository.UserRepository, resolver *TimeResolver, timers TimerControl) *TaskService {
	return &TaskService{
		taskRepo: taskRepo,
		userRepo: userRepo,
		resolver: resolver,
		timers:   timers,
		now:      time.Now,
	}
}

// EnsureUser creates the user with the default timezone on first contact.
func (s *TaskService) EnsureUser(ctx context.Context, owner int64) (*model.User, error) {
	return s.userRepo.Ensure(ctx, owner)
}

func (s *TaskService) GetTimezone(ctx context.Context, owner int64) (string, error) {
	return s.userRepo.GetTimezone(ctx, owner)
}

func (s *TaskService) SetTimezone(ctx context.Context, owner int64, tz string) error {
	loc, err := LoadZone(tz)
	if err != nil {
		return err
	}
	return s.userRepo.UpsertTimezone(ctx, owner, loc.String())
}

// SetDailySummary enables the summary at the given local time, or disables it when at is nil.
func (s *TaskService) SetDailySummary(ctx context.Context, owner int64, at *model.ClockTime) error {
	var value *string
	if at != nil {
		formatted := at.String()
		value = &formatted
	}
	return s.userRepo.UpsertDailySummary(ctx, owner, value)
}

// AddTask validates and persists a task, then arms its timer.
func (s *TaskService) AddTask(ctx context.Context, owner int64, text string, due time.Time) (uint, error) {
	task, err := s.addTask(ctx, owner, text, due)
	if err != nil {
		return 0, err
	}
	return task.ID, nil
}

// AddTaskFromExpression resolves when in the owner's timezone and adds the task.
func (s *TaskService) AddTaskFromExpression(ctx context.Context, owner int64, when, text string) (*model.Task, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: task text is required", model.ErrValidation)
	}
	tz, err := s.userRepo.GetTimezone(ctx, owner)
	if err != nil {
		return nil, err
	}
	due, err := s.resolver.Resolve(when, tz, s.now())
	if err != nil {
		return nil, err
	}
	return s.addTask(ctx, owner, text, due)
}

func (s *TaskService) addTask(ctx context.Context, owner int64, text string, due time.Time) (*model.Task, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("%w: task text is required", model.ErrValidation)
	}
	now := s.now().UTC()
	if !due.After(now.Add(TaskGuardWindow)) {
		return nil, fmt.Errorf("%w: due time must be at least %s in the future", model.ErrValidation, TaskGuardWindow)
	}

	task := model.Task{
		Owner:     owner,
		Text:      text,
		DueAt:     due.UTC(),
		CreatedAt: now,
	}
	if err := s.taskRepo.Create(ctx, &task); err != nil {
		return nil, err
	}
	s.timers.Schedule(task.ID, task.Owner, task.DueAt)
	return &task, nil
}

func (s *TaskService) ListTasks(ctx context.Context, owner int64, includeDone bool) ([]model.Task, error) {
	return s.taskRepo.ListByOwner(ctx, owner, includeDone)
}

// GetTask returns ErrNotFound for unknown ids and for tasks owned by someone else.
func (s *TaskService) GetTask(ctx context.Context, owner int64, taskID uint) (*model.Task, error) {
	task, err := s.taskRepo.FindByID(ctx, owner, taskID)
	if err != nil {
		return nil, fmt.Errorf("task %d: %w", taskID, err)
	}
	return task, nil
}

// MarkDone completes a pending task and cancels its timer before the change commits.
func (s *TaskService) MarkDone(ctx context.Context, owner int64, taskID uint) (bool, error) {
	cancelled := false
	changed, err := s.taskRepo.MarkDone(ctx, owner, taskID, func() {
		s.timers.Cancel(taskID)
		cancelled = true
	})
	if err != nil {
		if cancelled {
			s.rearm(ctx, taskID)
		}
		return false, err
	}
	return changed, nil
}

// RemoveTask deletes a task in any state and cancels its timer before the change commits.
func (s *TaskService) RemoveTask(ctx context.Context, owner int64, taskID uint) (bool, error) {
	cancelled := false
	deleted, err := s.taskRepo.Delete(ctx, owner, taskID, func() {
		s.timers.Cancel(taskID)
		cancelled = true
	})
	if err != nil {
		if cancelled {
			s.rearm(ctx, taskID)
		}
		return false, err
	}
	return deleted, nil
}

// rearm restores the timer of a task whose mutation was rolled back.
func (s *TaskService) rearm(ctx context.Context, taskID uint) {
	task, err := s.taskRepo.Get(ctx, taskID)
	if err != nil || task.Done {
		return
	}
	s.timers.Schedule(task.ID, task.Owner, task.DueAt)
}

// PendingForRecovery lists every task that still needs a timer.
func (s *TaskService) PendingForRecovery(ctx context.Context) ([]model.Task, error) {
	return s.taskRepo.ListPending(ctx)
}

func (s *TaskService) UsersWithDailySummary(ctx context.Context) ([]model.User, error) {
	return s.userRepo.ListWithDailySummary(ctx)
}
