package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"reminder-bot/internal/model"
)

// TaskRepository handles CRUD for tasks.
type TaskRepository struct {
	db *gorm.DB
}

func NewTaskRepository(db *gorm.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

func (r *TaskRepository) Create(ctx context.Context, task *model.Task) error {
	task.DueAt = task.DueAt.UTC()
	task.CreatedAt = task.CreatedAt.UTC()
	if err := r.db.WithContext(ctx).Create(task).Error; err != nil {
		return fmt.Errorf("create task: %w", err)
	}
	return nil
}

// ListByOwner returns the owner's tasks ordered by due instant.
func (r *TaskRepository) ListByOwner(ctx context.Context, owner int64, includeDone bool) ([]model.Task, error) {
	var tasks []model.Task
	q := r.db.WithContext(ctx).Where("owner = ?", owner)
	if !includeDone {
		q = q.Where("done = ?", false)
	}
	if err := q.Order("due_at ASC, id ASC").Find(&tasks).Error; err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	return tasks, nil
}

// ListPending returns every task that is not done, across all owners.
func (r *TaskRepository) ListPending(ctx context.Context) ([]model.Task, error) {
	var tasks []model.Task
	if err := r.db.WithContext(ctx).Where("done = ?", false).
		Order("due_at ASC, id ASC").
		Find(&tasks).Error; err != nil {
		return nil, fmt.Errorf("list pending tasks: %w", err)
	}
	return tasks, nil
}

func (r *TaskRepository) FindByID(ctx context.Context, owner int64, taskID uint) (*model.Task, error) {
	return r.first(r.db.WithContext(ctx).Where("owner = ? AND id = ?", owner, taskID))
}

// Get looks a task up by id regardless of owner.
func (r *TaskRepository) Get(ctx context.Context, taskID uint) (*model.Task, error) {
	return r.first(r.db.WithContext(ctx).Where("id = ?", taskID))
}

func (r *TaskRepository) first(q *gorm.DB) (*model.Task, error) {
	var task model.Task
	err := q.First(&task).Error
	switch {
	case err == nil:
		return &task, nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return nil, model.ErrNotFound
	default:
		return nil, fmt.Errorf("find task: %w", err)
	}
}

// MarkDone flips a pending task to done. onChange runs inside the transaction when a row
// changed, before the commit.
func (r *TaskRepository) MarkDone(ctx context.Context, owner int64, taskID uint, onChange func()) (bool, error) {
	var changed bool
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&model.Task{}).
			Where("owner = ? AND id = ? AND done = ?", owner, taskID, false).
			Update("done", true)
		if res.Error != nil {
			return fmt.Errorf("complete task: %w", res.Error)
		}
		changed = res.RowsAffected > 0
		if changed && onChange != nil {
			onChange()
		}
		return nil
	})
	if err != nil {
		return false, err
	}
	return changed, nil
}

// Delete removes a task for the given owner regardless of its done state. onChange runs
// inside the transaction when a row was deleted, before the commit.
func (r *TaskRepository) Delete(ctx context.Context, owner int64, taskID uint, onChange func()) (bool, error) {
	var deleted bool
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("owner = ? AND id = ?", owner, taskID).Delete(&model.Task{})
		if res.Error != nil {
			return fmt.Errorf("delete task: %w", res.Error)
		}
		deleted = res.RowsAffected > 0
		if deleted && onChange != nil {
			onChange()
		}
		return nil
	})
	if err != nil {
		return false, err
	}
	return deleted, nil
}
