package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"reminder-bot/internal/model"
)

// UserRepository handles CRUD for users.
type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

// Ensure creates the user with the default timezone unless it already exists.
func (r *UserRepository) Ensure(ctx context.Context, chatID int64) (*model.User, error) {
	user := model.User{ChatID: chatID, Timezone: model.DefaultTimezone}
	err := r.db.WithContext(ctx).
		Where(model.User{ChatID: chatID}).
		Attrs(model.User{Timezone: model.DefaultTimezone}).
		FirstOrCreate(&user).Error
	if err != nil {
		return nil, fmt.Errorf("ensure user: %w", err)
	}
	return &user, nil
}

func (r *UserRepository) FindByChatID(ctx context.Context, chatID int64) (*model.User, error) {
	var user model.User
	err := r.db.WithContext(ctx).Where("chat_id = ?", chatID).First(&user).Error
	switch {
	case err == nil:
		return &user, nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return nil, fmt.Errorf("user %d: %w", chatID, model.ErrNotFound)
	default:
		return nil, fmt.Errorf("find user: %w", err)
	}
}

// GetTimezone returns the stored zone, or the default for unknown users.
func (r *UserRepository) GetTimezone(ctx context.Context, chatID int64) (string, error) {
	var zones []string
	err := r.db.WithContext(ctx).Model(&model.User{}).
		Where("chat_id = ?", chatID).
		Limit(1).
		Pluck("timezone", &zones).Error
	if err != nil {
		return model.DefaultTimezone, fmt.Errorf("get timezone: %w", err)
	}
	if len(zones) == 0 || zones[0] == "" {
		return model.DefaultTimezone, nil
	}
	return zones[0], nil
}

// UpsertTimezone sets the zone and leaves the daily summary settings untouched.
func (r *UserRepository) UpsertTimezone(ctx context.Context, chatID int64, tz string) error {
	user := model.User{ChatID: chatID, Timezone: tz}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "chat_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"timezone", "updated_at"}),
	}).Create(&user).Error
	if err != nil {
		return fmt.Errorf("upsert timezone: %w", err)
	}
	return nil
}

// UpsertDailySummary sets or clears (nil) the daily summary time.
func (r *UserRepository) UpsertDailySummary(ctx context.Context, chatID int64, at *string) error {
	user := model.User{ChatID: chatID, Timezone: model.DefaultTimezone, DailySummaryTime: at}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "chat_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"daily_summary_time", "updated_at"}),
	}).Create(&user).Error
	if err != nil {
		return fmt.Errorf("upsert daily summary: %w", err)
	}
	return nil
}

func (r *UserRepository) ListWithDailySummary(ctx context.Context) ([]model.User, error) {
	var users []model.User
	if err := r.db.WithContext(ctx).
		Where("daily_summary_time IS NOT NULL").
		Order("chat_id ASC").
		Find(&users).Error; err != nil {
		return nil, fmt.Errorf("list daily summary users: %w", err)
	}
	return users, nil
}

// ClaimDailySummary records localDate as the last summary date. It reports false when
// a summary was already claimed for that date.
func (r *UserRepository) ClaimDailySummary(ctx context.Context, chatID int64, localDate string) (bool, error) {
	res := r.db.WithContext(ctx).Model(&model.User{}).
		Where("chat_id = ? AND (last_summary_date IS NULL OR last_summary_date <> ?)", chatID, localDate).
		Update("last_summary_date", localDate)
	if res.Error != nil {
		return false, fmt.Errorf("claim daily summary: %w", res.Error)
	}
	return res.RowsAffected > 0, nil
}

// ReleaseDailySummary undoes a claim of localDate, restoring the previous date. It is a
// no-op when the stored date is no longer localDate.
func (r *UserRepository) ReleaseDailySummary(ctx context.Context, chatID int64, localDate string, previous *string) error {
	res := r.db.WithContext(ctx).Model(&model.User{}).
		Where("chat_id = ? AND last_summary_date = ?", chatID, localDate).
		Update("last_summary_date", previous)
	if res.Error != nil {
		return fmt.Errorf("release daily summary: %w", res.Error)
	}
	return nil
}
