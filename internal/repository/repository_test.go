package repository

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"reminder-bot/internal/model"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := NewDB(filepath.Join(t.TempDir(), "data", "test.db"), zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

func TestUserRepository_TimezoneDefaultsAndUpsert(t *testing.T) {
	ctx := context.Background()
	repo := NewUserRepository(newTestDB(t))

	tz, err := repo.GetTimezone(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, model.DefaultTimezone, tz)

	at := "09:00"
	require.NoError(t, repo.UpsertDailySummary(ctx, 42, &at))
	require.NoError(t, repo.UpsertTimezone(ctx, 42, "Europe/Berlin"))

	user, err := repo.FindByChatID(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, "Europe/Berlin", user.Timezone)
	require.NotNil(t, user.DailySummaryTime)
	assert.Equal(t, "09:00", *user.DailySummaryTime)

	require.NoError(t, repo.UpsertDailySummary(ctx, 42, nil))
	user, err = repo.FindByChatID(ctx, 42)
	require.NoError(t, err)
	assert.Nil(t, user.DailySummaryTime)
	assert.Equal(t, "Europe/Berlin", user.Timezone)
}

func TestUserRepository_EnsureKeepsExisting(t *testing.T) {
	ctx := context.Background()
	repo := NewUserRepository(newTestDB(t))

	user, err := repo.Ensure(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, model.DefaultTimezone, user.Timezone)

	require.NoError(t, repo.UpsertTimezone(ctx, 7, "Asia/Tokyo"))
	user, err = repo.Ensure(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, "Asia/Tokyo", user.Timezone)

	_, err = repo.FindByChatID(ctx, 8)
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestUserRepository_ClaimDailySummaryOncePerDate(t *testing.T) {
	ctx := context.Background()
	repo := NewUserRepository(newTestDB(t))

	at := "09:00"
	require.NoError(t, repo.UpsertDailySummary(ctx, 1, &at))
	require.NoError(t, repo.UpsertTimezone(ctx, 2, "UTC"))

	users, err := repo.ListWithDailySummary(ctx)
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, int64(1), users[0].ChatID)

	ok, err := repo.ClaimDailySummary(ctx, 1, "2025-01-01")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.ClaimDailySummary(ctx, 1, "2025-01-01")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = repo.ClaimDailySummary(ctx, 1, "2025-01-02")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestUserRepository_ReleaseDailySummary(t *testing.T) {
	ctx := context.Background()
	repo := NewUserRepository(newTestDB(t))

	at := "09:00"
	require.NoError(t, repo.UpsertDailySummary(ctx, 1, &at))
	ok, err := repo.ClaimDailySummary(ctx, 1, "2025-01-01")
	require.NoError(t, err)
	require.True(t, ok)
	ok, err = repo.ClaimDailySummary(ctx, 1, "2025-01-02")
	require.NoError(t, err)
	require.True(t, ok)

	prev := "2025-01-01"
	require.NoError(t, repo.ReleaseDailySummary(ctx, 1, "2025-01-02", &prev))
	user, err := repo.FindByChatID(ctx, 1)
	require.NoError(t, err)
	require.NotNil(t, user.LastSummaryDate)
	assert.Equal(t, prev, *user.LastSummaryDate)

	// Stale release leaves a newer claim alone.
	require.NoError(t, repo.ReleaseDailySummary(ctx, 1, "2024-12-31", nil))
	user, err = repo.FindByChatID(ctx, 1)
	require.NoError(t, err)
	require.NotNil(t, user.LastSummaryDate)
	assert.Equal(t, prev, *user.LastSummaryDate)

	require.NoError(t, repo.ReleaseDailySummary(ctx, 1, prev, nil))
	user, err = repo.FindByChatID(ctx, 1)
	require.NoError(t, err)
	assert.Nil(t, user.LastSummaryDate)

	ok, err = repo.ClaimDailySummary(ctx, 1, prev)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestTaskRepository_Lifecycle(t *testing.T) {
	ctx := context.Background()
	repo := NewTaskRepository(newTestDB(t))
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	late := model.Task{Owner: 1, Text: "late", DueAt: base.Add(3 * time.Hour)}
	early := model.Task{Owner: 1, Text: "early", DueAt: base.Add(time.Hour)}
	other := model.Task{Owner: 2, Text: "other", DueAt: base.Add(2 * time.Hour)}
	for _, task := range []*model.Task{&late, &early, &other} {
		require.NoError(t, repo.Create(ctx, task))
	}
	assert.Less(t, late.ID, early.ID)

	tasks, err := repo.ListByOwner(ctx, 1, false)
	require.NoError(t, err)
	require.Len(t, tasks, 2)
	assert.Equal(t, "early", tasks[0].Text)
	assert.Equal(t, "late", tasks[1].Text)
	assert.True(t, tasks[0].DueAt.Equal(base.Add(time.Hour)))

	var hooked int
	changed, err := repo.MarkDone(ctx, 2, early.ID, func() { hooked++ })
	require.NoError(t, err)
	assert.False(t, changed, "other owner must not complete the task")

	changed, err = repo.MarkDone(ctx, 1, early.ID, func() { hooked++ })
	require.NoError(t, err)
	assert.True(t, changed)

	changed, err = repo.MarkDone(ctx, 1, early.ID, func() { hooked++ })
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, 1, hooked)

	tasks, err = repo.ListByOwner(ctx, 1, false)
	require.NoError(t, err)
	require.Len(t, tasks, 1)

	tasks, err = repo.ListByOwner(ctx, 1, true)
	require.NoError(t, err)
	require.Len(t, tasks, 2)

	pending, err := repo.ListPending(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, other.ID, pending[0].ID)
	assert.Equal(t, late.ID, pending[1].ID)

	deleted, err := repo.Delete(ctx, 1, early.ID, func() { hooked++ })
	require.NoError(t, err)
	assert.True(t, deleted)
	assert.Equal(t, 2, hooked)

	_, err = repo.Get(ctx, early.ID)
	assert.ErrorIs(t, err, model.ErrNotFound)

	deleted, err = repo.Delete(ctx, 1, early.ID, nil)
	require.NoError(t, err)
	assert.False(t, deleted)
}

func TestTaskRepository_IDsAreNotReused(t *testing.T) {
	ctx := context.Background()
	repo := NewTaskRepository(newTestDB(t))
	due := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)

	first := model.Task{Owner: 1, Text: "a", DueAt: due}
	require.NoError(t, repo.Create(ctx, &first))
	_, err := repo.Delete(ctx, 1, first.ID, nil)
	require.NoError(t, err)

	second := model.Task{Owner: 1, Text: "b", DueAt: due}
	require.NoError(t, repo.Create(ctx, &second))
	assert.Greater(t, second.ID, first.ID)
}

func TestWithPragmas(t *testing.T) {
	assert.Equal(t, "a.db?_busy_timeout=5000&_journal_mode=WAL&_synchronous=NORMAL", withPragmas("a.db"))
	assert.Equal(t, "a.db?cache=shared&_busy_timeout=5000&_journal_mode=WAL&_synchronous=NORMAL", withPragmas("a.db?cache=shared"))
	assert.Equal(t, "file::memory:", withPragmas("file::memory:"))
}
