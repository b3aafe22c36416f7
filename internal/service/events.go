package service

import (
	"context"
	"time"
)

// EventKind tags the payload carried by an Event.
type EventKind int

const (
	EventReminder EventKind = iota + 1
	EventDailySummary
)

func (k EventKind) String() string {
	switch k {
	case EventReminder:
		return "reminder"
	case EventDailySummary:
		return "daily_summary"
	default:
		return "unknown"
	}
}

// DigestItem is one line of a daily summary.
type DigestItem struct {
	TaskID    uint
	Text      string
	LocalTime time.Time
}

// Event is raised by the timer manager and the daily dispatcher and consumed by the Notifier.
// Reminder events fill TaskID, Text and LocalDue; summary events fill Date and Items.
type Event struct {
	Kind     EventKind
	Owner    int64
	Timezone string

	TaskID   uint
	Text     string
	LocalDue time.Time

	Date  time.Time
	Items []DigestItem
}

// Sink delivers notifications to users.
type Sink interface {
	NotifyReminder(ctx context.Context, owner int64, text string, localDue time.Time, tz string) error
	NotifyDailySummary(ctx context.Context, owner int64, items []DigestItem, date time.Time, tz string) error
}
