package model

import "time"

// DefaultTimezone is used for users that never set a zone.
const DefaultTimezone = "UTC"

// User stores per-chat reminder settings.
type User struct {
	ChatID           int64   `gorm:"primaryKey;autoIncrement:false"`
	Timezone         string  `gorm:"not null;default:'UTC'"`
	DailySummaryTime *string // HH:MM local, nil when disabled
	LastSummaryDate  *string // YYYY-MM-DD local date of the last raised summary
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// SummaryTime returns the parsed daily summary time, if any.
func (u User) SummaryTime() (ClockTime, bool) {
	if u.DailySummaryTime == nil {
		return ClockTime{}, false
	}
	ct, err := ParseClockTime(*u.DailySummaryTime)
	if err != nil {
		return ClockTime{}, false
	}
	return ct, true
}
