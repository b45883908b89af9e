package service

import (
	"time"

	"staking-rewards-system/internal/models"
)

// utcDay truncates t to midnight UTC.
func utcDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// DailyWindow is yesterday's complete UTC day, half-open [start, end).
func DailyWindow(now time.Time) (time.Time, time.Time) {
	end := utcDay(now)
	return end.AddDate(0, 0, -1), end
}

// WeeklyWindow is the last complete Sunday-to-Saturday week ending at the
// most recent Sunday midnight UTC.
func WeeklyWindow(now time.Time) (time.Time, time.Time) {
	day := utcDay(now)
	end := day.AddDate(0, 0, -int(day.Weekday()))
	return end.AddDate(0, 0, -7), end
}

// MonthlyWindow is the last full calendar month.
func MonthlyWindow(now time.Time) (time.Time, time.Time) {
	day := utcDay(now)
	end := time.Date(day.Year(), day.Month(), 1, 0, 0, 0, 0, time.UTC)
	return end.AddDate(0, -1, 0), end
}

// previousPeriodStart shifts a period start back by one period length.
func previousPeriodStart(periodType models.PeriodType, periodStart time.Time) time.Time {
	switch periodType {
	case models.PeriodWeekly:
		return periodStart.AddDate(0, 0, -7)
	case models.PeriodMonthly:
		return periodStart.AddDate(0, -1, 0)
	default:
		return periodStart.AddDate(0, 0, -1)
	}
}
