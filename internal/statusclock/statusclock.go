// Package statusclock derives the displayed status of camps and test bookings
// from their stored fields and a caller-supplied "now". Nothing here reads the
// wall clock.
package statusclock

import (
	"math"
	"time"

	"healthops/internal/models"
)

// IsSameCalendarDay compares year, month and day only.
func IsSameCalendarDay(date, now time.Time) bool {
	y1, m1, d1 := date.Date()
	y2, m2, d2 := now.Date()
	return y1 == y2 && m1 == m2 && d1 == d2
}

// campDay returns midnight of the camp date in now's location. Camps whose
// date cannot be parsed take no part in date-dependent classification.
func campDay(c models.Camp, now time.Time) (time.Time, bool) {
	return c.Date.In(now.Location())
}

// IsOverdue reports whether a camp has missed its implicit deadline.
//
// An open camp is overdue from the day after its date onwards; a camp dated
// today is never overdue. A completed camp without a sent report is overdue
// once more than three days have passed since the camp date.
func IsOverdue(c models.Camp, now time.Time) bool {
	day, ok := campDay(c, now)
	if !ok {
		return false
	}

	switch c.Status {
	case models.CampCompleted:
		if c.ReportStatus != models.CampReportAbsent {
			return false
		}
		return now.After(day.AddDate(0, 0, models.CampOverdueGraceDays))
	case models.CampCancelled:
		return false
	case models.CampScheduled:
		return openCampOverdue(day, now)
	default:
		// A camp with no recognised status is treated as open.
		return openCampOverdue(day, now)
	}
}

func openCampOverdue(day, now time.Time) bool {
	if IsSameCalendarDay(day, now) {
		return false
	}
	return !now.Before(day.AddDate(0, 0, 1))
}

// IsDueToday reports whether an open camp takes place today.
func IsDueToday(c models.Camp, now time.Time) bool {
	if c.Status != models.CampScheduled {
		return false
	}
	day, ok := campDay(c, now)
	return ok && IsSameCalendarDay(day, now)
}

// IsPendingClosure reports whether a completed camp still awaits its report.
func IsPendingClosure(c models.Camp) bool {
	return c.Status == models.CampCompleted && c.ReportStatus == models.CampReportAbsent
}

// DaysUntil returns whole calendar days from now to the camp date; negative
// for past camps. ok is false when the date is unreadable.
func DaysUntil(c models.Camp, now time.Time) (int, bool) {
	day, ok := campDay(c, now)
	if !ok {
		return 0, false
	}
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	return int(math.Round(day.Sub(today).Hours() / 24)), true
}
