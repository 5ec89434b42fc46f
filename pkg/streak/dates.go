package streak

import "time"

// SameCalendarDay reports whether a and b fall on the same year/month/day in
// loc. Streak comparisons are calendar-day based, not elapsed-duration based:
// 23:59 and 00:01 the next day are different days even though two minutes
// apart.
func SameCalendarDay(a, b time.Time, loc *time.Location) bool {
	if loc == nil {
		loc = time.UTC
	}
	a = a.In(loc)
	b = b.In(loc)
	return a.Year() == b.Year() && a.Month() == b.Month() && a.Day() == b.Day()
}

func (e *Engine) isToday(d, now time.Time) bool {
	return SameCalendarDay(d, now, e.loc)
}

func (e *Engine) isYesterday(d, now time.Time) bool {
	return SameCalendarDay(d, now.AddDate(0, 0, -1), e.loc)
}
