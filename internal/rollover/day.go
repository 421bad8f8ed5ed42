package rollover

import "time"

// TodayOpen returns local midnight for now in loc.
func TodayOpen(loc *time.Location, now time.Time) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	y, m, d := now.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

// NextOpen returns the next local midnight after now in loc.
// AddDate keeps it correct across DST changes.
func NextOpen(loc *time.Location, now time.Time) time.Time {
	return TodayOpen(loc, now).AddDate(0, 0, 1)
}

// SameTradingDay reports whether a and b fall on the same local day in loc.
func SameTradingDay(loc *time.Location, a, b time.Time) bool {
	return TodayOpen(loc, a).Equal(TodayOpen(loc, b))
}
