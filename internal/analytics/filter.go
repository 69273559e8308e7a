package analytics

import "github.com/tigerroll/greentaxi/internal/domain/entity"

// HourRange is an inclusive pair of hours in either order.
type HourRange [2]int

// Bounds returns the range as (min, max).
func (h HourRange) Bounds() (int, int) {
	if h[0] <= h[1] {
		return h[0], h[1]
	}
	return h[1], h[0]
}

// Contains reports whether hour lies within the normalized range.
func (h HourRange) Contains(hour int) bool {
	lo, hi := h.Bounds()
	return lo <= hour && hour <= hi
}

// AllHours covers the whole day.
var AllHours = HourRange{0, 23}

// Filter keeps rows whose hour is within hours and whose weekday is in days.
// An empty days selects every weekday.
func Filter(rows []entity.AnalyticalRow, hours HourRange, days []int) []entity.AnalyticalRow {
	var daySet [7]bool
	for _, d := range days {
		if d >= 0 && d < 7 {
			daySet[d] = true
		}
	}
	allDays := len(days) == 0

	out := make([]entity.AnalyticalRow, 0, len(rows))
	for _, r := range rows {
		if !hours.Contains(r.Hour) {
			continue
		}
		if !allDays && (r.Weekday < 0 || r.Weekday > 6 || !daySet[r.Weekday]) {
			continue
		}
		out = append(out, r)
	}
	return out
}

// FilterHours keeps rows whose hour is within hours regardless of weekday.
func FilterHours(rows []entity.AnalyticalRow, hours HourRange) []entity.AnalyticalRow {
	return Filter(rows, hours, nil)
}
