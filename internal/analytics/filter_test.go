package analytics_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tigerroll/greentaxi/internal/analytics"
	"github.com/tigerroll/greentaxi/internal/domain/entity"
)

func rowsAt(hours ...int) []entity.AnalyticalRow {
	var rows []entity.AnalyticalRow
	for i, h := range hours {
		rows = append(rows, entity.AnalyticalRow{TripID: int64(i), Hour: h, Weekday: i % 7})
	}
	return rows
}

func TestHourRange(t *testing.T) {
	r := analytics.HourRange{20, 5}
	lo, hi := r.Bounds()
	assert.Equal(t, 5, lo)
	assert.Equal(t, 20, hi)
	assert.True(t, r.Contains(5))
	assert.True(t, r.Contains(20))
	assert.False(t, r.Contains(21))
	assert.True(t, analytics.AllHours.Contains(0))
	assert.True(t, analytics.AllHours.Contains(23))
}

func TestFilter_HoursInclusiveEitherOrder(t *testing.T) {
	rows := rowsAt(0, 5, 6, 12, 20, 23)
	a := analytics.Filter(rows, analytics.HourRange{5, 12}, nil)
	b := analytics.Filter(rows, analytics.HourRange{12, 5}, nil)
	assert.Len(t, a, 3)
	assert.Equal(t, a, b)
}

func TestFilter_Days(t *testing.T) {
	rows := rowsAt(1, 1, 1, 1, 1, 1, 1) // weekdays 0..6
	assert.Len(t, analytics.Filter(rows, analytics.AllHours, nil), 7)
	assert.Len(t, analytics.Filter(rows, analytics.AllHours, []int{}), 7)

	got := analytics.Filter(rows, analytics.AllHours, []int{0, 6, 6})
	assert.Len(t, got, 2)
	assert.Equal(t, 0, got[0].Weekday)
	assert.Equal(t, 6, got[1].Weekday)

	assert.Empty(t, analytics.Filter(rows, analytics.AllHours, []int{9}))
}

func TestFilter_DoesNotModifyInput(t *testing.T) {
	rows := rowsAt(1, 2, 3)
	_ = analytics.Filter(rows, analytics.HourRange{2, 2}, []int{1})
	assert.Equal(t, rowsAt(1, 2, 3), rows)
}
