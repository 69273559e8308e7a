// Package analytics builds the analytical table and computes the dashboard aggregates.
package analytics

import (
	"math"
	"time"

	"github.com/tigerroll/greentaxi/internal/domain/entity"
)

const secondsPerDay = 24 * 60 * 60

// Assemble left-joins trips to zones on the pickup and drop-off location ids and derives
// weekday, hour and duration from the timestamps. Stored timestamps are instants; weekday
// and hour are read in loc, the zone the file's wall clock was parsed in.
// Unmatched location ids leave the zone fields nil. Trips without a pickup time are skipped.
func Assemble(trips []entity.TripRecord, zones *entity.ZoneTable, loc *time.Location) []entity.AnalyticalRow {
	if loc == nil {
		loc = time.UTC
	}
	rows := make([]entity.AnalyticalRow, 0, len(trips))
	for i := range trips {
		t := &trips[i]
		if t.PickupDatetime == nil {
			continue
		}
		pickup := t.PickupDatetime.In(loc)
		row := entity.AnalyticalRow{
			TripID:         t.ID,
			PULocationID:   t.PULocationID,
			DOLocationID:   t.DOLocationID,
			Weekday:        Weekday(pickup),
			Hour:           pickup.Hour(),
			PassengerCount: t.PassengerCount,
			TripDistance:   t.TripDistance,
			TotalAmount:    t.TotalAmount,
			PaymentType:    t.PaymentType,
		}
		if t.DropoffDatetime != nil {
			row.DurationMinutes = DurationMinutes(*t.PickupDatetime, *t.DropoffDatetime)
		}
		if z, ok := lookup(zones, t.PULocationID); ok {
			row.PUBorough, row.PUZone, row.PUServiceZone = &z.Borough, &z.Zone, &z.ServiceZone
		}
		if z, ok := lookup(zones, t.DOLocationID); ok {
			row.DOBorough, row.DOZone, row.DOServiceZone = &z.Borough, &z.Zone, &z.ServiceZone
		}
		rows = append(rows, row)
	}
	return rows
}

func lookup(zones *entity.ZoneTable, id *int64) (entity.Zone, bool) {
	if id == nil {
		return entity.Zone{}, false
	}
	return zones.Lookup(*id)
}

// Weekday returns 0 for Monday through 6 for Sunday.
func Weekday(t time.Time) int {
	return (int(t.Weekday()) + 6) % 7
}

// DurationMinutes rounds the sub-day part of dropoff-pickup to whole minutes, halves to even.
// Whole days are dropped and a negative delta wraps into [0, 24h), so a trip of 25 hours
// yields 60 and a drop-off one minute before pickup yields 1439.
func DurationMinutes(pickup, dropoff time.Time) int {
	d := dropoff.Sub(pickup)
	secs := int64(d / time.Second)
	if d < 0 && d%time.Second != 0 {
		secs--
	}
	sub := ((secs % secondsPerDay) + secondsPerDay) % secondsPerDay
	return int(math.RoundToEven(float64(sub) / 60))
}
