package analytics_test

import (
	"time"

	"github.com/tigerroll/greentaxi/internal/domain/entity"
)

func i64(v int64) *int64     { return &v }
func f64(v float64) *float64 { return &v }
func str(v string) *string   { return &v }
func at(s string) *time.Time {
	t, err := time.ParseInLocation("2006-01-02 15:04:05", s, time.UTC)
	if err != nil {
		panic(err)
	}
	return &t
}

// testZones holds two Manhattan zones, one Brooklyn zone, one Queens zone and the
// unknown zone 265.
func testZones() *entity.ZoneTable {
	return entity.NewZoneTable([]entity.Zone{
		{LocationID: 4, Borough: "Manhattan", Zone: "Alphabet City", ServiceZone: "Yellow Zone"},
		{LocationID: 7, Borough: "Queens", Zone: "Astoria", ServiceZone: "Boro Zone"},
		{LocationID: 17, Borough: "Brooklyn", Zone: "Bedford", ServiceZone: "Boro Zone"},
		{LocationID: 41, Borough: "Manhattan", Zone: "Central Harlem", ServiceZone: "Boro Zone"},
		{LocationID: 265, Borough: "Unknown", Zone: "NA", ServiceZone: "N/A"},
	})
}

// row builds an analytical row between two zones of testZones. An empty borough leaves
// that side unmatched.
func row(puBorough, puZone, doBorough, doZone string, weekday, hour int) entity.AnalyticalRow {
	r := entity.AnalyticalRow{Weekday: weekday, Hour: hour}
	if puBorough != "" {
		r.PUBorough, r.PUZone = str(puBorough), str(puZone)
	}
	if doBorough != "" {
		r.DOBorough, r.DOZone = str(doBorough), str(doZone)
	}
	return r
}
