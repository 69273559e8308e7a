package entity

// AnalyticalRow is a trip joined with its pickup and drop-off zones plus calendar features.
// Zone fields are nil when the location id has no zone row.
type AnalyticalRow struct {
	TripID int64

	PULocationID  *int64
	PUBorough     *string
	PUZone        *string
	PUServiceZone *string
	DOLocationID  *int64
	DOBorough     *string
	DOZone        *string
	DOServiceZone *string

	// Weekday is 0 for Monday through 6 for Sunday.
	Weekday int
	Hour    int
	// DurationMinutes ignores whole days of the pickup to drop-off delta.
	DurationMinutes int

	PassengerCount *int64
	TripDistance   *float64
	TotalAmount    *float64
	PaymentType    *int64
}
