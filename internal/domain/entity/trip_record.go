// Package entity holds the persisted and derived record types of greentaxi.
package entity

import "time"

// TableName is the table holding loaded trip records.
const TableName = "green_taxi"

// TripRecord is one taxi trip as stored in the green_taxi table.
// Column names follow the TLC CSV header. Every CSV-sourced field is nullable.
type TripRecord struct {
	ID                   int64      `gorm:"column:id;primaryKey;autoIncrement:false"`
	VendorID             *int64     `gorm:"column:VendorID"`
	PickupDatetime       *time.Time `gorm:"column:lpep_pickup_datetime"`
	DropoffDatetime      *time.Time `gorm:"column:lpep_dropoff_datetime"`
	StoreAndFwdFlag      *string    `gorm:"column:store_and_fwd_flag;size:1"`
	RatecodeID           *int64     `gorm:"column:RatecodeID"`
	PULocationID         *int64     `gorm:"column:PULocationID"`
	DOLocationID         *int64     `gorm:"column:DOLocationID"`
	PassengerCount       *int64     `gorm:"column:passenger_count"`
	TripDistance         *float64   `gorm:"column:trip_distance"`
	FareAmount           *float64   `gorm:"column:fare_amount"`
	Extra                *float64   `gorm:"column:extra"`
	MtaTax               *float64   `gorm:"column:mta_tax"`
	TipAmount            *float64   `gorm:"column:tip_amount"`
	TollsAmount          *float64   `gorm:"column:tolls_amount"`
	EhailFee             *float64   `gorm:"column:ehail_fee"`
	ImprovementSurcharge *float64   `gorm:"column:improvement_surcharge"`
	TotalAmount          *float64   `gorm:"column:total_amount"`
	PaymentType          *int64     `gorm:"column:payment_type"`
	TripType             *int64     `gorm:"column:trip_type"`
	CongestionSurcharge  *float64   `gorm:"column:congestion_surcharge"`
	Month                string     `gorm:"column:month;size:2"`
	Year                 string     `gorm:"column:year;size:4"`
}

// TableName implements gorm's Tabler.
func (TripRecord) TableName() string {
	return TableName
}
