package schema_test

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tigerroll/greentaxi/internal/domain/entity"
	"github.com/tigerroll/greentaxi/internal/domain/schema"
	"github.com/tigerroll/greentaxi/pkg/batch/support/util/exception"
)

const header = "VendorID,lpep_pickup_datetime,lpep_dropoff_datetime,store_and_fwd_flag,RatecodeID,PULocationID,DOLocationID,passenger_count,trip_distance,fare_amount,extra,mta_tax,tip_amount,tolls_amount,ehail_fee,improvement_surcharge,total_amount,payment_type,trip_type,congestion_surcharge"

const row = "2,2019-01-01 00:10:16,2019-01-01 00:16:32,N,1,97,49,2,.86,6,0.5,0.5,1.2,0,,0.3,8.5,1,1,"

func TestGreenTaxi_Valid(t *testing.T) {
	d := schema.GreenTaxi()
	require.NoError(t, d.Validate())
	assert.Len(t, d.Columns, 20)
	assert.Equal(t, "id", d.StorageColumns()[0])
	assert.Len(t, d.StorageColumns(), 23)
	assert.Equal(t, []string{"month", "year"}, d.DataColumns()[20:])
	assert.NotContains(t, d.DataColumns(), "id")
}

func TestValidate_RejectsBrokenDescriptors(t *testing.T) {
	assert.Error(t, (&schema.Descriptor{}).Validate())

	d := schema.GreenTaxi()
	d.Columns[1].Name = d.Columns[0].Name
	assert.Error(t, d.Validate())

	d = schema.GreenTaxi()
	d.Provenance = []string{"month", "month"}
	assert.Error(t, d.Validate())

	d = schema.GreenTaxi()
	d.Columns = append(d.Columns, schema.Column{Name: "extra_col", Column: "extra_col"})
	assert.Error(t, d.Validate(), "unmapped column")
}

func TestCheckHeader(t *testing.T) {
	d := schema.GreenTaxi()
	fields := strings.Split(header, ",")
	assert.NoError(t, d.CheckHeader(fields))

	withBOM := append([]string{"\ufeff" + fields[0]}, fields[1:]...)
	assert.NoError(t, d.CheckHeader(withBOM))

	lower := make([]string, len(fields))
	for i, f := range fields {
		lower[i] = " " + strings.ToLower(f) + " "
	}
	assert.NoError(t, d.CheckHeader(lower))

	assert.Error(t, d.CheckHeader(fields[:19]))
	swapped := append([]string(nil), fields...)
	swapped[1], swapped[2] = swapped[2], swapped[1]
	assert.Error(t, d.CheckHeader(swapped))
}

func TestAssign(t *testing.T) {
	d := schema.GreenTaxi()
	var r entity.TripRecord
	require.NoError(t, d.Assign(&r, strings.Split(row, ","), time.UTC))

	require.NotNil(t, r.VendorID)
	assert.Equal(t, int64(2), *r.VendorID)
	assert.Equal(t, time.Date(2019, 1, 1, 0, 10, 16, 0, time.UTC), *r.PickupDatetime)
	assert.Equal(t, "N", *r.StoreAndFwdFlag)
	assert.Equal(t, int64(97), *r.PULocationID)
	assert.InDelta(t, 0.86, *r.TripDistance, 1e-9)
	assert.InDelta(t, 8.5, *r.TotalAmount, 1e-9)
	assert.Nil(t, r.EhailFee)
	assert.Nil(t, r.CongestionSurcharge)
}

func TestAssign_Errors(t *testing.T) {
	d := schema.GreenTaxi()
	fields := strings.Split(row, ",")

	var r entity.TripRecord
	assert.Error(t, d.Assign(&r, fields[:10], time.UTC))

	bad := append([]string(nil), fields...)
	bad[9] = "six"
	err := d.Assign(&r, bad, time.UTC)
	require.Error(t, err)
	assert.True(t, exception.IsParseError(err))

	missing := append([]string(nil), fields...)
	missing[1] = ""
	err = d.Assign(&r, missing, time.UTC)
	require.Error(t, err)
	assert.True(t, exception.IsParseError(err))
}
