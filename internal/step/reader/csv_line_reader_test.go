package reader_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tigerroll/greentaxi/internal/domain/schema"
	"github.com/tigerroll/greentaxi/internal/step/reader"
	"github.com/tigerroll/greentaxi/pkg/batch/core/application/port"
	testutil "github.com/tigerroll/greentaxi/pkg/batch/test"
)

const header = "VendorID,lpep_pickup_datetime,lpep_dropoff_datetime,store_and_fwd_flag,RatecodeID,PULocationID,DOLocationID,passenger_count,trip_distance,fare_amount,extra,mta_tax,tip_amount,tolls_amount,ehail_fee,improvement_surcharge,total_amount,payment_type,trip_type,congestion_surcharge"

const line = "2,2019-01-01 00:10:16,2019-01-01 00:16:32,N,1,97,49,2,.86,6,0.5,0.5,1.2,0,,0.3,8.5,1,1,"

func readAll(t *testing.T, r *reader.CSVLineReader) []reader.Line {
	t.Helper()
	var out []reader.Line
	for {
		l, err := r.Read(context.Background())
		if errors.Is(err, port.ErrNoMoreItems) {
			return out
		}
		require.NoError(t, err)
		out = append(out, l)
	}
}

func upload(t *testing.T, content string) *reader.CSVLineReader {
	t.Helper()
	conn, _ := testutil.NewLocalStorage(t)
	require.NoError(t, conn.Upload(context.Background(), "", "green.csv", strings.NewReader(content), "text/csv"))
	return reader.NewCSVLineReader(conn, "", "green.csv", schema.GreenTaxi())
}

func TestCSVLineReader_ReadsDataLines(t *testing.T) {
	r := upload(t, header+"\r\n"+line+"\r\n\r\n"+line+"\n")
	require.NoError(t, r.Open(context.Background()))
	defer r.Close(context.Background())

	lines := readAll(t, r)
	require.Len(t, lines, 2)
	assert.Equal(t, 0, lines[0].Index)
	assert.Equal(t, 1, lines[1].Index, "blank lines do not consume an index")
	assert.Len(t, lines[0].Fields, 20)
	assert.Equal(t, "", lines[0].Fields[19])
	assert.Equal(t, 2, r.LinesRead())
}

func TestCSVLineReader_HeaderOnly(t *testing.T) {
	r := upload(t, header+"\n")
	require.NoError(t, r.Open(context.Background()))
	assert.Empty(t, readAll(t, r))
	require.NoError(t, r.Close(context.Background()))
}

func TestCSVLineReader_EmptyFile(t *testing.T) {
	r := upload(t, "")
	require.NoError(t, r.Open(context.Background()))
	assert.Empty(t, readAll(t, r))
}

func TestCSVLineReader_HeaderMismatch(t *testing.T) {
	r := upload(t, "a,b,c\n1,2,3\n")
	err := r.Open(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not match")
	require.NoError(t, r.Close(context.Background()))
}

func TestCSVLineReader_MissingObject(t *testing.T) {
	conn, _ := testutil.NewLocalStorage(t)
	r := reader.NewCSVLineReader(conn, "", "absent.csv", schema.GreenTaxi())
	assert.Error(t, r.Open(context.Background()))
}

func TestCSVLineReader_CancelledContext(t *testing.T) {
	r := upload(t, header+"\n"+line+"\n")
	require.NoError(t, r.Open(context.Background()))
	defer r.Close(context.Background())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := r.Read(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
