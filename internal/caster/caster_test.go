package caster_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tigerroll/greentaxi/internal/caster"
	"github.com/tigerroll/greentaxi/pkg/batch/support/util/exception"
)

func TestCast_NullFields(t *testing.T) {
	for _, kind := range []caster.Kind{caster.KindInt, caster.KindFloat, caster.KindString, caster.KindTimestamp} {
		for _, raw := range []string{"", " ", "\t"} {
			v, err := caster.Cast(raw, kind)
			assert.NoError(t, err, "kind %v raw %q", kind, raw)
			assert.Nil(t, v, "kind %v raw %q", kind, raw)
		}
	}
}

func TestCast_Values(t *testing.T) {
	cases := []struct {
		raw  string
		kind caster.Kind
		want interface{}
	}{
		{"2", caster.KindInt, int64(2)},
		{" 42 ", caster.KindInt, int64(42)},
		{"-7", caster.KindInt, int64(-7)},
		{"12.5", caster.KindFloat, 12.5},
		{"3", caster.KindFloat, 3.0},
		{"-0.5", caster.KindFloat, -0.5},
		{"N", caster.KindString, "N"},
		{"2019-01-01 00:10:16", caster.KindTimestamp, time.Date(2019, 1, 1, 0, 10, 16, 0, time.UTC)},
	}
	for _, tc := range cases {
		got, err := caster.Cast(tc.raw, tc.kind)
		require.NoError(t, err, tc.raw)
		assert.Equal(t, tc.want, got, tc.raw)
	}
}

func TestCast_ParseErrors(t *testing.T) {
	cases := []struct {
		raw  string
		kind caster.Kind
	}{
		{"abc", caster.KindInt},
		{"1.5", caster.KindInt},
		{"abc", caster.KindFloat},
		{"1,5", caster.KindFloat},
		{"0x1p-2", caster.KindFloat},
		{"2019/01/01 00:00:00", caster.KindTimestamp},
		{"2019-01-01", caster.KindTimestamp},
	}
	for _, tc := range cases {
		_, err := caster.Cast(tc.raw, tc.kind)
		require.Error(t, err, tc.raw)
		assert.True(t, exception.IsParseError(err), tc.raw)
	}
}

func TestCast_UnknownKind(t *testing.T) {
	_, err := caster.Cast("1", caster.Kind(99))
	require.Error(t, err)
	assert.False(t, exception.IsParseError(err))
	assert.False(t, caster.Kind(99).Valid())
	assert.True(t, caster.KindTimestamp.Valid())
}

func TestCastField_NamesFieldAndUsesLocation(t *testing.T) {
	_, err := caster.CastField("trip_distance", "far", caster.KindFloat, time.UTC)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "trip_distance")

	ny, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)
	v, err := caster.CastField("lpep_pickup_datetime", "2019-01-01 00:00:00", caster.KindTimestamp, ny)
	require.NoError(t, err)
	assert.Equal(t, ny, v.(time.Time).Location())
}

func TestFormat_RoundTrip(t *testing.T) {
	for _, raw := range []string{"2", "12.5", "N", "2019-01-01 00:10:16"} {
		for _, kind := range []caster.Kind{caster.KindInt, caster.KindFloat, caster.KindString, caster.KindTimestamp} {
			v, err := caster.Cast(raw, kind)
			if err != nil {
				continue
			}
			again, err := caster.Cast(caster.Format(v), kind)
			require.NoError(t, err)
			assert.Equal(t, v, again, "raw %q kind %v", raw, kind)
		}
	}
	assert.Equal(t, "", caster.Format(nil))
}

func TestNullError(t *testing.T) {
	err := caster.NullError("id")
	assert.True(t, exception.IsParseError(err))
	assert.Contains(t, err.Error(), "id")
}
