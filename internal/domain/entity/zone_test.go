package entity_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tigerroll/greentaxi/internal/domain/entity"
)

func TestZoneTable(t *testing.T) {
	table := entity.NewZoneTable([]entity.Zone{
		{LocationID: 41, Borough: "Manhattan", Zone: "Central Harlem"},
		{LocationID: 7, Borough: "Queens", Zone: "Astoria"},
		{LocationID: 4, Borough: "Manhattan", Zone: "Alphabet City"},
		{LocationID: 17, Borough: "Brooklyn", Zone: "Bedford"},
		{LocationID: 7, Borough: "Queens", Zone: "Astoria Park"},
	})

	assert.Equal(t, 4, table.Len())
	assert.Equal(t, int64(41), table.MaxLocationID())
	assert.Equal(t, []string{"Manhattan", "Queens", "Brooklyn"}, table.Boroughs())

	z, ok := table.Lookup(7)
	assert.True(t, ok)
	assert.Equal(t, "Astoria Park", z.Zone)

	_, ok = table.Lookup(265)
	assert.False(t, ok)

	var got []int64
	for _, z := range table.Zones() {
		got = append(got, z.LocationID)
	}
	assert.Equal(t, []int64{4, 7, 17, 41}, got)
}

func TestZoneTable_Empty(t *testing.T) {
	var nilTable *entity.ZoneTable
	assert.Equal(t, 0, nilTable.Len())
	assert.Equal(t, int64(0), nilTable.MaxLocationID())
	assert.Empty(t, nilTable.Boroughs())
	_, ok := nilTable.Lookup(1)
	assert.False(t, ok)

	assert.Equal(t, int64(0), entity.NewZoneTable(nil).MaxLocationID())
}
