package repository

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/tigerroll/greentaxi/internal/domain/entity"
	"github.com/tigerroll/greentaxi/pkg/batch/adapter/storage"
	"github.com/tigerroll/greentaxi/pkg/batch/support/util/exception"
)

var zoneHeader = []string{"LocationID", "Borough", "Zone", "service_zone"}

// LoadZones reads the zone lookup CSV (quoted, with header) from object in conn.
func LoadZones(ctx context.Context, conn storage.StorageConnection, object string) (*entity.ZoneTable, error) {
	body, err := conn.Download(ctx, "", object)
	if err != nil {
		return nil, exception.NewBatchError(moduleName, "failed to open zone lookup "+conn.URI("", object), err, false, false)
	}
	defer body.Close()

	zones, err := ParseZones(body)
	if err != nil {
		return nil, exception.NewBatchError(moduleName, "invalid zone lookup "+conn.URI("", object), err, false, false)
	}
	return entity.NewZoneTable(zones), nil
}

// ParseZones decodes the zone lookup CSV. Columns are located by header name.
func ParseZones(r io.Reader) ([]entity.Zone, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	idx := make(map[string]int, len(header))
	for i, h := range header {
		idx[strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))] = i
	}
	pos := make([]int, len(zoneHeader))
	for i, name := range zoneHeader {
		p, ok := idx[name]
		if !ok {
			return nil, fmt.Errorf("missing column '%s'", name)
		}
		pos[i] = p
	}

	var zones []entity.Zone
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		field := func(i int) string {
			if pos[i] >= len(rec) {
				return ""
			}
			return strings.TrimSpace(rec[pos[i]])
		}
		id, err := strconv.ParseInt(field(0), 10, 64)
		if err != nil {
			return nil, exception.NewParseError(moduleName, "LocationID", field(0), err)
		}
		zones = append(zones, entity.Zone{
			LocationID:  id,
			Borough:     field(1),
			Zone:        field(2),
			ServiceZone: field(3),
		})
	}
	return zones, nil
}
