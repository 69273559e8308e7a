package entity

import "sort"

// Zone is one row of the taxi zone lookup table.
type Zone struct {
	LocationID  int64
	Borough     string
	Zone        string
	ServiceZone string
}

// ZoneTable indexes zones by location id.
type ZoneTable struct {
	byID map[int64]Zone
	// ordered by LocationID
	zones []Zone
}

// NewZoneTable builds a table from zones. Later duplicates of a location id win.
func NewZoneTable(zones []Zone) *ZoneTable {
	t := &ZoneTable{byID: make(map[int64]Zone, len(zones))}
	for _, z := range zones {
		t.byID[z.LocationID] = z
	}
	t.zones = make([]Zone, 0, len(t.byID))
	for _, z := range t.byID {
		t.zones = append(t.zones, z)
	}
	sort.Slice(t.zones, func(i, j int) bool { return t.zones[i].LocationID < t.zones[j].LocationID })
	return t
}

// Lookup returns the zone with the given id.
func (t *ZoneTable) Lookup(id int64) (Zone, bool) {
	if t == nil {
		return Zone{}, false
	}
	z, ok := t.byID[id]
	return z, ok
}

// Zones returns all zones ordered by location id. The slice must not be modified.
func (t *ZoneTable) Zones() []Zone {
	if t == nil {
		return nil
	}
	return t.zones
}

// Len returns the number of zones.
func (t *ZoneTable) Len() int {
	if t == nil {
		return 0
	}
	return len(t.zones)
}

// MaxLocationID returns the largest location id, or 0 for an empty table.
func (t *ZoneTable) MaxLocationID() int64 {
	if t.Len() == 0 {
		return 0
	}
	return t.zones[len(t.zones)-1].LocationID
}

// Boroughs returns the distinct borough names in order of first appearance by location id.
func (t *ZoneTable) Boroughs() []string {
	seen := make(map[string]struct{})
	var out []string
	for _, z := range t.Zones() {
		if _, ok := seen[z.Borough]; ok {
			continue
		}
		seen[z.Borough] = struct{}{}
		out = append(out, z.Borough)
	}
	return out
}
