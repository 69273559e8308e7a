package analytics

import (
	"sort"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/tigerroll/greentaxi/internal/domain/entity"
)

// DefaultFlowSource is the flow source borough when none is selected.
const DefaultFlowSource = "Manhattan"

// PaymentLabels maps TLC payment type codes to labels.
var PaymentLabels = map[int64]string{
	1: "Credit card",
	2: "Cash",
	3: "No charge",
	4: "Dispute",
	5: "Unknown",
	6: "Voided trip",
}

// PaymentLabel returns the label of code, or the code itself when it has none.
func PaymentLabel(code int64) string {
	if l, ok := PaymentLabels[code]; ok {
		return l
	}
	return strconv.FormatInt(code, 10)
}

// ZoneCount is the leaf of a hierarchy.
type ZoneCount struct {
	Zone  string `json:"zone"`
	Count int    `json:"count"`
}

// BoroughNode is one borough of a hierarchy with its zones.
type BoroughNode struct {
	Borough string      `json:"borough"`
	Count   int         `json:"count"`
	Zones   []ZoneCount `json:"zones"`
}

// FlowLink is one weighted edge between two label indices.
type FlowLink struct {
	Source int `json:"source"`
	Target int `json:"target"`
	Value  int `json:"value"`
}

// Flow is a two-stage flow diagram: source borough to drop-off boroughs, then drop-off
// boroughs to their zones.
type Flow struct {
	SourceBorough string     `json:"source_borough"`
	Labels        []string   `json:"labels"`
	Links         []FlowLink `json:"links"`
}

// SeriesPoint is one weekday value.
type SeriesPoint struct {
	Weekday int     `json:"weekday"`
	Value   float64 `json:"value"`
}

// Series is one line of a weekday chart.
type Series struct {
	Key    string        `json:"key"`
	Points []SeriesPoint `json:"points"`
}

// KPIs are the scalar totals. Sums are rounded half to even.
type KPIs struct {
	TripCount       int64 `json:"trip_count"`
	TotalDistance   int64 `json:"total_distance"`
	TotalAmount     int64 `json:"total_amount"`
	TotalPassengers int64 `json:"total_passengers"`
}

type side int

const (
	pickupSide side = iota
	dropoffSide
)

func (s side) borough(r *entity.AnalyticalRow) *string {
	if s == pickupSide {
		return r.PUBorough
	}
	return r.DOBorough
}

func (s side) zone(r *entity.AnalyticalRow) *string {
	if s == pickupSide {
		return r.PUZone
	}
	return r.DOZone
}

// Hierarchy counts rows per borough and zone on one side. Rows with a nil borough or zone
// are left out. Boroughs and zones are sorted by name.
func hierarchy(rows []entity.AnalyticalRow, s side) []BoroughNode {
	counts := make(map[string]map[string]int)
	for i := range rows {
		b, z := s.borough(&rows[i]), s.zone(&rows[i])
		if b == nil || z == nil {
			continue
		}
		zc, ok := counts[*b]
		if !ok {
			zc = make(map[string]int)
			counts[*b] = zc
		}
		zc[*z]++
	}

	out := make([]BoroughNode, 0, len(counts))
	for b, zc := range counts {
		node := BoroughNode{Borough: b, Zones: make([]ZoneCount, 0, len(zc))}
		for z, n := range zc {
			node.Zones = append(node.Zones, ZoneCount{Zone: z, Count: n})
			node.Count += n
		}
		sort.Slice(node.Zones, func(i, j int) bool { return node.Zones[i].Zone < node.Zones[j].Zone })
		out = append(out, node)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Borough < out[j].Borough })
	return out
}

// PickupHierarchy counts rows per pickup borough and zone.
func PickupHierarchy(rows []entity.AnalyticalRow) []BoroughNode { return hierarchy(rows, pickupSide) }

// DropoffHierarchy counts rows per drop-off borough and zone.
func DropoffHierarchy(rows []entity.AnalyticalRow) []BoroughNode { return hierarchy(rows, dropoffSide) }

// FlowLabels returns the unified label array of zones: index i < offset is the zone with
// location id i (empty when there is none), and offset+k is the k-th borough.
// offset is one past the largest location id.
func FlowLabels(zones *entity.ZoneTable) (labels []string, offset int, boroughIndex map[string]int) {
	offset = int(zones.MaxLocationID()) + 1
	boroughs := zones.Boroughs()
	labels = make([]string, offset+len(boroughs))
	for _, z := range zones.Zones() {
		if z.LocationID >= 0 {
			labels[z.LocationID] = z.Zone
		}
	}
	boroughIndex = make(map[string]int, len(boroughs))
	for k, b := range boroughs {
		labels[offset+k] = b
		boroughIndex[b] = offset + k
	}
	return labels, offset, boroughIndex
}

// zoneIndex maps (borough, zone name) to the smallest location id carrying it.
func zoneIndex(zones *entity.ZoneTable) map[[2]string]int {
	idx := make(map[[2]string]int)
	for _, z := range zones.Zones() {
		key := [2]string{z.Borough, z.Zone}
		if _, ok := idx[key]; !ok {
			idx[key] = int(z.LocationID)
		}
	}
	return idx
}

// CrossBoroughFlow selects rows picked up in source and dropped off in another borough.
// Stage one links source to each drop-off borough; stage two links each drop-off borough
// to its drop-off zones. Links are sorted by source then target.
func CrossBoroughFlow(rows []entity.AnalyticalRow, zones *entity.ZoneTable, source string) Flow {
	if source == "" {
		source = DefaultFlowSource
	}
	labels, _, boroughIdx := FlowLabels(zones)
	zoneIdx := zoneIndex(zones)

	stage1 := make(map[string]int)
	stage2 := make(map[[2]string]int)
	for i := range rows {
		r := &rows[i]
		if r.PUBorough == nil || *r.PUBorough != source || r.DOBorough == nil || *r.DOBorough == source {
			continue
		}
		stage1[*r.DOBorough]++
		if r.DOZone != nil {
			stage2[[2]string{*r.DOBorough, *r.DOZone}]++
		}
	}

	flow := Flow{SourceBorough: source, Labels: labels, Links: []FlowLink{}}
	srcIdx, ok := boroughIdx[source]
	if !ok {
		return flow
	}
	for b, n := range stage1 {
		if t, ok := boroughIdx[b]; ok {
			flow.Links = append(flow.Links, FlowLink{Source: srcIdx, Target: t, Value: n})
		}
	}
	for key, n := range stage2 {
		s, ok1 := boroughIdx[key[0]]
		t, ok2 := zoneIdx[key]
		if ok1 && ok2 {
			flow.Links = append(flow.Links, FlowLink{Source: s, Target: t, Value: n})
		}
	}
	sort.Slice(flow.Links, func(i, j int) bool {
		if flow.Links[i].Source != flow.Links[j].Source {
			return flow.Links[i].Source < flow.Links[j].Source
		}
		return flow.Links[i].Target < flow.Links[j].Target
	})
	return flow
}

type weekdaySums map[string]*[7]decimal.Decimal

func (w weekdaySums) add(key string, weekday int, v decimal.Decimal) {
	if weekday < 0 || weekday > 6 {
		return
	}
	s, ok := w[key]
	if !ok {
		s = new([7]decimal.Decimal)
		w[key] = s
	}
	s[weekday] = s[weekday].Add(v)
}

// series emits one Series per key sorted by key, with a point for every weekday that
// has at least one row.
func (w weekdaySums) series(present map[string]*[7]bool, places int32) []Series {
	keys := make([]string, 0, len(w))
	for k := range w {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]Series, 0, len(keys))
	for _, k := range keys {
		s := Series{Key: k, Points: []SeriesPoint{}}
		for d := 0; d < 7; d++ {
			if !present[k][d] {
				continue
			}
			s.Points = append(s.Points, SeriesPoint{Weekday: d, Value: w[k][d].Round(places).InexactFloat64()})
		}
		out = append(out, s)
	}
	return out
}

func weekdayCounts(rows []entity.AnalyticalRow, s side) []Series {
	sums := weekdaySums{}
	present := make(map[string]*[7]bool)
	one := decimal.NewFromInt(1)
	for i := range rows {
		b := s.borough(&rows[i])
		if b == nil {
			continue
		}
		sums.add(*b, rows[i].Weekday, one)
		markPresent(present, *b, rows[i].Weekday)
	}
	return sums.series(present, 0)
}

func markPresent(present map[string]*[7]bool, key string, weekday int) {
	if weekday < 0 || weekday > 6 {
		return
	}
	p, ok := present[key]
	if !ok {
		p = new([7]bool)
		present[key] = p
	}
	p[weekday] = true
}

// PickupWeekdaySeries counts rows per pickup borough and weekday.
func PickupWeekdaySeries(rows []entity.AnalyticalRow) []Series {
	return weekdayCounts(rows, pickupSide)
}

// DropoffWeekdaySeries counts rows per drop-off borough and weekday.
func DropoffWeekdaySeries(rows []entity.AnalyticalRow) []Series {
	return weekdayCounts(rows, dropoffSide)
}

// PaymentSeries sums total amount per payment label and weekday, rounded to cents.
// Rows without a payment type are left out; a missing amount counts as zero.
func PaymentSeries(rows []entity.AnalyticalRow) []Series {
	sums := weekdaySums{}
	present := make(map[string]*[7]bool)
	for i := range rows {
		r := &rows[i]
		if r.PaymentType == nil {
			continue
		}
		label := PaymentLabel(*r.PaymentType)
		amount := decimal.Zero
		if r.TotalAmount != nil {
			amount = decimal.NewFromFloat(*r.TotalAmount)
		}
		sums.add(label, r.Weekday, amount)
		markPresent(present, label, r.Weekday)
	}
	return sums.series(present, 2)
}

// ComputeKPIs totals the rows. Nil values are skipped; every row counts as a trip.
func ComputeKPIs(rows []entity.AnalyticalRow) KPIs {
	distance, amount, passengers := decimal.Zero, decimal.Zero, decimal.Zero
	for i := range rows {
		r := &rows[i]
		if r.TripDistance != nil {
			distance = distance.Add(decimal.NewFromFloat(*r.TripDistance))
		}
		if r.TotalAmount != nil {
			amount = amount.Add(decimal.NewFromFloat(*r.TotalAmount))
		}
		if r.PassengerCount != nil {
			passengers = passengers.Add(decimal.NewFromInt(*r.PassengerCount))
		}
	}
	return KPIs{
		TripCount:       int64(len(rows)),
		TotalDistance:   distance.RoundBank(0).IntPart(),
		TotalAmount:     amount.RoundBank(0).IntPart(),
		TotalPassengers: passengers.IntPart(),
	}
}
