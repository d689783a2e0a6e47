package engine

import (
	"cmp"
	"slices"
)

// LongRecord is one melted cell: a single indicator value for one year.
// Value holds whichever indicator Indicator names.
type LongRecord struct {
	Country   string
	ISO2      string
	ISO3      string
	Indicator string
	Year      int
	Value     float64
}

// ReshapeStats counts what happened during Reshape.
type ReshapeStats struct {
	RawRows           int
	LongRows          int
	TidyRows          int
	UnknownIndicators int // (entity, indicator) pairs naming no known column
	Duplicates        int // (key, indicator) cells fed by more than one value
	DroppedKeys       int // keys with every indicator Missing
}

// Melt turns each (record, year) cell into a LongRecord, record-major.
func Melt(raw *RawTable) []LongRecord {
	out := make([]LongRecord, 0, len(raw.Records)*len(raw.Years))
	for _, r := range raw.Records {
		for k, year := range raw.Years {
			out = append(out, LongRecord{
				Country:   r.Country,
				ISO2:      r.ISO2,
				ISO3:      r.ISO3,
				Indicator: r.Indicator,
				Year:      year,
				Value:     r.Values[k],
			})
		}
	}
	return out
}

type pivotKey struct {
	entity Entity
	year   int
}

// cellAcc averages the non-missing values fed to one (key, indicator) cell.
type cellAcc struct {
	sum  float64
	n    int // non-missing values
	seen int // all values, Missing included
}

func (c *cellAcc) add(v float64) {
	c.seen++
	if IsMissing(v) {
		return
	}
	c.sum += v
	c.n++
}

func (c *cellAcc) value() float64 {
	if c.n == 0 {
		return Missing
	}
	return c.sum / float64(c.n)
}

// Pivot groups long rows by (Country, ISO2, ISO3, Year) and spreads the
// indicators into columns. Several values for one cell are averaged, skipping
// Missing. Keys with no value in any column are dropped. Rows are ordered by
// Country, ISO2, ISO3, then Year.
func Pivot(long []LongRecord) (*TidyTable, ReshapeStats) {
	stats := ReshapeStats{LongRows: len(long)}
	groups := make(map[pivotKey]*[3]cellAcc)
	unknown := make(map[Entity]map[string]struct{})

	for _, lr := range long {
		f, ok := fieldForIndicator(lr.Indicator)
		if !ok {
			e := Entity{lr.Country, lr.ISO2, lr.ISO3}
			if unknown[e] == nil {
				unknown[e] = make(map[string]struct{})
			}
			unknown[e][lr.Indicator] = struct{}{}
			continue
		}
		k := pivotKey{Entity{lr.Country, lr.ISO2, lr.ISO3}, lr.Year}
		acc := groups[k]
		if acc == nil {
			acc = new([3]cellAcc)
			groups[k] = acc
		}
		acc[f].add(lr.Value)
	}
	for _, inds := range unknown {
		stats.UnknownIndicators += len(inds)
	}

	keys := make([]pivotKey, 0, len(groups))
	for k, acc := range groups {
		for f := range acc {
			if acc[f].seen > 1 {
				stats.Duplicates++
			}
		}
		if acc[FieldEmissions].n == 0 && acc[FieldIntensities].n == 0 && acc[FieldMultipliers].n == 0 {
			stats.DroppedKeys++
			continue
		}
		keys = append(keys, k)
	}
	slices.SortFunc(keys, func(a, b pivotKey) int {
		return cmp.Or(
			cmp.Compare(a.entity.Country, b.entity.Country),
			cmp.Compare(a.entity.ISO2, b.entity.ISO2),
			cmp.Compare(a.entity.ISO3, b.entity.ISO3),
			cmp.Compare(a.year, b.year),
		)
	})

	n := len(keys)
	t := &TidyTable{
		Years:       make([]int32, n),
		Emissions:   make([]float64, n),
		Intensities: make([]float64, n),
		Multipliers: make([]float64, n),
		EntityIDs:   make([]int32, n),
	}
	dictIDs := make(map[Entity]int32)
	for i, k := range keys {
		id, ok := dictIDs[k.entity]
		if !ok {
			id = int32(len(t.EntityDict))
			t.EntityDict = append(t.EntityDict, k.entity)
			dictIDs[k.entity] = id
		}
		acc := groups[k]
		t.EntityIDs[i] = id
		t.Years[i] = int32(k.year)
		t.Emissions[i] = acc[FieldEmissions].value()
		t.Intensities[i] = acc[FieldIntensities].value()
		t.Multipliers[i] = acc[FieldMultipliers].value()
	}
	stats.TidyRows = n
	return t, stats
}

// Reshape runs melt then pivot over a parsed input.
func Reshape(raw *RawTable) (*TidyTable, ReshapeStats) {
	t, stats := Pivot(Melt(raw))
	stats.RawRows = len(raw.Records)
	return t, stats
}
