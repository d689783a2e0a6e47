package engine

import (
	"math"
	"slices"
)

// Indicator names as they appear in the raw data.
const (
	IndicatorEmissions   = "CO2 emissions"
	IndicatorIntensities = "CO2 emissions intensities"
	IndicatorMultipliers = "CO2 emissions multipliers"
)

// Field identifies one of the three metric columns of the tidy table.
type Field int

const (
	FieldEmissions Field = iota
	FieldIntensities
	FieldMultipliers
)

// Fields lists the metric columns in canonical order.
var Fields = [3]Field{FieldEmissions, FieldIntensities, FieldMultipliers}

// Name returns the canonical column name.
func (f Field) Name() string {
	switch f {
	case FieldEmissions:
		return "CO2_Emissions"
	case FieldIntensities:
		return "CO2_Intensities"
	case FieldMultipliers:
		return "CO2_Multipliers"
	}
	return "unknown"
}

// fieldForIndicator maps an Indicator value to its tidy column.
func fieldForIndicator(indicator string) (Field, bool) {
	switch indicator {
	case IndicatorEmissions:
		return FieldEmissions, true
	case IndicatorIntensities:
		return FieldIntensities, true
	case IndicatorMultipliers:
		return FieldMultipliers, true
	}
	return 0, false
}

// Missing is the marker for an absent indicator value. It is NaN, so it must be
// tested with IsMissing, never with ==.
var Missing = math.NaN()

// IsMissing reports whether v is the Missing marker.
func IsMissing(v float64) bool { return math.IsNaN(v) }

// Entity is the identity triple of a country.
type Entity struct {
	Country string
	ISO2    string
	ISO3    string
}

// TidyRecord is one (Country, ISO2, ISO3, Year) row of the tidy table.
type TidyRecord struct {
	Country     string
	ISO2        string
	ISO3        string
	Year        int
	Emissions   float64
	Intensities float64
	Multipliers float64
}

// Value returns the metric held in field f.
func (r TidyRecord) Value(f Field) float64 {
	switch f {
	case FieldEmissions:
		return r.Emissions
	case FieldIntensities:
		return r.Intensities
	case FieldMultipliers:
		return r.Multipliers
	}
	return Missing
}

// TidyTable holds the tidy table in Struct-of-Arrays format.
// A table is never mutated after construction; filters build new tables that
// share the (read-only) entity dictionary.
type TidyTable struct {
	// Data Columns (Flat Arrays)
	Years       []int32
	Emissions   []float64
	Intensities []float64
	Multipliers []float64

	// Dictionary Encoded IDs (0..N)
	EntityIDs []int32

	// Dictionary (ID -> Entity)
	EntityDict []Entity
}

// Len returns the number of rows.
func (t *TidyTable) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Years)
}

// Row materializes row i.
func (t *TidyTable) Row(i int) TidyRecord {
	e := t.EntityDict[t.EntityIDs[i]]
	return TidyRecord{
		Country:     e.Country,
		ISO2:        e.ISO2,
		ISO3:        e.ISO3,
		Year:        int(t.Years[i]),
		Emissions:   t.Emissions[i],
		Intensities: t.Intensities[i],
		Multipliers: t.Multipliers[i],
	}
}

// Records materializes every row, in table order.
func (t *TidyTable) Records() []TidyRecord {
	out := make([]TidyRecord, t.Len())
	for i := range out {
		out[i] = t.Row(i)
	}
	return out
}

// Column returns the backing slice of metric f. Callers must not modify it.
func (t *TidyTable) Column(f Field) []float64 {
	switch f {
	case FieldEmissions:
		return t.Emissions
	case FieldIntensities:
		return t.Intensities
	case FieldMultipliers:
		return t.Multipliers
	}
	return nil
}

// YearBounds returns the smallest and largest Year present.
// ok is false for an empty table.
func (t *TidyTable) YearBounds() (lo, hi int, ok bool) {
	if t.Len() == 0 {
		return 0, 0, false
	}
	lo, hi = int(t.Years[0]), int(t.Years[0])
	for _, y := range t.Years[1:] {
		lo = min(lo, int(y))
		hi = max(hi, int(y))
	}
	return lo, hi, true
}

// Countries returns the sorted distinct Country values present in the table.
func (t *TidyTable) Countries() []string {
	if t.Len() == 0 {
		return []string{}
	}
	seen := make(map[string]struct{})
	out := make([]string, 0)
	for _, id := range t.EntityIDs {
		c := t.EntityDict[id].Country
		if _, ok := seen[c]; ok {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	slices.Sort(out)
	return out
}

// subset copies the rows at idx into a new table sharing the dictionary.
func (t *TidyTable) subset(idx []int) *TidyTable {
	out := &TidyTable{
		Years:       make([]int32, len(idx)),
		Emissions:   make([]float64, len(idx)),
		Intensities: make([]float64, len(idx)),
		Multipliers: make([]float64, len(idx)),
		EntityIDs:   make([]int32, len(idx)),
		EntityDict:  t.EntityDict,
	}
	for k, i := range idx {
		out.Years[k] = t.Years[i]
		out.Emissions[k] = t.Emissions[i]
		out.Intensities[k] = t.Intensities[i]
		out.Multipliers[k] = t.Multipliers[i]
		out.EntityIDs[k] = t.EntityIDs[i]
	}
	return out
}
