package engine

import (
	"slices"
)

// DefaultTopN is the number of countries in the top emitters ranking.
const DefaultTopN = 10

// YearTotal is one point of the global time series.
type YearTotal struct {
	Year  int
	Total float64
}

// CountryTotal is one bar of the top emitters chart.
type CountryTotal struct {
	Country string
	Total   float64
}

// ScatterPoint is one row of the intensity scatter.
type ScatterPoint struct {
	Country     string
	Intensities float64
	Emissions   float64
	Multipliers float64
}

// ChoroplethCell is one row of the multiplier map.
type ChoroplethCell struct {
	ISO3        string
	Multipliers float64
	Country     string
}

// sumAcc sums non-missing values. An accumulator that saw no value totals Missing.
type sumAcc struct {
	sum float64
	n   int
}

func (a *sumAcc) add(v float64) {
	if IsMissing(v) {
		return
	}
	a.sum += v
	a.n++
}

func (a sumAcc) total() float64 {
	if a.n == 0 {
		return Missing
	}
	return a.sum
}

// GlobalTimeSeries sums CO2_Emissions per Year over the whole table, ascending
// by Year. Every Year present gets an entry; one without any emissions value
// totals Missing. Callers pass the unfiltered table.
func GlobalTimeSeries(t *TidyTable) []YearTotal {
	if t.Len() == 0 {
		return []YearTotal{}
	}
	byYear := make(map[int32]*sumAcc)
	for i, y := range t.Years {
		acc := byYear[y]
		if acc == nil {
			acc = &sumAcc{}
			byYear[y] = acc
		}
		acc.add(t.Emissions[i])
	}

	out := make([]YearTotal, 0, len(byYear))
	for y, acc := range byYear {
		out = append(out, YearTotal{Year: int(y), Total: acc.total()})
	}
	slices.SortFunc(out, func(a, b YearTotal) int { return a.Year - b.Year })
	return out
}

// TopEmitters sums CO2_Emissions per Country and returns the n largest totals,
// descending. Equal totals keep first-seen order. Countries without any
// emissions value are not ranked.
func TopEmitters(t *TidyTable, n int) []CountryTotal {
	if n <= 0 || t.Len() == 0 {
		return []CountryTotal{}
	}

	pos := make(map[string]int)
	accs := make([]sumAcc, 0)
	names := make([]string, 0)
	for i, id := range t.EntityIDs {
		c := t.EntityDict[id].Country
		p, ok := pos[c]
		if !ok {
			p = len(accs)
			pos[c] = p
			accs = append(accs, sumAcc{})
			names = append(names, c)
		}
		accs[p].add(t.Emissions[i])
	}

	out := make([]CountryTotal, 0, len(accs))
	for p, acc := range accs {
		if acc.n == 0 {
			continue
		}
		out = append(out, CountryTotal{Country: names[p], Total: acc.sum})
	}

	slices.SortStableFunc(out, func(a, b CountryTotal) int {
		switch {
		case a.Total > b.Total:
			return -1
		case a.Total < b.Total:
			return 1
		}
		return 0
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}

// IntensityScatter projects every row to a scatter point.
func IntensityScatter(t *TidyTable) []ScatterPoint {
	out := make([]ScatterPoint, t.Len())
	for i := range out {
		out[i] = ScatterPoint{
			Country:     t.EntityDict[t.EntityIDs[i]].Country,
			Intensities: t.Intensities[i],
			Emissions:   t.Emissions[i],
			Multipliers: t.Multipliers[i],
		}
	}
	return out
}

// MultiplierChoropleth projects every row to a map cell keyed by ISO3.
func MultiplierChoropleth(t *TidyTable) []ChoroplethCell {
	out := make([]ChoroplethCell, t.Len())
	for i := range out {
		e := t.EntityDict[t.EntityIDs[i]]
		out[i] = ChoroplethCell{
			ISO3:        e.ISO3,
			Multipliers: t.Multipliers[i],
			Country:     e.Country,
		}
	}
	return out
}
