package engine

import (
	"fmt"

	"co2dash/internal/models"
)

const (
	DashboardTitle = "🌍 Interactive CO₂ Emissions Dashboard"
	DefaultFooter  = "Data: per-country CO₂ emissions, intensities and multipliers"
)

// Query is one interaction event: the sidebar selection plus display knobs.
type Query struct {
	Year    int
	Country string // "" or AllCountries disables the country filter
	TopN    int    // <= 0 means DefaultTopN
	Footer  string
}

// BuildMeta derives the page chrome from the full table: year slider bounds
// (defaulting to the latest year) and the country selector options.
func BuildMeta(t *TidyTable, footer string) models.Meta {
	if footer == "" {
		footer = DefaultFooter
	}
	lo, hi, _ := t.YearBounds()
	return models.Meta{
		Title:       DashboardTitle,
		YearMin:     lo,
		YearMax:     hi,
		DefaultYear: hi,
		Countries:   append([]string{AllCountries}, t.Countries()...),
		Footer:      footer,
	}
}

// BuildDashboard recomputes the filtered table and all five views, in order.
// An empty selection is reported through EmptySelection; every view is then
// empty except the global series, which ignores the filter.
func BuildDashboard(t *TidyTable, q Query) *models.DashboardData {
	topN := q.TopN
	if topN <= 0 {
		topN = DefaultTopN
	}
	country := q.Country
	if country == "" {
		country = AllCountries
	}

	filtered := Filter(t, q.Year, country)

	data := &models.DashboardData{
		Meta:           BuildMeta(t, q.Footer),
		Selection:      models.Selection{Year: q.Year, Country: country},
		EmptySelection: filtered.Len() == 0,
	}
	data.GlobalSeries = models.Chart[models.YearTotal]{
		Title: "Global CO₂ Emissions Over Time",
		Data:  YearTotalsModel(GlobalTimeSeries(t)),
	}
	data.TopEmitters = models.Chart[models.CountryTotal]{
		Title: fmt.Sprintf("Top %d CO₂ Emitting Countries in %d", topN, q.Year),
		Data:  CountryTotalsModel(TopEmitters(filtered, topN)),
	}
	data.Scatter = models.Chart[models.ScatterPoint]{
		Title: fmt.Sprintf("CO₂ Emissions vs Intensities in %d", q.Year),
		Data:  ScatterModel(IntensityScatter(filtered)),
	}
	data.Choropleth = models.Chart[models.ChoroplethCell]{
		Title: fmt.Sprintf("CO₂ Multipliers by Country in %d", q.Year),
		Data:  ChoroplethModel(MultiplierChoropleth(filtered)),
	}
	data.Correlation = CorrelationModel(Correlate(filtered))
	return data
}

// SelectionErr returns ErrEmptySelection when f has no rows.
func SelectionErr(f *TidyTable) error {
	if f.Len() == 0 {
		return ErrEmptySelection
	}
	return nil
}

// --- model conversion ---

func YearTotalsModel(in []YearTotal) []models.YearTotal {
	out := make([]models.YearTotal, len(in))
	for i, v := range in {
		out[i] = models.YearTotal{Year: v.Year, Emissions: models.NullFloat(v.Total)}
	}
	return out
}

func CountryTotalsModel(in []CountryTotal) []models.CountryTotal {
	out := make([]models.CountryTotal, len(in))
	for i, v := range in {
		out[i] = models.CountryTotal{Country: v.Country, Emissions: models.NullFloat(v.Total)}
	}
	return out
}

func ScatterModel(in []ScatterPoint) []models.ScatterPoint {
	out := make([]models.ScatterPoint, len(in))
	for i, v := range in {
		out[i] = models.ScatterPoint{
			Country:     v.Country,
			Intensities: models.NullFloat(v.Intensities),
			Emissions:   models.NullFloat(v.Emissions),
			Multipliers: models.NullFloat(v.Multipliers),
		}
	}
	return out
}

func ChoroplethModel(in []ChoroplethCell) []models.ChoroplethCell {
	out := make([]models.ChoroplethCell, len(in))
	for i, v := range in {
		out[i] = models.ChoroplethCell{
			ISO3:        v.ISO3,
			Multipliers: models.NullFloat(v.Multipliers),
			Country:     v.Country,
		}
	}
	return out
}

func CorrelationModel(m CorrelationMatrix) models.Correlation {
	c := models.Correlation{
		Title:  "Correlation Matrix of CO₂ Metrics",
		Labels: make([]string, len(m.Fields)),
		Values: make([][]models.NullFloat, len(m.Fields)),
	}
	for i, f := range m.Fields {
		c.Labels[i] = f.Name()
		c.Values[i] = make([]models.NullFloat, len(m.Fields))
		for j := range m.Fields {
			c.Values[i][j] = models.NullFloat(m.Values[i][j])
		}
	}
	return c
}

func TidyRowsModel(in []TidyRecord) []models.TidyRow {
	out := make([]models.TidyRow, len(in))
	for i, r := range in {
		out[i] = models.TidyRow{
			Country:     r.Country,
			ISO2:        r.ISO2,
			ISO3:        r.ISO3,
			Year:        r.Year,
			Emissions:   models.NullFloat(r.Emissions),
			Intensities: models.NullFloat(r.Intensities),
			Multipliers: models.NullFloat(r.Multipliers),
		}
	}
	return out
}
