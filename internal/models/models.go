package models

import (
	"math"
	"strconv"
)

// NullFloat is a float that encodes NaN (a missing value) as JSON null.
type NullFloat float64

func (f NullFloat) MarshalJSON() ([]byte, error) {
	v := float64(f)
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return []byte("null"), nil
	}
	return strconv.AppendFloat(nil, v, 'g', -1, 64), nil
}

func (f *NullFloat) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*f = NullFloat(math.NaN())
		return nil
	}
	v, err := strconv.ParseFloat(string(b), 64)
	if err != nil {
		return err
	}
	*f = NullFloat(v)
	return nil
}

// Valid reports whether f holds a value.
func (f NullFloat) Valid() bool { return !math.IsNaN(float64(f)) }

type DashboardData struct {
	Meta           Meta                  `json:"meta"`
	Selection      Selection             `json:"selection"`
	EmptySelection bool                  `json:"empty_selection"`
	GlobalSeries   Chart[YearTotal]      `json:"global_emissions"`
	TopEmitters    Chart[CountryTotal]   `json:"top_emitters"`
	Scatter        Chart[ScatterPoint]   `json:"intensity_scatter"`
	Choropleth     Chart[ChoroplethCell] `json:"multiplier_choropleth"`
	Correlation    Correlation           `json:"correlation"`
}

// Meta is the page chrome: title, sidebar controls and footer.
type Meta struct {
	Title       string   `json:"title"`
	YearMin     int      `json:"year_min"`
	YearMax     int      `json:"year_max"`
	DefaultYear int      `json:"default_year"`
	Countries   []string `json:"countries"`
	Footer      string   `json:"footer"`
}

type Selection struct {
	Year    int    `json:"year"`
	Country string `json:"country"`
}

type Chart[T any] struct {
	Title string `json:"title"`
	Data  []T    `json:"data"`
}

type YearTotal struct {
	Year      int       `json:"year"`
	Emissions NullFloat `json:"co2_emissions"`
}

type CountryTotal struct {
	Country   string    `json:"country"`
	Emissions NullFloat `json:"co2_emissions"`
}

type ScatterPoint struct {
	Country     string    `json:"country"`
	Intensities NullFloat `json:"co2_intensities"`
	Emissions   NullFloat `json:"co2_emissions"`
	Multipliers NullFloat `json:"co2_multipliers"`
}

type ChoroplethCell struct {
	ISO3        string    `json:"iso3"`
	Multipliers NullFloat `json:"co2_multipliers"`
	Country     string    `json:"country"`
}

type Correlation struct {
	Title  string        `json:"title"`
	Labels []string      `json:"labels"`
	Values [][]NullFloat `json:"values"`
}

type TidyRow struct {
	Country     string    `json:"country"`
	ISO2        string    `json:"iso2"`
	ISO3        string    `json:"iso3"`
	Year        int       `json:"year"`
	Emissions   NullFloat `json:"co2_emissions"`
	Intensities NullFloat `json:"co2_intensities"`
	Multipliers NullFloat `json:"co2_multipliers"`
}

type Page[T any] struct {
	Data   []T `json:"data"`
	Total  int `json:"total"`
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

// View wraps a single chart's data with the selection it was computed for.
type View struct {
	Selection      Selection `json:"selection"`
	EmptySelection bool      `json:"empty_selection"`
	Title          string    `json:"title,omitempty"`
	Data           any       `json:"data"`
}
