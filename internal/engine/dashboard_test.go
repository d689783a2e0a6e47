package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildMeta(t *testing.T) {
	meta := BuildMeta(testStore(), "")

	assert.Equal(t, DashboardTitle, meta.Title)
	assert.Equal(t, 2000, meta.YearMin)
	assert.Equal(t, 2002, meta.YearMax)
	assert.Equal(t, 2002, meta.DefaultYear)
	assert.Equal(t, []string{"All", "Alpha", "Beta", "Gamma"}, meta.Countries)
	assert.Equal(t, DefaultFooter, meta.Footer)
}

func TestBuildMeta_NilTable(t *testing.T) {
	var table *TidyTable
	assert.Empty(t, table.Countries())

	meta := BuildMeta(table, "")
	assert.Equal(t, []string{AllCountries}, meta.Countries)
	assert.Equal(t, 0, meta.YearMax)
}

func TestBuildDashboard(t *testing.T) {
	data := BuildDashboard(testStore(), Query{Year: 2000, Country: "Beta", TopN: 5})

	assert.False(t, data.EmptySelection)
	assert.Equal(t, "Beta", data.Selection.Country)
	assert.Equal(t, "Top 5 CO₂ Emitting Countries in 2000", data.TopEmitters.Title)

	// Global series ignores the filter.
	require.Len(t, data.GlobalSeries.Data, 3)

	require.Len(t, data.TopEmitters.Data, 1)
	assert.Equal(t, "Beta", data.TopEmitters.Data[0].Country)
	assert.EqualValues(t, 50, data.TopEmitters.Data[0].Emissions)

	require.Len(t, data.Scatter.Data, 1)
	require.Len(t, data.Choropleth.Data, 1)
	assert.Equal(t, "BET", data.Choropleth.Data[0].ISO3)

	assert.Equal(t, []string{"CO2_Emissions", "CO2_Intensities", "CO2_Multipliers"}, data.Correlation.Labels)
	assert.EqualValues(t, 1, data.Correlation.Values[0][0])
	assert.False(t, data.Correlation.Values[0][1].Valid())
}

func TestBuildDashboard_EmptySelection(t *testing.T) {
	data := BuildDashboard(testStore(), Query{Year: 1850})

	assert.True(t, data.EmptySelection)
	assert.Equal(t, AllCountries, data.Selection.Country)
	assert.Equal(t, "Top 10 CO₂ Emitting Countries in 1850", data.TopEmitters.Title)
	assert.NotEmpty(t, data.GlobalSeries.Data)
	assert.Empty(t, data.TopEmitters.Data)
	assert.Empty(t, data.Scatter.Data)
	assert.Empty(t, data.Choropleth.Data)
	for _, row := range data.Correlation.Values {
		for _, v := range row {
			assert.False(t, v.Valid())
		}
	}
}
