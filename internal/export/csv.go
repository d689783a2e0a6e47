package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"co2dash/internal/engine"
)

// CSVHeader is the header row of the tidy CSV.
var CSVHeader = []string{
	engine.ColCountry, engine.ColISO2, engine.ColISO3, "Year",
	engine.FieldEmissions.Name(), engine.FieldIntensities.Name(), engine.FieldMultipliers.Name(),
}

func formatValue(v float64) string {
	if engine.IsMissing(v) {
		return ""
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// WriteCSV writes t as long-format CSV. Missing values are empty cells.
func WriteCSV(w io.Writer, t *engine.TidyTable) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(CSVHeader); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}

	row := make([]string, len(CSVHeader))
	for i := 0; i < t.Len(); i++ {
		r := t.Row(i)
		row[0], row[1], row[2] = r.Country, r.ISO2, r.ISO3
		row[3] = strconv.Itoa(r.Year)
		row[4] = formatValue(r.Emissions)
		row[5] = formatValue(r.Intensities)
		row[6] = formatValue(r.Multipliers)
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write csv row %d: %w", i, err)
		}
	}

	cw.Flush()
	return cw.Error()
}
