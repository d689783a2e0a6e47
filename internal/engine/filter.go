package engine

// AllCountries is the country selector value that disables country filtering.
const AllCountries = "All"

// Filter keeps rows from year and, unless country is "" or AllCountries, from
// that Country only. No match yields an empty table, never an error.
func Filter(t *TidyTable, year int, country string) *TidyTable {
	if t == nil {
		return &TidyTable{}
	}
	byCountry := country != "" && country != AllCountries

	idx := make([]int, 0)
	for i, y := range t.Years {
		if int(y) != year {
			continue
		}
		if byCountry && t.EntityDict[t.EntityIDs[i]].Country != country {
			continue
		}
		idx = append(idx, i)
	}
	return t.subset(idx)
}

// FilterCountry keeps every year of one Country. "" or AllCountries returns t.
func FilterCountry(t *TidyTable, country string) *TidyTable {
	if t == nil {
		return &TidyTable{}
	}
	if country == "" || country == AllCountries {
		return t
	}
	idx := make([]int, 0)
	for i, id := range t.EntityIDs {
		if t.EntityDict[id].Country == country {
			idx = append(idx, i)
		}
	}
	return t.subset(idx)
}
