package engine

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/zeebo/xxh3"
)

// Identity column headers, matched verbatim.
const (
	ColCountry   = "Country"
	ColISO2      = "ISO2"
	ColISO3      = "ISO3"
	ColIndicator = "Indicator"
)

// missingTokens are cell values read as Missing rather than rejected.
var missingTokens = map[string]struct{}{
	"": {}, "NA": {}, "N/A": {}, "NaN": {}, "nan": {}, "-nan": {},
	"null": {}, "NULL": {}, "#N/A": {},
}

// RawRecord is one input row: a country's values for one indicator.
// Values is aligned with RawTable.Years.
type RawRecord struct {
	Country   string
	ISO2      string
	ISO3      string
	Indicator string
	Values    []float64
}

// RawTable is the parsed wide-format input.
type RawTable struct {
	Years   []int
	Records []RawRecord
}

// Snapshot is the outcome of one successful load.
type Snapshot struct {
	Path        string
	Table       *TidyTable
	Stats       ReshapeStats
	Fingerprint uint64
	LoadedAt    time.Time
	Elapsed     time.Duration
}

// isYearHeader reports whether a header consists solely of ASCII digits.
func isYearHeader(h string) bool {
	if h == "" {
		return false
	}
	for i := 0; i < len(h); i++ {
		if h[i] < '0' || h[i] > '9' {
			return false
		}
	}
	return true
}

// parseValue parses one year cell. Missing tokens yield Missing.
func parseValue(s string) (float64, bool) {
	if _, ok := missingTokens[s]; ok {
		return Missing, true
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// ParseRaw reads wide-format CSV from r. path is used only in errors.
func ParseRaw(r io.Reader, path string) (*RawTable, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.ReuseRecord = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, loadErr(path, "read header", ErrEmptyInput)
	}
	if err != nil {
		return nil, loadErr(path, "read header", err)
	}
	header = append([]string(nil), header...)
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}

	// Duplicate headers keep their first position only.
	index := make(map[string]int, len(header))
	for i, h := range header {
		if _, dup := index[h]; !dup {
			index[h] = i
		}
	}

	idCols := [4]int{}
	for k, name := range []string{ColCountry, ColISO2, ColISO3, ColIndicator} {
		i, ok := index[name]
		if !ok {
			return nil, loadErr(path, "header", fmt.Errorf("%w: %q", ErrMissingColumn, name))
		}
		idCols[k] = i
	}

	table := &RawTable{}
	var yearCols []int
	for i, h := range header {
		if index[h] != i || !isYearHeader(h) {
			continue
		}
		// Years are stored as int32 in the tidy table.
		y, err := strconv.ParseInt(h, 10, 32)
		if err != nil {
			return nil, loadErr(path, "header", fmt.Errorf("year column %q: %w", h, err))
		}
		yearCols = append(yearCols, i)
		table.Years = append(table.Years, int(y))
	}

	cell := func(rec []string, i int) string {
		if i < len(rec) {
			return rec[i]
		}
		return ""
	}

	for {
		rec, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, loadErr(path, "read rows", err)
		}

		raw := RawRecord{
			Country:   cell(rec, idCols[0]),
			ISO2:      cell(rec, idCols[1]),
			ISO3:      cell(rec, idCols[2]),
			Indicator: cell(rec, idCols[3]),
			Values:    make([]float64, len(yearCols)),
		}
		for k, col := range yearCols {
			v, ok := parseValue(cell(rec, col))
			if !ok {
				// a short row reads as "", which always parses
				line, _ := reader.FieldPos(col)
				return nil, loadErr(path, "parse",
					fmt.Errorf("%w: line %d column %q: %q", ErrBadValue, line, header[col], cell(rec, col)))
			}
			raw.Values[k] = v
		}
		table.Records = append(table.Records, raw)
	}

	return table, nil
}

// LoadFile reads and reshapes the CSV at path.
func LoadFile(path string) (*Snapshot, error) {
	start := time.Now()
	slog.Info("loading emissions data", "path", path)

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, loadErr(path, "open", err)
	}

	raw, err := ParseRaw(bytes.NewReader(content), path)
	if err != nil {
		return nil, err
	}

	table, stats := Reshape(raw)

	snap := &Snapshot{
		Path:        path,
		Table:       table,
		Stats:       stats,
		Fingerprint: xxh3.Hash(content),
		LoadedAt:    time.Now(),
		Elapsed:     time.Since(start),
	}

	slog.Info("load complete",
		"raw_rows", stats.RawRows,
		"long_rows", stats.LongRows,
		"tidy_rows", stats.TidyRows,
		"year_columns", len(raw.Years),
		"elapsed", snap.Elapsed,
	)
	if stats.UnknownIndicators > 0 {
		slog.Warn("ignored rows with unknown indicator", "rows", stats.UnknownIndicators)
	}
	if stats.Duplicates > 0 {
		slog.Warn("duplicate indicator values averaged", "cells", stats.Duplicates)
	}
	return snap, nil
}
