package main

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/nikcunniffe/Identifiability/fit"
)

// LoadObservations reads a two-column CSV of observation times and case
// counts. A non-numeric first row is treated as a header and skipped.
func LoadObservations(filename string) (*fit.Series, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("opening file: %w", err)
	}
	defer f.Close()

	return ReadObservations(f)
}

// ReadObservations reads observations from a CSV reader.
func ReadObservations(r io.Reader) (*fit.Series, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = 2
	reader.TrimLeadingSpace = true

	var times, cases []float64
	line := 0
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading row %d: %w", line+1, err)
		}
		line++

		t, terr := strconv.ParseFloat(record[0], 64)
		y, yerr := strconv.ParseFloat(record[1], 64)
		if terr != nil || yerr != nil {
			if line == 1 {
				continue // header row
			}
			return nil, fmt.Errorf("row %d: non-numeric values %q, %q", line, record[0], record[1])
		}
		times = append(times, t)
		cases = append(cases, y)
	}

	obs, err := fit.NewSeries(times, cases)
	if err != nil {
		return nil, fmt.Errorf("invalid observation series: %w", err)
	}
	return obs, nil
}
