// Package dataset loads observation series from delimited text: three
// numeric columns (time, value, uncertainty), whitespace- or
// comma-separated, with optional header and comment lines. No further
// format constraints are imposed.
package dataset

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/carbonfit/carbonfit/fit"
)

// Load reads a delimited observation file into a validated series.
// The first line is treated as a header when its fields do not parse as
// numbers; lines starting with '#' and blank lines are skipped.
func Load(path string) (*fit.Series, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("dataset: %w", err)
	}
	defer f.Close()
	return parse(bufio.NewScanner(f), path)
}

func parse(sc *bufio.Scanner, path string) (*fit.Series, error) {
	var time, value, sigma []float64
	lineNo := 0
	first := true
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.FieldsFunc(line, func(r rune) bool {
			return r == ',' || r == ' ' || r == '\t'
		})
		row, err := parseRow(fields)
		if err != nil {
			if first {
				// Header line.
				first = false
				continue
			}
			return nil, fmt.Errorf("dataset: %s:%d: %w", path, lineNo, err)
		}
		first = false
		time = append(time, row[0])
		value = append(value, row[1])
		sigma = append(sigma, row[2])
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("dataset: reading %s: %w", path, err)
	}
	s, err := fit.NewSeries(time, value, sigma)
	if err != nil {
		return nil, fmt.Errorf("dataset: %s: %w", path, err)
	}
	return s, nil
}

func parseRow(fields []string) ([3]float64, error) {
	var row [3]float64
	if len(fields) < 3 {
		return row, fmt.Errorf("need 3 columns (time, value, uncertainty), got %d", len(fields))
	}
	for i := 0; i < 3; i++ {
		v, err := strconv.ParseFloat(fields[i], 64)
		if err != nil {
			return row, fmt.Errorf("column %d: %w", i+1, err)
		}
		row[i] = v
	}
	return row, nil
}
