package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/floats"
)

// observations holds a parsed time series. Flux and Sigma are empty when the
// input only has a time column.
type observations struct {
	Time  []float64
	Flux  []float64
	Sigma []float64
}

func readObservations(path string) (observations, error) {
	f, err := os.Open(path)
	if err != nil {
		return observations{}, err
	}
	defer f.Close()
	return parseObservations(f)
}

// parseObservations reads whitespace separated columns: time, then optionally
// flux and flux uncertainty. Blank lines and lines starting with # are
// skipped. Every row must have the same number of columns.
func parseObservations(r io.Reader) (observations, error) {
	var obs observations
	cols := 0
	line := 0

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		fields := strings.Fields(text)
		if cols == 0 {
			if len(fields) > 3 {
				return observations{}, fmt.Errorf("line %d: expected at most 3 columns, got %d", line, len(fields))
			}
			cols = len(fields)
		}
		if len(fields) != cols {
			return observations{}, fmt.Errorf("line %d: expected %d columns, got %d", line, cols, len(fields))
		}

		var vals [3]float64
		for i, field := range fields {
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return observations{}, fmt.Errorf("line %d: %w", line, err)
			}
			vals[i] = v
		}
		obs.Time = append(obs.Time, vals[0])
		if cols > 1 {
			obs.Flux = append(obs.Flux, vals[1])
		}
		if cols > 2 {
			obs.Sigma = append(obs.Sigma, vals[2])
		}
	}
	if err := scanner.Err(); err != nil {
		return observations{}, err
	}
	if len(obs.Time) == 0 {
		return observations{}, fmt.Errorf("no observations found")
	}
	return obs, nil
}

// timeGrid returns n evenly spaced times from start to end inclusive.
func timeGrid(start, end float64, n int) ([]float64, error) {
	if n < 1 {
		return nil, fmt.Errorf("number of points must be positive, got %d", n)
	}
	if n == 1 {
		return []float64{start}, nil
	}
	if end < start {
		return nil, fmt.Errorf("end %v before start %v", end, start)
	}
	t := floats.Span(make([]float64, n), start, end)
	// Span can round the last point past end
	t[n-1] = end
	return t, nil
}
