// Package testutil provides common utility functions for testing.
package testutil

import (
	"github.com/iwvelando/cashout-forecast/internal/forecast"
)

// FindRow finds the timeline row of a month in the results.
// Returns a pointer to the row if found, nil otherwise.
func FindRow(results forecast.Results, monthKey string) *forecast.TimelineRow {
	for i := range results.Timeline {
		if results.Timeline[i].MonthKey == monthKey {
			return &results.Timeline[i]
		}
	}
	return nil
}

// SumColumn adds up one value of every row, e.g. the total outflow.
func SumColumn(results forecast.Results, value func(forecast.TimelineRow) float64) float64 {
	total := 0.0
	for _, row := range results.Timeline {
		total += value(row)
	}
	return total
}
