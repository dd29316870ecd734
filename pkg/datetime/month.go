// Package datetime provides the month-key algebra the timeline is built on.
//
// A month key is the canonical "YYYY-MM" identifier of a calendar month. Keys
// map one-to-one onto month indexes (year*12 + month-1), which is what every
// ordering and offset computation works on.
package datetime

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/iwvelando/cashout-forecast/pkg/constants"
)

const (
	// MonthKeyLayout is the canonical month key format.
	MonthKeyLayout = constants.MonthKeyLayout

	// DateLayout is the calendar date format.
	DateLayout = constants.DateLayout
)

// ToMonthKey extracts the month key from a date ("YYYY-MM-DD") or month key
// ("YYYY-MM") string. It reports false when the text is shorter than seven
// characters or the month is out of range.
func ToMonthKey(date string) (string, bool) {
	text := strings.TrimSpace(date)
	if len(text) < 7 {
		return "", false
	}

	year, err := strconv.Atoi(text[0:4])
	if err != nil {
		return "", false
	}
	month, err := strconv.Atoi(text[5:7])
	if err != nil || month < 1 || month > 12 {
		return "", false
	}
	return formatKey(year, month), true
}

// MonthIndex returns year*12 + (month-1) for a well-formed month key.
func MonthIndex(key string) (int, bool) {
	parts := strings.Split(key, "-")
	if len(parts) != 2 {
		return 0, false
	}
	year, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, false
	}
	month, err := strconv.Atoi(parts[1])
	if err != nil || month < 1 || month > 12 {
		return 0, false
	}
	return year*constants.MonthsPerYear + (month - 1), true
}

// KeyFromIndex is the inverse of MonthIndex.
func KeyFromIndex(index int) string {
	year := index / constants.MonthsPerYear
	month := index%constants.MonthsPerYear + 1
	return formatKey(year, month)
}

// DateIndex is a convenience wrapper resolving a date or month key straight
// to its month index.
func DateIndex(date string) (int, bool) {
	key, ok := ToMonthKey(date)
	if !ok {
		return 0, false
	}
	return MonthIndex(key)
}

// AddMonths shifts a month key by n months; n may be negative.
func AddMonths(key string, n int) (string, bool) {
	index, ok := MonthIndex(key)
	if !ok {
		return "", false
	}
	return KeyFromIndex(index + n), true
}

// MonthRange returns the inclusive, ascending month keys between start and
// end. Either endpoint may be a full date. The result is empty when an
// endpoint is invalid or end precedes start.
func MonthRange(start, end string) []string {
	startIndex, ok := DateIndex(start)
	if !ok {
		return nil
	}
	endIndex, ok := DateIndex(end)
	if !ok || endIndex < startIndex {
		return nil
	}

	keys := make([]string, 0, endIndex-startIndex+1)
	for index := startIndex; index <= endIndex; index++ {
		keys = append(keys, KeyFromIndex(index))
	}
	return keys
}

// AddDays shifts a "YYYY-MM-DD" date by a number of calendar days. Negative
// day counts are treated as zero.
func AddDays(date string, days int) (string, bool) {
	text := strings.TrimSpace(date)
	if len(text) < 10 {
		return "", false
	}
	t, err := time.Parse(DateLayout, text[:10])
	if err != nil {
		return "", false
	}
	if days < 0 {
		days = 0
	}
	return t.AddDate(0, 0, days).Format(DateLayout), true
}

// Before reports whether the month of a precedes the month of b. Either may
// be a full date or a month key; invalid input never precedes anything.
func Before(a, b string) bool {
	ai, ok := DateIndex(a)
	if !ok {
		return false
	}
	bi, ok := DateIndex(b)
	if !ok {
		return false
	}
	return ai < bi
}

func formatKey(year, month int) string {
	return fmt.Sprintf("%04d-%02d", year, month)
}
