// Package events expands payment recurrences into the months they fall on.
package events

import (
	"github.com/iwvelando/cashout-forecast/pkg/constants"
	"github.com/iwvelando/cashout-forecast/pkg/datetime"
	"github.com/iwvelando/cashout-forecast/pkg/mathutil"
)

// Kind names a recurrence variant as it appears in documents.
type Kind string

const (
	KindOnce         Kind = "once"
	KindMonthly      Kind = "monthly"
	KindBalloon      Kind = "balloon"
	KindInstallments Kind = "installments"
)

// Occurrence is a single hit of a recurrence on the month grid.
type Occurrence struct {
	MonthKey string
	Amount   float64
}

// Recurrence is the schedule of a payment item. Implementations carry only
// the fields meaningful to their variant.
type Recurrence interface {
	Kind() Kind

	// Occurrences spreads amount over the months the recurrence hits, in
	// ascending order. An unparseable schedule yields no occurrences.
	Occurrences(amount float64) []Occurrence

	// LastMonthIndex is the month index of the final occurrence, used when
	// resolving the timeline end.
	LastMonthIndex() (int, bool)
}

// Once pays the full amount in the month of Date.
type Once struct {
	Date string
}

// Monthly pays the full amount every month from StartDate to EndDate.
type Monthly struct {
	StartDate string
	EndDate   string
}

// Balloon pays the full amount every EveryMonths months from StartDate while
// not past EndDate.
type Balloon struct {
	StartDate   string
	EndDate     string
	EveryMonths int
}

// Installments splits the amount into Count parcels, the first in the month
// of FirstDate and the rest EveryMonths apart.
type Installments struct {
	FirstDate   string
	Count       int
	EveryMonths int
}

func (Once) Kind() Kind         { return KindOnce }
func (Monthly) Kind() Kind      { return KindMonthly }
func (Balloon) Kind() Kind      { return KindBalloon }
func (Installments) Kind() Kind { return KindInstallments }

func (r Once) Occurrences(amount float64) []Occurrence {
	key, ok := datetime.ToMonthKey(r.Date)
	if !ok {
		return nil
	}
	return []Occurrence{{MonthKey: key, Amount: amount}}
}

func (r Once) LastMonthIndex() (int, bool) {
	return datetime.DateIndex(r.Date)
}

func (r Monthly) Occurrences(amount float64) []Occurrence {
	months := datetime.MonthRange(r.StartDate, r.EndDate)
	occurrences := make([]Occurrence, 0, len(months))
	for _, key := range months {
		occurrences = append(occurrences, Occurrence{MonthKey: key, Amount: amount})
	}
	return occurrences
}

func (r Monthly) LastMonthIndex() (int, bool) {
	return datetime.DateIndex(r.EndDate)
}

func (r Balloon) Occurrences(amount float64) []Occurrence {
	startIndex, ok := datetime.DateIndex(r.StartDate)
	if !ok {
		return nil
	}
	endIndex, ok := datetime.DateIndex(r.EndDate)
	if !ok || endIndex < startIndex {
		return nil
	}

	step := Step(r.EveryMonths, constants.DefaultEveryMonths)
	var occurrences []Occurrence
	for index := startIndex; index <= endIndex; index += step {
		occurrences = append(occurrences, Occurrence{MonthKey: datetime.KeyFromIndex(index), Amount: amount})
	}
	return occurrences
}

func (r Balloon) LastMonthIndex() (int, bool) {
	return datetime.DateIndex(r.EndDate)
}

func (r Installments) Occurrences(amount float64) []Occurrence {
	firstIndex, ok := datetime.DateIndex(r.FirstDate)
	if !ok {
		return nil
	}

	step := Step(r.EveryMonths, 1)
	parcels := SplitInstallments(amount, r.Count)
	occurrences := make([]Occurrence, 0, len(parcels))
	for i, parcel := range parcels {
		occurrences = append(occurrences, Occurrence{
			MonthKey: datetime.KeyFromIndex(firstIndex + i*step),
			Amount:   parcel,
		})
	}
	return occurrences
}

func (r Installments) LastMonthIndex() (int, bool) {
	firstIndex, ok := datetime.DateIndex(r.FirstDate)
	if !ok {
		return 0, false
	}
	return firstIndex + (Step(r.Count, 1)-1)*Step(r.EveryMonths, 1), true
}

// Step returns value when it is at least one, otherwise fallback (itself
// floored at one).
func Step(value, fallback int) int {
	if value >= 1 {
		return value
	}
	if fallback >= 1 {
		return fallback
	}
	return 1
}

// SplitInstallments divides total into count money-rounded parcels. Every
// parcel but the last is round(total/count); the last takes whatever is left
// so the parcels add back up to total exactly.
func SplitInstallments(total float64, count int) []float64 {
	count = Step(count, 1)
	base := mathutil.Money(total / float64(count))

	parcels := make([]float64, count)
	allocated := 0.0
	for i := 0; i < count; i++ {
		parcel := base
		if i == count-1 {
			parcel = mathutil.Money(total - allocated)
		}
		allocated = mathutil.Round(allocated + parcel)
		parcels[i] = parcel
	}
	return parcels
}
