// Package indexation computes monetary correction factors.
package indexation

import (
	"github.com/iwvelando/cashout-forecast/pkg/constants"
	"github.com/iwvelando/cashout-forecast/pkg/datetime"
	"github.com/iwvelando/cashout-forecast/pkg/mathutil"
)

// Series holds explicit monthly rate percents per correction reference,
// keyed by reference and then by month key.
type Series map[string]map[string]float64

// Engine resolves correction rates and compounding factors for one
// simulation.
type Engine struct {
	// Enabled turns on the default MonthlyRate fallback.
	Enabled bool

	// MonthlyRate is the default monthly rate in percent.
	MonthlyRate float64

	Series Series
}

// RatePercent returns the monthly rate percent for ref in month. An explicit
// series value wins; otherwise the default rate applies when the engine is
// enabled. An empty ref is never corrected.
func (e Engine) RatePercent(ref, month string) float64 {
	if ref == "" {
		return 0
	}
	if byMonth, ok := e.Series[ref]; ok {
		if rate, ok := byMonth[month]; ok && mathutil.IsFinite(rate) {
			return rate
		}
	}
	return e.defaultRate()
}

// Factor compounds the rates of ref over every month from start through
// target inclusive. It is 1 for an empty ref or an empty range, and any
// intermediate factor that stops being finite and positive resets to 1.
func (e Engine) Factor(ref, start, target string) float64 {
	if ref == "" {
		return 1
	}

	factor := 1.0
	for _, month := range datetime.MonthRange(start, target) {
		rate := e.RatePercent(ref, month) / constants.PercentageMultiplier
		if !mathutil.IsFinite(rate) {
			continue
		}
		factor *= 1 + rate
		if !mathutil.IsFinite(factor) || factor <= 0 {
			factor = 1
		}
	}
	return factor
}

// RollingFactors returns one flat compounding factor per month, rolling the
// default rate forward from the first month. Every factor is 1 when the
// engine is disabled.
func (e Engine) RollingFactors(months []string) map[string]float64 {
	factors := make(map[string]float64, len(months))
	rate := e.MonthlyRate / constants.PercentageMultiplier
	rolling := 1.0

	for _, month := range months {
		if e.Enabled {
			rolling *= 1 + rate
			if !mathutil.IsFinite(rolling) || rolling <= 0 {
				rolling = 1
			}
		} else {
			rolling = 1
		}
		factors[month] = rolling
	}
	return factors
}

func (e Engine) defaultRate() float64 {
	if !e.Enabled || !mathutil.IsFinite(e.MonthlyRate) {
		return 0
	}
	return e.MonthlyRate
}
