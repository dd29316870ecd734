// Package optimizer searches financing terms that keep monthly outflows within
// a budget.
package optimizer

import (
	"fmt"
	"sort"

	"github.com/iwvelando/cashout-forecast/internal/config"
	"github.com/iwvelando/cashout-forecast/internal/forecast"
	"github.com/iwvelando/cashout-forecast/pkg/constants"
	"github.com/iwvelando/cashout-forecast/pkg/datetime"
	"github.com/iwvelando/cashout-forecast/pkg/mathutil"
	"github.com/iwvelando/cashout-forecast/pkg/optimization"
	"go.uber.org/zap"
)

// FieldFinancingMonths is the simulation field the term solver adjusts.
const FieldFinancingMonths = "financing.months"

const growingPeakNote = "peak outflow grows with the term for this simulation; every term was evaluated"

// TermOptions bound the financing term search. Zero bounds fall back to the
// package defaults.
type TermOptions struct {
	Budget    float64 `json:"budget"`
	MinMonths int     `json:"minMonths"`
	MaxMonths int     `json:"maxMonths"`
}

// Runner evaluates candidate simulations through the projection engine.
type Runner struct {
	logger *zap.Logger
}

type evaluation struct {
	months    int
	peak      float64
	peakMonth string
	budget    float64
	results   forecast.Results
}

func (e evaluation) feasible() bool {
	return e.peak <= e.budget+constants.CurrencyTolerance/2
}

func (e evaluation) headroom() float64 {
	return mathutil.Round(e.budget - e.peak)
}

// NewRunner constructs a Runner.
func NewRunner(logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{logger: logger}
}

// SolveTerm finds the shortest financing term in [MinMonths, MaxMonths] whose
// peak monthly outflow over the financed months fits the budget. The search
// bisects on the assumption that the peak does not grow with the term. Other
// outflows falling inside a longer financing window can break that, so every
// candidate is scanned when the bisected peaks rise with the term or when
// neither bound fits. A note records each time the peak is seen to grow with
// the term. When no term fits, the term with the most headroom is
// reported with Converged false. sim is not modified; the projection for the
// chosen term is returned alongside the summary.
func (r *Runner) SolveTerm(sim config.Simulation, opts TermOptions) (optimization.Summary, forecast.Results, error) {
	if err := validateTermOptions(sim, &opts); err != nil {
		return optimization.Summary{}, forecast.Results{}, err
	}

	lower := r.evaluate(sim, opts.MinMonths, opts.Budget)
	upper := r.evaluate(sim, opts.MaxMonths, opts.Budget)
	evaluated := []evaluation{lower, upper}

	var best evaluation
	var notes []string
	iterations := 0

	switch {
	case lower.feasible():
		best = lower
	case upper.feasible():
		lo, hi := lower, upper
		for hi.months-lo.months > 1 {
			iterations++
			mid := r.evaluate(sim, lo.months+(hi.months-lo.months)/2, opts.Budget)
			evaluated = append(evaluated, mid)
			if mid.feasible() {
				hi = mid
			} else {
				lo = mid
			}
		}
		best = hi
		if !peaksFall(evaluated) {
			var scanned int
			best, scanned = r.scan(sim, opts)
			iterations += scanned
			notes = append(notes, growingPeakNote)
		}
	default:
		// Neither bound fits, yet a shorter window can still dodge a late outflow.
		var scanned int
		best, scanned = r.scan(sim, opts)
		iterations += scanned
		if best.feasible() {
			notes = append(notes, growingPeakNote)
		}
	}
	if !best.feasible() {
		notes = append(notes, fmt.Sprintf("no term between %d and %d months keeps the monthly outflow within %.2f", opts.MinMonths, opts.MaxMonths, opts.Budget))
	}

	summary := optimization.Summary{
		Scope:           "simulation",
		TargetName:      sim.Name,
		Field:           FieldFinancingMonths,
		Original:        float64(sim.Financing.Months),
		OriginalDisplay: monthsDisplay(sim.Financing.Months),
		Value:           float64(best.months),
		ValueDisplay:    monthsDisplay(best.months),
		Budget:          mathutil.Money(opts.Budget),
		PeakOutflow:     best.peak,
		PeakMonth:       best.peakMonth,
		Headroom:        best.headroom(),
		Iterations:      iterations,
		Converged:       best.feasible(),
		Notes:           notes,
	}

	r.logger.Info("optimizer solved financing term",
		zap.String("op", "optimizer.SolveTerm"),
		zap.String("simulation", sim.Name),
		zap.Int("originalMonths", sim.Financing.Months),
		zap.Int("months", best.months),
		zap.Float64("budget", opts.Budget),
		zap.Float64("peak", best.peak),
		zap.String("peakMonth", best.peakMonth),
		zap.Int("iterations", iterations),
		zap.Bool("converged", summary.Converged),
	)

	return summary, best.results, nil
}

// scan evaluates every term in order and returns the first that fits, or the
// one with the most headroom when none does.
func (r *Runner) scan(sim config.Simulation, opts TermOptions) (evaluation, int) {
	var best evaluation
	count := 0
	for months := opts.MinMonths; months <= opts.MaxMonths; months++ {
		count++
		eval := r.evaluate(sim, months, opts.Budget)
		if eval.feasible() {
			return eval, count
		}
		if count == 1 || eval.headroom() > best.headroom() {
			best = eval
		}
	}
	return best, count
}

// peaksFall reports whether the peak outflow never rises, beyond half a cent,
// as the term grows across the evaluated candidates.
func peaksFall(evaluated []evaluation) bool {
	sorted := append([]evaluation(nil), evaluated...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].months < sorted[j].months })
	for i := 1; i < len(sorted); i++ {
		prev, next := sorted[i-1].peak, sorted[i].peak
		if next > prev && !mathutil.WithinTolerance(next, prev, constants.CurrencyTolerance/2) {
			return false
		}
	}
	return true
}

func validateTermOptions(sim config.Simulation, opts *TermOptions) error {
	if !sim.Financing.Enabled {
		return fmt.Errorf("simulation %q has no financing to optimize", sim.Name)
	}
	if _, ok := datetime.ToMonthKey(sim.Financing.StartDate); !ok {
		return fmt.Errorf("simulation %q has an invalid financing start date %q", sim.Name, sim.Financing.StartDate)
	}
	if !mathutil.IsFinite(opts.Budget) || opts.Budget <= 0 {
		return fmt.Errorf("budget must be positive, got %v", opts.Budget)
	}
	if opts.MinMonths == 0 {
		opts.MinMonths = constants.DefaultMinFinancingMonths
	}
	if opts.MaxMonths == 0 {
		opts.MaxMonths = constants.DefaultMaxFinancingMonths
	}
	if opts.MinMonths < 1 || opts.MaxMonths < opts.MinMonths {
		return fmt.Errorf("invalid term bounds %d to %d months", opts.MinMonths, opts.MaxMonths)
	}
	return nil
}

// evaluate projects sim with the given term and finds the peak outflow over
// the financed months.
func (r *Runner) evaluate(sim config.Simulation, months int, budget float64) evaluation {
	candidate := sim
	candidate.Financing.Months = months
	results := forecast.GetForecast(r.logger, candidate)

	eval := evaluation{months: months, budget: budget, results: results}
	start, _ := datetime.DateIndex(candidate.Financing.StartDate)
	for _, row := range results.Timeline {
		index, ok := datetime.MonthIndex(row.MonthKey)
		if !ok || index < start || index >= start+months {
			continue
		}
		if row.TotalOut > eval.peak {
			eval.peak = row.TotalOut
			eval.peakMonth = row.MonthKey
		}
	}
	return eval
}

func monthsDisplay(months int) string {
	return fmt.Sprintf("%d months", months)
}
