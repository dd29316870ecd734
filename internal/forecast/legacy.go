package forecast

import (
	"github.com/iwvelando/cashout-forecast/internal/config"
	"github.com/iwvelando/cashout-forecast/pkg/indexation"
	"github.com/iwvelando/cashout-forecast/pkg/mathutil"
)

// applyLegacyCashflows posts every free-form cashflow occurrence that falls
// on the timeline. Unlike builder payments, all cashflows share one flat
// rolling factor per month derived from the simulation's default rate.
func applyLegacyCashflows(tl *timeline, sim config.Simulation, engine indexation.Engine) {
	factors := engine.RollingFactors(tl.months())

	for _, item := range sim.Cashflows {
		amount := mathutil.NonNegative(item.Amount)
		if amount <= 0 || item.Schedule == nil {
			continue
		}

		for _, occurrence := range item.Schedule.Occurrences(amount) {
			row := tl.row(occurrence.MonthKey)
			if row == nil {
				continue
			}
			nominal := mathutil.Money(occurrence.Amount)
			corrected := mathutil.Money(nominal * mathutil.Factor(factors[occurrence.MonthKey]))

			accumulate(&row.Categories.LegacyCashflowNominal, nominal)
			accumulate(&row.Categories.LegacyCashflowCorrected, corrected)
		}
	}
}
