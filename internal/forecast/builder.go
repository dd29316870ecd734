package forecast

import (
	"github.com/iwvelando/cashout-forecast/internal/config"
	"github.com/iwvelando/cashout-forecast/pkg/indexation"
	"github.com/iwvelando/cashout-forecast/pkg/mathutil"
)

// applyBuilderPayments posts every builder payment occurrence that falls on
// the timeline. The corrected amount compounds the item's own index
// reference from the timeline start through the occurrence month.
func applyBuilderPayments(tl *timeline, sim config.Simulation, startMonth string, engine indexation.Engine) {
	basePrice := mathutil.NonNegative(sim.BasePrice)

	for _, item := range sim.BuilderPayments {
		amount := builderPaymentAmount(item, basePrice)
		if amount <= 0 || item.Schedule == nil {
			continue
		}

		for _, occurrence := range item.Schedule.Occurrences(amount) {
			row := tl.row(occurrence.MonthKey)
			if row == nil {
				continue
			}
			factor := engine.Factor(item.IndexRef, startMonth, occurrence.MonthKey)
			corrected := mathutil.Money(occurrence.Amount * factor)

			accumulate(&row.Categories.BuilderNominal, occurrence.Amount)
			accumulate(&row.Categories.BuilderCorrected, corrected)
		}
	}
}

// builderPaymentAmount resolves the money amount of a builder payment;
// percent amounts are read against the base price.
func builderPaymentAmount(item config.BuilderPayment, basePrice float64) float64 {
	amount := mathutil.NonNegative(item.Amount)
	if item.AmountMode == config.AmountPercent {
		return mathutil.Money(mathutil.ApplyPercentage(basePrice, amount))
	}
	return mathutil.Money(amount)
}
