// Package forecast defines the data structures related to a cash-out
// projection and includes functions for computing it.
package forecast

import (
	"fmt"

	"github.com/iwvelando/cashout-forecast/internal/config"
	"github.com/iwvelando/cashout-forecast/pkg/datetime"
	"github.com/iwvelando/cashout-forecast/pkg/loans"
	"github.com/iwvelando/cashout-forecast/pkg/mathutil"
	"go.uber.org/zap"
)

// GetForecast projects the month-by-month cash-out of a simulation. It never
// fails: a simulation without a valid contract date yields an empty
// projection. The simulation is not modified.
func GetForecast(logger *zap.Logger, sim config.Simulation) Results {
	if logger == nil {
		logger = zap.NewNop()
	}

	bounds, ok := ResolveBounds(sim)
	if !ok {
		logger.Debug(fmt.Sprintf("simulation %q has no valid contract date %q, returning an empty projection", sim.Name, sim.ContractDate),
			zap.String("op", "forecast.GetForecast"),
		)
		return emptyResults()
	}

	tl := newTimeline(datetime.MonthRange(bounds.StartMonth, bounds.EndMonth))
	engine := sim.IndexEngine()

	// Financing reads the builder and cashflow amounts already posted, so
	// the order is fixed.
	applyBuilderPayments(tl, sim, bounds.StartMonth, engine)
	applyLegacyCashflows(tl, sim, engine)
	construction := applyConstructionInterest(tl, sim, bounds.DeliveryPlusToleranceMonth)
	financing := applyFinancing(tl, sim, loans.NewAmortizationScheduleGenerator(logger))

	totals := Totals{}
	for i := range tl.rows {
		row := &tl.rows[i]
		finalizeRow(row)
		totals.Nominal += row.Nominal
		totals.Corrected += row.Corrected
		totals.Financing += row.FinancingInstallment
	}
	totals.Nominal = mathutil.Money(totals.Nominal)
	totals.Corrected = mathutil.Money(totals.Corrected)
	totals.Financing = mathutil.Money(totals.Financing)
	totals.GrandTotal = mathutil.Money(totals.Corrected + totals.Financing)

	results := Results{
		Timeline: tl.rows,
		Totals:   totals,
		Meta: Meta{
			StartMonth:                             bounds.StartMonth,
			EndMonth:                               bounds.EndMonth,
			DeliveryPlusToleranceMonth:             bounds.DeliveryPlusToleranceMonth,
			FinancingEndMonth:                      bounds.FinancingEndMonth,
			FinancingPrincipal:                     financing.Principal,
			FinancingMonths:                        financing.Months,
			FinancingSystem:                        financing.System,
			FinancingStartMonth:                    financing.StartMonth,
			FinancingAnnualRate:                    financing.AnnualRatePercent,
			FinancingSchedule:                      financing.Schedule,
			ConstructionInterestTotal:              construction.Total,
			ConstructionInterestMonthlyRatePercent: construction.MonthlyRatePercent,
			MonthlyIndexRatePercent:                sim.Index.MonthlyRate,
		},
	}

	logger.Debug("computed projection",
		zap.String("op", "forecast.GetForecast"),
		zap.String("simulation", sim.Name),
		zap.String("startMonth", bounds.StartMonth),
		zap.String("endMonth", bounds.EndMonth),
		zap.Int("months", len(results.Timeline)),
		zap.Float64("grandTotal", totals.GrandTotal),
	)

	return results
}

// finalizeRow derives the row totals from its categories.
func finalizeRow(row *TimelineRow) {
	c := &row.Categories
	c.BuilderNominal = mathutil.Money(c.BuilderNominal)
	c.BuilderCorrected = mathutil.Money(c.BuilderCorrected)
	c.LegacyCashflowNominal = mathutil.Money(c.LegacyCashflowNominal)
	c.LegacyCashflowCorrected = mathutil.Money(c.LegacyCashflowCorrected)
	c.ConstructionInterest = mathutil.Money(c.ConstructionInterest)
	c.FinancingInstallment = mathutil.Money(c.FinancingInstallment)

	row.Nominal = mathutil.Money(c.BuilderNominal + c.LegacyCashflowNominal + c.ConstructionInterest)
	row.Corrected = mathutil.Money(c.BuilderCorrected + c.LegacyCashflowCorrected + c.ConstructionInterest)

	factor := 1.0
	if row.Nominal > 0 {
		factor = row.Corrected / row.Nominal
	}
	row.Factor = mathutil.Factor(factor)

	row.FinancingInstallment = c.FinancingInstallment
	row.TotalOut = mathutil.Money(row.Corrected + row.FinancingInstallment)
}

func emptyResults() Results {
	return Results{
		Timeline: []TimelineRow{},
		Meta: Meta{
			FinancingSystem:   loans.SAC,
			FinancingSchedule: []loans.Entry{},
		},
	}
}
