package forecast

import (
	"github.com/iwvelando/cashout-forecast/internal/config"
	"github.com/iwvelando/cashout-forecast/pkg/datetime"
	"github.com/iwvelando/cashout-forecast/pkg/loans"
	"github.com/iwvelando/cashout-forecast/pkg/mathutil"
)

// FinancingInfo describes the bank financing of a projection. It is returned
// even when no schedule could be built.
type FinancingInfo struct {
	Enabled           bool          `json:"enabled"`
	Principal         float64       `json:"principal"`
	Months            int           `json:"months"`
	System            loans.System  `json:"system"`
	StartMonth        string        `json:"startMonth"`
	AnnualRatePercent float64       `json:"annualRatePercent"`
	Schedule          []loans.Entry `json:"schedule"`
}

// applyFinancing finances whatever part of the base price was not paid,
// corrected, through builder payments and cashflows up to and including the
// financing start month. Schedule entry i lands on start month + i.
func applyFinancing(tl *timeline, sim config.Simulation, generator *loans.AmortizationScheduleGenerator) FinancingInfo {
	settings := sim.Financing
	if !settings.Enabled {
		return FinancingInfo{System: loans.SAC, Schedule: []loans.Entry{}}
	}

	info := FinancingInfo{
		Enabled:           true,
		Months:            settings.Months,
		System:            loans.ParseSystem(string(settings.System)),
		AnnualRatePercent: mathutil.NonNegative(settings.AnnualRate),
		Schedule:          []loans.Entry{},
	}
	if info.Months < 0 {
		info.Months = 0
	}

	startMonth, ok := datetime.ToMonthKey(settings.StartDate)
	if !ok || info.Months <= 0 {
		return info
	}
	info.StartMonth = startMonth
	startIndex, _ := datetime.MonthIndex(startMonth)

	paid := 0.0
	for _, row := range tl.rows {
		index, ok := datetime.MonthIndex(row.MonthKey)
		if !ok || index > startIndex {
			continue
		}
		paid += row.Categories.BuilderCorrected + row.Categories.LegacyCashflowCorrected
	}
	principal := mathutil.NonNegative(sim.BasePrice - paid)

	info.Schedule = generator.GenerateSchedule(info.System, principal, info.AnnualRatePercent, info.Months)
	for i := range info.Schedule {
		month := datetime.KeyFromIndex(startIndex + i)
		info.Schedule[i].MonthKey = month
		if row := tl.row(month); row != nil {
			accumulate(&row.Categories.FinancingInstallment, info.Schedule[i].Installment)
		}
	}

	info.Principal = mathutil.Money(principal)
	return info
}
