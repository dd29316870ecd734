package forecast

import (
	"github.com/iwvelando/cashout-forecast/internal/config"
	"github.com/iwvelando/cashout-forecast/pkg/constants"
	"github.com/iwvelando/cashout-forecast/pkg/datetime"
	"github.com/iwvelando/cashout-forecast/pkg/mathutil"
)

// ConstructionInfo summarizes the construction interest of a projection.
type ConstructionInfo struct {
	Principal                  float64 `json:"principal"`
	MonthlyRatePercent         float64 `json:"monthlyRatePercent"`
	DisbursementPercentMonthly float64 `json:"disbursementPercentMonthly"`
	Total                      float64 `json:"total"`
}

// applyConstructionInterest accrues interest on the share of the
// construction principal disbursed each month, through endMonth inclusive.
func applyConstructionInterest(tl *timeline, sim config.Simulation, endMonth string) ConstructionInfo {
	settings := sim.ConstructionInterest
	if !settings.Enabled {
		return ConstructionInfo{}
	}

	principal := sim.BasePrice
	if settings.Principal != nil {
		principal = *settings.Principal
	}
	principal = mathutil.NonNegative(principal)

	info := ConstructionInfo{
		Principal:                  mathutil.Money(principal),
		MonthlyRatePercent:         mathutil.NonNegative(settings.MonthlyRate),
		DisbursementPercentMonthly: mathutil.NonNegative(settings.DisbursementPercentMonthly),
	}
	if principal <= 0 || info.MonthlyRatePercent <= 0 {
		return info
	}

	monthlyRate := info.MonthlyRatePercent / constants.PercentageMultiplier
	endIndex, hasEnd := datetime.MonthIndex(endMonth)
	total := 0.0

	for i := range tl.rows {
		row := &tl.rows[i]
		index, ok := datetime.MonthIndex(row.MonthKey)
		if !ok || (hasEnd && index > endIndex) {
			continue
		}

		percent := info.DisbursementPercentMonthly
		if override, ok := settings.DisbursementByMonth[row.MonthKey]; ok {
			percent = mathutil.NonNegative(override)
		}
		if percent <= 0 {
			continue
		}

		interest := mathutil.Money(mathutil.ApplyPercentage(principal, percent) * monthlyRate)
		if interest <= 0 {
			continue
		}

		accumulate(&row.Categories.ConstructionInterest, interest)
		total += interest
	}

	info.Total = mathutil.Money(total)
	return info
}
