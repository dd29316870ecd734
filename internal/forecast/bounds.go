package forecast

import (
	"github.com/iwvelando/cashout-forecast/internal/config"
	"github.com/iwvelando/cashout-forecast/pkg/datetime"
	"github.com/iwvelando/cashout-forecast/pkg/events"
)

// Bounds delimits the timeline of a simulation.
type Bounds struct {
	StartMonth                 string
	EndMonth                   string
	DeliveryPlusToleranceMonth string
	FinancingEndMonth          string
}

// ResolveBounds determines the first and last month of the projection. The
// timeline starts at the contract month and ends at the latest of the
// delivery month shifted by the tolerance days, the financing end month and
// the last occurrence of any payment item. It reports false when the
// contract date cannot be parsed.
func ResolveBounds(sim config.Simulation) (Bounds, bool) {
	contractMonth, ok := datetime.ToMonthKey(sim.ContractDate)
	if !ok {
		return Bounds{}, false
	}

	bounds := Bounds{
		StartMonth:                 contractMonth,
		DeliveryPlusToleranceMonth: deliveryPlusToleranceMonth(sim, contractMonth),
	}

	endIndex, _ := datetime.MonthIndex(bounds.DeliveryPlusToleranceMonth)

	if sim.Financing.Enabled && sim.Financing.Months > 0 {
		if start, ok := datetime.ToMonthKey(sim.Financing.StartDate); ok {
			bounds.FinancingEndMonth, _ = datetime.AddMonths(start, sim.Financing.Months-1)
			if index, ok := datetime.MonthIndex(bounds.FinancingEndMonth); ok && index > endIndex {
				endIndex = index
			}
		}
	}

	if index, ok := lastCashflowIndex(sim.Cashflows); ok && index > endIndex {
		endIndex = index
	}
	if index, ok := lastBuilderPaymentIndex(sim.BuilderPayments); ok && index > endIndex {
		endIndex = index
	}

	bounds.EndMonth = datetime.KeyFromIndex(endIndex)
	return bounds, true
}

// deliveryPlusToleranceMonth shifts the delivery date by the tolerance at
// day level. It falls back to the delivery month, then to the contract
// month.
func deliveryPlusToleranceMonth(sim config.Simulation, contractMonth string) string {
	if shifted, ok := datetime.AddDays(sim.DeliveryDate, sim.ToleranceDays); ok {
		if month, ok := datetime.ToMonthKey(shifted); ok {
			return month
		}
	}
	if month, ok := datetime.ToMonthKey(sim.DeliveryDate); ok {
		return month
	}
	return contractMonth
}

func lastCashflowIndex(items []config.CashflowItem) (int, bool) {
	schedules := make([]events.Recurrence, 0, len(items))
	for _, item := range items {
		schedules = append(schedules, item.Schedule)
	}
	return lastIndex(schedules)
}

func lastBuilderPaymentIndex(items []config.BuilderPayment) (int, bool) {
	schedules := make([]events.Recurrence, 0, len(items))
	for _, item := range items {
		schedules = append(schedules, item.Schedule)
	}
	return lastIndex(schedules)
}

func lastIndex(schedules []events.Recurrence) (int, bool) {
	found := false
	max := 0
	for _, schedule := range schedules {
		if schedule == nil {
			continue
		}
		index, ok := schedule.LastMonthIndex()
		if !ok {
			continue
		}
		if !found || index > max {
			max = index
			found = true
		}
	}
	return max, found
}
