// Package loans provides the amortization schedules of the post-delivery bank
// financing.
package loans

import (
	"fmt"
	"math"

	"github.com/iwvelando/cashout-forecast/pkg/constants"
	"github.com/iwvelando/cashout-forecast/pkg/mathutil"
	"go.uber.org/zap"
)

// System identifies an amortization system.
type System string

const (
	// SAC repays a constant share of principal every month, so installments
	// decline over the term.
	SAC System = "SAC"

	// PRICE keeps the installment constant (French/annuity method).
	PRICE System = "PRICE"
)

// ParseSystem maps free text to a System, defaulting to SAC.
func ParseSystem(value string) System {
	if System(value) == PRICE {
		return PRICE
	}
	return SAC
}

// Entry holds the values for a given installment. MonthKey is empty until the
// schedule is placed on a timeline.
type Entry struct {
	MonthKey    string  `json:"monthKey"`
	Installment float64 `json:"installment"`
	Interest    float64 `json:"interest"`
	Amort       float64 `json:"amort"`
	Balance     float64 `json:"balance"`
}

// AnnualToMonthlyRate converts a nominal annual rate in percent into the
// equivalent effective monthly rate as a decimal, (1+annual)^(1/12) - 1. It
// returns 0 when the root would be undefined.
func AnnualToMonthlyRate(annualRatePercent float64) float64 {
	annualDecimal := annualRatePercent / constants.PercentageMultiplier
	if !mathutil.IsFinite(annualDecimal) || annualDecimal <= -1 {
		return 0
	}
	monthly := math.Pow(1+annualDecimal, 1.0/constants.MonthsPerYear) - 1
	if !mathutil.IsFinite(monthly) {
		return 0
	}
	return monthly
}

// CalculatePriceInstallment returns the fixed PRICE installment
// P*r / (1 - (1+r)^-n), degrading to P/n for a zero rate or a non-finite
// result.
func CalculatePriceInstallment(principal, monthlyRate float64, months int) float64 {
	if months <= 0 {
		return 0
	}
	flat := principal / float64(months)
	if monthlyRate == 0 {
		return flat
	}
	denominator := 1 - math.Pow(1+monthlyRate, -float64(months))
	if denominator == 0 {
		return flat
	}
	installment := principal * monthlyRate / denominator
	if !mathutil.IsFinite(installment) {
		return flat
	}
	return installment
}

// ScheduleSAC builds a constant-amortization schedule. The final entry
// amortizes whatever balance remains.
func ScheduleSAC(principal, annualRatePercent float64, months int) []Entry {
	principal = mathutil.NonNegative(principal)
	monthlyRate := AnnualToMonthlyRate(mathutil.NonNegative(annualRatePercent))
	if principal <= 0 || months <= 0 {
		return []Entry{}
	}

	amortConst := principal / float64(months)
	balance := principal
	schedule := make([]Entry, 0, months)

	for month := 1; month <= months; month++ {
		interest := balance * monthlyRate
		amort := amortConst
		if month == months {
			amort = balance
		}
		installment := amort + interest
		balance = clampBalance(balance - amort)

		schedule = append(schedule, newEntry(installment, interest, amort, balance))
	}

	return schedule
}

// SchedulePRICE builds a fixed-installment schedule. The final entry
// amortizes whatever balance remains and its installment absorbs the drift.
func SchedulePRICE(principal, annualRatePercent float64, months int) []Entry {
	principal = mathutil.NonNegative(principal)
	monthlyRate := AnnualToMonthlyRate(mathutil.NonNegative(annualRatePercent))
	if principal <= 0 || months <= 0 {
		return []Entry{}
	}

	fixed := CalculatePriceInstallment(principal, monthlyRate, months)
	balance := principal
	schedule := make([]Entry, 0, months)

	for month := 1; month <= months; month++ {
		interest := balance * monthlyRate
		amort := fixed - interest
		installment := fixed
		if month == months {
			amort = balance
			installment = amort + interest
		}
		balance = clampBalance(balance - amort)

		schedule = append(schedule, newEntry(installment, interest, amort, balance))
	}

	return schedule
}

func newEntry(installment, interest, amort, balance float64) Entry {
	return Entry{
		Installment: mathutil.Money(installment),
		Interest:    mathutil.Money(interest),
		Amort:       mathutil.Money(amort),
		Balance:     mathutil.Money(balance),
	}
}

func clampBalance(balance float64) float64 {
	if math.Abs(balance) < constants.BalanceEpsilon {
		return 0
	}
	return balance
}

// AmortizationScheduleGenerator provides utilities for generating loan amortization schedules
type AmortizationScheduleGenerator struct {
	logger *zap.Logger
}

// NewAmortizationScheduleGenerator creates a new generator instance
func NewAmortizationScheduleGenerator(logger *zap.Logger) *AmortizationScheduleGenerator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AmortizationScheduleGenerator{logger: logger}
}

// GenerateSchedule produces the schedule for the given system. Degenerate
// inputs yield an empty schedule, never an error.
func (g *AmortizationScheduleGenerator) GenerateSchedule(system System, principal, annualRatePercent float64, months int) []Entry {
	var schedule []Entry
	switch system {
	case PRICE:
		schedule = SchedulePRICE(principal, annualRatePercent, months)
	default:
		schedule = ScheduleSAC(principal, annualRatePercent, months)
	}

	if len(schedule) == 0 {
		g.logger.Debug(fmt.Sprintf("empty %s schedule for principal %.2f over %d months", system, principal, months),
			zap.String("op", "loans.GenerateSchedule"),
		)
		return schedule
	}

	g.logger.Debug("generated amortization schedule",
		zap.String("op", "loans.GenerateSchedule"),
		zap.String("system", string(system)),
		zap.Float64("principal", principal),
		zap.Float64("annualRatePercent", annualRatePercent),
		zap.Int("months", months),
		zap.Float64("firstInstallment", schedule[0].Installment),
	)
	return schedule
}

// TotalAmortized sums the amortized principal across a schedule.
func TotalAmortized(schedule []Entry) float64 {
	total := 0.0
	for _, entry := range schedule {
		total += entry.Amort
	}
	return mathutil.Round(total)
}
