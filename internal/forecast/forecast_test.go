package forecast

import (
	"encoding/json"
	"math"
	"reflect"
	"testing"

	"github.com/iwvelando/cashout-forecast/internal/config"
	"github.com/iwvelando/cashout-forecast/pkg/datetime"
	"github.com/iwvelando/cashout-forecast/pkg/events"
	"github.com/iwvelando/cashout-forecast/pkg/indexation"
	"github.com/iwvelando/cashout-forecast/pkg/loans"
	"github.com/iwvelando/cashout-forecast/pkg/mathutil"
	"go.uber.org/zap"
)

func baseSimulation() config.Simulation {
	return config.Simulation{
		Name:          "Tower A 1204",
		ContractDate:  "2025-01-15",
		DeliveryDate:  "2026-06-01",
		ToleranceDays: 180,
		BasePrice:     500000,
	}
}

func signalPayment(amount float64) config.BuilderPayment {
	return config.BuilderPayment{
		ID:         1,
		Phase:      config.PhaseSignal,
		AmountMode: config.AmountFixed,
		Amount:     amount,
		Schedule:   events.Once{Date: "2025-01-20"},
	}
}

func mustRow(t *testing.T, results Results, month string) TimelineRow {
	t.Helper()
	row, ok := results.Row(month)
	if !ok {
		t.Fatalf("timeline has no row for %s", month)
	}
	return row
}

func TestGetForecastSignalPayment(t *testing.T) {
	sim := baseSimulation()
	sim.BuilderPayments = []config.BuilderPayment{signalPayment(100000)}

	results := GetForecast(zap.NewNop(), sim)

	row := mustRow(t, results, "2025-01")
	if row.Categories.BuilderNominal != 100000 {
		t.Errorf("builderNominal = %v, expected 100000", row.Categories.BuilderNominal)
	}
	if row.Categories.BuilderCorrected != 100000 {
		t.Errorf("builderCorrected = %v, expected 100000", row.Categories.BuilderCorrected)
	}
	if row.TotalOut != 100000 {
		t.Errorf("totalOut = %v, expected 100000", row.TotalOut)
	}
	if row.Factor != 1 {
		t.Errorf("factor = %v, expected 1", row.Factor)
	}

	// 2026-06-01 plus 180 days is 2026-11-28.
	if results.Meta.StartMonth != "2025-01" || results.Meta.EndMonth != "2026-11" {
		t.Errorf("bounds = %s..%s, expected 2025-01..2026-11", results.Meta.StartMonth, results.Meta.EndMonth)
	}
	if results.Meta.DeliveryPlusToleranceMonth != "2026-11" {
		t.Errorf("deliveryPlusToleranceMonth = %s, expected 2026-11", results.Meta.DeliveryPlusToleranceMonth)
	}
	if len(results.Timeline) != 23 {
		t.Errorf("timeline has %d rows, expected 23", len(results.Timeline))
	}
	if results.Totals.GrandTotal != 100000 || results.Totals.Financing != 0 {
		t.Errorf("unexpected totals %+v", results.Totals)
	}
}

func TestTimelineRowsAreContiguous(t *testing.T) {
	sim := baseSimulation()
	sim.BuilderPayments = []config.BuilderPayment{
		signalPayment(50000),
		{ID: 2, Phase: config.PhaseWork, Amount: 2000, Schedule: events.Monthly{StartDate: "2025-02-01", EndDate: "2026-05-01"}},
	}
	sim.Financing = config.Financing{Enabled: true, System: loans.PRICE, StartDate: "2026-12-01", Months: 24, AnnualRate: 9}

	results := GetForecast(nil, sim)

	for i, row := range results.Timeline {
		if i > 0 {
			previous, _ := datetime.MonthIndex(results.Timeline[i-1].MonthKey)
			current, _ := datetime.MonthIndex(row.MonthKey)
			if current != previous+1 {
				t.Fatalf("gap between %s and %s", results.Timeline[i-1].MonthKey, row.MonthKey)
			}
		}
		if math.Abs(row.TotalOut-(row.Corrected+row.FinancingInstallment)) > 0.005 {
			t.Errorf("%s totalOut %v != corrected %v + financing %v", row.MonthKey, row.TotalOut, row.Corrected, row.FinancingInstallment)
		}
		if row.FinancingInstallment != row.Categories.FinancingInstallment {
			t.Errorf("%s financing installment mismatch", row.MonthKey)
		}
	}

	if results.Meta.EndMonth != "2028-11" {
		t.Errorf("endMonth = %s, expected the financing end 2028-11", results.Meta.EndMonth)
	}
}

func TestZeroRateKeepsNominal(t *testing.T) {
	sim := baseSimulation()
	sim.Index = config.Index{Enabled: true, MonthlyRate: 0}
	sim.BuilderPayments = []config.BuilderPayment{
		{ID: 1, Phase: config.PhaseWork, Amount: 3000, IndexRef: "INCC", Schedule: events.Monthly{StartDate: "2025-01-01", EndDate: "2026-06-01"}},
	}
	sim.Cashflows = []config.CashflowItem{
		{ID: 1, Label: "Parking", Amount: 1500, Schedule: events.Balloon{StartDate: "2025-03-01", EndDate: "2026-03-01", EveryMonths: 3}},
	}

	results := GetForecast(nil, sim)
	for _, row := range results.Timeline {
		c := row.Categories
		if c.BuilderCorrected != c.BuilderNominal || c.LegacyCashflowCorrected != c.LegacyCashflowNominal {
			t.Errorf("%s corrected amounts differ from nominal: %+v", row.MonthKey, c)
		}
		if row.Factor != 1 {
			t.Errorf("%s factor = %v, expected 1", row.MonthKey, row.Factor)
		}
	}
	if results.Totals.Corrected != results.Totals.Nominal {
		t.Errorf("corrected total %v != nominal total %v", results.Totals.Corrected, results.Totals.Nominal)
	}
}

func TestBuilderIndexation(t *testing.T) {
	tests := []struct {
		name              string
		index             config.Index
		indexRef          string
		date              string
		expectedCorrected float64
		expectedFactor    float64
	}{
		{
			name:              "Compounds from the timeline start through the payment month",
			index:             config.Index{Enabled: true, MonthlyRate: 1},
			indexRef:          "INCC",
			date:              "2025-03-10",
			expectedCorrected: 1030.30,
			expectedFactor:    1.0303,
		},
		{
			name:              "Empty reference is not corrected",
			index:             config.Index{Enabled: true, MonthlyRate: 1},
			indexRef:          "",
			date:              "2025-03-10",
			expectedCorrected: 1000,
			expectedFactor:    1,
		},
		{
			name: "Series overrides the default rate",
			index: config.Index{Enabled: true, MonthlyRate: 1, Series: indexation.Series{
				"INCC": {"2025-01": 0, "2025-02": 0, "2025-03": 2},
			}},
			indexRef:          "INCC",
			date:              "2025-03-10",
			expectedCorrected: 1020,
			expectedFactor:    1.02,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sim := baseSimulation()
			sim.Index = tt.index
			sim.BuilderPayments = []config.BuilderPayment{
				{ID: 1, Phase: config.PhaseIntermediary, Amount: 1000, IndexRef: tt.indexRef, Schedule: events.Once{Date: tt.date}},
			}

			row := mustRow(t, GetForecast(nil, sim), "2025-03")
			if row.Categories.BuilderNominal != 1000 {
				t.Errorf("builderNominal = %v, expected 1000", row.Categories.BuilderNominal)
			}
			if row.Categories.BuilderCorrected != tt.expectedCorrected {
				t.Errorf("builderCorrected = %v, expected %v", row.Categories.BuilderCorrected, tt.expectedCorrected)
			}
			if row.Factor != tt.expectedFactor {
				t.Errorf("factor = %v, expected %v", row.Factor, tt.expectedFactor)
			}
		})
	}
}

func TestBuilderPercentAmount(t *testing.T) {
	sim := baseSimulation()
	sim.BuilderPayments = []config.BuilderPayment{
		{ID: 1, Phase: config.PhaseEntry, AmountMode: config.AmountPercent, Amount: 10, Schedule: events.Once{Date: "2025-02-01"}},
		{ID: 2, Phase: config.PhaseEntry, AmountMode: config.AmountPercent, Amount: 0, Schedule: events.Once{Date: "2025-02-01"}},
	}

	row := mustRow(t, GetForecast(nil, sim), "2025-02")
	if row.Categories.BuilderNominal != 50000 {
		t.Errorf("builderNominal = %v, expected 10%% of 500000", row.Categories.BuilderNominal)
	}
}

func TestOccurrencesOutsideTimelineAreDropped(t *testing.T) {
	sim := baseSimulation()
	sim.BuilderPayments = []config.BuilderPayment{
		{ID: 1, Phase: config.PhaseSignal, Amount: 1000, Schedule: events.Once{Date: "2024-12-20"}},
		{ID: 2, Phase: config.PhaseWork, Amount: 100, Schedule: events.Monthly{StartDate: "2024-11-01", EndDate: "2025-02-01"}},
	}
	sim.Cashflows = []config.CashflowItem{
		{ID: 1, Label: "Bad date", Amount: 500, Schedule: events.Once{Date: "tomorrow"}},
	}

	results := GetForecast(nil, sim)
	if results.Totals.Nominal != 200 {
		t.Errorf("nominal total = %v, expected only the two in-range monthly hits", results.Totals.Nominal)
	}
}

func TestLegacyInstallments(t *testing.T) {
	sim := baseSimulation()
	sim.Cashflows = []config.CashflowItem{
		{ID: 1, Label: "Furniture", Amount: 1000, Schedule: events.Installments{FirstDate: "2025-03-01", Count: 3, EveryMonths: 1}},
	}

	results := GetForecast(nil, sim)
	expected := map[string]float64{"2025-03": 333.33, "2025-04": 333.33, "2025-05": 333.34}
	sum := 0.0
	for month, amount := range expected {
		row := mustRow(t, results, month)
		if row.Categories.LegacyCashflowNominal != amount {
			t.Errorf("%s legacy nominal = %v, expected %v", month, row.Categories.LegacyCashflowNominal, amount)
		}
		sum += row.Categories.LegacyCashflowNominal
	}
	if math.Round(sum*100)/100 != 1000 || results.Totals.Nominal != 1000 {
		t.Errorf("installments sum to %v (total %v), expected 1000", sum, results.Totals.Nominal)
	}
}

func TestLegacyRollingFactor(t *testing.T) {
	sim := baseSimulation()
	sim.Index = config.Index{Enabled: true, MonthlyRate: 1}
	sim.Cashflows = []config.CashflowItem{
		{ID: 1, Label: "First month", Amount: 1000, Schedule: events.Once{Date: "2025-01-31"}},
		{ID: 2, Label: "Third month", Amount: 1000, Schedule: events.Once{Date: "2025-03-01"}},
	}

	results := GetForecast(nil, sim)
	if got := mustRow(t, results, "2025-01").Categories.LegacyCashflowCorrected; got != 1010 {
		t.Errorf("first month corrected = %v, expected 1010", got)
	}
	if got := mustRow(t, results, "2025-03").Categories.LegacyCashflowCorrected; got != 1030.3 {
		t.Errorf("third month corrected = %v, expected 1030.30", got)
	}

	sim.Index.Enabled = false
	results = GetForecast(nil, sim)
	if got := mustRow(t, results, "2025-03").Categories.LegacyCashflowCorrected; got != 1000 {
		t.Errorf("disabled index corrected = %v, expected 1000", got)
	}
}

func TestConstructionInterest(t *testing.T) {
	principal := 200000.0
	tests := []struct {
		name          string
		settings      config.ConstructionInterest
		expectedTotal float64
		expectedByRow map[string]float64
	}{
		{
			name:          "Disabled",
			settings:      config.ConstructionInterest{MonthlyRate: 1, DisbursementPercentMonthly: 10},
			expectedTotal: 0,
			expectedByRow: map[string]float64{"2025-01": 0},
		},
		{
			name: "Base price principal with a skipped month",
			settings: config.ConstructionInterest{
				Enabled:                    true,
				MonthlyRate:                1,
				DisbursementPercentMonthly: 10,
				DisbursementByMonth:        map[string]float64{"2025-03": 0, "2025-04": 20},
			},
			expectedTotal: 100 + 100 + 200,
			expectedByRow: map[string]float64{"2025-01": 100, "2025-02": 100, "2025-03": 0, "2025-04": 200, "2025-05": 0},
		},
		{
			name: "Explicit principal",
			settings: config.ConstructionInterest{
				Enabled:                    true,
				Principal:                  &principal,
				MonthlyRate:                0.5,
				DisbursementPercentMonthly: 5,
			},
			expectedTotal: 4 * 50,
			expectedByRow: map[string]float64{"2025-01": 50, "2025-04": 50, "2025-05": 0},
		},
		{
			name:          "Zero rate accrues nothing",
			settings:      config.ConstructionInterest{Enabled: true, DisbursementPercentMonthly: 10},
			expectedTotal: 0,
			expectedByRow: map[string]float64{"2025-01": 0},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sim := config.Simulation{
				ContractDate:         "2025-01-15",
				DeliveryDate:         "2025-04-10",
				BasePrice:            100000,
				ConstructionInterest: tt.settings,
				Cashflows: []config.CashflowItem{
					{ID: 1, Label: "Late", Amount: 10, Schedule: events.Once{Date: "2025-08-01"}},
				},
			}

			results := GetForecast(nil, sim)
			if results.Meta.ConstructionInterestTotal != tt.expectedTotal {
				t.Errorf("construction total = %v, expected %v", results.Meta.ConstructionInterestTotal, tt.expectedTotal)
			}
			for month, expected := range tt.expectedByRow {
				row := mustRow(t, results, month)
				if row.Categories.ConstructionInterest != expected {
					t.Errorf("%s construction interest = %v, expected %v", month, row.Categories.ConstructionInterest, expected)
				}
			}
			if tt.expectedTotal > 0 {
				row := mustRow(t, results, "2025-01")
				if row.Nominal != row.Categories.ConstructionInterest || row.Corrected != row.Nominal {
					t.Errorf("construction interest must count in nominal and corrected: %+v", row)
				}
			}
		})
	}
}

func TestFinancing(t *testing.T) {
	tests := []struct {
		name              string
		payments          []config.BuilderPayment
		expectedPrincipal float64
	}{
		{
			name:              "Principal is the unpaid base price",
			payments:          []config.BuilderPayment{signalPayment(100000)},
			expectedPrincipal: 120000,
		},
		{
			name: "Payment in the start month is deducted",
			payments: []config.BuilderPayment{
				signalPayment(100000),
				{ID: 2, Phase: config.PhaseKeys, Amount: 20000, Schedule: events.Once{Date: "2025-07-25"}},
			},
			expectedPrincipal: 100000,
		},
		{
			name: "Payment after the start month is not deducted",
			payments: []config.BuilderPayment{
				signalPayment(100000),
				{ID: 2, Phase: config.PhaseKeys, Amount: 5000, Schedule: events.Once{Date: "2025-08-25"}},
			},
			expectedPrincipal: 120000,
		},
		{
			name:              "Overpaid base price clamps to zero",
			payments:          []config.BuilderPayment{signalPayment(300000)},
			expectedPrincipal: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sim := config.Simulation{
				ContractDate:    "2025-01-15",
				DeliveryDate:    "2025-06-01",
				BasePrice:       220000,
				BuilderPayments: tt.payments,
				Financing:       config.Financing{Enabled: true, System: loans.SAC, StartDate: "2025-07-01", Months: 12},
			}

			results := GetForecast(nil, sim)
			meta := results.Meta
			if meta.FinancingPrincipal != tt.expectedPrincipal {
				t.Fatalf("financing principal = %v, expected %v", meta.FinancingPrincipal, tt.expectedPrincipal)
			}
			if meta.FinancingStartMonth != "2025-07" || meta.FinancingEndMonth != "2026-06" || meta.FinancingMonths != 12 {
				t.Errorf("unexpected financing meta %+v", meta)
			}

			if tt.expectedPrincipal == 0 {
				if len(meta.FinancingSchedule) != 0 || results.Totals.Financing != 0 {
					t.Errorf("expected no schedule, got %d entries", len(meta.FinancingSchedule))
				}
				return
			}

			if len(meta.FinancingSchedule) != 12 {
				t.Fatalf("schedule has %d entries, expected 12", len(meta.FinancingSchedule))
			}
			installments := 0.0
			for i, entry := range meta.FinancingSchedule {
				installments += entry.Installment
				month := datetime.KeyFromIndex(2025*12 + 6 + i)
				if entry.MonthKey != month {
					t.Errorf("entry %d month = %s, expected %s", i, entry.MonthKey, month)
				}
				if row := mustRow(t, results, month); row.Categories.FinancingInstallment != entry.Installment {
					t.Errorf("%s financing installment = %v, expected %v", month, row.Categories.FinancingInstallment, entry.Installment)
				}
			}
			if results.Totals.Financing != mathutil.Money(installments) {
				t.Errorf("financing total = %v, expected the schedule sum %v", results.Totals.Financing, mathutil.Money(installments))
			}
			// Each installment rounds to the cent, so a zero-rate total may drift by half a cent per entry.
			if drift := math.Abs(results.Totals.Financing - tt.expectedPrincipal); drift > 0.005*float64(len(meta.FinancingSchedule)) {
				t.Errorf("financing total = %v drifts %v from principal %v", results.Totals.Financing, drift, tt.expectedPrincipal)
			}
			if results.Totals.GrandTotal != mathutil.Money(results.Totals.Corrected+results.Totals.Financing) {
				t.Errorf("grand total %v != corrected + financing", results.Totals.GrandTotal)
			}
		})
	}
}

func TestFinancingDescriptorWhenDegenerate(t *testing.T) {
	tests := []struct {
		name      string
		financing config.Financing
		enabled   bool
	}{
		{"Disabled", config.Financing{StartDate: "2025-07-01", Months: 12}, false},
		{"Missing start date", config.Financing{Enabled: true, Months: 12, System: loans.PRICE}, true},
		{"Zero months", config.Financing{Enabled: true, StartDate: "2025-07-01"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sim := baseSimulation()
			sim.Financing = tt.financing
			tl := newTimeline(datetime.MonthRange("2025-01", "2025-12"))

			info := applyFinancing(tl, sim, loans.NewAmortizationScheduleGenerator(nil))
			if info.Enabled != tt.enabled {
				t.Errorf("Enabled = %v, expected %v", info.Enabled, tt.enabled)
			}
			if info.Schedule == nil || len(info.Schedule) != 0 || info.Principal != 0 {
				t.Errorf("expected an empty schedule and zero principal, got %+v", info)
			}
			if tt.financing.System == loans.PRICE && info.System != loans.PRICE {
				t.Errorf("System = %s, expected PRICE to be reported", info.System)
			}
		})
	}
}

func TestInvalidContractDateYieldsEmptyResults(t *testing.T) {
	sim := baseSimulation()
	sim.ContractDate = "not a date"
	sim.BuilderPayments = []config.BuilderPayment{signalPayment(100000)}

	results := GetForecast(nil, sim)
	if len(results.Timeline) != 0 || results.Timeline == nil {
		t.Errorf("expected an empty, non-nil timeline, got %v", results.Timeline)
	}
	if results.Totals != (Totals{}) {
		t.Errorf("expected zero totals, got %+v", results.Totals)
	}
	if results.Meta.StartMonth != "" || results.Meta.FinancingSystem != loans.SAC || results.Meta.FinancingSchedule == nil {
		t.Errorf("unexpected meta %+v", results.Meta)
	}

	data, err := json.Marshal(results)
	if err != nil {
		t.Fatalf("json.Marshal() error = %v", err)
	}
	var decoded map[string]interface{}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("json.Unmarshal() error = %v", err)
	}
	if _, ok := decoded["timeline"].([]interface{}); !ok {
		t.Errorf("timeline must serialize as an array, got %v", decoded["timeline"])
	}
}

func TestResolveBounds(t *testing.T) {
	tests := []struct {
		name          string
		mutate        func(*config.Simulation)
		expectedEnd   string
		expectedDelay string
		ok            bool
	}{
		{
			name:          "Tolerance shifts by days not months",
			mutate:        func(s *config.Simulation) { s.ToleranceDays = 29 },
			expectedEnd:   "2026-06",
			expectedDelay: "2026-06",
			ok:            true,
		},
		{
			name:          "Tolerance crossing a month boundary",
			mutate:        func(s *config.Simulation) { s.ToleranceDays = 30 },
			expectedEnd:   "2026-07",
			expectedDelay: "2026-07",
			ok:            true,
		},
		{
			name: "Cashflow installments extend the end",
			mutate: func(s *config.Simulation) {
				s.Cashflows = []config.CashflowItem{{ID: 1, Label: "Late", Amount: 1, Schedule: events.Installments{FirstDate: "2026-10-01", Count: 4, EveryMonths: 3}}}
			},
			expectedEnd:   "2027-07",
			expectedDelay: "2026-11",
			ok:            true,
		},
		{
			name: "Builder balloon extends the end",
			mutate: func(s *config.Simulation) {
				s.BuilderPayments = []config.BuilderPayment{{ID: 1, Schedule: events.Balloon{StartDate: "2025-01-01", EndDate: "2027-02-01", EveryMonths: 6}}}
			},
			expectedEnd:   "2027-02",
			expectedDelay: "2026-11",
			ok:            true,
		},
		{
			name: "Disabled financing is ignored",
			mutate: func(s *config.Simulation) {
				s.Financing = config.Financing{StartDate: "2027-01-01", Months: 360}
			},
			expectedEnd:   "2026-11",
			expectedDelay: "2026-11",
			ok:            true,
		},
		{
			name: "Invalid delivery falls back to the contract month",
			mutate: func(s *config.Simulation) {
				s.DeliveryDate = ""
			},
			expectedEnd:   "2025-01",
			expectedDelay: "2025-01",
			ok:            true,
		},
		{
			name: "Delivery month without a day is used as-is",
			mutate: func(s *config.Simulation) {
				s.DeliveryDate = "2026-02"
			},
			expectedEnd:   "2026-02",
			expectedDelay: "2026-02",
			ok:            true,
		},
		{
			name:   "Invalid contract date",
			mutate: func(s *config.Simulation) { s.ContractDate = "2025" },
			ok:     false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sim := baseSimulation()
			tt.mutate(&sim)

			bounds, ok := ResolveBounds(sim)
			if ok != tt.ok {
				t.Fatalf("ResolveBounds() ok = %v, expected %v", ok, tt.ok)
			}
			if !ok {
				return
			}
			if bounds.StartMonth != "2025-01" {
				t.Errorf("StartMonth = %s, expected 2025-01", bounds.StartMonth)
			}
			if bounds.EndMonth != tt.expectedEnd {
				t.Errorf("EndMonth = %s, expected %s", bounds.EndMonth, tt.expectedEnd)
			}
			if bounds.DeliveryPlusToleranceMonth != tt.expectedDelay {
				t.Errorf("DeliveryPlusToleranceMonth = %s, expected %s", bounds.DeliveryPlusToleranceMonth, tt.expectedDelay)
			}
		})
	}
}

func richSimulation() config.Simulation {
	sim := baseSimulation()
	sim.Index = config.Index{Enabled: true, MonthlyRate: 0.45, Series: indexation.Series{
		"INCC": {"2025-06": 0.9, "2025-07": 0.2},
	}}
	sim.BuilderPayments = []config.BuilderPayment{
		signalPayment(30000),
		{ID: 2, Phase: config.PhaseWork, AmountMode: config.AmountPercent, Amount: 0.35, IndexRef: "INCC", Schedule: events.Monthly{StartDate: "2025-02-10", EndDate: "2026-05-10"}},
		{ID: 3, Phase: config.PhaseIntermediary, Amount: 15000, IndexRef: "INCC", Schedule: events.Balloon{StartDate: "2025-06-10", EndDate: "2026-06-10", EveryMonths: 6}},
	}
	sim.Cashflows = []config.CashflowItem{
		{ID: 1, Label: "Furniture", Amount: 18000, Schedule: events.Installments{FirstDate: "2026-07-01", Count: 7, EveryMonths: 1}},
	}
	principal := 350000.0
	sim.ConstructionInterest = config.ConstructionInterest{Enabled: true, Principal: &principal, MonthlyRate: 0.6, DisbursementPercentMonthly: 4}
	sim.Financing = config.Financing{Enabled: true, System: loans.PRICE, StartDate: "2026-12-01", Months: 240, AnnualRate: 10.49}
	return sim
}

func TestGetForecastIsDeterministic(t *testing.T) {
	sim := richSimulation()
	before := richSimulation()

	first := GetForecast(nil, sim)
	second := GetForecast(nil, sim)

	if !reflect.DeepEqual(first, second) {
		t.Error("two projections of the same simulation differ")
	}
	if !reflect.DeepEqual(sim, before) {
		t.Error("GetForecast modified its input")
	}

	firstJSON, _ := json.Marshal(first)
	secondJSON, _ := json.Marshal(second)
	if string(firstJSON) != string(secondJSON) {
		t.Error("serialized projections differ")
	}
}

func TestTotalsMatchTimeline(t *testing.T) {
	results := GetForecast(nil, richSimulation())

	nominal, corrected, financing := 0.0, 0.0, 0.0
	for _, row := range results.Timeline {
		nominal += row.Nominal
		corrected += row.Corrected
		financing += row.FinancingInstallment
	}
	if math.Abs(nominal-results.Totals.Nominal) > 0.01 ||
		math.Abs(corrected-results.Totals.Corrected) > 0.01 ||
		math.Abs(financing-results.Totals.Financing) > 0.01 {
		t.Errorf("totals %+v do not match the timeline sums %.2f/%.2f/%.2f", results.Totals, nominal, corrected, financing)
	}

	last := results.Meta.FinancingSchedule[len(results.Meta.FinancingSchedule)-1]
	if last.Balance != 0 || last.MonthKey != results.Meta.FinancingEndMonth {
		t.Errorf("unexpected final financing entry %+v", last)
	}
	if results.Meta.ConstructionInterestMonthlyRatePercent != 0.6 || results.Meta.MonthlyIndexRatePercent != 0.45 {
		t.Errorf("unexpected rate meta %+v", results.Meta)
	}
}
