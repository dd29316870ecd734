package forecast

import (
	"github.com/iwvelando/cashout-forecast/pkg/loans"
	"github.com/iwvelando/cashout-forecast/pkg/mathutil"
)

// Categories breaks a month's outflow down by source.
type Categories struct {
	BuilderNominal          float64 `json:"builderNominal"`
	BuilderCorrected        float64 `json:"builderCorrected"`
	LegacyCashflowNominal   float64 `json:"legacyCashflowNominal"`
	LegacyCashflowCorrected float64 `json:"legacyCashflowCorrected"`
	ConstructionInterest    float64 `json:"constructionInterest"`
	FinancingInstallment    float64 `json:"financingInstallment"`
}

// TimelineRow is the projection of a single month.
type TimelineRow struct {
	MonthKey             string     `json:"monthKey"`
	Nominal              float64    `json:"nominal"`
	Factor               float64    `json:"factor"`
	Corrected            float64    `json:"corrected"`
	FinancingInstallment float64    `json:"financingInstallment"`
	TotalOut             float64    `json:"totalOut"`
	Categories           Categories `json:"categories"`
}

// Totals sums the timeline.
type Totals struct {
	Nominal    float64 `json:"nominal"`
	Corrected  float64 `json:"corrected"`
	Financing  float64 `json:"financing"`
	GrandTotal float64 `json:"grandTotal"`
}

// Meta reports the bounds and the derived financing and construction
// figures of a projection. Months that could not be resolved are empty.
type Meta struct {
	StartMonth                             string        `json:"startMonth"`
	EndMonth                               string        `json:"endMonth"`
	DeliveryPlusToleranceMonth             string        `json:"deliveryPlusToleranceMonth"`
	FinancingEndMonth                      string        `json:"financingEndMonth"`
	FinancingPrincipal                     float64       `json:"financingPrincipal"`
	FinancingMonths                        int           `json:"financingMonths"`
	FinancingSystem                        loans.System  `json:"financingSystem"`
	FinancingStartMonth                    string        `json:"financingStartMonth"`
	FinancingAnnualRate                    float64       `json:"financingAnnualRate"`
	FinancingSchedule                      []loans.Entry `json:"financingSchedule"`
	ConstructionInterestTotal              float64       `json:"constructionInterestTotal"`
	ConstructionInterestMonthlyRatePercent float64       `json:"constructionInterestMonthlyRatePercent"`
	MonthlyIndexRatePercent                float64       `json:"monthlyIndexRatePercent"`
}

// Results is the full projection of a simulation.
type Results struct {
	Timeline []TimelineRow `json:"timeline"`
	Totals   Totals        `json:"totals"`
	Meta     Meta          `json:"meta"`
}

// Row returns the row of month, if the timeline covers it.
func (r Results) Row(month string) (TimelineRow, bool) {
	for _, row := range r.Timeline {
		if row.MonthKey == month {
			return row, true
		}
	}
	return TimelineRow{}, false
}

// timeline is the ordered set of rows being filled, with a month lookup
// built once.
type timeline struct {
	rows  []TimelineRow
	index map[string]int
}

func newTimeline(months []string) *timeline {
	t := &timeline{
		rows:  make([]TimelineRow, len(months)),
		index: make(map[string]int, len(months)),
	}
	for i, month := range months {
		t.rows[i] = TimelineRow{MonthKey: month, Factor: 1}
		t.index[month] = i
	}
	return t
}

// row returns the row for month, or nil when month is outside the timeline.
func (t *timeline) row(month string) *TimelineRow {
	i, ok := t.index[month]
	if !ok {
		return nil
	}
	return &t.rows[i]
}

func (t *timeline) months() []string {
	months := make([]string, len(t.rows))
	for i, row := range t.rows {
		months[i] = row.MonthKey
	}
	return months
}

// accumulate adds amount to a money field, rounding at the point of
// accumulation.
func accumulate(field *float64, amount float64) {
	*field = mathutil.Money(*field + amount)
}
