// Package validation provides simulation validation utilities.
package validation

import (
	"fmt"

	"github.com/iwvelando/cashout-forecast/pkg/constants"
	"github.com/iwvelando/cashout-forecast/pkg/datetime"
)

// ValidateContractDates checks the contract and delivery dates against each
// other. Only the month of each date matters.
func ValidateContractDates(contractDate, deliveryDate string) []string {
	var warnings []string

	_, contractOK := datetime.DateIndex(contractDate)
	if !contractOK {
		warnings = append(warnings, fmt.Sprintf("Contract date %q is not a valid date - the projection will be empty", contractDate))
	}

	_, deliveryOK := datetime.DateIndex(deliveryDate)
	if !deliveryOK {
		warnings = append(warnings, fmt.Sprintf("Delivery date %q is not a valid date - construction interest and the timeline end fall back to the contract month", deliveryDate))
	}

	if datetime.Before(deliveryDate, contractDate) {
		warnings = append(warnings, fmt.Sprintf("Delivery (%s) is before the contract (%s)", deliveryDate, contractDate))
	}

	return warnings
}

// ValidateFinancingStart checks that the bank financing does not start
// before the delivery month.
func ValidateFinancingStart(startDate, deliveryDate string, months int) []string {
	var warnings []string

	if _, ok := datetime.DateIndex(startDate); !ok {
		return append(warnings, fmt.Sprintf("Financing start date %q is not a valid date - no schedule will be produced", startDate))
	}
	if months <= 0 {
		warnings = append(warnings, "Financing term is zero months - no schedule will be produced")
	}

	if datetime.Before(startDate, deliveryDate) {
		warnings = append(warnings, fmt.Sprintf("Financing starts (%s) before delivery (%s)", startDate, deliveryDate))
	}

	return warnings
}

// ValidateToleranceDays flags grace periods longer than the usual
// contractual maximum.
func ValidateToleranceDays(days int) string {
	if days > constants.ToleranceWarningDays {
		return fmt.Sprintf("Tolerance of %d days exceeds %d days", days, constants.ToleranceWarningDays)
	}
	return ""
}

// ValidateItemDates checks that a payment item can land on the timeline.
// Months before the contract month are dropped by the projection.
func ValidateItemDates(itemName, firstDate, endDate, contractDate string) []string {
	var warnings []string

	firstIndex, ok := datetime.DateIndex(firstDate)
	if !ok {
		return append(warnings, fmt.Sprintf("%s has no valid date and is ignored", itemName))
	}

	contractIndex, ok := datetime.DateIndex(contractDate)
	if ok && firstIndex < contractIndex {
		warnings = append(warnings, fmt.Sprintf("%s starts before the contract month (%s < %s) - earlier occurrences are ignored",
			itemName, datetime.KeyFromIndex(firstIndex), datetime.KeyFromIndex(contractIndex)))
	}

	if endDate != "" {
		endIndex, ok := datetime.DateIndex(endDate)
		if !ok {
			warnings = append(warnings, fmt.Sprintf("%s has an invalid end date %q and is ignored", itemName, endDate))
		} else if endIndex < firstIndex {
			warnings = append(warnings, fmt.Sprintf("%s ends before it starts and is ignored", itemName))
		}
	}

	return warnings
}

// SimulationValidator holds the fields of a simulation that validation
// looks at.
type SimulationValidator struct {
	Name          string
	ContractDate  string
	DeliveryDate  string
	ToleranceDays int
	Financing     *FinancingConfig
	Items         []ItemConfig
}

// FinancingConfig is the validated part of an enabled financing.
type FinancingConfig struct {
	StartDate string
	Months    int
}

// ItemConfig is the validated part of a payment item.
type ItemConfig struct {
	Name      string
	FirstDate string
	EndDate   string
}

// ValidateAll validates the entire simulation and returns warnings
func (sv *SimulationValidator) ValidateAll() []string {
	var warnings []string

	warnings = append(warnings, ValidateContractDates(sv.ContractDate, sv.DeliveryDate)...)

	if warning := ValidateToleranceDays(sv.ToleranceDays); warning != "" {
		warnings = append(warnings, warning)
	}

	if sv.Financing != nil {
		warnings = append(warnings, ValidateFinancingStart(sv.Financing.StartDate, sv.DeliveryDate, sv.Financing.Months)...)
	}

	for _, item := range sv.Items {
		warnings = append(warnings, ValidateItemDates(item.Name, item.FirstDate, item.EndDate, sv.ContractDate)...)
	}

	return warnings
}
