// Package format renders amounts the way Brazilian contracts print them.
package format

import (
	"fmt"
	"math"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Currency returns a BRL currency string with a thousands dot and a decimal
// comma (e.g., "-R$ 1.234,56").
func Currency(amount float64) string {
	formatted := formatPositive(math.Abs(amount))
	if amount < 0 && formatted != "0,00" {
		return "-R$ " + formatted
	}
	return "R$ " + formatted
}

// NumericCurrency returns the same digits as Currency without the symbol
// (e.g., "-1.234,56").
func NumericCurrency(amount float64) string {
	formatted := formatPositive(math.Abs(amount))
	if amount < 0 && formatted != "0,00" {
		return "-" + formatted
	}
	return formatted
}

// Percent renders a percentage with two decimals and a decimal comma.
func Percent(value float64) string {
	return strings.Replace(fmt.Sprintf("%.2f%%", value), ".", ",", 1)
}

var printer = message.NewPrinter(language.BrazilianPortuguese)

func formatPositive(value float64) string {
	return printer.Sprintf("%.2f", value)
}
