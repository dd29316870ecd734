// Package output provides utilities for formatting and displaying projection results.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/iwvelando/cashout-forecast/internal/forecast"
	"github.com/iwvelando/cashout-forecast/pkg/constants"
	"github.com/iwvelando/cashout-forecast/pkg/format"
	"github.com/iwvelando/cashout-forecast/pkg/optimization"
	"github.com/iwvelando/cashout-forecast/pkg/risks"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Report is everything printed for one simulation.
type Report struct {
	Name          string                 `json:"name"`
	Results       forecast.Results       `json:"results"`
	Risks         []risks.Flag           `json:"risks"`
	Optimizations []optimization.Summary `json:"optimizations,omitempty"`
}

// Write renders reports in the requested output format.
func Write(w io.Writer, outputFormat string, reports []Report) error {
	switch outputFormat {
	case constants.OutputFormatPretty:
		PrettyFormat(w, reports)
	case constants.OutputFormatCSV:
		CsvFormat(w, reports)
	case constants.OutputFormatJSON:
		return JSONFormat(w, reports)
	default:
		return fmt.Errorf("unsupported output format: %s", outputFormat)
	}
	return nil
}

// PrettyFormat outputs a human-readable rather than machine-readable table.
func PrettyFormat(w io.Writer, reports []Report) {
	p := message.NewPrinter(language.BrazilianPortuguese)
	for i, report := range reports {
		results := report.Results
		_, _ = fmt.Fprintf(w, "--- Cash-out for simulation %s ---\n", report.Name)
		if len(results.Timeline) == 0 {
			_, _ = fmt.Fprintf(w, "No timeline: the contract date is missing or invalid.\n")
		} else {
			_, _ = fmt.Fprintf(w, "Month   | Nominal         | Factor     | Corrected       | Financing       | Total out\n")
			_, _ = fmt.Fprintf(w, "_____   | _______________ | __________ | _______________ | _______________ | _______________\n")
			for _, row := range results.Timeline {
				_, _ = p.Fprintf(w, "%s | %15s | %10.6f | %15s | %15s | %15s\n",
					row.MonthKey,
					format.NumericCurrency(row.Nominal),
					row.Factor,
					format.NumericCurrency(row.Corrected),
					format.NumericCurrency(row.FinancingInstallment),
					format.NumericCurrency(row.TotalOut),
				)
			}
		}

		totals := results.Totals
		_, _ = fmt.Fprintf(w, "\nTotals: nominal %s, corrected %s, financing %s\n",
			format.Currency(totals.Nominal), format.Currency(totals.Corrected), format.Currency(totals.Financing))
		_, _ = fmt.Fprintf(w, "Grand total: %s\n", format.Currency(totals.GrandTotal))

		printMeta(w, p, results.Meta)
		printRisks(w, report.Risks)
		printOptimizations(w, report.Optimizations)

		if i < len(reports)-1 {
			_, _ = fmt.Fprintf(w, "\n")
		}
	}
}

func printMeta(w io.Writer, p *message.Printer, meta forecast.Meta) {
	if meta.StartMonth == "" {
		return
	}
	_, _ = fmt.Fprintf(w, "Timeline %s to %s, delivery with tolerance in %s\n", meta.StartMonth, meta.EndMonth, meta.DeliveryPlusToleranceMonth)
	if meta.ConstructionInterestTotal > 0 {
		_, _ = fmt.Fprintf(w, "Construction interest at %s a month: %s\n",
			format.Percent(meta.ConstructionInterestMonthlyRatePercent), format.Currency(meta.ConstructionInterestTotal))
	}
	if len(meta.FinancingSchedule) > 0 {
		_, _ = p.Fprintf(w, "Financing %s of %s over %d months at %s a year, %s to %s\n",
			meta.FinancingSystem,
			format.Currency(meta.FinancingPrincipal),
			meta.FinancingMonths,
			format.Percent(meta.FinancingAnnualRate),
			meta.FinancingStartMonth,
			meta.FinancingEndMonth,
		)
	}
}

func printRisks(w io.Writer, flags []risks.Flag) {
	if len(flags) == 0 {
		return
	}
	_, _ = fmt.Fprintf(w, "Checklist risks (highest %s):\n", strings.ToUpper(string(risks.Highest(flags))))
	for _, flag := range flags {
		_, _ = fmt.Fprintf(w, "  [%s] %s: %s\n", strings.ToUpper(string(flag.Severity)), flag.Title, flag.Detail)
	}
}

func printOptimizations(w io.Writer, summaries []optimization.Summary) {
	if len(summaries) == 0 {
		return
	}
	_, _ = fmt.Fprintf(w, "Optimization adjustments:\n")
	for _, summary := range summaries {
		_, _ = fmt.Fprintf(w, "  %s (%s): %s -> %s, peak %s against budget %s (%s, %d iterations)\n",
			summary.TargetName,
			summary.Field,
			summary.OriginalDisplay,
			summary.ValueDisplay,
			format.Currency(summary.PeakOutflow),
			format.Currency(summary.Budget),
			summary.Status(),
			summary.Iterations,
		)
		for _, note := range summary.Notes {
			_, _ = fmt.Fprintf(w, "    %s\n", note)
		}
	}
}

// CsvFormat outputs in comma-separated value format, one line per
// simulation and month.
func CsvFormat(w io.Writer, reports []Report) {
	_, _ = fmt.Fprintf(w, `"simulation","month","nominal","factor","corrected","builderNominal","builderCorrected",`+
		`"legacyCashflowNominal","legacyCashflowCorrected","constructionInterest","financingInstallment","totalOut"`+"\n")
	for _, report := range reports {
		name := strings.ReplaceAll(report.Name, `"`, `""`)
		for _, row := range report.Results.Timeline {
			c := row.Categories
			_, _ = fmt.Fprintf(w, `"%s","%s","%.2f","%.8f","%.2f","%.2f","%.2f","%.2f","%.2f","%.2f","%.2f","%.2f"`+"\n",
				name,
				row.MonthKey,
				row.Nominal,
				row.Factor,
				row.Corrected,
				c.BuilderNominal,
				c.BuilderCorrected,
				c.LegacyCashflowNominal,
				c.LegacyCashflowCorrected,
				c.ConstructionInterest,
				row.FinancingInstallment,
				row.TotalOut,
			)
		}
	}
}

// CsvString returns the CsvFormat rendering as a string.
func CsvString(reports []Report) string {
	var builder strings.Builder
	CsvFormat(&builder, reports)
	return builder.String()
}

// JSONFormat outputs the reports as an indented JSON array.
func JSONFormat(w io.Writer, reports []Report) error {
	if reports == nil {
		reports = []Report{}
	}
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(reports); err != nil {
		return fmt.Errorf("failed to encode results: %w", err)
	}
	return nil
}
