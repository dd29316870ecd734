package output

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/iwvelando/cashout-forecast/internal/forecast"
	"github.com/iwvelando/cashout-forecast/pkg/loans"
	"github.com/iwvelando/cashout-forecast/pkg/optimization"
	"github.com/iwvelando/cashout-forecast/pkg/risks"
)

func sampleReport() Report {
	return Report{
		Name: "Tower A 1204",
		Results: forecast.Results{
			Timeline: []forecast.TimelineRow{
				{
					MonthKey:  "2025-01",
					Nominal:   100000,
					Factor:    1,
					Corrected: 100000,
					TotalOut:  100000,
					Categories: forecast.Categories{
						BuilderNominal:   100000,
						BuilderCorrected: 100000,
					},
				},
				{
					MonthKey:             "2025-02",
					Nominal:              1000,
					Factor:               1.0303,
					Corrected:            1030.3,
					FinancingInstallment: 2500.5,
					TotalOut:             3530.8,
					Categories: forecast.Categories{
						LegacyCashflowNominal:   1000,
						LegacyCashflowCorrected: 1030.3,
						FinancingInstallment:    2500.5,
					},
				},
			},
			Totals: forecast.Totals{Nominal: 101000, Corrected: 101030.3, Financing: 2500.5, GrandTotal: 103530.8},
			Meta: forecast.Meta{
				StartMonth:                 "2025-01",
				EndMonth:                   "2025-02",
				DeliveryPlusToleranceMonth: "2025-02",
				FinancingSystem:            loans.SAC,
				FinancingSchedule:          []loans.Entry{{MonthKey: "2025-02", Installment: 2500.5}},
				FinancingPrincipal:         2500,
				FinancingMonths:            1,
				FinancingStartMonth:        "2025-02",
				FinancingEndMonth:          "2025-02",
				FinancingAnnualRate:        10.5,
			},
		},
		Risks: []risks.Flag{
			{ID: "sati-present", Severity: risks.SeverityMedium, Title: "SATI presente", Detail: "revisar"},
		},
	}
}

func TestPrettyFormat(t *testing.T) {
	var buf bytes.Buffer
	PrettyFormat(&buf, []Report{sampleReport()})
	output := buf.String()

	expected := []string{
		"--- Cash-out for simulation Tower A 1204 ---",
		"Month   | Nominal",
		"100.000,00",
		"3.530,80",
		"Grand total: R$ 103.530,80",
		"Timeline 2025-01 to 2025-02",
		"Financing SAC of R$ 2.500,00",
		"Checklist risks (highest MEDIUM):",
		"[MEDIUM] SATI presente: revisar",
	}
	for _, element := range expected {
		if !strings.Contains(output, element) {
			t.Errorf("PrettyFormat output missing %q", element)
		}
	}
	if strings.Contains(output, "Optimization adjustments:") {
		t.Errorf("PrettyFormat printed an empty optimization section")
	}
}

func TestPrettyFormatOptimizationSummary(t *testing.T) {
	report := sampleReport()
	report.Optimizations = []optimization.Summary{
		{
			TargetName:      "Tower A 1204",
			Field:           "financing.months",
			Budget:          4000,
			PeakOutflow:     3530.8,
			Iterations:      7,
			Converged:       true,
			OriginalDisplay: "240 months",
			ValueDisplay:    "180 months",
		},
	}

	var buf bytes.Buffer
	PrettyFormat(&buf, []Report{report})
	output := buf.String()

	if !strings.Contains(output, "Optimization adjustments:") {
		t.Fatalf("expected optimization header in output, got %q", output)
	}
	if !strings.Contains(output, "Tower A 1204 (financing.months): 240 months -> 180 months") {
		t.Fatalf("expected optimization detail line, got %q", output)
	}
	if !strings.Contains(output, "within budget") {
		t.Fatalf("expected budget status in %q", output)
	}
}

func TestPrettyFormatEmptyTimeline(t *testing.T) {
	defer func() {
		if r := recover(); r != nil {
			t.Errorf("PrettyFormat panicked with empty results: %v", r)
		}
	}()

	var buf bytes.Buffer
	PrettyFormat(&buf, []Report{{Name: "Broken", Results: forecast.Results{Timeline: []forecast.TimelineRow{}}}})
	if !strings.Contains(buf.String(), "No timeline") {
		t.Errorf("expected an empty timeline notice, got %q", buf.String())
	}

	buf.Reset()
	PrettyFormat(&buf, nil)
	if buf.Len() != 0 {
		t.Errorf("expected no output for no reports, got %q", buf.String())
	}
}

func TestCsvFormat(t *testing.T) {
	second := sampleReport()
	second.Name = `Tower "B"`

	lines := strings.Split(strings.TrimSpace(CsvString([]Report{sampleReport(), second})), "\n")
	if len(lines) != 5 {
		t.Fatalf("CsvFormat should produce a header and 4 data lines, got %d", len(lines))
	}

	if !strings.HasPrefix(lines[0], `"simulation","month","nominal","factor","corrected"`) {
		t.Errorf("unexpected header %s", lines[0])
	}
	if lines[1] != `"Tower A 1204","2025-01","100000.00","1.00000000","100000.00","100000.00","100000.00","0.00","0.00","0.00","0.00","100000.00"` {
		t.Errorf("unexpected first line %s", lines[1])
	}
	if !strings.HasPrefix(lines[4], `"Tower ""B""","2025-02","1000.00","1.03030000","1030.30"`) {
		t.Errorf("unexpected last line %s", lines[4])
	}
}

func TestJSONFormat(t *testing.T) {
	var buf bytes.Buffer
	if err := JSONFormat(&buf, []Report{sampleReport()}); err != nil {
		t.Fatalf("JSONFormat() error = %v", err)
	}

	var decoded []map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if len(decoded) != 1 || decoded[0]["name"] != "Tower A 1204" {
		t.Fatalf("unexpected document %v", decoded)
	}
	results := decoded[0]["results"].(map[string]interface{})
	timeline := results["timeline"].([]interface{})
	first := timeline[0].(map[string]interface{})
	if first["monthKey"] != "2025-01" || first["totalOut"] != 100000.0 {
		t.Errorf("unexpected first row %v", first)
	}
	if _, ok := first["categories"].(map[string]interface{})["builderCorrected"]; !ok {
		t.Errorf("row categories missing builderCorrected: %v", first)
	}

	buf.Reset()
	if err := JSONFormat(&buf, nil); err != nil || strings.TrimSpace(buf.String()) != "[]" {
		t.Errorf("JSONFormat(nil) = %q, %v", buf.String(), err)
	}
}

func TestWrite(t *testing.T) {
	for _, format := range []string{"pretty", "csv", "json"} {
		var buf bytes.Buffer
		if err := Write(&buf, format, []Report{sampleReport()}); err != nil {
			t.Errorf("Write(%s) error = %v", format, err)
		}
		if buf.Len() == 0 {
			t.Errorf("Write(%s) produced no output", format)
		}
	}

	if err := Write(&bytes.Buffer{}, "xml", nil); err == nil {
		t.Error("expected an error for an unsupported format")
	}
}
