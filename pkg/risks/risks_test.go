package risks

import (
	"reflect"
	"testing"

	"github.com/iwvelando/cashout-forecast/internal/config"
)

func ids(flags []Flag) []string {
	out := []string{}
	for _, flag := range flags {
		out = append(out, flag.ID)
	}
	return out
}

func TestEvaluate(t *testing.T) {
	complete := config.ProtectionChecklist{
		QuadroResumo:            true,
		MemorialRegistryChecked: true,
		BrokerageHighlighted:    true,
		ItbiProvisioned:         true,
	}

	tests := []struct {
		name      string
		project   config.Project
		checklist config.ProtectionChecklist
		tolerance int
		explicit  bool
		expected  []string
	}{
		{
			name:      "Empty checklist",
			tolerance: 180,
			expected: []string{
				"missing-quadro-resumo",
				"brokerage-not-highlighted",
				"missing-itbi-provision",
				"missing-memorial-registry-check",
			},
		},
		{
			name:      "Complete checklist",
			checklist: complete,
			tolerance: 180,
			expected:  []string{},
		},
		{
			name: "SATI present",
			checklist: func() config.ProtectionChecklist {
				c := complete
				c.SatiPresent = true
				return c
			}(),
			expected: []string{"sati-present"},
		},
		{
			name:      "Simulation tolerance over 180 days",
			checklist: complete,
			tolerance: 181,
			expected:  []string{"tolerance-days-over-180"},
		},
		{
			name:      "Project tolerance used when simulation has none",
			project:   config.Project{ToleranceDays: 240},
			checklist: complete,
			expected:  []string{"tolerance-days-over-180"},
		},
		{
			name:      "Explicit zero tolerance keeps the project value out",
			project:   config.Project{ToleranceDays: 240},
			checklist: complete,
			explicit:  true,
			expected:  []string{},
		},
		{
			name:      "Simulation tolerance wins over project",
			project:   config.Project{ToleranceDays: 240},
			checklist: complete,
			tolerance: 90,
			expected:  []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sim := config.Simulation{ToleranceDays: tt.tolerance, ToleranceDaysSet: tt.explicit, ProtectionChecklist: tt.checklist}
			got := ids(Evaluate(tt.project, sim))
			if !reflect.DeepEqual(got, tt.expected) {
				t.Errorf("Evaluate() = %v, expected %v", got, tt.expected)
			}
		})
	}
}

func TestEvaluateFlagContent(t *testing.T) {
	flags := Evaluate(config.Project{}, config.Simulation{ToleranceDays: 365})
	if len(flags) != 5 {
		t.Fatalf("expected 5 flags, got %d", len(flags))
	}

	first := flags[0]
	if first.Severity != SeverityHigh || first.Title != "Quadro-resumo ausente" || first.Detail == "" {
		t.Errorf("unexpected first flag %+v", first)
	}
	last := flags[len(flags)-1]
	if last.ID != "tolerance-days-over-180" || last.Severity != SeverityLow {
		t.Errorf("unexpected last flag %+v", last)
	}
}

func TestEvaluateNormalizedTolerance(t *testing.T) {
	project := config.Project{ToleranceDays: 240}
	checklist := map[string]interface{}{
		"quadroResumo":            true,
		"memorialRegistryChecked": true,
		"brokerageHighlighted":    true,
		"itbiProvisioned":         true,
	}

	tests := []struct {
		name     string
		raw      map[string]interface{}
		expected []string
	}{
		{
			name:     "Missing tolerance uses the project",
			raw:      map[string]interface{}{"protectionChecklist": checklist},
			expected: []string{"tolerance-days-over-180"},
		},
		{
			name:     "Empty tolerance uses the project",
			raw:      map[string]interface{}{"toleranceDays": "", "protectionChecklist": checklist},
			expected: []string{"tolerance-days-over-180"},
		},
		{
			name:     "Explicit zero tolerance is kept",
			raw:      map[string]interface{}{"toleranceDays": 0, "protectionChecklist": checklist},
			expected: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sim, _ := config.NormalizeSimulation(tt.raw)
			if got := ids(Evaluate(project, sim)); !reflect.DeepEqual(got, tt.expected) {
				t.Errorf("Evaluate() = %v, expected %v", got, tt.expected)
			}
		})
	}
}

func TestHighest(t *testing.T) {
	tests := []struct {
		name     string
		flags    []Flag
		expected Severity
	}{
		{"None", nil, ""},
		{"Low only", []Flag{{Severity: SeverityLow}}, SeverityLow},
		{"Mixed", []Flag{{Severity: SeverityMedium}, {Severity: SeverityHigh}, {Severity: SeverityLow}}, SeverityHigh},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Highest(tt.flags); got != tt.expected {
				t.Errorf("Highest() = %q, expected %q", got, tt.expected)
			}
		})
	}
}
