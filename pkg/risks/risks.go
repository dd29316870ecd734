// Package risks flags contract protection gaps recorded in a simulation's
// checklist.
package risks

import (
	"github.com/iwvelando/cashout-forecast/internal/config"
	"github.com/iwvelando/cashout-forecast/pkg/constants"
)

// Severity ranks a flag.
type Severity string

const (
	SeverityHigh   Severity = "high"
	SeverityMedium Severity = "medium"
	SeverityLow    Severity = "low"
)

// Flag is a single finding.
type Flag struct {
	ID       string   `json:"id"`
	Severity Severity `json:"severity"`
	Title    string   `json:"title"`
	Detail   string   `json:"detail"`
}

type rule struct {
	flag    Flag
	matches func(config.ProtectionChecklist) bool
}

var checklistRules = []rule{
	{
		flag: Flag{
			ID:       "missing-quadro-resumo",
			Severity: SeverityHigh,
			Title:    "Quadro-resumo ausente",
			Detail:   "O checklist não confirma quadro-resumo revisado.",
		},
		matches: func(c config.ProtectionChecklist) bool { return !c.QuadroResumo },
	},
	{
		flag: Flag{
			ID:       "brokerage-not-highlighted",
			Severity: SeverityMedium,
			Title:    "Corretagem não confirmada/destacada",
			Detail:   "Não há confirmação de corretagem destacada em contrato.",
		},
		matches: func(c config.ProtectionChecklist) bool { return !c.BrokerageHighlighted },
	},
	{
		flag: Flag{
			ID:       "sati-present",
			Severity: SeverityMedium,
			Title:    "SATI presente",
			Detail:   "Checklist indica SATI presente; revisar cobrança e base legal.",
		},
		matches: func(c config.ProtectionChecklist) bool { return c.SatiPresent },
	},
	{
		flag: Flag{
			ID:       "missing-itbi-provision",
			Severity: SeverityMedium,
			Title:    "ITBI não provisionado",
			Detail:   "Não há provisão de ITBI confirmada no checklist.",
		},
		matches: func(c config.ProtectionChecklist) bool { return !c.ItbiProvisioned },
	},
	{
		flag: Flag{
			ID:       "missing-memorial-registry-check",
			Severity: SeverityHigh,
			Title:    "Memorial/matrícula não confirmados",
			Detail:   "Checklist não confirma validação de memorial e matrícula/cartório.",
		},
		matches: func(c config.ProtectionChecklist) bool { return !c.MemorialRegistryChecked },
	},
}

var longTolerance = Flag{
	ID:       "tolerance-days-over-180",
	Severity: SeverityLow,
	Title:    "Prazo de tolerância acima de 180 dias",
	Detail:   "Prazo de tolerância superior a 180 dias.",
}

// Evaluate returns the flags raised for sim, in a fixed order. The tolerance
// rule reads the simulation's tolerance and falls back to the project's only
// when the simulation carries no value; an explicit 0 is kept. The result is
// never nil.
func Evaluate(project config.Project, sim config.Simulation) []Flag {
	flags := []Flag{}
	for _, r := range checklistRules {
		if r.matches(sim.ProtectionChecklist) {
			flags = append(flags, r.flag)
		}
	}

	tolerance := sim.ToleranceDays
	if !sim.ToleranceDaysSet && tolerance == 0 {
		tolerance = project.ToleranceDays
	}
	if tolerance > constants.ToleranceWarningDays {
		flags = append(flags, longTolerance)
	}
	return flags
}

// Highest returns the most severe severity among flags, or "" when there are
// none.
func Highest(flags []Flag) Severity {
	rank := map[Severity]int{SeverityLow: 1, SeverityMedium: 2, SeverityHigh: 3}
	var highest Severity
	for _, flag := range flags {
		if rank[flag.Severity] > rank[highest] {
			highest = flag.Severity
		}
	}
	return highest
}
