package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/iwvelando/cashout-forecast/pkg/events"
	"github.com/iwvelando/cashout-forecast/pkg/indexation"
	"github.com/iwvelando/cashout-forecast/pkg/loans"
	"github.com/iwvelando/cashout-forecast/pkg/validation"
	"gopkg.in/yaml.v3"
)

// Phase is the contractual stage a builder payment belongs to.
type Phase string

const (
	PhaseSignal       Phase = "Signal"
	PhaseEntry        Phase = "Entry"
	PhaseWork         Phase = "Work"
	PhaseIntermediary Phase = "Intermediary"
	PhaseKeys         Phase = "Keys"
)

// Phases lists the accepted phases in contract order.
var Phases = []Phase{PhaseSignal, PhaseEntry, PhaseWork, PhaseIntermediary, PhaseKeys}

// AmountMode tells how a builder payment amount is read.
type AmountMode string

const (
	// AmountFixed reads the amount as money.
	AmountFixed AmountMode = "fixed"

	// AmountPercent reads the amount as a percent of the base price.
	AmountPercent AmountMode = "percent"
)

// Simulation is the normalized input of a projection. The engine only reads
// it.
type Simulation struct {
	ID                   int                  `json:"id,omitempty"`
	ProjectID            int                  `json:"projectId,omitempty"`
	Name                 string               `json:"name"`
	ContractDate         string               `json:"contractDate"`
	DeliveryDate         string               `json:"deliveryDate"`
	ToleranceDays        int                  `json:"toleranceDays"`
	// ToleranceDaysSet records that the source document carried toleranceDays,
	// so an explicit 0 is told apart from a missing value.
	ToleranceDaysSet     bool                 `json:"-"`
	BasePrice            float64              `json:"basePrice"`
	Index                Index                `json:"index"`
	Financing            Financing            `json:"financing"`
	ConstructionInterest ConstructionInterest `json:"constructionInterest"`
	Cashflows            []CashflowItem       `json:"cashflows"`
	BuilderPayments      []BuilderPayment     `json:"builderPayments"`
	ExtrasCosts          []ExtraCost          `json:"extrasCosts"`
	ProtectionChecklist  ProtectionChecklist  `json:"protectionChecklist"`
	CreatedAt            string               `json:"createdAt,omitempty"`
	UpdatedAt            string               `json:"updatedAt,omitempty"`
}

// Index configures monetary correction.
type Index struct {
	Enabled     bool              `json:"enabled"`
	Mode        string            `json:"mode"`
	MonthlyRate float64           `json:"monthlyRate"` // percent
	Series      indexation.Series `json:"series,omitempty"`
}

// Financing configures the post-delivery bank loan.
type Financing struct {
	Enabled    bool         `json:"enabled"`
	System     loans.System `json:"system"`
	StartDate  string       `json:"startDate"`
	Months     int          `json:"months"`
	AnnualRate float64      `json:"annualRate"` // percent
}

// ConstructionInterest configures interest on construction disbursements
// ("juros de obra"). A nil Principal falls back to the base price.
type ConstructionInterest struct {
	Enabled                    bool               `json:"enabled"`
	Principal                  *float64           `json:"constructionPrincipal,omitempty"`
	MonthlyRate                float64            `json:"monthlyRate"` // percent
	DisbursementPercentMonthly float64            `json:"disbursementPercentMonthly"`
	DisbursementByMonth        map[string]float64 `json:"disbursementByMonth,omitempty"`
}

// CashflowItem is a free-form payment corrected by the flat simulation rate.
type CashflowItem struct {
	ID       int
	Label    string
	Amount   float64
	Schedule events.Recurrence
}

// BuilderPayment is a payment owed to the developer, corrected by its own
// index reference.
type BuilderPayment struct {
	ID         int
	Phase      Phase
	AmountMode AmountMode
	Amount     float64
	IndexRef   string
	Schedule   events.Recurrence
}

// ExtraCost is an informational cost (ITBI, registry fees, ...) kept with the
// simulation but never projected.
type ExtraCost struct {
	ID       int     `json:"id"`
	Label    string  `json:"label"`
	Category string  `json:"category"`
	DueMonth string  `json:"dueMonth"`
	Amount   float64 `json:"amount"`
}

// ProtectionChecklist records the buyer-protection checks made on the
// contract.
type ProtectionChecklist struct {
	QuadroResumo            bool   `json:"quadroResumo"`
	MemorialRegistryChecked bool   `json:"memorialRegistryChecked"`
	BrokerageHighlighted    bool   `json:"brokerageHighlighted"`
	SatiPresent             bool   `json:"satiPresent"`
	ItbiProvisioned         bool   `json:"itbiProvisioned"`
	Notes                   string `json:"notes"`
}

// flatItem is the document shape of cashflow and builder payment items.
type flatItem struct {
	ID               int         `json:"id"`
	Type             events.Kind `json:"type"`
	Label            string      `json:"label,omitempty"`
	Phase            Phase       `json:"phase,omitempty"`
	AmountMode       AmountMode  `json:"amountMode,omitempty"`
	Amount           float64     `json:"amount"`
	IndexRef         string      `json:"indexRef,omitempty"`
	Date             string      `json:"date"`
	StartDate        string      `json:"startDate"`
	EndDate          string      `json:"endDate"`
	EveryMonths      int         `json:"everyMonths"`
	InstallmentCount int         `json:"installmentCount,omitempty"`
}

func flatten(schedule events.Recurrence) flatItem {
	switch r := schedule.(type) {
	case events.Monthly:
		return flatItem{Type: events.KindMonthly, StartDate: r.StartDate, EndDate: r.EndDate}
	case events.Balloon:
		return flatItem{Type: events.KindBalloon, StartDate: r.StartDate, EndDate: r.EndDate, EveryMonths: r.EveryMonths}
	case events.Installments:
		return flatItem{Type: events.KindInstallments, Date: r.FirstDate, EveryMonths: r.EveryMonths, InstallmentCount: r.Count}
	case events.Once:
		return flatItem{Type: events.KindOnce, Date: r.Date, InstallmentCount: 1}
	default:
		return flatItem{Type: events.KindOnce}
	}
}

// MarshalJSON writes the item in the flat document shape.
func (c CashflowItem) MarshalJSON() ([]byte, error) {
	item := flatten(c.Schedule)
	item.ID = c.ID
	item.Label = c.Label
	item.Amount = c.Amount
	return json.Marshal(item)
}

// MarshalJSON writes the item in the flat document shape.
func (b BuilderPayment) MarshalJSON() ([]byte, error) {
	item := flatten(b.Schedule)
	item.ID = b.ID
	item.Phase = b.Phase
	item.AmountMode = b.AmountMode
	item.Amount = b.Amount
	item.IndexRef = b.IndexRef
	item.InstallmentCount = 0
	return json.Marshal(item)
}

// UnmarshalJSON decodes any simulation document through NormalizeSimulation,
// so decoded values are always normalized.
func (s *Simulation) UnmarshalJSON(data []byte) error {
	var raw map[string]interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	normalized, _ := NormalizeSimulation(raw)
	*s = normalized
	return nil
}

// IndexEngine returns the indexation engine configured by the simulation.
func (s Simulation) IndexEngine() indexation.Engine {
	return indexation.Engine{
		Enabled:     s.Index.Enabled,
		MonthlyRate: s.Index.MonthlyRate,
		Series:      s.Index.Series,
	}
}

// LoadSimulation reads a YAML or JSON simulation document and normalizes it.
// The returned warnings describe every value that was dropped or defaulted.
func LoadSimulation(path string) (*Simulation, []string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("error reading simulation file, %w", err)
	}

	var raw map[string]interface{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, nil, fmt.Errorf("unable to parse simulation document %s, %w", path, err)
	}
	if raw == nil {
		return nil, nil, fmt.Errorf("simulation document %s is empty", path)
	}

	simulation, warnings := NormalizeSimulation(raw)
	return &simulation, warnings, nil
}

// ValidateSimulation performs general validation of the simulation and
// returns warnings. It never rejects a simulation.
func (s Simulation) ValidateSimulation() []string {
	validator := validation.SimulationValidator{
		Name:          s.Name,
		ContractDate:  s.ContractDate,
		DeliveryDate:  s.DeliveryDate,
		ToleranceDays: s.ToleranceDays,
	}
	if s.Financing.Enabled {
		validator.Financing = &validation.FinancingConfig{
			StartDate: s.Financing.StartDate,
			Months:    s.Financing.Months,
		}
	}

	for _, item := range s.BuilderPayments {
		validator.Items = append(validator.Items, itemConfig(fmt.Sprintf("builder payment %d (%s)", item.ID, item.Phase), item.Schedule))
	}
	for _, item := range s.Cashflows {
		validator.Items = append(validator.Items, itemConfig(fmt.Sprintf("cashflow '%s'", item.Label), item.Schedule))
	}

	return validator.ValidateAll()
}

func itemConfig(name string, schedule events.Recurrence) validation.ItemConfig {
	item := flatten(schedule)
	firstDate := item.Date
	if firstDate == "" {
		firstDate = item.StartDate
	}
	return validation.ItemConfig{
		Name:      name,
		FirstDate: firstDate,
		EndDate:   item.EndDate,
	}
}
