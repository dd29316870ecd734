package config

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/iwvelando/cashout-forecast/pkg/constants"
	"github.com/iwvelando/cashout-forecast/pkg/events"
	"github.com/iwvelando/cashout-forecast/pkg/indexation"
	"github.com/iwvelando/cashout-forecast/pkg/loans"
	"github.com/iwvelando/cashout-forecast/pkg/mathutil"
	"github.com/spf13/cast"
)

// document is a loosely-typed JSON/YAML object. Lookups fall back to a
// case-insensitive match so documents that went through viper still
// resolve.
type document map[string]interface{}

func asDocument(value interface{}) document {
	if value == nil {
		return nil
	}
	m, err := cast.ToStringMapE(value)
	if err != nil {
		return nil
	}
	return document(m)
}

func (d document) get(key string) (interface{}, bool) {
	if d == nil {
		return nil, false
	}
	if value, ok := d[key]; ok {
		return value, true
	}
	for k, value := range d {
		if strings.EqualFold(k, key) {
			return value, true
		}
	}
	return nil, false
}

func (d document) text(key string) string {
	value, ok := d.get(key)
	if !ok || value == nil {
		return ""
	}
	if t, ok := value.(time.Time); ok {
		return t.Format(constants.DateLayout)
	}
	return strings.TrimSpace(cast.ToString(value))
}

// number returns the finite numeric value at key, or fallback.
func (d document) number(key string, fallback float64) float64 {
	value, ok := d.get(key)
	if !ok {
		return fallback
	}
	return toNumber(value, fallback)
}

func (d document) nonNegative(key string) float64 {
	n := d.number(key, 0)
	if n < 0 {
		return 0
	}
	return n
}

// count returns floor(value) clamped to at least min, or fallback when the
// value is missing or not numeric.
func (d document) count(key string, fallback, min int) int {
	n := d.number(key, math.NaN())
	if math.IsNaN(n) {
		return fallback
	}
	floored := int(math.Floor(n))
	if floored < min {
		return min
	}
	return floored
}

func (d document) id(key string, fallback int) int {
	n := d.number(key, 0)
	if n <= 0 {
		return fallback
	}
	return int(n)
}

// has reports whether key holds a value other than null or "".
func (d document) has(key string) bool {
	value, ok := d.get(key)
	if !ok || value == nil {
		return false
	}
	text, isText := value.(string)
	return !isText || strings.TrimSpace(text) != ""
}

// flag is true only for a literal boolean true.
func (d document) flag(key string) bool {
	value, ok := d.get(key)
	if !ok {
		return false
	}
	b, isBool := value.(bool)
	return isBool && b
}

func (d document) object(key string) document {
	value, ok := d.get(key)
	if !ok {
		return nil
	}
	return asDocument(value)
}

func (d document) list(key string) []interface{} {
	value, ok := d.get(key)
	if !ok || value == nil {
		return nil
	}
	list, err := cast.ToSliceE(value)
	if err != nil {
		return nil
	}
	return list
}

func toNumber(value interface{}, fallback float64) float64 {
	if value == nil {
		return 0
	}
	n, err := cast.ToFloat64E(value)
	if err != nil || !mathutil.IsFinite(n) {
		return fallback
	}
	return n
}

// NormalizeSimulation coerces a loosely-typed simulation document into a
// Simulation. Invalid values fall back to neutral defaults, unknown variants
// become once/fixed/Work, and cashflows without a label are dropped. The
// returned warnings describe each such adjustment.
func NormalizeSimulation(raw map[string]interface{}) (Simulation, []string) {
	doc := document(raw)
	var warnings []string

	sim := Simulation{
		ID:                  doc.id("id", 0),
		ProjectID:           doc.id("projectId", 0),
		Name:                doc.text("name"),
		ContractDate:        doc.text("contractDate"),
		DeliveryDate:        doc.text("deliveryDate"),
		ToleranceDays:       doc.count("toleranceDays", 0, 0),
		ToleranceDaysSet:    doc.has("toleranceDays"),
		BasePrice:           doc.nonNegative("basePrice"),
		Index:               normalizeIndex(doc),
		Financing:           normalizeFinancing(doc.object("financing")),
		ProtectionChecklist: normalizeChecklist(doc.object("protectionChecklist")),
		CreatedAt:           doc.text("createdAt"),
		UpdatedAt:           doc.text("updatedAt"),
		Cashflows:           []CashflowItem{},
		BuilderPayments:     []BuilderPayment{},
		ExtrasCosts:         []ExtraCost{},
	}
	sim.ConstructionInterest = normalizeConstructionInterest(doc.object("constructionInterest"))

	if value, ok := doc.get("basePrice"); ok && doc.number("basePrice", -1) < 0 {
		warnings = append(warnings, fmt.Sprintf("basePrice %v is not a non-negative number; using 0", value))
	}

	for i, entry := range doc.list("cashflows") {
		item, warning, ok := normalizeCashflow(asDocument(entry), i+1)
		if warning != "" {
			warnings = append(warnings, warning)
		}
		if ok {
			sim.Cashflows = append(sim.Cashflows, item)
		}
	}

	for i, entry := range doc.list("builderPayments") {
		item, itemWarnings := normalizeBuilderPayment(asDocument(entry), i+1)
		warnings = append(warnings, itemWarnings...)
		sim.BuilderPayments = append(sim.BuilderPayments, item)
	}

	for i, entry := range doc.list("extrasCosts") {
		cost := asDocument(entry)
		sim.ExtrasCosts = append(sim.ExtrasCosts, ExtraCost{
			ID:       cost.id("id", i+1),
			Label:    cost.text("label"),
			Category: cost.text("category"),
			DueMonth: cost.text("dueMonth"),
			Amount:   cost.nonNegative("amount"),
		})
	}

	return sim, warnings
}

func normalizeCashflow(doc document, fallbackID int) (CashflowItem, string, bool) {
	item := CashflowItem{
		ID:     doc.id("id", fallbackID),
		Label:  doc.text("label"),
		Amount: doc.nonNegative("amount"),
	}
	if item.Label == "" {
		return item, fmt.Sprintf("cashflow %d has no label and was dropped", item.ID), false
	}

	kind, known := parseKind(doc.text("type"), true)
	everyMonths := doc.count("everyMonths", constants.DefaultEveryMonths, 1)

	switch kind {
	case events.KindMonthly:
		item.Schedule = events.Monthly{StartDate: doc.text("startDate"), EndDate: doc.text("endDate")}
	case events.KindBalloon:
		item.Schedule = events.Balloon{StartDate: doc.text("startDate"), EndDate: doc.text("endDate"), EveryMonths: everyMonths}
	case events.KindInstallments:
		item.Schedule = events.Installments{
			FirstDate:   doc.text("date"),
			Count:       doc.count("installmentCount", constants.DefaultInstallmentCount, 1),
			EveryMonths: everyMonths,
		}
	default:
		item.Schedule = events.Once{Date: doc.text("date")}
	}

	if !known {
		return item, fmt.Sprintf("cashflow '%s' has unknown type %q; treated as once", item.Label, doc.text("type")), true
	}
	return item, "", true
}

func normalizeBuilderPayment(doc document, fallbackID int) (BuilderPayment, []string) {
	var warnings []string
	item := BuilderPayment{
		ID:         doc.id("id", fallbackID),
		AmountMode: AmountFixed,
		Phase:      PhaseWork,
		Amount:     doc.nonNegative("amount"),
		IndexRef:   doc.text("indexRef"),
	}

	if strings.ToLower(doc.text("amountMode")) == string(AmountPercent) {
		item.AmountMode = AmountPercent
	}

	phase := doc.text("phase")
	for _, allowed := range Phases {
		if phase == string(allowed) {
			item.Phase = allowed
		}
	}
	if phase != "" && string(item.Phase) != phase {
		warnings = append(warnings, fmt.Sprintf("builder payment %d has unknown phase %q; treated as %s", item.ID, phase, PhaseWork))
	}

	kind, known := parseKind(doc.text("type"), false)
	if !known {
		warnings = append(warnings, fmt.Sprintf("builder payment %d has unsupported type %q; treated as once", item.ID, doc.text("type")))
	}

	switch kind {
	case events.KindMonthly:
		item.Schedule = events.Monthly{StartDate: doc.text("startDate"), EndDate: doc.text("endDate")}
	case events.KindBalloon:
		item.Schedule = events.Balloon{
			StartDate:   doc.text("startDate"),
			EndDate:     doc.text("endDate"),
			EveryMonths: doc.count("everyMonths", constants.DefaultEveryMonths, 1),
		}
	default:
		item.Schedule = events.Once{Date: doc.text("date")}
	}

	return item, warnings
}

// parseKind maps a type name to a recurrence kind. An empty name is a known
// once; anything unrecognized is reported and also becomes once.
func parseKind(value string, allowInstallments bool) (events.Kind, bool) {
	switch events.Kind(value) {
	case "", events.KindOnce:
		return events.KindOnce, true
	case events.KindMonthly, events.KindBalloon:
		return events.Kind(value), true
	case events.KindInstallments:
		if allowInstallments {
			return events.KindInstallments, true
		}
	}
	return events.KindOnce, false
}

func normalizeIndex(doc document) Index {
	index := doc.object("index")
	result := Index{
		Enabled:     index.flag("enabled"),
		Mode:        "manual",
		MonthlyRate: index.number("monthlyRate", 0),
	}

	series := doc.object("indexSeries")
	if series == nil {
		series = index.object("series")
	}
	for ref, byMonth := range series {
		months := asDocument(byMonth)
		if months == nil {
			continue
		}
		for month, value := range months {
			rate := toNumber(value, math.NaN())
			if math.IsNaN(rate) {
				continue
			}
			if result.Series == nil {
				result.Series = indexation.Series{}
			}
			if result.Series[ref] == nil {
				result.Series[ref] = map[string]float64{}
			}
			result.Series[ref][month] = rate
		}
	}
	return result
}

func normalizeFinancing(doc document) Financing {
	return Financing{
		Enabled:    doc.flag("enabled"),
		System:     loans.ParseSystem(doc.text("system")),
		StartDate:  doc.text("startDate"),
		Months:     doc.count("months", 0, 0),
		AnnualRate: doc.number("annualRate", 0),
	}
}

func normalizeConstructionInterest(doc document) ConstructionInterest {
	result := ConstructionInterest{
		Enabled:                    doc.flag("enabled"),
		MonthlyRate:                doc.number("monthlyRate", 0),
		DisbursementPercentMonthly: doc.number("disbursementPercentMonthly", 0),
	}

	if principal := doc.number("constructionPrincipal", math.NaN()); !math.IsNaN(principal) {
		result.Principal = &principal
	}

	for month, value := range doc.object("disbursementByMonth") {
		percent := toNumber(value, math.NaN())
		if math.IsNaN(percent) {
			continue
		}
		if result.DisbursementByMonth == nil {
			result.DisbursementByMonth = map[string]float64{}
		}
		result.DisbursementByMonth[month] = percent
	}
	return result
}

func normalizeChecklist(doc document) ProtectionChecklist {
	return ProtectionChecklist{
		QuadroResumo:            doc.flag("quadroResumo"),
		MemorialRegistryChecked: doc.flag("memorialRegistryChecked"),
		BrokerageHighlighted:    doc.flag("brokerageHighlighted"),
		SatiPresent:             doc.flag("satiPresent"),
		ItbiProvisioned:         doc.flag("itbiProvisioned"),
		Notes:                   doc.text("notes"),
	}
}
