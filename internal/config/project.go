package config

import "strings"

// NormalizeProject coerces a loosely-typed project document.
func NormalizeProject(raw map[string]interface{}) Project {
	doc := document(raw)
	return Project{
		ID:            doc.id("id", 0),
		Name:          doc.text("name"),
		City:          doc.text("city"),
		UF:            strings.ToUpper(doc.text("uf")),
		Developer:     doc.text("developer"),
		ToleranceDays: doc.count("toleranceDays", 0, 0),
		CreatedAt:     doc.text("createdAt"),
		UpdatedAt:     doc.text("updatedAt"),
	}
}

// Project groups simulations of the same development.
type Project struct {
	ID            int    `json:"id"`
	Name          string `json:"name"`
	City          string `json:"city"`
	UF            string `json:"uf"`
	Developer     string `json:"developer"`
	ToleranceDays int    `json:"toleranceDays,omitempty"`
	CreatedAt     string `json:"createdAt,omitempty"`
	UpdatedAt     string `json:"updatedAt,omitempty"`
}

// Complete reports whether the project carries every required field.
func (p Project) Complete() bool {
	return p.Name != "" && p.City != "" && p.UF != "" && p.Developer != ""
}

// Complete reports whether the simulation carries every required field.
func (s Simulation) Complete() bool {
	return s.Name != "" && s.ContractDate != "" && s.DeliveryDate != ""
}
