package store

import (
	"encoding/json"
	"math"

	"github.com/iwvelando/cashout-forecast/internal/config"
	"github.com/iwvelando/cashout-forecast/pkg/constants"
	"github.com/iwvelando/cashout-forecast/pkg/mathutil"
	"github.com/spf13/cast"
)

// Selection is the project and simulation the user last worked on.
type Selection struct {
	SelectedProjectID    *int `json:"selectedProjectId"`
	SelectedSimulationID *int `json:"selectedSimulationId"`
}

// Database is the whole persisted document.
type Database struct {
	DBVersion   int                 `json:"dbVersion"`
	Projects    []config.Project    `json:"projects"`
	Simulations []config.Simulation `json:"simulations"`
	UI          Selection           `json:"ui"`
}

func (db *Database) project(id int) (int, bool) {
	for i, project := range db.Projects {
		if project.ID == id {
			return i, true
		}
	}
	return 0, false
}

func (db *Database) simulation(id int) (int, bool) {
	for i, sim := range db.Simulations {
		if sim.ID == id {
			return i, true
		}
	}
	return 0, false
}

// reconcileSelection clears a project selection that no longer exists and a
// simulation selection outside the selected project.
func (db *Database) reconcileSelection() {
	if id := db.UI.SelectedProjectID; id != nil {
		if _, ok := db.project(*id); !ok {
			db.UI.SelectedProjectID = nil
		}
	}
	if id := db.UI.SelectedSimulationID; id != nil {
		i, ok := db.simulation(*id)
		if !ok || db.UI.SelectedProjectID == nil || db.Simulations[i].ProjectID != *db.UI.SelectedProjectID {
			db.UI.SelectedSimulationID = nil
		}
	}
}

func seedDatabase(now string) Database {
	return Database{
		DBVersion: constants.DBVersion,
		Projects: []config.Project{
			{
				ID:        1,
				Name:      "Projeto Exemplo",
				City:      "São Paulo",
				UF:        "SP",
				Developer: "Construtora Exemplo",
				CreatedAt: now,
				UpdatedAt: now,
			},
		},
		Simulations: []config.Simulation{},
	}
}

// validID returns the positive integer id held by value.
func validID(value interface{}) (int, bool) {
	if value == nil {
		return 0, false
	}
	n, err := cast.ToFloat64E(value)
	if err != nil || !mathutil.IsFinite(n) || n <= 0 {
		return 0, false
	}
	return int(n), true
}

func idPointer(value interface{}) *int {
	id, ok := validID(value)
	if !ok {
		return nil
	}
	return &id
}

// documentVersion returns the floored positive dbVersion of raw, or 0.
func documentVersion(raw map[string]interface{}) int {
	n, err := cast.ToFloat64E(raw["dbVersion"])
	if err != nil || !mathutil.IsFinite(n) || n <= 0 {
		return 0
	}
	return int(math.Floor(n))
}

// migrate upgrades a raw document of any version to the current shape.
// Documents older than the current version kept the selection at the root;
// it is lifted into ui unless ui already holds one.
func migrate(raw map[string]interface{}, now string) Database {
	if documentVersion(raw) < constants.DBVersion {
		ui, _ := raw["ui"].(map[string]interface{})
		lifted := map[string]interface{}{}
		for k, v := range ui {
			lifted[k] = v
		}
		for _, key := range []string{"selectedProjectId", "selectedSimulationId"} {
			if _, ok := validID(lifted[key]); !ok {
				lifted[key] = raw[key]
			}
		}
		raw["ui"] = lifted
	}
	return sanitize(raw, now)
}

// sanitize keeps only complete records: projects need a name, city, UF and
// developer; simulations need an existing project, a name and both dates.
func sanitize(raw map[string]interface{}, now string) Database {
	db := Database{
		DBVersion:   constants.DBVersion,
		Projects:    []config.Project{},
		Simulations: []config.Simulation{},
	}

	for _, entry := range asList(raw["projects"]) {
		item, ok := entry.(map[string]interface{})
		if !ok {
			continue
		}
		id, ok := validID(item["id"])
		if !ok {
			continue
		}
		project := config.NormalizeProject(item)
		project.ID = id
		if !project.Complete() {
			continue
		}
		if project.CreatedAt == "" {
			project.CreatedAt = now
		}
		if project.UpdatedAt == "" {
			project.UpdatedAt = now
		}
		db.Projects = append(db.Projects, project)
	}

	for _, entry := range asList(raw["simulations"]) {
		item, ok := entry.(map[string]interface{})
		if !ok {
			continue
		}
		id, ok := validID(item["id"])
		if !ok {
			continue
		}
		projectID, ok := validID(item["projectId"])
		if !ok {
			continue
		}
		if _, exists := db.project(projectID); !exists {
			continue
		}
		sim, _ := config.NormalizeSimulation(item)
		sim.ID = id
		sim.ProjectID = projectID
		if !sim.Complete() {
			continue
		}
		if sim.CreatedAt == "" {
			sim.CreatedAt = now
		}
		if sim.UpdatedAt == "" {
			sim.UpdatedAt = now
		}
		db.Simulations = append(db.Simulations, sim)
	}

	ui, _ := raw["ui"].(map[string]interface{})
	db.UI = Selection{
		SelectedProjectID:    idPointer(ui["selectedProjectId"]),
		SelectedSimulationID: idPointer(ui["selectedSimulationId"]),
	}
	db.reconcileSelection()
	return db
}

func asList(value interface{}) []interface{} {
	list, _ := value.([]interface{})
	return list
}

// toMap round-trips v through JSON into a loose document.
func toMap(v interface{}) (map[string]interface{}, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out map[string]interface{}
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}
