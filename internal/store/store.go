package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/iwvelando/cashout-forecast/internal/config"
	"go.uber.org/zap"
)

var (
	// ErrNotFound is returned when a record id does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrInvalidRecord is returned when a record lacks a required field or
	// references a missing project.
	ErrInvalidRecord = errors.New("invalid record")

	// ErrInvalidImport is returned when a backup document fails validation.
	ErrInvalidImport = errors.New("invalid import")
)

// Store serializes every read-modify-write of the database document.
type Store struct {
	mu      sync.Mutex
	backend Backend
	logger  *zap.Logger
	now     func() time.Time
}

// New returns a Store persisting through backend.
func New(backend Backend, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{backend: backend, logger: logger, now: time.Now}
}

func (s *Store) timestamp() string {
	return s.now().UTC().Format(time.RFC3339)
}

// load reads the document, seeding an empty store and migrating older
// documents. An unreadable document is replaced by the seed.
func (s *Store) load(ctx context.Context) (Database, error) {
	data, err := s.backend.Load(ctx)
	if err != nil {
		return Database{}, err
	}

	if len(data) == 0 {
		db := seedDatabase(s.timestamp())
		if err := s.write(ctx, db); err != nil {
			return Database{}, err
		}
		s.logger.Info("seeded empty record store", zap.String("op", "store.load"))
		return db, nil
	}

	var raw map[string]interface{}
	if err := json.Unmarshal(data, &raw); err != nil || raw == nil {
		s.logger.Warn("stored database document is unreadable, reseeding",
			zap.String("op", "store.load"),
			zap.Error(err),
		)
		db := seedDatabase(s.timestamp())
		if err := s.write(ctx, db); err != nil {
			return Database{}, err
		}
		return db, nil
	}

	return migrate(raw, s.timestamp()), nil
}

func (s *Store) write(ctx context.Context, db Database) error {
	data, err := json.Marshal(db)
	if err != nil {
		return fmt.Errorf("failed to encode database document: %w", err)
	}
	return s.backend.Save(ctx, data)
}

// Database returns a snapshot of the whole document.
func (s *Store) Database(ctx context.Context) (Database, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(ctx)
}

// ListProjects returns every project.
func (s *Store) ListProjects(ctx context.Context) ([]config.Project, error) {
	db, err := s.Database(ctx)
	if err != nil {
		return nil, err
	}
	return db.Projects, nil
}

// GetProject returns the project with id.
func (s *Store) GetProject(ctx context.Context, id int) (config.Project, error) {
	db, err := s.Database(ctx)
	if err != nil {
		return config.Project{}, err
	}
	i, ok := db.project(id)
	if !ok {
		return config.Project{}, fmt.Errorf("project %d: %w", id, ErrNotFound)
	}
	return db.Projects[i], nil
}

// UpsertProject updates the project whose id matches input, or creates one
// with the next free id. Fields absent from input keep their stored value.
func (s *Store) UpsertProject(ctx context.Context, input map[string]interface{}) (config.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	db, err := s.load(ctx)
	if err != nil {
		return config.Project{}, err
	}
	now := s.timestamp()

	merged := map[string]interface{}{}
	index := -1
	if id, ok := validID(input["id"]); ok {
		if i, exists := db.project(id); exists {
			index = i
			if merged, err = toMap(db.Projects[i]); err != nil {
				return config.Project{}, err
			}
		}
	}
	for k, v := range input {
		merged[k] = v
	}

	project := config.NormalizeProject(merged)
	if index >= 0 {
		project.ID = db.Projects[index].ID
	} else {
		project.ID = nextProjectID(db.Projects)
	}
	if !project.Complete() {
		return config.Project{}, fmt.Errorf("project requires name, city, uf and developer: %w", ErrInvalidRecord)
	}
	if project.CreatedAt == "" {
		project.CreatedAt = now
	}
	project.UpdatedAt = now

	if index >= 0 {
		db.Projects[index] = project
	} else {
		db.Projects = append(db.Projects, project)
	}
	if err := s.write(ctx, db); err != nil {
		return config.Project{}, err
	}
	return project, nil
}

// DeleteProject removes a project with its simulations and clears any
// selection pointing at them.
func (s *Store) DeleteProject(ctx context.Context, id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	db, err := s.load(ctx)
	if err != nil {
		return err
	}
	i, ok := db.project(id)
	if !ok {
		return fmt.Errorf("project %d: %w", id, ErrNotFound)
	}

	db.Projects = append(db.Projects[:i], db.Projects[i+1:]...)
	kept := db.Simulations[:0]
	for _, sim := range db.Simulations {
		if sim.ProjectID != id {
			kept = append(kept, sim)
		}
	}
	db.Simulations = kept
	db.reconcileSelection()

	return s.write(ctx, db)
}

// ListSimulations returns the simulations of a project.
func (s *Store) ListSimulations(ctx context.Context, projectID int) ([]config.Simulation, error) {
	db, err := s.Database(ctx)
	if err != nil {
		return nil, err
	}
	sims := []config.Simulation{}
	for _, sim := range db.Simulations {
		if sim.ProjectID == projectID {
			sims = append(sims, sim)
		}
	}
	return sims, nil
}

// GetSimulation returns the simulation with id.
func (s *Store) GetSimulation(ctx context.Context, id int) (config.Simulation, error) {
	db, err := s.Database(ctx)
	if err != nil {
		return config.Simulation{}, err
	}
	i, ok := db.simulation(id)
	if !ok {
		return config.Simulation{}, fmt.Errorf("simulation %d: %w", id, ErrNotFound)
	}
	return db.Simulations[i], nil
}

// UpsertSimulation updates the simulation whose id matches input, or creates
// one with the next free id. The record must reference an existing project
// and carry a name and both contract and delivery dates. The normalization
// warnings of the stored record are returned.
func (s *Store) UpsertSimulation(ctx context.Context, input map[string]interface{}) (config.Simulation, []string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	db, err := s.load(ctx)
	if err != nil {
		return config.Simulation{}, nil, err
	}
	now := s.timestamp()

	merged := map[string]interface{}{}
	index := -1
	if id, ok := validID(input["id"]); ok {
		if i, exists := db.simulation(id); exists {
			index = i
			if merged, err = toMap(db.Simulations[i]); err != nil {
				return config.Simulation{}, nil, err
			}
		}
	}
	for k, v := range input {
		merged[k] = v
	}

	sim, warnings := config.NormalizeSimulation(merged)
	if index >= 0 {
		sim.ID = db.Simulations[index].ID
	} else {
		sim.ID = nextSimulationID(db.Simulations)
	}
	if _, ok := db.project(sim.ProjectID); !ok {
		return config.Simulation{}, warnings, fmt.Errorf("simulation references unknown project %d: %w", sim.ProjectID, ErrInvalidRecord)
	}
	if !sim.Complete() {
		return config.Simulation{}, warnings, fmt.Errorf("simulation requires name, contractDate and deliveryDate: %w", ErrInvalidRecord)
	}
	if sim.CreatedAt == "" {
		sim.CreatedAt = now
	}
	sim.UpdatedAt = now

	if index >= 0 {
		db.Simulations[index] = sim
	} else {
		db.Simulations = append(db.Simulations, sim)
	}
	db.reconcileSelection()
	if err := s.write(ctx, db); err != nil {
		return config.Simulation{}, warnings, err
	}
	return sim, warnings, nil
}

// DeleteSimulation removes a simulation, clearing its selection.
func (s *Store) DeleteSimulation(ctx context.Context, id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	db, err := s.load(ctx)
	if err != nil {
		return err
	}
	i, ok := db.simulation(id)
	if !ok {
		return fmt.Errorf("simulation %d: %w", id, ErrNotFound)
	}
	db.Simulations = append(db.Simulations[:i], db.Simulations[i+1:]...)
	db.reconcileSelection()
	return s.write(ctx, db)
}

// Selection returns the current selection.
func (s *Store) Selection(ctx context.Context) (Selection, error) {
	db, err := s.Database(ctx)
	if err != nil {
		return Selection{}, err
	}
	return db.UI, nil
}

// Select updates the selection. Selecting a simulation also selects its
// project; a nil project id clears both.
func (s *Store) Select(ctx context.Context, projectID, simulationID *int) (Selection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	db, err := s.load(ctx)
	if err != nil {
		return Selection{}, err
	}

	if simulationID != nil {
		i, ok := db.simulation(*simulationID)
		if !ok {
			return Selection{}, fmt.Errorf("simulation %d: %w", *simulationID, ErrNotFound)
		}
		owner := db.Simulations[i].ProjectID
		if projectID != nil && *projectID != owner {
			return Selection{}, fmt.Errorf("simulation %d belongs to project %d: %w", *simulationID, owner, ErrInvalidRecord)
		}
		projectID = &owner
	}
	if projectID != nil {
		if _, ok := db.project(*projectID); !ok {
			return Selection{}, fmt.Errorf("project %d: %w", *projectID, ErrNotFound)
		}
	}

	db.UI = Selection{SelectedProjectID: projectID, SelectedSimulationID: simulationID}
	db.reconcileSelection()
	if err := s.write(ctx, db); err != nil {
		return Selection{}, err
	}
	return db.UI, nil
}

func nextProjectID(projects []config.Project) int {
	max := 0
	for _, project := range projects {
		if project.ID > max {
			max = project.ID
		}
	}
	return max + 1
}

func nextSimulationID(sims []config.Simulation) int {
	max := 0
	for _, sim := range sims {
		if sim.ID > max {
			max = sim.ID
		}
	}
	return max + 1
}
