package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/iwvelando/cashout-forecast/pkg/constants"
	"github.com/xeipuuv/gojsonschema"
	"go.uber.org/zap"
)

// backupSchema checks the root of an imported document. Everything below the
// root is repaired by the normalization pass instead of rejected.
const backupSchema = `{
	"$schema": "http://json-schema.org/draft-07/schema#",
	"type": "object",
	"required": ["dbVersion", "projects", "simulations"],
	"properties": {
		"dbVersion": {"type": "number", "exclusiveMinimum": 0},
		"projects": {"type": "array"},
		"simulations": {"type": "array"}
	}
}`

var schemaLoader = gojsonschema.NewStringLoader(backupSchema)

// Import validation messages, in the order they are reported.
const (
	msgEmptyImport       = "Informe JSON para importar."
	msgInvalidJSON       = "JSON inválido."
	msgRootNotObject     = "Raiz do JSON deve ser um objeto."
	msgInvalidVersion    = "Campo dbVersion ausente ou inválido."
	msgProjectsNotArray  = "Campo projects deve ser um array."
	msgSimulationsNotArr = "Campo simulations deve ser um array."
)

// Preview summarizes what an import would store.
type Preview struct {
	InputVersion         int  `json:"inputVersion"`
	TargetVersion        int  `json:"targetVersion"`
	ProjectsCount        int  `json:"projectsCount"`
	SimulationsCount     int  `json:"simulationsCount"`
	SelectedProjectID    *int `json:"selectedProjectId"`
	SelectedSimulationID *int `json:"selectedSimulationId"`
}

// ImportResult is the outcome of validating a backup document.
type ImportResult struct {
	OK       bool     `json:"ok"`
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
	Preview  *Preview `json:"preview"`

	database *Database
}

// Export returns the stored document as indented JSON.
func (s *Store) Export(ctx context.Context) ([]byte, error) {
	db, err := s.Database(ctx)
	if err != nil {
		return nil, err
	}
	data, err := json.MarshalIndent(db, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode database document: %w", err)
	}
	return data, nil
}

// ValidateImport checks a backup document without storing it. Older versions
// are migrated and newer ones normalized, each with a warning.
func (s *Store) ValidateImport(data []byte) ImportResult {
	result := ImportResult{Errors: []string{}, Warnings: []string{}}

	text := bytes.TrimSpace(data)
	if len(text) == 0 {
		result.Errors = append(result.Errors, msgEmptyImport)
		return result
	}

	var candidate interface{}
	if err := json.Unmarshal(text, &candidate); err != nil {
		result.Errors = append(result.Errors, msgInvalidJSON)
		return result
	}

	schemaErrors, err := validateRoot(candidate)
	if err != nil {
		s.logger.Error("backup schema validation failed",
			zap.String("op", "store.ValidateImport"),
			zap.Error(err),
		)
		result.Errors = append(result.Errors, msgInvalidJSON)
		return result
	}
	if len(schemaErrors) > 0 {
		result.Errors = append(result.Errors, schemaErrors...)
		return result
	}

	raw := candidate.(map[string]interface{})
	version := documentVersion(raw)
	if version < constants.DBVersion {
		result.Warnings = append(result.Warnings, fmt.Sprintf("dbVersion %d será migrada para %d.", version, constants.DBVersion))
	}
	if version > constants.DBVersion {
		result.Warnings = append(result.Warnings, fmt.Sprintf(
			"dbVersion %d é superior à atual (%d); dados serão normalizados para compatibilidade.", version, constants.DBVersion))
	}

	db := migrate(raw, s.timestamp())
	result.OK = true
	result.database = &db
	result.Preview = &Preview{
		InputVersion:         version,
		TargetVersion:        constants.DBVersion,
		ProjectsCount:        len(db.Projects),
		SimulationsCount:     len(db.Simulations),
		SelectedProjectID:    db.UI.SelectedProjectID,
		SelectedSimulationID: db.UI.SelectedSimulationID,
	}
	return result
}

// ApplyImport validates a backup document and replaces the stored document
// with its normalized form.
func (s *Store) ApplyImport(ctx context.Context, data []byte) (ImportResult, error) {
	result := s.ValidateImport(data)
	if !result.OK {
		return result, fmt.Errorf("%s: %w", strings.Join(result.Errors, " "), ErrInvalidImport)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.write(ctx, *result.database); err != nil {
		return result, err
	}

	s.logger.Info("imported database document",
		zap.String("op", "store.ApplyImport"),
		zap.Int("inputVersion", result.Preview.InputVersion),
		zap.Int("projects", result.Preview.ProjectsCount),
		zap.Int("simulations", result.Preview.SimulationsCount),
	)
	return result, nil
}

// validateRoot maps schema violations onto the import messages.
func validateRoot(candidate interface{}) ([]string, error) {
	outcome, err := gojsonschema.Validate(schemaLoader, gojsonschema.NewGoLoader(candidate))
	if err != nil {
		return nil, fmt.Errorf("validation error: %w", err)
	}
	if outcome.Valid() {
		return nil, nil
	}

	failed := map[string]bool{}
	for _, desc := range outcome.Errors() {
		field := desc.Field()
		if desc.Type() == "required" {
			if property, ok := desc.Details()["property"].(string); ok {
				field = property
			}
		}
		failed[field] = true
	}

	if failed[gojsonschema.STRING_CONTEXT_ROOT] {
		return []string{msgRootNotObject}, nil
	}
	var messages []string
	if failed["dbVersion"] {
		messages = append(messages, msgInvalidVersion)
	}
	if failed["projects"] {
		messages = append(messages, msgProjectsNotArray)
	}
	if failed["simulations"] {
		messages = append(messages, msgSimulationsNotArr)
	}
	return messages, nil
}
