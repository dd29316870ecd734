package server

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/iwvelando/cashout-forecast/internal/config"
	"github.com/iwvelando/cashout-forecast/internal/forecast"
	"github.com/iwvelando/cashout-forecast/internal/optimizer"
	"github.com/iwvelando/cashout-forecast/internal/store"
	"github.com/iwvelando/cashout-forecast/pkg/loans"
	"github.com/iwvelando/cashout-forecast/pkg/mathutil"
	"github.com/iwvelando/cashout-forecast/pkg/optimization"
	"github.com/iwvelando/cashout-forecast/pkg/risks"
	"github.com/patrickmn/go-cache"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

type handler struct {
	logger        *zap.Logger
	store         *store.Store
	results       *cache.Cache
	optimizer     *optimizer.Runner
	generator     *loans.AmortizationScheduleGenerator
	maxUploadSize int64
	version       string
}

// NewHandler constructs the HTTP handler that serves the projection, record
// store and backup API. A nil store is replaced by an in-memory one and a nil
// cfg by the defaults.
func NewHandler(logger *zap.Logger, st *store.Store, cfg *Config, version string) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if st == nil {
		st = store.New(store.NewMemoryBackend(), logger)
	}

	trimmedVersion := strings.TrimSpace(version)
	if trimmedVersion == "" {
		trimmedVersion = "dev"
	}

	ttl := cfg.CacheDuration()
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	maxUploadSize := cfg.UploadSizeBytes()
	if maxUploadSize <= 0 {
		maxUploadSize = DefaultConfig().UploadSizeBytes()
	}

	h := &handler{
		logger:        logger,
		store:         st,
		results:       cache.New(ttl, 2*ttl),
		optimizer:     optimizer.NewRunner(logger),
		generator:     loans.NewAmortizationScheduleGenerator(logger),
		maxUploadSize: maxUploadSize,
		version:       trimmedVersion,
	}

	mux := http.NewServeMux()

	// Stateless projection endpoints
	mux.HandleFunc("POST /api/simulate", h.handleSimulate)
	mux.HandleFunc("POST /api/amortization", h.handleAmortization)
	mux.HandleFunc("POST /api/solve-term", h.handleSolveTerm)

	// Record store
	mux.HandleFunc("GET /api/projects", h.handleListProjects)
	mux.HandleFunc("POST /api/projects", h.handleUpsertProject)
	mux.HandleFunc("DELETE /api/projects/{id}", h.handleDeleteProject)
	mux.HandleFunc("GET /api/projects/{id}/simulations", h.handleListSimulations)
	mux.HandleFunc("POST /api/simulations", h.handleUpsertSimulation)
	mux.HandleFunc("GET /api/simulations/{id}", h.handleGetSimulation)
	mux.HandleFunc("DELETE /api/simulations/{id}", h.handleDeleteSimulation)
	mux.HandleFunc("GET /api/simulations/{id}/results", h.handleSimulationResults)
	mux.HandleFunc("GET /api/selection", h.handleGetSelection)
	mux.HandleFunc("POST /api/selection", h.handleSelect)

	// Backups
	mux.HandleFunc("GET /api/backup/export", h.handleExport)
	mux.HandleFunc("POST /api/backup/preview", h.handlePreview)
	mux.HandleFunc("POST /api/backup/import", h.handleImport)

	mux.HandleFunc("GET /api/version", h.handleVersion)
	mux.Handle("GET /metrics", promhttp.Handler())

	limited := rateLimit(logger, newClientLimiter(cfg.RateLimit), mux)
	return instrument(logger, limited)
}

type projectionResponse struct {
	Results  forecast.Results `json:"results"`
	Risks    []risks.Flag     `json:"risks"`
	Warnings []string         `json:"warnings"`
	Cached   bool             `json:"cached"`
	Duration string           `json:"duration"`
}

type amortizationRequest struct {
	System     string  `json:"system"`
	Principal  float64 `json:"principal"`
	AnnualRate float64 `json:"annualRate"`
	Months     int     `json:"months"`
}

type amortizationResponse struct {
	System            loans.System  `json:"system"`
	Schedule          []loans.Entry `json:"schedule"`
	TotalInstallments float64       `json:"totalInstallments"`
	TotalInterest     float64       `json:"totalInterest"`
}

type solveTermRequest struct {
	SimulationID int                    `json:"simulationId"`
	Simulation   map[string]interface{} `json:"simulation"`
	optimizer.TermOptions
}

type solveTermResponse struct {
	Summary optimization.Summary `json:"summary"`
	Results forecast.Results     `json:"results"`
}

type selectionRequest struct {
	SelectedProjectID    *int `json:"selectedProjectId"`
	SelectedSimulationID *int `json:"selectedSimulationId"`
}

type simulationResponse struct {
	Simulation config.Simulation `json:"simulation"`
	Warnings   []string          `json:"warnings"`
}

func (h *handler) handleSimulate(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleSimulate"
	start := time.Now()

	body, ok := h.readBody(w, r, op)
	if !ok {
		return
	}
	raw, err := decodeYAMLToMap(body)
	if err != nil {
		h.respondErrorWithOp(w, http.StatusBadRequest, fmt.Sprintf("error reading simulation data, %v", err), op)
		return
	}
	if len(raw) == 0 {
		h.respondErrorWithOp(w, http.StatusBadRequest, "missing simulation document", op)
		return
	}

	sim, warnings := config.NormalizeSimulation(raw)
	warnings = append(warnings, sim.ValidateSimulation()...)
	h.respondProjection(w, config.Project{}, sim, warnings, start)
}

func (h *handler) handleAmortization(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleAmortization"

	var req amortizationRequest
	if !h.decodeJSON(w, r, op, &req) {
		return
	}

	system := loans.ParseSystem(req.System)
	schedule := h.generator.GenerateSchedule(system, req.Principal, req.AnnualRate, req.Months)
	resp := amortizationResponse{System: system, Schedule: schedule}
	for _, entry := range schedule {
		resp.TotalInstallments += entry.Installment
		resp.TotalInterest += entry.Interest
	}
	resp.TotalInstallments = mathutil.Money(resp.TotalInstallments)
	resp.TotalInterest = mathutil.Money(resp.TotalInterest)

	h.writeJSON(w, http.StatusOK, resp)
}

func (h *handler) handleSolveTerm(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleSolveTerm"

	var req solveTermRequest
	if !h.decodeJSON(w, r, op, &req) {
		return
	}

	var sim config.Simulation
	switch {
	case req.SimulationID > 0:
		stored, err := h.store.GetSimulation(r.Context(), req.SimulationID)
		if err != nil {
			h.respondStoreError(w, err, op)
			return
		}
		sim = stored
	case len(req.Simulation) > 0:
		sim, _ = config.NormalizeSimulation(req.Simulation)
	default:
		h.respondErrorWithOp(w, http.StatusBadRequest, "missing simulation or simulationId", op)
		return
	}

	summary, results, err := h.optimizer.SolveTerm(sim, req.TermOptions)
	if err != nil {
		h.respondErrorWithOp(w, http.StatusUnprocessableEntity, err.Error(), op)
		return
	}
	h.writeJSON(w, http.StatusOK, solveTermResponse{Summary: summary, Results: results})
}

func (h *handler) handleListProjects(w http.ResponseWriter, r *http.Request) {
	projects, err := h.store.ListProjects(r.Context())
	if err != nil {
		h.respondStoreError(w, err, "server.handleListProjects")
		return
	}
	h.writeJSON(w, http.StatusOK, projects)
}

func (h *handler) handleUpsertProject(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleUpsertProject"

	var input map[string]interface{}
	if !h.decodeJSON(w, r, op, &input) {
		return
	}
	project, err := h.store.UpsertProject(r.Context(), input)
	if err != nil {
		h.respondStoreError(w, err, op)
		return
	}
	h.writeJSON(w, http.StatusOK, project)
}

func (h *handler) handleDeleteProject(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleDeleteProject"

	id, ok := h.pathID(w, r, op)
	if !ok {
		return
	}
	if err := h.store.DeleteProject(r.Context(), id); err != nil {
		h.respondStoreError(w, err, op)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) handleListSimulations(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleListSimulations"

	id, ok := h.pathID(w, r, op)
	if !ok {
		return
	}
	if _, err := h.store.GetProject(r.Context(), id); err != nil {
		h.respondStoreError(w, err, op)
		return
	}
	sims, err := h.store.ListSimulations(r.Context(), id)
	if err != nil {
		h.respondStoreError(w, err, op)
		return
	}
	h.writeJSON(w, http.StatusOK, sims)
}

func (h *handler) handleUpsertSimulation(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleUpsertSimulation"

	var input map[string]interface{}
	if !h.decodeJSON(w, r, op, &input) {
		return
	}
	sim, warnings, err := h.store.UpsertSimulation(r.Context(), input)
	if err != nil {
		h.respondStoreError(w, err, op)
		return
	}
	if warnings == nil {
		warnings = []string{}
	}
	h.writeJSON(w, http.StatusOK, simulationResponse{Simulation: sim, Warnings: warnings})
}

func (h *handler) handleGetSimulation(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleGetSimulation"

	id, ok := h.pathID(w, r, op)
	if !ok {
		return
	}
	sim, err := h.store.GetSimulation(r.Context(), id)
	if err != nil {
		h.respondStoreError(w, err, op)
		return
	}
	h.writeJSON(w, http.StatusOK, sim)
}

func (h *handler) handleDeleteSimulation(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleDeleteSimulation"

	id, ok := h.pathID(w, r, op)
	if !ok {
		return
	}
	if err := h.store.DeleteSimulation(r.Context(), id); err != nil {
		h.respondStoreError(w, err, op)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) handleSimulationResults(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleSimulationResults"
	start := time.Now()

	id, ok := h.pathID(w, r, op)
	if !ok {
		return
	}
	sim, err := h.store.GetSimulation(r.Context(), id)
	if err != nil {
		h.respondStoreError(w, err, op)
		return
	}

	// The project only supplies the fallback tolerance, so a dangling
	// reference is not an error here.
	project, err := h.store.GetProject(r.Context(), sim.ProjectID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		h.respondStoreError(w, err, op)
		return
	}

	h.respondProjection(w, project, sim, sim.ValidateSimulation(), start)
}

func (h *handler) handleGetSelection(w http.ResponseWriter, r *http.Request) {
	selection, err := h.store.Selection(r.Context())
	if err != nil {
		h.respondStoreError(w, err, "server.handleGetSelection")
		return
	}
	h.writeJSON(w, http.StatusOK, selection)
}

func (h *handler) handleSelect(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleSelect"

	var req selectionRequest
	if !h.decodeJSON(w, r, op, &req) {
		return
	}
	selection, err := h.store.Select(r.Context(), req.SelectedProjectID, req.SelectedSimulationID)
	if err != nil {
		h.respondStoreError(w, err, op)
		return
	}
	h.writeJSON(w, http.StatusOK, selection)
}

func (h *handler) handleExport(w http.ResponseWriter, r *http.Request) {
	data, err := h.store.Export(r.Context())
	if err != nil {
		h.respondStoreError(w, err, "server.handleExport")
		return
	}

	filename := fmt.Sprintf("cashout-backup-%s.json", time.Now().UTC().Format("2006-01-02"))
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		h.logger.Warn("failed to write backup export",
			zap.String("op", "server.handleExport"),
			zap.Error(err),
		)
	}
}

func (h *handler) handlePreview(w http.ResponseWriter, r *http.Request) {
	body, ok := h.readBody(w, r, "server.handlePreview")
	if !ok {
		return
	}
	h.writeJSON(w, http.StatusOK, h.store.ValidateImport(body))
}

func (h *handler) handleImport(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleImport"

	body, ok := h.readBody(w, r, op)
	if !ok {
		return
	}
	result, err := h.store.ApplyImport(r.Context(), body)
	if err != nil {
		if errors.Is(err, store.ErrInvalidImport) {
			h.logger.Info("rejected backup import",
				zap.String("op", op),
				zap.Strings("errors", result.Errors),
			)
			h.writeJSON(w, http.StatusUnprocessableEntity, result)
			return
		}
		h.respondStoreError(w, err, op)
		return
	}

	h.results.Flush()
	h.writeJSON(w, http.StatusOK, result)
}

func (h *handler) handleVersion(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{
		"version": h.version,
	})
}

// respondProjection answers with the projection of sim, served from the cache
// when an identical simulation was projected recently.
func (h *handler) respondProjection(w http.ResponseWriter, project config.Project, sim config.Simulation, warnings []string, start time.Time) {
	key, err := projectionKey(sim)
	if err != nil {
		h.respondErrorWithOp(w, http.StatusInternalServerError, fmt.Sprintf("failed to fingerprint simulation: %v", err), "server.respondProjection")
		return
	}

	resp := projectionResponse{Warnings: warnings}
	if cached, found := h.results.Get(key); found {
		resp.Results = cached.(forecast.Results)
		resp.Cached = true
		ProjectionsComputed.WithLabelValues("hit").Inc()
	} else {
		resp.Results = forecast.GetForecast(h.logger, sim)
		h.results.SetDefault(key, resp.Results)
		ProjectionsComputed.WithLabelValues("miss").Inc()
	}

	resp.Risks = risks.Evaluate(project, sim)
	if resp.Warnings == nil {
		resp.Warnings = []string{}
	}
	resp.Duration = time.Since(start).String()
	h.writeJSON(w, http.StatusOK, resp)
}

// projectionKey fingerprints the normalized simulation. Record metadata is
// excluded so that saving a simulation unchanged reuses its projection.
func projectionKey(sim config.Simulation) (string, error) {
	sim.ID = 0
	sim.ProjectID = 0
	sim.CreatedAt = ""
	sim.UpdatedAt = ""
	data, err := json.Marshal(sim)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

func (h *handler) readBody(w http.ResponseWriter, r *http.Request, op string) ([]byte, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize)
	body, err := io.ReadAll(r.Body)
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			h.respondErrorWithOp(w, http.StatusRequestEntityTooLarge,
				fmt.Sprintf("request body exceeds limit of %d bytes", h.maxUploadSize), op)
			return nil, false
		}
		h.respondErrorWithOp(w, http.StatusBadRequest, fmt.Sprintf("failed to read request body: %v", err), op)
		return nil, false
	}
	return body, true
}

func (h *handler) decodeJSON(w http.ResponseWriter, r *http.Request, op string, target interface{}) bool {
	body, ok := h.readBody(w, r, op)
	if !ok {
		return false
	}
	if len(bytes.TrimSpace(body)) == 0 {
		h.respondErrorWithOp(w, http.StatusBadRequest, "missing request body", op)
		return false
	}
	if err := json.Unmarshal(body, target); err != nil {
		h.respondErrorWithOp(w, http.StatusBadRequest, fmt.Sprintf("invalid JSON body: %v", err), op)
		return false
	}
	return true
}

func (h *handler) pathID(w http.ResponseWriter, r *http.Request, op string) (int, bool) {
	raw := r.PathValue("id")
	id, err := strconv.Atoi(raw)
	if err != nil || id <= 0 {
		h.respondErrorWithOp(w, http.StatusBadRequest, fmt.Sprintf("invalid id %q", raw), op)
		return 0, false
	}
	return id, true
}

func (h *handler) respondStoreError(w http.ResponseWriter, err error, op string) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		h.respondErrorWithOp(w, http.StatusNotFound, err.Error(), op)
	case errors.Is(err, store.ErrInvalidRecord), errors.Is(err, store.ErrInvalidImport):
		h.respondErrorWithOp(w, http.StatusUnprocessableEntity, err.Error(), op)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		h.respondErrorWithOp(w, http.StatusServiceUnavailable, err.Error(), op)
	default:
		h.respondErrorWithOp(w, http.StatusInternalServerError, err.Error(), op)
	}
}

func decodeYAMLToMap(data []byte) (map[string]interface{}, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return make(map[string]interface{}), nil
	}

	var result map[string]interface{}
	if err := yaml.Unmarshal(trimmed, &result); err != nil {
		return nil, err
	}
	if result == nil {
		result = make(map[string]interface{})
	}
	return result, nil
}

func (h *handler) respondErrorWithOp(w http.ResponseWriter, status int, msg string, op string) {
	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed",
			zap.String("op", op),
			zap.Int("status", status),
			zap.String("error", msg),
		)
	} else {
		h.logger.Info("request rejected",
			zap.String("op", op),
			zap.Int("status", status),
			zap.String("error", msg),
		)
	}

	h.writeJSON(w, status, map[string]string{"error": msg})
}

func (h *handler) writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error("failed to write JSON response", zap.Error(err))
	}
}
