package main

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/liamcoop/adjudication/adjudication"
	"github.com/liamcoop/adjudication/companyengine"
	"github.com/liamcoop/adjudication/internal/logger"
	"github.com/liamcoop/adjudication/rules"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{
		Status:          "healthy",
		Storage:         "memory",
		Formula:         s.calculator.Formula().String(),
		CompaniesLoaded: len(s.engines.ListCompanies()),
		LogLevel:        logger.GetLevel().String(),
	}

	if s.db != nil {
		resp.Storage = "postgres"
		if err := s.db.PingContext(r.Context()); err != nil {
			resp.Status = "unhealthy"
			resp.Error = err.Error()
			resp.Logging = logger.Snapshot()
			respondJSON(w, http.StatusServiceUnavailable, resp)
			return
		}
	}

	resp.Logging = logger.Snapshot()
	respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleAdjudicate(w http.ResponseWriter, r *http.Request) {
	var req AdjudicateRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	details := s.calculator.Calculate(req.claim(), req.PolicyBenefit)

	flags := []FlagResponse{}
	if req.CompanyID != "" {
		engine, err := s.engines.GetEngine(req.CompanyID)
		if err != nil {
			respondError(w, http.StatusNotFound, "company not found", err)
			return
		}

		results, err := engine.EvaluateAll(rules.NewFacts(req.claim(), req.PolicyBenefit, details))
		if err != nil {
			respondError(w, http.StatusInternalServerError, "review rule evaluation failed", err)
			return
		}

		for _, result := range results {
			if result.Error != nil {
				logger.WarnRuleFailure()
				logger.Warn("review rule failed", "company", req.CompanyID, "rule", result.RuleID, "error", result.Error)
			}
		}
		for _, flag := range rules.Flags(results) {
			flags = append(flags, FlagResponse{RuleID: flag.RuleID, RuleName: flag.RuleName})
		}
	}

	respondJSON(w, http.StatusOK, AdjudicateResponse{
		Formula: s.calculator.Formula().String(),
		Details: details,
		Display: adjudication.Round(details),
		Flags:   flags,
	})
}

func (s *Server) handleCompare(w http.ResponseWriter, r *http.Request) {
	var req AdjudicateRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	respondJSON(w, http.StatusOK, CompareResponse{
		CanonicalFormula: adjudication.FormulaPayPercentage.String(),
		LegacyFormula:    adjudication.FormulaUsageCapOnly.String(),
		Divergence:       adjudication.Compare(req.claim(), req.PolicyBenefit),
	})
}

func (s *Server) handlePrepareClaim(w http.ResponseWriter, r *http.Request) {
	var req AdjudicateRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	submission, err := adjudication.PrepareSubmission(req.claim(), req.PolicyBenefit)
	if err != nil {
		respondError(w, http.StatusBadRequest, "claim cannot be submitted", err)
		return
	}

	respondJSON(w, http.StatusOK, submission)
}

func (s *Server) handleListCompanies(w http.ResponseWriter, r *http.Request) {
	companies, err := s.companies.List(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to list companies", err)
		return
	}

	respondJSON(w, http.StatusOK, CompaniesListResponse{Companies: companies})
}

func (s *Server) handleCreateCompany(w http.ResponseWriter, r *http.Request) {
	var req CreateCompanyRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := companyengine.ValidateCompanyName(req.Name); err != nil {
		respondError(w, http.StatusBadRequest, "invalid company name", err)
		return
	}

	company, err := s.companies.Create(r.Context(), req.Name)
	if errors.Is(err, errCompanyExists) {
		respondError(w, http.StatusConflict, "company already exists", err)
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to create company", err)
		return
	}

	if err := s.engines.CreateCompany(company.ID); err != nil {
		// A company is never listed without a loaded engine
		if delErr := s.companies.Delete(r.Context(), company.ID); delErr != nil {
			logger.Error("failed to roll back company", "company", company.ID, "error", delErr)
		}
		respondError(w, http.StatusInternalServerError, "failed to initialize company engine", err)
		return
	}

	respondJSON(w, http.StatusCreated, company)
}

func (s *Server) handleDeleteCompany(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.companyEngine(w, r); !ok {
		return
	}
	companyID := chi.URLParam(r, "companyId")

	if err := s.companies.Delete(r.Context(), companyID); err != nil {
		if errors.Is(err, companyengine.ErrCompanyNotFound) {
			respondError(w, http.StatusNotFound, "company not found", err)
			return
		}
		respondError(w, http.StatusInternalServerError, "failed to delete company", err)
		return
	}

	if err := s.engines.DeleteCompany(companyID); err != nil && !errors.Is(err, companyengine.ErrCompanyNotFound) {
		respondError(w, http.StatusInternalServerError, "failed to unload company engine", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// handleReloadCompany recompiles a company's rules from storage, picking up
// changes written by other instances
func (s *Server) handleReloadCompany(w http.ResponseWriter, r *http.Request) {
	companyID := chi.URLParam(r, "companyId")

	if err := s.engines.ReloadCompany(companyID); err != nil {
		if errors.Is(err, companyengine.ErrCompanyNotFound) {
			respondError(w, http.StatusNotFound, "company not found", err)
			return
		}
		respondError(w, http.StatusInternalServerError, "failed to reload company", err)
		return
	}

	engine, ok := s.companyEngine(w, r)
	if !ok {
		return
	}
	list, err := engine.List()
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to list rules", err)
		return
	}

	active := 0
	for _, rule := range list {
		if rule.Active {
			active++
		}
	}

	respondJSON(w, http.StatusOK, ReloadResponse{CompanyID: companyID, ActiveRules: active})
}

// companyEngine resolves the {companyId} path parameter, replying 404 when unknown
func (s *Server) companyEngine(w http.ResponseWriter, r *http.Request) (*rules.Engine, bool) {
	engine, err := s.engines.GetEngine(chi.URLParam(r, "companyId"))
	if err != nil {
		respondError(w, http.StatusNotFound, "company not found", err)
		return nil, false
	}
	return engine, true
}

func (s *Server) handleCreateRule(w http.ResponseWriter, r *http.Request) {
	engine, ok := s.companyEngine(w, r)
	if !ok {
		return
	}

	var req CreateRuleRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := companyengine.ValidateRule(req.Name, req.Expression); err != nil {
		respondError(w, http.StatusBadRequest, "invalid rule", err)
		return
	}

	active := true
	if req.Active != nil {
		active = *req.Active
	}

	rule := &rules.Rule{
		ID:         uuid.New().String(),
		Name:       req.Name,
		Expression: req.Expression,
		Active:     active,
	}

	if err := engine.AddRule(rule); err != nil {
		respondRuleError(w, "failed to add rule", err)
		return
	}

	respondJSON(w, http.StatusCreated, rule)
}

func (s *Server) handleListRules(w http.ResponseWriter, r *http.Request) {
	engine, ok := s.companyEngine(w, r)
	if !ok {
		return
	}

	list, err := engine.List()
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to list rules", err)
		return
	}
	if list == nil {
		list = []*rules.Rule{}
	}

	respondJSON(w, http.StatusOK, RulesListResponse{Rules: list})
}

func (s *Server) handleGetRule(w http.ResponseWriter, r *http.Request) {
	engine, ok := s.companyEngine(w, r)
	if !ok {
		return
	}

	rule, err := engine.Get(chi.URLParam(r, "ruleId"))
	if err != nil {
		respondRuleError(w, "failed to get rule", err)
		return
	}

	respondJSON(w, http.StatusOK, rule)
}

func (s *Server) handleUpdateRule(w http.ResponseWriter, r *http.Request) {
	engine, ok := s.companyEngine(w, r)
	if !ok {
		return
	}

	var req UpdateRuleRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	existing, err := engine.Get(chi.URLParam(r, "ruleId"))
	if err != nil {
		respondRuleError(w, "failed to get rule", err)
		return
	}

	rule := &rules.Rule{
		ID:         existing.ID,
		Name:       existing.Name,
		Expression: existing.Expression,
		Active:     existing.Active,
	}
	if req.Name != "" {
		rule.Name = req.Name
	}
	if req.Expression != "" {
		rule.Expression = req.Expression
	}
	if req.Active != nil {
		rule.Active = *req.Active
	}

	if err := companyengine.ValidateRule(rule.Name, rule.Expression); err != nil {
		respondError(w, http.StatusBadRequest, "invalid rule", err)
		return
	}

	if err := engine.UpdateRule(rule); err != nil {
		respondRuleError(w, "failed to update rule", err)
		return
	}

	respondJSON(w, http.StatusOK, rule)
}

func (s *Server) handleDeleteRule(w http.ResponseWriter, r *http.Request) {
	engine, ok := s.companyEngine(w, r)
	if !ok {
		return
	}

	if err := engine.DeleteRule(chi.URLParam(r, "ruleId")); err != nil {
		respondRuleError(w, "failed to delete rule", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// decodeJSON reads the request body into v, replying 413 or 400 on failure
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	err := json.NewDecoder(r.Body).Decode(v)
	if err == nil {
		return true
	}

	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		respondError(w, http.StatusRequestEntityTooLarge, "request body too large", err)
		return false
	}

	respondError(w, http.StatusBadRequest, "invalid request body", err)
	return false
}

// respondRuleError maps engine and store errors to status codes; anything
// unrecognized is a storage failure
func respondRuleError(w http.ResponseWriter, message string, err error) {
	switch {
	case errors.Is(err, rules.ErrRuleNotFound):
		respondError(w, http.StatusNotFound, "rule not found", err)
	case errors.Is(err, rules.ErrInvalidRule):
		respondError(w, http.StatusBadRequest, "invalid rule", err)
	case errors.Is(err, rules.ErrRuleExists):
		respondError(w, http.StatusConflict, "rule already exists", err)
	default:
		respondError(w, http.StatusInternalServerError, message, err)
	}
}

// respondJSON encodes before writing the status; values JSON cannot carry,
// such as an overflowed amount, become a 500
func respondJSON(w http.ResponseWriter, status int, data any) {
	body, err := json.Marshal(data)
	if err != nil {
		logger.Error("failed to encode response", "error", err)
		body, _ = json.Marshal(ErrorResponse{Error: "failed to encode response", Details: err.Error()})
		status = http.StatusInternalServerError
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(append(body, '\n'))
}

func respondError(w http.ResponseWriter, status int, message string, err error) {
	response := ErrorResponse{Error: message}
	if err != nil {
		response.Details = err.Error()
		if status >= http.StatusInternalServerError {
			logger.Error(message, "error", err)
		}
	}
	respondJSON(w, status, response)
}
