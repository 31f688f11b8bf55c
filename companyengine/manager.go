package companyengine

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/google/cel-go/cel"
	"github.com/liamcoop/adjudication/rules"
)

// ErrCompanyNotFound is returned when no engine is loaded for a company
var ErrCompanyNotFound = errors.New("company not found")

// StoreFactory returns the rule store for one company
type StoreFactory func(companyID string) rules.RuleStore

// InMemoryStores returns a StoreFactory that keeps one in-memory store per
// company for the life of the process, so rebuilt engines see earlier rules
func InMemoryStores() StoreFactory {
	var mu sync.Mutex
	stores := make(map[string]rules.RuleStore)

	return func(companyID string) rules.RuleStore {
		mu.Lock()
		defer mu.Unlock()

		store, ok := stores[companyID]
		if !ok {
			store = rules.NewInMemoryRuleStore()
			stores[companyID] = store
		}
		return store
	}
}

// CompanyEngine wraps a rules.Engine with company metadata
type CompanyEngine struct {
	CompanyID string
	Engine    *rules.Engine
}

// Manager owns one review rule engine per company
type Manager struct {
	engines     map[string]*CompanyEngine
	newStore    StoreFactory
	env         *cel.Env
	cacheConfig rules.CacheConfig
	mu          sync.RWMutex
}

// NewManager creates a manager whose engines read rules through newStore
func NewManager(newStore StoreFactory, cacheConfig rules.CacheConfig) (*Manager, error) {
	env, err := rules.NewEnv()
	if err != nil {
		return nil, err
	}

	return &Manager{
		engines:     make(map[string]*CompanyEngine),
		newStore:    newStore,
		env:         env,
		cacheConfig: cacheConfig,
	}, nil
}

func (m *Manager) build(companyID string) (*CompanyEngine, error) {
	engine, err := rules.NewEngineWithEnv(m.env, m.newStore(companyID), m.cacheConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create engine: %w", err)
	}
	return &CompanyEngine{CompanyID: companyID, Engine: engine}, nil
}

// LoadCompanies builds engines for every given company, compiling their
// stored rules. It stops at the first company whose rules fail to compile.
func (m *Manager) LoadCompanies(companyIDs []string) error {
	for _, id := range companyIDs {
		if err := m.CreateCompany(id); err != nil {
			return fmt.Errorf("failed to initialize company %s: %w", id, err)
		}
	}
	return nil
}

// CreateCompany builds and registers the engine for a company, replacing
// any engine already loaded for it
func (m *Manager) CreateCompany(companyID string) error {
	ce, err := m.build(companyID)
	if err != nil {
		return err
	}

	m.mu.Lock()
	m.engines[companyID] = ce
	m.mu.Unlock()

	return nil
}

// GetEngine retrieves the engine for a company
func (m *Manager) GetEngine(companyID string) (*rules.Engine, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ce, exists := m.engines[companyID]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrCompanyNotFound, companyID)
	}

	return ce.Engine, nil
}

// ReloadCompany recompiles a company's rules from its store into a new
// engine and swaps it in. Requests keep using the old engine until the swap;
// on failure the old engine stays in place.
func (m *Manager) ReloadCompany(companyID string) error {
	m.mu.RLock()
	_, exists := m.engines[companyID]
	m.mu.RUnlock()
	if !exists {
		return fmt.Errorf("%w: %s", ErrCompanyNotFound, companyID)
	}

	ce, err := m.build(companyID)
	if err != nil {
		return err
	}

	m.mu.Lock()
	m.engines[companyID] = ce
	m.mu.Unlock()

	return nil
}

// ListCompanies returns the loaded company IDs in sorted order
func (m *Manager) ListCompanies() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ids := make([]string, 0, len(m.engines))
	for id := range m.engines {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// DeleteCompany unloads a company's engine. Stored rules are left alone.
func (m *Manager) DeleteCompany(companyID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.engines[companyID]; !exists {
		return fmt.Errorf("%w: %s", ErrCompanyNotFound, companyID)
	}

	delete(m.engines, companyID)
	return nil
}
