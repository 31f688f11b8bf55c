package rules

import (
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"
)

// costLimit bounds the runtime cost of a single rule evaluation
const costLimit = 1000000

// Engine compiles and evaluates review rules.
// Safe for concurrent use: compiled programs are guarded by an RWMutex.
type Engine struct {
	env      *cel.Env
	store    RuleStore
	cache    RulesCache
	programs map[string]cel.Program // ruleID -> compiled program
	mu       sync.RWMutex

	// generation counts cache invalidations so a list read from the store
	// before a mutation is never cached after it
	generation uint64
	cacheMu    sync.Mutex
}

// NewEngine creates an engine over the claim fact environment and compiles
// every active rule in the store
func NewEngine(store RuleStore) (*Engine, error) {
	env, err := NewEnv()
	if err != nil {
		return nil, err
	}
	return NewEngineWithEnv(env, store, DefaultCacheConfig())
}

// NewEngineWithEnv creates an engine with a custom CEL environment and cache behavior
func NewEngineWithEnv(env *cel.Env, store RuleStore, cacheConfig CacheConfig) (*Engine, error) {
	en := &Engine{
		env:      env,
		store:    store,
		cache:    NewInMemoryRulesCache(cacheConfig),
		programs: make(map[string]cel.Program),
	}

	if err := en.CompileAllRules(); err != nil {
		return nil, fmt.Errorf("failed to compile rules: %w", err)
	}

	return en, nil
}

// CompileRule compiles an expression and caches the program under ruleID.
// Expressions must type-check to bool.
func (en *Engine) CompileRule(ruleID, expression string) error {
	prog, err := en.compile(expression)
	if err != nil {
		return err
	}

	en.mu.Lock()
	en.programs[ruleID] = prog
	en.mu.Unlock()

	return nil
}

func (en *Engine) compile(expression string) (cel.Program, error) {
	ast, issues := en.env.Compile(expression)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("compile error: %w", issues.Err())
	}

	// Dyn results are allowed through; they are decided at evaluation time
	if out := ast.OutputType(); !out.IsExactType(cel.BoolType) && !out.IsExactType(cel.DynType) {
		return nil, fmt.Errorf("compile error: expression must evaluate to bool, got %s", out)
	}

	prog, err := en.env.Program(ast,
		cel.EvalOptions(cel.OptTrackState),
		cel.CostLimit(costLimit),
	)
	if err != nil {
		return nil, fmt.Errorf("program creation error: %w", err)
	}
	return prog, nil
}

// Evaluate evaluates a single rule against the provided facts.
// Non-boolean results count as no match.
func (en *Engine) Evaluate(ruleID string, facts map[string]any) (*EvaluationResult, error) {
	rule, err := en.store.Get(ruleID)
	if err != nil {
		return nil, err
	}

	en.mu.RLock()
	prog, exists := en.programs[ruleID]
	en.mu.RUnlock()

	if !exists {
		return nil, fmt.Errorf("rule %s is not compiled", ruleID)
	}

	result := evaluate(prog, rule, facts)
	return result, result.Error
}

// CompileAllRules compiles all active rules from the store and primes the cache
func (en *Engine) CompileAllRules() error {
	rules, err := en.store.ListActive()
	if err != nil {
		return err
	}

	for _, rule := range rules {
		if err := en.CompileRule(rule.ID, rule.Expression); err != nil {
			return fmt.Errorf("failed to compile rule %s: %w", rule.ID, err)
		}
	}

	en.cache.Set(rules)

	return nil
}

// AddRule validates that the rule compiles, then stores it.
// The compiled program is discarded if the store rejects the rule.
func (en *Engine) AddRule(r *Rule) error {
	if _, err := en.store.Get(r.ID); err == nil {
		return fmt.Errorf("%w: %s", ErrRuleExists, r.ID)
	}

	if err := en.CompileRule(r.ID, r.Expression); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidRule, err)
	}

	if err := en.store.Add(r); err != nil {
		en.mu.Lock()
		delete(en.programs, r.ID)
		en.mu.Unlock()
		return err
	}

	en.invalidate()

	return nil
}

// UpdateRule recompiles and stores an existing rule. The previous program
// stays in place if the new expression does not compile or the store fails.
func (en *Engine) UpdateRule(r *Rule) error {
	prog, err := en.compile(r.Expression)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidRule, err)
	}

	if err := en.store.Update(r); err != nil {
		return err
	}

	en.mu.Lock()
	en.programs[r.ID] = prog
	en.mu.Unlock()

	en.invalidate()

	return nil
}

// DeleteRule removes a rule from the store and drops its program
func (en *Engine) DeleteRule(ruleID string) error {
	if err := en.store.Delete(ruleID); err != nil {
		return err
	}

	en.mu.Lock()
	delete(en.programs, ruleID)
	en.mu.Unlock()

	en.invalidate()

	return nil
}

// Get returns a stored rule
func (en *Engine) Get(ruleID string) (*Rule, error) {
	return en.store.Get(ruleID)
}

// List returns every stored rule, active or not
func (en *Engine) List() ([]*Rule, error) {
	return en.store.List()
}

// EvaluateAll evaluates every active rule. A failing rule is reported in
// its result and does not stop the others.
func (en *Engine) EvaluateAll(facts map[string]any) ([]*EvaluationResult, error) {
	rules, err := en.activeRules()
	if err != nil {
		return nil, err
	}

	results := make([]*EvaluationResult, 0, len(rules))
	for _, rule := range rules {
		en.mu.RLock()
		prog, exists := en.programs[rule.ID]
		en.mu.RUnlock()

		if !exists {
			results = append(results, &EvaluationResult{
				RuleID:   rule.ID,
				RuleName: rule.Name,
				Error:    fmt.Errorf("rule %s is not compiled", rule.ID),
			})
			continue
		}

		results = append(results, evaluate(prog, rule, facts))
	}

	return results, nil
}

func (en *Engine) activeRules() ([]*Rule, error) {
	if rules := en.cache.Get(); rules != nil {
		return rules, nil
	}

	en.cacheMu.Lock()
	gen := en.generation
	en.cacheMu.Unlock()

	rules, err := en.store.ListActive()
	if err != nil {
		return nil, err
	}

	en.cacheMu.Lock()
	if en.generation == gen {
		en.cache.Set(rules)
	}
	en.cacheMu.Unlock()

	return rules, nil
}

func (en *Engine) invalidate() {
	en.cacheMu.Lock()
	en.generation++
	en.cache.Invalidate()
	en.cacheMu.Unlock()
}

func evaluate(prog cel.Program, rule *Rule, facts map[string]any) *EvaluationResult {
	out, details, err := prog.Eval(facts)
	if err != nil {
		return &EvaluationResult{
			RuleID:   rule.ID,
			RuleName: rule.Name,
			Error:    err,
		}
	}

	matched := false
	if boolVal, ok := out.Value().(bool); ok {
		matched = boolVal
	}

	return &EvaluationResult{
		RuleID:   rule.ID,
		RuleName: rule.Name,
		Matched:  matched,
		Trace:    details.State(),
	}
}
