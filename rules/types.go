package rules

import (
	"errors"
	"time"
)

var (
	// ErrRuleNotFound is returned when a rule ID is unknown to a store
	ErrRuleNotFound = errors.New("rule not found")

	// ErrRuleExists is returned when adding a rule whose ID is taken
	ErrRuleExists = errors.New("rule already exists")

	// ErrInvalidRule is returned when a rule expression does not compile
	ErrInvalidRule = errors.New("rule validation failed")
)

// Rule is a company review rule: a boolean CEL expression over the facts of
// an adjudicated claim line. A match flags the claim; it never changes the
// adjudicated amounts.
type Rule struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Expression string    `json:"expression"`
	Active     bool      `json:"active"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// EvaluationResult contains the outcome of evaluating a rule
type EvaluationResult struct {
	RuleID   string
	RuleName string
	Matched  bool
	Error    error
	Trace    any // CEL evaluation state, set on success
}

// Flags returns the results that matched without error, in input order
func Flags(results []*EvaluationResult) []*EvaluationResult {
	flags := make([]*EvaluationResult, 0, len(results))
	for _, r := range results {
		if r.Matched && r.Error == nil {
			flags = append(flags, r)
		}
	}
	return flags
}
