package rules

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq"
)

// PostgresRuleStore implements RuleStore backed by the review_rules table
type PostgresRuleStore struct {
	db        *sql.DB
	companyID string
}

// NewPostgresRuleStore creates a PostgreSQL-backed RuleStore for one company
func NewPostgresRuleStore(db *sql.DB, companyID string) *PostgresRuleStore {
	return &PostgresRuleStore{
		db:        db,
		companyID: companyID,
	}
}

const selectRuleColumns = `SELECT id, name, expression, active, created_at, updated_at FROM review_rules`

// Add inserts a new rule
func (s *PostgresRuleStore) Add(rule *Rule) error {
	var exists bool
	err := s.db.QueryRow(`
		SELECT EXISTS(SELECT 1 FROM review_rules WHERE id = $1 AND company_id = $2)
	`, rule.ID, s.companyID).Scan(&exists)
	if err != nil {
		return fmt.Errorf("failed to check rule existence: %w", err)
	}
	if exists {
		return fmt.Errorf("%w: %s", ErrRuleExists, rule.ID)
	}

	now := time.Now().UTC()
	rule.CreatedAt = now
	rule.UpdatedAt = now

	_, err = s.db.Exec(`
		INSERT INTO review_rules (id, company_id, name, expression, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, rule.ID, s.companyID, rule.Name, rule.Expression, rule.Active,
		rule.CreatedAt, rule.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert rule: %w", err)
	}

	return nil
}

// Get retrieves a rule by ID
func (s *PostgresRuleStore) Get(id string) (*Rule, error) {
	var rule Rule
	err := s.db.QueryRow(selectRuleColumns+`
		WHERE id = $1 AND company_id = $2
	`, id, s.companyID).Scan(
		&rule.ID,
		&rule.Name,
		&rule.Expression,
		&rule.Active,
		&rule.CreatedAt,
		&rule.UpdatedAt,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRuleNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get rule: %w", err)
	}

	return &rule, nil
}

// List returns all rules for the company
func (s *PostgresRuleStore) List() ([]*Rule, error) {
	return s.query(selectRuleColumns+`
		WHERE company_id = $1
		ORDER BY created_at ASC, id ASC
	`, s.companyID)
}

// ListActive returns all active rules for the company
func (s *PostgresRuleStore) ListActive() ([]*Rule, error) {
	return s.query(selectRuleColumns+`
		WHERE company_id = $1 AND active = true
		ORDER BY created_at ASC, id ASC
	`, s.companyID)
}

func (s *PostgresRuleStore) query(q string, args ...any) ([]*Rule, error) {
	rows, err := s.db.Query(q, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list rules: %w", err)
	}
	defer rows.Close()

	var rulesList []*Rule
	for rows.Next() {
		var r Rule
		if err := rows.Scan(&r.ID, &r.Name, &r.Expression, &r.Active,
			&r.CreatedAt, &r.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan rule: %w", err)
		}
		rulesList = append(rulesList, &r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rules: %w", err)
	}

	return rulesList, nil
}

// Update modifies an existing rule, preserving CreatedAt
func (s *PostgresRuleStore) Update(rule *Rule) error {
	rule.UpdatedAt = time.Now().UTC()

	err := s.db.QueryRow(`
		UPDATE review_rules
		SET name = $1, expression = $2, active = $3, updated_at = $4
		WHERE id = $5 AND company_id = $6
		RETURNING created_at
	`, rule.Name, rule.Expression, rule.Active, rule.UpdatedAt, rule.ID, s.companyID).Scan(&rule.CreatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %s", ErrRuleNotFound, rule.ID)
	}
	if err != nil {
		return fmt.Errorf("failed to update rule: %w", err)
	}

	return nil
}

// Delete removes a rule
func (s *PostgresRuleStore) Delete(id string) error {
	result, err := s.db.Exec(`
		DELETE FROM review_rules
		WHERE id = $1 AND company_id = $2
	`, id, s.companyID)
	if err != nil {
		return fmt.Errorf("failed to delete rule: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("%w: %s", ErrRuleNotFound, id)
	}

	return nil
}
