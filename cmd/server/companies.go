package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/liamcoop/adjudication/companyengine"
	"github.com/lib/pq"
)

var errCompanyExists = errors.New("company already exists")

// Company is an insurer whose review rules are kept apart from other companies
type Company struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// CompanyDirectory persists the list of companies
type CompanyDirectory interface {
	List(ctx context.Context) ([]Company, error)
	Create(ctx context.Context, name string) (Company, error)
	Delete(ctx context.Context, id string) error
}

// postgresDirectory reads and writes the companies table
type postgresDirectory struct {
	db *sql.DB
}

func newPostgresDirectory(db *sql.DB) *postgresDirectory {
	return &postgresDirectory{db: db}
}

func (d *postgresDirectory) List(ctx context.Context) ([]Company, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT id, name, created_at, updated_at
		FROM companies
		ORDER BY created_at ASC, id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list companies: %w", err)
	}
	defer rows.Close()

	companies := []Company{}
	for rows.Next() {
		var c Company
		if err := rows.Scan(&c.ID, &c.Name, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan company: %w", err)
		}
		companies = append(companies, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating companies: %w", err)
	}

	return companies, nil
}

func (d *postgresDirectory) Create(ctx context.Context, name string) (Company, error) {
	c := Company{Name: name}
	err := d.db.QueryRowContext(ctx, `
		INSERT INTO companies (name, created_at, updated_at)
		VALUES ($1, NOW(), NOW())
		RETURNING id, created_at, updated_at
	`, name).Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)

	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return Company{}, fmt.Errorf("%w: %s", errCompanyExists, name)
	}
	if err != nil {
		return Company{}, fmt.Errorf("failed to create company: %w", err)
	}

	return c, nil
}

func (d *postgresDirectory) Delete(ctx context.Context, id string) error {
	result, err := d.db.ExecContext(ctx, `DELETE FROM companies WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete company: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("%w: %s", companyengine.ErrCompanyNotFound, id)
	}

	return nil
}

// memoryDirectory keeps companies in process memory when no database is configured
type memoryDirectory struct {
	companies map[string]Company
	mu        sync.RWMutex
}

func newMemoryDirectory() *memoryDirectory {
	return &memoryDirectory{companies: make(map[string]Company)}
}

func (d *memoryDirectory) List(ctx context.Context) ([]Company, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	companies := make([]Company, 0, len(d.companies))
	for _, c := range d.companies {
		companies = append(companies, c)
	}
	sort.Slice(companies, func(i, j int) bool {
		if companies[i].CreatedAt.Equal(companies[j].CreatedAt) {
			return companies[i].ID < companies[j].ID
		}
		return companies[i].CreatedAt.Before(companies[j].CreatedAt)
	})
	return companies, nil
}

func (d *memoryDirectory) Create(ctx context.Context, name string) (Company, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	for _, c := range d.companies {
		if c.Name == name {
			return Company{}, fmt.Errorf("%w: %s", errCompanyExists, name)
		}
	}

	now := time.Now().UTC()
	c := Company{
		ID:        uuid.New().String(),
		Name:      name,
		CreatedAt: now,
		UpdatedAt: now,
	}
	d.companies[c.ID] = c
	return c, nil
}

func (d *memoryDirectory) Delete(ctx context.Context, id string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.companies[id]; !ok {
		return fmt.Errorf("%w: %s", companyengine.ErrCompanyNotFound, id)
	}
	delete(d.companies, id)
	return nil
}
