package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"
)

// CreateModule inserts a new module definition
func (s *Store) CreateModule(ctx context.Context, module *Module) error {
	if !module.Tier.Valid() {
		return &ValidationError{Field: "tier", Message: fmt.Sprintf("unknown module tier %q", module.Tier)}
	}

	query := `
		INSERT INTO modules (name, description, tier, base_price_cents, per_user_price_cents, permission_keys, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)
		RETURNING id
	`

	now := time.Now()
	err := s.db.QueryRowContext(ctx, query,
		module.Name,
		module.Description,
		module.Tier,
		module.BasePriceCents,
		module.PerUserPriceCents,
		pq.Array(module.PermissionKeys),
		module.IsActive,
		now,
	).Scan(&module.ID)
	if err != nil {
		return fmt.Errorf("failed to create module: %w", err)
	}

	module.CreatedAt = now
	module.UpdatedAt = now
	return nil
}

// UpdateModule updates a module definition. Core-tier modules cannot be
// deactivated.
func (s *Store) UpdateModule(ctx context.Context, module *Module) error {
	existing, err := s.GetModule(ctx, module.ID)
	if err != nil {
		return err
	}
	if existing.Tier == TierCore && !module.IsActive {
		return &ConflictError{Message: fmt.Sprintf("core module %s cannot be deactivated", existing.Name)}
	}

	query := `
		UPDATE modules
		SET name = $1, description = $2, base_price_cents = $3, per_user_price_cents = $4,
		    permission_keys = $5, is_active = $6, updated_at = $7
		WHERE id = $8
	`

	module.UpdatedAt = time.Now()
	_, err = s.db.ExecContext(ctx, query,
		module.Name,
		module.Description,
		module.BasePriceCents,
		module.PerUserPriceCents,
		pq.Array(module.PermissionKeys),
		module.IsActive,
		module.UpdatedAt,
		module.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update module: %w", err)
	}
	return nil
}

// GetModule retrieves a module by ID
func (s *Store) GetModule(ctx context.Context, moduleID int64) (*Module, error) {
	query := `
		SELECT id, name, description, tier, base_price_cents, per_user_price_cents, permission_keys, is_active, created_at, updated_at
		FROM modules
		WHERE id = $1
	`

	var m Module
	var description sql.NullString
	err := s.db.QueryRowContext(ctx, query, moduleID).Scan(
		&m.ID,
		&m.Name,
		&description,
		&m.Tier,
		&m.BasePriceCents,
		&m.PerUserPriceCents,
		pq.Array(&m.PermissionKeys),
		&m.IsActive,
		&m.CreatedAt,
		&m.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, &NotFoundError{Entity: "module", Key: fmt.Sprintf("%d", moduleID)}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get module: %w", err)
	}

	m.Description = description.String
	return &m, nil
}

// ListModules lists modules, optionally only active ones
func (s *Store) ListModules(ctx context.Context, activeOnly bool) ([]Module, error) {
	query := `
		SELECT id, name, description, tier, base_price_cents, per_user_price_cents, permission_keys, is_active, created_at, updated_at
		FROM modules
		WHERE ($1 = false OR is_active = true)
		ORDER BY tier ASC, name ASC
	`

	rows, err := s.db.QueryContext(ctx, query, activeOnly)
	if err != nil {
		return nil, fmt.Errorf("failed to list modules: %w", err)
	}
	defer rows.Close()

	var modules []Module
	for rows.Next() {
		var m Module
		var description sql.NullString
		if err := rows.Scan(
			&m.ID,
			&m.Name,
			&description,
			&m.Tier,
			&m.BasePriceCents,
			&m.PerUserPriceCents,
			pq.Array(&m.PermissionKeys),
			&m.IsActive,
			&m.CreatedAt,
			&m.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan module: %w", err)
		}
		m.Description = description.String
		modules = append(modules, m)
	}

	return modules, rows.Err()
}
