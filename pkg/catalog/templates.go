package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"
)

// CreateTemplate inserts a new permission template
func (s *Store) CreateTemplate(ctx context.Context, tmpl *Template) error {
	query := `
		INSERT INTO permission_templates (name, description, target_role, permission_keys, module_ids, is_system, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $7)
		RETURNING id
	`

	now := time.Now()
	err := s.db.QueryRowContext(ctx, query,
		tmpl.Name,
		tmpl.Description,
		tmpl.TargetRole,
		pq.Array(tmpl.PermissionKeys),
		pq.Array(tmpl.ModuleIDs),
		tmpl.IsSystem,
		now,
	).Scan(&tmpl.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return &ConflictError{Message: fmt.Sprintf("template %q already exists", tmpl.Name)}
		}
		return fmt.Errorf("failed to create template: %w", err)
	}

	tmpl.CreatedAt = now
	tmpl.UpdatedAt = now
	return nil
}

// UpdateTemplate updates a non-system template
func (s *Store) UpdateTemplate(ctx context.Context, tmpl *Template) error {
	existing, err := s.GetTemplate(ctx, tmpl.ID)
	if err != nil {
		return err
	}
	if existing.IsSystem {
		return &ConflictError{Message: fmt.Sprintf("template %q is system-locked", existing.Name)}
	}

	query := `
		UPDATE permission_templates
		SET name = $1, description = $2, target_role = $3, permission_keys = $4, module_ids = $5, updated_at = $6
		WHERE id = $7
	`

	tmpl.UpdatedAt = time.Now()
	_, err = s.db.ExecContext(ctx, query,
		tmpl.Name,
		tmpl.Description,
		tmpl.TargetRole,
		pq.Array(tmpl.PermissionKeys),
		pq.Array(tmpl.ModuleIDs),
		tmpl.UpdatedAt,
		tmpl.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return &ConflictError{Message: fmt.Sprintf("template %q already exists", tmpl.Name)}
		}
		return fmt.Errorf("failed to update template: %w", err)
	}
	return nil
}

// DeleteTemplate removes a non-system template
func (s *Store) DeleteTemplate(ctx context.Context, templateID int64) error {
	tmpl, err := s.GetTemplate(ctx, templateID)
	if err != nil {
		return err
	}
	if tmpl.IsSystem {
		return &ConflictError{Message: fmt.Sprintf("template %q is system-locked", tmpl.Name)}
	}

	if _, err := s.db.ExecContext(ctx, `DELETE FROM permission_templates WHERE id = $1`, templateID); err != nil {
		return fmt.Errorf("failed to delete template: %w", err)
	}
	return nil
}

// GetTemplate retrieves a template by ID
func (s *Store) GetTemplate(ctx context.Context, templateID int64) (*Template, error) {
	query := `
		SELECT id, name, description, target_role, permission_keys, module_ids, is_system, created_at, updated_at
		FROM permission_templates
		WHERE id = $1
	`

	var t Template
	var description, targetRole sql.NullString
	err := s.db.QueryRowContext(ctx, query, templateID).Scan(
		&t.ID,
		&t.Name,
		&description,
		&targetRole,
		pq.Array(&t.PermissionKeys),
		pq.Array(&t.ModuleIDs),
		&t.IsSystem,
		&t.CreatedAt,
		&t.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, &NotFoundError{Entity: "template", Key: fmt.Sprintf("%d", templateID)}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get template: %w", err)
	}

	t.Description = description.String
	t.TargetRole = targetRole.String
	return &t, nil
}

// ListTemplates lists templates, optionally filtered by target role
func (s *Store) ListTemplates(ctx context.Context, targetRole string) ([]Template, error) {
	query := `
		SELECT id, name, description, target_role, permission_keys, module_ids, is_system, created_at, updated_at
		FROM permission_templates
		WHERE ($1 = '' OR target_role = $1)
		ORDER BY is_system DESC, name ASC
	`

	rows, err := s.db.QueryContext(ctx, query, targetRole)
	if err != nil {
		return nil, fmt.Errorf("failed to list templates: %w", err)
	}
	defer rows.Close()

	var templates []Template
	for rows.Next() {
		var t Template
		var description, role sql.NullString
		if err := rows.Scan(
			&t.ID,
			&t.Name,
			&description,
			&role,
			pq.Array(&t.PermissionKeys),
			pq.Array(&t.ModuleIDs),
			&t.IsSystem,
			&t.CreatedAt,
			&t.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan template: %w", err)
		}
		t.Description = description.String
		t.TargetRole = role.String
		templates = append(templates, t)
	}

	return templates, rows.Err()
}

// isUniqueViolation reports whether err is a Postgres unique_violation
func isUniqueViolation(err error) bool {
	if pqErr, ok := err.(*pq.Error); ok {
		return pqErr.Code == "23505"
	}
	return false
}
