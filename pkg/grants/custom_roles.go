package grants

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// CreateCustomRole inserts a company-scoped custom role
func (s *Store) CreateCustomRole(ctx context.Context, role *CustomRole) error {
	keysJSON, err := json.Marshal(role.PermissionKeys)
	if err != nil {
		return fmt.Errorf("failed to encode permission keys: %w", err)
	}

	query := `
		INSERT INTO custom_roles (company_id, name, permission_keys, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, TRUE, $4, $4)
		RETURNING id
	`

	now := time.Now()
	if err := s.db.QueryRowContext(ctx, query, role.CompanyID, role.Name, keysJSON, now).Scan(&role.ID); err != nil {
		return fmt.Errorf("failed to create custom role: %w", err)
	}

	role.IsActive = true
	role.CreatedAt = now
	role.UpdatedAt = now
	return nil
}

// UpdateCustomRole updates a custom role's name and permission set
func (s *Store) UpdateCustomRole(ctx context.Context, role *CustomRole) error {
	keysJSON, err := json.Marshal(role.PermissionKeys)
	if err != nil {
		return fmt.Errorf("failed to encode permission keys: %w", err)
	}

	role.UpdatedAt = time.Now()
	result, err := s.db.ExecContext(ctx,
		`UPDATE custom_roles SET name = $1, permission_keys = $2, updated_at = $3 WHERE id = $4 AND company_id = $5`,
		role.Name, keysJSON, role.UpdatedAt, role.ID, role.CompanyID,
	)
	if err != nil {
		return fmt.Errorf("failed to update custom role: %w", err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return &NotFoundError{Entity: "custom role", ID: role.ID}
	}
	return nil
}

// DeactivateCustomRole soft-deletes a custom role. Rows are kept so audit
// history stays reconstructable.
func (s *Store) DeactivateCustomRole(ctx context.Context, companyID, roleID int64) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE custom_roles SET is_active = FALSE, updated_at = NOW() WHERE id = $1 AND company_id = $2`,
		roleID, companyID,
	)
	if err != nil {
		return fmt.Errorf("failed to deactivate custom role: %w", err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return &NotFoundError{Entity: "custom role", ID: roleID}
	}
	return nil
}

// ListCustomRoles returns a company's custom roles, active ones first
func (s *Store) ListCustomRoles(ctx context.Context, companyID int64, activeOnly bool) ([]CustomRole, error) {
	query := `
		SELECT id, company_id, name, permission_keys, is_active, created_at, updated_at
		FROM custom_roles
		WHERE company_id = $1
		  AND ($2 = false OR is_active = true)
		ORDER BY is_active DESC, name ASC
	`

	rows, err := s.db.QueryContext(ctx, query, companyID, activeOnly)
	if err != nil {
		return nil, fmt.Errorf("failed to list custom roles: %w", err)
	}
	defer rows.Close()

	var roles []CustomRole
	for rows.Next() {
		role, err := scanCustomRole(rows)
		if err != nil {
			return nil, err
		}
		roles = append(roles, *role)
	}
	return roles, rows.Err()
}

// AssignCustomRole binds a user to a custom role, replacing any prior
// assignment. The role must be active and belong to the user's company.
func (s *Store) AssignCustomRole(ctx context.Context, userID, companyID, roleID int64) error {
	var active bool
	err := s.db.QueryRowContext(ctx,
		`SELECT is_active FROM custom_roles WHERE id = $1 AND company_id = $2`,
		roleID, companyID,
	).Scan(&active)
	if err == sql.ErrNoRows {
		return &NotFoundError{Entity: "custom role", ID: roleID}
	}
	if err != nil {
		return fmt.Errorf("failed to check custom role: %w", err)
	}
	if !active {
		return &ValidationError{Field: "custom_role_id", Message: "role is deactivated"}
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO user_custom_roles (user_id, company_id, custom_role_id, assigned_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (user_id, company_id) DO UPDATE
		SET custom_role_id = EXCLUDED.custom_role_id, assigned_at = EXCLUDED.assigned_at
	`, userID, companyID, roleID)
	if err != nil {
		return fmt.Errorf("failed to assign custom role: %w", err)
	}
	return nil
}

// UnassignCustomRole removes a user's custom role assignment, restoring
// standard role defaults.
func (s *Store) UnassignCustomRole(ctx context.Context, userID, companyID int64) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM user_custom_roles WHERE user_id = $1 AND company_id = $2`,
		userID, companyID,
	)
	if err != nil {
		return fmt.Errorf("failed to unassign custom role: %w", err)
	}
	return nil
}

// GetActiveCustomRole returns the active custom role assigned to a user,
// or nil when none is assigned (or the assigned role was deactivated).
func (s *Store) GetActiveCustomRole(ctx context.Context, userID, companyID int64) (*CustomRole, error) {
	query := `
		SELECT r.id, r.company_id, r.name, r.permission_keys, r.is_active, r.created_at, r.updated_at
		FROM custom_roles r
		JOIN user_custom_roles u ON u.custom_role_id = r.id
		WHERE u.user_id = $1 AND u.company_id = $2 AND r.is_active = TRUE
	`

	row := s.db.QueryRowContext(ctx, query, userID, companyID)
	role, err := scanCustomRole(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return role, nil
}

func scanCustomRole(row rowScanner) (*CustomRole, error) {
	var role CustomRole
	var keysJSON []byte
	err := row.Scan(
		&role.ID,
		&role.CompanyID,
		&role.Name,
		&keysJSON,
		&role.IsActive,
		&role.CreatedAt,
		&role.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan custom role: %w", err)
	}

	if len(keysJSON) > 0 {
		if err := json.Unmarshal(keysJSON, &role.PermissionKeys); err != nil {
			return nil, fmt.Errorf("failed to decode permission keys: %w", err)
		}
	}
	return &role, nil
}
