package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lib/pq"
)

// Store handles catalog persistence
type Store struct {
	db *sql.DB
}

// NewStore creates a new catalog store
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// CreatePermission inserts a new permission definition after validating its
// key format and prerequisite graph against the existing catalog.
func (s *Store) CreatePermission(ctx context.Context, perm *Permission) error {
	if !ValidKey(perm.Key) {
		return &ValidationError{Field: "key", Message: fmt.Sprintf("malformed permission key %q", perm.Key)}
	}

	graph, err := s.requiresGraph(ctx)
	if err != nil {
		return err
	}
	if _, exists := graph[perm.Key]; exists {
		return &ConflictError{Message: fmt.Sprintf("permission %s already exists", perm.Key)}
	}
	if err := ValidateRequires(perm.Key, perm.Requires, graph); err != nil {
		return err
	}

	query := `
		INSERT INTO permissions (key, display_name, description, perm_group, is_foundation, is_system, requires, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)
	`

	now := time.Now()
	_, err = s.db.ExecContext(ctx, query,
		perm.Key,
		perm.DisplayName,
		perm.Description,
		perm.Group,
		perm.IsFoundation,
		perm.IsSystem,
		pq.Array(perm.Requires),
		now,
	)
	if err != nil {
		return fmt.Errorf("failed to create permission: %w", err)
	}

	perm.CreatedAt = now
	perm.UpdatedAt = now
	return nil
}

// UpdatePermission updates a non-system permission definition
func (s *Store) UpdatePermission(ctx context.Context, perm *Permission) error {
	existing, err := s.GetPermission(ctx, perm.Key)
	if err != nil {
		return err
	}
	if existing.IsSystem {
		return &ConflictError{Message: fmt.Sprintf("permission %s is system-locked", perm.Key)}
	}

	graph, err := s.requiresGraph(ctx)
	if err != nil {
		return err
	}
	if err := ValidateRequires(perm.Key, perm.Requires, graph); err != nil {
		return err
	}

	query := `
		UPDATE permissions
		SET display_name = $1, description = $2, perm_group = $3, is_foundation = $4, requires = $5, updated_at = $6
		WHERE key = $7
	`

	perm.UpdatedAt = time.Now()
	_, err = s.db.ExecContext(ctx, query,
		perm.DisplayName,
		perm.Description,
		perm.Group,
		perm.IsFoundation,
		pq.Array(perm.Requires),
		perm.UpdatedAt,
		perm.Key,
	)
	if err != nil {
		return fmt.Errorf("failed to update permission: %w", err)
	}
	return nil
}

// DeletePermission removes a permission that is neither system-locked nor
// referenced by any grant.
func (s *Store) DeletePermission(ctx context.Context, key string) error {
	perm, err := s.GetPermission(ctx, key)
	if err != nil {
		return err
	}
	if perm.IsSystem {
		return &ConflictError{Message: fmt.Sprintf("permission %s is system-locked", key)}
	}

	var referenced bool
	err = s.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM user_data_permission_grants WHERE permission_key = $1)`,
		key,
	).Scan(&referenced)
	if err != nil {
		return fmt.Errorf("failed to check grant references: %w", err)
	}
	if referenced {
		return &ConflictError{Message: fmt.Sprintf("permission %s is referenced by grants", key)}
	}

	if _, err := s.db.ExecContext(ctx, `DELETE FROM permissions WHERE key = $1`, key); err != nil {
		return fmt.Errorf("failed to delete permission: %w", err)
	}
	return nil
}

// GetPermission retrieves a permission by key
func (s *Store) GetPermission(ctx context.Context, key string) (*Permission, error) {
	query := `
		SELECT key, display_name, description, perm_group, is_foundation, is_system, requires, created_at, updated_at
		FROM permissions
		WHERE key = $1
	`

	var p Permission
	var description sql.NullString
	err := s.db.QueryRowContext(ctx, query, key).Scan(
		&p.Key,
		&p.DisplayName,
		&description,
		&p.Group,
		&p.IsFoundation,
		&p.IsSystem,
		pq.Array(&p.Requires),
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, &NotFoundError{Entity: "permission", Key: key}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get permission: %w", err)
	}

	p.Description = description.String
	return &p, nil
}

// ListPermissions lists permissions ordered by (group, key)
func (s *Store) ListPermissions(ctx context.Context, filter PermissionFilter) ([]Permission, error) {
	query := `
		SELECT key, display_name, description, perm_group, is_foundation, is_system, requires, created_at, updated_at
		FROM permissions
		WHERE ($1 = '' OR perm_group = $1)
		  AND ($2 = false OR is_foundation = true)
		ORDER BY perm_group ASC, key ASC
	`

	rows, err := s.db.QueryContext(ctx, query, filter.Group, filter.FoundationOnly)
	if err != nil {
		return nil, fmt.Errorf("failed to list permissions: %w", err)
	}
	defer rows.Close()

	var perms []Permission
	for rows.Next() {
		var p Permission
		var description sql.NullString
		if err := rows.Scan(
			&p.Key,
			&p.DisplayName,
			&description,
			&p.Group,
			&p.IsFoundation,
			&p.IsSystem,
			pq.Array(&p.Requires),
			&p.CreatedAt,
			&p.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan permission: %w", err)
		}
		p.Description = description.String
		perms = append(perms, p)
	}

	return perms, rows.Err()
}

// GetPermissions fetches a batch of permissions keyed by permission key.
// Unknown keys are simply absent from the result.
func (s *Store) GetPermissions(ctx context.Context, keys []string) (map[string]*Permission, error) {
	if len(keys) == 0 {
		return map[string]*Permission{}, nil
	}

	query := `
		SELECT key, display_name, description, perm_group, is_foundation, is_system, requires, created_at, updated_at
		FROM permissions
		WHERE key = ANY($1)
	`

	rows, err := s.db.QueryContext(ctx, query, pq.Array(keys))
	if err != nil {
		return nil, fmt.Errorf("failed to get permissions: %w", err)
	}
	defer rows.Close()

	perms := make(map[string]*Permission, len(keys))
	for rows.Next() {
		var p Permission
		var description sql.NullString
		if err := rows.Scan(
			&p.Key,
			&p.DisplayName,
			&description,
			&p.Group,
			&p.IsFoundation,
			&p.IsSystem,
			pq.Array(&p.Requires),
			&p.CreatedAt,
			&p.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan permission: %w", err)
		}
		p.Description = description.String
		perms[p.Key] = &p
	}

	return perms, rows.Err()
}

// requiresGraph loads the full prerequisite graph for authoring validation
func (s *Store) requiresGraph(ctx context.Context) (map[string][]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT key, requires FROM permissions`)
	if err != nil {
		return nil, fmt.Errorf("failed to load requires graph: %w", err)
	}
	defer rows.Close()

	graph := make(map[string][]string)
	for rows.Next() {
		var key string
		var requires []string
		if err := rows.Scan(&key, pq.Array(&requires)); err != nil {
			return nil, fmt.Errorf("failed to scan requires row: %w", err)
		}
		graph[key] = requires
	}
	return graph, rows.Err()
}

// RoleDefaults returns the default permission keys for a role name. Role
// default sets are data, loaded from the store, never code branches.
func (s *Store) RoleDefaults(ctx context.Context, role string) ([]string, error) {
	query := `SELECT permission_keys FROM role_defaults WHERE role = $1`

	var keysJSON []byte
	err := s.db.QueryRowContext(ctx, query, role).Scan(&keysJSON)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get role defaults: %w", err)
	}

	var keys []string
	if err := json.Unmarshal(keysJSON, &keys); err != nil {
		return nil, fmt.Errorf("failed to unmarshal role defaults: %w", err)
	}
	return keys, nil
}

// SetRoleDefaults replaces the default permission set for a role
func (s *Store) SetRoleDefaults(ctx context.Context, role string, keys []string) error {
	keysJSON, err := json.Marshal(keys)
	if err != nil {
		return fmt.Errorf("failed to marshal role defaults: %w", err)
	}

	query := `
		INSERT INTO role_defaults (role, permission_keys, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (role) DO UPDATE
		SET permission_keys = EXCLUDED.permission_keys, updated_at = EXCLUDED.updated_at
	`
	if _, err := s.db.ExecContext(ctx, query, role, keysJSON, time.Now()); err != nil {
		return fmt.Errorf("failed to set role defaults: %w", err)
	}
	return nil
}
