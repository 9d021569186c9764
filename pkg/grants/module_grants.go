package grants

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// UpsertModuleGrant inserts or updates a per-user module grant
func (s *Store) UpsertModuleGrant(ctx context.Context, grant *ModuleGrant) error {
	return s.upsertModuleGrant(ctx, s.db, grant)
}

// UpsertModuleGrantTx is UpsertModuleGrant inside an existing transaction
func (s *Store) UpsertModuleGrantTx(ctx context.Context, tx *sql.Tx, grant *ModuleGrant) error {
	return s.upsertModuleGrant(ctx, tx, grant)
}

func (s *Store) upsertModuleGrant(ctx context.Context, q querier, grant *ModuleGrant) error {
	restrictions := grant.Restrictions
	if restrictions == nil {
		restrictions = map[string]interface{}{}
	}
	restrictionsJSON, err := json.Marshal(restrictions)
	if err != nil {
		return fmt.Errorf("failed to encode restrictions: %w", err)
	}

	query := `
		INSERT INTO user_module_grants
			(user_id, company_id, module_id, restrictions, granted_by, expires_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $7)
		ON CONFLICT (user_id, company_id, module_id) DO UPDATE
		SET restrictions = EXCLUDED.restrictions,
		    granted_by = EXCLUDED.granted_by,
		    expires_at = EXCLUDED.expires_at,
		    updated_at = EXCLUDED.updated_at
		RETURNING id, created_at
	`

	now := time.Now()
	err = q.QueryRowContext(ctx, query,
		grant.UserID,
		grant.CompanyID,
		grant.ModuleID,
		restrictionsJSON,
		grant.GrantedBy,
		grant.ExpiresAt,
		now,
	).Scan(&grant.ID, &grant.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert module grant: %w", err)
	}

	grant.UpdatedAt = now
	return nil
}

// DeleteModuleGrant removes a per-user module grant
func (s *Store) DeleteModuleGrant(ctx context.Context, userID, companyID, moduleID int64) error {
	return s.deleteModuleGrant(ctx, s.db, userID, companyID, moduleID)
}

// DeleteModuleGrantTx is DeleteModuleGrant inside an existing transaction
func (s *Store) DeleteModuleGrantTx(ctx context.Context, tx *sql.Tx, userID, companyID, moduleID int64) error {
	return s.deleteModuleGrant(ctx, tx, userID, companyID, moduleID)
}

func (s *Store) deleteModuleGrant(ctx context.Context, q querier, userID, companyID, moduleID int64) error {
	result, err := q.ExecContext(ctx,
		`DELETE FROM user_module_grants WHERE user_id = $1 AND company_id = $2 AND module_id = $3`,
		userID, companyID, moduleID,
	)
	if err != nil {
		return fmt.Errorf("failed to delete module grant: %w", err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return &NotFoundError{Entity: "module grant", ID: moduleID}
	}
	return nil
}

// ListUserModuleGrants returns all non-expired module grants for a user
func (s *Store) ListUserModuleGrants(ctx context.Context, userID, companyID int64) ([]ModuleGrant, error) {
	query := `
		SELECT id, user_id, company_id, module_id, restrictions, granted_by, expires_at, created_at, updated_at
		FROM user_module_grants
		WHERE user_id = $1 AND company_id = $2
		  AND (expires_at IS NULL OR expires_at > NOW())
		ORDER BY module_id ASC
	`

	rows, err := s.db.QueryContext(ctx, query, userID, companyID)
	if err != nil {
		return nil, fmt.Errorf("failed to list module grants: %w", err)
	}
	defer rows.Close()

	var grants []ModuleGrant
	for rows.Next() {
		var g ModuleGrant
		var restrictionsJSON []byte
		var expiresAt sql.NullTime
		if err := rows.Scan(
			&g.ID,
			&g.UserID,
			&g.CompanyID,
			&g.ModuleID,
			&restrictionsJSON,
			&g.GrantedBy,
			&expiresAt,
			&g.CreatedAt,
			&g.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan module grant: %w", err)
		}
		if len(restrictionsJSON) > 0 {
			if err := json.Unmarshal(restrictionsJSON, &g.Restrictions); err != nil {
				return nil, fmt.Errorf("failed to decode restrictions: %w", err)
			}
		}
		if expiresAt.Valid {
			g.ExpiresAt = &expiresAt.Time
		}
		grants = append(grants, g)
	}
	return grants, rows.Err()
}

// CountActiveModuleGrants counts users holding a non-expired grant for a
// module in a company. Feeds the licensed-vs-actual variance calculation.
func (s *Store) CountActiveModuleGrants(ctx context.Context, companyID, moduleID int64) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM user_module_grants
		WHERE company_id = $1 AND module_id = $2
		  AND (expires_at IS NULL OR expires_at > NOW())
	`

	var count int
	if err := s.db.QueryRowContext(ctx, query, companyID, moduleID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count module grants: %w", err)
	}
	return count, nil
}
