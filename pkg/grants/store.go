package grants

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// querier is satisfied by both *sql.DB and *sql.Tx so the orchestrator can
// run grant mutations inside a transaction alongside the audit insert.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// Store handles grant persistence
type Store struct {
	db *sql.DB
}

// NewStore creates a new grant store
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// DB exposes the underlying handle for transaction control
func (s *Store) DB() *sql.DB {
	return s.db
}

// UpsertDataGrant inserts or updates a data permission grant. Re-granting
// an existing (user, company, permission) triple is an idempotent update.
func (s *Store) UpsertDataGrant(ctx context.Context, grant *DataPermissionGrant) error {
	return s.upsertDataGrant(ctx, s.db, grant)
}

// UpsertDataGrantTx is UpsertDataGrant inside an existing transaction
func (s *Store) UpsertDataGrantTx(ctx context.Context, tx *sql.Tx, grant *DataPermissionGrant) error {
	return s.upsertDataGrant(ctx, tx, grant)
}

func (s *Store) upsertDataGrant(ctx context.Context, q querier, grant *DataPermissionGrant) error {
	query := `
		INSERT INTO user_data_permission_grants
			(user_id, company_id, permission_key, is_granted, granted_by, reason, expires_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)
		ON CONFLICT (user_id, company_id, permission_key) DO UPDATE
		SET is_granted = EXCLUDED.is_granted,
		    granted_by = EXCLUDED.granted_by,
		    reason = EXCLUDED.reason,
		    expires_at = EXCLUDED.expires_at,
		    updated_at = EXCLUDED.updated_at
		RETURNING id, created_at
	`

	now := time.Now()
	err := q.QueryRowContext(ctx, query,
		grant.UserID,
		grant.CompanyID,
		grant.PermissionKey,
		grant.IsGranted,
		grant.GrantedBy,
		grant.Reason,
		grant.ExpiresAt,
		now,
	).Scan(&grant.ID, &grant.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert data grant: %w", err)
	}

	grant.UpdatedAt = now
	return nil
}

// DeleteDataGrant removes a data permission grant row entirely
func (s *Store) DeleteDataGrant(ctx context.Context, userID, companyID int64, permissionKey string) error {
	return s.deleteDataGrant(ctx, s.db, userID, companyID, permissionKey)
}

// DeleteDataGrantTx is DeleteDataGrant inside an existing transaction
func (s *Store) DeleteDataGrantTx(ctx context.Context, tx *sql.Tx, userID, companyID int64, permissionKey string) error {
	return s.deleteDataGrant(ctx, tx, userID, companyID, permissionKey)
}

func (s *Store) deleteDataGrant(ctx context.Context, q querier, userID, companyID int64, permissionKey string) error {
	result, err := q.ExecContext(ctx,
		`DELETE FROM user_data_permission_grants WHERE user_id = $1 AND company_id = $2 AND permission_key = $3`,
		userID, companyID, permissionKey,
	)
	if err != nil {
		return fmt.Errorf("failed to delete data grant: %w", err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return &NotFoundError{Entity: "data grant", ID: userID}
	}
	return nil
}

// ListUserDataGrants returns all non-expired data grants for a user in a
// company, denials included.
func (s *Store) ListUserDataGrants(ctx context.Context, userID, companyID int64) ([]DataPermissionGrant, error) {
	query := `
		SELECT id, user_id, company_id, permission_key, is_granted, granted_by, reason, expires_at, last_used_at, created_at, updated_at
		FROM user_data_permission_grants
		WHERE user_id = $1 AND company_id = $2
		  AND (expires_at IS NULL OR expires_at > NOW())
		ORDER BY permission_key ASC
	`

	rows, err := s.db.QueryContext(ctx, query, userID, companyID)
	if err != nil {
		return nil, fmt.Errorf("failed to list data grants: %w", err)
	}
	defer rows.Close()

	var grants []DataPermissionGrant
	for rows.Next() {
		g, err := scanDataGrant(rows)
		if err != nil {
			return nil, err
		}
		grants = append(grants, *g)
	}
	return grants, rows.Err()
}

// ActiveGrantKeys returns the permission keys actively granted (non-expired,
// is_granted true) to a user in a company. Input to dependency validation.
func (s *Store) ActiveGrantKeys(ctx context.Context, userID, companyID int64) (map[string]bool, error) {
	query := `
		SELECT permission_key
		FROM user_data_permission_grants
		WHERE user_id = $1 AND company_id = $2
		  AND is_granted = TRUE
		  AND (expires_at IS NULL OR expires_at > NOW())
	`

	rows, err := s.db.QueryContext(ctx, query, userID, companyID)
	if err != nil {
		return nil, fmt.Errorf("failed to load active grant keys: %w", err)
	}
	defer rows.Close()

	keys := make(map[string]bool)
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("failed to scan grant key: %w", err)
		}
		keys[key] = true
	}
	return keys, rows.Err()
}

// GetDataGrant fetches one grant row regardless of expiry, for audit
// snapshots.
func (s *Store) GetDataGrant(ctx context.Context, userID, companyID int64, permissionKey string) (*DataPermissionGrant, error) {
	query := `
		SELECT id, user_id, company_id, permission_key, is_granted, granted_by, reason, expires_at, last_used_at, created_at, updated_at
		FROM user_data_permission_grants
		WHERE user_id = $1 AND company_id = $2 AND permission_key = $3
	`

	row := s.db.QueryRowContext(ctx, query, userID, companyID, permissionKey)
	g, err := scanDataGrant(row)
	if err == sql.ErrNoRows {
		return nil, &NotFoundError{Entity: "data grant", ID: userID}
	}
	if err != nil {
		return nil, err
	}
	return g, nil
}

// TouchLastUsed records use-time bookkeeping for a granted permission
func (s *Store) TouchLastUsed(ctx context.Context, userID, companyID int64, permissionKey string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE user_data_permission_grants SET last_used_at = NOW() WHERE user_id = $1 AND company_id = $2 AND permission_key = $3`,
		userID, companyID, permissionKey,
	)
	if err != nil {
		return fmt.Errorf("failed to touch last used: %w", err)
	}
	return nil
}

// DeleteExpiredGrants hard-deletes data and module grants that expired
// before the cutoff. Used by the sweeper.
func (s *Store) DeleteExpiredGrants(ctx context.Context, before time.Time) (int64, error) {
	var total int64

	result, err := s.db.ExecContext(ctx,
		`DELETE FROM user_data_permission_grants WHERE expires_at IS NOT NULL AND expires_at < $1`, before)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired data grants: %w", err)
	}
	if n, err := result.RowsAffected(); err == nil {
		total += n
	}

	result, err = s.db.ExecContext(ctx,
		`DELETE FROM user_module_grants WHERE expires_at IS NOT NULL AND expires_at < $1`, before)
	if err != nil {
		return total, fmt.Errorf("failed to delete expired module grants: %w", err)
	}
	if n, err := result.RowsAffected(); err == nil {
		total += n
	}

	return total, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanDataGrant(row rowScanner) (*DataPermissionGrant, error) {
	var g DataPermissionGrant
	var reason sql.NullString
	var expiresAt, lastUsedAt sql.NullTime
	err := row.Scan(
		&g.ID,
		&g.UserID,
		&g.CompanyID,
		&g.PermissionKey,
		&g.IsGranted,
		&g.GrantedBy,
		&reason,
		&expiresAt,
		&lastUsedAt,
		&g.CreatedAt,
		&g.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan data grant: %w", err)
	}

	g.Reason = reason.String
	if expiresAt.Valid {
		g.ExpiresAt = &expiresAt.Time
	}
	if lastUsedAt.Valid {
		g.LastUsedAt = &lastUsedAt.Time
	}
	return &g, nil
}
