package grants

import (
	"context"
	"database/sql"
	"fmt"
)

// Migration represents a database migration
type Migration struct {
	Version     int
	Description string
	SQL         string
}

// GetMigrations returns all grant-store migrations
func GetMigrations() []Migration {
	return []Migration{
		{
			Version:     1,
			Description: "Create user_data_permission_grants table",
			SQL: `
				CREATE TABLE IF NOT EXISTS user_data_permission_grants (
					id BIGSERIAL PRIMARY KEY,
					user_id BIGINT NOT NULL,
					company_id BIGINT NOT NULL,
					permission_key VARCHAR(255) NOT NULL,
					is_granted BOOLEAN NOT NULL DEFAULT TRUE,
					granted_by BIGINT NOT NULL,
					reason TEXT,
					expires_at TIMESTAMP,
					last_used_at TIMESTAMP,
					created_at TIMESTAMP NOT NULL DEFAULT NOW(),
					updated_at TIMESTAMP NOT NULL DEFAULT NOW(),
					UNIQUE(user_id, company_id, permission_key)
				);

				CREATE INDEX idx_data_grants_user_company ON user_data_permission_grants(user_id, company_id);
				CREATE INDEX idx_data_grants_permission_key ON user_data_permission_grants(permission_key);
				CREATE INDEX idx_data_grants_expires_at ON user_data_permission_grants(expires_at) WHERE expires_at IS NOT NULL;
			`,
		},
		{
			Version:     2,
			Description: "Create user_module_grants table",
			SQL: `
				CREATE TABLE IF NOT EXISTS user_module_grants (
					id BIGSERIAL PRIMARY KEY,
					user_id BIGINT NOT NULL,
					company_id BIGINT NOT NULL,
					module_id BIGINT NOT NULL,
					restrictions JSONB NOT NULL DEFAULT '{}',
					granted_by BIGINT NOT NULL,
					expires_at TIMESTAMP,
					created_at TIMESTAMP NOT NULL DEFAULT NOW(),
					updated_at TIMESTAMP NOT NULL DEFAULT NOW(),
					UNIQUE(user_id, company_id, module_id)
				);

				CREATE INDEX idx_module_grants_user_company ON user_module_grants(user_id, company_id);
				CREATE INDEX idx_module_grants_company_module ON user_module_grants(company_id, module_id);
				CREATE INDEX idx_module_grants_expires_at ON user_module_grants(expires_at) WHERE expires_at IS NOT NULL;
			`,
		},
		{
			Version:     3,
			Description: "Create company_module_provisioning table",
			SQL: `
				CREATE TABLE IF NOT EXISTS company_module_provisioning (
					id BIGSERIAL PRIMARY KEY,
					company_id BIGINT NOT NULL,
					module_id BIGINT NOT NULL,
					pricing_tier VARCHAR(50) NOT NULL DEFAULT 'standard',
					monthly_price_cents BIGINT,
					per_user_price_cents BIGINT,
					users_licensed INT NOT NULL DEFAULT 0,
					billing_notes TEXT,
					is_enabled BOOLEAN NOT NULL DEFAULT TRUE,
					created_at TIMESTAMP NOT NULL DEFAULT NOW(),
					updated_at TIMESTAMP NOT NULL DEFAULT NOW(),
					UNIQUE(company_id, module_id)
				);

				CREATE INDEX idx_provisioning_company ON company_module_provisioning(company_id);
			`,
		},
		{
			Version:     4,
			Description: "Create custom_roles and user_custom_roles tables",
			SQL: `
				CREATE TABLE IF NOT EXISTS custom_roles (
					id BIGSERIAL PRIMARY KEY,
					company_id BIGINT NOT NULL,
					name VARCHAR(255) NOT NULL,
					permission_keys JSONB NOT NULL DEFAULT '[]',
					is_active BOOLEAN NOT NULL DEFAULT TRUE,
					created_at TIMESTAMP NOT NULL DEFAULT NOW(),
					updated_at TIMESTAMP NOT NULL DEFAULT NOW(),
					UNIQUE(company_id, name)
				);

				CREATE TABLE IF NOT EXISTS user_custom_roles (
					user_id BIGINT NOT NULL,
					company_id BIGINT NOT NULL,
					custom_role_id BIGINT NOT NULL REFERENCES custom_roles(id) ON DELETE CASCADE,
					assigned_at TIMESTAMP NOT NULL DEFAULT NOW(),
					PRIMARY KEY (user_id, company_id)
				);

				CREATE INDEX idx_custom_roles_company ON custom_roles(company_id);
			`,
		},
	}
}

// RunMigrations executes all pending migrations
func RunMigrations(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS grants_migrations (
			version INT PRIMARY KEY,
			description TEXT NOT NULL,
			applied_at TIMESTAMP NOT NULL DEFAULT NOW()
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	rows, err := db.QueryContext(ctx, "SELECT version FROM grants_migrations ORDER BY version")
	if err != nil {
		return fmt.Errorf("failed to query migrations: %w", err)
	}

	appliedVersions := make(map[int]bool)
	for rows.Next() {
		var version int
		if err := rows.Scan(&version); err != nil {
			rows.Close()
			return fmt.Errorf("failed to scan migration version: %w", err)
		}
		appliedVersions[version] = true
	}
	rows.Close()

	for _, migration := range GetMigrations() {
		if appliedVersions[migration.Version] {
			continue
		}

		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("failed to start transaction: %w", err)
		}

		if _, err := tx.ExecContext(ctx, migration.SQL); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to execute migration %d: %w", migration.Version, err)
		}

		if _, err := tx.ExecContext(ctx,
			"INSERT INTO grants_migrations (version, description) VALUES ($1, $2)",
			migration.Version, migration.Description,
		); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to record migration %d: %w", migration.Version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit migration %d: %w", migration.Version, err)
		}
	}

	return nil
}
