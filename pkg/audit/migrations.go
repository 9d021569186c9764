package audit

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

// GetMigrations returns all audit migrations
func GetMigrations() []Migration {
	return []Migration{
		{
			Version:     1,
			Description: "Create audit_records table",
			SQL: `
				CREATE TABLE IF NOT EXISTS audit_records (
					id BIGSERIAL PRIMARY KEY,
					actor_id BIGINT NOT NULL,
					user_id BIGINT,
					company_id BIGINT NOT NULL,
					entity_type VARCHAR(50) NOT NULL,
					entity_key VARCHAR(255) NOT NULL,
					action VARCHAR(100) NOT NULL,
					old_state JSONB,
					new_state JSONB,
					reason TEXT,
					request_id VARCHAR(64),
					created_at TIMESTAMP NOT NULL DEFAULT NOW()
				);

				CREATE INDEX idx_audit_records_actor ON audit_records(actor_id);
				CREATE INDEX idx_audit_records_user ON audit_records(user_id) WHERE user_id IS NOT NULL;
				CREATE INDEX idx_audit_records_company ON audit_records(company_id);
				CREATE INDEX idx_audit_records_created_at ON audit_records(created_at);
				CREATE INDEX idx_audit_records_entity ON audit_records(entity_type, entity_key);
			`,
		},
	}
}

// RunMigrations executes all pending migrations
func RunMigrations(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS audit_migrations (
			version INT PRIMARY KEY,
			description TEXT NOT NULL,
			applied_at TIMESTAMP NOT NULL DEFAULT NOW()
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	rows, err := db.QueryContext(ctx, "SELECT version FROM audit_migrations ORDER BY version")
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
			"INSERT INTO audit_migrations (version, description) VALUES ($1, $2)",
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
