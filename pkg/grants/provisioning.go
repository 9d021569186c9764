package grants

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// UpsertProvisioning inserts or updates a company module provisioning record
func (s *Store) UpsertProvisioning(ctx context.Context, p *Provisioning) error {
	return s.upsertProvisioning(ctx, s.db, p)
}

// UpsertProvisioningTx is UpsertProvisioning inside an existing transaction
func (s *Store) UpsertProvisioningTx(ctx context.Context, tx *sql.Tx, p *Provisioning) error {
	return s.upsertProvisioning(ctx, tx, p)
}

func (s *Store) upsertProvisioning(ctx context.Context, q querier, p *Provisioning) error {
	if !p.PricingTier.Valid() {
		return &ValidationError{Field: "pricing_tier", Message: fmt.Sprintf("unknown pricing tier %q", p.PricingTier)}
	}
	if p.UsersLicensed < 0 {
		return &ValidationError{Field: "users_licensed", Message: "must not be negative"}
	}

	query := `
		INSERT INTO company_module_provisioning
			(company_id, module_id, pricing_tier, monthly_price_cents, per_user_price_cents, users_licensed, billing_notes, is_enabled, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $9)
		ON CONFLICT (company_id, module_id) DO UPDATE
		SET pricing_tier = EXCLUDED.pricing_tier,
		    monthly_price_cents = EXCLUDED.monthly_price_cents,
		    per_user_price_cents = EXCLUDED.per_user_price_cents,
		    users_licensed = EXCLUDED.users_licensed,
		    billing_notes = EXCLUDED.billing_notes,
		    is_enabled = EXCLUDED.is_enabled,
		    updated_at = EXCLUDED.updated_at
		RETURNING id, created_at
	`

	now := time.Now()
	err := q.QueryRowContext(ctx, query,
		p.CompanyID,
		p.ModuleID,
		p.PricingTier,
		p.MonthlyPriceCents,
		p.PerUserPriceCents,
		p.UsersLicensed,
		p.BillingNotes,
		p.IsEnabled,
		now,
	).Scan(&p.ID, &p.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert provisioning: %w", err)
	}

	p.UpdatedAt = now
	return nil
}

// GetProvisioning fetches the provisioning record for (company, module).
// Absence is a NotFoundError; callers decide whether core-tier implicit
// provisioning applies.
func (s *Store) GetProvisioning(ctx context.Context, companyID, moduleID int64) (*Provisioning, error) {
	query := `
		SELECT id, company_id, module_id, pricing_tier, monthly_price_cents, per_user_price_cents, users_licensed, billing_notes, is_enabled, created_at, updated_at
		FROM company_module_provisioning
		WHERE company_id = $1 AND module_id = $2
	`

	row := s.db.QueryRowContext(ctx, query, companyID, moduleID)
	p, err := scanProvisioning(row)
	if err == sql.ErrNoRows {
		return nil, &NotFoundError{Entity: "provisioning", ID: moduleID}
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

// ListCompanyProvisioning returns a company's provisioning records
func (s *Store) ListCompanyProvisioning(ctx context.Context, companyID int64, enabledOnly bool) ([]Provisioning, error) {
	query := `
		SELECT id, company_id, module_id, pricing_tier, monthly_price_cents, per_user_price_cents, users_licensed, billing_notes, is_enabled, created_at, updated_at
		FROM company_module_provisioning
		WHERE company_id = $1
		  AND ($2 = false OR is_enabled = true)
		ORDER BY module_id ASC
	`

	rows, err := s.db.QueryContext(ctx, query, companyID, enabledOnly)
	if err != nil {
		return nil, fmt.Errorf("failed to list provisioning: %w", err)
	}
	defer rows.Close()

	var records []Provisioning
	for rows.Next() {
		p, err := scanProvisioning(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *p)
	}
	return records, rows.Err()
}

func scanProvisioning(row rowScanner) (*Provisioning, error) {
	var p Provisioning
	var monthly, perUser sql.NullInt64
	var notes sql.NullString
	err := row.Scan(
		&p.ID,
		&p.CompanyID,
		&p.ModuleID,
		&p.PricingTier,
		&monthly,
		&perUser,
		&p.UsersLicensed,
		&notes,
		&p.IsEnabled,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan provisioning: %w", err)
	}

	if monthly.Valid {
		p.MonthlyPriceCents = &monthly.Int64
	}
	if perUser.Valid {
		p.PerUserPriceCents = &perUser.Int64
	}
	p.BillingNotes = notes.String
	return &p, nil
}
