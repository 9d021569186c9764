package provisioning

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/platinummonkey/backoffice/pkg/audit"
	"github.com/platinummonkey/backoffice/pkg/auth"
	"github.com/platinummonkey/backoffice/pkg/catalog"
	"github.com/platinummonkey/backoffice/pkg/contextkeys"
	"github.com/platinummonkey/backoffice/pkg/grants"
	"github.com/platinummonkey/backoffice/pkg/observability"
)

// CatalogStore is the module catalog surface the service needs
type CatalogStore interface {
	GetModule(ctx context.Context, moduleID int64) (*catalog.Module, error)
}

// GrantStore is the provisioning storage surface the service needs
type GrantStore interface {
	DB() *sql.DB
	UpsertProvisioningTx(ctx context.Context, tx *sql.Tx, p *grants.Provisioning) error
	GetProvisioning(ctx context.Context, companyID, moduleID int64) (*grants.Provisioning, error)
	ListCompanyProvisioning(ctx context.Context, companyID int64, enabledOnly bool) ([]grants.Provisioning, error)
	CountActiveModuleGrants(ctx context.Context, companyID, moduleID int64) (int, error)
}

// ProvisionRequest describes one provisioning change
type ProvisionRequest struct {
	Actor             auth.Actor
	CompanyID         int64
	ModuleID          int64
	PricingTier       grants.PricingTier
	MonthlyPriceCents *int64
	PerUserPriceCents *int64
	UsersLicensed     int
	BillingNotes      string
	IsEnabled         bool
	Reason            string
}

// Service applies provisioning changes and computes company costs
type Service struct {
	catalog CatalogStore
	grants  GrantStore
	audit   audit.Recorder
	metrics *observability.Metrics
}

// NewService creates the provisioning service. metrics may be nil in tests.
func NewService(catalogStore CatalogStore, grantStore GrantStore, recorder audit.Recorder, metrics *observability.Metrics) *Service {
	return &Service{
		catalog: catalogStore,
		grants:  grantStore,
		audit:   recorder,
		metrics: metrics,
	}
}

// Provision upserts a company's provisioning record for a module and writes
// the audit record in the same transaction. Core-tier modules are
// implicitly provisioned and cannot be disabled. Disabling a module leaves
// per-user grants in place; re-enabling restores their effect.
func (s *Service) Provision(ctx context.Context, req ProvisionRequest) (*grants.Provisioning, error) {
	if !req.Actor.CanManageCompany(req.CompanyID) {
		s.count("denied")
		return nil, &AuthorizationError{Message: "actor may not provision for this company"}
	}
	if !req.PricingTier.Valid() {
		return nil, &ValidationError{Field: "pricing_tier", Message: fmt.Sprintf("unknown tier %q", req.PricingTier)}
	}
	if req.UsersLicensed < 0 {
		return nil, &ValidationError{Field: "users_licensed", Message: "must not be negative"}
	}

	module, err := s.catalog.GetModule(ctx, req.ModuleID)
	if err != nil {
		var notFound *catalog.NotFoundError
		if errors.As(err, &notFound) {
			return nil, &NotFoundError{Entity: "module", ID: req.ModuleID}
		}
		return nil, err
	}
	if module.Tier == catalog.TierCore && !req.IsEnabled {
		s.count("conflict")
		return nil, &ConflictError{Message: fmt.Sprintf("core module %s cannot be disabled", module.Name)}
	}

	var oldState []byte
	if old, err := s.grants.GetProvisioning(ctx, req.CompanyID, req.ModuleID); err == nil {
		oldState = audit.Snapshot(old)
	}

	prov := &grants.Provisioning{
		CompanyID:         req.CompanyID,
		ModuleID:          req.ModuleID,
		PricingTier:       req.PricingTier,
		MonthlyPriceCents: req.MonthlyPriceCents,
		PerUserPriceCents: req.PerUserPriceCents,
		UsersLicensed:     req.UsersLicensed,
		BillingNotes:      req.BillingNotes,
		IsEnabled:         req.IsEnabled,
	}

	err = s.inTx(ctx, func(tx *sql.Tx) error {
		if err := s.grants.UpsertProvisioningTx(ctx, tx, prov); err != nil {
			return err
		}
		return s.audit.RecordTx(ctx, tx, &audit.Record{
			ActorID:    req.Actor.UserID,
			CompanyID:  req.CompanyID,
			EntityType: audit.EntityProvisioning,
			EntityKey:  module.Name,
			Action:     audit.ActionModuleProvision,
			OldState:   oldState,
			NewState:   audit.Snapshot(prov),
			Reason:     req.Reason,
			RequestID:  contextkeys.RequestID(ctx),
		})
	})
	if err != nil {
		s.count("error")
		return nil, err
	}

	s.count("success")
	return prov, nil
}

// CompanyCosts computes the per-module cost lines and summary for one
// company. Actual costs price active module grants instead of licensed
// seats; the numbers are informational and never gate a grant.
func (s *Service) CompanyCosts(ctx context.Context, companyID int64) (*CostSummary, error) {
	provs, err := s.grants.ListCompanyProvisioning(ctx, companyID, false)
	if err != nil {
		return nil, err
	}

	summary := &CostSummary{CompanyID: companyID, Lines: make([]CostLine, 0, len(provs))}
	for i := range provs {
		prov := &provs[i]
		module, err := s.catalog.GetModule(ctx, prov.ModuleID)
		if err != nil {
			return nil, err
		}
		active, err := s.grants.CountActiveModuleGrants(ctx, companyID, prov.ModuleID)
		if err != nil {
			return nil, err
		}

		line := CostLine{
			ModuleID:          module.ID,
			ModuleName:        module.Name,
			Tier:              module.Tier,
			PricingTier:       prov.PricingTier,
			IsEnabled:         prov.IsEnabled,
			UsersLicensed:     prov.UsersLicensed,
			ActiveUsers:       active,
			LicensedCostCents: MonthlyCostCents(module, prov, prov.UsersLicensed),
			ActualCostCents:   MonthlyCostCents(module, prov, active),
		}
		summary.Lines = append(summary.Lines, line)
		// Disabled modules stay visible as lines but cost nothing.
		if !prov.IsEnabled {
			continue
		}
		summary.LicensedCostCents += line.LicensedCostCents
		summary.ActualCostCents += line.ActualCostCents
		summary.VarianceUsers += active - prov.UsersLicensed
	}
	summary.VarianceCents = summary.ActualCostCents - summary.LicensedCostCents
	return summary, nil
}

func (s *Service) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.grants.DB().BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (s *Service) count(status string) {
	if s.metrics != nil {
		s.metrics.ProvisioningChangesTotal.WithLabelValues(status).Inc()
	}
}
