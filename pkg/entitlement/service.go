package entitlement

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

// Service orchestrates grant and revoke operations. Every user-visible
// mutation commits together with exactly one audit record, or not at all.
type Service struct {
	catalog   CatalogStore
	grants    GrantStore
	companies CompanyStore
	audit     audit.Recorder
	metrics   *observability.Metrics
}

// NewService creates the orchestrator. metrics may be nil in tests.
func NewService(catalogStore CatalogStore, grantStore GrantStore, companyStore CompanyStore, recorder audit.Recorder, metrics *observability.Metrics) *Service {
	return &Service{
		catalog:   catalogStore,
		grants:    grantStore,
		companies: companyStore,
		audit:     recorder,
		metrics:   metrics,
	}
}

// Grant grants or explicitly denies one data permission. When granting,
// every directly-declared prerequisite must already be actively held;
// otherwise the operation aborts with a DependencyError listing all
// missing keys and no state changes.
func (s *Service) Grant(ctx context.Context, req GrantRequest) (*grants.DataPermissionGrant, error) {
	if err := s.authorize(req.Actor, req.CompanyID); err != nil {
		s.countGrant("grant", "denied")
		return nil, err
	}

	perm, err := s.catalog.GetPermission(ctx, req.PermissionKey)
	if err != nil {
		s.countGrant("grant", "error")
		return nil, err
	}

	if err := s.checkMembership(ctx, req.UserID, req.CompanyID); err != nil {
		s.countGrant("grant", "error")
		return nil, err
	}

	if req.IsGranted {
		held, err := s.grants.ActiveGrantKeys(ctx, req.UserID, req.CompanyID)
		if err != nil {
			return nil, err
		}
		if missing := CheckDependencies(perm, held); len(missing) > 0 {
			if s.metrics != nil {
				s.metrics.DependencyFailures.Inc()
			}
			s.countGrant("grant", "dependency_failure")
			return nil, &DependencyError{PermissionKey: req.PermissionKey, Missing: missing}
		}
	}

	oldState := s.snapshotDataGrant(ctx, req.UserID, req.CompanyID, req.PermissionKey)

	grant := &grants.DataPermissionGrant{
		UserID:        req.UserID,
		CompanyID:     req.CompanyID,
		PermissionKey: req.PermissionKey,
		IsGranted:     req.IsGranted,
		GrantedBy:     req.Actor.UserID,
		Reason:        req.Reason,
		ExpiresAt:     req.ExpiresAt,
	}

	action := audit.ActionPermissionGrant
	if !req.IsGranted {
		action = audit.ActionPermissionDeny
	}

	err = s.inTx(ctx, func(tx *sql.Tx) error {
		if err := s.grants.UpsertDataGrantTx(ctx, tx, grant); err != nil {
			return err
		}
		return s.audit.RecordTx(ctx, tx, &audit.Record{
			ActorID:    req.Actor.UserID,
			UserID:     &req.UserID,
			CompanyID:  req.CompanyID,
			EntityType: audit.EntityPermission,
			EntityKey:  req.PermissionKey,
			Action:     action,
			OldState:   oldState,
			NewState:   audit.Snapshot(grant),
			Reason:     req.Reason,
			RequestID:  contextkeys.RequestID(ctx),
		})
	})
	if err != nil {
		s.countGrant("grant", "error")
		return nil, err
	}

	s.countGrant("grant", "success")
	return grant, nil
}

// Revoke deletes a data permission grant row. Dependency validation is not
// run: revocation is shallow and never cascades to dependents.
func (s *Service) Revoke(ctx context.Context, req RevokeRequest) error {
	if err := s.authorize(req.Actor, req.CompanyID); err != nil {
		s.countGrant("revoke", "denied")
		return err
	}
	if err := s.checkMembership(ctx, req.UserID, req.CompanyID); err != nil {
		return err
	}

	old, err := s.grants.GetDataGrant(ctx, req.UserID, req.CompanyID, req.PermissionKey)
	if err != nil {
		var notFound *grants.NotFoundError
		if errors.As(err, &notFound) {
			return &NotFoundError{Entity: "grant", ID: req.UserID}
		}
		return err
	}

	err = s.inTx(ctx, func(tx *sql.Tx) error {
		if err := s.grants.DeleteDataGrantTx(ctx, tx, req.UserID, req.CompanyID, req.PermissionKey); err != nil {
			return err
		}
		return s.audit.RecordTx(ctx, tx, &audit.Record{
			ActorID:    req.Actor.UserID,
			UserID:     &req.UserID,
			CompanyID:  req.CompanyID,
			EntityType: audit.EntityPermission,
			EntityKey:  req.PermissionKey,
			Action:     audit.ActionPermissionRevoke,
			OldState:   audit.Snapshot(old),
			Reason:     req.Reason,
			RequestID:  contextkeys.RequestID(ctx),
		})
	})
	if err != nil {
		s.countGrant("revoke", "error")
		return err
	}

	s.countGrant("revoke", "success")
	return nil
}

// BulkGrant processes items sequentially in input order inside one
// transaction. Business failures (unknown key, unmet dependency) go into
// the ordered error list without aborting later items; already-succeeded
// items stay committed. Infrastructure errors roll back everything.
func (s *Service) BulkGrant(ctx context.Context, actor auth.Actor, userID, companyID int64, items []BulkItem, reason string) (*BulkResult, error) {
	if err := s.authorize(actor, companyID); err != nil {
		return nil, err
	}
	if err := s.checkMembership(ctx, userID, companyID); err != nil {
		return nil, err
	}

	held, err := s.grants.ActiveGrantKeys(ctx, userID, companyID)
	if err != nil {
		return nil, err
	}

	result := &BulkResult{}
	err = s.inTx(ctx, func(tx *sql.Tx) error {
		for i, item := range items {
			perm, err := s.catalog.GetPermission(ctx, item.PermissionKey)
			if err != nil {
				var notFound *catalog.NotFoundError
				if errors.As(err, &notFound) {
					result.recordFailure(i, item.PermissionKey, "unknown permission key")
					s.countBulkItem("unknown_key")
					continue
				}
				return err
			}

			if item.IsGranted {
				if missing := CheckDependencies(perm, held); len(missing) > 0 {
					result.recordFailure(i, item.PermissionKey,
						(&DependencyError{PermissionKey: item.PermissionKey, Missing: missing}).Error())
					s.countBulkItem("dependency_failure")
					continue
				}
			}

			grant := &grants.DataPermissionGrant{
				UserID:        userID,
				CompanyID:     companyID,
				PermissionKey: item.PermissionKey,
				IsGranted:     item.IsGranted,
				GrantedBy:     actor.UserID,
				Reason:        reason,
			}
			if err := s.grants.UpsertDataGrantTx(ctx, tx, grant); err != nil {
				return err
			}

			action := audit.ActionPermissionGrant
			if !item.IsGranted {
				action = audit.ActionPermissionDeny
			}
			if err := s.audit.RecordTx(ctx, tx, &audit.Record{
				ActorID:    actor.UserID,
				UserID:     &userID,
				CompanyID:  companyID,
				EntityType: audit.EntityPermission,
				EntityKey:  item.PermissionKey,
				Action:     action,
				NewState:   audit.Snapshot(grant),
				Reason:     reason,
				RequestID:  contextkeys.RequestID(ctx),
			}); err != nil {
				return err
			}

			// Later items in the batch may depend on earlier ones.
			if item.IsGranted {
				held[item.PermissionKey] = true
			} else {
				delete(held, item.PermissionKey)
			}
			result.Successful++
			s.countBulkItem("success")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// ApplyTemplate bulk-grants a template's permission keys, then grants each
// of its modules. A module failure (not provisioned, unknown) is a
// per-item error and never blocks the rest of the template.
func (s *Service) ApplyTemplate(ctx context.Context, actor auth.Actor, templateID, userID, companyID int64) (*TemplateResult, error) {
	if err := s.authorize(actor, companyID); err != nil {
		s.countTemplate("denied")
		return nil, err
	}

	tmpl, err := s.catalog.GetTemplate(ctx, templateID)
	if err != nil {
		s.countTemplate("error")
		return nil, err
	}

	items := make([]BulkItem, 0, len(tmpl.PermissionKeys))
	for _, key := range tmpl.PermissionKeys {
		items = append(items, BulkItem{PermissionKey: key, IsGranted: true})
	}

	reason := fmt.Sprintf("template %q applied", tmpl.Name)
	bulk, err := s.BulkGrant(ctx, actor, userID, companyID, items, reason)
	if err != nil {
		s.countTemplate("error")
		return nil, err
	}

	result := &TemplateResult{
		PermissionsGranted: bulk.Successful,
		Errors:             bulk.Errors,
	}

	for i, moduleID := range tmpl.ModuleIDs {
		err := s.GrantModule(ctx, ModuleGrantRequest{
			Actor:     actor,
			UserID:    userID,
			CompanyID: companyID,
			ModuleID:  moduleID,
			Reason:    reason,
		})
		if err != nil {
			if isBusinessError(err) {
				result.Errors = append(result.Errors, BulkError{
					Index:         len(items) + i,
					PermissionKey: fmt.Sprintf("module:%d", moduleID),
					Message:       err.Error(),
				})
				continue
			}
			s.countTemplate("error")
			return nil, err
		}
		result.ModulesGranted++
	}

	s.countTemplate("success")
	return result, nil
}

// GrantModule grants per-user module access. Non-core modules must be
// provisioned and enabled for the company first.
func (s *Service) GrantModule(ctx context.Context, req ModuleGrantRequest) error {
	if err := s.authorize(req.Actor, req.CompanyID); err != nil {
		return err
	}
	if err := s.checkMembership(ctx, req.UserID, req.CompanyID); err != nil {
		return err
	}

	module, err := s.catalog.GetModule(ctx, req.ModuleID)
	if err != nil {
		return err
	}
	if !module.IsActive {
		return &ConflictError{Message: fmt.Sprintf("module %s is inactive", module.Name)}
	}

	if module.Tier != catalog.TierCore {
		prov, err := s.grants.GetProvisioning(ctx, req.CompanyID, req.ModuleID)
		if err != nil {
			var notFound *grants.NotFoundError
			if errors.As(err, &notFound) {
				return &ConflictError{Message: fmt.Sprintf("module %s is not provisioned for company %d", module.Name, req.CompanyID)}
			}
			return err
		}
		if !prov.IsEnabled {
			return &ConflictError{Message: fmt.Sprintf("module %s is disabled for company %d", module.Name, req.CompanyID)}
		}
	}

	grant := &grants.ModuleGrant{
		UserID:       req.UserID,
		CompanyID:    req.CompanyID,
		ModuleID:     req.ModuleID,
		Restrictions: req.Restrictions,
		GrantedBy:    req.Actor.UserID,
		ExpiresAt:    req.ExpiresAt,
	}

	err = s.inTx(ctx, func(tx *sql.Tx) error {
		if err := s.grants.UpsertModuleGrantTx(ctx, tx, grant); err != nil {
			return err
		}
		return s.audit.RecordTx(ctx, tx, &audit.Record{
			ActorID:    req.Actor.UserID,
			UserID:     &req.UserID,
			CompanyID:  req.CompanyID,
			EntityType: audit.EntityModule,
			EntityKey:  module.Name,
			Action:     audit.ActionModuleGrant,
			NewState:   audit.Snapshot(grant),
			Reason:     req.Reason,
			RequestID:  contextkeys.RequestID(ctx),
		})
	})
	if err != nil {
		s.countGrant("module_grant", "error")
		return err
	}

	s.countGrant("module_grant", "success")
	return nil
}

// RevokeModule removes per-user module access
func (s *Service) RevokeModule(ctx context.Context, req ModuleGrantRequest) error {
	if err := s.authorize(req.Actor, req.CompanyID); err != nil {
		return err
	}
	if err := s.checkMembership(ctx, req.UserID, req.CompanyID); err != nil {
		return err
	}

	module, err := s.catalog.GetModule(ctx, req.ModuleID)
	if err != nil {
		return err
	}

	err = s.inTx(ctx, func(tx *sql.Tx) error {
		if err := s.grants.DeleteModuleGrantTx(ctx, tx, req.UserID, req.CompanyID, req.ModuleID); err != nil {
			return err
		}
		return s.audit.RecordTx(ctx, tx, &audit.Record{
			ActorID:    req.Actor.UserID,
			UserID:     &req.UserID,
			CompanyID:  req.CompanyID,
			EntityType: audit.EntityModule,
			EntityKey:  module.Name,
			Action:     audit.ActionModuleRevoke,
			Reason:     req.Reason,
			RequestID:  contextkeys.RequestID(ctx),
		})
	})
	if err != nil {
		var notFound *grants.NotFoundError
		if errors.As(err, &notFound) {
			return &NotFoundError{Entity: "module grant", ID: req.ModuleID}
		}
		s.countGrant("module_revoke", "error")
		return err
	}

	s.countGrant("module_revoke", "success")
	return nil
}

func (s *Service) authorize(actor auth.Actor, companyID int64) error {
	if !actor.CanManageCompany(companyID) {
		return &AuthorizationError{Message: "actor may not manage this company"}
	}
	return nil
}

func (s *Service) checkMembership(ctx context.Context, userID, companyID int64) error {
	belongs, err := s.companies.UserBelongsTo(ctx, userID, companyID)
	if err != nil {
		return err
	}
	if !belongs {
		return &NotFoundError{Entity: "user", ID: userID}
	}
	return nil
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

func (s *Service) snapshotDataGrant(ctx context.Context, userID, companyID int64, key string) []byte {
	old, err := s.grants.GetDataGrant(ctx, userID, companyID, key)
	if err != nil {
		return nil
	}
	return audit.Snapshot(old)
}

func (s *Service) countGrant(operation, status string) {
	if s.metrics != nil {
		s.metrics.GrantsTotal.WithLabelValues(operation, status).Inc()
	}
}

func (s *Service) countBulkItem(status string) {
	if s.metrics != nil {
		s.metrics.BulkItemsTotal.WithLabelValues(status).Inc()
	}
}

func (s *Service) countTemplate(status string) {
	if s.metrics != nil {
		s.metrics.TemplateAppliesTotal.WithLabelValues(status).Inc()
	}
}

func (r *BulkResult) recordFailure(index int, key, message string) {
	r.Failed++
	r.Errors = append(r.Errors, BulkError{Index: index, PermissionKey: key, Message: message})
}

func isBusinessError(err error) bool {
	var conflict *ConflictError
	var notFound *NotFoundError
	var catalogNotFound *catalog.NotFoundError
	var grantsNotFound *grants.NotFoundError
	return errors.As(err, &conflict) ||
		errors.As(err, &notFound) ||
		errors.As(err, &catalogNotFound) ||
		errors.As(err, &grantsNotFound)
}
