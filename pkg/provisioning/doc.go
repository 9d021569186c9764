// Package provisioning manages company-level module provisioning and the
// pricing math that goes with it.
//
// # Provisioning
//
// Provisioning a module for a company makes that module eligible for
// per-user grants and visible to permission resolution. Core-tier modules
// are always on and cannot be disabled; standard and premium modules must
// be provisioned (and enabled) before any per-user module grant takes
// effect. Disabling a provisioned module does not delete per-user grants:
// resolution simply stops surfacing the module's permissions, and
// re-enabling restores them.
//
// Every provisioning change commits together with an audit record in the
// same transaction.
//
// # Pricing
//
// All prices are integer cents. Each module carries default base and
// per-user prices; a provisioning record may override either. The monthly
// cost of a module for a company is
//
//	effective base + effective per-user price × licensed users
//
// CompanyCosts produces one line per provisioned module plus a summary
// comparing licensed seat counts against actual active module grants. The
// variance is informational only and never blocks a grant.
package provisioning
