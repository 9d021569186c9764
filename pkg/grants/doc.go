// Package grants stores the per-tenant mutable half of the permission
// system: data permission grants (including explicit denials), per-user
// module grants, company module provisioning, and custom roles.
//
// # Grant Semantics
//
// A DataPermissionGrant with IsGranted true adds a capability; with
// IsGranted false it is an explicit denial that suppresses the key no
// matter which other source (role default, module) would grant it. Expired
// rows (expires_at in the past) are logically absent: every list/lookup
// used for resolution filters them in SQL.
//
// Upserts use ON CONFLICT so re-granting an existing triple is idempotent,
// and concurrent grants of the same (user, company, permission) serialize
// on the unique index rather than application-level locking.
//
// # Transactions
//
// Every mutating operation has a ...Tx variant taking *sql.Tx. The
// entitlement orchestrator uses these to pair each grant mutation with its
// audit record in a single transaction: both commit or neither does.
//
// # Custom Roles
//
// Custom roles are soft-deleted (is_active flag) so audit history remains
// reconstructable. Assignment is one active custom role per (user,
// company); GetActiveCustomRole returns nil rather than an error when no
// assignment exists, because falling back to standard role defaults is the
// normal path, not a failure.
//
// # Sweeping
//
// DeleteExpiredGrants hard-deletes rows whose expiry passed before a
// cutoff. The resolver never sees expired rows either way; the sweep just
// keeps the tables from growing without bound.
package grants
