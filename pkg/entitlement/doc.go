// Package entitlement is the core of the engine: dependency validation,
// effective permission resolution, and the grant/revoke orchestrator.
//
// # Resolution
//
// Resolver.Resolve merges three layers for a (user, company) pair:
//
//   1. Role defaults — the user's platform role expanded via the
//      role_defaults table, or the user's active custom role instead.
//   2. Direct data grants — non-expired rows; is_granted=false rows are
//      explicit denials that suppress the key from every source.
//   3. Module permissions — unlock sets of core-tier modules (always),
//      and of modules both provisioned for the company and granted to the
//      user. Foundation permissions bypass the gating entirely.
//
// Each key appears once, annotated with the highest-priority source that
// produced it (data > module > role). Super-admins resolve to the full
// catalog. Results are ordered by (group, key). Unknown users or companies
// are a NotFoundError, never an empty-but-successful result.
//
// There is deliberately no cache: every call re-reads current state, so
// a provisioning toggle is reflected on the next resolution with no
// invalidation machinery.
//
// # Dependency Checking
//
// CheckDependencies verifies only direct prerequisites at grant time.
// Transitivity is emergent: a prerequisite could only have been granted
// after passing the same check itself. Revocation never re-validates and
// never cascades.
//
// # Orchestration
//
// Service pairs every mutation with one audit record in a single
// transaction. Bulk grants process items sequentially in input order;
// business failures accumulate in an ordered error list while the rest of
// the batch proceeds, and infrastructure failures roll the whole
// transaction back. Template application reuses bulk-grant for the
// permission list and grants modules one by one, treating an
// unprovisioned module as a per-item error rather than a fatal one.
package entitlement
