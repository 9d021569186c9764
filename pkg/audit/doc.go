// Package audit provides the append-only change log for the entitlement
// engine.
//
// Every user-visible mutation in the grant store (grant, revoke, provision,
// template apply, custom role change) produces exactly one Record, written
// in the same database transaction as the mutation: both commit or neither
// does. The Recorder interface exposes RecordTx for that purpose; Record
// exists for callers without a surrounding transaction.
//
// Records carry before/after JSON snapshots (OldState, NewState) so "who
// changed what, when, why" can be reconstructed without consulting the
// mutated tables. They are never updated or deleted through the API;
// Cleanup trims rows past the retention window and is the only delete
// path, driven by the sweeper.
//
// Search filters by actor, affected user, company, entity, action, and
// time range with offset pagination, newest first. Export encodes a
// filtered page as JSON, NDJSON, or CSV.
package audit
