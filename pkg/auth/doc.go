// Package auth defines the acting identity consumed by the entitlement
// engine and the tenant-scoping rules applied uniformly at the API boundary.
//
// The engine never issues tokens or sessions. An upstream gateway
// authenticates the caller and the identity middleware maps trusted headers
// to an Actor. Authorization here is intentionally narrow: a company admin
// operates within their own company, a super-admin anywhere, and a plain
// user may only read their own effective permissions. Denied cross-tenant
// lookups surface as "not found" so resource existence is never confirmed
// outside the caller's tenant.
package auth
