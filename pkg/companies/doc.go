// Package companies provides the tenant boundary: companies and the users
// that belong to them. The entitlement engine consults it to validate that
// a grant targets a user inside the company scope it names, and to signal
// "not found" for unknown identities instead of resolving a partial set.
package companies
