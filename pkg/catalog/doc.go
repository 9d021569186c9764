// Package catalog manages the permission, module, and template definitions
// that the entitlement engine resolves against.
//
// # Overview
//
// The catalog is the read-mostly half of the permission system: it defines
// WHAT capabilities exist, while pkg/grants records WHO holds them. Three
// entity kinds live here:
//
//   1. Permissions: named capabilities (key such as "reports.export") with a
//      display group, a foundation flag, a system flag, and an ordered list
//      of prerequisite keys.
//   2. Modules: provisionable bundles of permissions with a tier
//      (core/standard/premium) and default pricing in cents.
//   3. Templates: named bundles of permissions + modules applied in one
//      operation to a user.
//
// # Permission Keys
//
// Keys are dotted lowercase identifiers ("group.action" or deeper):
//
//	users.view
//	reports.export
//	analytics.advanced
//
// The requires list forms a directed acyclic graph over keys. Authoring
// operations (create, update, seed) reject self-references, unknown keys,
// and cycles:
//
//	err := catalog.ValidateRequires("reports.export", []string{"reports.view"}, graph)
//
// # Foundation and System Flags
//
// Foundation permissions resolve for every user regardless of module
// provisioning; they are the baseline capabilities of the product. System
// rows are managed by the seed file only: update and delete reject them
// with a ConflictError.
//
// # Store
//
// Store wraps *sql.DB with plain SQL:
//
//	store := catalog.NewStore(db)
//	perm, err := store.GetPermission(ctx, "reports.view")
//	perms, err := store.ListPermissions(ctx, catalog.PermissionFilter{Group: "reports"})
//
// Role default permission sets are data, not code: RoleDefaults(role) reads
// the role_defaults table so defaults can be changed without a deploy.
//
// # Seeding
//
// A YAML seed file (embedded default, optionally overridden on disk)
// defines the shipped catalog. Seeder.Apply upserts it transactionally,
// and Watcher re-applies it when the file changes:
//
//	seeder := catalog.NewSeeder(db, log)
//	if err := seeder.Apply(ctx, cfg.Catalog.SeedPath); err != nil { ... }
//	go catalog.NewWatcher(seeder, cfg.Catalog.SeedPath, log).Run(ctx)
//
// # Related Packages
//
//   - pkg/grants: per-tenant grant and provisioning state
//   - pkg/entitlement: effective permission resolution over catalog + grants
//   - pkg/provisioning: pricing derived from module definitions
package catalog
