package entitlement

import (
	"github.com/platinummonkey/backoffice/pkg/catalog"
)

// CheckDependencies returns every directly-declared prerequisite of perm
// that is absent from the held set. The check is intentionally not
// transitive: a held prerequisite passed this same check when it was
// granted, so enforcing the rule at every grant makes transitivity
// emergent rather than recomputed.
func CheckDependencies(perm *catalog.Permission, held map[string]bool) []string {
	var missing []string
	for _, req := range perm.Requires {
		if !held[req] {
			missing = append(missing, req)
		}
	}
	return missing
}
