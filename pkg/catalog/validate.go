package catalog

import (
	"fmt"
	"regexp"
)

var permissionKeyPattern = regexp.MustCompile(`^[a-z][a-z0-9_]*(\.[a-z][a-z0-9_]*)+$`)

// ValidKey reports whether the key matches the "group.capability" format
func ValidKey(key string) bool {
	return permissionKeyPattern.MatchString(key)
}

// ValidateRequires checks a permission's prerequisite list against the rest
// of the catalog: no self-reference, no unknown keys, no cycle. The catalog
// argument maps every known permission key to its requires list, with the
// candidate's own entry included (or overridden) by the caller.
//
// Cycles are rejected at authoring time so grant-time checks can stay
// shallow: a permission can only be granted once its direct prerequisites
// are held, and those passed the same check when they were granted.
func ValidateRequires(key string, requires []string, catalog map[string][]string) error {
	for _, req := range requires {
		if req == key {
			return &ValidationError{Field: "requires", Message: fmt.Sprintf("%s requires itself", key)}
		}
		if _, known := catalog[req]; !known {
			return &ValidationError{Field: "requires", Message: fmt.Sprintf("%s requires unknown permission %s", key, req)}
		}
	}

	// Overlay the candidate's requires so edits are validated pre-commit
	graph := make(map[string][]string, len(catalog)+1)
	for k, v := range catalog {
		graph[k] = v
	}
	graph[key] = requires

	// DFS from the candidate through the declared graph
	const (
		inStack = 1
		done    = 2
	)
	state := make(map[string]int, len(graph))

	var visit func(k string) error
	visit = func(k string) error {
		switch state[k] {
		case inStack:
			return &ValidationError{Field: "requires", Message: fmt.Sprintf("prerequisite cycle through %s", k)}
		case done:
			return nil
		}
		state[k] = inStack
		for _, req := range graph[k] {
			if err := visit(req); err != nil {
				return err
			}
		}
		state[k] = done
		return nil
	}

	return visit(key)
}
