package normalize

import (
	"sort"
	"sync"

	"genbridge/internal/catalog"
)

// Rule is one model's dedicated validator. It runs after aliases, whitelist,
// shapes, and defaults, and before the required-group check. A rule may
// coerce, canonicalize, clamp, and clear fields in place; it returns the
// first violated constraint (a *ValidationError) or nil. Rules must not
// carry state across calls.
type Rule func(spec *catalog.ModelSpec, mode *catalog.Mode, p Payload) error

var (
	rulesMu sync.RWMutex
	rules   = make(map[string]Rule)
)

// RegisterRule wires a validator into the dispatch table under an exact model
// id. It is meant to be called from init functions in the rules package; a
// later registration for the same id replaces the earlier one.
func RegisterRule(modelID string, rule Rule) {
	rulesMu.Lock()
	defer rulesMu.Unlock()
	rules[modelID] = rule
}

// LookupRule returns the validator registered for the exact model id. Lookup
// is a map access; no scanning.
func LookupRule(modelID string) (Rule, bool) {
	rulesMu.RLock()
	defer rulesMu.RUnlock()
	r, ok := rules[modelID]
	return r, ok
}

// RuleModels returns the sorted ids that have a registered validator.
func RuleModels() []string {
	rulesMu.RLock()
	defer rulesMu.RUnlock()
	ids := make([]string, 0, len(rules))
	for id := range rules {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
