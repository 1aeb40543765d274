// Package normalize turns loosely-typed, alias-ridden user input into a
// payload that exactly satisfies one model's input contract. Normalization is
// a pure function of (model spec, selected mode, raw input): the same three
// inputs always produce the same payload, so callers may cache or replay
// results freely. Fields whose spec declares a sentinel default (for example
// seed -1 meaning "provider picks") keep the sentinel; resolving it is the
// provider's job.
package normalize

import (
	"encoding/json"
	"sort"
	"strings"

	"genbridge/internal/catalog"
)

// Payload is a normalized request body: canonical field names mapped to
// provider-ready values. encoding/json writes object keys in sorted order, so
// Encode is the payload's canonical byte form.
type Payload map[string]any

// Clone returns a shallow copy.
func (p Payload) Clone() Payload {
	out := make(Payload, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// Encode marshals the payload into its canonical JSON form.
func (p Payload) Encode() ([]byte, error) {
	return json.Marshal(p)
}

// Normalize validates raw user input against the model's contract and returns
// the payload to hand to the gateway. It applies, in order: alias resolution,
// whitelist filtering, scalar/list shape adaptation, defaults (spec-declared
// first, then tokens scraped from the mode's free text), the model's dedicated
// validator when one is registered, and finally the required-group check. The
// first violated constraint aborts the run with a *ValidationError.
func Normalize(spec *catalog.ModelSpec, mode *catalog.Mode, raw map[string]any) (Payload, error) {
	p := resolveAliases(raw)
	dropUnknown(spec, p)
	adaptShapes(spec, p)
	fillDefaults(spec, mode, p)
	if rule, ok := LookupRule(spec.ID); ok {
		if err := rule(spec, mode, p); err != nil {
			return nil, err
		}
	}
	if err := checkRequiredGroups(spec, p); err != nil {
		return nil, err
	}
	return p, nil
}

// resolveAliases rewrites historical input names onto canonical field names.
// Raw keys are visited in sorted order so the outcome never depends on map
// iteration; a canonical key always beats any alias, and between two aliases
// for the same field the lexicographically first raw key wins.
func resolveAliases(raw map[string]any) Payload {
	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	p := make(Payload, len(raw))
	for _, k := range keys {
		canonical, isAlias := CanonicalName(k)
		if isAlias {
			if _, direct := raw[canonical]; direct {
				continue
			}
			if _, taken := p[canonical]; taken {
				continue
			}
		}
		p[canonical] = raw[k]
	}
	return p
}

// dropUnknown removes every key the spec does not declare. Unrecognized input
// is discarded, never forwarded to the provider.
func dropUnknown(spec *catalog.ModelSpec, p Payload) {
	for k := range p {
		if spec.Field(k) == nil {
			delete(p, k)
		}
	}
}

// adaptShapes reconciles list-vs-scalar mismatches between what the user sent
// and what the spec declares: a list handed to a scalar field collapses to its
// first element (an empty list counts as absent), and a scalar handed to an
// array field is wrapped into a one-element list.
func adaptShapes(spec *catalog.ModelSpec, p Payload) {
	for name, v := range p {
		f := spec.Field(name)
		list, isList := asList(v)
		switch {
		case f.Type == catalog.FieldArray && !isList:
			p[name] = []any{v}
		case f.Type != catalog.FieldArray && isList:
			if len(list) == 0 {
				delete(p, name)
			} else {
				p[name] = list[0]
			}
		case f.Type == catalog.FieldArray && isList:
			p[name] = list
		}
	}
}

func asList(v any) ([]any, bool) {
	switch t := v.(type) {
	case []any:
		return t, true
	case []string:
		out := make([]any, len(t))
		for i, s := range t {
			out[i] = s
		}
		return out, true
	}
	return nil, false
}

func checkRequiredGroups(spec *catalog.ModelSpec, p Payload) error {
	for _, group := range spec.RequiredGroups() {
		satisfied := false
		for _, name := range group {
			if Truthy(p[name]) {
				satisfied = true
				break
			}
		}
		if !satisfied {
			return Errorf(strings.Join(group, " or "), "required but missing or empty")
		}
	}
	return nil
}
