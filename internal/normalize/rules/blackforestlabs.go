package rules

import (
	"math"
	"strings"

	"genbridge/internal/catalog"
	"genbridge/internal/normalize"
)

func init() {
	normalize.RegisterRule("black-forest-labs/flux-kontext", fluxKontextRule)
}

// fluxKontextRule validates the kontext editing contract. Seed -1 asks the
// provider to roll its own and must survive normalization untouched.
func fluxKontextRule(spec *catalog.ModelSpec, _ *catalog.Mode, p normalize.Payload) error {
	prompt, present, err := normalize.CoerceString(p, "prompt")
	if err != nil {
		return err
	}
	if present {
		trimmed := strings.TrimSpace(prompt)
		if trimmed == "" {
			return normalize.Errorf("prompt", "required but missing or empty")
		}
		p["prompt"] = trimmed
	}
	if err := normalize.CheckLength(spec, p, "prompt"); err != nil {
		return err
	}
	if err := normalize.CanonicalEnum(spec, p, "aspect_ratio"); err != nil {
		return err
	}
	seed, present, err := normalize.CoerceNumber(p, "seed")
	if err != nil {
		return err
	}
	if present && seed != -1 && (seed < 0 || seed != math.Trunc(seed)) {
		return normalize.Errorf("seed", "must be -1 or a non-negative integer")
	}
	return nil
}
