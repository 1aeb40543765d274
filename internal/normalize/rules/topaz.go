package rules

import (
	"strings"

	"genbridge/internal/catalog"
	"genbridge/internal/normalize"
)

func init() {
	normalize.RegisterRule("topaz/upscale", topazRule)
}

// topazRule normalizes the upscaler contract. Factors arrive as 2, "2", or
// "2x"; the provider wants the bare multiplier.
func topazRule(spec *catalog.ModelSpec, _ *catalog.Mode, p normalize.Payload) error {
	if s, ok := p["upscale_factor"].(string); ok {
		p["upscale_factor"] = strings.TrimSuffix(strings.ToLower(strings.TrimSpace(s)), "x")
	}
	return normalize.CanonicalEnum(spec, p, "upscale_factor")
}
