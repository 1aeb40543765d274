package rules

import (
	"strings"

	"genbridge/internal/catalog"
	"genbridge/internal/normalize"
)

func init() {
	normalize.RegisterRule("kling/v2-1", klingRule)
}

// klingRule normalizes the kling image-to-video contract. Durations arrive
// as 5, "5", or "5s"; the provider wants bare seconds.
func klingRule(spec *catalog.ModelSpec, _ *catalog.Mode, p normalize.Payload) error {
	if s, ok := p["duration"].(string); ok {
		p["duration"] = strings.TrimSuffix(strings.ToLower(strings.TrimSpace(s)), "s")
	}
	if err := normalize.CanonicalEnum(spec, p, "duration"); err != nil {
		return err
	}
	if err := normalize.ClampNumber(spec, p, "cfg_scale"); err != nil {
		return err
	}
	return normalize.CheckLength(spec, p, "prompt")
}
