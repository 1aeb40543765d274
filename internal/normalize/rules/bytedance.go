package rules

import (
	"math"

	"genbridge/internal/catalog"
	"genbridge/internal/normalize"
)

func init() {
	normalize.RegisterRule("bytedance/seedream-v4", seedreamRule)
}

// seedreamRule normalizes the seedream text-to-image contract. The batch
// size is a whole-image count clamped into the provider's 1..6 window.
func seedreamRule(spec *catalog.ModelSpec, _ *catalog.Mode, p normalize.Payload) error {
	if err := normalize.CheckLength(spec, p, "prompt"); err != nil {
		return err
	}
	if err := normalize.CanonicalEnum(spec, p, "image_size"); err != nil {
		return err
	}
	if err := normalize.ClampNumber(spec, p, "max_images"); err != nil {
		return err
	}
	if n, ok := p["max_images"].(float64); ok {
		p["max_images"] = math.Floor(n)
	}
	return nil
}
