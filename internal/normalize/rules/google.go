package rules

import (
	"genbridge/internal/catalog"
	"genbridge/internal/normalize"
)

func init() {
	normalize.RegisterRule("google/veo3", veoRule)
	normalize.RegisterRule("google/veo3-fast", veoRule)
}

// veoRule covers the veo3 family. The provider caps 1080p renders at 6
// seconds, and when source frames are supplied it derives the aspect ratio
// from them, rejecting an explicit one.
func veoRule(spec *catalog.ModelSpec, _ *catalog.Mode, p normalize.Payload) error {
	if err := normalize.CheckLength(spec, p, "prompt"); err != nil {
		return err
	}
	if err := normalize.CanonicalEnum(spec, p, "resolution"); err != nil {
		return err
	}
	if err := normalize.CanonicalEnum(spec, p, "duration"); err != nil {
		return err
	}
	if err := normalize.CanonicalEnum(spec, p, "aspect_ratio"); err != nil {
		return err
	}
	resolution, _ := p["resolution"].(string)
	duration, _ := p["duration"].(float64)
	if resolution == "1080p" && duration == 8 {
		return normalize.Errorf("duration", "1080p output supports 4 or 6 seconds only")
	}
	if normalize.Truthy(p["image_urls"]) {
		delete(p, "aspect_ratio")
	}
	return nil
}
