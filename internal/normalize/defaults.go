package normalize

import (
	"regexp"
	"strconv"

	"genbridge/internal/catalog"
)

// Mode metadata is free text, but the defaults we mine from it follow a tiny
// grammar: a bare number immediately followed by a unit letter. Accepted
// units: "s" (seconds, fills the duration field as a number) and "p" (pixel
// rows, fills the resolution field as the literal token, e.g. "720p").
var modeTokenRE = regexp.MustCompile(`(?i)\b(\d+)(s|p)\b`)

// fillDefaults populates still-missing fields. A default declared on the spec
// always wins over a token mined from the mode text; the ordering is a
// deliberate choice, not something the provider contract dictates. Sentinel
// defaults (seed -1 and friends) are copied verbatim, never resolved here.
func fillDefaults(spec *catalog.ModelSpec, mode *catalog.Mode, p Payload) {
	tokens := modeTokens(mode)
	for i := range spec.Fields {
		f := &spec.Fields[i]
		if _, ok := p[f.Name]; ok {
			continue
		}
		if f.Default != nil {
			p[f.Name] = f.Default
			continue
		}
		if v, ok := tokens[f.Name]; ok {
			p[f.Name] = v
		}
	}
}

// modeTokens scans the mode's notes, then its title, then its key, keeping
// the first token found per field.
func modeTokens(mode *catalog.Mode) map[string]any {
	if mode == nil {
		return nil
	}
	out := make(map[string]any, 2)
	for _, text := range []string{mode.Notes, mode.Title, mode.Key} {
		for _, m := range modeTokenRE.FindAllStringSubmatch(text, -1) {
			switch m[2] {
			case "s", "S":
				if _, ok := out["duration"]; !ok {
					n, err := strconv.ParseFloat(m[1], 64)
					if err == nil {
						out["duration"] = n
					}
				}
			case "p", "P":
				if _, ok := out["resolution"]; !ok {
					out["resolution"] = m[1] + "p"
				}
			}
		}
	}
	return out
}
