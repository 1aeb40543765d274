package rules

import (
	"genbridge/internal/catalog"
	"genbridge/internal/normalize"
)

func init() {
	normalize.RegisterRule("suno/v5", sunoRule)
}

// sunoRule enforces the music contract. Instrumental renders ignore lyrics
// on the provider side, so they are dropped here before hitting the wire.
func sunoRule(spec *catalog.ModelSpec, _ *catalog.Mode, p normalize.Payload) error {
	for _, name := range []string{"style", "title", "lyrics"} {
		if err := normalize.CheckLength(spec, p, name); err != nil {
			return err
		}
	}
	instrumental, present, err := normalize.CoerceBool(p, "instrumental")
	if err != nil {
		return err
	}
	if present && instrumental {
		delete(p, "lyrics")
	}
	return nil
}
