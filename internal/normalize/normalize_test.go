package normalize

import (
	"bytes"
	"errors"
	"testing"

	"genbridge/internal/catalog"
)

func motionSpec() *catalog.ModelSpec {
	return &catalog.ModelSpec{
		ID:       "acme/motion",
		Category: catalog.CategoryTextToVideo,
		Output:   catalog.OutputMediaURLList,
		States:   []string{catalog.StateWaiting, catalog.StateSuccess, catalog.StateFail},
		Fields: []catalog.Field{
			{Name: "prompt", Type: catalog.FieldString, Required: true, MaxLength: 200},
			{Name: "image_urls", Type: catalog.FieldArray},
			{Name: "resolution", Type: catalog.FieldString, Enum: []any{"720p", "1080p"}, Synonyms: map[string]string{"hd": "720p"}},
			{Name: "duration", Type: catalog.FieldNumber, Enum: []any{4.0, 6.0, 8.0}},
			{Name: "seed", Type: catalog.FieldNumber, Default: -1.0},
			{Name: "style", Type: catalog.FieldString, Default: "cinematic"},
		},
	}
}

func TestAliasResolution(t *testing.T) {
	spec := motionSpec()

	p, err := Normalize(spec, nil, map[string]any{"text": "sunrise over water"})
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if p["prompt"] != "sunrise over water" {
		t.Fatalf("prompt = %v, want aliased value", p["prompt"])
	}
	if _, ok := p["text"]; ok {
		t.Fatalf("raw alias key leaked into payload")
	}
}

func TestAliasNeverBeatsCanonicalKey(t *testing.T) {
	spec := motionSpec()

	p, err := Normalize(spec, nil, map[string]any{
		"text":   "from alias",
		"prompt": "from canonical",
	})
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if p["prompt"] != "from canonical" {
		t.Fatalf("prompt = %v, want canonical value", p["prompt"])
	}
}

func TestCompetingAliasesResolveDeterministically(t *testing.T) {
	spec := motionSpec()

	// "description" sorts before "text", so it wins every run.
	for i := 0; i < 20; i++ {
		p, err := Normalize(spec, nil, map[string]any{
			"description": "first",
			"text":        "second",
		})
		if err != nil {
			t.Fatalf("normalize: %v", err)
		}
		if p["prompt"] != "first" {
			t.Fatalf("run %d: prompt = %v, want first", i, p["prompt"])
		}
	}
}

func TestUnknownKeysDropped(t *testing.T) {
	spec := motionSpec()

	p, err := Normalize(spec, nil, map[string]any{
		"prompt":     "a boat",
		"admin":      true,
		"utm_source": "chat",
	})
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	for k := range p {
		if spec.Field(k) == nil {
			t.Fatalf("payload carries undeclared key %q", k)
		}
	}
}

func TestShapeAdaptation(t *testing.T) {
	spec := motionSpec()

	p, err := Normalize(spec, nil, map[string]any{
		"prompt":     []any{"first prompt", "second prompt"},
		"image_urls": "https://cdn.example.com/a.png",
	})
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if p["prompt"] != "first prompt" {
		t.Fatalf("prompt = %v, want first element of list", p["prompt"])
	}
	urls, ok := p["image_urls"].([]any)
	if !ok {
		t.Fatalf("image_urls = %T, want list", p["image_urls"])
	}
	if len(urls) != 1 || urls[0] != "https://cdn.example.com/a.png" {
		t.Fatalf("image_urls = %v, want one wrapped element", urls)
	}
}

func TestShapeAdaptationStringSlices(t *testing.T) {
	spec := motionSpec()

	p, err := Normalize(spec, nil, map[string]any{
		"prompt":     "a boat",
		"image_urls": []string{"https://x/1.png", "https://x/2.png"},
	})
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	urls, ok := p["image_urls"].([]any)
	if !ok || len(urls) != 2 {
		t.Fatalf("image_urls = %v (%T), want two-element list", p["image_urls"], p["image_urls"])
	}
}

func TestEmptyListCountsAsAbsent(t *testing.T) {
	spec := motionSpec()

	_, err := Normalize(spec, nil, map[string]any{"prompt": []any{}})
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("err = %v, want ValidationError", err)
	}
	if verr.Field != "prompt" {
		t.Fatalf("field = %q, want prompt", verr.Field)
	}
}

func TestSpecDefaultBeatsModeToken(t *testing.T) {
	spec := motionSpec()
	spec.Fields[3].Default = 6.0 // duration

	mode := &catalog.Mode{Key: "motion-8s", Notes: "renders 8s clips"}
	p, err := Normalize(spec, mode, map[string]any{"prompt": "a boat"})
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if p["duration"] != 6.0 {
		t.Fatalf("duration = %v, want declared default 6", p["duration"])
	}
}

func TestModeTokenFillsWhenNoDefault(t *testing.T) {
	spec := motionSpec()

	mode := &catalog.Mode{Key: "fast", Notes: "budget preset, 4s at 720p"}
	p, err := Normalize(spec, mode, map[string]any{"prompt": "a boat"})
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if p["duration"] != 4.0 {
		t.Fatalf("duration = %v, want 4 from mode notes", p["duration"])
	}
	if p["resolution"] != "720p" {
		t.Fatalf("resolution = %v, want 720p from mode notes", p["resolution"])
	}
}

func TestModeTokenGrammar(t *testing.T) {
	cases := []struct {
		name           string
		mode           *catalog.Mode
		wantDuration   any
		wantResolution any
	}{
		{name: "nil mode", mode: nil},
		{name: "no tokens", mode: &catalog.Mode{Notes: "premium quality"}},
		{name: "seconds", mode: &catalog.Mode{Notes: "8s"}, wantDuration: 8.0},
		{name: "resolution", mode: &catalog.Mode{Notes: "1080p"}, wantResolution: "1080p"},
		{name: "both", mode: &catalog.Mode{Notes: "8s at 1080p"}, wantDuration: 8.0, wantResolution: "1080p"},
		{name: "space breaks adjacency", mode: &catalog.Mode{Notes: "8 s"}},
		{name: "no word boundary", mode: &catalog.Mode{Notes: "veo3straight"}},
		{name: "key fallback", mode: &catalog.Mode{Key: "motion-4s"}, wantDuration: 4.0},
		{name: "notes beat key", mode: &catalog.Mode{Key: "motion-4s", Notes: "8s"}, wantDuration: 8.0},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tokens := modeTokens(tc.mode)
			if got := tokens["duration"]; got != tc.wantDuration {
				t.Fatalf("duration token = %v, want %v", got, tc.wantDuration)
			}
			if got := tokens["resolution"]; got != tc.wantResolution {
				t.Fatalf("resolution token = %v, want %v", got, tc.wantResolution)
			}
		})
	}
}

func TestSentinelDefaultPassesThrough(t *testing.T) {
	spec := motionSpec()

	p, err := Normalize(spec, nil, map[string]any{"prompt": "a boat"})
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if p["seed"] != -1.0 {
		t.Fatalf("seed = %v, want sentinel -1 untouched", p["seed"])
	}
}

func TestNormalizeIsDeterministic(t *testing.T) {
	spec := motionSpec()
	mode := &catalog.Mode{Notes: "4s at 720p"}
	raw := map[string]any{
		"text":       "a boat",
		"image_urls": []any{"https://x/1.png"},
		"junk":       "dropped",
	}

	first, err := Normalize(spec, mode, raw)
	if err != nil {
		t.Fatalf("first normalize: %v", err)
	}
	second, err := Normalize(spec, mode, raw)
	if err != nil {
		t.Fatalf("second normalize: %v", err)
	}

	a, err := first.Encode()
	if err != nil {
		t.Fatalf("encode first: %v", err)
	}
	b, err := second.Encode()
	if err != nil {
		t.Fatalf("encode second: %v", err)
	}
	if !bytes.Equal(a, b) {
		t.Fatalf("normalization not reproducible:\n%s\n%s", a, b)
	}
}

func groupSpec() *catalog.ModelSpec {
	return &catalog.ModelSpec{
		ID:       "acme/swap",
		Category: catalog.CategoryImageToImage,
		Output:   catalog.OutputMediaURLList,
		States:   []string{catalog.StateWaiting, catalog.StateSuccess, catalog.StateFail},
		Fields: []catalog.Field{
			{Name: "image_url", Type: catalog.FieldString, Group: "source"},
			{Name: "image_base64", Type: catalog.FieldString, Group: "source"},
			{Name: "asset_id", Type: catalog.FieldString, Group: "source"},
		},
	}
}

func TestRequiredGroupUnsatisfied(t *testing.T) {
	_, err := Normalize(groupSpec(), nil, map[string]any{})
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("err = %v, want ValidationError", err)
	}
	if verr.Field != "image_url or image_base64 or asset_id" {
		t.Fatalf("field = %q, want joined group members", verr.Field)
	}
	if verr.Constraint != "required but missing or empty" {
		t.Fatalf("constraint = %q", verr.Constraint)
	}
}

func TestRequiredGroupSatisfiedByAnyMember(t *testing.T) {
	for _, member := range []string{"image_url", "image_base64", "asset_id"} {
		p, err := Normalize(groupSpec(), nil, map[string]any{member: "value-" + member})
		if err != nil {
			t.Fatalf("member %s: %v", member, err)
		}
		if p[member] != "value-"+member {
			t.Fatalf("member %s = %v, want value preserved unchanged", member, p[member])
		}
	}
}

func TestRequiredGroupRejectsFalsyMember(t *testing.T) {
	_, err := Normalize(groupSpec(), nil, map[string]any{"image_url": ""})
	if err == nil {
		t.Fatalf("empty string should not satisfy the group")
	}
}

func TestRuleDispatchByExactID(t *testing.T) {
	RegisterRule("acme/probed", func(_ *catalog.ModelSpec, _ *catalog.Mode, p Payload) error {
		if p["prompt"] == "boom" {
			return Errorf("prompt", "not allowed")
		}
		p["touched"] = true
		return nil
	})

	spec := motionSpec()
	spec.ID = "acme/probed"
	spec.Fields = append(spec.Fields, catalog.Field{Name: "touched", Type: catalog.FieldBoolean})

	p, err := Normalize(spec, nil, map[string]any{"prompt": "fine"})
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if p["touched"] != true {
		t.Fatalf("registered rule did not run")
	}

	_, err = Normalize(spec, nil, map[string]any{"prompt": "boom"})
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("err = %v, want rule's ValidationError", err)
	}
	if verr.Error() != `input "prompt": not allowed` {
		t.Fatalf("message = %q", verr.Error())
	}

	// A near-miss id must not pick up the rule.
	other := motionSpec()
	other.ID = "acme/probed-v2"
	p, err = Normalize(other, nil, map[string]any{"prompt": "fine"})
	if err != nil {
		t.Fatalf("normalize near-miss id: %v", err)
	}
	if _, ok := p["touched"]; ok {
		t.Fatalf("rule ran for a different model id")
	}
}
