package normalize

import "strings"

// aliases maps the historical input names the chat layer has shipped over the
// years onto the canonical field names the catalog declares. Lookup is
// case-insensitive. The table is global on purpose: an alias only takes
// effect for models whose whitelist carries the canonical field, because the
// whitelist pass drops everything else.
var aliases = map[string]string{
	"text":          "prompt",
	"description":   "prompt",
	"negative":      "negative_prompt",
	"neg_prompt":    "negative_prompt",
	"aspect":        "aspect_ratio",
	"ratio":         "aspect_ratio",
	"size":          "image_size",
	"image":         "image_url",
	"img":           "image_url",
	"source_image":  "image_url",
	"images":        "image_urls",
	"source_images": "image_urls",
	"length":        "duration",
	"seconds":       "duration",
	"secs":          "duration",
	"res":           "resolution",
	"cfg":           "cfg_scale",
	"guidance":      "cfg_scale",
	"lyric":         "lyrics",
	"scale":         "upscale_factor",
	"factor":        "upscale_factor",
	"audio":         "audio_url",
	"video":         "video_url",
}

// CanonicalName resolves a raw input key to its canonical field name. The
// second result reports whether the key was an alias.
func CanonicalName(key string) (string, bool) {
	if canonical, ok := aliases[strings.ToLower(key)]; ok {
		return canonical, true
	}
	return key, false
}
