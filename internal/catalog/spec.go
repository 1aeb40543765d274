package catalog

// Category enumerates the generation kinds the provider exposes.
type Category string

const (
	CategoryTextToImage  Category = "text-to-image"
	CategoryImageToImage Category = "image-to-image"
	CategoryTextToVideo  Category = "text-to-video"
	CategoryImageToVideo Category = "image-to-video"
	CategoryTextToMusic  Category = "text-to-music"
	CategoryLipSync      Category = "lip-sync"
	CategoryUpscale      Category = "upscale"
)

// OutputKind describes the shape of a finished task's result document.
type OutputKind string

const (
	// OutputMediaURLList means the provider returns a list of downloadable
	// media URLs.
	OutputMediaURLList OutputKind = "media-url-list"
	// OutputStructuredObject means the provider returns an arbitrary JSON
	// object (e.g. music generation metadata).
	OutputStructuredObject OutputKind = "structured-object"
)

// FieldType is the declared value type of an input field.
type FieldType string

const (
	FieldString  FieldType = "string"
	FieldNumber  FieldType = "number"
	FieldBoolean FieldType = "boolean"
	FieldObject  FieldType = "object"
	FieldArray   FieldType = "array"
)

// Task lifecycle states as reported by the provider envelope.
const (
	StateWaiting    = "waiting"
	StateQueuing    = "queuing"
	StateGenerating = "generating"
	StateSuccess    = "success"
	StateFail       = "fail"
)

// Field describes one input parameter of a model.
//
// Required marks a field that must be present on its own. Group names a
// required-field group: any one member of the group satisfies it, so group
// members are individually optional. A field carrying both flags is treated
// as a group member.
type Field struct {
	Name      string            `json:"name" yaml:"name"`
	Type      FieldType         `json:"type" yaml:"type"`
	Required  bool              `json:"required,omitempty" yaml:"required,omitempty"`
	Group     string            `json:"group,omitempty" yaml:"group,omitempty"`
	Default   any               `json:"default,omitempty" yaml:"default,omitempty"`
	Enum      []any             `json:"enum,omitempty" yaml:"enum,omitempty"`
	Synonyms  map[string]string `json:"synonyms,omitempty" yaml:"synonyms,omitempty"`
	Min       *float64          `json:"min,omitempty" yaml:"min,omitempty"`
	Max       *float64          `json:"max,omitempty" yaml:"max,omitempty"`
	Step      *float64          `json:"step,omitempty" yaml:"step,omitempty"`
	MaxLength int               `json:"max_length,omitempty" yaml:"max_length,omitempty"`
}

// Mode is a pricing/parameter variant of a model. Notes carries the free-text
// metadata (e.g. "8s 720p clip") that normalization mines for secondary
// defaults.
type Mode struct {
	Key   string `json:"key" yaml:"key"`
	Title string `json:"title,omitempty" yaml:"title,omitempty"`
	Notes string `json:"notes,omitempty" yaml:"notes,omitempty"`
}

// ModelSpec is one addressable generation capability. Specs are built once by
// the catalog loader and must be treated as read-only afterwards.
type ModelSpec struct {
	ID         string     `json:"id" yaml:"id"`
	Title      string     `json:"title,omitempty" yaml:"title,omitempty"`
	Category   Category   `json:"category" yaml:"category"`
	Output     OutputKind `json:"output" yaml:"output"`
	CreatePath string     `json:"create_path" yaml:"create_path"`
	RecordPath string     `json:"record_path" yaml:"record_path"`
	States     []string   `json:"states" yaml:"states"`
	Fields     []Field    `json:"fields" yaml:"fields"`
	Modes      []Mode     `json:"modes,omitempty" yaml:"modes,omitempty"`
}

// Field returns the spec for the named input, or nil when the model does not
// declare it.
func (m *ModelSpec) Field(name string) *Field {
	for i := range m.Fields {
		if m.Fields[i].Name == name {
			return &m.Fields[i]
		}
	}
	return nil
}

// FieldNames returns the declared input whitelist in declaration order.
func (m *ModelSpec) FieldNames() []string {
	names := make([]string, 0, len(m.Fields))
	for i := range m.Fields {
		names = append(names, m.Fields[i].Name)
	}
	return names
}

// RequiredGroups returns every required-field group as a list of alternative
// field names, in declaration order. A plain required field forms a group of
// one; fields sharing a group tag form one group together.
func (m *ModelSpec) RequiredGroups() [][]string {
	var groups [][]string
	index := make(map[string]int)
	for i := range m.Fields {
		f := &m.Fields[i]
		switch {
		case f.Group != "":
			if at, ok := index[f.Group]; ok {
				groups[at] = append(groups[at], f.Name)
				continue
			}
			index[f.Group] = len(groups)
			groups = append(groups, []string{f.Name})
		case f.Required:
			groups = append(groups, []string{f.Name})
		}
	}
	return groups
}

// Mode returns the mode with the given key, or nil when the model does not
// declare it.
func (m *ModelSpec) Mode(key string) *Mode {
	for i := range m.Modes {
		if m.Modes[i].Key == key {
			return &m.Modes[i]
		}
	}
	return nil
}

// AllowsState reports whether the provider may legally report the given
// lifecycle state for this model.
func (m *ModelSpec) AllowsState(state string) bool {
	for _, s := range m.States {
		if s == state {
			return true
		}
	}
	return false
}
