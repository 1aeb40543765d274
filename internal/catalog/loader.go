package catalog

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

// document is the on-disk shape of a generated catalog. The core consumes the
// document as read-only input at startup; producing it is the documentation
// pipeline's job, not ours.
type document struct {
	Version string       `json:"version" yaml:"version"`
	Models  []*ModelSpec `json:"models" yaml:"models"`
}

// Format selects the catalog codec.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// Load reads a catalog document from disk, picking the codec from the file
// extension (.json, .yaml, .yml). It fails when the file is unreadable, does
// not parse, violates the schema, or declares zero models.
func Load(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("catalog: read %s: %w", path, err)
	}
	format, err := formatForPath(path)
	if err != nil {
		return nil, err
	}
	reg, err := Parse(data, format)
	if err != nil {
		return nil, fmt.Errorf("catalog: %s: %w", path, err)
	}
	return reg, nil
}

// Parse builds a registry from raw catalog bytes.
func Parse(data []byte, format Format) (*Registry, error) {
	var doc document
	switch format {
	case FormatJSON:
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("decode json: %w", err)
		}
	case FormatYAML:
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("decode yaml: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported catalog format %q", format)
	}
	if len(doc.Models) == 0 {
		return nil, ErrEmptyCatalog
	}
	seen := make(map[string]bool, len(doc.Models))
	for _, m := range doc.Models {
		if err := validateModel(m); err != nil {
			return nil, err
		}
		if seen[m.ID] {
			return nil, fmt.Errorf("duplicate model id %q", m.ID)
		}
		seen[m.ID] = true
	}
	return newRegistry(doc.Version, doc.Models), nil
}

func formatForPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("catalog: unsupported file extension on %s", path)
	}
}

var titleCaser = cases.Title(language.English)

func validateModel(m *ModelSpec) error {
	if m == nil {
		return fmt.Errorf("null model entry")
	}
	vendor, name, ok := strings.Cut(m.ID, "/")
	if !ok || vendor == "" || name == "" {
		return fmt.Errorf("model id %q: want vendor/name", m.ID)
	}
	if !validCategory(m.Category) {
		return fmt.Errorf("model %q: unknown category %q", m.ID, m.Category)
	}
	switch m.Output {
	case OutputMediaURLList, OutputStructuredObject:
	default:
		return fmt.Errorf("model %q: unknown output kind %q", m.ID, m.Output)
	}
	if !strings.HasPrefix(m.CreatePath, "/") {
		return fmt.Errorf("model %q: create_path %q must be endpoint-absolute", m.ID, m.CreatePath)
	}
	if !strings.HasPrefix(m.RecordPath, "/") {
		return fmt.Errorf("model %q: record_path %q must be endpoint-absolute", m.ID, m.RecordPath)
	}
	if err := validateStates(m); err != nil {
		return err
	}
	if len(m.Fields) == 0 {
		return fmt.Errorf("model %q: declares no input fields", m.ID)
	}
	fieldSeen := make(map[string]bool, len(m.Fields))
	for i := range m.Fields {
		f := &m.Fields[i]
		if f.Name == "" {
			return fmt.Errorf("model %q: field with empty name", m.ID)
		}
		if fieldSeen[f.Name] {
			return fmt.Errorf("model %q: duplicate field %q", m.ID, f.Name)
		}
		fieldSeen[f.Name] = true
		if err := validateField(m.ID, f); err != nil {
			return err
		}
	}
	modeSeen := make(map[string]bool, len(m.Modes))
	for i := range m.Modes {
		key := m.Modes[i].Key
		if key == "" {
			return fmt.Errorf("model %q: mode with empty key", m.ID)
		}
		if modeSeen[key] {
			return fmt.Errorf("model %q: duplicate mode %q", m.ID, key)
		}
		modeSeen[key] = true
	}
	if strings.TrimSpace(m.Title) == "" {
		m.Title = deriveTitle(name)
	}
	return nil
}

func validateStates(m *ModelSpec) error {
	if len(m.States) == 0 {
		return fmt.Errorf("model %q: declares no lifecycle states", m.ID)
	}
	hasSuccess, hasFail := false, false
	for _, s := range m.States {
		switch s {
		case StateWaiting, StateQueuing, StateGenerating:
		case StateSuccess:
			hasSuccess = true
		case StateFail:
			hasFail = true
		default:
			return fmt.Errorf("model %q: unknown lifecycle state %q", m.ID, s)
		}
	}
	if !hasSuccess || !hasFail {
		return fmt.Errorf("model %q: lifecycle states must include success and fail", m.ID)
	}
	return nil
}

func validateField(modelID string, f *Field) error {
	switch f.Type {
	case FieldString, FieldNumber, FieldBoolean, FieldObject, FieldArray:
	default:
		return fmt.Errorf("model %q: field %q: unknown type %q", modelID, f.Name, f.Type)
	}
	for i, member := range f.Enum {
		normalized, err := normalizeValue(f.Type, member)
		if err != nil {
			return fmt.Errorf("model %q: field %q: enum member %d: %v", modelID, f.Name, i, err)
		}
		f.Enum[i] = normalized
	}
	if f.Default != nil {
		normalized, err := normalizeValue(f.Type, f.Default)
		if err != nil {
			return fmt.Errorf("model %q: field %q: default: %v", modelID, f.Name, err)
		}
		f.Default = normalized
		if len(f.Enum) > 0 && !enumContains(f.Enum, f.Default) {
			return fmt.Errorf("model %q: field %q: default %v not in enum", modelID, f.Name, f.Default)
		}
	}
	if len(f.Synonyms) > 0 {
		if f.Type != FieldString || len(f.Enum) == 0 {
			return fmt.Errorf("model %q: field %q: synonyms require a string enum", modelID, f.Name)
		}
		lowered := make(map[string]string, len(f.Synonyms))
		for syn, canonical := range f.Synonyms {
			if !enumContains(f.Enum, canonical) {
				return fmt.Errorf("model %q: field %q: synonym %q points outside enum", modelID, f.Name, syn)
			}
			lowered[strings.ToLower(syn)] = canonical
		}
		f.Synonyms = lowered
	}
	if f.Min != nil && f.Max != nil && *f.Min > *f.Max {
		return fmt.Errorf("model %q: field %q: min %v above max %v", modelID, f.Name, *f.Min, *f.Max)
	}
	if f.Step != nil && *f.Step <= 0 {
		return fmt.Errorf("model %q: field %q: step must be positive", modelID, f.Name)
	}
	if f.MaxLength < 0 {
		return fmt.Errorf("model %q: field %q: negative max_length", modelID, f.Name)
	}
	return nil
}

// normalizeValue folds codec-specific scalar representations into the one
// canonical Go type per field type, so JSON- and YAML-sourced catalogs behave
// identically downstream.
func normalizeValue(ft FieldType, v any) (any, error) {
	switch ft {
	case FieldString:
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("want string, got %T", v)
		}
		return s, nil
	case FieldNumber:
		switch n := v.(type) {
		case float64:
			return n, nil
		case float32:
			return float64(n), nil
		case int:
			return float64(n), nil
		case int64:
			return float64(n), nil
		case uint64:
			return float64(n), nil
		default:
			return nil, fmt.Errorf("want number, got %T", v)
		}
	case FieldBoolean:
		b, ok := v.(bool)
		if !ok {
			return nil, fmt.Errorf("want boolean, got %T", v)
		}
		return b, nil
	case FieldObject:
		o, ok := v.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("want object, got %T", v)
		}
		return o, nil
	case FieldArray:
		a, ok := v.([]any)
		if !ok {
			return nil, fmt.Errorf("want array, got %T", v)
		}
		return a, nil
	}
	return nil, fmt.Errorf("unknown field type %q", ft)
}

func enumContains(enum []any, v any) bool {
	for _, member := range enum {
		if member == v {
			return true
		}
	}
	return false
}

func validCategory(c Category) bool {
	switch c {
	case CategoryTextToImage, CategoryImageToImage, CategoryTextToVideo,
		CategoryImageToVideo, CategoryTextToMusic, CategoryLipSync, CategoryUpscale:
		return true
	}
	return false
}

// deriveTitle builds a display title from the name half of a model id when
// the catalog omits one, e.g. "seedream-v4" becomes "Seedream V4".
func deriveTitle(name string) string {
	cleaned := strings.NewReplacer("-", " ", "_", " ").Replace(name)
	return titleCaser.String(cleaned)
}
