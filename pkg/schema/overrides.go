package schema

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Overrides extends a registry without recompiling: extra AI aliases, extra
// enum synonyms and per-field confidence.
//
//	fields:
//	  sunlight:
//	    aliases: [sun_needs]
//	    synonyms:
//	      Full Sun: [blazing sun]
//	    confidence: low
type Overrides struct {
	Fields map[string]FieldOverride `yaml:"fields"`
}

// FieldOverride is the per-field part of Overrides.
type FieldOverride struct {
	Aliases    []string            `yaml:"aliases"`
	Synonyms   map[string][]string `yaml:"synonyms"`
	Confidence string              `yaml:"confidence"`
}

// LoadOverrides reads an overrides YAML file.
func LoadOverrides(path string) (*Overrides, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseOverrides(data)
}

// ParseOverrides decodes overrides YAML, rejecting unknown keys.
func ParseOverrides(data []byte) (*Overrides, error) {
	var o Overrides
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&o); err != nil {
		return nil, fmt.Errorf("parse schema overrides: %w", err)
	}
	return &o, nil
}

// Apply returns a new registry with the overrides merged in. The receiver is
// left untouched.
func (r *Registry) Apply(o *Overrides) (*Registry, error) {
	if o == nil || len(o.Fields) == 0 {
		return r, nil
	}

	fields := r.Fields()
	for key, fo := range o.Fields {
		i, ok := r.byKey[strings.ToLower(strings.TrimSpace(key))]
		if !ok {
			return nil, fmt.Errorf("schema overrides: unknown field %q", key)
		}
		f := fields[i]

		f.Aliases = append(append([]string(nil), f.Aliases...), fo.Aliases...)

		if len(fo.Synonyms) > 0 {
			if !f.Kind.IsEnum() {
				return nil, fmt.Errorf("schema overrides: field %q is not an enum", f.Key)
			}
			opts := make([]EnumOption, len(f.Options))
			copy(opts, f.Options)
			for value, syns := range fo.Synonyms {
				idx := -1
				for j, opt := range opts {
					if strings.EqualFold(opt.Value, value) {
						idx = j
						break
					}
				}
				if idx < 0 {
					return nil, fmt.Errorf("schema overrides: field %q has no option %q", f.Key, value)
				}
				opts[idx].Synonyms = append(append([]string(nil), opts[idx].Synonyms...), syns...)
			}
			f.Options = opts
		}

		if fo.Confidence != "" {
			c, err := ParseConfidence(fo.Confidence)
			if err != nil {
				return nil, fmt.Errorf("schema overrides: field %q: %w", f.Key, err)
			}
			f.Confidence = c
		}
		fields[i] = f
	}

	return New(fields)
}
