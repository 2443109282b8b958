// Package schema declares every catalog field, its type and the AI aliasing
// rules that map model output onto it.
package schema

import (
	"fmt"
	"strings"
)

// Kind is the value type of a catalog field.
type Kind string

const (
	KindText      Kind = "text"
	KindLongText  Kind = "long_text"
	KindBoolean   Kind = "boolean"
	KindInteger   Kind = "integer"
	KindURL       Kind = "url"
	KindDate      Kind = "date"
	KindEnum      Kind = "enum"
	KindMultiEnum Kind = "multi_enum"
)

// IsEnum reports whether values of this kind come from a fixed option list.
func (k Kind) IsEnum() bool {
	return k == KindEnum || k == KindMultiEnum
}

func (k Kind) valid() bool {
	switch k {
	case KindText, KindLongText, KindBoolean, KindInteger, KindURL, KindDate, KindEnum, KindMultiEnum:
		return true
	}
	return false
}

// Confidence is the static trust level attached to AI values of a field.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// ParseConfidence maps a config string to a Confidence.
func ParseConfidence(s string) (Confidence, error) {
	switch Confidence(strings.ToLower(strings.TrimSpace(s))) {
	case ConfidenceHigh:
		return ConfidenceHigh, nil
	case ConfidenceMedium, "":
		return ConfidenceMedium, nil
	case ConfidenceLow:
		return ConfidenceLow, nil
	}
	return "", fmt.Errorf("unknown confidence %q", s)
}

// EnumOption is one canonical value of an enum field.
type EnumOption struct {
	Value    string   `json:"value"`
	Synonyms []string `json:"synonyms,omitempty"`
}

// FieldSpec describes a single catalog attribute.
type FieldSpec struct {
	Key         string       `json:"key"`
	Label       string       `json:"label"`
	Kind        Kind         `json:"kind"`
	Section     string       `json:"section"`
	Options     []EnumOption `json:"options,omitempty"`
	Aliases     []string     `json:"aliases,omitempty"`
	AIPopulated bool         `json:"ai_populated"`
	Confidence  Confidence   `json:"confidence"`

	// DistinctFrom names a sibling field this one must never silently be set
	// equal to.
	DistinctFrom string `json:"distinct_from,omitempty"`
}

// Values returns the canonical enum values in declaration order.
func (f FieldSpec) Values() []string {
	out := make([]string, 0, len(f.Options))
	for _, o := range f.Options {
		out = append(out, o.Value)
	}
	return out
}

// Registry is an immutable, ordered set of FieldSpecs.
type Registry struct {
	fields  []FieldSpec
	byKey   map[string]int
	byAlias map[string]int
}

// New validates fields and builds a Registry. Field order is preserved and
// drives every deterministic iteration in the pipeline.
func New(fields []FieldSpec) (*Registry, error) {
	r := &Registry{
		fields:  make([]FieldSpec, 0, len(fields)),
		byKey:   make(map[string]int, len(fields)),
		byAlias: make(map[string]int),
	}

	for _, f := range fields {
		f.Key = strings.TrimSpace(f.Key)
		if f.Key == "" {
			return nil, fmt.Errorf("field with empty key")
		}
		lk := strings.ToLower(f.Key)
		if _, dup := r.byKey[lk]; dup {
			return nil, fmt.Errorf("duplicate field key %q", f.Key)
		}
		if !f.Kind.valid() {
			return nil, fmt.Errorf("field %q: unknown kind %q", f.Key, f.Kind)
		}
		if f.Kind.IsEnum() && len(f.Options) == 0 {
			return nil, fmt.Errorf("field %q: %s field needs at least one option", f.Key, f.Kind)
		}
		if !f.Kind.IsEnum() && len(f.Options) > 0 {
			return nil, fmt.Errorf("field %q: options are only allowed on enum fields", f.Key)
		}
		if f.Confidence == "" {
			f.Confidence = ConfidenceMedium
		}
		if f.Label == "" {
			f.Label = f.Key
		}
		r.byKey[lk] = len(r.fields)
		r.fields = append(r.fields, f)
	}

	for i, f := range r.fields {
		for _, a := range f.Aliases {
			la := strings.ToLower(strings.TrimSpace(a))
			if la == "" {
				continue
			}
			if _, clash := r.byKey[la]; clash {
				return nil, fmt.Errorf("field %q: alias %q collides with a field key", f.Key, a)
			}
			if prev, clash := r.byAlias[la]; clash && prev != i {
				return nil, fmt.Errorf("field %q: alias %q already used by %q", f.Key, a, r.fields[prev].Key)
			}
			r.byAlias[la] = i
		}
		if f.DistinctFrom != "" {
			if _, ok := r.byKey[strings.ToLower(f.DistinctFrom)]; !ok {
				return nil, fmt.Errorf("field %q: distinct-from field %q does not exist", f.Key, f.DistinctFrom)
			}
		}
	}

	return r, nil
}

// MustNew is like New but panics on an invalid field table.
func MustNew(fields []FieldSpec) *Registry {
	r, err := New(fields)
	if err != nil {
		panic(err)
	}
	return r
}

// Get looks up a field by key, case-insensitively.
func (r *Registry) Get(key string) (FieldSpec, bool) {
	i, ok := r.byKey[strings.ToLower(strings.TrimSpace(key))]
	if !ok {
		return FieldSpec{}, false
	}
	return r.fields[i], true
}

// ResolveAlias maps an alternate AI response key to its canonical field key.
// Only exact, case-insensitive alias matches count.
func (r *Registry) ResolveAlias(rawKey string) (string, bool) {
	i, ok := r.byAlias[strings.ToLower(strings.TrimSpace(rawKey))]
	if !ok {
		return "", false
	}
	return r.fields[i].Key, true
}

// ResolveKey tries rawKey as a field key first and falls back to aliases.
func (r *Registry) ResolveKey(rawKey string) (string, bool) {
	if f, ok := r.Get(rawKey); ok {
		return f.Key, true
	}
	return r.ResolveAlias(rawKey)
}

// Fields returns all specs in declaration order.
func (r *Registry) Fields() []FieldSpec {
	out := make([]FieldSpec, len(r.fields))
	copy(out, r.fields)
	return out
}

// AIFields returns the AI-populated specs, restricted to section when it is
// non-empty.
func (r *Registry) AIFields(section string) []FieldSpec {
	var out []FieldSpec
	for _, f := range r.fields {
		if !f.AIPopulated {
			continue
		}
		if section != "" && !strings.EqualFold(f.Section, section) {
			continue
		}
		out = append(out, f)
	}
	return out
}

// Sections lists the distinct section names in first-seen order.
func (r *Registry) Sections() []string {
	seen := make(map[string]struct{})
	var out []string
	for _, f := range r.fields {
		if f.Section == "" {
			continue
		}
		if _, ok := seen[f.Section]; ok {
			continue
		}
		seen[f.Section] = struct{}{}
		out = append(out, f.Section)
	}
	return out
}

// HasSection reports whether any field belongs to section.
func (r *Registry) HasSection(section string) bool {
	for _, s := range r.Sections() {
		if strings.EqualFold(s, section) {
			return true
		}
	}
	return false
}

// InScope reports whether key takes part in AI population for section.
func (r *Registry) InScope(key, section string) bool {
	f, ok := r.Get(key)
	if !ok || !f.AIPopulated {
		return false
	}
	return section == "" || strings.EqualFold(f.Section, section)
}
