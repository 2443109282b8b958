// Package normalize turns a raw AI answer into typed catalog field values.
package normalize

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/seedkeeper/seedkeeper/pkg/schema"
)

// Logger abstracts logging so callers can pass logrus or anything with the
// same methods.
type Logger interface {
	Debugf(format string, args ...interface{})
	Warnf(format string, args ...interface{})
}

type nopLogger struct{}

func (nopLogger) Debugf(string, ...interface{}) {}
func (nopLogger) Warnf(string, ...interface{})  {}

// WarningKind classifies a non-fatal normalization problem.
type WarningKind string

const (
	// WarnUnrecognizedField: the key matches no field or alias.
	WarnUnrecognizedField WarningKind = "unrecognized_field"
	// WarnTypeCoercion: the value could not be coerced to the field's kind.
	WarnTypeCoercion WarningKind = "type_coercion"
	// WarnDuplicate: a second raw key resolved to an already produced field.
	WarnDuplicate WarningKind = "duplicate"
)

// Warning records why a raw entry (or part of one) was dropped.
type Warning struct {
	Kind   WarningKind `json:"kind"`
	RawKey string      `json:"raw_key"`
	Field  string      `json:"field,omitempty"`
	Detail string      `json:"detail,omitempty"`
}

// Field is a normalized, typed value. Value is a string for text, long_text,
// url, date and enum fields, a bool, an int, or a []string for multi_enum.
type Field struct {
	Key        string            `json:"key"`
	Value      any               `json:"value"`
	Confidence schema.Confidence `json:"confidence"`
}

// Result is the outcome of one normalization pass. Fields follow registry
// order. Dropped counts raw entries that carried a value but were discarded.
type Result struct {
	Fields   []Field   `json:"fields"`
	Dropped  int       `json:"dropped"`
	Warnings []Warning `json:"warnings,omitempty"`
}

// Get returns the normalized field for key.
func (r Result) Get(key string) (Field, bool) {
	for _, f := range r.Fields {
		if f.Key == key {
			return f, true
		}
	}
	return Field{}, false
}

// Normalizer coerces raw AI results against a schema registry.
type Normalizer struct {
	reg *schema.Registry
	log Logger
}

// New returns a Normalizer. A nil logger discards messages.
func New(reg *schema.Registry, log Logger) *Normalizer {
	if log == nil {
		log = nopLogger{}
	}
	return &Normalizer{reg: reg, log: log}
}

type outcome int

const (
	kept outcome = iota
	absent
	invalid
)

// Normalize types every raw entry it can. Entries whose field is outside
// section (when set) or not AI-populated are ignored without being counted.
// A malformed entry never stops the rest from being normalized.
func (n *Normalizer) Normalize(raw RawResult, section string) Result {
	var res Result
	produced := make(map[string]Field)

	type resolved struct {
		entry RawEntry
		key   string
	}
	var direct, aliased []resolved

	for _, e := range raw {
		if f, ok := n.reg.Get(e.Key); ok {
			direct = append(direct, resolved{entry: e, key: f.Key})
			continue
		}
		if key, ok := n.reg.ResolveAlias(e.Key); ok {
			aliased = append(aliased, resolved{entry: e, key: key})
			continue
		}
		n.log.Debugf("[normalize] dropping unrecognized key %q", e.Key)
		res.Dropped++
		res.Warnings = append(res.Warnings, Warning{Kind: WarnUnrecognizedField, RawKey: e.Key})
	}

	// Exact keys win over aliases that resolve to the same field.
	for _, r := range append(direct, aliased...) {
		if !n.reg.InScope(r.key, section) {
			n.log.Debugf("[normalize] ignoring %q: not populated for section %q", r.entry.Key, section)
			continue
		}
		f, _ := n.reg.Get(r.key)

		value, out, detail := n.coerce(f, r.entry.Value)
		switch out {
		case absent:
			continue
		case invalid:
			n.log.Debugf("[normalize] dropping %q (%s): %s", r.entry.Key, f.Kind, detail)
			res.Dropped++
			res.Warnings = append(res.Warnings, Warning{Kind: WarnTypeCoercion, RawKey: r.entry.Key, Field: f.Key, Detail: detail})
			continue
		}

		if _, dup := produced[f.Key]; dup {
			n.log.Debugf("[normalize] dropping %q: %s already set", r.entry.Key, f.Key)
			res.Dropped++
			res.Warnings = append(res.Warnings, Warning{Kind: WarnDuplicate, RawKey: r.entry.Key, Field: f.Key})
			continue
		}
		if detail != "" {
			res.Warnings = append(res.Warnings, Warning{Kind: WarnTypeCoercion, RawKey: r.entry.Key, Field: f.Key, Detail: detail})
		}
		produced[f.Key] = Field{Key: f.Key, Value: value, Confidence: f.Confidence}
	}

	for _, f := range n.reg.Fields() {
		if nf, ok := produced[f.Key]; ok {
			res.Fields = append(res.Fields, nf)
		}
	}
	return res
}

// coerce converts v to f's kind. A non-empty detail alongside kept reports a
// partial loss (multi_enum tokens that did not canonicalize).
func (n *Normalizer) coerce(f schema.FieldSpec, v any) (any, outcome, string) {
	if f.Kind == schema.KindBoolean {
		return toBool(v), kept, ""
	}
	if isNullish(v) {
		return nil, absent, ""
	}

	switch f.Kind {
	case schema.KindInteger:
		i, ok := toInt(v)
		if !ok {
			return nil, invalid, fmt.Sprintf("%v is not a number", v)
		}
		return i, kept, ""

	case schema.KindEnum:
		for _, s := range enumCandidates(v) {
			if canon, ok := n.reg.CanonicalizeEnumValue(f.Key, s); ok {
				return canon, kept, ""
			}
		}
		return nil, invalid, fmt.Sprintf("%v matches no option", v)

	case schema.KindMultiEnum:
		return n.toMulti(f, v)

	case schema.KindLongText:
		s, ok := toText(v)
		if !ok {
			return nil, invalid, fmt.Sprintf("%T is not text", v)
		}
		s = cleanLongText(s)
		if s == "" {
			return nil, absent, ""
		}
		return s, kept, ""

	default: // text, url, date
		s, ok := toText(v)
		if !ok {
			return nil, invalid, fmt.Sprintf("%T is not text", v)
		}
		s = cleanText(s)
		if s == "" {
			return nil, absent, ""
		}
		return s, kept, ""
	}
}

func isNullish(v any) bool {
	if v == nil {
		return true
	}
	if s, ok := v.(string); ok {
		t := strings.ToLower(strings.TrimSpace(s))
		return t == "null" || t == "undefined"
	}
	return false
}

// toBool applies the default-to-false policy: only an explicit positive
// signal yields true.
func toBool(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case string:
		switch strings.ToLower(strings.TrimSpace(t)) {
		case "1", "true", "yes":
			return true
		}
	case float64:
		return t == 1
	case int:
		return t == 1
	}
	return false
}

// toInt parses the leading digit run of a string, or truncates a number.
// Values outside 0..MaxInt32 are rejected.
func toInt(v any) (int, bool) {
	switch t := v.(type) {
	case float64:
		if math.IsNaN(t) || math.IsInf(t, 0) || t < 0 || t > math.MaxInt32 {
			return 0, false
		}
		return int(t), true
	case int:
		return t, t >= 0 && t <= math.MaxInt32
	case string:
		s := strings.TrimSpace(t)
		end := 0
		for end < len(s) && s[end] >= '0' && s[end] <= '9' {
			end++
		}
		if end == 0 {
			return 0, false
		}
		i, err := strconv.ParseInt(s[:end], 10, 32)
		if err != nil {
			return 0, false
		}
		return int(i), true
	}
	return 0, false
}

func toText(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		return t, true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case int:
		return strconv.Itoa(t), true
	case []any:
		parts := make([]string, 0, len(t))
		for _, item := range t {
			if s, ok := item.(string); ok && strings.TrimSpace(s) != "" {
				parts = append(parts, strings.TrimSpace(s))
			}
		}
		return strings.Join(parts, ", "), true
	case []string:
		return strings.Join(t, ", "), true
	}
	return "", false
}

func enumCandidates(v any) []string {
	switch t := v.(type) {
	case string:
		return []string{t}
	case float64:
		return []string{strconv.FormatFloat(t, 'f', -1, 64)}
	case []any:
		var out []string
		for _, item := range t {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	case []string:
		return t
	}
	return nil
}

func (n *Normalizer) toMulti(f schema.FieldSpec, v any) (any, outcome, string) {
	var items []string
	switch t := v.(type) {
	case string:
		items = strings.Split(t, ",")
	case []any:
		for _, item := range t {
			if s, ok := item.(string); ok {
				items = append(items, s)
			}
		}
	case []string:
		items = t
	default:
		return nil, invalid, fmt.Sprintf("%T is not a list", v)
	}

	var (
		out     []string
		missed  []string
		sawItem bool
	)
	seen := make(map[string]struct{})
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" || isNullish(item) {
			continue
		}
		sawItem = true
		canon, ok := n.reg.CanonicalizeEnumValue(f.Key, item)
		if !ok {
			missed = append(missed, item)
			continue
		}
		if _, dup := seen[canon]; dup {
			continue
		}
		seen[canon] = struct{}{}
		out = append(out, canon)
	}

	if !sawItem {
		return nil, absent, ""
	}
	if len(out) == 0 {
		return nil, invalid, fmt.Sprintf("no option matches %q", strings.Join(missed, ", "))
	}
	detail := ""
	if len(missed) > 0 {
		detail = fmt.Sprintf("ignored unmatched %q", strings.Join(missed, ", "))
	}
	return out, kept, detail
}
