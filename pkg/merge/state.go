package merge

import (
	"fmt"
	"strconv"
	"strings"
)

// FormState is a snapshot of an edit form: the current value per field key and
// which fields the user has edited during the session. Values coming from JSON
// clients may be string, bool, float64 or []any; the merge compares them
// according to the field's kind.
type FormState struct {
	Values  map[string]any  `json:"values"`
	Touched map[string]bool `json:"touched,omitempty"`
}

// NewFormState returns an empty state with initialized maps.
func NewFormState() FormState {
	return FormState{Values: map[string]any{}, Touched: map[string]bool{}}
}

// Clone deep-copies the state, including list values.
func (s FormState) Clone() FormState {
	out := NewFormState()
	for k, v := range s.Values {
		out.Values[k] = cloneValue(v)
	}
	for k, v := range s.Touched {
		if v {
			out.Touched[k] = true
		}
	}
	return out
}

// IsTouched reports whether the user edited key.
func (s FormState) IsTouched(key string) bool {
	return s.Touched[key]
}

// Set stores a user-entered value and marks the field touched.
func (s *FormState) Set(key string, value any) {
	if s.Values == nil {
		s.Values = map[string]any{}
	}
	if s.Touched == nil {
		s.Touched = map[string]bool{}
	}
	s.Values[key] = value
	s.Touched[key] = true
}

// String returns the value of key rendered as text, or "" when unset.
func (s FormState) String(key string) string {
	return FormatValue(s.Values[key])
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case []string:
		return append([]string(nil), t...)
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = cloneValue(item)
		}
		return out
	}
	return v
}

// FormatValue renders a field value for people: booleans as Yes/No, lists
// joined with ", ".
func FormatValue(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		if t {
			return "Yes"
		}
		return "No"
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case []string:
		return strings.Join(t, ", ")
	case []any:
		parts := make([]string, 0, len(t))
		for _, item := range t {
			parts = append(parts, FormatValue(item))
		}
		return strings.Join(parts, ", ")
	}
	return fmt.Sprint(v)
}
