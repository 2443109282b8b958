// Package merge reconciles normalized AI fields with a user's form state.
//
// The rules, applied per field in registry order:
//
//   - a field the user touched is never changed,
//   - a non-empty current value equal to the AI value is left alone,
//   - a value equal to a field it must stay distinct from is ignored,
//   - anything else is applied and reported in the ChangeSet.
package merge

import (
	"strconv"
	"strings"

	"github.com/seedkeeper/seedkeeper/pkg/normalize"
	"github.com/seedkeeper/seedkeeper/pkg/schema"
)

// ReasonAIPopulated marks a change made from an AI answer.
const ReasonAIPopulated = "ai-populated"

// Options tune a single merge.
type Options struct {
	// SeedName is the name the AI was asked about. Fields with DistinctFrom
	// set also refuse a value equal to it.
	SeedName string
}

// Outcome is what the UI layer receives after a merge.
type Outcome struct {
	State   FormState `json:"updated_state"`
	Changes ChangeSet `json:"change_set"`
	Dropped int       `json:"dropped_field_count"`
}

// NoOp reports that nothing changed: every field was either equal or
// user-touched. This is not a failure.
func (o Outcome) NoOp() bool {
	return len(o.Changes) == 0
}

// Merge applies res to a copy of state. state itself is never modified.
func Merge(reg *schema.Registry, state FormState, res normalize.Result, opts Options) Outcome {
	out := Outcome{State: state.Clone(), Dropped: res.Dropped}

	incoming := make(map[string]normalize.Field, len(res.Fields))
	for _, f := range res.Fields {
		incoming[f.Key] = f
	}
	if len(incoming) == 0 {
		return out
	}

	for _, spec := range reg.Fields() {
		nf, ok := incoming[spec.Key]
		if !ok {
			continue
		}
		if out.State.IsTouched(spec.Key) {
			continue
		}

		cur, has := out.State.Values[spec.Key]
		if has && !isEmpty(cur) && Equal(spec.Kind, cur, nf.Value) {
			continue
		}
		if echoes(spec, out.State, nf.Value, opts) {
			continue
		}

		out.State.Values[spec.Key] = cloneValue(nf.Value)
		out.Changes = append(out.Changes, Change{
			Key:      spec.Key,
			OldValue: cloneValue(cur),
			NewValue: cloneValue(nf.Value),
			Reason:   ReasonAIPopulated,
		})
	}
	return out
}

// echoes reports whether v would make spec identical to the field it must
// stay distinct from, or to the seed name the AI was queried with.
func echoes(spec schema.FieldSpec, state FormState, v any, opts Options) bool {
	if spec.DistinctFrom == "" {
		return false
	}
	s := strings.TrimSpace(FormatValue(v))
	if s == "" {
		return false
	}
	if sib := strings.TrimSpace(state.String(spec.DistinctFrom)); sib != "" && strings.EqualFold(sib, s) {
		return true
	}
	if name := strings.TrimSpace(opts.SeedName); name != "" && strings.EqualFold(name, s) {
		return true
	}
	return false
}

func isEmpty(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(t) == ""
	case []string:
		return len(t) == 0
	case []any:
		return len(t) == 0
	}
	return false
}

// Equal compares a stored value with a normalized one for the given kind.
// Strings compare case-insensitively and lists ignore order.
func Equal(kind schema.Kind, a, b any) bool {
	switch kind {
	case schema.KindBoolean:
		x, ok1 := asBool(a)
		y, ok2 := asBool(b)
		return ok1 && ok2 && x == y
	case schema.KindInteger:
		x, ok1 := asInt(a)
		y, ok2 := asInt(b)
		return ok1 && ok2 && x == y
	case schema.KindMultiEnum:
		return sameSet(asList(a), asList(b))
	}
	return strings.EqualFold(strings.TrimSpace(FormatValue(a)), strings.TrimSpace(FormatValue(b)))
}

func asBool(v any) (bool, bool) {
	switch t := v.(type) {
	case bool:
		return t, true
	case string:
		switch strings.ToLower(strings.TrimSpace(t)) {
		case "1", "true", "yes":
			return true, true
		case "0", "false", "no":
			return false, true
		}
	case float64:
		return t == 1, true
	case int:
		return t == 1, true
	}
	return false, false
}

func asInt(v any) (int64, bool) {
	switch t := v.(type) {
	case int:
		return int64(t), true
	case int64:
		return t, true
	case float64:
		return int64(t), true
	case string:
		i, err := strconv.ParseInt(strings.TrimSpace(t), 10, 64)
		return i, err == nil
	}
	return 0, false
}

func asList(v any) []string {
	var items []string
	switch t := v.(type) {
	case []string:
		items = t
	case []any:
		for _, item := range t {
			items = append(items, FormatValue(item))
		}
	case string:
		items = strings.Split(t, ",")
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if item = strings.ToLower(strings.TrimSpace(item)); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func sameSet(a, b []string) bool {
	set := make(map[string]struct{}, len(a))
	for _, s := range a {
		set[s] = struct{}{}
	}
	other := make(map[string]struct{}, len(b))
	for _, s := range b {
		if _, ok := set[s]; !ok {
			return false
		}
		other[s] = struct{}{}
	}
	return len(set) == len(other)
}
