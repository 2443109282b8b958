package storage

import (
	"strings"

	"github.com/seedkeeper/seedkeeper/pkg/merge"
)

// FormState returns the seed as an untouched form snapshot, ready for an AI
// merge.
func (s *Seed) FormState() merge.FormState {
	st := merge.NewFormState()
	st.Values["seed_name"] = s.SeedName
	st.Values["variety_name"] = s.VarietyName
	for k, v := range s.Fields {
		st.Values[k] = v
	}
	return st.Clone()
}

// LockedFormState is FormState with every stored value marked touched, so a
// merge into it only fills blank fields.
func (s *Seed) LockedFormState() merge.FormState {
	st := s.FormState()
	for k, v := range st.Values {
		if merge.FormatValue(v) != "" {
			st.Touched[k] = true
		}
	}
	return st
}

// SeedFromState builds a seed record from a form snapshot. uid may be empty
// for a new seed. Empty values are left out.
func SeedFromState(uid string, st merge.FormState) *Seed {
	s := &Seed{UID: uid, Fields: map[string]any{}}
	for k, v := range st.Values {
		switch k {
		case "seed_name":
			s.SeedName = strings.TrimSpace(merge.FormatValue(v))
			continue
		case "variety_name":
			s.VarietyName = strings.TrimSpace(merge.FormatValue(v))
			continue
		}
		if isBlank(v) {
			continue
		}
		s.Fields[k] = v
	}
	return s
}

func isBlank(v any) bool {
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
