package storage

import (
	"encoding/json"
	"strings"

	"github.com/seedkeeper/seedkeeper/pkg/merge"
)

// nameKeys are stored in their own columns, never inside the fields JSON.
var nameKeys = map[string]bool{"seed_name": true, "variety_name": true}

func encodeFields(fields map[string]any) (string, error) {
	clean := make(map[string]any, len(fields))
	for k, v := range fields {
		if nameKeys[k] || v == nil {
			continue
		}
		if s, ok := v.(string); ok && strings.TrimSpace(s) == "" {
			continue
		}
		clean[k] = v
	}
	data, err := json.Marshal(clean)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func decodeFields(data string) (map[string]any, error) {
	out := map[string]any{}
	if strings.TrimSpace(data) == "" {
		return out, nil
	}
	if err := json.Unmarshal([]byte(data), &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Value returns the value of field key, including the name columns.
func (s *Seed) Value(key string) any {
	switch key {
	case "seed_name":
		return s.SeedName
	case "variety_name":
		return s.VarietyName
	}
	return s.Fields[key]
}

// DisplayName is "Seed (Variety)" or just the seed name.
func (s *Seed) DisplayName() string {
	if s.VarietyName == "" {
		return s.SeedName
	}
	return s.SeedName + " (" + s.VarietyName + ")"
}

// Categories returns the seed's categories field as a list.
func (s *Seed) Categories() []string {
	switch t := s.Fields["categories"].(type) {
	case []string:
		return t
	case []any:
		out := make([]string, 0, len(t))
		for _, item := range t {
			out = append(out, merge.FormatValue(item))
		}
		return out
	case string:
		var out []string
		for _, part := range strings.Split(t, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
		return out
	}
	return nil
}

// HasCategory reports whether category is among the seed's categories.
func (s *Seed) HasCategory(category string) bool {
	for _, c := range s.Categories() {
		if strings.EqualFold(c, strings.TrimSpace(category)) {
			return true
		}
	}
	return false
}
