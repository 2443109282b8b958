package ai

import (
	"fmt"
	"strings"

	"github.com/seedkeeper/seedkeeper/pkg/schema"
)

const systemPreamble = `You are a horticulture reference assistant filling in a garden seed catalog entry.

You receive a seed name and, optionally, a variety. Answer with facts about that exact variety when you know them, otherwise about the plant in general.

Rules:
- Return ONLY a single JSON object. No prose, no Markdown.
- Use exactly the keys listed below. Omit a key or use null when you do not know the answer.
- Booleans are true or false. Integers are plain numbers without units.
- For choice fields, use one of the listed values verbatim.
- For list fields, return a JSON array of listed values.
- Never repeat the seed name as the variety name.

Fields:`

// buildPrompt returns the system instruction and the user message for q.
func buildPrompt(reg *schema.Registry, q Query) (string, string, error) {
	if q.Section != "" && !reg.HasSection(q.Section) {
		return "", "", fmt.Errorf("unknown section %q", q.Section)
	}

	fields := reg.AIFields(q.Section)
	if len(fields) == 0 {
		return "", "", fmt.Errorf("no AI-populated fields in section %q", q.Section)
	}

	var b strings.Builder
	b.WriteString(systemPreamble)
	for _, f := range fields {
		fmt.Fprintf(&b, "\n- %s (%s): %s", f.Key, f.Label, describeKind(f))
	}

	var u strings.Builder
	fmt.Fprintf(&u, "Seed name: %s", q.SeedName)
	if q.VarietyName != "" {
		fmt.Fprintf(&u, "\nVariety: %s", q.VarietyName)
	}
	if q.Section != "" {
		fmt.Fprintf(&u, "\nOnly fill in the %s fields.", q.Section)
	}
	return b.String(), u.String(), nil
}

func describeKind(f schema.FieldSpec) string {
	switch f.Kind {
	case schema.KindBoolean:
		return "boolean"
	case schema.KindInteger:
		return "integer"
	case schema.KindLongText:
		return "a few sentences of plain text"
	case schema.KindURL:
		return "URL"
	case schema.KindDate:
		return "date (YYYY-MM-DD)"
	case schema.KindEnum:
		return "one of " + strings.Join(f.Values(), " | ")
	case schema.KindMultiEnum:
		return "array of " + strings.Join(f.Values(), " | ")
	}
	return "short text"
}
