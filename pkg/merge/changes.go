package merge

import (
	"fmt"
	"strings"

	"github.com/seedkeeper/seedkeeper/pkg/schema"
)

// NoChangesMessage is shown when a merge changed nothing.
const NoChangesMessage = "No new information found."

// Change records one field update.
type Change struct {
	Key      string `json:"key"`
	OldValue any    `json:"old_value"`
	NewValue any    `json:"new_value"`
	Reason   string `json:"reason"`
}

// ChangeSet is the ordered list of updates one merge made.
type ChangeSet []Change

// Keys returns the changed field keys in order.
func (cs ChangeSet) Keys() []string {
	keys := make([]string, 0, len(cs))
	for _, c := range cs {
		keys = append(keys, c.Key)
	}
	return keys
}

// Summary renders the changes for display, one line per field.
func (cs ChangeSet) Summary(reg *schema.Registry) string {
	if len(cs) == 0 {
		return NoChangesMessage
	}

	var b strings.Builder
	if len(cs) == 1 {
		b.WriteString("AI updated 1 field:")
	} else {
		fmt.Fprintf(&b, "AI updated %d fields:", len(cs))
	}
	for _, c := range cs {
		label := c.Key
		if f, ok := reg.Get(c.Key); ok {
			label = f.Label
		}
		old := FormatValue(c.OldValue)
		if strings.TrimSpace(old) == "" {
			fmt.Fprintf(&b, "\n  %s: %s", label, FormatValue(c.NewValue))
			continue
		}
		fmt.Fprintf(&b, "\n  %s: %s (was %s)", label, FormatValue(c.NewValue), old)
	}
	return b.String()
}
